package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/RecoveryAshes/coursecrawl/internal/models"
)

func TestCheckpointStore_ColdStart(t *testing.T) {
	store := NewCheckpointStore(filepath.Join(t.TempDir(), "checkpoint.json"))

	if store.Exists() {
		t.Fatal("新目录不应存在检查点")
	}
	cp, err := store.Load()
	if err != nil {
		t.Fatalf("冷启动不应报错: %v", err)
	}
	if cp != models.DefaultCheckpoint() {
		t.Errorf("冷启动检查点 = %+v, want {0 1}", cp)
	}
}

func TestCheckpointStore_SaveOverwrites(t *testing.T) {
	store := NewCheckpointStore(filepath.Join(t.TempDir(), "state", "checkpoint.json"))

	for _, cp := range []models.Checkpoint{{LastPage: 1, GlobalIndex: 17}, {LastPage: 2, GlobalIndex: 33}} {
		if err := store.Save(cp); err != nil {
			t.Fatalf("保存失败: %v", err)
		}
	}

	got, err := store.Load()
	if err != nil {
		t.Fatalf("读取失败: %v", err)
	}
	if got != (models.Checkpoint{LastPage: 2, GlobalIndex: 33}) {
		t.Errorf("检查点 = %+v", got)
	}

	entries, err := os.ReadDir(filepath.Dir(store.Path()))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("目录中应只有检查点文件,实际 %d 个", len(entries))
	}
}

func TestCheckpointStore_Corrupt(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"非JSON", "not json"},
		{"截断", `{"last_page": 3,`},
		{"非法序号", `{"last_page": 3, "global_index": 0}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "checkpoint.json")
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatal(err)
			}

			_, err := NewCheckpointStore(path).Load()
			if !errors.Is(err, ErrCorrupt) {
				t.Errorf("损坏的检查点应返回ErrCorrupt, got %v", err)
			}
		})
	}
}

func TestCheckpointStore_SaveFailure(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	store := NewCheckpointStore(filepath.Join(blocker, "checkpoint.json"))
	if err := store.Save(models.Checkpoint{LastPage: 1, GlobalIndex: 2}); err == nil {
		t.Error("父路径为文件时保存应失败")
	}
}
