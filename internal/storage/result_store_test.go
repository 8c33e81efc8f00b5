package storage

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/RecoveryAshes/coursecrawl/internal/models"
)

func sampleRecords() []models.Record {
	return []models.Record{
		{
			Index:       1,
			Title:       models.Text("Accounting & Finance <Basics>"),
			Description: models.Text(`Learn "double entry", step by step`),
			Author:      models.Text("Jane Doe"),
			CourseURL:   models.Text("https://www.udemy.com/course/acc-101/"),
		},
		{
			Index: 2,
			Title: models.Text("Intro to Finance"),
		},
	}
}

func newTestResultStore(t *testing.T) *ResultStore {
	dir := t.TempDir()
	return NewResultStore(filepath.Join(dir, "courses.json"), filepath.Join(dir, "courses.csv"))
}

func TestResultStore_LoadMissing(t *testing.T) {
	records, err := newTestResultStore(t).Load()
	if err != nil {
		t.Fatalf("文件不存在时不应报错: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("应返回空集, got %d", len(records))
	}
}

func TestResultStore_RoundTrip(t *testing.T) {
	store := newTestResultStore(t)
	want := sampleRecords()

	if err := store.Save(want); err != nil {
		t.Fatalf("保存失败: %v", err)
	}

	got, err := store.Load()
	if err != nil {
		t.Fatalf("读取失败: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("JSON往返不一致:\n got %+v\nwant %+v", got, want)
	}

	tabular, err := store.LoadTabular()
	if err != nil {
		t.Fatalf("读取CSV失败: %v", err)
	}
	if !reflect.DeepEqual(models.Indices(tabular), models.Indices(got)) {
		t.Errorf("CSV与JSON序号集合不一致: %v vs %v", models.Indices(tabular), models.Indices(got))
	}
	if !reflect.DeepEqual(tabular, want) {
		t.Errorf("CSV往返不一致:\n got %+v\nwant %+v", tabular, want)
	}
}

func TestResultStore_JSONFormat(t *testing.T) {
	store := newTestResultStore(t)
	if err := store.Save(sampleRecords()); err != nil {
		t.Fatal(err)
	}

	jsonPath, _ := store.Paths()
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		t.Fatal(err)
	}
	content := string(data)

	if !strings.Contains(content, `"description": null`) {
		t.Error("缺失字段应序列化为null")
	}
	if !strings.Contains(content, "Accounting & Finance <Basics>") {
		t.Error("不应转义HTML字符")
	}
	if !strings.HasPrefix(content, "[\n  {\n    \"index\": 1,") {
		t.Errorf("JSON缩进格式不符: %q", content[:30])
	}
}

func TestResultStore_CSVFormat(t *testing.T) {
	store := newTestResultStore(t)
	if err := store.Save(sampleRecords()); err != nil {
		t.Fatal(err)
	}

	_, csvPath := store.Paths()
	data, err := os.ReadFile(csvPath)
	if err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimSuffix(string(data), "\r\n"), "\r\n")
	if len(lines) != 3 {
		t.Fatalf("CSV行数 = %d, want 3: %q", len(lines), data)
	}
	if lines[0] != "index,title,description,author,course_url" {
		t.Errorf("表头 = %q", lines[0])
	}
	if lines[1] != `1,Accounting & Finance <Basics>,"Learn ""double entry"", step by step",Jane Doe,https://www.udemy.com/course/acc-101/` {
		t.Errorf("第一行 = %q", lines[1])
	}
	if lines[2] != "2,Intro to Finance,,," {
		t.Errorf("缺失字段应为空单元格: %q", lines[2])
	}
}

func TestResultStore_EmptySnapshot(t *testing.T) {
	store := newTestResultStore(t)
	if err := store.Save(nil); err != nil {
		t.Fatal(err)
	}

	jsonPath, csvPath := store.Paths()
	data, _ := os.ReadFile(jsonPath)
	if strings.TrimSpace(string(data)) != "[]" {
		t.Errorf("空结果JSON = %q, want []", data)
	}
	data, _ = os.ReadFile(csvPath)
	if string(data) != "index,title,description,author,course_url\r\n" {
		t.Errorf("空结果CSV = %q", data)
	}
}

func TestResultStore_FullSnapshotOverwrite(t *testing.T) {
	store := newTestResultStore(t)
	records := sampleRecords()

	if err := store.Save(records[:1]); err != nil {
		t.Fatal(err)
	}
	if err := store.Save(records); err != nil {
		t.Fatal(err)
	}

	got, err := store.Load()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Errorf("覆盖写入后记录数 = %d, want 2", len(got))
	}
}

func TestResultStore_Corrupt(t *testing.T) {
	store := newTestResultStore(t)
	jsonPath, _ := store.Paths()
	if err := os.WriteFile(jsonPath, []byte("[{"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := store.Load(); !errors.Is(err, ErrCorrupt) {
		t.Errorf("损坏的结果文件应返回ErrCorrupt, got %v", err)
	}
}

func TestResultStore_SaveFailureCleansTemp(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "courses.json")
	csvDir := filepath.Join(dir, "csv-is-a-dir")
	if err := os.MkdirAll(csvDir, 0755); err != nil {
		t.Fatal(err)
	}

	store := NewResultStore(jsonPath, csvDir)
	if err := store.Save(sampleRecords()); err == nil {
		t.Fatal("CSV目标为目录时保存应失败")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("失败后不应残留临时文件: %s", e.Name())
		}
	}
	if _, err := os.Stat(jsonPath); err != nil {
		t.Errorf("JSON应已写入: %v", err)
	}
}

func TestResultStore_Count(t *testing.T) {
	store := newTestResultStore(t)

	n, err := store.Count()
	if err != nil || n != 0 {
		t.Fatalf("空存储 Count() = %d, %v", n, err)
	}

	if err := store.Save(sampleRecords()); err != nil {
		t.Fatal(err)
	}
	n, err = store.Count()
	if err != nil {
		t.Fatal(err)
	}
	if n != len(sampleRecords()) {
		t.Errorf("Count() = %d, want %d", n, len(sampleRecords()))
	}
}
