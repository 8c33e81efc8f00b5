package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/RecoveryAshes/coursecrawl/internal/models"
	"github.com/RecoveryAshes/coursecrawl/internal/utils"
)

// CheckpointStore 检查点文件存取
type CheckpointStore struct {
	path string
}

// NewCheckpointStore 创建检查点存储
func NewCheckpointStore(path string) *CheckpointStore {
	return &CheckpointStore{path: path}
}

// Path 检查点文件路径
func (s *CheckpointStore) Path() string {
	return s.path
}

// Exists 检查点文件是否存在
func (s *CheckpointStore) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Load 读取检查点
// 文件不存在时返回冷启动检查点{0, 1};文件存在但无法解析时返回ErrCorrupt,
// 不会静默回退到默认值
func (s *CheckpointStore) Load() (models.Checkpoint, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		utils.Debugf("检查点不存在,从头开始: %s", s.path)
		return models.DefaultCheckpoint(), nil
	}
	if err != nil {
		return models.Checkpoint{}, fmt.Errorf("读取检查点失败: %w", err)
	}

	var cp models.Checkpoint
	if err := cp.FromJSON(data); err != nil {
		return models.Checkpoint{}, fmt.Errorf("%w: %s: %v", ErrCorrupt, s.path, err)
	}
	if err := cp.Validate(); err != nil {
		return models.Checkpoint{}, fmt.Errorf("%w: %s: %v", ErrCorrupt, s.path, err)
	}

	utils.Logger.Info().
		Int("last_page", cp.LastPage).
		Int("global_index", cp.GlobalIndex).
		Msg("加载检查点")
	return cp, nil
}

// Save 原子地覆盖写入检查点
func (s *CheckpointStore) Save(cp models.Checkpoint) error {
	data, err := cp.ToJSON()
	if err != nil {
		return fmt.Errorf("序列化检查点失败: %w", err)
	}

	err = writeFileAtomic(s.path, func(w io.Writer) error {
		_, err := w.Write(append(data, '\n'))
		return err
	})
	if err != nil {
		return fmt.Errorf("保存检查点失败: %w", err)
	}

	utils.Logger.Debug().
		Int("last_page", cp.LastPage).
		Int("global_index", cp.GlobalIndex).
		Msg("检查点已保存")
	return nil
}
