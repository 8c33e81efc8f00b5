package models

import (
	"encoding/json"
	"fmt"
)

// Checkpoint 断点续爬标记
// 不变量: GlobalIndex == 1 + 所有运行累计接受的记录数
type Checkpoint struct {
	LastPage    int `json:"last_page"`    // 最后一个完整处理的页码
	GlobalIndex int `json:"global_index"` // 下一条记录将使用的序号
}

// DefaultCheckpoint 冷启动时的检查点
func DefaultCheckpoint() Checkpoint {
	return Checkpoint{LastPage: 0, GlobalIndex: 1}
}

// NextPage 恢复运行时的起始页
func (c Checkpoint) NextPage() int {
	return c.LastPage + 1
}

// RecordCount 检查点所对应的已接受记录数
func (c Checkpoint) RecordCount() int {
	return c.GlobalIndex - 1
}

// Validate 验证检查点字段
func (c Checkpoint) Validate() error {
	if c.LastPage < 0 {
		return fmt.Errorf("last_page不能为负数: %d", c.LastPage)
	}
	if c.GlobalIndex < 1 {
		return fmt.Errorf("global_index必须为正整数: %d", c.GlobalIndex)
	}
	return nil
}

// ToJSON 序列化为JSON
func (c *Checkpoint) ToJSON() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}

// FromJSON 从JSON反序列化
func (c *Checkpoint) FromJSON(data []byte) error {
	return json.Unmarshal(data, c)
}
