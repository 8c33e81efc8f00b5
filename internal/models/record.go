package models

import (
	"encoding/json"
	"strconv"
)

// CSVHeader 表格输出的固定列顺序
var CSVHeader = []string{"index", "title", "description", "author", "course_url"}

// Record 课程记录
// 可选字段使用指针表示: nil 表示缺失,JSON 中序列化为 null,CSV 中为空单元格
type Record struct {
	Index       int     `json:"index"`       // 全局序号(从1开始,跨运行连续)
	Title       *string `json:"title"`       // 课程标题
	Description *string `json:"description"` // 课程简介
	Author      *string `json:"author"`      // 讲师
	CourseURL   *string `json:"course_url"`  // 课程绝对链接
}

// Text 构造可选文本字段,空字符串视为缺失
func Text(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Value 读取可选字段,缺失时返回空字符串
func Value(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// CSVRow 按CSVHeader的列顺序展开记录
func (r Record) CSVRow() []string {
	return []string{
		strconv.Itoa(r.Index),
		Value(r.Title),
		Value(r.Description),
		Value(r.Author),
		Value(r.CourseURL),
	}
}

// ToJSON 序列化为JSON
func (r *Record) ToJSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// Indices 返回记录集的序号列表(保持原顺序)
func Indices(records []Record) []int {
	out := make([]int, len(records))
	for i, r := range records {
		out[i] = r.Index
	}
	return out
}
