package models

import (
	"encoding/json"
	"time"
)

// RunStatus 运行结果
type RunStatus string

const (
	RunStatusCompleted RunStatus = "completed" // 所有页面处理完成
	RunStatusNoop      RunStatus = "noop"      // 检查点已越过最大页数,无需处理
	RunStatusAborted   RunStatus = "aborted"   // 致命错误中止
)

// PageStatus 单页处理结果
type PageStatus string

const (
	PageStatusSuccess PageStatus = "success"
	PageStatusFailed  PageStatus = "failed"
)

// PageOutcome 单页处理结果
// 由驱动器根据Status决定是否继续
type PageOutcome struct {
	Page        int         `json:"page"`
	URL         string      `json:"url"`
	Status      PageStatus  `json:"status"`
	Containers  int         `json:"containers"`          // 页面中匹配到的容器数
	Accepted    int         `json:"accepted"`            // 接受的记录数
	Skipped     int         `json:"skipped"`             // 跳过的容器数
	GlobalIndex int         `json:"global_index"`        // 处理后的下一个序号
	Duration    float64     `json:"duration"`            // 秒
	FailureKind FailureKind `json:"failure_kind,omitempty"`
	Error       string      `json:"error,omitempty"`

	Err error `json:"-"`
}

// Failed 是否为致命失败
func (o PageOutcome) Failed() bool {
	return o.Status == PageStatusFailed
}

// FinalReport 运行结束报告,在任何退出路径上都会生成
type FinalReport struct {
	RunID              string    `json:"run_id"`
	Status             RunStatus `json:"status"`
	StartPage          int       `json:"start_page"`
	MaxPages           int       `json:"max_pages"`
	LastSuccessfulPage int       `json:"last_successful_page"`
	TotalRecords       int       `json:"total_records"`
	RecordsAdded       int       `json:"records_added"`
	PagesProcessed     int       `json:"pages_processed"`

	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Duration  float64   `json:"duration"` // 秒

	FailureKind FailureKind   `json:"failure_kind,omitempty"`
	Error       string        `json:"error,omitempty"`
	Pages       []PageOutcome `json:"pages"`

	Err error `json:"-"`
}

// Aborted 运行是否因致命错误中止
func (r *FinalReport) Aborted() bool {
	return r.Status == RunStatusAborted
}

// Fail 以致命错误结束报告
func (r *FinalReport) Fail(err error) {
	r.Status = RunStatusAborted
	r.Err = err
	r.Error = err.Error()
	r.FailureKind = KindOf(err)
}

// ToJSON 序列化为JSON
func (r *FinalReport) ToJSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}
