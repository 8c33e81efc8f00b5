package models

import (
	"errors"
	"fmt"
)

// FailureKind 致命错误分类
type FailureKind string

const (
	FailurePageRender  FailureKind = "page_render" // 导航/超时/渲染器崩溃
	FailurePersistence FailureKind = "persistence" // 结果文件或检查点写入失败
	FailureState       FailureKind = "state"       // 持久化状态损坏或不一致
	FailureInterrupted FailureKind = "interrupted" // 外部中断(信号/取消)
	FailureConfig      FailureKind = "config"      // 启动前配置或组件组装失败
)

// 渲染器错误
var (
	ErrRenderTimeout = errors.New("页面渲染超时")
	ErrSessionClosed = errors.New("渲染会话已关闭")
)

// PipelineError 流水线致命错误
// 携带错误分类与页码,支持errors.Unwrap
type PipelineError struct {
	Kind    FailureKind
	Page    int // 出错页码,0表示与具体页面无关
	Message string
	Err     error
}

// Error 实现error接口
func (e *PipelineError) Error() string {
	prefix := string(e.Kind)
	if e.Page > 0 {
		prefix = fmt.Sprintf("%s [第%d页]", e.Kind, e.Page)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

// Unwrap 支持errors.Unwrap
func (e *PipelineError) Unwrap() error {
	return e.Err
}

// NewPipelineError 创建PipelineError
func NewPipelineError(kind FailureKind, page int, message string, err error) *PipelineError {
	return &PipelineError{Kind: kind, Page: page, Message: message, Err: err}
}

// KindOf 提取错误分类,非PipelineError返回空字符串
func KindOf(err error) FailureKind {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}
