package crawlers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/RecoveryAshes/coursecrawl/internal/models"
)

// Renderer 页面渲染器
// 一个Renderer对应一个会话,由驱动器在运行开始时打开、在任何退出路径上关闭
type Renderer interface {
	// Navigate 打开url并等待页面加载,超过timeout返回ErrRenderTimeout
	Navigate(ctx context.Context, url string, timeout time.Duration) error

	// Scroll 滚动页面,用于触发懒加载内容
	Scroll(ctx context.Context, dx, dy float64) error

	// WaitNetworkIdle 等待网络空闲,超过timeout返回ErrRenderTimeout
	WaitNetworkIdle(ctx context.Context, timeout time.Duration) error

	// Content 返回当前页面的HTML快照
	Content(ctx context.Context) (string, error)

	// Close 释放会话,可重复调用
	Close() error
}

// categorizeError 把底层错误归类
// 外部取消保持context.Canceled,便于驱动器识别为中断
func categorizeError(err error, msg string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s: %w: %v", msg, models.ErrRenderTimeout, err)
	default:
		return fmt.Errorf("%s: %w", msg, err)
	}
}
