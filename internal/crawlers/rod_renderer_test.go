package crawlers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/RecoveryAshes/coursecrawl/internal/models"
)

func TestWaitIdle(t *testing.T) {
	tests := []struct {
		name    string
		wait    func(ctx context.Context) func()
		cancel  bool
		wantErr error
	}{
		{"立即空闲", func(ctx context.Context) func() {
			return func() {}
		}, false, nil},
		{"稍后空闲", func(ctx context.Context) func() {
			return func() { time.Sleep(20 * time.Millisecond) }
		}, false, nil},
		{"一直有请求", func(ctx context.Context) func() {
			return func() { <-ctx.Done() }
		}, false, models.ErrRenderTimeout},
		{"等待中取消", func(ctx context.Context) func() {
			return func() { <-ctx.Done() }
		}, true, context.Canceled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			// 与armIdle相同,wait在其context取消后返回
			waitCtx, stopWait := context.WithCancel(ctx)
			defer stopWait()

			if tt.cancel {
				time.AfterFunc(30*time.Millisecond, cancel)
			}

			start := time.Now()
			err := waitIdle(ctx, tt.wait(waitCtx), 200*time.Millisecond)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("waitIdle() error = %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("waitIdle() error = %v, want %v", err, tt.wantErr)
			}
			if elapsed := time.Since(start); elapsed > time.Second {
				t.Errorf("waitIdle耗时%s", elapsed)
			}
		})
	}
}

func TestRodRenderer_ClosedSession(t *testing.T) {
	armed, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := &RodRenderer{idleWait: func() {}, idleCancel: cancel}
	if err := r.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if armed.Err() == nil {
		t.Error("Close应取消未消费的空闲等待")
	}
	if err := r.Close(); err != nil {
		t.Errorf("重复Close不应报错: %v", err)
	}

	tests := []struct {
		name string
		call func() error
	}{
		{"导航", func() error { return r.Navigate(context.Background(), "https://example.com", time.Second) }},
		{"滚动", func() error { return r.Scroll(context.Background(), 0, 100) }},
		{"等待空闲", func() error { return r.WaitNetworkIdle(context.Background(), time.Second) }},
		{"读取内容", func() error { _, err := r.Content(context.Background()); return err }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); !errors.Is(err, models.ErrSessionClosed) {
				t.Errorf("关闭后应返回ErrSessionClosed, got %v", err)
			}
		})
	}
}
