package core

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRandomPacer_Duration(t *testing.T) {
	low, high := 1500*time.Millisecond, 3*time.Second

	t.Run("真实随机源落在区间内", func(t *testing.T) {
		p := NewRandomPacer()
		for i := 0; i < 1000; i++ {
			d := p.Duration(low, high)
			if d < low || d > high {
				t.Fatalf("Duration() = %s, 超出区间 [%s, %s]", d, low, high)
			}
		}
	})

	t.Run("区间端点可取到", func(t *testing.T) {
		p := &RandomPacer{rand: func(n int64) int64 { return 0 }}
		if d := p.Duration(low, high); d != low {
			t.Errorf("最小值 = %s, want %s", d, low)
		}

		p = &RandomPacer{rand: func(n int64) int64 { return n - 1 }}
		if d := p.Duration(low, high); d != high {
			t.Errorf("最大值 = %s, want %s", d, high)
		}
	})

	t.Run("退化区间", func(t *testing.T) {
		p := &RandomPacer{rand: func(n int64) int64 {
			t.Fatal("退化区间不应调用随机源")
			return 0
		}}
		if d := p.Duration(time.Second, time.Second); d != time.Second {
			t.Errorf("Duration() = %s, want 1s", d)
		}
	})
}

func TestRandomPacer_Delay(t *testing.T) {
	t.Run("等待指定时长", func(t *testing.T) {
		p := &RandomPacer{rand: func(n int64) int64 { return 0 }}
		start := time.Now()
		if err := p.Delay(context.Background(), 20*time.Millisecond, 40*time.Millisecond); err != nil {
			t.Fatalf("Delay() error = %v", err)
		}
		if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
			t.Errorf("等待时间过短: %s", elapsed)
		}
	})

	t.Run("取消时提前返回", func(t *testing.T) {
		p := NewRandomPacer()
		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			time.Sleep(10 * time.Millisecond)
			cancel()
		}()

		start := time.Now()
		err := p.Delay(ctx, time.Hour, 2*time.Hour)
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Delay() error = %v, want context.Canceled", err)
		}
		if elapsed := time.Since(start); elapsed > 5*time.Second {
			t.Errorf("取消后未及时返回: %s", elapsed)
		}
	})
}

func TestNoopPacer(t *testing.T) {
	if err := (NoopPacer{}).Delay(context.Background(), time.Hour, time.Hour); err != nil {
		t.Errorf("Delay() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := (NoopPacer{}).Delay(ctx, 0, 0); !errors.Is(err, context.Canceled) {
		t.Errorf("已取消的ctx应返回context.Canceled, got %v", err)
	}
}
