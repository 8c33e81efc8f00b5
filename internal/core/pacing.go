package core

import (
	"context"
	"math/rand/v2"
	"time"
)

// Pacer 节奏控制器
// 只影响请求时序,与正确性无关,测试中可以替换为NoopPacer
type Pacer interface {
	// Delay 阻塞[low, high]区间内的随机时长,ctx取消时提前返回ctx.Err()
	Delay(ctx context.Context, low, high time.Duration) error
}

// RandomPacer 均匀分布随机延迟
type RandomPacer struct {
	rand func(n int64) int64
}

// NewRandomPacer 创建随机节奏控制器
func NewRandomPacer() *RandomPacer {
	return &RandomPacer{rand: rand.Int64N}
}

// Duration 计算本次延迟时长
func (p *RandomPacer) Duration(low, high time.Duration) time.Duration {
	if high <= low {
		return low
	}
	return low + time.Duration(p.rand(int64(high-low)+1))
}

// Delay 实现Pacer
func (p *RandomPacer) Delay(ctx context.Context, low, high time.Duration) error {
	d := p.Duration(low, high)
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// NoopPacer 不延迟
type NoopPacer struct{}

// Delay 实现Pacer
func (NoopPacer) Delay(ctx context.Context, low, high time.Duration) error {
	return ctx.Err()
}
