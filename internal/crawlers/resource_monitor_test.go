package crawlers

import (
	"errors"
	"testing"

	"github.com/RecoveryAshes/coursecrawl/internal/models"
	"github.com/shirou/gopsutil/v3/mem"
)

func fakeMonitor(config models.ResourceConfig, availableMB uint64, cpuPct float64) *ResourceMonitor {
	rm := NewResourceMonitor(config)
	rm.virtualMemory = func() (*mem.VirtualMemoryStat, error) {
		return &mem.VirtualMemoryStat{Total: 8192 * mb, Available: availableMB * mb}, nil
	}
	rm.cpuPercent = func() ([]float64, error) {
		return []float64{cpuPct}, nil
	}
	return rm
}

func TestResourceMonitor_Check(t *testing.T) {
	config := models.ResourceConfig{Enabled: true, MinAvailableMemory: 512, CPULoadThreshold: 90}

	tests := []struct {
		name        string
		availableMB uint64
		cpu         float64
		wantOK      bool
	}{
		{"资源充足", 4096, 20, true},
		{"内存不足", 256, 20, false},
		{"CPU过载", 4096, 95, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, reason := fakeMonitor(config, tt.availableMB, tt.cpu).Check(1)
			if ok != tt.wantOK {
				t.Errorf("Check() = %v (%s), want %v", ok, reason, tt.wantOK)
			}
			if !ok && reason == "" {
				t.Error("资源不足时应给出原因")
			}
		})
	}
}

func TestResourceMonitor_Disabled(t *testing.T) {
	ok, _ := fakeMonitor(models.ResourceConfig{Enabled: false, MinAvailableMemory: 512}, 1, 100).Check(1)
	if !ok {
		t.Error("禁用时总是返回true")
	}
}

func TestResourceMonitor_SampleError(t *testing.T) {
	rm := NewResourceMonitor(models.ResourceConfig{Enabled: true, MinAvailableMemory: 512})
	rm.virtualMemory = func() (*mem.VirtualMemoryStat, error) {
		return nil, errors.New("no /proc")
	}

	if _, err := rm.Sample(); err == nil {
		t.Error("采样失败应返回错误")
	}
	if ok, _ := rm.Check(1); !ok {
		t.Error("采样失败不应阻断流程")
	}
}
