package crawlers

import (
	"fmt"

	"github.com/RecoveryAshes/coursecrawl/internal/models"
	"github.com/RecoveryAshes/coursecrawl/internal/utils"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

const mb = 1024 * 1024

// ResourceSample 一次资源采样
type ResourceSample struct {
	TotalMemory     uint64  // 系统总内存(字节)
	AvailableMemory uint64  // 可用内存(字节)
	CPUPercent      float64 // 自上次采样以来的CPU使用率(%)
}

// ResourceMonitor 系统资源监控器
// 浏览器渲染是内存与CPU的主要消耗者,每页开始前采样一次
type ResourceMonitor struct {
	config models.ResourceConfig

	virtualMemory func() (*mem.VirtualMemoryStat, error)
	cpuPercent    func() ([]float64, error)
}

// NewResourceMonitor 创建资源监控器
func NewResourceMonitor(config models.ResourceConfig) *ResourceMonitor {
	return &ResourceMonitor{
		config:        config,
		virtualMemory: mem.VirtualMemory,
		cpuPercent: func() ([]float64, error) {
			// interval为0时与上一次调用比较,不阻塞
			return cpu.Percent(0, false)
		},
	}
}

// Sample 采样内存与CPU
func (rm *ResourceMonitor) Sample() (ResourceSample, error) {
	vm, err := rm.virtualMemory()
	if err != nil {
		return ResourceSample{}, fmt.Errorf("获取系统内存失败: %w", err)
	}

	sample := ResourceSample{
		TotalMemory:     vm.Total,
		AvailableMemory: vm.Available,
	}

	percents, err := rm.cpuPercent()
	if err != nil {
		utils.Debugf("获取CPU使用率失败: %v", err)
	} else if len(percents) > 0 {
		sample.CPUPercent = percents[0]
	}
	return sample, nil
}

// Check 检查资源是否充足,不足时返回原因
// 资源紧张只输出警告,不阻断流程
func (rm *ResourceMonitor) Check(page int) (ok bool, reason string) {
	if !rm.config.Enabled {
		return true, ""
	}

	sample, err := rm.Sample()
	if err != nil {
		utils.Warnf("资源采样失败: %v", err)
		return true, ""
	}

	utils.Logger.Debug().
		Int("page", page).
		Uint64("available_mb", sample.AvailableMemory/mb).
		Uint64("total_mb", sample.TotalMemory/mb).
		Float64("cpu_percent", sample.CPUPercent).
		Msg("资源采样")

	if floor := uint64(rm.config.MinAvailableMemory) * mb; floor > 0 && sample.AvailableMemory < floor {
		reason = fmt.Sprintf("可用内存不足: %dMB < %dMB", sample.AvailableMemory/mb, rm.config.MinAvailableMemory)
	} else if rm.config.CPULoadThreshold > 0 && sample.CPUPercent > rm.config.CPULoadThreshold {
		reason = fmt.Sprintf("CPU负载过高: %.1f%% > %.1f%%", sample.CPUPercent, rm.config.CPULoadThreshold)
	}

	if reason != "" {
		utils.Logger.Warn().Int("page", page).Msg(reason)
		return false, reason
	}
	return true, ""
}
