package main

import (
	"context"
	"fmt"
	"time"

	"github.com/RecoveryAshes/coursecrawl/internal/core"
	"github.com/RecoveryAshes/coursecrawl/internal/crawlers"
	"github.com/RecoveryAshes/coursecrawl/internal/models"
	"github.com/RecoveryAshes/coursecrawl/internal/storage"
	"github.com/RecoveryAshes/coursecrawl/internal/utils"
)

// pipeline 一次运行所需的全部组件
type pipeline struct {
	driver      *core.Driver
	reporter    *utils.Reporter
	results     *storage.ResultStore
	checkpoints *storage.CheckpointStore
}

// buildPipeline 根据配置组装驱动器
func buildPipeline(sc models.ScrapeConfig, runID string) (*pipeline, error) {
	headerManager := core.NewHeaderManager(sc.Renderer.Mode, sc.Renderer.Browser)
	if _, err := headerManager.GetHeaders(); err != nil {
		return nil, fmt.Errorf("HTTP头部配置无效: %w", err)
	}

	extractor, err := crawlers.NewRecordExtractor(sc.Listing.Selectors, sc.Listing.SiteOrigin)
	if err != nil {
		return nil, fmt.Errorf("创建记录抽取器失败: %w", err)
	}

	results := storage.NewResultStore(sc.Output.StructuredPath, sc.Output.TabularPath)
	checkpoints := storage.NewCheckpointStore(sc.Output.CheckpointPath)

	var pacer core.Pacer = core.NoopPacer{}
	if sc.Pacing.Enabled {
		pacer = core.NewRandomPacer()
	} else {
		utils.Warn("节奏控制已关闭,页面之间不会等待")
	}

	opts := core.Options{
		Config:       sc,
		OpenRenderer: rendererOpener(sc.Renderer, headerManager),
		Extractor:    extractor,
		Results:      results,
		Checkpoints:  checkpoints,
		Pacer:        pacer,
		Monitor:      crawlers.NewResourceMonitor(sc.Resource),
		RunID:        runID,
	}

	if sc.Output.ProgressBar {
		bar := utils.NewProgressBar(sc.Listing.MaxPages, "分页抓取")
		// 续跑时从检查点位置开始显示;检查点损坏由驱动器报告
		if cp, err := checkpoints.Load(); err == nil && cp.LastPage > 0 {
			bar.Set(min(cp.LastPage, sc.Listing.MaxPages))
		}
		opts.Progress = bar
	}

	driver, err := core.NewDriver(opts)
	if err != nil {
		return nil, err
	}

	return &pipeline{
		driver:      driver,
		reporter:    utils.NewReporter(sc.Output.ReportDir),
		results:     results,
		checkpoints: checkpoints,
	}, nil
}

// rendererOpener 按渲染模式选择实现
func rendererOpener(config models.RendererConfig, headers models.HeaderProvider) core.RendererOpener {
	switch config.Mode {
	case models.RendererStatic:
		return func(ctx context.Context) (crawlers.Renderer, error) {
			r, err := crawlers.NewStaticRenderer(config, headers)
			if err != nil {
				return nil, err
			}
			return r, nil
		}
	default:
		return func(ctx context.Context) (crawlers.Renderer, error) {
			r, err := crawlers.NewRodRenderer(ctx, config, headers)
			if err != nil {
				return nil, err
			}
			return r, nil
		}
	}
}

// exitCode 计算进程退出码
// 默认中止也以0退出,strict模式下中止返回1
func exitCode(report *models.FinalReport, strict bool) int {
	if strict && report.Aborted() {
		return 1
	}
	return 0
}

// startupReport 驱动器启动之前失败时的报告
// 尽量读出检查点与结果文件中的已有进度,读取失败时保持为0
func startupReport(out models.OutputConfig, runID string, cause error) *models.FinalReport {
	now := time.Now()
	report := &models.FinalReport{
		RunID:     runID,
		StartTime: now,
		EndTime:   now,
		Pages:     make([]models.PageOutcome, 0),
	}

	if out.CheckpointPath != "" {
		if cp, err := storage.NewCheckpointStore(out.CheckpointPath).Load(); err == nil {
			report.StartPage = cp.NextPage()
			report.LastSuccessfulPage = cp.LastPage
		}
	}
	if out.StructuredPath != "" {
		if n, err := storage.NewResultStore(out.StructuredPath, out.TabularPath).Count(); err == nil {
			report.TotalRecords = n
		}
	}

	report.Fail(models.NewPipelineError(models.FailureConfig, 0, "启动失败", cause))
	return report
}
