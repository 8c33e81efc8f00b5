package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/RecoveryAshes/coursecrawl/internal/crawlers"
	"github.com/RecoveryAshes/coursecrawl/internal/models"
	"github.com/RecoveryAshes/coursecrawl/internal/utils"
	"github.com/rs/zerolog"
)

// RendererOpener 打开渲染会话,每次运行只调用一次
type RendererOpener func(ctx context.Context) (crawlers.Renderer, error)

// Extractor 记录抽取
type Extractor interface {
	Extract(html string, next int) (crawlers.ExtractResult, error)
}

// ResultStore 结果持久化
type ResultStore interface {
	Load() ([]models.Record, error)
	Save(records []models.Record) error
}

// CheckpointStore 检查点持久化
type CheckpointStore interface {
	Load() (models.Checkpoint, error)
	Save(cp models.Checkpoint) error
}

// ResourceChecker 每页开始前的资源检查
type ResourceChecker interface {
	Check(page int) (ok bool, reason string)
}

// ProgressTracker 进度显示,*progressbar.ProgressBar满足该接口
type ProgressTracker interface {
	Add(n int) error
	Describe(description string)
	Finish() error
}

// Options 驱动器依赖
type Options struct {
	Config       models.ScrapeConfig
	OpenRenderer RendererOpener
	Extractor    Extractor
	Results      ResultStore
	Checkpoints  CheckpointStore
	Pacer        Pacer           // 为nil时不延迟
	Monitor      ResourceChecker // 可选
	Progress     ProgressTracker // 可选
	RunID        string
}

// Driver 分页驱动器
// 单goroutine顺序处理页面,运行期间独占记录集与检查点
type Driver struct {
	opts Options
	cfg  models.ScrapeConfig
	log  zerolog.Logger

	records    []models.Record
	checkpoint models.Checkpoint
}

// NewDriver 创建分页驱动器
func NewDriver(opts Options) (*Driver, error) {
	switch {
	case opts.OpenRenderer == nil:
		return nil, fmt.Errorf("缺少渲染器")
	case opts.Extractor == nil:
		return nil, fmt.Errorf("缺少记录抽取器")
	case opts.Results == nil:
		return nil, fmt.Errorf("缺少结果存储")
	case opts.Checkpoints == nil:
		return nil, fmt.Errorf("缺少检查点存储")
	}
	if opts.Pacer == nil {
		opts.Pacer = NoopPacer{}
	}
	if opts.RunID == "" {
		opts.RunID = models.NewRunID()
	}

	return &Driver{
		opts: opts,
		cfg:  opts.Config,
		log:  utils.WithRun(opts.RunID),
	}, nil
}

// Run 从检查点之后的第一页开始处理直到最大页数
// 任何退出路径都返回报告;遇到致命错误立即中止,不重试也不跳页
func (d *Driver) Run(ctx context.Context) (report *models.FinalReport) {
	report = &models.FinalReport{
		RunID:     d.opts.RunID,
		Status:    models.RunStatusCompleted,
		MaxPages:  d.cfg.Listing.MaxPages,
		StartTime: time.Now(),
		Pages:     make([]models.PageOutcome, 0),
	}
	defer func() {
		if r := recover(); r != nil {
			report.Fail(models.NewPipelineError(models.FailurePageRender, 0, "运行时panic", fmt.Errorf("%v", r)))
		}
		report.EndTime = time.Now()
		report.Duration = report.EndTime.Sub(report.StartTime).Seconds()
		if d.opts.Progress != nil {
			d.opts.Progress.Finish()
		}
		d.logReport(report)
	}()

	if err := d.restore(); err != nil {
		report.Fail(err)
		return report
	}
	report.StartPage = d.checkpoint.NextPage()
	report.LastSuccessfulPage = d.checkpoint.LastPage
	report.TotalRecords = len(d.records)

	if report.StartPage > d.cfg.Listing.MaxPages {
		report.Status = models.RunStatusNoop
		d.log.Info().
			Int("last_page", d.checkpoint.LastPage).
			Int("max_pages", d.cfg.Listing.MaxPages).
			Msg("检查点已覆盖全部页面,无需处理")
		return report
	}

	d.log.Info().
		Int("start_page", report.StartPage).
		Int("max_pages", d.cfg.Listing.MaxPages).
		Int("global_index", d.checkpoint.GlobalIndex).
		Int("records", len(d.records)).
		Msg("开始分页抓取")

	renderer, err := d.openRenderer(ctx)
	if err != nil {
		report.Fail(err)
		return report
	}
	defer func() {
		if err := renderer.Close(); err != nil {
			d.log.Warn().Err(err).Msg("关闭渲染器失败")
		}
	}()

	for page := report.StartPage; page <= d.cfg.Listing.MaxPages; page++ {
		if err := ctx.Err(); err != nil {
			report.Fail(models.NewPipelineError(models.FailureInterrupted, page, "运行被中断", err))
			return report
		}
		if d.opts.Monitor != nil {
			d.opts.Monitor.Check(page)
		}

		outcome := d.processPage(ctx, renderer, page)
		report.Pages = append(report.Pages, outcome)
		report.PagesProcessed++

		if outcome.Failed() {
			report.Fail(outcome.Err)
			return report
		}

		report.LastSuccessfulPage = page
		report.TotalRecords = len(d.records)
		report.RecordsAdded += outcome.Accepted
		if d.opts.Progress != nil {
			d.opts.Progress.Describe(fmt.Sprintf("第%d页", page))
			d.opts.Progress.Add(1)
		}

		if page < d.cfg.Listing.MaxPages {
			if err := d.opts.Pacer.Delay(ctx, d.cfg.Pacing.Page.Min, d.cfg.Pacing.Page.Max); err != nil {
				report.Fail(models.NewPipelineError(models.FailureInterrupted, page, "页间等待被中断", err))
				return report
			}
		}
	}

	return report
}

// restore 加载检查点与已保存记录并校验二者一致
func (d *Driver) restore() error {
	cp, err := d.opts.Checkpoints.Load()
	if err != nil {
		return models.NewPipelineError(models.FailureState, 0, "读取检查点失败", err)
	}

	records, err := d.opts.Results.Load()
	if err != nil {
		return models.NewPipelineError(models.FailureState, 0, "读取已保存结果失败", err)
	}

	kept, dropped, err := reconcile(records, cp)
	if err != nil {
		return models.NewPipelineError(models.FailureState, 0, "结果文件与检查点不一致", err)
	}
	if dropped > 0 {
		d.log.Warn().
			Int("dropped", dropped).
			Int("global_index", cp.GlobalIndex).
			Msg("丢弃检查点之后的记录,将重新抓取对应页面")
	}
	if missing := cp.RecordCount() - len(kept); missing > 0 {
		d.log.Warn().
			Int("missing", missing).
			Int("last_page", cp.LastPage).
			Msg("结果文件缺少检查点之前的记录,从检查点继续,已有序号不会重新分配")
	}

	d.checkpoint = cp
	d.records = kept
	return nil
}

// reconcile 以检查点为准对齐已保存记录
// 序号不小于GlobalIndex的记录来自检查点未写入的页面,直接丢弃。
// 剩余记录为空时从检查点继续;否则必须是以GlobalIndex-1结尾的连续序号
func reconcile(records []models.Record, cp models.Checkpoint) ([]models.Record, int, error) {
	kept := make([]models.Record, 0, len(records))
	for _, r := range records {
		if r.Index < cp.GlobalIndex {
			kept = append(kept, r)
		}
	}
	dropped := len(records) - len(kept)

	if len(kept) == 0 {
		return kept, dropped, nil
	}

	first := kept[0].Index
	if first < 1 {
		return nil, dropped, fmt.Errorf("记录序号必须为正整数: %d", first)
	}
	for i, r := range kept {
		if r.Index != first+i {
			return nil, dropped, fmt.Errorf("第%d条记录序号为%d,期望%d", i+1, r.Index, first+i)
		}
	}
	if last := kept[len(kept)-1].Index; last != cp.RecordCount() {
		return nil, dropped, fmt.Errorf("检查点记录数%d,结果文件最后序号为%d", cp.RecordCount(), last)
	}
	return kept, dropped, nil
}

// openRenderer 打开渲染会话,panic视为渲染失败
func (d *Driver) openRenderer(ctx context.Context) (renderer crawlers.Renderer, err error) {
	defer func() {
		if r := recover(); r != nil {
			renderer = nil
			err = models.NewPipelineError(models.FailurePageRender, 0, "打开渲染器panic", fmt.Errorf("%v", r))
		}
	}()

	renderer, err = d.opts.OpenRenderer(ctx)
	if err != nil {
		return nil, d.renderFailure(ctx, 0, "打开渲染器失败", err)
	}
	return renderer, nil
}

// processPage 处理单页: 渲染 → 抽取 → 保存结果 → 保存检查点
// 只有两次保存都成功后才更新内存状态
func (d *Driver) processPage(ctx context.Context, renderer crawlers.Renderer, page int) (outcome models.PageOutcome) {
	start := time.Now()
	outcome = models.PageOutcome{Page: page, Status: models.PageStatusSuccess}

	fail := func(err *models.PipelineError) models.PageOutcome {
		outcome.Status = models.PageStatusFailed
		outcome.FailureKind = err.Kind
		outcome.Error = err.Error()
		outcome.Err = err
		outcome.Duration = time.Since(start).Seconds()
		d.log.Error().
			Int("page", page).
			Str("kind", string(err.Kind)).
			Err(err.Err).
			Msg(err.Message)
		return outcome
	}

	defer func() {
		if r := recover(); r != nil {
			outcome = fail(models.NewPipelineError(models.FailurePageRender, page, "渲染器panic", fmt.Errorf("%v", r)))
		}
	}()

	pageURL, err := utils.BuildPageURL(d.cfg.Listing.URL, d.cfg.Listing.PageParam, page)
	if err != nil {
		return fail(models.NewPipelineError(models.FailurePageRender, page, "构造页面URL失败", err))
	}
	outcome.URL = pageURL

	html, err := d.render(ctx, renderer, pageURL)
	if err != nil {
		return fail(d.renderFailure(ctx, page, "渲染页面失败", err))
	}

	result, err := d.opts.Extractor.Extract(html, d.checkpoint.GlobalIndex)
	if err != nil {
		return fail(models.NewPipelineError(models.FailurePageRender, page, "解析页面失败", err))
	}
	outcome.Containers = result.Containers
	outcome.Accepted = len(result.Records)
	outcome.Skipped = result.Skipped

	all := make([]models.Record, 0, len(d.records)+len(result.Records))
	all = append(all, d.records...)
	all = append(all, result.Records...)

	if err := d.opts.Results.Save(all); err != nil {
		return fail(models.NewPipelineError(models.FailurePersistence, page, "保存结果失败", err))
	}

	next := models.Checkpoint{LastPage: page, GlobalIndex: result.NextIndex}
	if err := d.opts.Checkpoints.Save(next); err != nil {
		return fail(models.NewPipelineError(models.FailurePersistence, page, "保存检查点失败", err))
	}

	d.records = all
	d.checkpoint = next

	outcome.GlobalIndex = next.GlobalIndex
	outcome.Duration = time.Since(start).Seconds()

	d.log.Info().
		Int("page", page).
		Int("containers", result.Containers).
		Int("accepted", outcome.Accepted).
		Int("skipped", result.Skipped).
		Int("records", len(all)).
		Float64("duration", outcome.Duration).
		Msg("页面处理完成")
	return outcome
}

// render 导航、分步滚动、等待网络空闲后取HTML
func (d *Driver) render(ctx context.Context, renderer crawlers.Renderer, pageURL string) (string, error) {
	rc := d.cfg.Renderer
	scroll := d.cfg.Pacing.Scroll

	d.log.Debug().Str("url", utils.ShortenURL(pageURL, 120)).Msg("打开页面")
	if err := renderer.Navigate(ctx, pageURL, rc.NavigationTimeout); err != nil {
		return "", err
	}
	if err := d.opts.Pacer.Delay(ctx, scroll.Min, scroll.Max); err != nil {
		return "", err
	}

	for i := 0; i < rc.ScrollSteps; i++ {
		if err := renderer.Scroll(ctx, 0, rc.ScrollDelta); err != nil {
			return "", err
		}
		if err := d.opts.Pacer.Delay(ctx, scroll.Min, scroll.Max); err != nil {
			return "", err
		}
	}

	if err := renderer.WaitNetworkIdle(ctx, rc.NetworkIdleTimeout); err != nil {
		return "", err
	}
	return renderer.Content(ctx)
}

// renderFailure 区分外部中断与渲染失败
func (d *Driver) renderFailure(ctx context.Context, page int, msg string, err error) *models.PipelineError {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return models.NewPipelineError(models.FailureInterrupted, page, "运行被中断", err)
	}
	return models.NewPipelineError(models.FailurePageRender, page, msg, err)
}

func (d *Driver) logReport(report *models.FinalReport) {
	event := d.log.Info()
	if report.Aborted() {
		event = d.log.Error().Str("failure_kind", string(report.FailureKind)).Str("error", report.Error)
	}
	event.
		Str("status", string(report.Status)).
		Int("last_successful_page", report.LastSuccessfulPage).
		Int("total_records", report.TotalRecords).
		Int("records_added", report.RecordsAdded).
		Float64("duration", report.Duration).
		Msg("运行结束")
}
