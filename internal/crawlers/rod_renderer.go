package crawlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/RecoveryAshes/coursecrawl/internal/models"
	"github.com/RecoveryAshes/coursecrawl/internal/utils"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/ysmood/gson"
)

// 无请求持续该时长视为网络空闲
const defaultIdleWindow = 500 * time.Millisecond

// RodRenderer 基于go-rod的浏览器渲染器
type RodRenderer struct {
	config   models.RendererConfig
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
	closed   bool

	// 导航完成后开始记录请求,由WaitNetworkIdle消费
	idleWait   func()
	idleCancel context.CancelFunc
}

// NewRodRenderer 启动浏览器并打开一个配置好客户端身份的标签页
// 任何一步失败都会清理已启动的浏览器进程
func NewRodRenderer(ctx context.Context, config models.RendererConfig, headerProvider models.HeaderProvider) (*RodRenderer, error) {
	r := &RodRenderer{config: config}

	if err := r.launchBrowser(ctx); err != nil {
		r.Close()
		return nil, err
	}

	page, err := r.openPage()
	if err != nil {
		r.Close()
		return nil, err
	}
	r.page = page

	if err := r.applyIdentity(headerProvider); err != nil {
		r.Close()
		return nil, err
	}

	utils.Logger.Info().
		Bool("headless", config.Browser.Headless).
		Bool("stealth", config.Browser.Stealth).
		Int("viewport_width", config.Browser.ViewportWidth).
		Int("viewport_height", config.Browser.ViewportHeight).
		Str("locale", config.Browser.Locale).
		Msg("浏览器会话已打开")
	return r, nil
}

// launchBrowser 启动浏览器
func (r *RodRenderer) launchBrowser(ctx context.Context) error {
	b := r.config.Browser

	l := launcher.New().
		Context(ctx).
		Headless(b.Headless).
		Set(flags.Flag("disable-blink-features"), "AutomationControlled").
		Set(flags.Flag("start-maximized"))
	if b.NoSandbox {
		l = l.NoSandbox(true)
	}
	if b.BrowserBin != "" {
		l = l.Bin(b.BrowserBin)
	}
	r.launcher = l

	controlURL, err := l.Launch()
	if err != nil {
		return fmt.Errorf("启动浏览器失败: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return fmt.Errorf("连接浏览器失败: %w", err)
	}
	r.browser = browser

	utils.Debugf("浏览器已启动: %s", controlURL)
	return nil
}

// openPage 创建标签页,启用stealth时注入反检测脚本
func (r *RodRenderer) openPage() (*rod.Page, error) {
	if r.config.Browser.Stealth {
		page, err := stealth.Page(r.browser)
		if err != nil {
			return nil, fmt.Errorf("创建stealth标签页失败: %w", err)
		}
		return page, nil
	}

	page, err := r.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("创建标签页失败: %w", err)
	}
	return page, nil
}

// applyIdentity 设置User-Agent、语言、视口以及额外头部
func (r *RodRenderer) applyIdentity(headerProvider models.HeaderProvider) error {
	b := r.config.Browser

	headers := http.Header{}
	if headerProvider != nil {
		h, err := headerProvider.GetHeaders()
		if err != nil {
			return fmt.Errorf("获取HTTP头部失败: %w", err)
		}
		headers = h.Clone()
	}

	userAgent := headers.Get("User-Agent")
	if userAgent == "" {
		userAgent = b.UserAgent
	}
	acceptLanguage := headers.Get("Accept-Language")
	headers.Del("User-Agent")
	headers.Del("Accept-Language")

	if userAgent != "" || acceptLanguage != "" {
		if err := r.page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
			UserAgent:      userAgent,
			AcceptLanguage: acceptLanguage,
		}); err != nil {
			return fmt.Errorf("设置User-Agent失败: %w", err)
		}
	}

	if b.Locale != "" {
		if err := (proto.EmulationSetLocaleOverride{Locale: b.Locale}).Call(r.page); err != nil {
			utils.Warnf("设置语言环境失败 [%s]: %v", b.Locale, err)
		}
	}

	if b.ViewportWidth > 0 && b.ViewportHeight > 0 {
		if err := r.page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width:             b.ViewportWidth,
			Height:            b.ViewportHeight,
			DeviceScaleFactor: 1,
		}); err != nil {
			return fmt.Errorf("设置视口失败: %w", err)
		}
	}

	if len(headers) > 0 {
		if err := (proto.NetworkEnable{}).Call(r.page); err != nil {
			return fmt.Errorf("启用网络域失败: %w", err)
		}
		if err := (proto.NetworkSetExtraHTTPHeaders{Headers: toNetworkHeaders(headers)}).Call(r.page); err != nil {
			return fmt.Errorf("设置额外头部失败: %w", err)
		}
	}
	return nil
}

// toNetworkHeaders 转换为 NetworkSetExtraHTTPHeaders 需要的 map[string]gson.JSON
func toNetworkHeaders(headers http.Header) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for name, values := range headers {
		if len(values) > 0 {
			m[name] = gson.New(values[0])
		}
	}
	return m
}

func (r *RodRenderer) activePage() (*rod.Page, error) {
	if r.closed || r.page == nil {
		return nil, models.ErrSessionClosed
	}
	return r.page, nil
}

// Navigate 导航并等待load事件
func (r *RodRenderer) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	page, err := r.activePage()
	if err != nil {
		return err
	}

	p := page.Context(ctx).Timeout(timeout)
	defer p.CancelTimeout()

	if err := p.Navigate(url); err != nil {
		return categorizeError(err, "导航失败")
	}
	if err := p.WaitLoad(); err != nil {
		return categorizeError(err, "等待页面加载失败")
	}

	// 滚动触发的懒加载请求从这里开始计入空闲判断
	r.armIdle(ctx, page)
	return nil
}

func (r *RodRenderer) idleWindow() time.Duration {
	if r.config.IdleWindow > 0 {
		return r.config.IdleWindow
	}
	return defaultIdleWindow
}

// armIdle 订阅请求事件,替换上一页未消费的等待
func (r *RodRenderer) armIdle(ctx context.Context, page *rod.Page) {
	r.disarmIdle()
	armCtx, cancel := context.WithCancel(ctx)
	r.idleWait = page.Context(armCtx).WaitRequestIdle(r.idleWindow(), nil, nil, nil)
	r.idleCancel = cancel
}

func (r *RodRenderer) disarmIdle() {
	if r.idleCancel != nil {
		r.idleCancel()
	}
	r.idleWait = nil
	r.idleCancel = nil
}

// Scroll 鼠标滚轮滚动
func (r *RodRenderer) Scroll(ctx context.Context, dx, dy float64) error {
	page, err := r.activePage()
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := page.Mouse.Scroll(dx, dy, 1); err != nil {
		return categorizeError(err, "滚动失败")
	}
	return nil
}

// WaitNetworkIdle 等待自导航完成以来没有进行中的请求
// 未经Navigate直接调用时从此刻开始记录
func (r *RodRenderer) WaitNetworkIdle(ctx context.Context, timeout time.Duration) error {
	page, err := r.activePage()
	if err != nil {
		return err
	}

	if r.idleWait == nil {
		r.armIdle(ctx, page)
	}
	wait, cancel := r.idleWait, r.idleCancel
	r.idleWait, r.idleCancel = nil, nil
	defer cancel()

	return waitIdle(ctx, wait, timeout)
}

// waitIdle 在timeout内等待wait返回
// 超时或取消后wait所在goroutine由调用方取消其context结束
func waitIdle(ctx context.Context, wait func(), timeout time.Duration) error {
	done := make(chan struct{})
	go func() {
		wait()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		// 取消同样会让wait返回
		return ctx.Err()
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return fmt.Errorf("等待网络空闲超过%s: %w", timeout, models.ErrRenderTimeout)
	}
}

// Content 返回当前HTML
func (r *RodRenderer) Content(ctx context.Context) (string, error) {
	page, err := r.activePage()
	if err != nil {
		return "", err
	}
	html, err := page.Context(ctx).HTML()
	if err != nil {
		return "", categorizeError(err, "读取页面HTML失败")
	}
	return html, nil
}

// Close 关闭标签页与浏览器并清理用户数据目录
func (r *RodRenderer) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	r.disarmIdle()

	var errs []error
	if r.page != nil {
		if err := r.page.Close(); err != nil {
			errs = append(errs, fmt.Errorf("关闭标签页失败: %w", err))
		}
	}
	if r.browser != nil {
		if err := r.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("关闭浏览器失败: %w", err))
		}
	}
	if r.launcher != nil {
		r.launcher.Kill()
		r.launcher.Cleanup()
	}

	utils.Debugf("浏览器会话已关闭")
	return errors.Join(errs...)
}
