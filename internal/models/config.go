package models

import (
	"fmt"
	"strings"
	"time"
)

// RendererMode 页面渲染方式
type RendererMode string

const (
	RendererBrowser RendererMode = "browser" // go-rod 驱动的 Chromium(默认)
	RendererStatic  RendererMode = "static"  // colly 直接抓取HTML,不执行JS
)

// SelectorConfig 列表页CSS选择器
type SelectorConfig struct {
	Container   string `mapstructure:"container" json:"container"`     // 列表项容器
	Title       string `mapstructure:"title" json:"title"`             // 标题
	Description string `mapstructure:"description" json:"description"` // 简介
	Author      string `mapstructure:"author" json:"author"`           // 讲师
	Link        string `mapstructure:"link" json:"link"`               // 相对链接(取href)
}

// ListingConfig 列表页配置
type ListingConfig struct {
	URL        string         `mapstructure:"url" json:"url"`                 // 列表URL模板,可包含{page}占位符
	PageParam  string         `mapstructure:"page_param" json:"page_param"`   // 无占位符时使用的页码查询参数
	SiteOrigin string         `mapstructure:"site_origin" json:"site_origin"` // 相对链接前缀
	MaxPages   int            `mapstructure:"max_pages" json:"max_pages"`     // 最大页码(包含)
	Selectors  SelectorConfig `mapstructure:"selectors" json:"selectors"`
}

// OutputConfig 输出配置
type OutputConfig struct {
	StructuredPath string `mapstructure:"structured_path" json:"structured_path"` // JSON结果文件
	TabularPath    string `mapstructure:"tabular_path" json:"tabular_path"`       // CSV结果文件
	CheckpointPath string `mapstructure:"checkpoint_path" json:"checkpoint_path"` // 检查点文件
	ReportDir      string `mapstructure:"report_dir" json:"report_dir"`           // 运行报告目录
	ProgressBar    bool   `mapstructure:"progress_bar" json:"progress_bar"`       // 是否显示进度条
}

// BrowserConfig 浏览器会话配置(客户端身份)
type BrowserConfig struct {
	Headless       bool              `mapstructure:"headless" json:"headless"`
	NoSandbox      bool              `mapstructure:"no_sandbox" json:"no_sandbox"`
	BrowserBin     string            `mapstructure:"browser_bin" json:"browser_bin"`
	Stealth        bool              `mapstructure:"stealth" json:"stealth"`
	UserAgent      string            `mapstructure:"user_agent" json:"user_agent"`
	ViewportWidth  int               `mapstructure:"viewport_width" json:"viewport_width"`
	ViewportHeight int               `mapstructure:"viewport_height" json:"viewport_height"`
	Locale         string            `mapstructure:"locale" json:"locale"`
	ExtraHeaders   map[string]string `mapstructure:"extra_headers" json:"-"`
}

// RendererConfig 渲染配置
type RendererConfig struct {
	Mode               RendererMode  `mapstructure:"mode" json:"mode"`
	NavigationTimeout  time.Duration `mapstructure:"navigation_timeout" json:"navigation_timeout"`
	NetworkIdleTimeout time.Duration `mapstructure:"network_idle_timeout" json:"network_idle_timeout"`
	IdleWindow         time.Duration `mapstructure:"idle_window" json:"idle_window"` // 无请求持续多久视为空闲
	ScrollSteps        int           `mapstructure:"scroll_steps" json:"scroll_steps"`
	ScrollDelta        float64       `mapstructure:"scroll_delta" json:"scroll_delta"` // 每次滚动的像素
	Browser            BrowserConfig `mapstructure:"browser" json:"browser"`
}

// DelayRange 随机延迟区间
type DelayRange struct {
	Min time.Duration `mapstructure:"min" json:"min"`
	Max time.Duration `mapstructure:"max" json:"max"`
}

// PacingConfig 节奏控制配置
type PacingConfig struct {
	Enabled bool       `mapstructure:"enabled" json:"enabled"`
	Scroll  DelayRange `mapstructure:"scroll" json:"scroll"` // 页内滚动间隔
	Page    DelayRange `mapstructure:"page" json:"page"`     // 页间间隔
}

// ResourceConfig 资源监控配置
type ResourceConfig struct {
	Enabled            bool    `mapstructure:"enabled" json:"enabled"`
	MinAvailableMemory int     `mapstructure:"min_available_memory" json:"min_available_memory"` // MB
	CPULoadThreshold   float64 `mapstructure:"cpu_load_threshold" json:"cpu_load_threshold"`     // %
}

// ScrapeConfig 一次运行的完整配置
// 在启动时构造一次,之后按值传递,运行期间不再修改
type ScrapeConfig struct {
	Listing  ListingConfig  `json:"listing"`
	Output   OutputConfig   `json:"output"`
	Renderer RendererConfig `json:"renderer"`
	Pacing   PacingConfig   `json:"pacing"`
	Resource ResourceConfig `json:"resource"`
}

// Validate 验证配置
func (c *ScrapeConfig) Validate() error {
	if err := ValidateURL(strings.ReplaceAll(c.Listing.URL, "{page}", "1")); err != nil {
		return fmt.Errorf("listing.url无效: %w", err)
	}
	if !strings.Contains(c.Listing.URL, "{page}") && c.Listing.PageParam == "" {
		return fmt.Errorf("listing.url不含{page}占位符时必须设置listing.page_param")
	}
	if err := ValidateURL(c.Listing.SiteOrigin); err != nil {
		return fmt.Errorf("listing.site_origin无效: %w", err)
	}
	if c.Listing.MaxPages < 1 {
		return fmt.Errorf("listing.max_pages必须大于0,当前值: %d", c.Listing.MaxPages)
	}
	sel := c.Listing.Selectors
	if sel.Container == "" || sel.Title == "" || sel.Link == "" {
		return fmt.Errorf("选择器container/title/link不能为空")
	}

	if c.Output.StructuredPath == "" || c.Output.TabularPath == "" || c.Output.CheckpointPath == "" {
		return fmt.Errorf("输出文件路径不能为空")
	}

	switch c.Renderer.Mode {
	case RendererBrowser, RendererStatic:
	default:
		return fmt.Errorf("无效的渲染模式: %s (有效值: browser, static)", c.Renderer.Mode)
	}
	if c.Renderer.NavigationTimeout <= 0 || c.Renderer.NetworkIdleTimeout <= 0 {
		return fmt.Errorf("导航超时与网络空闲超时必须大于0")
	}
	if c.Renderer.ScrollSteps < 0 || c.Renderer.ScrollSteps > 50 {
		return fmt.Errorf("滚动次数必须在0-50之间,当前值: %d", c.Renderer.ScrollSteps)
	}

	for name, r := range map[string]DelayRange{"pacing.scroll": c.Pacing.Scroll, "pacing.page": c.Pacing.Page} {
		if r.Min < 0 || r.Max < r.Min {
			return fmt.Errorf("%s区间无效: [%s, %s]", name, r.Min, r.Max)
		}
	}

	if c.Resource.MinAvailableMemory < 0 {
		return fmt.Errorf("resource.min_available_memory不能为负数: %d", c.Resource.MinAvailableMemory)
	}
	if c.Resource.CPULoadThreshold < 0 || c.Resource.CPULoadThreshold > 100 {
		return fmt.Errorf("resource.cpu_load_threshold必须在0-100之间,当前值: %.1f", c.Resource.CPULoadThreshold)
	}
	return nil
}
