package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/RecoveryAshes/coursecrawl/internal/models"
	"github.com/RecoveryAshes/coursecrawl/internal/utils"
	"github.com/spf13/viper"
)

const (
	// DefaultConfigFile init-config 默认写入位置
	DefaultConfigFile = "configs/config.yaml"

	// MaxConfigFileSize 配置文件最大大小 (1MB)
	MaxConfigFileSize = 1 * 1024 * 1024

	// EnvPrefix 环境变量前缀, 如 COURSECRAWL_LISTING_MAX_PAGES=5
	EnvPrefix = "COURSECRAWL"
)

//go:embed config_template.yaml
var defaultTemplate string

// Config 应用程序配置
type Config struct {
	Listing  models.ListingConfig  `mapstructure:"listing"`
	Output   models.OutputConfig   `mapstructure:"output"`
	Renderer models.RendererConfig `mapstructure:"renderer"`
	Pacing   models.PacingConfig   `mapstructure:"pacing"`
	Resource models.ResourceConfig `mapstructure:"resource"`
	Logging  LoggingConfig         `mapstructure:"logging"`
	Run      RunConfig             `mapstructure:"run"`

	// path 实际使用的配置文件,为空表示全部使用默认值
	path string
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level    string         `mapstructure:"level"`
	LogDir   string         `mapstructure:"log_dir"`
	NoColor  bool           `mapstructure:"no_color"`
	Rotation RotationConfig `mapstructure:"rotation"`
}

// RotationConfig 日志轮转配置
type RotationConfig struct {
	MaxSize    int  `mapstructure:"max_size"`
	MaxBackups int  `mapstructure:"max_backups"`
	MaxAge     int  `mapstructure:"max_age"`
	Compress   bool `mapstructure:"compress"`
}

// RunConfig 进程级行为
type RunConfig struct {
	// StrictExitCode 为true时中止的运行以退出码1结束
	StrictExitCode bool `mapstructure:"strict_exit_code"`
}

// LoadConfig 加载配置文件
// configPath为空时依次搜索 ./configs、. 与 ~/.coursecrawl 下的 config.yaml,
// 找不到配置文件时全部使用默认值
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		if err := validateFileSize(configPath); err != nil {
			return nil, err
		}
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".coursecrawl"))
		}
	}

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, &models.ConfigError{FilePath: v.ConfigFileUsed(), Cause: err}
		}
		utils.Debugf("未找到配置文件,使用默认配置")
	} else if configPath == "" {
		if err := validateFileSize(v.ConfigFileUsed()); err != nil {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, &models.ConfigError{
			FilePath: v.ConfigFileUsed(),
			Cause:    fmt.Errorf("配置绑定失败: %w", err),
		}
	}
	config.path = v.ConfigFileUsed()

	return &config, nil
}

// validateFileSize 验证配置文件大小是否在限制内
func validateFileSize(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return &models.ConfigError{FilePath: path, Cause: err}
	}
	if info.Size() > MaxConfigFileSize {
		return &models.ConfigError{
			FilePath: path,
			Cause: fmt.Errorf("配置文件过大: %d 字节 (最大 %d 字节)",
				info.Size(), MaxConfigFileSize),
		}
	}
	return nil
}

// setDefaults 设置默认配置值
func setDefaults(v *viper.Viper) {
	// 列表页
	v.SetDefault("listing.url", "https://www.udemy.com/courses/search/?q=finance+courses")
	v.SetDefault("listing.page_param", "p")
	v.SetDefault("listing.site_origin", "https://www.udemy.com")
	v.SetDefault("listing.max_pages", 417)
	v.SetDefault("listing.selectors.container", "div.content-grid-item-module--item--MDYzd")
	v.SetDefault("listing.selectors.title", ".card-title-module--clipped--DPJnT")
	v.SetDefault("listing.selectors.description", `span[data-purpose="safely-set-inner-html:course-card:course-headline"]`)
	v.SetDefault("listing.selectors.author", `span[data-purpose="safely-set-inner-html:course-card:visible-instructors"]`)
	v.SetDefault("listing.selectors.link", `a[href^="/course/"]`)

	// 输出
	v.SetDefault("output.structured_path", "courses_all_pages.json")
	v.SetDefault("output.tabular_path", "courses_all_pages.csv")
	v.SetDefault("output.checkpoint_path", "checkpoint.json")
	v.SetDefault("output.report_dir", "reports")
	v.SetDefault("output.progress_bar", true)

	// 渲染
	v.SetDefault("renderer.mode", string(models.RendererBrowser))
	v.SetDefault("renderer.navigation_timeout", "60s")
	v.SetDefault("renderer.network_idle_timeout", "30s")
	v.SetDefault("renderer.idle_window", "500ms")
	v.SetDefault("renderer.scroll_steps", 4)
	v.SetDefault("renderer.scroll_delta", 2500)
	v.SetDefault("renderer.browser.headless", true)
	v.SetDefault("renderer.browser.no_sandbox", false)
	v.SetDefault("renderer.browser.browser_bin", "")
	v.SetDefault("renderer.browser.stealth", false)
	v.SetDefault("renderer.browser.user_agent", "")
	v.SetDefault("renderer.browser.viewport_width", 1920)
	v.SetDefault("renderer.browser.viewport_height", 1080)
	v.SetDefault("renderer.browser.locale", "en-US")
	v.SetDefault("renderer.browser.extra_headers", map[string]string{})

	// 节奏控制
	v.SetDefault("pacing.enabled", true)
	v.SetDefault("pacing.scroll.min", "1500ms")
	v.SetDefault("pacing.scroll.max", "3s")
	v.SetDefault("pacing.page.min", "2s")
	v.SetDefault("pacing.page.max", "4s")

	// 资源监控
	v.SetDefault("resource.enabled", true)
	v.SetDefault("resource.min_available_memory", 512)
	v.SetDefault("resource.cpu_load_threshold", 90.0)

	// 日志
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.log_dir", "logs")
	v.SetDefault("logging.no_color", false)
	v.SetDefault("logging.rotation.max_size", 10)
	v.SetDefault("logging.rotation.max_backups", 3)
	v.SetDefault("logging.rotation.max_age", 28)
	v.SetDefault("logging.rotation.compress", true)

	v.SetDefault("run.strict_exit_code", false)
}

// Path 实际加载的配置文件路径
func (c *Config) Path() string {
	return c.path
}

// ScrapeConfig 提取流水线配置并验证
func (c *Config) ScrapeConfig() (models.ScrapeConfig, error) {
	sc := models.ScrapeConfig{
		Listing:  c.Listing,
		Output:   c.Output,
		Renderer: c.Renderer,
		Pacing:   c.Pacing,
		Resource: c.Resource,
	}
	if err := sc.Validate(); err != nil {
		return models.ScrapeConfig{}, &models.ConfigError{FilePath: c.path, Cause: err}
	}
	return sc, nil
}

// DefaultOutput 默认输出路径,配置文件无法加载时用于读取已有进度
func DefaultOutput() models.OutputConfig {
	v := viper.New()
	setDefaults(v)
	var out models.OutputConfig
	if err := v.UnmarshalKey("output", &out); err != nil {
		return models.OutputConfig{}
	}
	return out
}

// LogConfig 转换为日志配置
func (c *Config) LogConfig() utils.LogConfig {
	return utils.LogConfig{
		Level:      c.Logging.Level,
		LogDir:     c.Logging.LogDir,
		MaxSize:    c.Logging.Rotation.MaxSize,
		MaxBackups: c.Logging.Rotation.MaxBackups,
		MaxAge:     c.Logging.Rotation.MaxAge,
		Compress:   c.Logging.Rotation.Compress,
		NoColor:    c.Logging.NoColor,
	}
}

// EnsureConfigExists 确保配置文件存在,如不存在则生成模板
// 返回是否新建了文件
func EnsureConfigExists(path string) (bool, error) {
	if path == "" {
		path = DefaultConfigFile
	}
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("无法读取配置文件信息 [%s]: %w", path, err)
	}

	if err := WriteTemplate(path); err != nil {
		return false, err
	}
	return true, nil
}

// WriteTemplate 写入配置模板,已存在的文件会被覆盖
func WriteTemplate(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("无法创建配置目录 [%s]: %w", dir, err)
	}
	if err := os.WriteFile(path, []byte(defaultTemplate), 0644); err != nil {
		return fmt.Errorf("无法生成配置文件 [%s]: %w", path, err)
	}
	return nil
}

// Template 返回内置配置模板
func Template() string {
	return defaultTemplate
}
