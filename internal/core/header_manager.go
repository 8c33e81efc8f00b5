package core

import (
	"net/http"
	"strings"

	"github.com/RecoveryAshes/coursecrawl/internal/models"
	"github.com/RecoveryAshes/coursecrawl/internal/utils"
)

const (
	// DefaultUserAgent 默认User-Agent
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) " +
		"Chrome/120.0.0.0 Safari/537.36"

	// DefaultLocale 默认语言环境
	DefaultLocale = "en-US"
)

// HeaderManager 管理客户端身份头部
// 实现 models.HeaderProvider 接口
type HeaderManager struct {
	// defaults 由浏览器配置推导的身份头部
	defaults http.Header

	// config 配置文件 renderer.browser.extra_headers
	config http.Header

	validator *utils.HeaderValidator
	redactor  *utils.HeaderRedactor

	// validated 标记合并结果是否已通过验证
	validated bool
}

// NewHeaderManager 创建头部管理器
// 静态模式额外声明Accept与Accept-Encoding,浏览器模式由Chromium自行协商
func NewHeaderManager(mode models.RendererMode, browser models.BrowserConfig) *HeaderManager {
	config := make(http.Header, len(browser.ExtraHeaders))
	for name, value := range browser.ExtraHeaders {
		config.Set(name, value)
	}

	return &HeaderManager{
		defaults:  defaultHeaders(mode, browser),
		config:    config,
		validator: utils.NewHeaderValidator(),
		redactor:  utils.NewHeaderRedactor(),
	}
}

// defaultHeaders 返回默认身份头部
func defaultHeaders(mode models.RendererMode, browser models.BrowserConfig) http.Header {
	userAgent := browser.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	locale := browser.Locale
	if locale == "" {
		locale = DefaultLocale
	}

	h := http.Header{}
	h.Set("User-Agent", userAgent)
	h.Set("Accept-Language", AcceptLanguage(locale))
	if mode == models.RendererStatic {
		h.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		h.Set("Accept-Encoding", "gzip, deflate, br")
	}
	return h
}

// AcceptLanguage 由语言环境生成Accept-Language值
// "en-US" -> "en-US,en;q=0.9"
func AcceptLanguage(locale string) string {
	lang, _, found := strings.Cut(locale, "-")
	if !found || lang == "" {
		return locale
	}
	return locale + "," + lang + ";q=0.9"
}

// Validate 验证所有头部的合法性
// 验证顺序: 默认 → 配置
func (hm *HeaderManager) Validate() error {
	if err := hm.validator.Validate(hm.defaults); err != nil {
		utils.Errorf("默认头部验证失败: %v", err)
		return err
	}
	if err := hm.validator.Validate(hm.config); err != nil {
		utils.Errorf("配置文件头部验证失败: %v", err)
		return err
	}

	hm.validated = true
	utils.Debugf("所有HTTP头部验证通过")
	return nil
}

// GetMergedHeaders 按优先级合并头部 (default < config)
func (hm *HeaderManager) GetMergedHeaders() http.Header {
	result := make(http.Header, len(hm.defaults)+len(hm.config))
	for name, values := range hm.defaults {
		result[name] = append([]string(nil), values...)
	}
	for name, values := range hm.config {
		result[name] = append([]string(nil), values...)
	}
	return result
}

// GetSafeHeaders 返回脱敏后的头部 (用于日志)
func (hm *HeaderManager) GetSafeHeaders() string {
	return hm.redactor.RedactToString(hm.GetMergedHeaders())
}

// GetHeaders 实现 HeaderProvider 接口
func (hm *HeaderManager) GetHeaders() (http.Header, error) {
	if !hm.validated {
		if err := hm.Validate(); err != nil {
			return nil, err
		}
		utils.Debugf("客户端身份头部: %s", hm.GetSafeHeaders())
	}
	return hm.GetMergedHeaders(), nil
}
