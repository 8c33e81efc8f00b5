package crawlers

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/RecoveryAshes/coursecrawl/internal/models"
	"github.com/RecoveryAshes/coursecrawl/internal/utils"
	"github.com/andybalholm/brotli"
	"github.com/gocolly/colly/v2"
)

// StaticRenderer 基于Colly的静态渲染器
// 不执行JavaScript,Scroll与WaitNetworkIdle为空操作
type StaticRenderer struct {
	collector *colly.Collector
	headers   http.Header
	html      string
	loaded    bool
	visitErr  error
	closed    bool
}

// NewStaticRenderer 创建静态渲染器
func NewStaticRenderer(config models.RendererConfig, headerProvider models.HeaderProvider) (*StaticRenderer, error) {
	headers := http.Header{}
	if headerProvider != nil {
		h, err := headerProvider.GetHeaders()
		if err != nil {
			return nil, fmt.Errorf("获取HTTP头部失败: %w", err)
		}
		headers = h.Clone()
	}
	if headers.Get("User-Agent") == "" && config.Browser.UserAgent != "" {
		headers.Set("User-Agent", config.Browser.UserAgent)
	}

	// 同步模式,Visit返回时回调已执行完毕
	c := colly.NewCollector(
		colly.AllowURLRevisit(),
	)
	c.SetRequestTimeout(config.NavigationTimeout)

	sr := &StaticRenderer{
		collector: c,
		headers:   headers,
	}

	c.OnRequest(func(r *colly.Request) {
		for name, values := range sr.headers {
			if len(values) > 0 {
				r.Headers.Set(name, values[0])
			}
		}
		utils.Debugf("访问: %s", r.URL.String())
	})

	c.OnResponse(func(r *colly.Response) {
		body, err := decompressResponse(r.Headers.Get("Content-Encoding"), r.Body)
		if err != nil {
			sr.visitErr = err
			return
		}
		sr.html = string(body)
		sr.loaded = true
	})

	c.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode > 0 {
			sr.visitErr = fmt.Errorf("HTTP %d: %w", r.StatusCode, err)
			return
		}
		sr.visitErr = err
	})

	utils.Infof("静态渲染模式: 不执行JavaScript")
	return sr, nil
}

// Navigate 同步抓取url
func (sr *StaticRenderer) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	if sr.closed {
		return models.ErrSessionClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	sr.collector.SetRequestTimeout(timeout)
	// 请求绑定到调用方的ctx,取消时正在进行的请求立即返回
	sr.collector.Context = ctx
	defer func() { sr.collector.Context = context.Background() }()
	sr.html = ""
	sr.loaded = false
	sr.visitErr = nil

	if err := sr.collector.Visit(url); err != nil && sr.visitErr == nil {
		sr.visitErr = err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("抓取页面被中断 [%s]: %w", url, err)
	}
	if err := sr.visitErr; err != nil {
		if isTimeout(err) {
			return fmt.Errorf("抓取页面超时 [%s]: %w: %v", url, models.ErrRenderTimeout, err)
		}
		return categorizeError(err, "抓取页面失败")
	}
	if !sr.loaded {
		return fmt.Errorf("抓取页面失败 [%s]: 未收到响应", url)
	}
	return nil
}

// Scroll 静态页面无需滚动
func (sr *StaticRenderer) Scroll(ctx context.Context, dx, dy float64) error {
	if sr.closed {
		return models.ErrSessionClosed
	}
	return ctx.Err()
}

// WaitNetworkIdle 静态页面响应即完整内容
func (sr *StaticRenderer) WaitNetworkIdle(ctx context.Context, timeout time.Duration) error {
	if sr.closed {
		return models.ErrSessionClosed
	}
	return ctx.Err()
}

// Content 返回最近一次抓取的HTML
func (sr *StaticRenderer) Content(ctx context.Context) (string, error) {
	if sr.closed {
		return "", models.ErrSessionClosed
	}
	if !sr.loaded {
		return "", fmt.Errorf("尚未加载任何页面")
	}
	return sr.html, nil
}

// Close 释放会话
func (sr *StaticRenderer) Close() error {
	sr.closed = true
	return nil
}

// isTimeout 判断net/http客户端超时
func isTimeout(err error) bool {
	type timeout interface{ Timeout() bool }
	for e := err; e != nil; {
		if t, ok := e.(timeout); ok && t.Timeout() {
			return true
		}
		u, ok := e.(interface{ Unwrap() error })
		if !ok {
			break
		}
		e = u.Unwrap()
	}
	return strings.Contains(err.Error(), "Client.Timeout exceeded")
}

// decompressResponse 根据Content-Encoding头部解压响应体
// 支持 gzip, deflate, br (Brotli) 三种压缩格式
// Colly已透明解压的gzip响应原样返回
func decompressResponse(contentEncoding string, body []byte) ([]byte, error) {
	encoding := strings.ToLower(strings.TrimSpace(contentEncoding))

	switch encoding {
	case "gzip":
		if len(body) < 2 || body[0] != 0x1f || body[1] != 0x8b {
			return body, nil
		}
		reader, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("gzip解压失败: %w", err)
		}
		defer reader.Close()

		decompressed, err := io.ReadAll(reader)
		if err != nil {
			return nil, fmt.Errorf("gzip读取失败: %w", err)
		}
		return decompressed, nil

	case "deflate":
		reader := flate.NewReader(bytes.NewReader(body))
		defer reader.Close()

		decompressed, err := io.ReadAll(reader)
		if err != nil {
			return nil, fmt.Errorf("deflate读取失败: %w", err)
		}
		return decompressed, nil

	case "br":
		decompressed, err := io.ReadAll(brotli.NewReader(bytes.NewReader(body)))
		if err != nil {
			return nil, fmt.Errorf("brotli读取失败: %w", err)
		}
		return decompressed, nil

	case "", "identity":
		return body, nil

	default:
		utils.Warnf("未知的Content-Encoding: %s", contentEncoding)
		return body, nil
	}
}
