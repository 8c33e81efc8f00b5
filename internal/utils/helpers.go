package utils

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// PagePlaceholder 列表URL模板中的页码占位符
const PagePlaceholder = "{page}"

// NormalizeText 折叠空白字符
// 连续的空格、制表符、换行合并为一个空格,并去掉首尾空白
func NormalizeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// BuildPageURL 根据模板构造第page页的URL
// 模板包含{page}时直接替换,否则把页码写入param查询参数(已存在则覆盖)
func BuildPageURL(template, param string, page int) (string, error) {
	if page < 1 {
		return "", fmt.Errorf("页码必须大于0: %d", page)
	}

	if strings.Contains(template, PagePlaceholder) {
		return strings.ReplaceAll(template, PagePlaceholder, strconv.Itoa(page)), nil
	}

	if param == "" {
		return "", fmt.Errorf("URL模板缺少%s占位符且未指定页码参数", PagePlaceholder)
	}

	parsed, err := url.Parse(template)
	if err != nil {
		return "", fmt.Errorf("URL格式无效: %w", err)
	}

	query := parsed.Query()
	query.Set(param, strconv.Itoa(page))
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

// ShortenURL 截断过长的URL用于日志与进度描述
func ShortenURL(rawURL string, max int) string {
	if max <= 3 || len(rawURL) <= max {
		return rawURL
	}
	return rawURL[:max-3] + "..."
}
