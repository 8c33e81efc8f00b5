package crawlers

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/RecoveryAshes/coursecrawl/internal/models"
	"github.com/RecoveryAshes/coursecrawl/internal/utils"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// ExtractResult 单页抽取结果
type ExtractResult struct {
	Records    []models.Record
	NextIndex  int // 下一条记录的序号
	Containers int // 匹配到的容器数
	Skipped    int // 标题与链接都缺失而被跳过的容器数
}

// RecordExtractor 列表页记录抽取器
// 选择器在构造时编译一次,抽取本身无状态
type RecordExtractor struct {
	container   cascadia.Selector
	title       cascadia.Selector
	description cascadia.Selector // 可为nil
	author      cascadia.Selector // 可为nil
	link        cascadia.Selector
	origin      *url.URL
}

// NewRecordExtractor 编译选择器并解析站点前缀
func NewRecordExtractor(selectors models.SelectorConfig, siteOrigin string) (*RecordExtractor, error) {
	compile := func(name, sel string, required bool) (cascadia.Selector, error) {
		if strings.TrimSpace(sel) == "" {
			if required {
				return nil, fmt.Errorf("选择器%s不能为空", name)
			}
			return nil, nil
		}
		compiled, err := cascadia.Compile(sel)
		if err != nil {
			return nil, fmt.Errorf("选择器%s无效 %q: %w", name, sel, err)
		}
		return compiled, nil
	}

	ex := &RecordExtractor{}
	var err error
	if ex.container, err = compile("container", selectors.Container, true); err != nil {
		return nil, err
	}
	if ex.title, err = compile("title", selectors.Title, true); err != nil {
		return nil, err
	}
	if ex.description, err = compile("description", selectors.Description, false); err != nil {
		return nil, err
	}
	if ex.author, err = compile("author", selectors.Author, false); err != nil {
		return nil, err
	}
	if ex.link, err = compile("link", selectors.Link, true); err != nil {
		return nil, err
	}

	origin, err := url.Parse(siteOrigin)
	if err != nil || origin.Scheme == "" || origin.Host == "" {
		return nil, fmt.Errorf("站点前缀无效: %q", siteOrigin)
	}
	ex.origin = origin
	return ex, nil
}

// Extract 从HTML中按文档顺序抽取记录,从next开始连续编号
func (ex *RecordExtractor) Extract(rawHTML string, next int) (ExtractResult, error) {
	root, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return ExtractResult{NextIndex: next}, fmt.Errorf("解析HTML失败: %w", err)
	}
	doc := goquery.NewDocumentFromNode(root)

	result := ExtractResult{NextIndex: next}
	containers := doc.FindMatcher(ex.container)
	result.Containers = containers.Length()
	result.Records = make([]models.Record, 0, result.Containers)

	containers.Each(func(i int, s *goquery.Selection) {
		title := ex.text(s, ex.title)
		courseURL := ex.permalink(s)

		if title == nil && courseURL == nil {
			result.Skipped++
			utils.Debugf("跳过第%d个容器: 标题与链接均缺失", i+1)
			return
		}

		result.Records = append(result.Records, models.Record{
			Index:       result.NextIndex,
			Title:       title,
			Description: ex.text(s, ex.description),
			Author:      ex.text(s, ex.author),
			CourseURL:   courseURL,
		})
		result.NextIndex++
	})

	return result, nil
}

// text 取第一个匹配元素的规范化文本,元素缺失或文本为空时返回nil
func (ex *RecordExtractor) text(s *goquery.Selection, sel cascadia.Selector) *string {
	if sel == nil {
		return nil
	}
	found := s.FindMatcher(sel).First()
	if found.Length() == 0 {
		return nil
	}
	return models.Text(utils.NormalizeText(found.Text()))
}

// permalink 取第一个链接元素的href并转为绝对URL
func (ex *RecordExtractor) permalink(s *goquery.Selection) *string {
	href, ok := s.FindMatcher(ex.link).First().Attr("href")
	if !ok {
		return nil
	}
	return models.Text(ex.resolve(href))
}

// resolve 相对链接拼接站点前缀,绝对http(s)链接保持不变,其余视为无法解析
func (ex *RecordExtractor) resolve(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if ref.IsAbs() {
		if ref.Scheme == "http" || ref.Scheme == "https" {
			return ref.String()
		}
		return ""
	}
	return ex.origin.ResolveReference(ref).String()
}
