package models

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"有效的HTTP URL", "http://example.com", false},
		{"有效的HTTPS URL", "https://example.com", false},
		{"带查询参数的URL", "https://www.udemy.com/courses/search/?q=finance+courses", false},
		{"无效的协议", "ftp://example.com", true},
		{"无效的URL", "not a url", true},
		{"空URL", "", true},
		{"无协议", "example.com", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateURL() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRecord_JSONKeepsNulls(t *testing.T) {
	r := Record{Index: 7, Title: Text("Intro to Finance")}

	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("序列化失败: %v", err)
	}

	want := `{"index":7,"title":"Intro to Finance","description":null,"author":null,"course_url":null}`
	if string(data) != want {
		t.Errorf("JSON = %s, want %s", data, want)
	}

	var back Record
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("反序列化失败: %v", err)
	}
	if back.CourseURL != nil || back.Description != nil {
		t.Error("null字段应反序列化为nil")
	}
	if Value(back.Title) != "Intro to Finance" {
		t.Errorf("Title = %q", Value(back.Title))
	}
}

func TestRecord_CSVRow(t *testing.T) {
	r := Record{
		Index:     3,
		Title:     Text("Accounting 101"),
		Author:    Text("Jane Doe"),
		CourseURL: Text("https://www.udemy.com/course/acc-101/"),
	}

	row := r.CSVRow()
	if len(row) != len(CSVHeader) {
		t.Fatalf("列数 = %d, want %d", len(row), len(CSVHeader))
	}
	want := []string{"3", "Accounting 101", "", "Jane Doe", "https://www.udemy.com/course/acc-101/"}
	for i := range want {
		if row[i] != want[i] {
			t.Errorf("第%d列 = %q, want %q", i, row[i], want[i])
		}
	}
}

func TestText(t *testing.T) {
	if Text("") != nil {
		t.Error("空字符串应视为缺失")
	}
	if p := Text("x"); p == nil || *p != "x" {
		t.Error("非空字符串应保留")
	}
}

func TestCheckpoint(t *testing.T) {
	t.Run("冷启动默认值", func(t *testing.T) {
		cp := DefaultCheckpoint()
		if cp.LastPage != 0 || cp.GlobalIndex != 1 {
			t.Errorf("默认检查点 = %+v", cp)
		}
		if cp.NextPage() != 1 || cp.RecordCount() != 0 {
			t.Errorf("NextPage=%d RecordCount=%d", cp.NextPage(), cp.RecordCount())
		}
	})

	t.Run("JSON字段名", func(t *testing.T) {
		cp := Checkpoint{LastPage: 3, GlobalIndex: 45}
		data, err := cp.ToJSON()
		if err != nil {
			t.Fatalf("序列化失败: %v", err)
		}
		if !strings.Contains(string(data), `"last_page": 3`) || !strings.Contains(string(data), `"global_index": 45`) {
			t.Errorf("JSON = %s", data)
		}

		var back Checkpoint
		if err := back.FromJSON(data); err != nil {
			t.Fatalf("反序列化失败: %v", err)
		}
		if back != cp {
			t.Errorf("back = %+v, want %+v", back, cp)
		}
	})

	t.Run("验证", func(t *testing.T) {
		if err := (Checkpoint{LastPage: -1, GlobalIndex: 1}).Validate(); err == nil {
			t.Error("负页码应报错")
		}
		if err := (Checkpoint{LastPage: 2, GlobalIndex: 0}).Validate(); err == nil {
			t.Error("global_index为0应报错")
		}
	})
}

func TestPipelineError(t *testing.T) {
	cause := errors.New("disk full")
	err := NewPipelineError(FailurePersistence, 4, "写入结果失败", cause)

	if !errors.Is(err, cause) {
		t.Error("应能通过errors.Is找到底层错误")
	}
	if KindOf(err) != FailurePersistence {
		t.Errorf("KindOf = %s", KindOf(err))
	}
	if !strings.Contains(err.Error(), "第4页") {
		t.Errorf("错误信息缺少页码: %s", err.Error())
	}
	if KindOf(cause) != "" {
		t.Error("普通错误不应有分类")
	}
}

func TestFinalReport_Fail(t *testing.T) {
	r := &FinalReport{Status: RunStatusCompleted}
	r.Fail(NewPipelineError(FailurePageRender, 2, "导航失败", ErrRenderTimeout))

	if !r.Aborted() {
		t.Error("Fail后应为aborted")
	}
	if r.FailureKind != FailurePageRender {
		t.Errorf("FailureKind = %s", r.FailureKind)
	}
	if !errors.Is(r.Err, ErrRenderTimeout) {
		t.Error("报告应保留原始错误")
	}
}

func validConfig() ScrapeConfig {
	return ScrapeConfig{
		Listing: ListingConfig{
			URL:        "https://www.udemy.com/courses/search/?q=finance+courses",
			PageParam:  "p",
			SiteOrigin: "https://www.udemy.com",
			MaxPages:   417,
			Selectors: SelectorConfig{
				Container: "div.item",
				Title:     ".title",
				Link:      `a[href^="/course/"]`,
			},
		},
		Output: OutputConfig{
			StructuredPath: "courses.json",
			TabularPath:    "courses.csv",
			CheckpointPath: "checkpoint.json",
		},
		Renderer: RendererConfig{
			Mode:               RendererBrowser,
			NavigationTimeout:  60 * time.Second,
			NetworkIdleTimeout: 30 * time.Second,
			ScrollSteps:        4,
		},
		Pacing: PacingConfig{
			Scroll: DelayRange{Min: 1500 * time.Millisecond, Max: 3 * time.Second},
			Page:   DelayRange{Min: 2 * time.Second, Max: 4 * time.Second},
		},
	}
}

func TestScrapeConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *ScrapeConfig)
		wantErr bool
	}{
		{"有效配置", func(c *ScrapeConfig) {}, false},
		{"页码占位符模板", func(c *ScrapeConfig) {
			c.Listing.URL = "https://example.com/list/{page}"
			c.Listing.PageParam = ""
		}, false},
		{"缺少页码参数", func(c *ScrapeConfig) { c.Listing.PageParam = "" }, true},
		{"最大页数为0", func(c *ScrapeConfig) { c.Listing.MaxPages = 0 }, true},
		{"无效站点前缀", func(c *ScrapeConfig) { c.Listing.SiteOrigin = "udemy" }, true},
		{"缺少容器选择器", func(c *ScrapeConfig) { c.Listing.Selectors.Container = "" }, true},
		{"缺少检查点路径", func(c *ScrapeConfig) { c.Output.CheckpointPath = "" }, true},
		{"无效渲染模式", func(c *ScrapeConfig) { c.Renderer.Mode = "firefox" }, true},
		{"导航超时为0", func(c *ScrapeConfig) { c.Renderer.NavigationTimeout = 0 }, true},
		{"延迟区间颠倒", func(c *ScrapeConfig) { c.Pacing.Page.Min = 5 * time.Second }, true},
		{"内存下限为负", func(c *ScrapeConfig) { c.Resource.MinAvailableMemory = -1 }, true},
		{"CPU阈值超过100", func(c *ScrapeConfig) { c.Resource.CPULoadThreshold = 120 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(&c)
			err := c.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
