package utils

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/RecoveryAshes/coursecrawl/internal/models"
	"github.com/schollz/progressbar/v3"
)

// RunReportName 运行报告文件名
const RunReportName = "run_report.json"

// Reporter 报告生成器
type Reporter struct {
	reportDir string
}

// NewReporter 创建报告生成器
func NewReporter(reportDir string) *Reporter {
	return &Reporter{reportDir: reportDir}
}

// SaveRunReport 保存本次运行的报告,返回报告路径
// reportDir为空时不写文件
func (r *Reporter) SaveRunReport(report *models.FinalReport) (string, error) {
	if r.reportDir == "" {
		return "", nil
	}
	if err := os.MkdirAll(r.reportDir, 0755); err != nil {
		return "", fmt.Errorf("创建报告目录失败: %w", err)
	}

	data, err := report.ToJSON()
	if err != nil {
		return "", fmt.Errorf("序列化JSON失败: %w", err)
	}

	path := filepath.Join(r.reportDir, RunReportName)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("写入报告文件失败: %w", err)
	}

	Debugf("保存报告: %s", path)
	return path, nil
}

// LoadRunReport 读取上一次运行报告
func (r *Reporter) LoadRunReport() (*models.FinalReport, error) {
	data, err := os.ReadFile(filepath.Join(r.reportDir, RunReportName))
	if err != nil {
		return nil, err
	}
	var report models.FinalReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("解析运行报告失败: %w", err)
	}
	return &report, nil
}

// PrintSummary 输出运行摘要,任何退出路径都会调用
func PrintSummary(w io.Writer, report *models.FinalReport) {
	line := strings.Repeat("=", 60)
	fmt.Fprintln(w, line)
	fmt.Fprintln(w, "运行摘要")
	fmt.Fprintln(w, line)
	fmt.Fprintf(w, "运行ID:       %s\n", report.RunID)
	fmt.Fprintf(w, "状态:         %s\n", report.Status)
	fmt.Fprintf(w, "最后成功页:   %d\n", report.LastSuccessfulPage)
	fmt.Fprintf(w, "已保存记录:   %d\n", report.TotalRecords)
	fmt.Fprintf(w, "本次新增:     %d\n", report.RecordsAdded)
	fmt.Fprintf(w, "处理页数:     %d\n", report.PagesProcessed)
	fmt.Fprintf(w, "耗时:         %.2f秒\n", report.Duration)
	if report.Aborted() {
		fmt.Fprintf(w, "失败类型:     %s\n", report.FailureKind)
		fmt.Fprintf(w, "错误:         %s\n", report.Error)
		fmt.Fprintf(w, "再次运行将从第%d页继续\n", report.LastSuccessfulPage+1)
	}
	fmt.Fprintln(w, line)
}

// NewProgressBar 创建进度条
func NewProgressBar(max int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(max,
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("页"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}
