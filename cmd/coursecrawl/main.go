package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/RecoveryAshes/coursecrawl/internal/config"
	"github.com/RecoveryAshes/coursecrawl/internal/models"
	"github.com/RecoveryAshes/coursecrawl/internal/utils"
	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

// 命令行参数
var (
	configFile string
	verbose    bool
	logLevel   string
)

// appConfig 由PersistentPreRunE加载
var appConfig *config.Config

var rootCmd = &cobra.Command{
	Use:   "coursecrawl",
	Short: "可断点续爬的课程列表抓取工具",
	Long: `coursecrawl - 分页课程列表抓取工具

逐页渲染JavaScript列表页,抽取课程标题、简介、讲师与链接:
  • 每页完成后立即写入JSON与CSV完整快照
  • 检查点只在结果落盘后前进,中断后再次运行从下一页继续
  • 渲染或写入失败立即中止,不重试也不跳页

所有抓取参数来自配置文件 (configs/config.yaml) 或 COURSECRAWL_ 前缀的环境变量:
  coursecrawl                      # 开始或继续抓取
  coursecrawl status               # 查看进度
  coursecrawl init-config          # 生成配置模板

版本: ` + Version + `
构建时间: ` + BuildTime,
	Version:      Version,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := validateLogLevel(logLevel); err != nil {
			return err
		}

		loaded, err := config.LoadConfig(configFile)
		if err != nil {
			err = fmt.Errorf("加载配置失败: %w", err)
			// 只有抓取命令需要摘要,子命令直接返回错误
			if !cmd.HasParent() {
				utils.PrintSummary(os.Stdout, startupReport(config.DefaultOutput(), models.NewRunID(), err))
			}
			return err
		}
		appConfig = loaded

		logConfig := appConfig.LogConfig()
		if logLevel != "" {
			logConfig.Level = logLevel
		} else if verbose {
			logConfig.Level = "debug"
		}
		if err := utils.InitLogger(logConfig); err != nil {
			return fmt.Errorf("初始化日志系统失败: %w", err)
		}

		if path := appConfig.Path(); path != "" {
			utils.Debugf("使用配置文件: %s", path)
		} else {
			utils.Debugf("未找到配置文件,使用默认配置")
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		runID := models.NewRunID()
		sc, err := appConfig.ScrapeConfig()
		if err != nil {
			utils.PrintSummary(os.Stdout, startupReport(appConfig.Output, runID, err))
			return err
		}

		p, err := buildPipeline(sc, runID)
		if err != nil {
			utils.PrintSummary(os.Stdout, startupReport(sc.Output, runID, err))
			return err
		}

		// Ctrl+C / SIGTERM 取消运行上下文,驱动器走中止路径并写出报告
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		report := p.driver.Run(ctx)

		fmt.Fprintln(os.Stdout)
		utils.PrintSummary(os.Stdout, report)

		if path, err := p.reporter.SaveRunReport(report); err != nil {
			utils.Warnf("保存运行报告失败: %v", err)
		} else if path != "" {
			utils.Infof("运行报告已保存: %s", path)
		}

		if code := exitCode(report, appConfig.Run.StrictExitCode); code != 0 {
			stop()
			os.Exit(code)
		}
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "显示版本信息",
	// 不需要加载配置
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("coursecrawl %s\n", Version)
		fmt.Printf("构建时间: %s\n", BuildTime)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "配置文件路径")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "详细输出模式 (等同 --log-level debug)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "日志级别 (trace|debug|info|warn|error)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(initConfigCmd)
	rootCmd.AddCommand(validateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}
