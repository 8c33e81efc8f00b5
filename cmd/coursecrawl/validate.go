package main

import (
	"fmt"

	"github.com/RecoveryAshes/coursecrawl/internal/core"
	"github.com/RecoveryAshes/coursecrawl/internal/crawlers"
	"github.com/RecoveryAshes/coursecrawl/internal/utils"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// validateLogLevel 验证--log-level参数
func validateLogLevel(level string) error {
	if level == "" {
		return nil
	}
	if _, err := zerolog.ParseLevel(level); err != nil {
		return fmt.Errorf("无效的日志级别: %s (有效值: trace, debug, info, warn, error)", level)
	}
	return nil
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "验证配置文件与HTTP头部",
	RunE: func(cmd *cobra.Command, args []string) error {
		w := cmd.OutOrStdout()

		sc, err := appConfig.ScrapeConfig()
		if err != nil {
			return fmt.Errorf("配置验证失败: %w", err)
		}
		if _, err := crawlers.NewRecordExtractor(sc.Listing.Selectors, sc.Listing.SiteOrigin); err != nil {
			return fmt.Errorf("选择器验证失败: %w", err)
		}

		headerManager := core.NewHeaderManager(sc.Renderer.Mode, sc.Renderer.Browser)
		if err := headerManager.Validate(); err != nil {
			return fmt.Errorf("HTTP头部验证失败: %w", err)
		}

		first, err := utils.BuildPageURL(sc.Listing.URL, sc.Listing.PageParam, 1)
		if err != nil {
			return err
		}
		last, err := utils.BuildPageURL(sc.Listing.URL, sc.Listing.PageParam, sc.Listing.MaxPages)
		if err != nil {
			return err
		}

		fmt.Fprintln(w, "配置验证通过")
		if path := appConfig.Path(); path != "" {
			fmt.Fprintf(w, "  配置文件: %s\n", path)
		}
		fmt.Fprintf(w, "  渲染模式: %s\n", sc.Renderer.Mode)
		fmt.Fprintf(w, "  第1页:    %s\n", first)
		fmt.Fprintf(w, "  第%d页:  %s\n", sc.Listing.MaxPages, last)
		fmt.Fprintf(w, "  HTTP头部: %s\n", headerManager.GetSafeHeaders())
		return nil
	},
}
