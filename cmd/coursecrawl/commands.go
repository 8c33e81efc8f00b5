package main

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/RecoveryAshes/coursecrawl/internal/config"
	"github.com/RecoveryAshes/coursecrawl/internal/storage"
	"github.com/RecoveryAshes/coursecrawl/internal/utils"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "显示检查点与已保存记录数",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := appConfig.Output
		checkpoints := storage.NewCheckpointStore(out.CheckpointPath)
		results := storage.NewResultStore(out.StructuredPath, out.TabularPath)

		cp, err := checkpoints.Load()
		if err != nil {
			return fmt.Errorf("读取检查点失败: %w", err)
		}
		count, err := results.Count()
		if err != nil {
			return fmt.Errorf("读取结果文件失败: %w", err)
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "检查点:       %s", checkpoints.Path())
		if !checkpoints.Exists() {
			fmt.Fprint(w, " (不存在,将从第1页开始)")
		}
		fmt.Fprintln(w)
		fmt.Fprintf(w, "最后完成页:   %d / %d\n", cp.LastPage, appConfig.Listing.MaxPages)
		fmt.Fprintf(w, "下一序号:     %d\n", cp.GlobalIndex)
		fmt.Fprintf(w, "已保存记录:   %d\n", count)

		if cp.NextPage() > appConfig.Listing.MaxPages {
			fmt.Fprintln(w, "所有页面已处理完成")
		} else {
			fmt.Fprintf(w, "下次从第%d页开始\n", cp.NextPage())
		}
		if count != cp.RecordCount() {
			fmt.Fprintf(w, "注意: 结果文件记录数与检查点不一致 (期望%d条),下次运行将尝试对齐\n", cp.RecordCount())
		}

		report, err := utils.NewReporter(out.ReportDir).LoadRunReport()
		switch {
		case err == nil && report != nil:
			fmt.Fprintf(w, "上次运行:     %s (%s, 新增%d条)\n",
				report.Status, report.EndTime.Format("2006-01-02 15:04:05"), report.RecordsAdded)
			if report.Aborted() {
				fmt.Fprintf(w, "上次错误:     %s\n", report.Error)
			}
		case err != nil && !errors.Is(err, fs.ErrNotExist):
			utils.Warnf("读取运行报告失败: %v", err)
		}
		return nil
	},
}

var forceInit bool

var initConfigCmd = &cobra.Command{
	Use:   "init-config [path]",
	Short: "生成配置文件模板",
	Args:  cobra.MaximumNArgs(1),
	// 配置文件可能尚不存在或无法解析
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		path := config.DefaultConfigFile
		if len(args) > 0 {
			path = args[0]
		} else if configFile != "" {
			path = configFile
		}

		if forceInit {
			if err := config.WriteTemplate(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "已写入配置模板: %s\n", path)
			return nil
		}

		created, err := config.EnsureConfigExists(path)
		if err != nil {
			return err
		}
		if !created {
			fmt.Fprintf(cmd.OutOrStdout(), "配置文件已存在: %s (使用 --force 覆盖)\n", path)
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "已生成配置模板: %s\n", path)
		return nil
	},
}

func init() {
	initConfigCmd.Flags().BoolVarP(&forceInit, "force", "f", false, "覆盖已存在的配置文件")
}
