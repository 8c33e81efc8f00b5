package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/RecoveryAshes/coursecrawl/internal/config"
	"github.com/go-rod/rod/lib/launcher"
)

func main() {
	fmt.Println("==============================================")
	fmt.Println("  coursecrawl 环境验证")
	fmt.Println("==============================================")
	fmt.Println()

	allOK := true

	goVersion := runtime.Version()
	fmt.Printf("✅ Go版本: %s\n", goVersion)
	fmt.Printf("✅ 操作系统: %s/%s\n", runtime.GOOS, runtime.GOARCH)

	// 加载配置 (与主程序相同的搜索路径)
	appConfig, err := config.LoadConfig("")
	if err != nil {
		fmt.Printf("❌ 配置加载失败: %v\n", err)
		os.Exit(1)
	}
	if path := appConfig.Path(); path != "" {
		fmt.Printf("✅ 配置文件: %s\n", path)
	} else {
		fmt.Println("⚠️  未找到配置文件,使用默认配置 (运行 'coursecrawl init-config' 生成)")
	}
	sc, err := appConfig.ScrapeConfig()
	if err != nil {
		fmt.Printf("❌ 配置无效: %v\n", err)
		allOK = false
	}

	// 浏览器模式需要Chromium
	fmt.Println()
	fmt.Printf("渲染模式: %s\n", appConfig.Renderer.Mode)
	if bin := appConfig.Renderer.Browser.BrowserBin; bin != "" {
		if _, err := os.Stat(bin); err == nil {
			fmt.Printf("✅ 浏览器: %s\n", bin)
		} else {
			fmt.Printf("❌ 配置的浏览器不存在: %s\n", bin)
			allOK = false
		}
	} else if path, found := launcher.LookPath(); found {
		version := strings.TrimSpace(getCommandOutput(path, "--version"))
		fmt.Printf("✅ 浏览器: %s %s\n", path, version)
	} else if appConfig.Renderer.Mode == "static" {
		fmt.Println("⚠️  未找到Chromium,静态模式不需要浏览器")
	} else {
		fmt.Println("⚠️  未找到Chromium,首次运行时go-rod将自动下载")
	}

	// 输出文件所在目录必须可写
	fmt.Println()
	fmt.Println("检查输出目录...")
	dirs := map[string]bool{}
	for _, p := range []string{sc.Output.StructuredPath, sc.Output.TabularPath, sc.Output.CheckpointPath, appConfig.Logging.LogDir} {
		if p == "" {
			continue
		}
		dir := filepath.Dir(p)
		if p == appConfig.Logging.LogDir {
			dir = p
		}
		dirs[dir] = true
	}
	for dir := range dirs {
		if err := checkWritable(dir); err != nil {
			fmt.Printf("❌ %s 不可写: %v\n", dir, err)
			allOK = false
		} else {
			fmt.Printf("✅ %s 可写\n", dir)
		}
	}

	fmt.Println()
	fmt.Println("==============================================")
	if allOK {
		fmt.Println("✅ 环境验证通过!")
		fmt.Println()
		fmt.Println("下一步:")
		fmt.Println("  1. 运行 'go build -o coursecrawl ./cmd/coursecrawl' 构建项目")
		fmt.Println("  2. 运行 './coursecrawl validate' 检查配置")
		fmt.Println("  3. 运行 './coursecrawl' 开始抓取")
		os.Exit(0)
	} else {
		fmt.Println("❌ 环境验证失败,请解决上述问题。")
		os.Exit(1)
	}
}

// checkWritable 在目录中创建并删除一个临时文件
func checkWritable(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".verify-*")
	if err != nil {
		return err
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}

// getCommandOutput 获取命令输出
func getCommandOutput(name string, args ...string) string {
	cmd := exec.Command(name, args...)
	output, err := cmd.Output()
	if err != nil {
		return ""
	}
	return string(output)
}
