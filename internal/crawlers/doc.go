// Package crawlers 提供列表页渲染与记录抽取
//
// # 概述
//
// crawlers包负责把一个列表页URL变成一组课程记录,分为两步:
// 渲染器(Renderer)返回完整渲染后的HTML,抽取器(RecordExtractor)从HTML中解析记录。
// 两者都不持有跨页状态,序号由调用方传入并返回。
//
// # 核心组件
//
// ## RodRenderer
//
// 基于go-rod的浏览器渲染器,一次运行只启动一个浏览器会话。
// 会话打开时设置客户端身份(User-Agent、视口、语言、额外头部),可选注入stealth脚本。
//
//	r, err := NewRodRenderer(ctx, cfg.Renderer, headerProvider)
//	defer r.Close()
//
//	err = r.Navigate(ctx, pageURL, 60*time.Second)
//	err = r.Scroll(ctx, 0, 2500)
//	err = r.WaitNetworkIdle(ctx, 30*time.Second)
//	html, err := r.Content(ctx)
//
// ## StaticRenderer
//
// 基于Colly的静态渲染器,直接抓取服务器返回的HTML,不执行JavaScript。
// 滚动与网络空闲等待为空操作,适用于服务端渲染的列表页。
//
// ## RecordExtractor
//
// 构造时编译全部CSS选择器(cascadia),非法选择器属于配置错误。
// 每个容器独立查找标题、简介、讲师、链接,缺失字段为nil,
// 标题与链接都缺失的容器被跳过且不占用序号。
//
//	ex, err := NewRecordExtractor(cfg.Listing.Selectors, cfg.Listing.SiteOrigin)
//	result, err := ex.Extract(html, nextIndex)
//	// result.Records, result.NextIndex, result.Containers, result.Skipped
//
// ## ResourceMonitor
//
// 每页开始前采样系统内存与CPU,资源紧张时输出警告,不影响流程。
//
// # 错误分类
//
// 渲染器返回的超时错误统一包装为models.ErrRenderTimeout,
// 会话关闭后的调用返回models.ErrSessionClosed,由驱动器归类为page_render失败。
package crawlers
