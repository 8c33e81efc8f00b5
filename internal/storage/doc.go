// Package storage 持久化运行状态
//
// CheckpointStore 记录最后成功的页码与下一个全局序号,
// ResultStore 以完整快照方式覆盖写入JSON与CSV结果文件。
// 所有写入都先落到同目录临时文件,fsync后再rename,
// 中途崩溃时磁盘上只会存在旧文件或新文件。
package storage
