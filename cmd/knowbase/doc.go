// Copyright (c) KnowBase Authors.
// Licensed under the MIT License.

/*
Package main 提供 KnowBase 命令行工具入口。

# 概述

cmd/knowbase 是知识库的可执行入口，提供文档入库、多查询检索与
数据库迁移等子命令。程序支持 YAML 配置文件加载、环境变量覆盖
（KNOWBASE_ 前缀）以及结构化日志（zap）。

# 主要能力

  - 子命令：ingest（切块 + 嵌入 + 入库）、query（多查询检索）、
    migrate（数据库迁移）、version
  - 向量存储：--store 选择 memory 或 pgvector
  - 迁移管理：up、down、steps、status、version、info、reset
*/
package main
