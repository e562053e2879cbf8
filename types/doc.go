// Copyright (c) Knowbase Authors.
// Licensed under the MIT License.

/*
Package types 提供 Knowbase 知识库核心的全局共享类型定义。

# 概述

types 是最底层的公共包，不依赖任何内部包，为 rag、llm、config 等上层模块
提供统一的类型契约。所有跨包共享的结构体、枚举和错误码均定义于此，
以避免循环依赖。

# 核心类型

  - Document       — 知识库文档元数据（ID、标题、分类、处理状态）
  - DocumentStatus — 文档生命周期状态（pending → processing → ready/failed）
  - Chunk          — 文档分块，嵌入与检索的最小单元
  - SearchHit      — 向量检索命中结果（含相似度与引用信息）
  - Error          — 统一结构化错误（错误码 + 可重试标记 + 底层原因）
*/
package types
