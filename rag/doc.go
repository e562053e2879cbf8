// Copyright (c) Knowbase Authors.
// Licensed under the MIT License.

/*
# 概述

Package rag 提供知识库检索增强生成（Retrieval-Augmented Generation）核心实现。

该包覆盖管线的三个阶段：语义分块、批量嵌入与成本核算、多查询检索与融合。
文档入库时被切分为有界且语义连贯的块，批量嵌入为向量后持久化；检索时把
用户问题扩展为多个语义变体，并行搜索向量库，按最大相似度融合去重，最终
在 token 预算内产出可引用的证据列表。

# 核心接口/类型

  - SemanticChunker — 语义分块器（段落 → 句子 → 次级标点 → 硬切分四级回退）
  - EmbeddingClient — 批量嵌入客户端（维度校验、子批次、速率限制、成本估算）
  - QueryExpander — 多查询扩展器（LLM 改写，解析失败优雅降级为单查询）
  - Retriever — 多查询检索器（并行变体搜索 + 融合 + token 预算裁剪）
  - VectorStore — 向量存储统一接口（UpsertChunks / Search / DeleteDocument / Count）
  - FusionStrategy — 融合策略接口（最大相似度 / 倒数排名两种实现）
  - Ingestor — 文档入库器（分块 → 嵌入 → 全量替换式提交）

# 主要能力

  - 语义分块：尊重 Markdown 标题、水平分割线与句子边界，块长保持在
    [min_size, max_size] 区间内（文档末块允许更短）
  - 成本核算：纯函数式 token/费用估算，入库前即可预估嵌入开销
  - 多查询融合：同一块被多个变体命中时保留最大相似度，单变体失败不影响整体
  - 向量存储后端：InMemory（测试/小规模）与 PostgreSQL + pgvector（生产）
  - 扩展缓存：进程内 TTL 缓存或 Redis 共享缓存
  - 工厂函数：NewRetrieverFromConfig 等从全局配置一键创建完整管线
*/
package rag
