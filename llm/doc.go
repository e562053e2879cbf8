// Copyright (c) Knowbase Authors.
// Licensed under the MIT License.

/*
Package llm 提供统一的对话补全（Chat Completion）提供者接口和 OpenAI 实现。

检索核心只在查询扩展阶段消费该接口：把用户问题改写为多个语义变体。
提供者实例在进程启动时构建并显式注入，核心逻辑不读取任何全局状态。

# 核心类型

  - Provider     — 对话补全提供者接口（Name + Completion）
  - ChatRequest  — 统一请求（messages、temperature、max_tokens）
  - ChatResponse — 统一响应（choices + usage）
  - Error        — 结构化错误（错误码对齐 HTTP 状态与可重试性）
*/
package llm
