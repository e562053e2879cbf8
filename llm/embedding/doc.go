// Copyright (c) Knowbase Authors.
// Licensed under the MIT License.

/*
包 embedding 提供统一的文本嵌入（Embedding）接口与 OpenAI 兼容实现，
用于将文本转换为向量表示以支持语义检索。

# 核心接口

  - Provider：统一嵌入接口，定义 Embed、EmbedQuery、EmbedDocuments 等方法。
  - EmbeddingRequest / EmbeddingResponse：标准化的请求与响应模型。
  - BaseProvider：公共基类，封装 HTTP 请求、错误映射与批量辅助方法。

# 成本估算

EstimateTokenCount 与 EstimateCost 提供纯函数式的 token 与费用估算，
不依赖任何网络调用，用于入库前的成本预估与预算裁剪。

# 使用方式

	cfg := embedding.DefaultOpenAIConfig()
	cfg.APIKey = "sk-..."
	provider := embedding.NewOpenAIProvider(cfg)

	vec, err := provider.EmbedQuery(ctx, "搜索关键词")
	vecs, err := provider.EmbedDocuments(ctx, []string{"文档1", "文档2"})
*/
package embedding
