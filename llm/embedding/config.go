package embedding

import "time"

// OpenAIConfig 配置 OpenAI 嵌入提供者.
type OpenAIConfig struct {
	APIKey           string        `json:"api_key" yaml:"api_key"`
	BaseURL          string        `json:"base_url" yaml:"base_url"`
	Model            string        `json:"model,omitempty" yaml:"model,omitempty"`           // text-embedding-3-small
	Dimensions       int           `json:"dimensions,omitempty" yaml:"dimensions,omitempty"` // 256, 1024, 1536
	Timeout          time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	PricePer1KTokens float64       `json:"price_per_1k_tokens,omitempty" yaml:"price_per_1k_tokens,omitempty"`
}

// DefaultOpenAIConfig 返回默认的 OpenAI 嵌入配置.
func DefaultOpenAIConfig() OpenAIConfig {
	return OpenAIConfig{
		BaseURL:    "https://api.openai.com",
		Model:      "text-embedding-3-small",
		Dimensions: 1536,
		Timeout:    30 * time.Second,
		// text-embedding-3-small: $0.00002 per 1K tokens
		PricePer1KTokens: 0.00002,
	}
}
