package common

// GenerationRequest is one text generation call (shared across all providers)
type GenerationRequest struct {
	SystemPrompt    string
	UserPrompt      string
	Model           string
	MaxOutputTokens int
	// Temperature is left to the provider default when nil.
	Temperature *float64
}

// Usage holds the token counts reported by the provider
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

// GenerationResponse contains the generated text and its token usage
type GenerationResponse struct {
	Text  string `json:"text"`
	Usage Usage  `json:"usage"`
}

// Float64Ptr is a helper for optional temperatures.
func Float64Ptr(v float64) *float64 {
	return &v
}
