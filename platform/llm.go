package platform

import (
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

var (
	LLMClient *openai.Client
)

// NewLLMClient builds a client for the upstream gateway. No API key is baked
// in: every call forwards the caller's own key with option.WithAPIKey.
func NewLLMClient(baseURL string, opts ...option.RequestOption) *openai.Client {
	if baseURL != "" {
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		opts = append([]option.RequestOption{option.WithBaseURL(baseURL)}, opts...)
	}
	return openai.NewClient(opts...)
}

func InitLLMClient(baseURL string) {
	LLMClient = NewLLMClient(baseURL)
}
