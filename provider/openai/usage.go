package openai

import (
	"github.com/openai/openai-go"
	"github.com/prplworks/cpeforge/internal/shorttermmemory"
)

func usageFromCompletion(chat *openai.ChatCompletion) shorttermmemory.Usage {
	return shorttermmemory.Usage{
		CompletionTokens: chat.Usage.CompletionTokens,
		PromptTokens:     chat.Usage.PromptTokens,
		TotalTokens:      chat.Usage.TotalTokens,
		CompletionTokensDetails: shorttermmemory.CompletionTokensDetails{
			AcceptedPredictionTokens: chat.Usage.CompletionTokensDetails.AcceptedPredictionTokens,
			AudioTokens:              chat.Usage.CompletionTokensDetails.AudioTokens,
			ReasoningTokens:          chat.Usage.CompletionTokensDetails.ReasoningTokens,
			RejectedPredictionTokens: chat.Usage.CompletionTokensDetails.RejectedPredictionTokens,
		},
		PromptTokensDetails: shorttermmemory.PromptTokensDetails{
			AudioTokens:  chat.Usage.PromptTokensDetails.AudioTokens,
			CachedTokens: chat.Usage.PromptTokensDetails.CachedTokens,
		},
	}
}
