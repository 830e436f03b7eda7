package openai

import (
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

const encodingName = "cl100k_base"

var encoding = sync.OnceValues(func() (*tiktoken.Tiktoken, error) {
	tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
	return tiktoken.GetEncoding(encodingName)
})

// truncateToTokens cuts text to at most maxTokens tokens. When the cut leaves
// a sentence end within the final fifth of the result, the text is trimmed
// back to it.
func truncateToTokens(enc *tiktoken.Tiktoken, text string, maxTokens int) string {
	tokens := enc.Encode(text, nil, nil)
	if len(tokens) <= maxTokens {
		return text
	}
	truncated := enc.Decode(tokens[:maxTokens])
	if i := strings.LastIndex(truncated, "."); i >= 0 && float64(i) > float64(len(truncated))*0.8 {
		return truncated[:i+1]
	}
	return truncated
}
