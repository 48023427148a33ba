package openai

import (
	"analysis-backend/internal/llm"
)

// Message represents an OpenAI chat message.
type Message struct {
	Role    string
	Content string
}

// BuildMessages creates the chat messages for one analysis unit.
func BuildMessages(input llm.UnitInput) []Message {
	system, user := llm.BuildPrompt(input)
	return []Message{
		{Role: "system", Content: system},
		{Role: "user", Content: user},
	}
}
