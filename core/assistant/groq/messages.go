package groq

import (
	"github.com/koscakluka/ema-caddie/core/assistant"
	"github.com/koscakluka/ema-caddie/core/golf"
)

type message struct {
	Role    messageRole `json:"role"`
	Content string      `json:"content"`
}

type messageRole string

const (
	messageRoleSystem    messageRole = "system"
	messageRoleUser      messageRole = "user"
	messageRoleAssistant messageRole = "assistant"
)

func toMessages(instructions string, round golf.Round) []message {
	messages := []message{}
	if instructions != "" {
		messages = append(messages, message{
			Role:    messageRoleSystem,
			Content: instructions,
		})
	}
	for _, msg := range assistant.Transcript(round) {
		role := messageRoleUser
		if msg.Sender == golf.SenderAssistant {
			role = messageRoleAssistant
		}
		messages = append(messages, message{Role: role, Content: msg.Text})
	}
	return messages
}
