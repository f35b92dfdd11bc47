package models

import "strings"

// Chat role constants
const (
	ChatRoleConsultant = "consultant"
	ChatRoleClient     = "client"
)

// ChatMessage is one turn of a client/consultant conversation.
// Order within a history is significant.
type ChatMessage struct {
	Role    string `json:"role" validate:"required,oneof=consultant client"`
	Message string `json:"message" validate:"required,max=4000"`
}

// HistoryText renders a chat history as plain text for LLM context,
// one "role: message" line per turn.
func HistoryText(history []ChatMessage) string {
	if len(history) == 0 {
		return "(empty)"
	}
	lines := make([]string, 0, len(history))
	for _, m := range history {
		lines = append(lines, m.Role+": "+m.Message)
	}
	return strings.Join(lines, "\n")
}
