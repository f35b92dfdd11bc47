package models

import "strings"

// Message directions in a raw conversation export. "in" is a client message,
// "out" a consultant message.
const (
	DirectionIn  = "in"
	DirectionOut = "out"
)

// ExportMessage is one message of a raw conversation export.
type ExportMessage struct {
	Direction string `json:"direction"`
	Text      string `json:"text"`
}

// ConversationExport is one exported conversation with its metadata.
type ConversationExport struct {
	ContactID    string          `json:"contact_id"`
	Scenario     string          `json:"scenario"`
	Conversation []ExportMessage `json:"conversation"`
}

// ClientTurn is one extracted training example: a run of client messages,
// the consultant reply that followed, and everything before it as context.
type ClientTurn struct {
	ContactID        string          `json:"contact_id"`
	Scenario         string          `json:"scenario"`
	SequenceNumber   int             `json:"sequence_number"`
	PrecedingHistory []ExportMessage `json:"preceding_chat_history"`
	ClientSequence   []ExportMessage `json:"client_sequence"`
	ConsultantReply  []ExportMessage `json:"consultant_sequence_reply"`
}

// ExtractClientTurns walks each conversation and cuts it into client turns:
// every maximal run of inbound messages paired with the outbound run that
// answers it. Turns without a consultant reply are still returned; callers
// filter on HasReply when they need graded examples.
func ExtractClientTurns(conversations []ConversationExport) []ClientTurn {
	var turns []ClientTurn

	for _, convo := range conversations {
		messages := convo.Conversation
		i := 0
		sequenceNumber := 0

		for i < len(messages) {
			if messages[i].Direction != DirectionIn {
				i++
				continue
			}

			clientStart := i
			for i < len(messages) && messages[i].Direction == DirectionIn {
				i++
			}
			clientSequence := messages[clientStart:i]

			consultantStart := i
			for i < len(messages) && messages[i].Direction == DirectionOut {
				i++
			}
			consultantSequence := messages[consultantStart:i]

			sequenceNumber++
			turns = append(turns, ClientTurn{
				ContactID:        convo.ContactID,
				Scenario:         convo.Scenario,
				SequenceNumber:   sequenceNumber,
				PrecedingHistory: messages[:clientStart],
				ClientSequence:   clientSequence,
				ConsultantReply:  consultantSequence,
			})
		}
	}

	return turns
}

// HasReply reports whether the turn carries a consultant reply to grade
// against.
func (t ClientTurn) HasReply() bool {
	return len(t.ConsultantReply) > 0
}

// JoinedText concatenates message texts, one per line, trimmed.
func JoinedText(messages []ExportMessage) string {
	lines := make([]string, 0, len(messages))
	for _, m := range messages {
		lines = append(lines, strings.TrimSpace(m.Text))
	}
	return strings.Join(lines, "\n")
}

// HistoryMessages maps export messages to chat history turns. Inbound
// messages become client turns, outbound consultant turns.
func HistoryMessages(messages []ExportMessage) []ChatMessage {
	history := make([]ChatMessage, 0, len(messages))
	for _, m := range messages {
		role := ChatRoleClient
		if m.Direction == DirectionOut {
			role = ChatRoleConsultant
		}
		history = append(history, ChatMessage{Role: role, Message: strings.TrimSpace(m.Text)})
	}
	return history
}
