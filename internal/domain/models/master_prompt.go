package models

import "time"

// MasterPromptID is the fixed row ID of the singleton master prompt.
// The table carries a CHECK (id = 1) so a second row can never appear.
const MasterPromptID = 1

// MasterPrompt is the live system prompt driving the production responder.
// Exactly one logical instance exists; it is created with a default seed on
// first access and only ever mutated by overwrite.
type MasterPrompt struct {
	Prompt    string    `json:"prompt"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
