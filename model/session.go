package model

import "time"

// Session holds the per-user conversation state between chat interactions.
// One document per user; the chat layer upserts it on every turn.
type Session struct {
	UserID           string                 `bson:"user_id" json:"user_id"`
	CurrentPrompt    *string                `bson:"current_prompt" json:"current_prompt,omitempty"`
	CurrentCategory  *string                `bson:"current_category" json:"current_category,omitempty"`
	AwaitingResponse *string                `bson:"awaiting_response" json:"awaiting_response,omitempty"`
	PendingQuestions []string               `bson:"pending_questions" json:"pending_questions"`
	Context          map[string]interface{} `bson:"context" json:"context"`
	DeviceInfo       string                 `bson:"device_info" json:"device_info"`
	IPAddress        string                 `bson:"ip_address" json:"ip_address"`
	UpdatedAt        time.Time              `bson:"updated_at" json:"updated_at"`
	ExpiresAt        time.Time              `bson:"expires_at" json:"expires_at"`
}
