package dto

// SaveSessionRequest carries the conversation state the bot persists
// between turns.
type SaveSessionRequest struct {
	CurrentPrompt    *string                `json:"current_prompt"`
	CurrentCategory  *string                `json:"current_category" binding:"omitempty,category"`
	AwaitingResponse *string                `json:"awaiting_response"`
	PendingQuestions []string               `json:"pending_questions"`
	Context          map[string]interface{} `json:"context"`
}
