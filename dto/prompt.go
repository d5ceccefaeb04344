package dto

// CreatePromptRequest is the payload the bot sends after a refinement
// run completes.
type CreatePromptRequest struct {
	OriginalPrompt string   `json:"original_prompt" binding:"required"`
	ImprovedPrompt string   `json:"improved_prompt" binding:"required"`
	Category       string   `json:"category" binding:"omitempty,category"`
	ScoreBefore    int      `json:"score_before" binding:"min=0,max=10"`
	ScoreAfter     int      `json:"score_after" binding:"min=0,max=10"`
	Iterations     int      `json:"iterations" binding:"min=0"`
	Tags           []string `json:"tags" binding:"omitempty,dive,tag"`
	Notes          *string  `json:"notes"`
}

// TagRequest names one tag for add/remove.
type TagRequest struct {
	Tag string `json:"tag" binding:"required,tag"`
}

// ReplaceTagsRequest carries the full target tag set.
type ReplaceTagsRequest struct {
	Tags []string `json:"tags" binding:"required,dive,tag"`
}

// AssignCollectionRequest sets collection membership. A null collection
// name removes the prompt from its collection; a null priority order
// leaves the stored order untouched.
type AssignCollectionRequest struct {
	CollectionName *string `json:"collection_name"`
	PriorityOrder  *int    `json:"priority_order"`
}

// FeedbackRequest rates an improvement.
type FeedbackRequest struct {
	Rating   int     `json:"rating" binding:"required,min=1,max=5"`
	Feedback *string `json:"feedback"`
}
