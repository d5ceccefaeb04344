package model

import (
	"time"
)

// Prompt is one saved refinement result plus the organizational metadata
// (tags, collection membership, archive flag) layered on top of it.
//
// Tags carries no omitempty on purpose: migration uses the absence of the
// tags field to detect legacy documents, so new documents must always
// persist it, even when empty.
type Prompt struct {
	ID             string    `bson:"_id,omitempty" json:"id"`
	UserID         string    `bson:"user_id" json:"user_id"`
	OriginalPrompt string    `bson:"original_prompt" json:"original_prompt" binding:"required"`
	ImprovedPrompt string    `bson:"improved_prompt" json:"improved_prompt" binding:"required"`
	Category       string    `bson:"category" json:"category"`
	ScoreBefore    int       `bson:"score_before" json:"score_before"`
	ScoreAfter     int       `bson:"score_after" json:"score_after"`
	Iterations     int       `bson:"iterations" json:"iterations"`
	Tags           []string  `bson:"tags" json:"tags"`
	CollectionName *string   `bson:"collection_name" json:"collection_name,omitempty"`
	PriorityOrder  *int      `bson:"priority_order" json:"priority_order,omitempty"`
	IsArchived     bool      `bson:"is_archived" json:"is_archived"`
	Notes          *string   `bson:"notes" json:"notes,omitempty"`
	Rating         *int      `bson:"rating,omitempty" json:"rating,omitempty"`
	Feedback       *string   `bson:"feedback,omitempty" json:"feedback,omitempty"`
	CreatedAt      time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time `bson:"updated_at" json:"updated_at"`
}

// TagCount is one row of a user's tag inventory.
type TagCount struct {
	Tag   string `bson:"_id" json:"tag"`
	Count int    `bson:"count" json:"count"`
}

// CollectionInfo summarizes one named collection a user has prompts in.
type CollectionInfo struct {
	Name       string    `bson:"_id" json:"name"`
	Count      int       `bson:"count" json:"count"`
	LatestItem time.Time `bson:"latest" json:"latest"`
}

// Improvement is a prompt projected with its score delta, as returned by
// the top-improvements aggregation.
type Improvement struct {
	ID             string `bson:"_id" json:"id"`
	OriginalPrompt string `bson:"original_prompt" json:"original_prompt"`
	ImprovedPrompt string `bson:"improved_prompt" json:"improved_prompt"`
	Category       string `bson:"category" json:"category"`
	ScoreBefore    int    `bson:"score_before" json:"score_before"`
	ScoreAfter     int    `bson:"score_after" json:"score_after"`
	Improvement    int    `bson:"improvement" json:"improvement"`
}

// Prompt categories recognized by the refinement pipeline. Stored as plain
// strings; unknown values are kept as-is.
const (
	CategoryCode            = "code"
	CategoryCreative        = "creative"
	CategoryImageGeneration = "image_generation"
	CategoryAnalysis        = "analysis"
	CategoryBusiness        = "business"
	CategoryEducation       = "education"
	CategoryGeneral         = "general"
)

var Categories = []string{
	CategoryCode,
	CategoryCreative,
	CategoryImageGeneration,
	CategoryAnalysis,
	CategoryBusiness,
	CategoryEducation,
	CategoryGeneral,
}

// IsValidCategory reports whether c is one of the known categories.
func IsValidCategory(c string) bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// recognizedTags is the set of quick-pick labels the chat layer offers.
// Lookup is display-only; any string is a legal tag.
var recognizedTags = map[string]struct{}{
	"🔥": {},
	"♥️": {},
	"⭐": {},
	"📌": {},
	"💡": {},
	"🧪": {},
	"💼": {},
	"🎨": {},
}

// IsRecognizedTag reports whether tag is one of the quick-pick labels.
func IsRecognizedTag(tag string) bool {
	_, ok := recognizedTags[tag]
	return ok
}
