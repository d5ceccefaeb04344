package model

// ServiceStats aggregates store-wide numbers for the stats endpoint.
type ServiceStats struct {
	TotalPrompts int64 `json:"total_prompts"`
	Averages     struct {
		Improvement float64 `bson:"avg_improvement" json:"avg_improvement"`
		ScoreBefore float64 `bson:"avg_score_before" json:"avg_score_before"`
		ScoreAfter  float64 `bson:"avg_score_after" json:"avg_score_after"`
	} `json:"averages"`
	ByCategory map[string]int64 `json:"by_category"`
}
