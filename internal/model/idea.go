package model

import "time"

// Idea is a candidate business opportunity synthesized from agent findings.
// Scores are in [0, 1] and absent when the backend has not scored them yet.
type Idea struct {
	ID                int64     `json:"id"`
	Title             string    `json:"title"`
	Summary           string    `json:"summary"`
	Source            string    `json:"source"`
	SourceURL         *string   `json:"source_url"`
	BusinessPotential *float64  `json:"business_potential"`
	MarketSizeScore   *float64  `json:"market_size_score"`
	CompetitionScore  *float64  `json:"competition_score"`
	SentimentScore    *float64  `json:"sentiment_score"`
	CompositeScore    *float64  `json:"composite_score"`
	Status            string    `json:"status"`
	CreatedAt         time.Time `json:"created_at"`
}

// Clone returns a deep copy of i.
func (i Idea) Clone() Idea {
	i.SourceURL = clonePtr(i.SourceURL)
	i.BusinessPotential = clonePtr(i.BusinessPotential)
	i.MarketSizeScore = clonePtr(i.MarketSizeScore)
	i.CompetitionScore = clonePtr(i.CompetitionScore)
	i.SentimentScore = clonePtr(i.SentimentScore)
	i.CompositeScore = clonePtr(i.CompositeScore)
	return i
}

// IdeaList is the paginated response of GET /ideas.
type IdeaList struct {
	Items []Idea `json:"items"`
	Total int    `json:"total"`
}

// CloneIdeas deep-copies a list of ideas. A nil input yields an empty slice.
func CloneIdeas(ideas []Idea) []Idea {
	out := make([]Idea, len(ideas))
	for i := range ideas {
		out[i] = ideas[i].Clone()
	}
	return out
}
