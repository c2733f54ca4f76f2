package model

// RateStatus classifies token consumption against the provider's TPM ceiling.
type RateStatus string

const (
	RateOK          RateStatus = "ok"
	RateApproaching RateStatus = "approaching"
	RateExceeded    RateStatus = "exceeded"
)

// approachingRatio is the fraction of the TPM limit at which usage is
// reported as approaching the ceiling.
const approachingRatio = 0.7

// TokenUsage is the latest cumulative LLM consumption for the active run.
// Each token_usage event carries a full snapshot; the newest one always wins.
type TokenUsage struct {
	RunID            string `json:"run_id,omitempty"`
	Provider         string `json:"provider"`
	PromptTokens     int64  `json:"prompt_tokens"`
	CompletionTokens int64  `json:"completion_tokens"`
	TotalTokens      int64  `json:"total_tokens"`
	LLMCalls         int64  `json:"llm_calls"`
	TPMLimit         *int64 `json:"tpm_limit"`
}

// Clone returns a copy of u that shares no pointers with it.
func (u *TokenUsage) Clone() *TokenUsage {
	if u == nil {
		return nil
	}
	out := *u
	out.TPMLimit = clonePtr(u.TPMLimit)
	return &out
}

// RateStatus reports how close TotalTokens is to the TPM limit.
// Without a positive limit usage is always RateOK.
func (u TokenUsage) RateStatus() RateStatus {
	if u.TPMLimit == nil || *u.TPMLimit <= 0 {
		return RateOK
	}
	ratio := float64(u.TotalTokens) / float64(*u.TPMLimit)
	switch {
	case ratio >= 1:
		return RateExceeded
	case ratio >= approachingRatio:
		return RateApproaching
	default:
		return RateOK
	}
}

// Percent returns TotalTokens as a percentage of the TPM limit, capped at 100.
// It is 0 when no limit is known.
func (u TokenUsage) Percent() float64 {
	if u.TPMLimit == nil || *u.TPMLimit <= 0 {
		return 0
	}
	p := float64(u.TotalTokens) / float64(*u.TPMLimit) * 100
	if p > 100 {
		return 100
	}
	return p
}
