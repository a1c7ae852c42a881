package models

// CategoryQuota is one entry of the ordered quota list. Composition
// walks quotas in slice order, which stands in for the insertion order
// of the original keyed configuration.
type CategoryQuota struct {
	Category string `json:"category" validate:"required"`
	Count    int    `json:"count" validate:"min=0"`
}

// DifficultyMix requests per-tier counts inside each quota category.
// Keys are the difficulty tiers 1..3.
type DifficultyMix map[int]int

// SamplingConfig drives pool composition for one attempt.
//
// TotalCount caps the composed pool after shuffling. A zero or negative
// value truncates the pool to empty rather than meaning "unlimited";
// callers that want the whole pool must pass a count at least as large
// as the bank.
type SamplingConfig struct {
	Mode       Mode            `json:"mode" validate:"required,oneof=logic english"`
	Quotas     []CategoryQuota `json:"quotas" validate:"dive"`
	Mix        DifficultyMix   `json:"difficulty_mix"`
	TotalCount int             `json:"total_count"`
	Randomize  bool            `json:"randomize"`
	Level      int             `json:"level" validate:"omitempty,min=1,max=10"`
}

// QuotaSum is the total of all positive quota counts. A positive sum
// switches composition into quota mode.
func (c *SamplingConfig) QuotaSum() int {
	sum := 0
	for _, q := range c.Quotas {
		if q.Count > 0 {
			sum += q.Count
		}
	}
	return sum
}

// WeightsConfig maps a Logic category to its weight (0..100). Weights
// are not required to sum to 100; scoring normalizes by the sum of
// weights over categories that actually appeared in the attempt.
type WeightsConfig map[string]float64
