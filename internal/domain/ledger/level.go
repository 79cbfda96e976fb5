package ledger

// Level is one tier in the fixed ascending band table. Bands are inclusive
// on both ends; MaxTokens < 0 means unbounded.
type Level struct {
	Name      string
	Badge     string
	MinTokens int
	MaxTokens int
}

var levels = []Level{
	{Name: "Beginner", Badge: "🌱", MinTokens: 0, MaxTokens: 99},
	{Name: "Active", Badge: "⭐", MinTokens: 100, MaxTokens: 499},
	{Name: "Expert", Badge: "🏆", MinTokens: 500, MaxTokens: 1499},
	{Name: "Master", Badge: "💎", MinTokens: 1500, MaxTokens: 4999},
	{Name: "Legend", Badge: "👑", MinTokens: 5000, MaxTokens: -1},
}

// LevelInfo describes the tier reached for a total-earned amount.
// Display only; carries no invariant on balances.
type LevelInfo struct {
	Level           string  `json:"level"`
	Badge           string  `json:"badge"`
	Progress        float64 `json:"progress"` // percent into the band
	CurrentTokens   int     `json:"current_tokens"`
	NextLevelTokens *int    `json:"next_level_tokens,omitempty"`
}

// LevelFor maps a total-earned amount onto the first matching band.
func LevelFor(totalEarned int) LevelInfo {
	if totalEarned < 0 {
		totalEarned = 0
	}

	for _, lvl := range levels {
		if totalEarned < lvl.MinTokens {
			continue
		}
		if lvl.MaxTokens >= 0 && totalEarned > lvl.MaxTokens {
			continue
		}

		info := LevelInfo{
			Level:         lvl.Name,
			Badge:         lvl.Badge,
			CurrentTokens: totalEarned,
		}

		if lvl.MaxTokens < 0 {
			info.Progress = 100
		} else {
			span := lvl.MaxTokens - lvl.MinTokens
			info.Progress = float64(totalEarned-lvl.MinTokens) / float64(span) * 100
			if info.Progress > 100 {
				info.Progress = 100
			}
			next := lvl.MaxTokens + 1
			info.NextLevelTokens = &next
		}

		return info
	}

	// Unreachable with the table above
	return LevelInfo{Level: levels[0].Name, Badge: levels[0].Badge, CurrentTokens: totalEarned}
}
