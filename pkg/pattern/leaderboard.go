package pattern

// Leaderboard represents a ranked list of items by metric.
type Leaderboard struct {
	Label      string            `json:"label"`
	MetricName string            `json:"metric_name"` // e.g. "Duration"
	Items      []LeaderboardItem `json:"items"`
	TotalCount int               `json:"total_count"` // total before filtering to top N
	ShowRank   bool              `json:"show_rank"`
}

// LeaderboardItem is a single ranked entry.
type LeaderboardItem struct {
	Name   string  `json:"name"`   // display name
	Metric string  `json:"metric"` // formatted value, e.g. "2.3s"
	Value  float64 `json:"value"`  // numeric value used for ordering
	Rank   int     `json:"rank"`
}

func (l *Leaderboard) Type() PatternType { return PatternTypeLeaderboard }
