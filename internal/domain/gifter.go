package domain

// GifterPeriod selects one leaderboard window.
type GifterPeriod string

const (
	PeriodToday   GifterPeriod = "today"
	PeriodWeekly  GifterPeriod = "weekly"
	PeriodAllTime GifterPeriod = "all_time"
	PeriodSession GifterPeriod = "session"
)

// Valid reports whether p names a known leaderboard window.
func (p GifterPeriod) Valid() bool {
	switch p {
	case PeriodToday, PeriodWeekly, PeriodAllTime, PeriodSession:
		return true
	}
	return false
}

// GifterAggregate is one row of the precomputed top-gifter projection.
// Read-only for this service.
type GifterAggregate struct {
	ProfileID   string  `json:"profile_id"`
	DisplayName string  `json:"display_name"`
	AvatarURL   string  `json:"avatar_url,omitempty"`
	TotalAmount float64 `json:"total_amount"`
	Rank        int     `json:"rank"`
}

// GifterBoardResponse is one leaderboard window for API responses. Stale
// reports that the refresher is serving the last good value after a failed
// or empty refresh.
type GifterBoardResponse struct {
	Period  GifterPeriod      `json:"period"`
	Gifters []GifterAggregate `json:"gifters"`
	Stale   bool              `json:"stale"`
}
