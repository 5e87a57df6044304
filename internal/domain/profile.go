package domain

// Profile is a read-only public profile directory entry.
type Profile struct {
	UserID              string  `json:"user_id"`
	Username            string  `json:"username"`
	PhotoURL            string  `json:"photo_url,omitempty"`
	VIPTier             int     `json:"vip_tier"`
	LifetimeGiftedTotal float64 `json:"lifetime_gifted_total"`
}
