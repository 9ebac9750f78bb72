package services

import "time"

// Player is a named participant. Rows are soft-deleted only.
type Player struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Deleted   bool      `json:"deleted,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// Session is one participant's single play-through. It moves through
// created -> consented -> completed and never back.
type Session struct {
	ID        string    `json:"id"`
	PlayerID  int64     `json:"player_id"`
	Consent   bool      `json:"consent"`
	Completed bool      `json:"completed"`
	UserAgent string    `json:"user_agent,omitempty"`
	ScreenW   *int      `json:"screen_w,omitempty"`
	ScreenH   *int      `json:"screen_h,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// Score is the single measured trial a session produced. RTMsClean is
// nil when the raw value falls outside the plausible band; the raw
// value is always kept for audit.
type Score struct {
	PlayerID  int64    `json:"player_id"`
	SessionID string   `json:"session_id"`
	TrialIdx  int      `json:"trial_idx"`
	RTMsRaw   float64  `json:"rt_ms_raw"`
	RTMsClean *float64 `json:"rt_ms_clean,omitempty"`
	Deleted   bool     `json:"deleted,omitempty"`
}

// LeaderboardEntry is one row of the derived ranking, fastest first.
// BestMs carries the exact clean value; MeanMs is truncated to a whole
// millisecond by the view.
type LeaderboardEntry struct {
	PlayerID int64   `json:"player_id"`
	Name     string  `json:"name"`
	BestMs   float64 `json:"best_ms"`
	MeanMs   int64   `json:"mean_ms"`
	Tries    int     `json:"tries"`
}
