package services

// Physiological plausibility band for a human reaction time. Values
// outside it are kept raw for audit but excluded from ranking.
const (
	minPlausibleMs = 80
	maxPlausibleMs = 2000
)

const maxUserAgentLen = 300

type ScoreStore interface {
	// RecordScore completes the session and inserts its score in one
	// transaction. Returns false when no session with the given id is
	// open for submission (unknown, unconsented, or already completed).
	RecordScore(sc *Score, userAgent string, screenW, screenH *int) (bool, error)
	Leaderboard() ([]*LeaderboardEntry, error)
	SoftDeletePlayer(playerID int64) (bool, error)
}

// ScoreService validates and records submitted reaction times and
// serves the derived leaderboard.
type ScoreService struct {
	store ScoreStore
}

type SubmitRequest struct {
	SessionID string
	RTMs      *float64
	UserAgent string
	ScreenW   *int
	ScreenH   *int
}

func NewScoreService(store ScoreStore) *ScoreService {
	return &ScoreService{store: store}
}

// SubmitScore records exactly one trial against a consented, open
// session and marks the session completed. A second submission for the
// same session fails: the completion check and the score insert are a
// single unit of work in the store.
func (s *ScoreService) SubmitScore(req SubmitRequest) error {
	if req.SessionID == "" || req.RTMs == nil {
		return NewInvalidError("session and rt_ms required")
	}
	sc := &Score{
		SessionID: req.SessionID,
		TrialIdx:  1,
		RTMsRaw:   *req.RTMs,
		RTMsClean: cleanRT(*req.RTMs),
	}
	ok, err := s.store.RecordScore(sc, truncateUA(req.UserAgent), req.ScreenW, req.ScreenH)
	if err != nil {
		return err
	}
	if !ok {
		return NewNotFoundError("invalid session")
	}
	return nil
}

// Leaderboard returns the derived ranking, fastest best time first.
func (s *ScoreService) Leaderboard() ([]*LeaderboardEntry, error) {
	rows, err := s.store.Leaderboard()
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []*LeaderboardEntry{}
	}
	return rows, nil
}

// DeletePlayer soft-deletes the player and cascades the flag to all of
// their scores. Rows stay in storage for audit.
func (s *ScoreService) DeletePlayer(playerID int64) error {
	ok, err := s.store.SoftDeletePlayer(playerID)
	if err != nil {
		return err
	}
	if !ok {
		return NewNotFoundError("player not found")
	}
	return nil
}

// ExportLeaderboard renders the leaderboard as a CSV attachment body.
func (s *ScoreService) ExportLeaderboard() ([]byte, error) {
	rows, err := s.Leaderboard()
	if err != nil {
		return nil, err
	}
	return ExportLeaderboardCSV(rows)
}

func cleanRT(raw float64) *float64 {
	if raw < minPlausibleMs || raw > maxPlausibleMs {
		return nil
	}
	v := raw
	return &v
}

func truncateUA(ua string) string {
	r := []rune(ua)
	if len(r) > maxUserAgentLen {
		return string(r[:maxUserAgentLen])
	}
	return ua
}
