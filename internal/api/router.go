package api

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/reflexlab/reflex/internal/middleware"
	"github.com/reflexlab/reflex/internal/services"
)

type Config struct {
	Sessions *services.SessionService
	Scores   *services.ScoreService
	Admin    *middleware.AdminAuth

	Commit    string
	BuildTime string
}

type handlers struct {
	cfg Config
}

// NewRouter builds the API route table. Middleware is layered on by
// the caller.
func NewRouter(cfg Config) *mux.Router {
	h := &handlers{cfg: cfg}
	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", h.health).Methods(http.MethodGet)
	api.HandleFunc("/start", h.start).Methods(http.MethodPost)
	api.HandleFunc("/consent", h.consent).Methods(http.MethodPost)
	api.HandleFunc("/submit", h.submit).Methods(http.MethodPost)
	api.HandleFunc("/leaderboard", h.leaderboard).Methods(http.MethodGet)
	api.HandleFunc("/export.csv", h.exportCSV).Methods(http.MethodGet)
	api.HandleFunc("/admin/login", h.adminLogin).Methods(http.MethodPost)
	api.Handle("/players/{id}",
		cfg.Admin.Require(http.HandlerFunc(h.deletePlayer)),
	).Methods(http.MethodDelete)
	return r
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":         true,
		"name":       "reflex",
		"commit":     h.cfg.Commit,
		"build_time": h.cfg.BuildTime,
	})
}

func (h *handlers) start(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	res, err := h.cfg.Sessions.StartSession(req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session":   res.SessionID,
		"player_id": res.PlayerID,
	})
}

func (h *handlers) consent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Session string `json:"session"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.cfg.Sessions.GiveConsent(req.Session); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *handlers) submit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Session string   `json:"session"`
		RTMs    *float64 `json:"rt_ms"`
		UA      string   `json:"ua"`
		Screen  *struct {
			W *int `json:"w"`
			H *int `json:"h"`
		} `json:"screen"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	sub := services.SubmitRequest{
		SessionID: req.Session,
		RTMs:      req.RTMs,
		UserAgent: req.UA,
	}
	if req.Screen != nil {
		sub.ScreenW = req.Screen.W
		sub.ScreenH = req.Screen.H
	}
	if err := h.cfg.Scores.SubmitScore(sub); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *handlers) leaderboard(w http.ResponseWriter, r *http.Request) {
	rows, err := h.cfg.Scores.Leaderboard()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (h *handlers) exportCSV(w http.ResponseWriter, r *http.Request) {
	data, err := h.cfg.Scores.ExportLeaderboard()
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="leaderboard.csv"`)
	_, _ = w.Write(data)
}

func (h *handlers) deletePlayer(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, services.NewInvalidError("bad player id"))
		return
	}
	if err := h.cfg.Scores.DeletePlayer(id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// adminLogin exchanges the shared secret for a short-lived bearer
// token, so the secret itself is sent once rather than per request.
func (h *handlers) adminLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if !h.cfg.Admin.VerifySecret(req.Token) {
		writeError(w, services.NewUnauthorizedError("unauthorized"))
		return
	}
	tok, ttl, err := h.cfg.Admin.SignToken()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"token":      tok,
		"expires_in": int(ttl.Seconds()),
	})
}
