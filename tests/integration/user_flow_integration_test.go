//go:build integration

package integration_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"
)

func baseURL() string {
	if v := os.Getenv("REFLEX_TEST_BASE_URL"); strings.TrimSpace(v) != "" {
		return strings.TrimRight(v, "/")
	}
	return "http://127.0.0.1:18080"
}

func adminToken(t *testing.T) string {
	tok := os.Getenv("REFLEX_TEST_ADMIN_TOKEN")
	if tok == "" {
		t.Skip("REFLEX_TEST_ADMIN_TOKEN not set; skipping admin steps")
	}
	return tok
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, headers map[string]string, out any) int {
	t.Helper()
	var buf io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		buf = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, url, buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			t.Fatalf("decode %s %s (%d): %v: %s", method, url, resp.StatusCode, err, data)
		}
	}
	return resp.StatusCode
}

func TestReactionFlowIntegration(t *testing.T) {
	client := &http.Client{Timeout: 5 * time.Second}
	base := baseURL()

	var health struct {
		OK bool `json:"ok"`
	}
	if code := doJSON(t, client, http.MethodGet, base+"/api/health", nil, nil, &health); code != http.StatusOK || !health.OK {
		t.Fatalf("health check failed: %d %+v", code, health)
	}

	name := fmt.Sprintf("Integration %d", time.Now().UnixNano())
	var start struct {
		Session  string `json:"session"`
		PlayerID int64  `json:"player_id"`
	}
	if code := doJSON(t, client, http.MethodPost, base+"/api/start", map[string]string{"name": name}, nil, &start); code != http.StatusOK {
		t.Fatalf("start: status %d", code)
	}
	if start.Session == "" || start.PlayerID == 0 {
		t.Fatalf("unexpected start response: %+v", start)
	}

	if code := doJSON(t, client, http.MethodPost, base+"/api/consent", map[string]string{"session": start.Session}, nil, nil); code != http.StatusOK {
		t.Fatalf("consent: status %d", code)
	}

	if code := doJSON(t, client, http.MethodPost, base+"/api/submit", map[string]any{
		"session": start.Session,
		"rt_ms":   237,
		"ua":      "integration-test",
		"screen":  map[string]int{"w": 1280, "h": 720},
	}, nil, nil); code != http.StatusOK {
		t.Fatalf("submit: status %d", code)
	}

	// Replay is rejected without revealing whether the id ever existed.
	if code := doJSON(t, client, http.MethodPost, base+"/api/submit", map[string]any{
		"session": start.Session,
		"rt_ms":   300,
	}, nil, nil); code != http.StatusBadRequest {
		t.Fatalf("replayed submit: status %d, want 400", code)
	}

	var rows []struct {
		PlayerID int64   `json:"player_id"`
		Name     string  `json:"name"`
		BestMs   float64 `json:"best_ms"`
		Tries    int     `json:"tries"`
	}
	if code := doJSON(t, client, http.MethodGet, base+"/api/leaderboard", nil, nil, &rows); code != http.StatusOK {
		t.Fatalf("leaderboard: status %d", code)
	}
	found := false
	for _, r := range rows {
		if r.PlayerID == start.PlayerID {
			found = true
			if r.BestMs != 237 || r.Tries != 1 {
				t.Fatalf("unexpected entry: %+v", r)
			}
		}
	}
	if !found {
		t.Fatalf("player %d missing from leaderboard", start.PlayerID)
	}

	tok := adminToken(t)
	if code := doJSON(t, client, http.MethodDelete,
		fmt.Sprintf("%s/api/players/%d", base, start.PlayerID), nil,
		map[string]string{"X-Admin-Token": tok}, nil); code != http.StatusOK {
		t.Fatalf("delete player: status %d", code)
	}

	rows = rows[:0]
	if code := doJSON(t, client, http.MethodGet, base+"/api/leaderboard", nil, nil, &rows); code != http.StatusOK {
		t.Fatalf("leaderboard after delete: status %d", code)
	}
	for _, r := range rows {
		if r.PlayerID == start.PlayerID {
			t.Fatalf("deleted player still ranked: %+v", r)
		}
	}
}
