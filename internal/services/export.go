package services

import (
	"bytes"
	"encoding/csv"
	"strconv"
)

// ExportLeaderboardCSV renders leaderboard rows into CSV with the
// download header row. Row order is preserved from the input.
func ExportLeaderboardCSV(rows []*LeaderboardEntry) ([]byte, error) {
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	_ = w.Write([]string{"Name", "Best Time (ms)", "Mean Time (ms)", "Tries"})
	for _, r := range rows {
		rec := []string{
			r.Name,
			strconv.FormatFloat(r.BestMs, 'f', -1, 64),
			strconv.FormatInt(r.MeanMs, 10),
			strconv.Itoa(r.Tries),
		}
		if err := w.Write(rec); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}
