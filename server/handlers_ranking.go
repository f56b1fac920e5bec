package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/onnwee/viewers-leaderboard/ranking"
	"github.com/onnwee/viewers-leaderboard/telemetry"
)

// HandleRanking serves GET /ranking/{broadcaster_id}: the lifetime leaderboard
// for a channel, in rank order, with best-effort profile pictures.
func (h *Handlers) HandleRanking(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	broadcasterID := strings.TrimPrefix(r.URL.Path, "/ranking/")
	if broadcasterID == "" || strings.Contains(broadcasterID, "/") {
		http.NotFound(w, r)
		return
	}
	ctx := r.Context()

	var (
		rows []ranking.Row
		err  error
	)
	telemetry.TimeFunc(telemetry.RankingDuration, func() {
		rows, err = h.ranker.Rank(ctx, broadcasterID)
	})
	if err != nil {
		telemetry.LoggerWithCorr(ctx).Error("leaderboard assembly failed",
			slog.Any("err", err), slog.String("broadcaster_id", broadcasterID))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if rows == nil {
		rows = []ranking.Row{}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(rows)
}
