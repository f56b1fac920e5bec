// Package ranking produces the per-broadcaster leaderboard: grouped lifetime
// score totals with best-effort profile enrichment.
package ranking

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/onnwee/viewers-leaderboard/db"
	"github.com/onnwee/viewers-leaderboard/telemetry"
	"github.com/onnwee/viewers-leaderboard/twitchapi"
)

// Row is one leaderboard entry in rank order. ProfilePicture is null when
// enrichment failed or was skipped for that viewer.
type Row struct {
	Username       string  `json:"username"`
	Score          int64   `json:"score"`
	ProfilePicture *string `json:"profile_picture"`
}

// SumSource is the read side of score persistence. *db.Store implements it.
type SumSource interface {
	LeaderboardSums(ctx context.Context, broadcasterID string) ([]db.RankSum, error)
}

// UserLookup is the slice of the Helix client used for enrichment.
type UserLookup interface {
	GetUser(ctx context.Context, login string) (*twitchapi.User, error)
}

// Aggregator assembles ranked leaderboards. Read-only with respect to the
// score store.
type Aggregator struct {
	Sums  SumSource
	Users UserLookup // nil disables enrichment
	// EnrichTimeout bounds each profile lookup; defaults to 3s.
	EnrichTimeout time.Duration
	// MaxConcurrent bounds the enrichment fan-out; defaults to 8.
	MaxConcurrent int
}

// Rank returns the leaderboard for a broadcaster: lifetime totals across all
// sessions, descending. Profile lookups run concurrently; a failure for one
// viewer leaves that row's picture null and never fails the response.
func (a *Aggregator) Rank(ctx context.Context, broadcasterID string) ([]Row, error) {
	sums, err := a.Sums.LeaderboardSums(ctx, broadcasterID)
	if err != nil {
		return nil, err
	}
	rows := make([]Row, len(sums))
	for i, s := range sums {
		rows[i] = Row{Username: s.Username, Score: s.Total}
	}
	if a.Users == nil || len(rows) == 0 {
		return rows, nil
	}

	timeout := a.EnrichTimeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	limit := a.MaxConcurrent
	if limit <= 0 {
		limit = 8
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i := range rows {
		g.Go(func() error {
			lctx, cancel := context.WithTimeout(gctx, timeout)
			defer cancel()
			user, err := a.Users.GetUser(lctx, rows[i].Username)
			if err != nil {
				// Failure is isolated to this row; no retry.
				telemetry.CountEnrichmentFailure()
				slog.Warn("profile enrichment failed",
					slog.String("username", rows[i].Username), slog.Any("err", err))
				return nil
			}
			if user.ProfileImageURL != "" {
				rows[i].ProfilePicture = &user.ProfileImageURL
			}
			return nil
		})
	}
	_ = g.Wait() // goroutines never return errors
	return rows, nil
}
