package ranking

import (
	"context"
	"errors"
	"testing"

	"github.com/onnwee/viewers-leaderboard/db"
	"github.com/onnwee/viewers-leaderboard/twitchapi"
)

type fakeSums struct {
	sums []db.RankSum
	err  error
}

func (f *fakeSums) LeaderboardSums(ctx context.Context, broadcasterID string) ([]db.RankSum, error) {
	return f.sums, f.err
}

type fakeUsers struct {
	pictures map[string]string
	failFor  map[string]bool
}

func (f *fakeUsers) GetUser(ctx context.Context, login string) (*twitchapi.User, error) {
	if f.failFor[login] {
		return nil, errors.New("helix 500")
	}
	return &twitchapi.User{Login: login, ProfileImageURL: f.pictures[login]}, nil
}

func TestAggregatorRank(t *testing.T) {
	sums := &fakeSums{sums: []db.RankSum{
		{Username: "alice", Total: 10},
		{Username: "bob", Total: 7},
		{Username: "carol", Total: 3},
	}}
	users := &fakeUsers{
		pictures: map[string]string{
			"alice": "https://cdn.example/alice.png",
			"carol": "https://cdn.example/carol.png",
		},
		failFor: map[string]bool{"bob": true},
	}

	a := &Aggregator{Sums: sums, Users: users}
	rows, err := a.Rank(context.Background(), "111")
	if err != nil {
		t.Fatalf("Rank() error = %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("Rank() returned %d rows, want 3", len(rows))
	}

	// Order must match the store's ordering.
	wantOrder := []string{"alice", "bob", "carol"}
	for i, want := range wantOrder {
		if rows[i].Username != want {
			t.Errorf("rows[%d].Username = %s, want %s", i, rows[i].Username, want)
		}
	}

	if rows[0].ProfilePicture == nil || *rows[0].ProfilePicture != "https://cdn.example/alice.png" {
		t.Errorf("alice profile picture = %v", rows[0].ProfilePicture)
	}
	// bob's lookup failed: his row survives with a null picture.
	if rows[1].ProfilePicture != nil {
		t.Errorf("bob profile picture = %v, want nil", *rows[1].ProfilePicture)
	}
	if rows[2].ProfilePicture == nil {
		t.Error("carol profile picture = nil, want set")
	}
}

func TestAggregatorRankEmptyLeaderboard(t *testing.T) {
	a := &Aggregator{Sums: &fakeSums{}, Users: &fakeUsers{}}
	rows, err := a.Rank(context.Background(), "111")
	if err != nil {
		t.Fatalf("Rank() error = %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("Rank() returned %d rows, want 0", len(rows))
	}
}

func TestAggregatorRankSumError(t *testing.T) {
	a := &Aggregator{Sums: &fakeSums{err: errors.New("db down")}, Users: &fakeUsers{}}
	if _, err := a.Rank(context.Background(), "111"); err == nil {
		t.Error("Rank() error = nil, want store error")
	}
}

func TestAggregatorRankWithoutEnrichment(t *testing.T) {
	a := &Aggregator{Sums: &fakeSums{sums: []db.RankSum{{Username: "alice", Total: 1}}}}
	rows, err := a.Rank(context.Background(), "111")
	if err != nil {
		t.Fatalf("Rank() error = %v", err)
	}
	if rows[0].ProfilePicture != nil {
		t.Error("profile picture set with enrichment disabled")
	}
}
