package ledger

import (
	"context"
	"testing"

	"github.com/google/uuid"
)

// captureRepo records the limit History hands to the store.
type captureRepo struct {
	Repository
	gotLimit int
}

func (c *captureRepo) ListByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]Entry, error) {
	c.gotLimit = limit
	return nil, nil
}

func TestHistoryLimitClamped(t *testing.T) {
	repo := &captureRepo{}
	svc := &Service{repo: repo}

	cases := []struct{ in, want int }{
		{0, 20},
		{-5, 20},
		{50, 50},
		{100, 100},
		{1000000, 100},
	}

	for _, tc := range cases {
		if _, err := svc.History(context.Background(), uuid.New(), tc.in, 0); err != nil {
			t.Fatalf("history with limit %d failed: %v", tc.in, err)
		}
		if repo.gotLimit != tc.want {
			t.Fatalf("limit %d: expected %d passed to the store, got %d", tc.in, tc.want, repo.gotLimit)
		}
	}
}
