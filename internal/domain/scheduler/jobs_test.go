package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/smartsaas/smartsaas-api/internal/config"
	"github.com/smartsaas/smartsaas-api/internal/domain/account"
	"github.com/smartsaas/smartsaas-api/internal/domain/ledger"
)

type fakeAccounts struct {
	inactive []*account.Account
	all      []*account.Account
}

func (f *fakeAccounts) ListInactiveSince(ctx context.Context, cutoff time.Time, limit, offset int) ([]*account.Account, error) {
	return page(f.inactive, limit, offset), nil
}

func (f *fakeAccounts) List(ctx context.Context, limit, offset int) ([]*account.Account, error) {
	return page(f.all, limit, offset), nil
}

func page(accounts []*account.Account, limit, offset int) []*account.Account {
	if offset >= len(accounts) {
		return nil
	}
	end := offset + limit
	if end > len(accounts) {
		end = len(accounts)
	}
	return accounts[offset:end]
}

type fakeGranter struct {
	granted    []uuid.UUID
	failFor    uuid.UUID
	claimedFor uuid.UUID
}

func (f *fakeGranter) ClaimDaily(ctx context.Context, accountID uuid.UUID) (*ledger.Entry, error) {
	if accountID == f.failFor {
		return nil, errors.New("account gone")
	}
	if accountID == f.claimedFor {
		return nil, ledger.ErrDailyAlreadyClaimed
	}
	f.granted = append(f.granted, accountID)
	return &ledger.Entry{ID: uuid.New(), AccountID: accountID, AmountDelta: 10}, nil
}

type fakeStats struct {
	active map[uuid.UUID]int
}

func (f *fakeStats) WeeklyStats(ctx context.Context, accountID uuid.UUID, since time.Time) (*ledger.WeeklyStats, error) {
	return &ledger.WeeklyStats{EntriesCount: f.active[accountID], TokensEarned: f.active[accountID] * 10}, nil
}

type fakeNotifier struct {
	events []string
	ids    []uuid.UUID
}

func (f *fakeNotifier) Notify(ctx context.Context, accountID uuid.UUID, event string, payload map[string]interface{}) {
	f.events = append(f.events, event)
	f.ids = append(f.ids, accountID)
}

func testSchedulerConfig() config.Scheduler {
	return config.Scheduler{
		WakeInterval: time.Minute,
		DailyAt:      "10:00",
		WeeklyDay:    time.Monday,
		WeeklyAt:     "09:00",
		InactiveDays: 2,
	}
}

func TestDailyRewardJobSkipsFailedGrants(t *testing.T) {
	good := &account.Account{ID: uuid.New()}
	bad := &account.Account{ID: uuid.New()}

	accounts := &fakeAccounts{inactive: []*account.Account{bad, good}}
	granter := &fakeGranter{failFor: bad.ID}
	notifier := &fakeNotifier{}

	job, err := NewDailyRewardJob(testSchedulerConfig(), accounts, granter, notifier)
	if err != nil {
		t.Fatalf("job construction failed: %v", err)
	}

	if err := job.Run(context.Background(), time.Now()); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if len(granter.granted) != 1 || granter.granted[0] != good.ID {
		t.Fatalf("expected one grant for the good account, got %v", granter.granted)
	}
	if len(notifier.events) != 1 || notifier.events[0] != "credits_reminder" {
		t.Fatalf("expected one credits_reminder event, got %v", notifier.events)
	}
}

func TestDailyRewardJobSkipsClaimedAccounts(t *testing.T) {
	claimed := &account.Account{ID: uuid.New()}
	fresh := &account.Account{ID: uuid.New()}

	accounts := &fakeAccounts{inactive: []*account.Account{claimed, fresh}}
	granter := &fakeGranter{claimedFor: claimed.ID}
	notifier := &fakeNotifier{}

	job, err := NewDailyRewardJob(testSchedulerConfig(), accounts, granter, notifier)
	if err != nil {
		t.Fatalf("job construction failed: %v", err)
	}

	if err := job.Run(context.Background(), time.Now()); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	// Already-claimed accounts are skipped silently: no grant, no event
	if len(granter.granted) != 1 || granter.granted[0] != fresh.ID {
		t.Fatalf("expected one grant for the fresh account, got %v", granter.granted)
	}
	if len(notifier.ids) != 1 || notifier.ids[0] != fresh.ID {
		t.Fatalf("expected one notification for the fresh account, got %v", notifier.ids)
	}
}

func TestDailyRewardJobPaginates(t *testing.T) {
	var inactive []*account.Account
	for i := 0; i < jobPageSize+5; i++ {
		inactive = append(inactive, &account.Account{ID: uuid.New()})
	}

	accounts := &fakeAccounts{inactive: inactive}
	granter := &fakeGranter{}

	job, err := NewDailyRewardJob(testSchedulerConfig(), accounts, granter, nil)
	if err != nil {
		t.Fatalf("job construction failed: %v", err)
	}

	if err := job.Run(context.Background(), time.Now()); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if len(granter.granted) != jobPageSize+5 {
		t.Fatalf("expected %d grants, got %d", jobPageSize+5, len(granter.granted))
	}
}

func TestWeeklyReportJobSkipsSilentAccounts(t *testing.T) {
	active := &account.Account{ID: uuid.New()}
	silent := &account.Account{ID: uuid.New()}

	accounts := &fakeAccounts{all: []*account.Account{active, silent}}
	stats := &fakeStats{active: map[uuid.UUID]int{active.ID: 7}}
	notifier := &fakeNotifier{}

	job, err := NewWeeklyReportJob(testSchedulerConfig(), accounts, stats, notifier)
	if err != nil {
		t.Fatalf("job construction failed: %v", err)
	}

	if err := job.Run(context.Background(), time.Now()); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if len(notifier.ids) != 1 || notifier.ids[0] != active.ID {
		t.Fatalf("expected report only for the active account, got %v", notifier.ids)
	}
	if notifier.events[0] != "weekly_report" {
		t.Fatalf("unexpected event %q", notifier.events[0])
	}
}

func TestDailyRewardJobRejectsBadClock(t *testing.T) {
	cfg := testSchedulerConfig()
	cfg.DailyAt = "25:99"

	if _, err := NewDailyRewardJob(cfg, &fakeAccounts{}, &fakeGranter{}, nil); err == nil {
		t.Fatal("expected error for invalid clock")
	}
}
