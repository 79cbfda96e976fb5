package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/smartsaas/smartsaas-api/internal/config"
	"github.com/smartsaas/smartsaas-api/internal/domain/account"
	"github.com/smartsaas/smartsaas-api/internal/domain/ledger"
)

const jobPageSize = 100

type accountSource interface {
	ListInactiveSince(ctx context.Context, cutoff time.Time, limit, offset int) ([]*account.Account, error)
	List(ctx context.Context, limit, offset int) ([]*account.Account, error)
}

type rewardGranter interface {
	// ClaimDaily shares its once-per-day dedup with the manual claim
	// endpoint, so job and user can never both grant on the same day.
	ClaimDaily(ctx context.Context, accountID uuid.UUID) (*ledger.Entry, error)
}

type statsSource interface {
	WeeklyStats(ctx context.Context, accountID uuid.UUID, since time.Time) (*ledger.WeeklyStats, error)
}

// Notifier delivers job-generated events to accounts.
type Notifier interface {
	Notify(ctx context.Context, accountID uuid.UUID, event string, payload map[string]interface{})
}

// DailyRewardJob grants a comeback bonus to accounts that have not logged
// in for the configured number of days.
type DailyRewardJob struct {
	accounts     accountSource
	rewards      rewardGranter
	notifier     Notifier
	inactiveDays int
	hour, minute int
}

// NewDailyRewardJob creates the daily comeback job.
func NewDailyRewardJob(cfg config.Scheduler, accounts accountSource, granter rewardGranter, notifier Notifier) (*DailyRewardJob, error) {
	hour, minute, err := parseClock(cfg.DailyAt)
	if err != nil {
		return nil, err
	}
	return &DailyRewardJob{
		accounts:     accounts,
		rewards:      granter,
		notifier:     notifier,
		inactiveDays: cfg.InactiveDays,
		hour:         hour,
		minute:       minute,
	}, nil
}

func (j *DailyRewardJob) Name() string { return "daily_comeback_reward" }

func (j *DailyRewardJob) Next(after time.Time) time.Time {
	return nextDaily(after, j.hour, j.minute)
}

// Run sweeps inactive accounts in pages. Per-account failures are logged
// and skipped so one bad row never aborts the sweep.
func (j *DailyRewardJob) Run(ctx context.Context, now time.Time) error {
	cutoff := now.AddDate(0, 0, -j.inactiveDays)

	var granted int
	for offset := 0; ; offset += jobPageSize {
		accounts, err := j.accounts.ListInactiveSince(ctx, cutoff, jobPageSize, offset)
		if err != nil {
			return err
		}

		for _, acc := range accounts {
			entry, err := j.rewards.ClaimDaily(ctx, acc.ID)
			if err != nil {
				if errors.Is(err, ledger.ErrDailyAlreadyClaimed) {
					continue
				}
				log.Warn().Err(err).
					Str("account_id", acc.ID.String()).
					Msg("comeback reward grant failed")
				continue
			}
			granted++

			if j.notifier != nil {
				j.notifier.Notify(ctx, acc.ID, "credits_reminder", map[string]interface{}{
					"reward": entry.AmountDelta,
				})
			}
		}

		if len(accounts) < jobPageSize {
			break
		}
	}

	log.Info().Int("granted", granted).Msg("comeback reward sweep finished")
	return nil
}

// WeeklyReportJob sends each active account a digest of its last seven
// days of ledger activity.
type WeeklyReportJob struct {
	accounts     accountSource
	stats        statsSource
	notifier     Notifier
	day          time.Weekday
	hour, minute int
}

// NewWeeklyReportJob creates the weekly report job.
func NewWeeklyReportJob(cfg config.Scheduler, accounts accountSource, stats statsSource, notifier Notifier) (*WeeklyReportJob, error) {
	hour, minute, err := parseClock(cfg.WeeklyAt)
	if err != nil {
		return nil, err
	}
	return &WeeklyReportJob{
		accounts: accounts,
		stats:    stats,
		notifier: notifier,
		day:      cfg.WeeklyDay,
		hour:     hour,
		minute:   minute,
	}, nil
}

func (j *WeeklyReportJob) Name() string { return "weekly_report" }

func (j *WeeklyReportJob) Next(after time.Time) time.Time {
	return nextWeekly(after, j.day, j.hour, j.minute)
}

// Run walks all accounts and notifies the ones with activity in the
// window. Silent accounts get no report.
func (j *WeeklyReportJob) Run(ctx context.Context, now time.Time) error {
	since := now.AddDate(0, 0, -7)

	var sent int
	for offset := 0; ; offset += jobPageSize {
		accounts, err := j.accounts.List(ctx, jobPageSize, offset)
		if err != nil {
			return err
		}

		for _, acc := range accounts {
			stats, err := j.stats.WeeklyStats(ctx, acc.ID, since)
			if err != nil {
				log.Warn().Err(err).
					Str("account_id", acc.ID.String()).
					Msg("weekly stats lookup failed")
				continue
			}
			if stats.EntriesCount == 0 {
				continue
			}

			if j.notifier != nil {
				j.notifier.Notify(ctx, acc.ID, "weekly_report", map[string]interface{}{
					"tokens_earned": stats.TokensEarned,
					"entries_count": stats.EntriesCount,
					"new_referrals": stats.NewReferrals,
				})
			}
			sent++
		}

		if len(accounts) < jobPageSize {
			break
		}
	}

	log.Info().Int("sent", sent).Msg("weekly report sweep finished")
	return nil
}
