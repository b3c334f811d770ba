package loadgen

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/turnlat/pkg/logger"
)

// Run executes a complete load run: health check, generation, submission,
// close and verification. It returns an error if any session failed.
func Run(ctx context.Context, cfg Config) (*Stats, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := logger.Named("loadgen")
	stats := &Stats{StartTime: time.Now()}

	log.Info(ctx, "starting turnlat load run",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("sessions", cfg.Sessions),
		logger.Int("turns", cfg.Turns),
		logger.Int("workers", cfg.Workers),
		logger.Any("seed", cfg.Seed))

	client := NewClient(cfg.BaseURL, cfg.Timeout)
	if err := client.Health(ctx); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	plans := Generate(ctx, cfg)
	stats.SessionsPlanned = len(plans)

	var (
		submitted, rejected, retries, verified, failed int64
		wg                                             sync.WaitGroup
	)
	planCh := make(chan Plan, cfg.Workers)

	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for plan := range planCh {
				res := drive(ctx, client, plan)
				atomic.AddInt64(&submitted, int64(res.submitted))
				atomic.AddInt64(&rejected, int64(res.rejected))
				atomic.AddInt64(&retries, int64(res.retries))
				if res.err != nil {
					atomic.AddInt64(&failed, 1)
					log.Warn(ctx, "session failed", logger.String("session", plan.SessionID), logger.Error(res.err))
					continue
				}
				atomic.AddInt64(&verified, 1)
				if cfg.Verbose {
					log.Info(ctx, "session verified",
						logger.String("session", plan.SessionID),
						logger.Int("turns", plan.ExpectedTurns),
						logger.Millis("total", plan.ExpectedTotal))
				}
			}
		}()
	}

	go func() {
		defer close(planCh)
		for _, p := range plans {
			select {
			case <-ctx.Done():
				return
			case planCh <- p:
			}
		}
	}()
	wg.Wait()

	stats.EventsSubmitted = int(submitted)
	stats.EventsRejected = int(rejected)
	stats.Retries = int(retries)
	stats.SessionsVerified = int(verified)
	stats.SessionsFailed = int(failed)
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, log, stats)

	if err := ctx.Err(); err != nil {
		return stats, err
	}
	if stats.SessionsFailed > 0 || stats.SessionsVerified < stats.SessionsPlanned {
		return stats, fmt.Errorf("%w: %d of %d sessions failed verification",
			ErrMismatch, stats.SessionsPlanned-stats.SessionsVerified, stats.SessionsPlanned)
	}
	return stats, nil
}

type driveResult struct {
	submitted int
	rejected  int
	retries   int
	err       error
}

// drive posts one session's events in order, closes it and verifies both the
// close response and the stored report.
func drive(ctx context.Context, client *Client, plan Plan) driveResult {
	var res driveResult
	if err := client.OpenSession(ctx, plan.SessionID); err != nil {
		res.err = fmt.Errorf("open: %w", err)
		return res
	}
	for _, ev := range plan.Events {
		n, err := client.PostEvent(ctx, ev)
		res.retries += n
		if err != nil {
			res.rejected++
			res.err = fmt.Errorf("post event %s: %w", ev.EventID, err)
			return res
		}
		res.submitted++
	}

	closed, err := client.CloseSession(ctx, plan.SessionID)
	if err != nil {
		res.err = fmt.Errorf("close: %w", err)
		return res
	}
	if err := Verify(plan, closed); err != nil {
		res.err = err
		return res
	}
	stored, err := client.Report(ctx, plan.SessionID)
	if err != nil {
		res.err = fmt.Errorf("fetch report: %w", err)
		return res
	}
	res.err = Verify(plan, stored)
	return res
}

func displayFinalStats(ctx context.Context, log logger.Logger, stats *Stats) {
	var eventsPerSecond float64
	if stats.Duration > 0 {
		eventsPerSecond = float64(stats.EventsSubmitted) / stats.Duration.Seconds()
	}
	log.Info(ctx, "final statistics",
		logger.Int("sessionsPlanned", stats.SessionsPlanned),
		logger.Int("sessionsVerified", stats.SessionsVerified),
		logger.Int("sessionsFailed", stats.SessionsFailed),
		logger.Int("eventsSubmitted", stats.EventsSubmitted),
		logger.Int("eventsRejected", stats.EventsRejected),
		logger.Int("retries", stats.Retries),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("eventsPerSecond", eventsPerSecond))
}
