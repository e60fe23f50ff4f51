package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/set-night/earnapp/internal/domain"
	"github.com/set-night/earnapp/internal/ledger"
	"github.com/set-night/earnapp/internal/metrics"
)

// MembershipChecker asks the messaging platform whether a user joined a chat.
type MembershipChecker interface {
	IsMember(ctx context.Context, chatID, userID string) (bool, error)
}

// maxCheckFailures consecutive API errors fail a verification early.
const maxCheckFailures = 5

type verification struct {
	state  atomic.Value // domain.ClaimState
	cancel context.CancelFunc
}

func (v *verification) load() domain.ClaimState {
	return v.state.Load().(domain.ClaimState)
}

// Verifier polls membership for social and partnership tasks. Polling runs
// in the background and survives the request that started it; Stop ends
// every running poll.
type Verifier struct {
	store    ledger.Store
	checker  MembershipChecker
	interval time.Duration
	attempts int

	jobs sync.Map // user|task -> *verification

	root context.Context
	stop context.CancelFunc
	wg   sync.WaitGroup
}

func NewVerifier(store ledger.Store, checker MembershipChecker, interval time.Duration, attempts int) *Verifier {
	root, stop := context.WithCancel(context.Background())
	return &Verifier{
		store:    store,
		checker:  checker,
		interval: interval,
		attempts: attempts,
		root:     root,
		stop:     stop,
	}
}

func jobKey(userID, taskID string) string {
	return userID + "|" + taskID
}

// Start begins polling unless a poll for the same task is already running.
func (v *Verifier) Start(ctx context.Context, userID string, task domain.Task) domain.ClaimState {
	if task.ChatID == "" {
		slog.Warn("verification task has no chat", "task_id", task.ID)
	}

	jobCtx, cancel := context.WithCancel(v.root)
	job := &verification{cancel: cancel}
	job.state.Store(domain.StatePendingVerification)

	key := jobKey(userID, task.ID)
	for {
		existing, loaded := v.jobs.LoadOrStore(key, job)
		if !loaded {
			break
		}
		cur := existing.(*verification)
		if cur.load() == domain.StatePendingVerification {
			cancel()
			return domain.StatePendingVerification
		}
		if v.jobs.CompareAndSwap(key, cur, job) {
			break
		}
	}

	slog.Debug("membership verification started", "user_id", userID, "task_id", task.ID, "chat_id", task.ChatID)

	v.wg.Add(1)
	go func() {
		defer v.wg.Done()
		defer cancel()
		v.poll(jobCtx, key, job, userID, task)
	}()
	return domain.StatePendingVerification
}

func (v *Verifier) poll(ctx context.Context, key string, job *verification, userID string, task domain.Task) {
	ticker := time.NewTicker(v.interval)
	defer ticker.Stop()

	failures := 0
	for attempt := 1; attempt <= v.attempts; attempt++ {
		select {
		case <-ctx.Done():
			v.fail(job, userID, task, "cancelled")
			return
		case <-ticker.C:
		}

		ok, err := v.checker.IsMember(ctx, task.ChatID, userID)
		if err != nil {
			failures++
			slog.Warn("membership check failed",
				"user_id", userID, "task_id", task.ID, "attempt", attempt, "error", err)
			if failures >= maxCheckFailures {
				v.fail(job, userID, task, "api_error")
				return
			}
			continue
		}
		failures = 0
		if !ok {
			continue
		}

		err = v.store.Update(ctx, map[string]any{
			ledger.ClaimPath(userID, task.Category, task.ID): domain.PendingClaim,
		})
		if err != nil {
			slog.Error("failed to record verified task", "user_id", userID, "task_id", task.ID, "error", err)
			v.fail(job, userID, task, "store_error")
			return
		}

		// The claim record now carries the state.
		v.jobs.CompareAndDelete(key, job)
		metrics.Verifications.WithLabelValues("verified").Inc()
		slog.Info("membership verified", "user_id", userID, "task_id", task.ID, "attempts", attempt)
		return
	}

	v.fail(job, userID, task, "exhausted")
}

func (v *Verifier) fail(job *verification, userID string, task domain.Task, reason string) {
	job.state.Store(domain.StateFailed)
	metrics.Verifications.WithLabelValues(reason).Inc()
	slog.Info("membership verification failed", "user_id", userID, "task_id", task.ID, "reason", reason)
}

// Status reports the transient verification state, if a poll exists.
func (v *Verifier) Status(userID, taskID string) (domain.ClaimState, bool) {
	job, ok := v.jobs.Load(jobKey(userID, taskID))
	if !ok {
		return "", false
	}
	return job.(*verification).load(), true
}

// Retry restarts a failed verification.
func (v *Verifier) Retry(ctx context.Context, userID string, task domain.Task) (domain.ClaimState, error) {
	state, ok := v.Status(userID, task.ID)
	if !ok || state != domain.StateFailed {
		return state, fmt.Errorf("retry %s: %w", task.ID, domain.ErrPreconditionNotMet)
	}
	return v.Start(ctx, userID, task), nil
}

// Cancel stops a running poll, which then ends as failed.
func (v *Verifier) Cancel(userID, taskID string) {
	if job, ok := v.jobs.Load(jobKey(userID, taskID)); ok {
		job.(*verification).cancel()
	}
}

func (v *Verifier) Stop() {
	v.stop()
	v.wg.Wait()
}
