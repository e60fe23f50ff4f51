package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/set-night/earnapp/internal/calendar"
	"github.com/set-night/earnapp/internal/config"
	"github.com/set-night/earnapp/internal/domain"
	"github.com/set-night/earnapp/internal/ledger"
	"github.com/set-night/earnapp/internal/metrics"
)

// ClaimSet holds a user's claim records keyed by category and task ID.
type ClaimSet map[domain.Category]map[string]domain.ClaimRecord

func (c ClaimSet) get(t domain.Task) (domain.ClaimRecord, bool) {
	rec, ok := c[t.Category][t.ID]
	return rec, ok
}

func (c ClaimSet) with(t domain.Task, rec domain.ClaimRecord) ClaimSet {
	out := make(ClaimSet, len(c)+1)
	for cat, recs := range c {
		m := make(map[string]domain.ClaimRecord, len(recs)+1)
		for id, r := range recs {
			m[id] = r
		}
		out[cat] = m
	}
	if out[t.Category] == nil {
		out[t.Category] = make(map[string]domain.ClaimRecord)
	}
	out[t.Category][t.ID] = rec
	return out
}

type TaskService struct {
	store    ledger.Store
	cal      *calendar.Calendar
	scores   *ScoreService
	history  *HistoryService
	catalog  *CatalogService
	verifier *Verifier
}

func NewTaskService(store ledger.Store, cal *calendar.Calendar, scores *ScoreService, history *HistoryService, catalog *CatalogService, verifier *Verifier) *TaskService {
	return &TaskService{
		store:    store,
		cal:      cal,
		scores:   scores,
		history:  history,
		catalog:  catalog,
		verifier: verifier,
	}
}

// Claims reads every claim record of a user in one pass.
func (s *TaskService) Claims(ctx context.Context, userID string) (ClaimSet, error) {
	items, err := ledger.ListJSON[domain.ClaimRecord](ctx, s.store, ledger.ClaimsPath(userID))
	if err != nil {
		return nil, fmt.Errorf("list claims: %w", err)
	}
	set := make(ClaimSet)
	for key, rec := range items {
		cat, id, ok := strings.Cut(key, "/")
		if !ok {
			continue
		}
		c := domain.Category(cat)
		if set[c] == nil {
			set[c] = make(map[string]domain.ClaimRecord)
		}
		set[c][id] = rec
	}
	return set, nil
}

// IsTaskDone reports whether a claim record still covers the task now.
func (s *TaskService) IsTaskDone(t domain.Task, rec domain.ClaimRecord) bool {
	if !rec.Claimed {
		return false
	}
	switch t.Cadence() {
	case domain.CadenceVideo:
		return rec.VideoURL == t.VideoURL
	case domain.CadenceDaily:
		return s.cal.SameDay(rec.LastClaimed, s.cal.Now())
	case domain.CadenceWeekly:
		return s.cal.SameWeek(rec.LastClaimed, s.cal.Now())
	default:
		return true
	}
}

func (s *TaskService) stateOf(userID string, t domain.Task, claims ClaimSet) domain.ClaimState {
	rec, ok := claims.get(t)
	if ok && s.IsTaskDone(t, rec) {
		return domain.StateClaimed
	}
	if t.NeedsVerification() && s.verifier != nil {
		if st, running := s.verifier.Status(userID, t.ID); running {
			return st
		}
	}
	if ok {
		return domain.StateClaimable
	}
	return domain.StateNotStarted
}

func (s *TaskService) State(ctx context.Context, userID string, t domain.Task) (domain.ClaimState, error) {
	claims, err := s.Claims(ctx, userID)
	if err != nil {
		return "", err
	}
	return s.stateOf(userID, t, claims), nil
}

// States derives the state of several tasks from one read of the claims.
func (s *TaskService) States(ctx context.Context, userID string, tasks []domain.Task) (map[string]domain.ClaimState, error) {
	claims, err := s.Claims(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]domain.ClaimState, len(tasks))
	for _, t := range tasks {
		out[t.ID] = s.stateOf(userID, t, claims)
	}
	return out, nil
}

// Begin records the first interaction with a task. Tasks that need a
// membership check start polling; the rest become claimable right away.
func (s *TaskService) Begin(ctx context.Context, userID string, t domain.Task) (domain.ClaimState, error) {
	claims, err := s.Claims(ctx, userID)
	if err != nil {
		return "", err
	}
	state := s.stateOf(userID, t, claims)
	switch state {
	case domain.StateClaimed, domain.StateClaimable, domain.StatePendingVerification:
		return state, nil
	}

	if t.NeedsVerification() {
		if s.verifier == nil {
			return state, fmt.Errorf("begin %s: %w", t.ID, domain.ErrVerificationRequired)
		}
		return s.verifier.Start(ctx, userID, t), nil
	}

	err = s.store.Update(ctx, map[string]any{
		ledger.ClaimPath(userID, t.Category, t.ID): domain.PendingClaim,
	})
	if err != nil {
		return state, fmt.Errorf("begin %s: %w", t.ID, err)
	}
	return domain.StateClaimable, nil
}

// Retry moves a failed verification back to pending.
func (s *TaskService) Retry(ctx context.Context, userID string, t domain.Task) (domain.ClaimState, error) {
	if s.verifier == nil || !t.NeedsVerification() {
		return "", fmt.Errorf("retry %s: %w", t.ID, domain.ErrPreconditionNotMet)
	}
	return s.verifier.Retry(ctx, userID, t)
}

// windowKey names the cadence window a claim pays for. Two claims of the
// same task with the same key must not both be paid.
func (s *TaskService) windowKey(t domain.Task) string {
	now := s.cal.Now()
	day := "d:" + s.cal.Date(now)
	week := "w:" + s.cal.Date(s.cal.WeekStart(now))

	var parts []string
	add := func(p string) {
		for _, existing := range parts {
			if existing == p {
				return
			}
		}
		parts = append(parts, p)
	}

	switch t.Category {
	case domain.CategoryDaily:
		add(day)
	case domain.CategoryWeekly:
		add(week)
	}
	switch t.Cadence() {
	case domain.CadenceDaily:
		add(day)
	case domain.CadenceWeekly:
		add(week)
	case domain.CadenceVideo:
		add("v:" + t.VideoURL)
	}

	if len(parts) == 0 {
		return "once"
	}
	return strings.Join(parts, "|")
}

func rejectReason(state domain.ClaimState) string {
	switch state {
	case domain.StateClaimed:
		return "already claimed"
	case domain.StatePendingVerification:
		return "verification in progress"
	case domain.StateFailed:
		return "verification failed"
	default:
		return "task not started"
	}
}

// Claim pays a claimable task. A task that is not claimable yields an
// unsuccessful result and no error. The score credit commits before the
// claim record is written.
func (s *TaskService) Claim(ctx context.Context, userID string, t domain.Task) (domain.ClaimResult, error) {
	result := domain.ClaimResult{TaskID: t.ID, Points: t.Points}

	claims, err := s.Claims(ctx, userID)
	if err != nil {
		return result, err
	}
	if state := s.stateOf(userID, t, claims); state != domain.StateClaimable {
		metrics.Claims.WithLabelValues("rejected").Inc()
		result.Reason = rejectReason(state)
		return result, nil
	}

	window := s.windowKey(t)
	var paid bool
	u, _, err := ledger.Mutate(ctx, s.store, ledger.UserPath(userID), func(u *domain.User, exists bool) error {
		paid = false
		if !exists {
			*u = newUserRecord(s.cal, userID, "", "")
		}
		if u.ClaimWindows[t.ID] == window {
			return ledger.ErrAbort
		}
		if err := s.scores.creditInTxn(u, t.Component(), t.Points); err != nil {
			return err
		}
		if u.ClaimWindows == nil {
			u.ClaimWindows = make(map[string]string)
		}
		u.ClaimWindows[t.ID] = window
		paid = true
		return nil
	})
	if err != nil {
		metrics.Claims.WithLabelValues("commit_failure").Inc()
		return result, commitError("claim "+t.ID, err)
	}
	result.Score = u.Score

	now := s.cal.Now()
	granted := domain.GrantedClaim(t, now)
	if err := s.store.Update(ctx, map[string]any{
		ledger.ClaimPath(userID, t.Category, t.ID): granted,
	}); err != nil {
		// The credit is durable and the window guard blocks a second payout,
		// so the next attempt repairs the record.
		slog.Error("failed to write claim record", "user_id", userID, "task_id", t.ID, "error", err)
	}

	if !paid {
		metrics.Claims.WithLabelValues("duplicate").Inc()
		result.Reason = rejectReason(domain.StateClaimed)
		return result, nil
	}

	metrics.Claims.WithLabelValues("success").Inc()
	metrics.Credits.WithLabelValues(string(t.Component())).Inc()
	result.Success = true

	if t.Category == domain.CategoryDaily {
		s.advanceIfDailyComplete(ctx, userID, claims.with(t, granted))
	}

	historyType := domain.HistoryTypeTask
	if t.Type == domain.TaskNews {
		historyType = domain.HistoryTypeNews
	}
	if _, err := s.history.Append(ctx, userID, t.Title, t.Points, historyType); err != nil {
		slog.Error("failed to append claim history", "user_id", userID, "task_id", t.ID, "error", err)
	}

	return result, nil
}

func (s *TaskService) advanceIfDailyComplete(ctx context.Context, userID string, claims ClaimSet) {
	daily, err := s.catalog.ByCategory(ctx, domain.CategoryDaily)
	if err != nil {
		slog.Error("failed to load daily tasks", "user_id", userID, "error", err)
		return
	}
	if len(daily) == 0 {
		return
	}
	for _, t := range daily {
		rec, ok := claims.get(t)
		if !ok || !s.IsTaskDone(t, rec) {
			return
		}
	}
	if _, err := s.AdvanceWeeklyProgress(ctx, userID); err != nil {
		slog.Error("failed to advance weekly progress", "user_id", userID, "error", err)
	}
}

// AdvanceWeeklyProgress counts today as a completed day of the week. It
// advances at most once per local day and restarts at 1 in a new week.
func (s *TaskService) AdvanceWeeklyProgress(ctx context.Context, userID string) (domain.WeeklyProgress, error) {
	today := s.cal.Today()
	u, _, err := ledger.Mutate(ctx, s.store, ledger.UserPath(userID), func(u *domain.User, exists bool) error {
		if !exists {
			return domain.ErrUserNotFound
		}
		wp := &u.WeeklyProgress
		if wp.LastCompletedDate == today {
			return ledger.ErrAbort
		}
		if s.cal.InCurrentWeek(wp.LastCompletedDate) {
			wp.CurrentWeekDays = min(wp.CurrentWeekDays+1, config.WeeklyProgressCap)
		} else {
			wp.CurrentWeekDays = 1
		}
		wp.LastCompletedDate = today
		return nil
	})
	if err != nil {
		return domain.WeeklyProgress{}, commitError("advance weekly progress", err)
	}
	return u.WeeklyProgress, nil
}

// DailyProgress counts the daily tasks done today.
func (s *TaskService) DailyProgress(ctx context.Context, userID string) (done, total int, err error) {
	daily, err := s.catalog.ByCategory(ctx, domain.CategoryDaily)
	if err != nil {
		return 0, 0, err
	}
	claims, err := s.Claims(ctx, userID)
	if err != nil {
		return 0, 0, err
	}
	for _, t := range daily {
		if rec, ok := claims.get(t); ok && s.IsTaskDone(t, rec) {
			done++
		}
	}
	return done, len(daily), nil
}
