package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sort"
	"strings"
	"unicode"

	"github.com/set-night/earnapp/internal/cache"
	"github.com/set-night/earnapp/internal/calendar"
	"github.com/set-night/earnapp/internal/config"
	"github.com/set-night/earnapp/internal/domain"
	"github.com/set-night/earnapp/internal/ledger"
	"github.com/set-night/earnapp/internal/metrics"
	"github.com/shopspring/decimal"
)

const (
	referralCodeLength  = 6
	referralCodeCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

	startParamPrefix = "ref_"
)

func generateReferralCode() (string, error) {
	code := make([]byte, referralCodeLength)
	for i := range code {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(referralCodeCharset))))
		if err != nil {
			return "", fmt.Errorf("random int: %w", err)
		}
		code[i] = referralCodeCharset[n.Int64()]
	}
	return string(code), nil
}

type ReferralService struct {
	store   ledger.Store
	cal     *calendar.Calendar
	scores  *ScoreService
	history *HistoryService
	markers cache.Markers
	sink    domain.EventSink

	botHost     string
	botUsername string
}

func NewReferralService(
	store ledger.Store,
	cal *calendar.Calendar,
	scores *ScoreService,
	history *HistoryService,
	markers cache.Markers,
	sink domain.EventSink,
	botHost, botUsername string,
) *ReferralService {
	if sink == nil {
		sink = domain.NopSink{}
	}
	return &ReferralService{
		store:       store,
		cal:         cal,
		scores:      scores,
		history:     history,
		markers:     markers,
		sink:        sink,
		botHost:     botHost,
		botUsername: botUsername,
	}
}

// Process records that refereeID joined through referrerID's link and pays
// both sides. Each side is its own transaction and is idempotent, so the
// whole call is safe to repeat after a partial failure.
func (s *ReferralService) Process(ctx context.Context, referrerID, refereeID string, profile domain.RefereeProfile) (domain.ReferralOutcome, error) {
	var out domain.ReferralOutcome
	if referrerID == "" || refereeID == "" {
		return out, domain.ErrInvalidReferral
	}
	if referrerID == refereeID {
		metrics.Referrals.WithLabelValues("referrer", "self").Inc()
		return out, domain.ErrSelfReferral
	}

	if s.markers != nil {
		seen, err := s.markers.Seen(ctx, refereeID)
		if err != nil {
			slog.Warn("referral marker lookup failed", "referee_id", refereeID, "error", err)
		}
		if seen {
			out.AlreadyProcessed = true
			return out, nil
		}
	}

	referrerBonus := decimal.NewFromInt(config.ReferrerBonus)
	refereeBonus := decimal.NewFromInt(config.RefereeBonus)
	now := s.cal.Now()

	var inserted bool
	_, _, err := ledger.Mutate(ctx, s.store, ledger.UserPath(referrerID), func(u *domain.User, exists bool) error {
		inserted = false
		if !exists {
			return domain.ErrUserNotFound
		}
		if _, ok := u.Referrals[refereeID]; ok {
			return ledger.ErrAbort
		}
		if u.Referrals == nil {
			u.Referrals = make(map[string]domain.Referral)
		}
		u.Referrals[refereeID] = domain.Referral{
			ID:            refereeID,
			Name:          profile.Name,
			JoinTimestamp: now,
			Status:        domain.ReferralStatusActive,
			CurrentStreak: 1,
		}
		if err := s.scores.creditInTxn(u, domain.ComponentNetwork, referrerBonus); err != nil {
			return err
		}
		inserted = true
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			metrics.Referrals.WithLabelValues("referrer", "unknown").Inc()
			return out, fmt.Errorf("referrer %s: %w", referrerID, err)
		}
		metrics.Referrals.WithLabelValues("referrer", "error").Inc()
		return out, commitError("credit referrer", err)
	}
	out.ReferrerCredited = inserted

	var credited bool
	_, _, err = ledger.Mutate(ctx, s.store, ledger.UserPath(refereeID), func(u *domain.User, exists bool) error {
		credited = false
		if !exists {
			*u = newUserRecord(s.cal, refereeID, profile.Name, profile.Username)
		} else if u.IsReferred {
			return ledger.ErrAbort
		}
		if err := s.scores.creditInTxn(u, domain.ComponentNetwork, refereeBonus); err != nil {
			return err
		}
		u.IsReferred = true
		u.ReferredBy = referrerID
		credited = true
		return nil
	})
	if err != nil {
		metrics.Referrals.WithLabelValues("referee", "error").Inc()
		return out, commitError("credit referee", err)
	}
	out.RefereeCredited = credited

	if inserted {
		metrics.Referrals.WithLabelValues("referrer", "credited").Inc()
		metrics.Credits.WithLabelValues(string(domain.ComponentNetwork)).Inc()
		if _, err := s.history.Append(ctx, referrerID, domain.HistoryActionInvite, referrerBonus, domain.HistoryTypeNetwork); err != nil {
			slog.Error("failed to log referral", "user_id", referrerID, "error", err)
		}
	}
	if credited {
		out.RefereeBonus = refereeBonus
		metrics.Referrals.WithLabelValues("referee", "credited").Inc()
		metrics.Credits.WithLabelValues(string(domain.ComponentNetwork)).Inc()
		if _, err := s.history.Append(ctx, refereeID, domain.HistoryActionJoined, refereeBonus, domain.HistoryTypeNetwork); err != nil {
			slog.Error("failed to log referral", "user_id", refereeID, "error", err)
		}
		s.sink.ReferralWelcome(ctx, domain.ReferralWelcome{
			RefereeID:  refereeID,
			ReferrerID: referrerID,
			Bonus:      refereeBonus,
		})
	}

	if s.markers != nil {
		if err := s.markers.Mark(ctx, refereeID); err != nil {
			slog.Warn("failed to set referral marker", "referee_id", refereeID, "error", err)
		}
	}

	slog.Info("referral processed",
		"referrer_id", referrerID,
		"referee_id", refereeID,
		"referrer_credited", inserted,
		"referee_credited", credited,
	)
	return out, nil
}

func (s *ReferralService) validateBotIdentity() error {
	name := s.botUsername
	switch {
	case name == "":
		return &domain.ConfigurationError{Setting: "BOT_USERNAME", Reason: "not set"}
	case strings.IndexFunc(name, unicode.IsSpace) >= 0:
		return &domain.ConfigurationError{Setting: "BOT_USERNAME", Reason: "contains whitespace"}
	case !strings.HasSuffix(strings.ToLower(name), "bot"):
		return &domain.ConfigurationError{Setting: "BOT_USERNAME", Reason: "must end with \"bot\""}
	}
	if s.botHost == "" || strings.IndexFunc(s.botHost, unicode.IsSpace) >= 0 {
		return &domain.ConfigurationError{Setting: "BOT_HOST", Reason: "invalid host"}
	}
	return nil
}

// InviteLink builds the deep link a user shares to invite friends. It never
// returns a link when the bot identity is misconfigured.
func (s *ReferralService) InviteLink(referrerID string) (string, error) {
	if err := s.validateBotIdentity(); err != nil {
		return "", err
	}
	if referrerID == "" || strings.Contains(referrerID, "_") {
		return "", fmt.Errorf("invite link: %w", domain.ErrInvalidReferral)
	}
	code, err := generateReferralCode()
	if err != nil {
		return "", fmt.Errorf("generate referral code: %w", err)
	}
	return fmt.Sprintf("https://%s/%s?startapp=%s%s_%s",
		s.botHost, strings.TrimPrefix(s.botUsername, "@"), startParamPrefix, code, referrerID), nil
}

// ParseStartParam extracts the referrer ID from a start parameter. Only the
// last underscore-separated segment is read.
func ParseStartParam(param string) (string, bool) {
	if !strings.HasPrefix(param, startParamPrefix) {
		return "", false
	}
	i := strings.LastIndex(param, "_")
	id := param[i+1:]
	if id == "" {
		return "", false
	}
	return id, true
}

// Referrals lists the user's network, oldest first.
func (s *ReferralService) Referrals(ctx context.Context, userID string) ([]domain.Referral, error) {
	u, ok, err := ledger.GetJSON[domain.User](ctx, s.store, ledger.UserPath(userID))
	if err != nil {
		return nil, fmt.Errorf("list referrals: %w", err)
	}
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	out := make([]domain.Referral, 0, len(u.Referrals))
	for _, r := range u.Referrals {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].JoinTimestamp.Equal(out[j].JoinTimestamp) {
			return out[i].ID < out[j].ID
		}
		return out[i].JoinTimestamp.Before(out[j].JoinTimestamp)
	})
	return out, nil
}
