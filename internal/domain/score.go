package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type ScoreComponent string

const (
	ComponentFarming ScoreComponent = "farming_score"
	ComponentGame    ScoreComponent = "game_score"
	ComponentNetwork ScoreComponent = "network_score"
	ComponentNews    ScoreComponent = "news_score"
	ComponentTask    ScoreComponent = "task_score"
)

// Components lists every score component that contributes to the total.
var Components = []ScoreComponent{
	ComponentFarming,
	ComponentGame,
	ComponentNetwork,
	ComponentNews,
	ComponentTask,
}

func (c ScoreComponent) Valid() bool {
	for _, known := range Components {
		if c == known {
			return true
		}
	}
	return false
}

type Score struct {
	FarmingScore     decimal.Decimal `json:"farming_score"`
	GameScore        decimal.Decimal `json:"game_score"`
	GameHighestScore decimal.Decimal `json:"game_highest_score"`
	NetworkScore     decimal.Decimal `json:"network_score"`
	NewsScore        decimal.Decimal `json:"news_score"`
	TaskScore        decimal.Decimal `json:"task_score"`
	TotalScore       decimal.Decimal `json:"total_score"`
	WeeklyPoints     decimal.Decimal `json:"weekly_points"`
	WeeklyUpdatedAt  time.Time       `json:"weekly_updated_at"`
	TaskUpdatedAt    time.Time       `json:"task_updated_at"`
	NoOfTickets      int             `json:"no_of_tickets"`
}

// Component returns the current value of a component.
func (s *Score) Component(c ScoreComponent) (decimal.Decimal, error) {
	p, err := s.field(c)
	if err != nil {
		return decimal.Zero, err
	}
	return *p, nil
}

func (s *Score) field(c ScoreComponent) (*decimal.Decimal, error) {
	switch c {
	case ComponentFarming:
		return &s.FarmingScore, nil
	case ComponentGame:
		return &s.GameScore, nil
	case ComponentNetwork:
		return &s.NetworkScore, nil
	case ComponentNews:
		return &s.NewsScore, nil
	case ComponentTask:
		return &s.TaskScore, nil
	default:
		return nil, ErrUnknownComponent
	}
}

// Sum adds up the five components. It never reads TotalScore.
func (s *Score) Sum() decimal.Decimal {
	return s.FarmingScore.
		Add(s.GameScore).
		Add(s.NetworkScore).
		Add(s.NewsScore).
		Add(s.TaskScore)
}

// Recompute rewrites TotalScore from the components.
func (s *Score) Recompute() {
	s.TotalScore = s.Sum()
}

// Consistent reports whether the stored total matches the components.
func (s *Score) Consistent() bool {
	return s.TotalScore.Equal(s.Sum())
}

// Credit adds amount to a component and recomputes the total. weekStart is the
// start of the week that now falls in; weekly points accumulate while
// WeeklyUpdatedAt is inside that week and restart from amount otherwise.
// Negative amounts are applied as is.
func (s *Score) Credit(c ScoreComponent, amount decimal.Decimal, now, weekStart time.Time) error {
	p, err := s.field(c)
	if err != nil {
		return err
	}
	*p = p.Add(amount)
	s.Recompute()

	if !s.WeeklyUpdatedAt.IsZero() && !s.WeeklyUpdatedAt.Before(weekStart) {
		s.WeeklyPoints = s.WeeklyPoints.Add(amount)
	} else {
		s.WeeklyPoints = amount
		s.WeeklyUpdatedAt = weekStart
	}

	if c == ComponentTask {
		s.TaskUpdatedAt = now
	}
	return nil
}
