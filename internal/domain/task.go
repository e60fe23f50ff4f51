package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

type TaskType string

const (
	TaskWatch       TaskType = "watch"
	TaskSocial      TaskType = "social"
	TaskPartnership TaskType = "partnership"
	TaskMisc        TaskType = "misc"
	TaskNews        TaskType = "news"
	TaskGame        TaskType = "game"
	TaskWeekly      TaskType = "weekly"
	TaskAchievement TaskType = "achievement"
)

func (t TaskType) Valid() bool {
	switch t {
	case TaskWatch, TaskSocial, TaskPartnership, TaskMisc, TaskNews, TaskGame, TaskWeekly, TaskAchievement:
		return true
	}
	return false
}

// Category is the task kind resolved once when the catalog is ingested.
type Category string

const (
	CategoryDaily        Category = "daily"
	CategoryWeekly       Category = "weekly"
	CategoryAchievements Category = "achievements"
)

// Categories in catalog display order.
var Categories = []Category{CategoryDaily, CategoryWeekly, CategoryAchievements}

func (c Category) Valid() bool {
	switch c {
	case CategoryDaily, CategoryWeekly, CategoryAchievements:
		return true
	}
	return false
}

// Cadence says how long a claim stays valid.
type Cadence int

const (
	CadencePermanent Cadence = iota
	CadenceDaily
	CadenceWeekly
	// CadenceVideo keeps a claim valid while the task's video is unchanged.
	CadenceVideo
)

type Task struct {
	ID       string
	Title    string
	Type     TaskType
	Category Category
	Points   decimal.Decimal
	Total    int
	VideoURL string
	// ChatID is the channel or group checked for social and partnership tasks.
	ChatID string
	Link   string
}

func (t Task) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidTask)
	}
	if !t.Type.Valid() {
		return fmt.Errorf("%w: task %s has type %q", ErrInvalidTask, t.ID, t.Type)
	}
	if !t.Category.Valid() {
		return fmt.Errorf("%w: task %s has category %q", ErrInvalidTask, t.ID, t.Category)
	}
	return nil
}

// NeedsVerification reports whether claiming requires a membership check.
func (t Task) NeedsVerification() bool {
	return t.Type == TaskSocial || t.Type == TaskPartnership
}

func (t Task) Cadence() Cadence {
	switch {
	case t.Type == TaskWatch:
		return CadenceVideo
	case t.Category == CategoryAchievements:
		return CadencePermanent
	case t.Type == TaskGame, t.Type == TaskNews, t.Type == TaskPartnership:
		return CadenceDaily
	case t.Category == CategoryWeekly, t.Type == TaskWeekly:
		return CadenceWeekly
	default:
		return CadencePermanent
	}
}

// Component is the score component a claim of this task credits.
func (t Task) Component() ScoreComponent {
	if t.Type == TaskNews {
		return ComponentNews
	}
	return ComponentTask
}
