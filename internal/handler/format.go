package handler

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/set-night/earnapp/internal/domain"
	"github.com/shopspring/decimal"
)

func stateIcon(s domain.ClaimState) string {
	switch s {
	case domain.StateClaimed:
		return "✅"
	case domain.StateClaimable:
		return "🎁"
	case domain.StatePendingVerification:
		return "⏳"
	case domain.StateFailed:
		return "❌"
	default:
		return "▫️"
	}
}

func categoryTitle(c domain.Category) string {
	switch c {
	case domain.CategoryDaily:
		return "Daily"
	case domain.CategoryWeekly:
		return "Weekly"
	case domain.CategoryAchievements:
		return "Achievements"
	}
	return string(c)
}

func formatPoints(p decimal.Decimal) string {
	if p.IsNegative() {
		return p.String()
	}
	return "+" + p.String()
}

func formatScore(s domain.Score) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "🏆 *Total:* %s\n\n", s.TotalScore.String())
	fmt.Fprintf(&sb, "📋 Tasks: %s\n", s.TaskScore.String())
	fmt.Fprintf(&sb, "📰 News: %s\n", s.NewsScore.String())
	fmt.Fprintf(&sb, "🎮 Game: %s (best %s)\n", s.GameScore.String(), s.GameHighestScore.String())
	fmt.Fprintf(&sb, "🌾 Farming: %s\n", s.FarmingScore.String())
	fmt.Fprintf(&sb, "👥 Network: %s\n\n", s.NetworkScore.String())
	fmt.Fprintf(&sb, "📅 This week: %s\n", s.WeeklyPoints.String())
	fmt.Fprintf(&sb, "🎟 Tickets: %d", s.NoOfTickets)
	return sb.String()
}

// parseTaskRef reads "<prefix><category>_<taskID>" callback data. Task IDs
// may contain underscores, categories never do.
func parseTaskRef(data, prefix string) (domain.Category, string, bool) {
	rest, ok := strings.CutPrefix(data, prefix)
	if !ok {
		return "", "", false
	}
	cat, id, ok := strings.Cut(rest, "_")
	if !ok || id == "" || !domain.Category(cat).Valid() {
		return "", "", false
	}
	return domain.Category(cat), id, true
}

// parseTaskPage reads "tasks_<category>_<page>" callback data.
func parseTaskPage(data string) (domain.Category, int, bool) {
	cat, p, ok := parseTaskRef(data, "tasks_")
	if !ok {
		return "", 0, false
	}
	page, err := strconv.Atoi(p)
	if err != nil || page < 0 {
		return "", 0, false
	}
	return cat, page, true
}

func pageCount(n, perPage int) int {
	if n == 0 {
		return 1
	}
	return (n + perPage - 1) / perPage
}

func pageBounds(page, n, perPage int) (int, int) {
	start := page * perPage
	if start > n {
		start = n
	}
	end := start + perPage
	if end > n {
		end = n
	}
	return start, end
}

var errAddTaskUsage = errors.New("usage: /addtask <category> <id> <type> <points> [chat=@channel] [link=url] [video=url] [total=n] <title>")

// parseAddTask reads an admin task definition:
//
//	/addtask daily join_news social 50 chat=@earn link=https://t.me/earn Join our channel
func parseAddTask(text string) (domain.Task, error) {
	fields := strings.Fields(text)
	if len(fields) < 6 {
		return domain.Task{}, errAddTaskUsage
	}

	points, err := decimal.NewFromString(fields[4])
	if err != nil {
		return domain.Task{}, fmt.Errorf("points %q: %w", fields[4], err)
	}

	t := domain.Task{
		Category: domain.Category(fields[1]),
		ID:       fields[2],
		Type:     domain.TaskType(fields[3]),
		Points:   points,
	}

	var title []string
	for _, f := range fields[5:] {
		key, val, ok := strings.Cut(f, "=")
		if !ok || len(title) > 0 {
			title = append(title, f)
			continue
		}
		switch key {
		case "chat":
			t.ChatID = val
		case "link":
			t.Link = val
		case "video":
			t.VideoURL = val
		case "total":
			if t.Total, err = strconv.Atoi(val); err != nil {
				return domain.Task{}, fmt.Errorf("total %q: %w", val, err)
			}
		default:
			title = append(title, f)
		}
	}
	if len(title) == 0 {
		return domain.Task{}, errAddTaskUsage
	}
	t.Title = strings.Join(title, " ")

	if err := t.Validate(); err != nil {
		return domain.Task{}, err
	}
	return t, nil
}
