package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/set-night/earnapp/internal/config"
	"github.com/set-night/earnapp/internal/domain"
	"github.com/set-night/earnapp/internal/middleware"
	"github.com/set-night/earnapp/internal/telegram"
)

func (h *Handler) handleTasks(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	user := middleware.GetUser(ctx)
	if user == nil {
		return
	}

	text, kb, err := h.renderTaskList(ctx, user, domain.CategoryDaily, 0)
	if err != nil {
		slog.Error("render tasks", "user_id", user.ID, "error", err)
		h.tgLogger.LogError(err, "tasks")
		return
	}
	if err := telegram.SendText(ctx, b, update.Message.Chat.ID, text, kb); err != nil {
		slog.Error("send tasks", "error", err)
	}
}

func (h *Handler) handleTasksPage(ctx context.Context, b *bot.Bot, update *models.Update) {
	user := middleware.GetUser(ctx)
	chatID, msgID, ok := callbackMessage(update)
	if user == nil || !ok {
		return
	}
	cat, page, ok := parseTaskPage(update.CallbackQuery.Data)
	if !ok {
		answer(ctx, b, update, "")
		return
	}

	text, kb, err := h.renderTaskList(ctx, user, cat, page)
	if err != nil {
		slog.Error("render tasks", "user_id", user.ID, "error", err)
		answer(ctx, b, update, "❌ Failed to load tasks")
		return
	}
	answer(ctx, b, update, "")
	telegram.EditText(ctx, b, chatID, msgID, text, kb)
}

func (h *Handler) renderTaskList(ctx context.Context, user *domain.User, cat domain.Category, page int) (string, *models.InlineKeyboardMarkup, error) {
	list, err := h.catalog.ByCategory(ctx, cat)
	if err != nil {
		return "", nil, err
	}
	states, err := h.tasks.States(ctx, user.ID, list)
	if err != nil {
		return "", nil, err
	}

	totalPages := pageCount(len(list), config.TasksPerPage)
	if page >= totalPages {
		page = totalPages - 1
	}
	start, end := pageBounds(page, len(list), config.TasksPerPage)

	var sb strings.Builder
	fmt.Fprintf(&sb, "📋 *%s tasks*\n\n", categoryTitle(cat))
	if cat == domain.CategoryDaily {
		done, total, err := h.tasks.DailyProgress(ctx, user.ID)
		if err != nil {
			return "", nil, err
		}
		fmt.Fprintf(&sb, "Done today: %d/%d\n", done, total)
		fmt.Fprintf(&sb, "Week streak: %d/%d days\n\n", user.WeeklyProgress.CurrentWeekDays, config.WeeklyProgressCap)
	}
	if len(list) == 0 {
		sb.WriteString("No tasks yet.")
	}

	var rows [][]models.InlineKeyboardButton
	for _, t := range list[start:end] {
		state := states[t.ID]
		fmt.Fprintf(&sb, "%s %s (%s)\n", stateIcon(state), t.Title, formatPoints(t.Points))
		rows = append(rows, telegram.ButtonRow(
			telegram.InlineButton(stateIcon(state)+" "+t.Title, fmt.Sprintf("task_%s_%s", cat, t.ID)),
		))
	}
	if totalPages > 1 {
		rows = append(rows, telegram.PaginationRow(page, totalPages, "tasks_"+string(cat)))
	}

	tabs := make([]string, 0, len(domain.Categories))
	for _, c := range domain.Categories {
		tabs = append(tabs, string(c))
	}
	rows = append(rows, telegram.CategoryTabs(tabs, string(cat),
		func(c string) string { return categoryTitle(domain.Category(c)) },
		func(c string) string { return "tasks_" + c + "_0" },
	))

	return sb.String(), telegram.InlineKeyboard(rows...), nil
}

func (h *Handler) renderTask(t domain.Task, state domain.ClaimState) (string, *models.InlineKeyboardMarkup) {
	ref := fmt.Sprintf("%s_%s", t.Category, t.ID)

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s *%s*\n\n", stateIcon(state), t.Title)
	fmt.Fprintf(&sb, "Reward: %s\n", formatPoints(t.Points))

	var rows [][]models.InlineKeyboardButton
	switch state {
	case domain.StateClaimed:
		sb.WriteString("Already claimed.")
	case domain.StateClaimable:
		sb.WriteString("Ready to claim!")
		rows = append(rows, telegram.ButtonRow(telegram.InlineButton("🎁 Claim", "claim_"+ref)))
	case domain.StatePendingVerification:
		sb.WriteString("Checking your membership...")
		rows = append(rows, telegram.ButtonRow(telegram.InlineButton("🔄 Refresh", "task_"+ref)))
	case domain.StateFailed:
		sb.WriteString("We could not confirm that you joined.")
		rows = append(rows, telegram.ButtonRow(telegram.InlineButton("🔁 Retry", "retry_"+ref)))
	default:
		if t.Type == domain.TaskGame {
			sb.WriteString("Play a game with /play to unlock this task.")
			break
		}
		var row []models.InlineKeyboardButton
		if link := taskLink(t); link != "" {
			row = append(row, telegram.URLButton("🔗 Open", link))
		}
		row = append(row, telegram.InlineButton("▶️ Start", "begin_"+ref))
		rows = append(rows, row)
	}
	rows = append(rows, telegram.ButtonRow(telegram.InlineButton("⬅️ Back", fmt.Sprintf("tasks_%s_0", t.Category))))

	return sb.String(), telegram.InlineKeyboard(rows...)
}

func taskLink(t domain.Task) string {
	if t.Link != "" {
		return t.Link
	}
	return t.VideoURL
}

// taskFromCallback resolves the task a callback button refers to.
func (h *Handler) taskFromCallback(ctx context.Context, b *bot.Bot, update *models.Update, prefix string) (domain.Task, bool) {
	cat, id, ok := parseTaskRef(update.CallbackQuery.Data, prefix)
	if !ok {
		answer(ctx, b, update, "")
		return domain.Task{}, false
	}
	t, err := h.catalog.Find(ctx, cat, id)
	if err != nil {
		if !errors.Is(err, domain.ErrTaskNotFound) {
			slog.Error("find task", "category", cat, "task_id", id, "error", err)
		}
		answer(ctx, b, update, "❌ Task not found")
		return domain.Task{}, false
	}
	return t, true
}

func (h *Handler) showTask(ctx context.Context, b *bot.Bot, chatID int64, msgID int, t domain.Task, state domain.ClaimState) {
	text, kb := h.renderTask(t, state)
	if err := telegram.EditText(ctx, b, chatID, msgID, text, kb); err != nil {
		slog.Warn("edit task message", "error", err)
	}
}

func (h *Handler) handleTaskOpen(ctx context.Context, b *bot.Bot, update *models.Update) {
	user := middleware.GetUser(ctx)
	chatID, msgID, ok := callbackMessage(update)
	if user == nil || !ok {
		return
	}
	t, ok := h.taskFromCallback(ctx, b, update, "task_")
	if !ok {
		return
	}

	state, err := h.tasks.State(ctx, user.ID, t)
	if err != nil {
		slog.Error("task state", "user_id", user.ID, "task_id", t.ID, "error", err)
		answer(ctx, b, update, "❌ Failed to load task")
		return
	}
	answer(ctx, b, update, "")
	h.showTask(ctx, b, chatID, msgID, t, state)
}

func (h *Handler) handleTaskBegin(ctx context.Context, b *bot.Bot, update *models.Update) {
	user := middleware.GetUser(ctx)
	chatID, msgID, ok := callbackMessage(update)
	if user == nil || !ok {
		return
	}
	t, ok := h.taskFromCallback(ctx, b, update, "begin_")
	if !ok {
		return
	}
	if t.Type == domain.TaskGame {
		answer(ctx, b, update, "🎮 Play a game first")
		return
	}

	state, err := h.tasks.Begin(ctx, user.ID, t)
	if err != nil {
		slog.Error("begin task", "user_id", user.ID, "task_id", t.ID, "error", err)
		answer(ctx, b, update, "❌ Could not start the task")
		return
	}
	answer(ctx, b, update, "")
	h.showTask(ctx, b, chatID, msgID, t, state)
}

func (h *Handler) handleTaskRetry(ctx context.Context, b *bot.Bot, update *models.Update) {
	user := middleware.GetUser(ctx)
	chatID, msgID, ok := callbackMessage(update)
	if user == nil || !ok {
		return
	}
	t, ok := h.taskFromCallback(ctx, b, update, "retry_")
	if !ok {
		return
	}

	state, err := h.tasks.Retry(ctx, user.ID, t)
	if err != nil {
		if !errors.Is(err, domain.ErrPreconditionNotMet) {
			slog.Error("retry task", "user_id", user.ID, "task_id", t.ID, "error", err)
		}
		answer(ctx, b, update, "Nothing to retry")
		return
	}
	answer(ctx, b, update, "")
	h.showTask(ctx, b, chatID, msgID, t, state)
}

func (h *Handler) handleTaskClaim(ctx context.Context, b *bot.Bot, update *models.Update) {
	user := middleware.GetUser(ctx)
	chatID, msgID, ok := callbackMessage(update)
	if user == nil || !ok {
		return
	}
	t, ok := h.taskFromCallback(ctx, b, update, "claim_")
	if !ok {
		return
	}

	res, err := h.tasks.Claim(ctx, user.ID, t)
	if err != nil {
		slog.Error("claim task", "user_id", user.ID, "task_id", t.ID, "error", err)
		h.tgLogger.LogError(err, "claim "+t.ID)
		answer(ctx, b, update, "❌ Claim failed, try again")
		return
	}
	if !res.Success {
		answer(ctx, b, update, res.Reason)
		return
	}

	h.tgLogger.LogClaim(user.ID, t.Title, res.Points)
	answer(ctx, b, update, fmt.Sprintf("🎉 %s points", formatPoints(res.Points)))

	text, kb := h.renderTask(t, domain.StateClaimed)
	text += fmt.Sprintf("\n\n🏆 Total: %s", res.Score.TotalScore.String())
	telegram.EditText(ctx, b, chatID, msgID, text, kb)
}
