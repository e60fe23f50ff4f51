package handler

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// Register registers all command and callback handlers on the bot instance.
func (h *Handler) Register() {
	// Commands
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypePrefix, h.handleStart)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/score", bot.MatchTypePrefix, h.handleScore)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/tasks", bot.MatchTypePrefix, h.handleTasks)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/history", bot.MatchTypePrefix, h.handleHistory)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/invite", bot.MatchTypePrefix, h.handleInvite)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/friends", bot.MatchTypePrefix, h.handleFriends)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/farm", bot.MatchTypePrefix, h.handleFarm)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/play", bot.MatchTypePrefix, h.handlePlay)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/addtask", bot.MatchTypePrefix, h.handleAddTask)

	// Task callbacks
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "tasks_", bot.MatchTypePrefix, h.handleTasksPage)
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "task_", bot.MatchTypePrefix, h.handleTaskOpen)
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "begin_", bot.MatchTypePrefix, h.handleTaskBegin)
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "claim_", bot.MatchTypePrefix, h.handleTaskClaim)
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "retry_", bot.MatchTypePrefix, h.handleTaskRetry)

	// History callbacks
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "hist_", bot.MatchTypePrefix, h.handleHistoryPage)

	// Farming callbacks
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "farm_start", bot.MatchTypeExact, h.handleFarmStart)
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "farm_claim", bot.MatchTypeExact, h.handleFarmClaim)

	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "cur", bot.MatchTypeExact, h.handleNoop)
}

// handleNoop is a no-op callback handler used for pagination indicators and other
// non-interactive inline buttons. It simply acknowledges the callback query.
func (h *Handler) handleNoop(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.CallbackQuery != nil {
		b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
			CallbackQueryID: update.CallbackQuery.ID,
		})
	}
}

// answer acknowledges a callback query, optionally with a toast.
func answer(ctx context.Context, b *bot.Bot, update *models.Update, text string) {
	b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: update.CallbackQuery.ID,
		Text:            text,
	})
}

// callbackMessage returns the chat and message a callback was pressed on.
func callbackMessage(update *models.Update) (chatID int64, messageID int, ok bool) {
	if update.CallbackQuery == nil || update.CallbackQuery.Message.Message == nil {
		return 0, 0, false
	}
	msg := update.CallbackQuery.Message.Message
	return msg.Chat.ID, msg.ID, true
}
