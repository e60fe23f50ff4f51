package handler

import (
	"github.com/go-telegram/bot"
	"github.com/set-night/earnapp/internal/config"
	"github.com/set-night/earnapp/internal/service"
	"github.com/set-night/earnapp/internal/telegram"
)

// Handler holds all dependencies needed by command and callback handlers.
type Handler struct {
	bot       *bot.Bot
	cfg       *config.Config
	scores    *service.ScoreService
	history   *service.HistoryService
	catalog   *service.CatalogService
	tasks     *service.TaskService
	referrals *service.ReferralService
	games     *service.GameService
	farming   *service.FarmingService
	tgLogger  *telegram.TelegramLogger
}

// Deps contains all dependencies required to construct a Handler.
type Deps struct {
	Bot       *bot.Bot
	Cfg       *config.Config
	Scores    *service.ScoreService
	History   *service.HistoryService
	Catalog   *service.CatalogService
	Tasks     *service.TaskService
	Referrals *service.ReferralService
	Games     *service.GameService
	Farming   *service.FarmingService
	TgLogger  *telegram.TelegramLogger
}

// New creates a new Handler from the provided dependencies.
func New(deps Deps) *Handler {
	return &Handler{
		bot:       deps.Bot,
		cfg:       deps.Cfg,
		scores:    deps.Scores,
		history:   deps.History,
		catalog:   deps.Catalog,
		tasks:     deps.Tasks,
		referrals: deps.Referrals,
		games:     deps.Games,
		farming:   deps.Farming,
		tgLogger:  deps.TgLogger,
	}
}
