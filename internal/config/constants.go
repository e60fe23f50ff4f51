package config

import "time"

const (
	// Referral bonuses (points)
	ReferrerBonus = 100
	RefereeBonus  = 50

	// Daily reset
	DailyTickets     = 3
	DailyLoginPoints = 10

	// Weekly progress is capped at the number of days in a week
	WeeklyProgressCap = 7

	// Farming reward per completed session (points)
	FarmingReward = 100

	// Rate limits (per minute)
	RateLimitWindow  = time.Minute
	RateLimitRegular = 20

	// Chats tracked by the in-process rate counter
	RateLimitCacheSize = 50000

	// Catalog cache duration
	CatalogCacheDuration = 5 * time.Minute

	// Referral marker cache
	ReferralMarkerSize = 10000
	ReferralMarkerTTL  = 30 * 24 * time.Hour

	// Telegram limits
	MaxTelegramMessageLen = 4096

	// History entries shown per page
	HistoryPerPage = 10

	// Tasks shown per page
	TasksPerPage = 5
)
