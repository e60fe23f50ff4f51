package telegram

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// MembershipChecker verifies social task subscriptions with getChatMember.
type MembershipChecker struct {
	bot *bot.Bot
}

func NewMembershipChecker(b *bot.Bot) *MembershipChecker {
	return &MembershipChecker{bot: b}
}

func (c *MembershipChecker) IsMember(ctx context.Context, chatID, userID string) (bool, error) {
	uid, err := strconv.ParseInt(userID, 10, 64)
	if err != nil {
		return false, fmt.Errorf("parse user id %q: %w", userID, err)
	}

	member, err := c.bot.GetChatMember(ctx, &bot.GetChatMemberParams{
		ChatID: chatTarget(chatID),
		UserID: uid,
	})
	if err != nil {
		return false, fmt.Errorf("get chat member: %w", err)
	}
	return isMember(member), nil
}

// chatTarget accepts both numeric chat IDs and @usernames.
func chatTarget(chatID string) any {
	if id, err := strconv.ParseInt(chatID, 10, 64); err == nil {
		return id
	}
	return chatID
}

func isMember(m *models.ChatMember) bool {
	if m == nil {
		return false
	}
	switch m.Type {
	case "left", "kicked":
		return false
	case "restricted":
		return m.Restricted != nil && m.Restricted.IsMember
	}
	return true
}
