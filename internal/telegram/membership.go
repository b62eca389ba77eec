package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/yegorian/legendary-empire/internal/model"
)

// memberStatuses are the chat-member statuses that count as subscribed
var memberStatuses = map[string]bool{
	"creator":       true,
	"administrator": true,
	"member":        true,
}

// ChannelChecker answers membership checks against a Telegram channel,
// identified either by @handle or by numeric chat ID.
type ChannelChecker struct {
	api     *tgbotapi.BotAPI
	chatID  int64
	channel string
}

// NewChannelChecker creates a checker for the given channel reference
func NewChannelChecker(api *tgbotapi.BotAPI, channel string) *ChannelChecker {
	checker := &ChannelChecker{api: api}
	if id, err := strconv.ParseInt(channel, 10, 64); err == nil {
		checker.chatID = id
	} else {
		checker.channel = "@" + strings.TrimPrefix(channel, "@")
	}
	return checker
}

// IsMember reports whether the user currently belongs to the channel
func (c *ChannelChecker) IsMember(ctx context.Context, telegramID int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	member, err := c.api.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{
			ChatID:             c.chatID,
			SuperGroupUsername: c.channel,
			UserID:             telegramID,
		},
	})
	if err != nil {
		return false, fmt.Errorf("%w: get chat member: %v", model.ErrTransport, err)
	}
	return memberStatuses[member.Status], nil
}
