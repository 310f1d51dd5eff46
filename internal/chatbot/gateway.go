package chatbot

import (
	"context"
	"fmt"
	"html"

	"go.uber.org/zap"

	"wellcheck-api/internal/common"
	"wellcheck-api/internal/delivery"
)

// TelegramGateway delivers prompts and alerts through a Telegram bot.
// Users and chat contacts are addressed by their chat id.
type TelegramGateway struct {
	provider  TelegramProvider
	keyboards *KeyboardBuilder
	logger    *zap.Logger
}

var _ delivery.Gateway = (*TelegramGateway)(nil)

// NewTelegramGateway creates a gateway on top of provider
func NewTelegramGateway(provider TelegramProvider, logger *zap.Logger) *TelegramGateway {
	return &TelegramGateway{
		provider:  provider,
		keyboards: NewKeyboardBuilder(),
		logger:    logger,
	}
}

func (g *TelegramGateway) SendPrompt(ctx context.Context, userID common.UserID, prompt delivery.Prompt) delivery.Result {
	if err := ctx.Err(); err != nil {
		return delivery.FailureFrom(err)
	}

	chatID, err := ParseChatID(string(userID))
	if err != nil {
		return delivery.FailureFrom(err)
	}

	err = g.provider.SendMessageWithKeyboard(chatID, html.EscapeString(g.keyboards.PromptText(prompt)), g.keyboards.BuildCheckInKeyboard(prompt))
	if err != nil {
		g.logger.Warn("Check-in prompt not delivered",
			zap.String("user_id", string(userID)),
			zap.String("check_id", string(prompt.CheckID)),
			zap.Error(err))
		return delivery.FailureFrom(fmt.Errorf("send prompt: %w", err))
	}
	return delivery.Success()
}

func (g *TelegramGateway) SendAlert(ctx context.Context, address string, text string) delivery.Result {
	if err := ctx.Err(); err != nil {
		return delivery.FailureFrom(err)
	}

	chatID, err := ParseChatID(address)
	if err != nil {
		return delivery.FailureFrom(err)
	}

	if err := g.provider.SendMessage(chatID, html.EscapeString(text)); err != nil {
		return delivery.FailureFrom(fmt.Errorf("send alert: %w", err))
	}
	return delivery.Success()
}

// SupportsChannel reports chat only; phone contacts are stored but never dispatched
func (g *TelegramGateway) SupportsChannel(channel common.ChannelType) bool {
	return channel == common.ChannelChat
}
