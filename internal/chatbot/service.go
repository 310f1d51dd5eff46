package chatbot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"wellcheck-api/internal/common"
	"wellcheck-api/internal/config"
	"wellcheck-api/internal/events"
	"wellcheck-api/internal/registry"
)

// ChatbotService defines the interface for chatbot operations
type ChatbotService interface {
	// HandleWebhook parses and processes one webhook payload
	HandleWebhook(ctx context.Context, webhookData []byte) error
	// HandleUpdate processes one update from either transport
	HandleUpdate(ctx context.Context, update *tgbotapi.Update) error
	SendMessage(chatID int64, text string) error
	// Run long-polls for updates until ctx is cancelled
	Run(ctx context.Context) error
	// Close removes the event subscriptions
	Close() error
}

// Dependencies holds the collaborators of the chatbot service
type Dependencies struct {
	Provider TelegramProvider
	Users    registry.Service
	Checks   CheckService
	EventBus events.EventBus
	Config   config.ChatbotConfig
	Logger   *zap.Logger
}

// chatbotService implements the ChatbotService interface
type chatbotService struct {
	eventBus         events.EventBus
	logger           *zap.Logger
	provider         TelegramProvider
	parser           *WebhookParser
	commandProcessor *CommandProcessor
	config           config.ChatbotConfig
}

// NewChatbotService creates a new instance of ChatbotService
func NewChatbotService(deps Dependencies) (ChatbotService, error) {
	if deps.Provider == nil {
		return nil, NewConfigurationError("provider", "telegram provider is required", "")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	service := &chatbotService{
		eventBus:         deps.EventBus,
		logger:           logger,
		provider:         deps.Provider,
		parser:           NewWebhookParser(),
		commandProcessor: NewCommandProcessor(deps.Users, deps.Checks, logger),
		config:           deps.Config,
	}

	if err := service.setupEventSubscriptions(); err != nil {
		return nil, err
	}

	if deps.Config.Mode == config.ModeWebhook && deps.Config.WebhookURL != "" {
		if err := deps.Provider.SetWebhook(deps.Config.WebhookURL); err != nil {
			logger.Warn("Failed to set webhook", zap.Error(err))
		}
	}

	return service, nil
}

// setupEventSubscriptions tells users about the outcome of their checks
func (s *chatbotService) setupEventSubscriptions() error {
	if s.eventBus == nil {
		return nil
	}

	if err := s.eventBus.SubscribeAsync(events.TopicCheckTimedOut, s.handleCheckTimedOut); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", events.TopicCheckTimedOut, err)
	}
	if err := s.eventBus.SubscribeAsync(events.TopicEscalationCompleted, s.handleEscalationCompleted); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", events.TopicEscalationCompleted, err)
	}
	return nil
}

func (s *chatbotService) Close() error {
	if s.eventBus == nil {
		return nil
	}
	if err := s.eventBus.Unsubscribe(events.TopicCheckTimedOut, s.handleCheckTimedOut); err != nil {
		return err
	}
	return s.eventBus.Unsubscribe(events.TopicEscalationCompleted, s.handleEscalationCompleted)
}

// SendMessage sends a text message to the specified chat
func (s *chatbotService) SendMessage(chatID int64, text string) error {
	return s.provider.SendMessage(chatID, text)
}

// HandleWebhook processes incoming webhook data from Telegram
func (s *chatbotService) HandleWebhook(ctx context.Context, webhookData []byte) error {
	update, err := s.parser.ParseUpdate(webhookData)
	if err != nil {
		s.logger.Error("Failed to parse webhook update",
			zap.Int("data_size", len(webhookData)),
			zap.Error(err))
		return err
	}
	return s.HandleUpdate(ctx, update)
}

func (s *chatbotService) HandleUpdate(ctx context.Context, update *tgbotapi.Update) error {
	correlationID := s.parser.BuildCorrelationID(update)

	if update.Message == nil && update.CallbackQuery == nil {
		s.logger.Debug("Ignoring update without message or callback",
			zap.String("correlation_id", correlationID))
		return nil
	}

	chatID, err := s.parser.GetChatID(update)
	if err != nil {
		s.logger.Error("Failed to extract chat ID",
			zap.String("correlation_id", correlationID),
			zap.Error(err))
		return err
	}

	switch s.parser.DetermineMessageType(update) {
	case MessageTypeCommand:
		return s.handleCommand(ctx, update, chatID, correlationID)
	case MessageTypeCallback:
		return s.handleCallbackQuery(ctx, update, chatID, correlationID)
	default:
		return s.SendMessage(chatID, ReplyUnknownInput)
	}
}

// handleCommand processes bot commands
func (s *chatbotService) handleCommand(ctx context.Context, update *tgbotapi.Update, chatID int64, correlationID string) error {
	message, err := s.parser.ExtractMessage(update)
	if err != nil {
		return err
	}

	command, args, err := s.parser.ExtractCommand(update.Message)
	if err != nil {
		s.logger.Info("Unknown command",
			zap.String("correlation_id", correlationID),
			zap.String("text", update.Message.Text))
		return s.SendMessage(chatID, "Unknown command. Type /help for available commands.")
	}

	response, err := s.commandProcessor.ProcessCommand(ctx, message, command, args)
	if err != nil {
		s.logger.Error("Command processing failed",
			zap.String("correlation_id", correlationID),
			zap.String("command", string(command)),
			zap.Error(err))
		response = "Sorry, there was an error processing your command."
	}

	if response != "" {
		return s.SendMessage(chatID, response)
	}
	return nil
}

// handleCallbackQuery processes check-in button presses
func (s *chatbotService) handleCallbackQuery(ctx context.Context, update *tgbotapi.Update, chatID int64, correlationID string) error {
	callbackData, err := s.parser.ExtractCallbackQuery(update)
	if err != nil {
		s.logger.Error("Failed to extract callback query",
			zap.String("correlation_id", correlationID),
			zap.Error(err))
		return err
	}

	userID := chatUserID(chatID)
	s.logger.Info("Processing callback query",
		zap.String("correlation_id", correlationID),
		zap.String("user_id", string(userID)),
		zap.String("action", callbackData.Action),
		zap.String("check_id", string(callbackData.CheckID)))

	if err := s.provider.AnswerCallback(update.CallbackQuery.ID, ""); err != nil {
		s.logger.Debug("Callback acknowledgement failed", zap.Error(err))
	}

	response, err := s.commandProcessor.HandleCallbackQuery(ctx, userID, callbackData)
	if err != nil {
		s.logger.Error("Callback query processing failed",
			zap.String("correlation_id", correlationID),
			zap.Error(err))
		response = "Sorry, there was an error processing your request."
	}

	return s.SendMessage(chatID, response)
}

// Run long-polls Telegram for updates and handles them one at a time
func (s *chatbotService) Run(ctx context.Context) error {
	if err := s.provider.DeleteWebhook(); err != nil {
		s.logger.Warn("Failed to delete webhook before polling", zap.Error(err))
	}

	updates := s.provider.GetUpdatesChan(s.config.PollTimeout)
	defer s.provider.StopReceivingUpdates()

	s.logger.Info("Telegram polling started", zap.Int("poll_timeout", s.config.PollTimeout))

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Telegram polling stopped")
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if err := s.HandleUpdate(ctx, &update); err != nil {
				s.logger.Warn("Failed to handle update",
					zap.Int("update_id", update.UpdateID),
					zap.Error(err))
			}
		}
	}
}

func (s *chatbotService) handleCheckTimedOut(event events.CheckTimedOut) {
	text := fmt.Sprintf("⏰ You did not answer your check-in within %s. I am alerting your emergency contacts.",
		minutes(event.TimeoutMinutes))
	s.notifyUser(common.UserID(event.UserID), text)
}

func (s *chatbotService) handleEscalationCompleted(event events.EscalationCompleted) {
	attempted := event.Delivered + event.Failed

	var text string
	switch {
	case attempted == 0:
		text = "⚠️ I could not reach any emergency contacts. Add one with /addcontact."
	case event.Failed == 0:
		text = fmt.Sprintf("📣 %d of your emergency contacts have been notified.", event.Delivered)
	default:
		text = fmt.Sprintf("📣 %d of %d emergency contacts were notified. %d could not be reached.",
			event.Delivered, attempted, event.Failed)
	}
	s.notifyUser(common.UserID(event.UserID), text)
}

func (s *chatbotService) notifyUser(userID common.UserID, text string) {
	chatID, err := ParseChatID(string(userID))
	if err != nil {
		s.logger.Debug("User is not a telegram chat", zap.String("user_id", string(userID)))
		return
	}
	if err := s.provider.SendMessage(chatID, text); err != nil {
		s.logger.Warn("Failed to notify user",
			zap.String("user_id", string(userID)),
			zap.Error(err))
	}
}
