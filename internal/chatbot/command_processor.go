package chatbot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"wellcheck-api/internal/checkin"
	"wellcheck-api/internal/common"
	"wellcheck-api/internal/registry"
)

// CheckService is the part of the check-in manager the bot drives
type CheckService interface {
	CreateCheck(ctx context.Context, userID common.UserID, source checkin.Source) (*checkin.CheckInstance, error)
	OnUserResponse(ctx context.Context, userID common.UserID, kind common.ResponseKind) (checkin.ResponseOutcome, error)
	History(ctx context.Context, userID common.UserID, limit int) ([]*checkin.CheckInstance, error)
}

// Replies sent for check-in responses
const (
	ReplyOkay         = "Glad to hear it! Have a good day. 🌿"
	ReplyNeedHelp     = "I am notifying your contacts right now. 🆘"
	ReplyNothingOpen  = "Thanks! There is no open check-in right now."
	ReplyUnknownInput = "I did not understand that. Use /help to see what I can do."
)

// CommandProcessor handles bot commands and check-in button presses
type CommandProcessor struct {
	users  registry.Service
	checks CheckService
	logger *zap.Logger
}

// NewCommandProcessor creates a new CommandProcessor instance
func NewCommandProcessor(users registry.Service, checks CheckService, logger *zap.Logger) *CommandProcessor {
	return &CommandProcessor{
		users:  users,
		checks: checks,
		logger: logger,
	}
}

// ProcessCommand registers the sender on first contact and runs command.
// The returned reply may be empty when the command answers with a check-in prompt instead.
func (cp *CommandProcessor) ProcessCommand(ctx context.Context, msg *Message, command Command, args []string) (string, error) {
	cp.logger.Info("Processing command",
		zap.String("user_id", string(msg.UserID)),
		zap.String("command", string(command)),
		zap.Strings("args", args))

	user, created, err := cp.users.EnsureUser(ctx, msg.UserID, msg.DisplayName)
	if err != nil {
		return "", NewCommandError(string(command), "failed to load user", string(msg.UserID), err)
	}

	var reply string
	switch command {
	case CommandStart:
		reply, err = cp.processStart(ctx, user, created)
	case CommandHelp:
		reply = helpText
	case CommandCheck:
		reply, err = cp.processCheck(ctx, user)
	case CommandStatus:
		reply, err = cp.processStatus(ctx, user)
	case CommandPause:
		reply, err = cp.processSetActive(ctx, user, false)
	case CommandResume:
		reply, err = cp.processSetActive(ctx, user, true)
	case CommandSetHour:
		reply, err = cp.processSetHour(ctx, user, args)
	case CommandSetTimeout:
		reply, err = cp.processSetTimeout(ctx, user, args)
	case CommandAddContact:
		reply, err = cp.processAddContact(ctx, user, args)
	case CommandContacts:
		reply, err = cp.processContacts(ctx, user)
	case CommandRemoveContact:
		reply, err = cp.processRemoveContact(ctx, user, args)
	default:
		return ReplyUnknownInput, nil
	}

	if err != nil {
		var validation common.ValidationError
		if errors.As(err, &validation) {
			return "⚠️ " + html.EscapeString(validation.Message), nil
		}
		if common.IsNotFound(err) {
			return "⚠️ " + html.EscapeString(err.Error()), nil
		}
		return "", NewCommandError(string(command), "command failed", string(msg.UserID), err)
	}
	return reply, nil
}

// HandleCallbackQuery records a check-in button press
func (cp *CommandProcessor) HandleCallbackQuery(ctx context.Context, userID common.UserID, data *CallbackData) (string, error) {
	kind, ok := data.ResponseKind()
	if !ok {
		cp.logger.Warn("Unknown callback action",
			zap.String("user_id", string(userID)),
			zap.String("action", data.Action))
		return "Unknown action.", nil
	}

	outcome, err := cp.checks.OnUserResponse(ctx, userID, kind)
	if data.CheckID != "" && outcome.Resolved && outcome.CheckID != data.CheckID {
		cp.logger.Info("Button pressed on an older prompt, applied to the open check",
			zap.String("user_id", string(userID)),
			zap.String("pressed_check_id", string(data.CheckID)),
			zap.String("resolved_check_id", string(outcome.CheckID)))
	}

	switch {
	case kind == common.ResponseNeedHelp:
		// escalation is dispatched even when recording the response failed
		if err != nil {
			cp.logger.Error("Failed to record help request", zap.String("user_id", string(userID)), zap.Error(err))
		}
		return ReplyNeedHelp, nil
	case err != nil:
		return "", NewCommandError("callback:"+data.Action, "failed to record response", string(userID), err)
	case !outcome.Resolved:
		return ReplyNothingOpen, nil
	default:
		return ReplyOkay, nil
	}
}

func (cp *CommandProcessor) processStart(ctx context.Context, user *registry.User, created bool) (string, error) {
	greeting := "👋 <b>Welcome back!</b>"
	if created {
		greeting = "👋 <b>Welcome to WellCheck!</b>"
	}

	text := fmt.Sprintf(`%s

Every day at <b>%02d:00</b> I will ask whether you are okay.
If you press "I need help", or do not answer within <b>%s</b>, I will alert your emergency contacts.

Add a contact with /addcontact &lt;chat id&gt; [name]. Use /help to see all commands.`,
		greeting, user.CheckHour, minutes(user.TimeoutMinutes))

	if _, err := cp.checks.CreateCheck(ctx, user.ID, checkin.SourceOnDemand); err != nil {
		cp.logger.Warn("Failed to create welcome check",
			zap.String("user_id", string(user.ID)),
			zap.Error(err))
	}
	return text, nil
}

func (cp *CommandProcessor) processCheck(ctx context.Context, user *registry.User) (string, error) {
	if _, err := cp.checks.CreateCheck(ctx, user.ID, checkin.SourceOnDemand); err != nil {
		return "", err
	}
	return "", nil
}

func (cp *CommandProcessor) processStatus(ctx context.Context, user *registry.User) (string, error) {
	contacts, err := cp.users.ListContacts(ctx, user.ID)
	if err != nil {
		return "", err
	}
	history, err := cp.checks.History(ctx, user.ID, 1)
	if err != nil {
		return "", err
	}

	state := "active"
	if !user.IsActive {
		state = "paused"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📋 <b>Your check-in settings</b>\n\n")
	fmt.Fprintf(&b, "Daily check: <b>%02d:00</b> (%s)\n", user.CheckHour, state)
	fmt.Fprintf(&b, "Response window: <b>%s</b>\n", minutes(user.TimeoutMinutes))
	fmt.Fprintf(&b, "Emergency contacts: <b>%d</b>\n", len(contacts))
	if len(history) > 0 {
		last := history[0]
		status := string(last.Status)
		if last.Resolution != checkin.ResolutionNone {
			status += ", " + string(last.Resolution)
		}
		fmt.Fprintf(&b, "Last check: %s (%s)\n", last.CreatedAt.Format("2006-01-02 15:04"), status)
	}
	return b.String(), nil
}

func (cp *CommandProcessor) processSetActive(ctx context.Context, user *registry.User, active bool) (string, error) {
	if _, err := cp.users.SetActive(ctx, user.ID, active); err != nil {
		return "", err
	}
	if active {
		return fmt.Sprintf("▶️ Daily check-ins resumed. See you at %02d:00.", user.CheckHour), nil
	}
	return "⏸ Daily check-ins paused. Use /resume to turn them back on.", nil
}

func (cp *CommandProcessor) processSetHour(ctx context.Context, user *registry.User, args []string) (string, error) {
	hour, err := intArg(args, "check_hour", "Usage: /sethour <0-23>")
	if err != nil {
		return "", err
	}
	updated, err := cp.users.SetCheckHour(ctx, user.ID, hour)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("🕘 Daily check moved to %02d:00.", updated.CheckHour), nil
}

func (cp *CommandProcessor) processSetTimeout(ctx context.Context, user *registry.User, args []string) (string, error) {
	value, err := intArg(args, "timeout_minutes", "Usage: /settimeout <minutes>")
	if err != nil {
		return "", err
	}
	updated, err := cp.users.SetTimeoutMinutes(ctx, user.ID, value)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("⏱ Response window set to %s. It applies from your next check.", minutes(updated.TimeoutMinutes)), nil
}

func (cp *CommandProcessor) processAddContact(ctx context.Context, user *registry.User, args []string) (string, error) {
	if len(args) == 0 {
		return "Usage: /addcontact &lt;chat id or +phone&gt; [name]", nil
	}

	contact, err := cp.users.AddContact(ctx, user.ID, args[0], strings.Join(args[1:], " "))
	if err != nil {
		return "", err
	}

	reply := fmt.Sprintf("✅ Added %s.", html.EscapeString(contact.Label()))
	if contact.ChannelType != common.ChannelChat {
		reply += " Phone contacts are stored but I cannot message them yet."
	}
	return reply, nil
}

func (cp *CommandProcessor) processContacts(ctx context.Context, user *registry.User) (string, error) {
	contacts, err := cp.users.ListContacts(ctx, user.ID)
	if err != nil {
		return "", err
	}
	if len(contacts) == 0 {
		return "You have no emergency contacts yet. Add one with /addcontact.", nil
	}

	var b strings.Builder
	b.WriteString("👥 <b>Your emergency contacts</b>\n")
	for _, contact := range contacts {
		fmt.Fprintf(&b, "\n• %s (%s %s)\n  <code>%s</code>",
			html.EscapeString(contact.Label()), contact.ChannelType, html.EscapeString(contact.Address), contact.ID)
	}
	b.WriteString("\n\nRemove one with /removecontact &lt;id&gt;.")
	return b.String(), nil
}

func (cp *CommandProcessor) processRemoveContact(ctx context.Context, user *registry.User, args []string) (string, error) {
	if len(args) == 0 {
		return "Usage: /removecontact &lt;id&gt;", nil
	}
	if err := cp.users.RemoveContact(ctx, user.ID, common.ContactID(args[0])); err != nil {
		return "", err
	}
	return "🗑 Contact removed.", nil
}

func intArg(args []string, field, usage string) (int, error) {
	if len(args) == 0 {
		return 0, common.ValidationError{Field: field, Message: usage}
	}
	value, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, common.ValidationError{Field: field, Message: fmt.Sprintf("'%s' is not a number", args[0])}
	}
	return value, nil
}

const helpText = `🆘 <b>WellCheck Help</b>

<b>Check-ins</b>
/check - Ask me for a check-in now
/status - Show your settings and last check
/pause - Pause daily check-ins
/resume - Resume daily check-ins
/sethour &lt;0-23&gt; - Change the hour of your daily check
/settimeout &lt;minutes&gt; - Change how long I wait for an answer

<b>Emergency contacts</b>
/addcontact &lt;chat id or +phone&gt; [name] - Add a contact
/contacts - List your contacts
/removecontact &lt;id&gt; - Remove a contact

Press "I'm okay" or "I need help" on any check-in message to answer it.`
