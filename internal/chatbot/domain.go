package chatbot

import (
	"time"

	"wellcheck-api/internal/common"
)

// MessageType represents the type of update received
type MessageType string

const (
	MessageTypeCommand  MessageType = "command"
	MessageTypeText     MessageType = "text"
	MessageTypeCallback MessageType = "callback"
)

// Message is an inbound chat message normalized from a Telegram update.
// UserID is the private chat id rendered as a string.
type Message struct {
	UserID      common.UserID `json:"user_id" validate:"required"`
	ChatID      int64         `json:"chat_id" validate:"required"`
	DisplayName string        `json:"display_name"`
	Text        string        `json:"text"`
	Timestamp   time.Time     `json:"timestamp" validate:"required"`
	MessageType MessageType   `json:"message_type" validate:"required"`
}

// Command represents supported bot commands
type Command string

const (
	CommandStart         Command = "/start"
	CommandHelp          Command = "/help"
	CommandCheck         Command = "/check"
	CommandStatus        Command = "/status"
	CommandPause         Command = "/pause"
	CommandResume        Command = "/resume"
	CommandSetHour       Command = "/sethour"
	CommandSetTimeout    Command = "/settimeout"
	CommandAddContact    Command = "/addcontact"
	CommandContacts      Command = "/contacts"
	CommandRemoveContact Command = "/removecontact"
)

// IsValid checks if the command is valid
func (c Command) IsValid() bool {
	switch c {
	case CommandStart, CommandHelp, CommandCheck, CommandStatus, CommandPause, CommandResume,
		CommandSetHour, CommandSetTimeout, CommandAddContact, CommandContacts, CommandRemoveContact:
		return true
	default:
		return false
	}
}

// Callback actions carried by the check-in keyboard
const (
	CallbackActionOkay = "ok"
	CallbackActionHelp = "help"
)

// CallbackData is the payload of a check-in button. Keys are short to fit
// Telegram's 64 byte callback_data limit with a full check id.
type CallbackData struct {
	Action  string         `json:"a"`
	CheckID common.CheckID `json:"c,omitempty"`
}

// ResponseKind maps the callback action onto a check-in response
func (d CallbackData) ResponseKind() (common.ResponseKind, bool) {
	switch d.Action {
	case CallbackActionOkay:
		return common.ResponseOkay, true
	case CallbackActionHelp:
		return common.ResponseNeedHelp, true
	default:
		return "", false
	}
}

// IsValid checks if the message type is valid
func (mt MessageType) IsValid() bool {
	switch mt {
	case MessageTypeCommand, MessageTypeText, MessageTypeCallback:
		return true
	default:
		return false
	}
}
