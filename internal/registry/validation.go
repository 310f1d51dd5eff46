package registry

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"wellcheck-api/internal/common"
)

var phonePattern = regexp.MustCompile(`^\+[1-9][0-9]{6,14}$`)

// ValidateCheckHour checks the hour-of-day range
func ValidateCheckHour(hour int) error {
	if hour < 0 || hour > 23 {
		return common.ValidationError{Field: "check_hour", Message: fmt.Sprintf("must be between 0 and 23, got %d", hour)}
	}
	return nil
}

// ValidateTimeoutMinutes checks that the response window is positive
func ValidateTimeoutMinutes(minutes int) error {
	if minutes <= 0 {
		return common.ValidationError{Field: "timeout_minutes", Message: fmt.Sprintf("must be positive, got %d", minutes)}
	}
	return nil
}

func validateUser(user *User) error {
	if user == nil || user.ID == "" {
		return common.ValidationError{Field: "id", Message: "user id is required"}
	}
	if err := ValidateCheckHour(user.CheckHour); err != nil {
		return err
	}
	if err := ValidateTimeoutMinutes(user.TimeoutMinutes); err != nil {
		return err
	}
	return nil
}

// ParseContactAddress infers the channel from a raw address: a leading '+'
// means an E.164 phone number, an integer means a chat id.
func ParseContactAddress(raw string) (common.ChannelType, string, error) {
	address := strings.TrimSpace(raw)
	switch {
	case address == "":
		return "", "", common.ValidationError{Field: "address", Message: "address is required"}
	case strings.HasPrefix(address, "+"):
		if !phonePattern.MatchString(address) {
			return "", "", common.ValidationError{Field: "address", Message: "phone numbers must be in E.164 format"}
		}
		return common.ChannelPhone, address, nil
	default:
		if _, err := strconv.ParseInt(address, 10, 64); err != nil {
			return "", "", common.ValidationError{Field: "address", Message: "chat addresses must be numeric chat ids"}
		}
		return common.ChannelChat, address, nil
	}
}

// prepareContact validates the contact and fills id and creation time when unset
func prepareContact(contact *Contact) error {
	if contact == nil || contact.UserID == "" {
		return common.ValidationError{Field: "user_id", Message: "user id is required"}
	}
	if !contact.ChannelType.IsValid() {
		return common.ValidationError{Field: "channel_type", Message: fmt.Sprintf("unsupported channel %q", contact.ChannelType)}
	}
	if strings.TrimSpace(contact.Address) == "" {
		return common.ValidationError{Field: "address", Message: "address is required"}
	}

	if contact.ID == "" {
		contact.ID = common.NewContactID()
	}
	if contact.CreatedAt.IsZero() {
		contact.CreatedAt = time.Now()
	}
	return nil
}
