package processor

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/Smart-Services-NE/notification-service/internal/events"
)

// MaxMessageIDLength is the longest message id accepted, in characters.
const MaxMessageIDLength = 256

var validate = validator.New()

// ValidateMessage checks that msg can be turned into an email.
func ValidateMessage(msg *events.NotificationMessage) error {
	if msg == nil {
		return errors.New("message is nil")
	}
	if utf8.RuneCountInString(msg.MessageID) > MaxMessageIDLength {
		return fmt.Errorf("message id exceeds %d characters", MaxMessageIDLength)
	}
	recipient := strings.TrimSpace(msg.Recipient)
	if recipient == "" {
		return errors.New("recipient is required")
	}
	if err := validate.Var(recipient, "email"); err != nil {
		return errors.New("recipient is not a valid email address")
	}
	if strings.TrimSpace(msg.Subject) == "" {
		return errors.New("subject is required")
	}
	if strings.TrimSpace(msg.Body) == "" && !msg.HasWeatherData() {
		return errors.New("body is required when no weather data is present")
	}
	return nil
}
