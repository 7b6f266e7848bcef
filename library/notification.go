package library

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Logger is what the circulation core logs through. *slog.Logger satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

func discardLogger() Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// NotificationType says why a notification was raised.
type NotificationType string

const (
	NotifyDueReminder          NotificationType = "DUE_REMINDER"
	NotifyReservationAvailable NotificationType = "RESERVATION_AVAILABLE"
	NotifyFineAlert            NotificationType = "FINE_ALERT"
)

// Notification is a message for one account. Delivery is a log line; nothing
// schedules notifications on its own.
type Notification struct {
	ID          string           `json:"id"`
	RecipientID string           `json:"recipient_id"`
	Message     string           `json:"message"`
	Date        time.Time        `json:"date"`
	Type        NotificationType `json:"type"`
}

func newNotification(recipient Account, typ NotificationType, date time.Time, format string, args ...any) Notification {
	return Notification{
		ID:          uuid.NewString(),
		RecipientID: recipient.AccountID(),
		Message:     fmt.Sprintf(format, args...),
		Date:        Day(date),
		Type:        typ,
	}
}

// Send delivers the notification to log.
func (n Notification) Send(log Logger) {
	log.Info("notification.sent",
		"id", n.ID,
		"type", string(n.Type),
		"recipient", n.RecipientID,
		"date", n.Date.Format(time.DateOnly),
		"message", n.Message,
	)
}
