package notify

import (
	"fmt"

	"salonbook/backend/internal/domain"
)

type Message struct {
	To      string
	Subject string
	Body    string
}

// Compose renders the customer email for an appointment event.
func Compose(view domain.AppointmentView, action domain.Status) Message {
	return Message{
		To:      view.UserEmail,
		Subject: fmt.Sprintf("Appointment %s", action),
		Body: fmt.Sprintf(
			"Dear %s,\n\nYour appointment for %s on %s has been %s.\n\nBest regards,\nSalon Team",
			view.Username, view.ServiceName, domain.FormatSlot(view.DateTime), action,
		),
	}
}
