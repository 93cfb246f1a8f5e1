package reminders

import (
	"fmt"
	"math"
	"time"

	"github.com/wolfman30/clinic-scheduling-platform/internal/appointments"
	"github.com/wolfman30/clinic-scheduling-platform/internal/directory"
	"github.com/wolfman30/clinic-scheduling-platform/internal/notify"
)

// RenderMessage builds the outbound notification for a reminder.
func RenderMessage(r *Reminder, appt *appointments.Appointment, patient *directory.Patient) notify.Message {
	name := patient.FullName
	if name == "" {
		name = "there"
	}

	lead := humanLead(appt.StartTime.Sub(r.ScheduledTime))
	when := appt.StartTime.Format("Monday, January 2 at 3:04 PM")

	subject := fmt.Sprintf("Appointment reminder: %s", when)
	body := fmt.Sprintf(
		"Hi %s! This is a reminder that you have an appointment %s, on %s (%d minutes).",
		name, lead, when, appt.DurationMinutes,
	)
	if appt.Reason != "" {
		body += fmt.Sprintf(" Reason: %s.", appt.Reason)
	}
	body += " Reply or call us if you need to reschedule."

	return notify.Message{
		To:          patient.Email,
		ToName:      patient.FullName,
		Subject:     subject,
		Body:        body,
		Phone:       patient.Phone,
		DeviceToken: patient.DeviceToken,
	}
}

func humanLead(d time.Duration) string {
	hours := int(math.Round(d.Hours()))
	switch {
	case hours <= 1:
		return "in about an hour"
	case hours < 48:
		return fmt.Sprintf("in about %d hours", hours)
	default:
		days := hours / 24
		return fmt.Sprintf("in about %d days", days)
	}
}
