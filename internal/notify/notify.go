// Package notify delivers reminder notifications through concrete channels.
// The dispatcher only sees the Sender interface; adding a channel means adding
// one implementation and a Router case, not touching dispatch control flow.
package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/wolfman30/clinic-scheduling-platform/pkg/logging"
)

// Channel identifies how a reminder is delivered.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
	ChannelPush  Channel = "push"
	ChannelAll   Channel = "all"
)

// ValidChannel reports whether the value is a known channel.
func ValidChannel(c Channel) bool {
	switch c {
	case ChannelEmail, ChannelSMS, ChannelPush, ChannelAll:
		return true
	}
	return false
}

// Message is a rendered notification ready for delivery.
type Message struct {
	To          string // email address, phone number, or device token per channel
	ToName      string
	Subject     string
	Body        string
	Phone       string
	DeviceToken string
}

// Sender delivers a message over one channel.
type Sender interface {
	Send(ctx context.Context, ch Channel, msg Message) error
}

// Router fans messages out to the channel-specific senders. A nil sender for
// a requested channel is a send failure, not a silent drop.
type Router struct {
	Email  Sender
	SMS    Sender
	Push   Sender
	Logger *logging.Logger
}

// NewRouter creates a channel router.
func NewRouter(email, sms, push Sender, logger *logging.Logger) *Router {
	if logger == nil {
		logger = logging.Default()
	}
	return &Router{Email: email, SMS: sms, Push: push, Logger: logger}
}

// Send implements Sender. Channel all fans out to every configured channel
// and joins the failures.
func (r *Router) Send(ctx context.Context, ch Channel, msg Message) error {
	switch ch {
	case ChannelEmail:
		return r.sendVia(ctx, r.Email, ChannelEmail, msg)
	case ChannelSMS:
		return r.sendVia(ctx, r.SMS, ChannelSMS, msg)
	case ChannelPush:
		return r.sendVia(ctx, r.Push, ChannelPush, msg)
	case ChannelAll:
		return errors.Join(
			r.sendVia(ctx, r.Email, ChannelEmail, msg),
			r.sendVia(ctx, r.SMS, ChannelSMS, msg),
			r.sendVia(ctx, r.Push, ChannelPush, msg),
		)
	}
	return fmt.Errorf("notify: unknown channel %q", ch)
}

func (r *Router) sendVia(ctx context.Context, s Sender, ch Channel, msg Message) error {
	if s == nil {
		return fmt.Errorf("notify: no sender configured for channel %s", ch)
	}
	return s.Send(ctx, ch, msg)
}

// StubSender logs instead of sending; used in tests and when a channel is
// disabled in development.
type StubSender struct {
	logger *logging.Logger
}

// NewStubSender creates a stub sender.
func NewStubSender(logger *logging.Logger) *StubSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &StubSender{logger: logger}
}

// Send implements Sender.
func (s *StubSender) Send(ctx context.Context, ch Channel, msg Message) error {
	s.logger.Info("stub sender: would deliver notification",
		"channel", ch, "to", msg.To, "subject", msg.Subject)
	return nil
}
