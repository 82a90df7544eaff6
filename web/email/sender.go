package email

import (
	"fmt"
	"log"

	"sellpage/verify"
)

// CodeSender delivers verification codes. Email goes out over SMTP; the
// phone channel is a log-only stub until an SMS provider is wired in, so
// phone delivery is a convenience, not a guarantee.
type CodeSender struct{}

func (CodeSender) SendCode(channel verify.Channel, target, code string) error {
	switch channel {
	case verify.Email:
		return SendVerificationCode(target, code)
	case verify.Phone:
		log.Printf("[verification] phone code %s for %s (SMS stub)", code, target)
		return nil
	default:
		return fmt.Errorf("unknown verification channel %q", channel)
	}
}
