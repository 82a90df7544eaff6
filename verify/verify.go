// Package verify issues and checks the one-time codes gating checkout on
// email/phone control. A target has at most one live challenge: reissuing
// overwrites, a successful confirm consumes it.
package verify

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"
)

const (
	// TTL bounds a challenge's lifetime.
	TTL = 5 * time.Minute
	// MaxAttempts burns the challenge after this many failed confirms.
	MaxAttempts = 5

	codeMin = 1000
	codeMax = 9999
)

type Channel string

const (
	Email Channel = "email"
	Phone Channel = "phone"
)

var (
	ErrEmptyTarget     = errors.New("verification target is required")
	ErrInvalidCode     = errors.New("invalid verification code")
	ErrCodeExpired     = errors.New("verification code expired")
	ErrTooManyAttempts = errors.New("too many failed attempts, request a new code")
	// ErrDeliveryFailed means the code was stored but could not be sent;
	// the caller should offer a retry.
	ErrDeliveryFailed = errors.New("failed to deliver verification code")
)

type Challenge struct {
	Target    string
	Code      string
	IssuedAt  time.Time
	ExpiresAt time.Time
	Attempts  int
}

// Sender delivers a freshly issued code over the given channel.
type Sender interface {
	SendCode(channel Channel, target, code string) error
}

type Service struct {
	store  Store
	sender Sender
	now    func() time.Time
}

func New(store Store, sender Sender) *Service {
	return &Service{store: store, sender: sender, now: time.Now}
}

// Issue generates a 4-digit code for target, stores it (replacing any prior
// live challenge for the same target) and dispatches it. On delivery failure
// the stored code is deliberately kept so a later confirm can still succeed;
// the caller gets ErrDeliveryFailed and a retry affordance.
func (s *Service) Issue(channel Channel, target string) error {
	if target == "" {
		return ErrEmptyTarget
	}

	code := strconv.Itoa(codeMin + rand.IntN(codeMax-codeMin+1))
	now := s.now()

	ch := Challenge{
		Target:    target,
		Code:      code,
		IssuedAt:  now,
		ExpiresAt: now.Add(TTL),
	}
	if err := s.store.Put(ch); err != nil {
		return fmt.Errorf("storing challenge: %w", err)
	}

	if err := s.sender.SendCode(channel, target, code); err != nil {
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}

	return nil
}

// Confirm checks the submitted code against the live challenge for target.
// A match consumes the challenge, making the code single-use. A mismatch
// leaves it in place for a retry until MaxAttempts, after which the
// challenge is burned.
func (s *Service) Confirm(target, submitted string) error {
	if target == "" {
		return ErrEmptyTarget
	}

	ch, ok, err := s.store.Get(target)
	if err != nil {
		return fmt.Errorf("loading challenge: %w", err)
	}
	if !ok {
		return ErrInvalidCode
	}

	if s.now().After(ch.ExpiresAt) {
		if err := s.store.Delete(target); err != nil {
			return fmt.Errorf("discarding expired challenge: %w", err)
		}
		return ErrCodeExpired
	}

	if ch.Code != submitted {
		attempts, err := s.store.BumpAttempts(target)
		if err != nil {
			return fmt.Errorf("recording failed attempt: %w", err)
		}
		if attempts >= MaxAttempts {
			if err := s.store.Delete(target); err != nil {
				return fmt.Errorf("burning challenge: %w", err)
			}
			return ErrTooManyAttempts
		}
		return ErrInvalidCode
	}

	// Compare-and-delete so a concurrent reissue for the same target cannot
	// be consumed by a stale code.
	deleted, err := s.store.DeleteMatching(target, submitted)
	if err != nil {
		return fmt.Errorf("consuming challenge: %w", err)
	}
	if !deleted {
		return ErrInvalidCode
	}

	return nil
}
