// Package checkout drives one buyer from "intent to buy" to a recorded
// sale: contact collection, verification gating, pricing, gateway handoff
// and completion. Transitions are guarded so verification cannot be skipped
// and a session cannot complete twice.
package checkout

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"sellpage/gateway"
	"sellpage/page"
	"sellpage/pricing"
	"sellpage/utils"
	"sellpage/verify"
)

var (
	ErrSessionNotFound      = errors.New("checkout session not found")
	ErrSalesDeactivated     = errors.New("sales are deactivated for this page")
	ErrPageExpired          = errors.New("this page has expired")
	ErrUnknownProduct       = errors.New("unknown product")
	ErrInvalidState         = errors.New("operation not allowed in current state")
	ErrMissingTarget        = errors.New("contact detail for this channel is empty")
	ErrVerificationRequired = errors.New("required verifications are not complete")
	ErrNoChallenge          = errors.New("no code was requested for this channel")
	ErrUnknownChannel       = errors.New("unknown verification channel")
	ErrOrderMismatch        = errors.New("callback order does not match this session")
	ErrBadSignature         = errors.New("payment signature verification failed")
)

// PageLoader fetches a published configuration by slug.
type PageLoader interface {
	Load(slug string) (page.Config, error)
}

// Gateway is the slice of the payment processor the machine needs.
type Gateway interface {
	CreateOrder(amount int64, currency, receipt string) (gateway.Order, error)
	VerifySignature(orderID, paymentID, signature string) bool
}

// Verifier is the slice of the verification service the machine needs.
type Verifier interface {
	Issue(channel verify.Channel, target string) error
	Confirm(target, code string) error
}

// SaleRecorder records a completed sale, idempotent per ref.
type SaleRecorder interface {
	RecordSale(slug string, amount decimal.Decimal, ref string) error
}

// PaymentIntent is what Pay hands back to the client: either a free
// completion or the parameters for launching the hosted gateway UI.
type PaymentIntent struct {
	Free     bool
	Slug     string
	OrderID  string
	Amount   int64 // paise
	Currency string
	Receipt  string
	Email    string
	Phone    string
}

type Machine struct {
	pages    PageLoader
	verifier Verifier
	gateway  Gateway
	sales    SaleRecorder

	mu       sync.RWMutex
	sessions map[string]*Session

	now func() time.Time
}

func NewMachine(pages PageLoader, verifier Verifier, gw Gateway, sales SaleRecorder) *Machine {
	return &Machine{
		pages:    pages,
		verifier: verifier,
		gateway:  gw,
		sales:    sales,
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

// Open starts a session for slug: the Idle -> Info transition. A page past
// its expiry date or with sales deactivated blocks the transition entirely.
// productID binds the session to one product card when set.
func (m *Machine) Open(slug, productID string) (*Session, error) {
	cfg, err := m.pages.Load(slug)
	if err != nil {
		return nil, err
	}

	now := m.now()
	if cfg.SalesDeactivated {
		return nil, ErrSalesDeactivated
	}
	if cfg.Expired(now) {
		return nil, ErrPageExpired
	}

	s := &Session{
		ID:        utils.GenerateUUID(),
		Page:      cfg,
		State:     StateInfo,
		CreatedAt: now,
	}
	if productID != "" {
		p := cfg.FindProduct(productID)
		if p == nil {
			return nil, ErrUnknownProduct
		}
		s.Selected = p
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	return s, nil
}

func (m *Machine) Get(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Snapshot returns a copy of the session's client-visible fields taken
// under its lock, safe to read while other requests drive transitions.
func (m *Machine) Snapshot(id string) (Snapshot, error) {
	s, err := m.Get(id)
	if err != nil {
		return Snapshot{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		ID:            s.ID,
		State:         s.State,
		EmailVerified: s.EmailStatus == ChallengeVerified,
		PhoneVerified: s.PhoneStatus == ChallengeVerified,
		Page:          s.Page,
	}
	if s.Order != nil {
		snap.OrderID = s.Order.ID
	}
	return snap, nil
}

// SetContact updates the buyer's details while in Info. Changing a contact
// value resets that channel's verification, so a verified flag can never
// refer to a stale address.
func (m *Machine) SetContact(id, email, phone string, custom *decimal.Decimal) error {
	s, err := m.Get(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.State != StateInfo {
		return ErrInvalidState
	}

	if email != s.Email {
		s.Email = email
		s.EmailStatus = ChallengeNone
	}
	if phone != s.Phone {
		s.Phone = phone
		s.PhoneStatus = ChallengeNone
	}
	if custom != nil {
		s.CustomAmount = custom
	}
	return nil
}

// SendCode issues a verification challenge for the given channel. On
// delivery failure the challenge is stored anyway, so the channel still
// moves to pending and the error is surfaced for a retry.
func (m *Machine) SendCode(id string, channel verify.Channel) error {
	s, err := m.Get(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.State != StateInfo {
		return ErrInvalidState
	}

	var status *ChannelStatus
	switch channel {
	case verify.Email:
		status = &s.EmailStatus
	case verify.Phone:
		status = &s.PhoneStatus
	default:
		return ErrUnknownChannel
	}

	target := s.target(string(channel))
	if target == "" {
		return ErrMissingTarget
	}

	err = m.verifier.Issue(channel, target)
	if err != nil && !errors.Is(err, verify.ErrDeliveryFailed) {
		return err
	}

	*status = ChallengeSent
	return err
}

// ConfirmCode resolves a pending challenge; on success the channel is
// verified and the session is back to plain Info. A failed confirm leaves
// the channel pending for a retry.
func (m *Machine) ConfirmCode(id string, channel verify.Channel, code string) error {
	s, err := m.Get(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.State != StateInfo {
		return ErrInvalidState
	}

	var status *ChannelStatus
	switch channel {
	case verify.Email:
		status = &s.EmailStatus
	case verify.Phone:
		status = &s.PhoneStatus
	default:
		return ErrUnknownChannel
	}
	if *status != ChallengeSent {
		return ErrNoChallenge
	}

	if err := m.verifier.Confirm(s.target(string(channel)), code); err != nil {
		return err
	}

	*status = ChallengeVerified
	return nil
}

// Pay is the Info -> AwaitingGateway transition. It refuses until the
// verification guard holds, prices the attempt, and either creates a
// gateway order or, for a zero amount, completes immediately as a free
// claim. A gateway error leaves the session in Info.
func (m *Machine) Pay(id string) (PaymentIntent, error) {
	s, err := m.Get(id)
	if err != nil {
		return PaymentIntent{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.State != StateInfo {
		return PaymentIntent{}, ErrInvalidState
	}
	if !s.canComplete() {
		return PaymentIntent{}, ErrVerificationRequired
	}

	amount := pricing.FinalAmount(s.Page, s.Selected, s.CustomAmount)
	s.FinalAmount = amount

	if !amount.IsPositive() {
		if err := m.sales.RecordSale(s.Page.Slug, amount, "session:"+s.ID); err != nil {
			return PaymentIntent{}, fmt.Errorf("recording free claim: %w", err)
		}
		s.State = StateCompleted
		return PaymentIntent{Free: true, Slug: s.Page.Slug}, nil
	}

	order, err := m.gateway.CreateOrder(pricing.MinorUnits(amount), "INR", "")
	if err != nil {
		return PaymentIntent{}, err
	}

	s.Order = &order
	s.State = StateAwaitingGateway

	return PaymentIntent{
		Slug:     s.Page.Slug,
		OrderID:  order.ID,
		Amount:   order.Amount,
		Currency: order.Currency,
		Receipt:  order.Receipt,
		Email:    s.Email,
		Phone:    s.Phone,
	}, nil
}

// HandlePaymentSuccess is the AwaitingGateway -> Completed transition,
// driven by the gateway's success callback. The callback is only trusted
// after the payment signature verifies server-side; the sale is recorded
// before the state flips so a failed record can be retried by replaying
// the callback.
func (m *Machine) HandlePaymentSuccess(id, orderID, paymentID, signature string) error {
	s, err := m.Get(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.State != StateAwaitingGateway {
		return ErrInvalidState
	}
	if s.Order == nil || s.Order.ID != orderID {
		return ErrOrderMismatch
	}
	if !m.gateway.VerifySignature(orderID, paymentID, signature) {
		return ErrBadSignature
	}

	if err := m.sales.RecordSale(s.Page.Slug, s.FinalAmount, paymentID); err != nil {
		return fmt.Errorf("recording sale: %w", err)
	}

	s.PaymentID = paymentID
	s.State = StateCompleted
	return nil
}

// CancelPayment is the gateway dismiss/failure path: back to Info with the
// created order abandoned. The next Pay creates a fresh order.
func (m *Machine) CancelPayment(id string) error {
	s, err := m.Get(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.State != StateAwaitingGateway {
		return ErrInvalidState
	}

	s.Order = nil
	s.State = StateInfo
	return nil
}

// Close discards the session from any state. Consumed challenges stay
// consumed; reopening checkout starts verification over.
func (m *Machine) Close(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

// StartCleanup drops sessions older than maxAge, catching flows the buyer
// abandoned without closing.
func (m *Machine) StartCleanup(interval, maxAge time.Duration) {
	go func() {
		for {
			time.Sleep(interval)
			cutoff := m.now().Add(-maxAge)
			m.mu.Lock()
			for id, s := range m.sessions {
				if s.CreatedAt.Before(cutoff) {
					delete(m.sessions, id)
				}
			}
			m.mu.Unlock()
		}
	}()
}
