package checkout

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"sellpage/gateway"
	"sellpage/page"
)

// State is the buyer-facing checkout progression. A Session existing at all
// means the buyer is past Idle; closing the flow deletes the Session, which
// is the return to Idle.
type State int

const (
	// StateInfo: collecting contact details, amount and verifications.
	StateInfo State = iota
	// StateAwaitingGateway: an order exists and the hosted payment UI owns
	// the buyer until its success or dismiss callback fires.
	StateAwaitingGateway
	// StateCompleted: terminal; the sale has been recorded.
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StateInfo:
		return "info"
	case StateAwaitingGateway:
		return "awaiting_gateway"
	case StateCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// ChannelStatus tracks one contact channel's verification progress. Both
// channels may hold a pending challenge at the same time.
type ChannelStatus int

const (
	ChallengeNone ChannelStatus = iota
	ChallengeSent
	ChallengeVerified
)

// Session is one buyer's in-progress attempt against one page. All access
// goes through Machine methods, which hold mu.
type Session struct {
	ID   string
	Page page.Config

	Selected     *page.Product
	CustomAmount *decimal.Decimal

	Email       string
	Phone       string
	EmailStatus ChannelStatus
	PhoneStatus ChannelStatus

	State       State
	Order       *gateway.Order
	FinalAmount decimal.Decimal
	PaymentID   string

	CreatedAt time.Time

	mu sync.Mutex
}

// Snapshot is a consistent copy of a session's client-visible fields, taken
// under the session lock. Handlers read sessions through snapshots only;
// Session fields are touched directly by Machine methods alone.
type Snapshot struct {
	ID            string
	State         State
	EmailVerified bool
	PhoneVerified bool
	OrderID       string
	Page          page.Config
}

// canComplete is the payment guard: every required verification resolved.
// Unrequired channels never block, verified or not.
func (s *Session) canComplete() bool {
	if s.Page.EmailVerificationRequired && s.EmailStatus != ChallengeVerified {
		return false
	}
	if s.Page.PhoneVerificationRequired && s.PhoneStatus != ChallengeVerified {
		return false
	}
	return true
}

func (s *Session) target(channel string) string {
	if channel == "phone" {
		return s.Phone
	}
	return s.Email
}
