package db

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Merchant struct {
	gorm.Model
	Email    string `gorm:"unique"`
	Password string
}

// Page is one published storefront page: the raw configuration document as
// the builder wrote it, the index fields the dashboard searches on, and the
// sale aggregates. The document is read-only to checkout; only the sale
// counters are ever mutated after publish.
type Page struct {
	gorm.Model
	Slug       string `gorm:"uniqueIndex;size:191"`
	MerchantID uint   `gorm:"index"`

	Title  string
	Price  string
	Status string

	Document datatypes.JSON

	SaleCount int
	Revenue   decimal.Decimal `gorm:"type:decimal(14,2)"`
}

// Challenge is one live verification code. Target (email address or phone
// number) is the key: reissuing overwrites the row, confirming deletes it.
type Challenge struct {
	Target    string `gorm:"primaryKey;size:191"`
	Code      string
	IssuedAt  time.Time
	ExpiresAt time.Time
	Attempts  int
}

// PaymentOrder tracks one gateway order through a checkout attempt.
// Status is one of: pending, paid, abandoned.
type PaymentOrder struct {
	gorm.Model
	OrderID   string `gorm:"uniqueIndex;size:191"`
	SessionID string `gorm:"index;size:191"`
	Slug      string `gorm:"index;size:191"`
	Amount    int64  // paise
	Currency  string
	Receipt   string
	Status    string
	PaymentID string
}
