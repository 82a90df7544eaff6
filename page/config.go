// Package page models the merchant-published Page Configuration consumed by
// the checkout flow. The builder publishes a loosely-typed JSON document;
// Parse turns it into an exhaustively-checked shape so pricing and guard
// logic never probe for optional fields ad hoc.
package page

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound    = errors.New("page not found")
	ErrMalformed   = errors.New("malformed page configuration")
	ErrInvalidSlug = errors.New("invalid slug")
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// PricingMode selects how the charged base amount is determined.
type PricingMode int

const (
	// Fixed charges the configuration's own base price.
	Fixed PricingMode = iota
	// BuyerChooses lets the visitor enter the amount (pay what you want).
	BuyerChooses
)

type Product struct {
	ID          string
	Title       string
	Description string
	Image       string
	Price       decimal.Decimal
}

// Config is the parsed, validated Page Configuration. Read-only to the
// checkout flow; the builder overwrites it wholesale on publish.
type Config struct {
	Slug        string
	Title       string
	Description string
	CTA         string

	Mode          PricingMode
	BasePrice     decimal.Decimal
	DiscountPrice *decimal.Decimal // informational badge only, never charged
	GSTPercent    decimal.Decimal

	// Products, when non-empty, makes checkout per-product: the selected
	// product's price replaces the base price.
	Products []Product

	EmailVerificationRequired bool
	PhoneVerificationRequired bool

	SalesDeactivated bool
	ExpiryDate       *time.Time

	RedirectURL     string
	SuccessTitle    string
	SuccessMessage  string
	DigitalFileLink string
}

// document mirrors the field names the builder writes. Prices arrive as
// strings ("1000"), GST as "18" or "18%".
type document struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	CTA         string `json:"cta"`

	PricingType   string `json:"pricingType"`
	Price         string `json:"price"`
	DiscountPrice string `json:"discountPrice"`
	GSTOnPrice    string `json:"gstOnPrice"`

	Products []struct {
		ID          string `json:"id"`
		Title       string `json:"title"`
		Description string `json:"description"`
		Image       string `json:"image"`
		Price       string `json:"price"`
	} `json:"products"`

	EmailVerification bool `json:"emailVerification"`
	PhoneVerification bool `json:"phoneVerification"`

	DeactivateSales bool   `json:"deactivateSales"`
	PageExpiry      bool   `json:"pageExpiry"`
	PageExpiryDate  string `json:"pageExpiryDate"`

	CustomRedirectURL   string `json:"customRedirectUrl"`
	SuccessMessageTitle string `json:"successMessageTitle"`
	SuccessMessage      string `json:"successMessage"`
	DigitalFilesLink    string `json:"digitalFilesLink"`
}

func ValidSlug(slug string) bool {
	return slugPattern.MatchString(slug)
}

// Parse decodes a published configuration document. A document that is not
// valid JSON is the one unrecoverable input in the whole flow and comes back
// as ErrMalformed; callers surface it as a not-found page.
func Parse(slug string, raw []byte) (Config, error) {
	if !ValidSlug(slug) {
		return Config{}, ErrInvalidSlug
	}

	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Config{}, ErrMalformed
	}

	cfg := Config{
		Slug:        slug,
		Title:       doc.Title,
		Description: doc.Description,
		CTA:         doc.CTA,

		Mode:       parseMode(doc.PricingType),
		BasePrice:  parseAmount(doc.Price),
		GSTPercent: parsePercent(doc.GSTOnPrice),

		EmailVerificationRequired: doc.EmailVerification,
		PhoneVerificationRequired: doc.PhoneVerification,

		SalesDeactivated: doc.DeactivateSales,

		RedirectURL:     doc.CustomRedirectURL,
		SuccessTitle:    doc.SuccessMessageTitle,
		SuccessMessage:  doc.SuccessMessage,
		DigitalFileLink: doc.DigitalFilesLink,
	}

	if doc.DiscountPrice != "" {
		d := parseAmount(doc.DiscountPrice)
		if d.IsPositive() && d.LessThan(cfg.BasePrice) {
			cfg.DiscountPrice = &d
		}
	}

	if doc.PageExpiry && doc.PageExpiryDate != "" {
		if t, err := parseDate(doc.PageExpiryDate); err == nil {
			cfg.ExpiryDate = &t
		}
	}

	for _, p := range doc.Products {
		cfg.Products = append(cfg.Products, Product{
			ID:          p.ID,
			Title:       p.Title,
			Description: p.Description,
			Image:       p.Image,
			Price:       parseAmount(p.Price),
		})
	}

	return cfg, nil
}

func parseMode(s string) PricingMode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "flexible", "pwyw", "customer":
		return BuyerChooses
	default:
		return Fixed
	}
}

// parseAmount resolves missing or non-numeric inputs to zero rather than
// failing: the builder never validated these fields, so the flow must not
// choke on them.
func parseAmount(s string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil || d.IsNegative() {
		return decimal.Zero
	}
	return d
}

func parsePercent(s string) decimal.Decimal {
	s = strings.TrimSuffix(strings.TrimSpace(s), "%")
	d := parseAmount(s)
	if d.GreaterThan(decimal.NewFromInt(100)) {
		return decimal.Zero
	}
	return d
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

// Expired reports whether the page is past its expiry date.
func (c Config) Expired(now time.Time) bool {
	return c.ExpiryDate != nil && c.ExpiryDate.Before(now)
}

// Purchasable reports whether a new checkout may open against this page.
func (c Config) Purchasable(now time.Time) bool {
	return !c.SalesDeactivated && !c.Expired(now)
}

// FindProduct looks up a product by id; nil when the page has no such product.
func (c Config) FindProduct(id string) *Product {
	for i := range c.Products {
		if c.Products[i].ID == id {
			return &c.Products[i]
		}
	}
	return nil
}
