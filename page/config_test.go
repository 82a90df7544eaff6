package page

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

const sampleDoc = `{
	"title": "Design Masterclass",
	"description": "Everything I know about layout.",
	"cta": "Get It Now",
	"pricingType": "fixed",
	"price": "1000",
	"discountPrice": "750",
	"gstOnPrice": "18%",
	"emailVerification": true,
	"phoneVerification": false,
	"deactivateSales": false,
	"products": [
		{"id": "p1", "title": "Ebook", "description": "PDF", "price": "499"},
		{"id": "p2", "title": "Video pack", "price": "999"}
	],
	"customRedirectUrl": "https://example.com/thanks",
	"digitalFilesLink": "https://files.example.com/bundle.zip"
}`

func TestParse(t *testing.T) {
	cfg, err := Parse("design-masterclass", []byte(sampleDoc))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if cfg.Mode != Fixed {
		t.Errorf("Mode = %v, want Fixed", cfg.Mode)
	}
	if !cfg.BasePrice.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("BasePrice = %s, want 1000", cfg.BasePrice)
	}
	if !cfg.GSTPercent.Equal(decimal.NewFromInt(18)) {
		t.Errorf("GSTPercent = %s, want 18", cfg.GSTPercent)
	}
	if cfg.DiscountPrice == nil || !cfg.DiscountPrice.Equal(decimal.NewFromInt(750)) {
		t.Errorf("DiscountPrice = %v, want 750", cfg.DiscountPrice)
	}
	if !cfg.EmailVerificationRequired || cfg.PhoneVerificationRequired {
		t.Errorf("verification flags = %v/%v, want true/false",
			cfg.EmailVerificationRequired, cfg.PhoneVerificationRequired)
	}
	if len(cfg.Products) != 2 {
		t.Fatalf("len(Products) = %d, want 2", len(cfg.Products))
	}
	if p := cfg.FindProduct("p2"); p == nil || !p.Price.Equal(decimal.NewFromInt(999)) {
		t.Errorf("FindProduct(p2) = %v, want price 999", p)
	}
	if cfg.FindProduct("missing") != nil {
		t.Error("FindProduct(missing) should be nil")
	}
}

func TestParseMalformed(t *testing.T) {
	_, err := Parse("some-page", []byte(`{"title": `))
	if !errors.Is(err, ErrMalformed) {
		t.Errorf("err = %v, want ErrMalformed", err)
	}
}

func TestParseSlug(t *testing.T) {
	valid := []string{"a", "my-page", "page-2024", "x1-y2-z3"}
	invalid := []string{"", "My-Page", "page_", "-page", "page-", "a--b", "sp ace"}

	for _, s := range valid {
		if !ValidSlug(s) {
			t.Errorf("ValidSlug(%q) = false, want true", s)
		}
	}
	for _, s := range invalid {
		if ValidSlug(s) {
			t.Errorf("ValidSlug(%q) = true, want false", s)
		}
	}

	if _, err := Parse("Bad Slug", []byte(`{}`)); !errors.Is(err, ErrInvalidSlug) {
		t.Errorf("err = %v, want ErrInvalidSlug", err)
	}
}

func TestParseLooseNumbers(t *testing.T) {
	cfg, err := Parse("loose", []byte(`{"price": "abc", "gstOnPrice": "", "discountPrice": "-5"}`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if !cfg.BasePrice.IsZero() {
		t.Errorf("non-numeric price should resolve to 0, got %s", cfg.BasePrice)
	}
	if !cfg.GSTPercent.IsZero() {
		t.Errorf("empty gst should resolve to 0, got %s", cfg.GSTPercent)
	}
	if cfg.DiscountPrice != nil {
		t.Errorf("negative discount should be dropped, got %s", cfg.DiscountPrice)
	}
}

func TestParseDiscountNotBelowBase(t *testing.T) {
	cfg, err := Parse("pricey", []byte(`{"price": "100", "discountPrice": "150"}`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if cfg.DiscountPrice != nil {
		t.Errorf("discount above base must be dropped, got %s", cfg.DiscountPrice)
	}
}

func TestPurchasable(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	cfg := Config{}
	if !cfg.Purchasable(now) {
		t.Error("plain page should be purchasable")
	}

	cfg = Config{SalesDeactivated: true}
	if cfg.Purchasable(now) {
		t.Error("deactivated page must not be purchasable")
	}

	cfg = Config{ExpiryDate: &past}
	if cfg.Purchasable(now) || !cfg.Expired(now) {
		t.Error("expired page must not be purchasable")
	}

	cfg = Config{ExpiryDate: &future}
	if !cfg.Purchasable(now) {
		t.Error("page with future expiry should be purchasable")
	}
}

func TestParseExpiryDate(t *testing.T) {
	cfg, err := Parse("expiring", []byte(`{"pageExpiry": true, "pageExpiryDate": "2024-01-15"}`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if cfg.ExpiryDate == nil {
		t.Fatal("ExpiryDate not parsed")
	}
	if cfg.ExpiryDate.Year() != 2024 || cfg.ExpiryDate.Month() != time.January {
		t.Errorf("ExpiryDate = %v", cfg.ExpiryDate)
	}

	// expiry date without the toggle is ignored
	cfg, err = Parse("not-expiring", []byte(`{"pageExpiryDate": "2024-01-15"}`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if cfg.ExpiryDate != nil {
		t.Error("expiry date without pageExpiry toggle should be ignored")
	}
}
