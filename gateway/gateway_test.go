package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testClient(url string) *Client {
	return &Client{
		BaseURL:    url,
		KeyID:      "rzp_test_key",
		KeySecret:  "test_secret",
		HTTPClient: &http.Client{Timeout: time.Second},
	}
}

func TestCreateOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/orders" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "rzp_test_key" || pass != "test_secret" {
			t.Error("missing or wrong basic auth")
		}

		var body struct {
			Amount   int64  `json:"amount"`
			Currency string `json:"currency"`
			Receipt  string `json:"receipt"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("bad request body: %v", err)
		}
		if body.Amount != 118000 {
			t.Errorf("amount = %d, want 118000", body.Amount)
		}
		if body.Currency != "INR" {
			t.Errorf("currency = %q, want INR (default)", body.Currency)
		}
		if body.Receipt == "" {
			t.Error("receipt should default to a generated token")
		}

		json.NewEncoder(w).Encode(Order{
			ID: "order_123", Amount: body.Amount, Currency: body.Currency,
			Receipt: body.Receipt, Status: "created",
		})
	}))
	defer srv.Close()

	order, err := testClient(srv.URL).CreateOrder(118000, "", "")
	if err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}
	if order.ID != "order_123" || order.Amount != 118000 {
		t.Errorf("order = %+v", order)
	}
}

func TestCreateOrderGatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"code":"BAD_REQUEST_ERROR","description":"amount too small"}}`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).CreateOrder(1, "INR", "r1")
	var gerr *Error
	if !errors.As(err, &gerr) {
		t.Fatalf("err = %v, want *Error", err)
	}
	if gerr.Code != "BAD_REQUEST_ERROR" || gerr.Description != "amount too small" {
		t.Errorf("gateway error = %+v", gerr)
	}
}

func TestCreateOrderTransportError(t *testing.T) {
	c := testClient("http://127.0.0.1:1")
	_, err := c.CreateOrder(1000, "INR", "r1")
	var gerr *Error
	if !errors.As(err, &gerr) {
		t.Fatalf("err = %v, want *Error", err)
	}
	if gerr.Code != "TRANSPORT" {
		t.Errorf("code = %q, want TRANSPORT", gerr.Code)
	}
}

func TestVerifySignature(t *testing.T) {
	c := testClient("")

	mac := hmac.New(sha256.New, []byte("test_secret"))
	mac.Write([]byte("order_123|pay_456"))
	good := hex.EncodeToString(mac.Sum(nil))

	if !c.VerifySignature("order_123", "pay_456", good) {
		t.Error("valid signature rejected")
	}
	if c.VerifySignature("order_123", "pay_456", "deadbeef") {
		t.Error("bogus signature accepted")
	}
	if c.VerifySignature("order_999", "pay_456", good) {
		t.Error("signature for a different order accepted")
	}
}
