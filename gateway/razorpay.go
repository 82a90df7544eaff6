// Package gateway talks to the external payment processor: creating orders
// ahead of the hosted checkout and verifying the signature the processor
// attaches to a successful payment.
package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"sellpage/utils"
)

const defaultBaseURL = "https://api.razorpay.com"

// Error carries the gateway's own failure code and description so they can
// be surfaced to the buyer instead of swallowed.
type Error struct {
	Code        string
	Description string
}

func (e *Error) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("gateway error %s: %s", e.Code, e.Description)
	}
	return fmt.Sprintf("gateway error %s", e.Code)
}

// Order is the gateway-side representation of one checkout's monetary
// request. Amount is in paise and is never renegotiated after creation.
type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

type Client struct {
	BaseURL    string
	KeyID      string
	KeySecret  string
	HTTPClient *http.Client
}

func NewClientFromEnv() *Client {
	return &Client{
		BaseURL:    defaultBaseURL,
		KeyID:      os.Getenv("RAZORPAY_KEY_ID"),
		KeySecret:  os.Getenv("RAZORPAY_KEY_SECRET"),
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// CreateOrder registers an order with the gateway. Amount is in paise.
// Currency defaults to INR, receipt to a generated token.
func (c *Client) CreateOrder(amount int64, currency, receipt string) (Order, error) {
	if currency == "" {
		currency = "INR"
	}
	if receipt == "" {
		receipt = utils.GenerateReceipt()
	}

	body, err := json.Marshal(map[string]any{
		"amount":   amount,
		"currency": currency,
		"receipt":  receipt,
	})
	if err != nil {
		return Order{}, err
	}

	req, err := http.NewRequest(http.MethodPost, c.BaseURL+"/v1/orders", bytes.NewReader(body))
	if err != nil {
		return Order{}, err
	}
	req.SetBasicAuth(c.KeyID, c.KeySecret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return Order{}, &Error{Code: "TRANSPORT", Description: err.Error()}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Order{}, &Error{Code: "TRANSPORT", Description: err.Error()}
	}

	if resp.StatusCode != http.StatusOK {
		return Order{}, parseError(resp.StatusCode, data)
	}

	var order Order
	if err := json.Unmarshal(data, &order); err != nil {
		return Order{}, &Error{Code: "BAD_RESPONSE", Description: err.Error()}
	}

	return order, nil
}

func parseError(status int, data []byte) *Error {
	var body struct {
		Error struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &body); err == nil && body.Error.Code != "" {
		return &Error{Code: body.Error.Code, Description: body.Error.Description}
	}
	return &Error{Code: fmt.Sprintf("HTTP_%d", status)}
}
