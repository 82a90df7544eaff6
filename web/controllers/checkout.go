package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"sellpage/checkout"
	"sellpage/gateway"
	"sellpage/page"
	"sellpage/verify"
	"sellpage/web/db"
)

// OpenCheckout starts a session for a page: the "buy" click. Binds a
// product when the click came from a product card.
func OpenCheckout(c *gin.Context) {
	slug := c.Param("slug")

	var body struct {
		ProductID string `json:"product_id"`
	}
	c.ShouldBindJSON(&body)

	s, err := machine.Open(slug, body.ProductID)
	if err != nil {
		status := http.StatusBadRequest
		switch {
		case errors.Is(err, page.ErrNotFound), errors.Is(err, page.ErrInvalidSlug):
			status = http.StatusNotFound
		case errors.Is(err, checkout.ErrSalesDeactivated), errors.Is(err, checkout.ErrPageExpired):
			status = http.StatusForbidden
		case errors.Is(err, checkout.ErrUnknownProduct):
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session_id": s.ID,
		"state":      checkout.StateInfo.String(),
	})
}

// GetCheckout reports the session's current state and verification flags.
func GetCheckout(c *gin.Context) {
	snap, err := machine.Snapshot(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session_id":     snap.ID,
		"state":          snap.State.String(),
		"email_verified": snap.EmailVerified,
		"phone_verified": snap.PhoneVerified,
	})
}

// SetContact records the buyer's email/phone and, for pay-what-you-want
// pages, the chosen amount. Non-numeric amounts resolve to zero.
func SetContact(c *gin.Context) {
	var body struct {
		Email        string `json:"email"`
		Phone        string `json:"phone"`
		CustomAmount string `json:"custom_amount"`
	}
	if err := c.BindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	var custom *decimal.Decimal
	if body.CustomAmount != "" {
		d, err := decimal.NewFromString(body.CustomAmount)
		if err != nil || d.IsNegative() {
			d = decimal.Zero
		}
		custom = &d
	}

	if err := machine.SetContact(c.Param("id"), body.Email, body.Phone, custom); err != nil {
		c.JSON(checkoutStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{})
}

// SendCode issues a verification challenge for one channel.
func SendCode(c *gin.Context) {
	var body struct {
		Channel string `json:"channel"`
	}
	if err := c.BindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	err := machine.SendCode(c.Param("id"), verify.Channel(body.Channel))
	if errors.Is(err, verify.ErrDeliveryFailed) {
		// the code is stored; the buyer should retry the send
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to send the code. Please try again."})
		return
	}
	if err != nil {
		c.JSON(checkoutStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Code sent"})
}

// ConfirmCode resolves a pending challenge.
func ConfirmCode(c *gin.Context) {
	var body struct {
		Channel string `json:"channel"`
		Code    string `json:"code"`
	}
	if err := c.BindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	err := machine.ConfirmCode(c.Param("id"), verify.Channel(body.Channel), body.Code)
	if err != nil {
		status := checkoutStatus(err)
		switch {
		case errors.Is(err, verify.ErrInvalidCode), errors.Is(err, verify.ErrCodeExpired):
			status = http.StatusBadRequest
		case errors.Is(err, verify.ErrTooManyAttempts):
			status = http.StatusTooManyRequests
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"verified": true})
}

// Pay moves the session to the gateway (or straight to completed for a
// zero amount) and returns what the client needs to launch the hosted
// checkout UI.
func Pay(c *gin.Context) {
	id := c.Param("id")

	intent, err := machine.Pay(id)
	if err != nil {
		var gerr *gateway.Error
		if errors.As(err, &gerr) {
			c.JSON(http.StatusBadGateway, gin.H{
				"error":       "Payment order could not be created",
				"reason":      gerr.Code,
				"description": gerr.Description,
			})
			return
		}
		c.JSON(checkoutStatus(err), gin.H{"error": err.Error()})
		return
	}

	if intent.Free {
		snap, _ := machine.Snapshot(id)
		c.JSON(http.StatusOK, gin.H{
			"free":       true,
			"state":      checkout.StateCompleted.String(),
			"completion": completionBody(snap),
		})
		return
	}

	order := db.PaymentOrder{
		OrderID:   intent.OrderID,
		SessionID: id,
		Slug:      intent.Slug,
		Amount:    intent.Amount,
		Currency:  intent.Currency,
		Receipt:   intent.Receipt,
		Status:    "pending",
	}
	if err := db.DB.Create(&order).Error; err != nil {
		// Roll the session back to the form, otherwise it is stuck awaiting
		// a gateway the client was never handed.
		machine.CancelPayment(id)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record payment order"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"key_id":   payGW.KeyID,
		"order_id": intent.OrderID,
		"amount":   intent.Amount,
		"currency": intent.Currency,
		"prefill": gin.H{
			"email":   intent.Email,
			"contact": intent.Phone,
		},
	})
}

// PaymentCallback is the gateway success callback. Completion requires the
// payment signature to verify server-side; a replay after completion is a
// no-op error and never double-records.
func PaymentCallback(c *gin.Context) {
	var body struct {
		OrderID   string `json:"razorpay_order_id"`
		PaymentID string `json:"razorpay_payment_id"`
		Signature string `json:"razorpay_signature"`
	}
	if err := c.BindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	id := c.Param("id")
	err := machine.HandlePaymentSuccess(id, body.OrderID, body.PaymentID, body.Signature)
	if err != nil {
		status := checkoutStatus(err)
		if errors.Is(err, checkout.ErrBadSignature) {
			status = http.StatusForbidden
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	db.DB.Model(&db.PaymentOrder{}).Where("order_id = ?", body.OrderID).
		Updates(map[string]any{"status": "paid", "payment_id": body.PaymentID})

	snap, _ := machine.Snapshot(id)
	c.JSON(http.StatusOK, gin.H{
		"state":      checkout.StateCompleted.String(),
		"completion": completionBody(snap),
	})
}

// CancelPayment handles the gateway dismiss/failure callback: back to the
// form, order abandoned.
func CancelPayment(c *gin.Context) {
	id := c.Param("id")

	snap, err := machine.Snapshot(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	orderID := snap.OrderID

	if err := machine.CancelPayment(id); err != nil {
		c.JSON(checkoutStatus(err), gin.H{"error": err.Error()})
		return
	}

	if orderID != "" {
		db.DB.Model(&db.PaymentOrder{}).Where("order_id = ?", orderID).
			Update("status", "abandoned")
	}

	c.JSON(http.StatusOK, gin.H{"state": checkout.StateInfo.String()})
}

// CloseCheckout discards the session: the explicit close from any state.
func CloseCheckout(c *gin.Context) {
	machine.Close(c.Param("id"))
	c.JSON(http.StatusOK, gin.H{})
}

func completionBody(snap checkout.Snapshot) gin.H {
	return gin.H{
		"redirect_url":      snap.Page.RedirectURL,
		"success_title":     snap.Page.SuccessTitle,
		"success_message":   snap.Page.SuccessMessage,
		"digital_file_link": snap.Page.DigitalFileLink,
	}
}

func checkoutStatus(err error) int {
	switch {
	case errors.Is(err, checkout.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, checkout.ErrInvalidState),
		errors.Is(err, checkout.ErrVerificationRequired),
		errors.Is(err, checkout.ErrOrderMismatch):
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}
