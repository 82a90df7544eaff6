package utils

import (
	"github.com/google/uuid"
	"github.com/thanhpk/randstr"
)

func GenerateUUID() string {
	return uuid.New().String()
}

// GenerateReceipt returns a short reference the payment gateway echoes back
// on its order object. Used when the caller does not supply one.
func GenerateReceipt() string {
	return "rcpt_" + randstr.String(12)
}
