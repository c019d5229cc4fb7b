package utils

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/tmatveev/earnbot/internal/earnbot/models"
)

var upiRe = regexp.MustCompile(`^[a-zA-Z0-9.\-_]{2,64}@[a-zA-Z]{2,32}$`)

// ValidateUPI checks the basic shape of a UPI ID (handle@psp)
func ValidateUPI(id string) bool {
	return upiRe.MatchString(id)
}

// ValidateBankAccount checks a bank account number: digits only, 9 to 18
// characters
func ValidateBankAccount(number string) bool {
	if len(number) < 9 || len(number) > 18 {
		return false
	}
	return IsNumeric(number)
}

// IsNumeric checks if a string contains only digits
func IsNumeric(s string) bool {
	_, err := strconv.ParseInt(s, 10, 64)
	return err == nil && !strings.HasPrefix(s, "-")
}

// ValidatePayoutDetails checks user-supplied payout destination info for the
// given method. Redeem-code payouts only need a delivery contact, so any
// non-empty string passes.
func ValidatePayoutDetails(method, details string) bool {
	details = strings.TrimSpace(details)
	if details == "" {
		return false
	}

	switch method {
	case models.MethodUPI:
		return ValidateUPI(details)
	case models.MethodBank:
		return ValidateBankAccount(details)
	case models.MethodRedeem:
		return len(details) <= 128
	}
	return false
}
