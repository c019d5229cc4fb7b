package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// UserAccount represents a single user's ledger record
type UserAccount struct {
	UserID             string          `json:"user_id"`
	Balance            decimal.Decimal `json:"balance"`
	SolvedCount        int             `json:"solved_count"`
	LastShortlink      string          `json:"last_shortlink,omitempty"`
	LastCorrelation    string          `json:"last_correlation,omitempty"`
	ReferredBy         string          `json:"referred_by,omitempty"`
	ReferralCount      int             `json:"referral_count"`
	ChannelJoinedCount int             `json:"channel_joined_count"`
	Language           string          `json:"language,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
}

// LanguageSet reports whether the user has explicitly chosen a language.
func (a *UserAccount) LanguageSet() bool {
	return a.Language != ""
}

// AccountDelta describes atomic increments to apply to an account.
// Zero-valued fields mean "no change".
type AccountDelta struct {
	Balance        decimal.Decimal
	Solved         int
	Referrals      int
	ChannelsJoined int
}

// IsZero reports whether the delta would change nothing.
func (d AccountDelta) IsZero() bool {
	return d.Balance.IsZero() && d.Solved == 0 && d.Referrals == 0 && d.ChannelsJoined == 0
}

// AccountFields describes field overwrites for an account. Nil pointers mean
// "no change"; for the shortlink fields an empty string clears the stored
// value. ReferredBy is not part of this descriptor: it is set through the
// conditional SetReferredBy operation so the first referrer always wins.
type AccountFields struct {
	LastShortlink   *string
	LastCorrelation *string
	Language        *string
}

// WithdrawalRequest represents a single withdrawal attempt
type WithdrawalRequest struct {
	ID             string           `json:"id"`
	UserID         string           `json:"user_id"`
	AmountPoints   decimal.Decimal  `json:"amount_points"`
	AmountRupees   decimal.Decimal  `json:"amount_rupees"`
	Method         string           `json:"method"`
	Details        string           `json:"details"`
	Status         WithdrawalStatus `json:"status"`
	RejectReason   string           `json:"reject_reason,omitempty"`
	AdminMessageID int64            `json:"admin_message_id,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
}

// WithdrawalStatus is the lifecycle state of a withdrawal request
type WithdrawalStatus string

// Withdrawal status constants
const (
	StatusPending    WithdrawalStatus = "pending"
	StatusProcessing WithdrawalStatus = "processing"
	StatusApproved   WithdrawalStatus = "approved"
	StatusRejected   WithdrawalStatus = "rejected"
	StatusCompleted  WithdrawalStatus = "completed"
)

// Payout method constants
const (
	MethodUPI    = "upi"
	MethodBank   = "bank"
	MethodRedeem = "redeem"
)

// ErrInvalidTransition is returned when a withdrawal status change does not
// follow the state machine.
type ErrInvalidTransition struct {
	From WithdrawalStatus
	To   WithdrawalStatus
}

func (e *ErrInvalidTransition) Error() string {
	return fmt.Sprintf("invalid withdrawal status transition %s -> %s", e.From, e.To)
}

// transitions holds the allowed status edges. rejected and completed are
// terminal.
var transitions = map[WithdrawalStatus][]WithdrawalStatus{
	StatusPending:    {StatusProcessing},
	StatusProcessing: {StatusApproved, StatusRejected},
	StatusApproved:   {StatusCompleted},
}

// ValidStatus reports whether s is a known withdrawal status.
func ValidStatus(s WithdrawalStatus) bool {
	switch s {
	case StatusPending, StatusProcessing, StatusApproved, StatusRejected, StatusCompleted:
		return true
	}
	return false
}

// ValidMethod reports whether m is a known payout method.
func ValidMethod(m string) bool {
	switch m {
	case MethodUPI, MethodBank, MethodRedeem:
		return true
	}
	return false
}

// ValidateTransition checks a status edge against the state machine and
// returns an ErrInvalidTransition if the edge is not allowed.
func ValidateTransition(from, to WithdrawalStatus) error {
	for _, next := range transitions[from] {
		if next == to {
			return nil
		}
	}
	return &ErrInvalidTransition{From: from, To: to}
}
