package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// StepKind enumerates the dialogue steps that accept free text. The engine
// dispatches on this closed set; steps that need a subject carry it in typed
// Step fields rather than encoded into the tag.
type StepKind string

const (
	StepNone StepKind = ""

	// Product creation, collected linearly.
	StepProductName        StepKind = "product_name"
	StepProductDescription StepKind = "product_description"
	StepProductPrice       StepKind = "product_price"
	StepProductStock       StepKind = "product_stock"
	StepProductCategory    StepKind = "product_category"

	StepBroadcast   StepKind = "broadcast"
	StepSearchQuery StepKind = "search_query"

	// Wallet flows.
	StepCustomDeposit    StepKind = "custom_deposit"
	StepDepositMethod    StepKind = "deposit_method"
	StepWithdrawalAmount StepKind = "withdrawal_amount"
	StepWithdrawalMethod StepKind = "withdrawal_method"
	StepWithdrawalDetail StepKind = "withdrawal_details"

	// Steps with a subject.
	StepTracking StepKind = "tracking"
	StepSupport  StepKind = "support"
	StepReply    StepKind = "reply"
)

// Step is the tagged variant identifying what input the session accepts next.
type Step struct {
	Kind StepKind `json:"kind"`
	// OrderID is set for StepTracking.
	OrderID string `json:"order_id,omitempty"`
	// ReplyTo is set for StepReply.
	ReplyTo int64 `json:"reply_to,omitempty"`
}

// None reports whether no dialogue step is in progress.
func (s Step) None() bool { return s.Kind == StepNone }

// ProductDraft accumulates the fields of a product being created.
type ProductDraft struct {
	Name        string          `json:"name,omitempty"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Category    string          `json:"category,omitempty"`
}

// DepositDraft tracks an in-progress deposit.
type DepositDraft struct {
	Amount   decimal.Decimal `json:"amount"`
	Method   string          `json:"method,omitempty"`
	IntentID string          `json:"intent_id,omitempty"`
}

// WithdrawalDraft tracks an in-progress withdrawal. Method is chosen before
// the amount, and selects the detail prompt that follows it.
type WithdrawalDraft struct {
	Method string          `json:"method,omitempty"`
	Amount decimal.Decimal `json:"amount"`
}

// PurchaseDraft tracks a checkout awaiting external payment confirmation.
type PurchaseDraft struct {
	Method   string `json:"method,omitempty"`
	IntentID string `json:"intent_id,omitempty"`
}

// Session is the per-counterparty dialogue state. It is replaced wholesale at
// each step transition and expires after a fixed idle period; expiry only
// abandons incomplete dialogue, never money or stock.
type Session struct {
	UserID int64 `json:"user_id"`
	Step   Step  `json:"step"`

	Product    ProductDraft    `json:"product,omitempty"`
	Deposit    DepositDraft    `json:"deposit,omitempty"`
	Withdrawal WithdrawalDraft `json:"withdrawal,omitempty"`
	Purchase   PurchaseDraft   `json:"purchase,omitempty"`

	// LastPromptID is the transport id of the engine's previous message, so
	// the next prompt can retract it.
	LastPromptID string `json:"last_prompt_id,omitempty"`

	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
}

// NewSession creates an idle session for a counterparty.
func NewSession(userID int64, now time.Time) *Session {
	return &Session{
		UserID:       userID,
		CreatedAt:    now,
		LastActivity: now,
	}
}

// ClearStep abandons any in-progress dialogue, keeping the prompt pointer so
// the next render can retract the previous message.
func (s *Session) ClearStep() {
	s.Step = Step{}
	s.Product = ProductDraft{}
	s.Deposit = DepositDraft{}
	s.Withdrawal = WithdrawalDraft{}
	s.Purchase = PurchaseDraft{}
}

// IdleSince reports whether the session has been inactive past the deadline.
func (s *Session) IdleSince(cutoff time.Time) bool {
	return s.LastActivity.Before(cutoff)
}
