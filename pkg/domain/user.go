package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Role classifies a counterparty.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// User is a counterparty known to the store. Created on first contact, never
// deleted. Wallet and role are mutated only by commerce operations.
type User struct {
	ID         int64           `json:"id"`
	Name       string          `json:"name"`
	Handle     string          `json:"handle"`
	Role       Role            `json:"role"`
	Wallet     decimal.Decimal `json:"wallet"`
	TotalSpent decimal.Decimal `json:"total_spent"`
	OrderCount int             `json:"order_count"`

	// Transactions is the append-only ledger reconciling wallet changes.
	Transactions []Transaction `json:"transactions"`

	CreatedAt time.Time `json:"created_at"`
	LastSeen  time.Time `json:"last_seen"`
}

// NewUser creates a customer with a zero wallet.
func NewUser(id int64, name, handle string, now time.Time) *User {
	return &User{
		ID:        id,
		Name:      name,
		Handle:    handle,
		Role:      RoleCustomer,
		Wallet:    decimal.Zero,
		CreatedAt: now,
		LastSeen:  now,
	}
}

// IsAdmin reports whether the user holds the administrator role.
func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

// MethodWallet is the payment method settled against the user's wallet.
// Purchases by any other method are ledger entries for audit only and do not
// move the wallet.
const MethodWallet = "wallet"

// LedgerBalance replays the ledger: deposits and refunds credit, withdrawals
// and wallet purchases debit. Rejected entries and externally paid purchases
// do not move the wallet. At every terminal state this must equal Wallet.
func (u *User) LedgerBalance() decimal.Decimal {
	sum := decimal.Zero
	for _, txn := range u.Transactions {
		if txn.Status == TxnRejected {
			continue
		}
		switch txn.Kind {
		case TxnDeposit, TxnRefund:
			sum = sum.Add(txn.Amount)
		case TxnWithdrawal:
			sum = sum.Sub(txn.Amount)
		case TxnPurchase:
			if txn.Method == MethodWallet {
				sum = sum.Sub(txn.Amount)
			}
		}
	}
	return sum
}

// TxnKind classifies a ledger entry.
type TxnKind string

const (
	TxnDeposit    TxnKind = "deposit"
	TxnWithdrawal TxnKind = "withdrawal"
	TxnPurchase   TxnKind = "purchase"
	// TxnRefund is the reversing record appended when a wallet-paid order is
	// cancelled. A rejected withdrawal is reversed by flipping its own entry
	// to TxnRejected instead.
	TxnRefund TxnKind = "refund"
)

// TxnStatus tracks settlement of a ledger entry.
type TxnStatus string

const (
	TxnCompleted TxnStatus = "completed"
	// TxnPending marks a withdrawal that has been debited but awaits an
	// administrator decision.
	TxnPending  TxnStatus = "pending"
	TxnRejected TxnStatus = "rejected"
)

// Transaction is an append-only ledger entry. Never mutated after creation,
// except a pending withdrawal settling to completed or rejected.
type Transaction struct {
	ID        string          `json:"id"`
	UserID    int64           `json:"user_id"`
	Kind      TxnKind         `json:"kind"`
	Amount    decimal.Decimal `json:"amount"`
	Method    string          `json:"method"`
	OrderID   string          `json:"order_id,omitempty"`
	Details   string          `json:"details,omitempty"`
	Status    TxnStatus       `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
}
