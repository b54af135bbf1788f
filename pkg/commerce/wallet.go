package commerce

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/telemart/telemart/pkg/domain"
)

// Balance returns the user's wallet balance.
func (s *Service) Balance(ctx context.Context, userID int64) (decimal.Decimal, error) {
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	return u.Wallet, nil
}

// Transactions returns the user's ledger, newest first.
func (s *Service) Transactions(ctx context.Context, userID int64) ([]domain.Transaction, error) {
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	txns := make([]domain.Transaction, len(u.Transactions))
	for i, t := range u.Transactions {
		txns[len(txns)-1-i] = t
	}
	return txns, nil
}

// BeginDeposit validates the amount and registers a payment intent with the
// provider. Nothing is credited until CompleteDeposit verifies the intent.
func (s *Service) BeginDeposit(ctx context.Context, userID int64, amount decimal.Decimal, method string) (intentID string, err error) {
	defer func() { s.record("begin_deposit", err) }()

	if amount.LessThan(s.pricing.MinDeposit) || amount.GreaterThan(s.pricing.MaxDeposit) {
		return "", domain.Validation("amount", fmt.Sprintf("must be between %s and %s %s",
			s.pricing.MinDeposit.StringFixed(2), s.pricing.MaxDeposit.StringFixed(2), s.pricing.Currency))
	}
	if s.payments == nil {
		return "", fmt.Errorf("%w: no provider configured", domain.ErrPaymentProvider)
	}
	intentID, err = s.payments.CreateIntent(ctx, amount, s.pricing.Currency, map[string]string{
		"kind":    "deposit",
		"user_id": fmt.Sprint(userID),
		"method":  method,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrPaymentProvider, err)
	}
	return intentID, nil
}

// CompleteDeposit verifies the intent and credits the wallet. Verification
// happens before the user lock is taken; an unconfirmed or failing intent
// leaves the wallet untouched.
func (s *Service) CompleteDeposit(ctx context.Context, userID int64, amount decimal.Decimal, method, intentID string) (err error) {
	defer func() { s.record("complete_deposit", err) }()

	if err := s.verifyPayment(ctx, intentID); err != nil {
		return err
	}

	unlock := s.locks.Lock(userKey(userID))
	user, err := s.users.Get(ctx, userID)
	if err == nil {
		user.Wallet = user.Wallet.Add(amount)
		user.Transactions = append(user.Transactions, domain.Transaction{
			ID:        uuid.NewString(),
			UserID:    userID,
			Kind:      domain.TxnDeposit,
			Amount:    amount,
			Method:    method,
			Details:   intentID,
			Status:    domain.TxnCompleted,
			CreatedAt: s.now(),
		})
		err = s.users.Put(ctx, user)
	}
	unlock()
	if err != nil {
		return err
	}

	s.logger.Info("deposit credited", "user_id", userID, "amount", amount.StringFixed(2), "method", method)
	s.notify(ctx, userID, fmt.Sprintf("Deposit of %s %s confirmed. Wallet balance: %s.",
		amount.StringFixed(2), s.pricing.Currency, user.Wallet.StringFixed(2)))
	return nil
}

// RequestWithdrawal reserves funds for a payout: the wallet is debited
// immediately and a pending ledger entry records the request. The amount
// stays reserved until an administrator settles it with ResolveWithdrawal.
func (s *Service) RequestWithdrawal(ctx context.Context, userID int64, amount decimal.Decimal, method, details string) (txnID string, err error) {
	defer func() { s.record("request_withdrawal", err) }()

	if amount.LessThan(s.pricing.MinWithdrawal) {
		return "", domain.Validation("amount", fmt.Sprintf("minimum withdrawal is %s %s",
			s.pricing.MinWithdrawal.StringFixed(2), s.pricing.Currency))
	}
	if strings.TrimSpace(details) == "" {
		return "", domain.Validation("details", "payout destination cannot be empty")
	}

	unlock := s.locks.Lock(userKey(userID))
	user, err := s.users.Get(ctx, userID)
	if err == nil {
		if user.Wallet.LessThan(amount) {
			err = fmt.Errorf("%w: balance %s, requested %s",
				domain.ErrInsufficientFunds, user.Wallet.StringFixed(2), amount.StringFixed(2))
		} else {
			txnID = uuid.NewString()
			user.Wallet = user.Wallet.Sub(amount)
			user.Transactions = append(user.Transactions, domain.Transaction{
				ID:        txnID,
				UserID:    userID,
				Kind:      domain.TxnWithdrawal,
				Amount:    amount,
				Method:    method,
				Details:   details,
				Status:    domain.TxnPending,
				CreatedAt: s.now(),
			})
			err = s.users.Put(ctx, user)
		}
	}
	unlock()
	if err != nil {
		return "", err
	}

	s.logger.Info("withdrawal requested", "user_id", userID, "txn_id", txnID, "amount", amount.StringFixed(2))
	s.notify(ctx, userID, fmt.Sprintf("Withdrawal of %s %s requested. Funds are reserved pending review.",
		amount.StringFixed(2), s.pricing.Currency))
	if s.adminID != 0 {
		s.notify(ctx, s.adminID, fmt.Sprintf("Withdrawal request %s: user %d, %s %s via %s (%s).",
			shortID(txnID), userID, amount.StringFixed(2), s.pricing.Currency, method, details))
	}
	return txnID, nil
}

// ResolveWithdrawal settles a pending withdrawal. Approval marks the entry
// completed; rejection flips it to rejected and returns the reserved amount
// to the wallet. Only an administrator may settle, and only once.
func (s *Service) ResolveWithdrawal(ctx context.Context, userID int64, txnID string, byUserID int64, approve bool) (err error) {
	defer func() { s.record("resolve_withdrawal", err) }()

	by, err := s.users.Get(ctx, byUserID)
	if err != nil {
		return err
	}
	if !by.IsAdmin() {
		return domain.ErrUnauthorized
	}

	unlock := s.locks.Lock(userKey(userID))
	user, amount, err := s.resolveWithdrawalLocked(ctx, userID, txnID, approve)
	unlock()
	if err != nil {
		return err
	}

	s.logger.Info("withdrawal settled", "user_id", userID, "txn_id", txnID, "approved", approve)
	if approve {
		s.notify(ctx, userID, fmt.Sprintf("Your withdrawal of %s %s was approved and is on its way.",
			amount.StringFixed(2), s.pricing.Currency))
	} else {
		s.notify(ctx, userID, fmt.Sprintf("Your withdrawal of %s %s was declined. Funds returned; wallet balance: %s.",
			amount.StringFixed(2), s.pricing.Currency, user.Wallet.StringFixed(2)))
	}
	return nil
}

func (s *Service) resolveWithdrawalLocked(ctx context.Context, userID int64, txnID string, approve bool) (*domain.User, decimal.Decimal, error) {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, decimal.Zero, err
	}

	idx := -1
	for i, t := range user.Transactions {
		if t.ID == txnID && t.Kind == domain.TxnWithdrawal {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, decimal.Zero, fmt.Errorf("withdrawal %s: %w", txnID, domain.ErrTxnNotFound)
	}
	txn := &user.Transactions[idx]
	if txn.Status != domain.TxnPending {
		return nil, decimal.Zero, fmt.Errorf("%w: withdrawal %s already %s",
			domain.ErrIllegalTransition, txnID, txn.Status)
	}

	if approve {
		txn.Status = domain.TxnCompleted
	} else {
		txn.Status = domain.TxnRejected
		user.Wallet = user.Wallet.Add(txn.Amount)
	}
	if err := s.users.Put(ctx, user); err != nil {
		return nil, decimal.Zero, fmt.Errorf("failed to store user: %w", err)
	}
	return user, txn.Amount, nil
}

// PendingWithdrawals lists every user's reserved withdrawal requests, for the
// administrator review queue.
func (s *Service) PendingWithdrawals(ctx context.Context) ([]domain.Transaction, error) {
	users, err := s.users.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	var pending []domain.Transaction
	for _, u := range users {
		for _, t := range u.Transactions {
			if t.Kind == domain.TxnWithdrawal && t.Status == domain.TxnPending {
				pending = append(pending, t)
			}
		}
	}
	return pending, nil
}
