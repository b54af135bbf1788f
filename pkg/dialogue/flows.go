package dialogue

import (
	"context"
	"fmt"
	"strings"

	"github.com/telemart/telemart/pkg/commerce"
	"github.com/telemart/telemart/pkg/domain"
	"github.com/telemart/telemart/pkg/ports"
)

const actPayConfirm = "pay_confirm"

func (e *Engine) choosePayment(ctx context.Context, sess *domain.Session) {
	cart := e.commerce.Cart(sess.UserID)
	if cart.Empty() {
		e.showCart(ctx, sess)
		return
	}
	e.prompt(ctx, sess, "How would you like to pay?", ports.Keyboard{
		ports.Row(ports.Button{Label: "Wallet", Action: actPay + ":" + commerce.PayWallet}),
		ports.Row(
			ports.Button{Label: "Card", Action: actPay + ":card"},
			ports.Button{Label: "Crypto", Action: actPay + ":crypto"},
		),
		ports.Row(ports.Button{Label: "Back", Action: actCart}),
	})
}

// checkout dispatches on the chosen payment method. Wallet settles
// immediately; external methods register an intent and wait for the user to
// confirm payment.
func (e *Engine) checkout(ctx context.Context, user *domain.User, sess *domain.Session, method string) error {
	if method == commerce.PayWallet {
		order, err := e.commerce.Checkout(ctx, user.ID, commerce.PayWallet, "")
		if err != nil {
			return err
		}
		return e.orderPlaced(ctx, sess, order)
	}

	intentID, err := e.commerce.BeginPurchase(ctx, user.ID, method)
	if err != nil {
		return err
	}
	sess.Purchase = domain.PurchaseDraft{Method: method, IntentID: intentID}
	e.prompt(ctx, sess, fmt.Sprintf("Complete the %s payment (reference %s), then press Confirm.", method, intentID),
		ports.Keyboard{
			ports.Row(ports.Button{Label: "I've paid", Action: actPayConfirm}),
			ports.Row(ports.Button{Label: "Cancel", Action: actCart}),
		})
	return nil
}

func (e *Engine) confirmPurchase(ctx context.Context, user *domain.User, sess *domain.Session) error {
	draft := sess.Purchase
	if draft.IntentID == "" {
		e.showCart(ctx, sess)
		return nil
	}
	order, err := e.commerce.Checkout(ctx, user.ID, draft.Method, draft.IntentID)
	if err != nil {
		return err
	}
	sess.Purchase = domain.PurchaseDraft{}
	return e.orderPlaced(ctx, sess, order)
}

func (e *Engine) buyNow(ctx context.Context, user *domain.User, sess *domain.Session, productID string) error {
	order, err := e.commerce.BuyNow(ctx, user.ID, productID, commerce.PayWallet, "")
	if err != nil {
		return err
	}
	return e.orderPlaced(ctx, sess, order)
}

func (e *Engine) orderPlaced(ctx context.Context, sess *domain.Session, order *domain.Order) error {
	e.prompt(ctx, sess, fmt.Sprintf("Order #%s placed! Total %s %s.",
		shortID(order.ID), order.Total.StringFixed(2), e.commerce.Pricing().Currency),
		ports.Keyboard{
			ports.Row(ports.Button{Label: "View Order", Action: actOrderView + ":" + order.ID}),
			ports.Row(ports.Button{Label: "Menu", Action: actMenu}),
		})
	return nil
}

func (e *Engine) advanceOrder(ctx context.Context, user *domain.User, sess *domain.Session, orderID string, action commerce.OrderAction, tracking string) error {
	if err := e.commerce.AdvanceOrderStatus(ctx, orderID, user.ID, action, tracking); err != nil {
		return err
	}
	return e.showOrder(ctx, user, sess, orderID)
}

func (e *Engine) cancelOrder(ctx context.Context, user *domain.User, sess *domain.Session, orderID string) error {
	if err := e.commerce.CancelOrder(ctx, orderID, user.ID, "cancelled via chat"); err != nil {
		return err
	}
	return e.showOrders(ctx, sess)
}

func (e *Engine) chooseDepositAmount(ctx context.Context, sess *domain.Session) {
	e.prompt(ctx, sess, "How much would you like to deposit?", ports.Keyboard{
		ports.Row(
			ports.Button{Label: "$10", Action: actDepositAmount + ":10"},
			ports.Button{Label: "$25", Action: actDepositAmount + ":25"},
			ports.Button{Label: "$50", Action: actDepositAmount + ":50"},
		),
		ports.Row(
			ports.Button{Label: "$100", Action: actDepositAmount + ":100"},
			ports.Button{Label: "Custom", Action: actDepositCustom},
		),
		ports.Row(ports.Button{Label: "Back", Action: actWallet}),
	})
}

func (e *Engine) chooseDepositMethod(ctx context.Context, sess *domain.Session) {
	sess.Step = domain.Step{Kind: domain.StepDepositMethod}
	e.prompt(ctx, sess, fmt.Sprintf("Depositing %s %s. Pick a payment method:",
		sess.Deposit.Amount.StringFixed(2), e.commerce.Pricing().Currency),
		ports.Keyboard{
			ports.Row(
				ports.Button{Label: "Card", Action: actDepositMethod + ":card"},
				ports.Button{Label: "Crypto", Action: actDepositMethod + ":crypto"},
			),
			ports.Row(ports.Button{Label: "Cancel", Action: actCancel}),
		})
}

func (e *Engine) beginDeposit(ctx context.Context, user *domain.User, sess *domain.Session, method string) error {
	intentID, err := e.commerce.BeginDeposit(ctx, user.ID, sess.Deposit.Amount, method)
	if err != nil {
		return err
	}
	sess.Deposit.Method = method
	sess.Deposit.IntentID = intentID
	sess.Step = domain.Step{}
	e.prompt(ctx, sess, fmt.Sprintf("Complete the %s payment (reference %s), then press Confirm.", method, intentID),
		ports.Keyboard{
			ports.Row(ports.Button{Label: "I've paid", Action: actDepositConfirm}),
			ports.Row(ports.Button{Label: "Cancel", Action: actCancel}),
		})
	return nil
}

func (e *Engine) confirmDeposit(ctx context.Context, user *domain.User, sess *domain.Session) error {
	draft := sess.Deposit
	if draft.IntentID == "" {
		e.showWallet(ctx, user, sess)
		return nil
	}
	if err := e.commerce.CompleteDeposit(ctx, user.ID, draft.Amount, draft.Method, draft.IntentID); err != nil {
		return err
	}
	sess.ClearStep()
	fresh, err := e.commerce.User(ctx, user.ID)
	if err != nil {
		return err
	}
	e.showWallet(ctx, fresh, sess)
	return nil
}

func (e *Engine) chooseWithdrawMethod(ctx context.Context, user *domain.User, sess *domain.Session) {
	min := e.commerce.Pricing().MinWithdrawal
	if user.Wallet.LessThan(min) {
		e.prompt(ctx, sess, fmt.Sprintf("You need at least %s %s to withdraw.",
			min.StringFixed(2), e.commerce.Pricing().Currency), backRow())
		return
	}
	// Typed method names work too, so the step is armed alongside the
	// buttons.
	sess.Step = domain.Step{Kind: domain.StepWithdrawalMethod}
	e.prompt(ctx, sess, "Where should we send the funds?", ports.Keyboard{
		ports.Row(
			ports.Button{Label: "PayPal", Action: actWithdrawMethod + ":paypal"},
			ports.Button{Label: "Bank", Action: actWithdrawMethod + ":bank"},
			ports.Button{Label: "Crypto", Action: actWithdrawMethod + ":crypto"},
		),
		ports.Row(ports.Button{Label: "Back", Action: actWallet}),
	})
}

// withdrawalDetailPrompt picks the destination question from the method
// chosen earlier in the draft.
func withdrawalDetailPrompt(method string) string {
	switch method {
	case "paypal":
		return "Enter your PayPal email address:"
	case "bank":
		return "Enter your bank account details (IBAN or account/routing):"
	case "crypto":
		return "Enter your wallet address:"
	default:
		return "Enter the payout destination:"
	}
}

func (e *Engine) showUserStats(ctx context.Context, user *domain.User, sess *domain.Session) error {
	stats, err := e.commerce.UserStats(ctx, user.ID)
	if err != nil {
		return err
	}
	cur := e.commerce.Pricing().Currency
	var b strings.Builder
	fmt.Fprintf(&b, "Users: %d (%d admins)\nActive in last 24h: %d\nJoined in last 24h: %d\nWallets hold: %s %s\n",
		stats.Users, stats.Admins, stats.ActiveToday, stats.JoinedToday, stats.WalletTotal.StringFixed(2), cur)
	if len(stats.TopSpenders) > 0 {
		b.WriteString("\nTop spenders:\n")
		for i, sp := range stats.TopSpenders {
			fmt.Fprintf(&b, "%d. %s — %s %s (%d orders)\n", i+1, sp.Name, sp.Spent.StringFixed(2), cur, sp.Orders)
		}
	}
	e.prompt(ctx, sess, b.String(), adminBackRow())
	return nil
}

func (e *Engine) showSalesReport(ctx context.Context, user *domain.User, sess *domain.Session) error {
	report, err := e.commerce.SalesReport(ctx, user.ID)
	if err != nil {
		return err
	}
	cur := e.commerce.Pricing().Currency
	var b strings.Builder
	fmt.Fprintf(&b, "Sales report\n\nOrders: %d (in flight %d, delivered %d, cancelled %d)\nRevenue: %s %s\nUnits sold: %d\n",
		report.Orders, report.InFlight, report.Delivered, report.Cancelled,
		report.Revenue.StringFixed(2), cur, report.UnitsSold)
	if len(report.TopProducts) > 0 {
		b.WriteString("\nTop products:\n")
		for i, tp := range report.TopProducts {
			fmt.Fprintf(&b, "%d. %s — %d sold, %s %s\n", i+1, tp.Name, tp.Units, tp.Revenue.StringFixed(2), cur)
		}
	}
	e.prompt(ctx, sess, b.String(), adminBackRow())
	return nil
}

func (e *Engine) showPendingWithdrawals(ctx context.Context, sess *domain.Session) error {
	pending, err := e.commerce.PendingWithdrawals(ctx)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		e.prompt(ctx, sess, "No withdrawals waiting for review.", adminBackRow())
		return nil
	}
	cur := e.commerce.Pricing().Currency
	var kb ports.Keyboard
	var b strings.Builder
	b.WriteString("Pending withdrawals:\n\n")
	for _, txn := range pending {
		fmt.Fprintf(&b, "#%s — user %d — %s %s via %s (%s)\n",
			shortID(txn.ID), txn.UserID, txn.Amount.StringFixed(2), cur, txn.Method, txn.Details)
		ref := fmt.Sprintf("%d:%s", txn.UserID, txn.ID)
		kb = append(kb, ports.Row(
			ports.Button{Label: "Approve #" + shortID(txn.ID), Action: actWithdrawApprove + ":" + ref},
			ports.Button{Label: "Reject #" + shortID(txn.ID), Action: actWithdrawReject + ":" + ref},
		))
	}
	kb = append(kb, adminBackRow()...)
	e.prompt(ctx, sess, b.String(), kb)
	return nil
}

func (e *Engine) settleWithdrawal(ctx context.Context, user *domain.User, sess *domain.Session, ref string, approve bool) error {
	ownerID, txnID, err := splitWithdrawalRef(ref)
	if err != nil {
		return err
	}
	if err := e.commerce.ResolveWithdrawal(ctx, ownerID, txnID, user.ID, approve); err != nil {
		return err
	}
	return e.showPendingWithdrawals(ctx, sess)
}

func splitWithdrawalRef(ref string) (int64, string, error) {
	i := strings.IndexByte(ref, ':')
	if i <= 0 || i == len(ref)-1 {
		return 0, "", domain.Validation("withdrawal", "malformed token")
	}
	var ownerID int64
	if _, err := fmt.Sscanf(ref[:i], "%d", &ownerID); err != nil {
		return 0, "", domain.Validation("withdrawal", "malformed token")
	}
	return ownerID, ref[i+1:], nil
}

func adminBackRow() ports.Keyboard {
	return ports.Keyboard{ports.Row(ports.Button{Label: "Back", Action: actAdmin})}
}
