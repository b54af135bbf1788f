package dialogue

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/telemart/telemart/pkg/commerce"
	"github.com/telemart/telemart/pkg/domain"
	"github.com/telemart/telemart/pkg/ports"
)

// Action tokens are stable strings of the form verb_noun[:arg]. Button
// layouts may change freely; tokens may not.
const (
	actMenu   = "menu"
	actCancel = "cancel"

	actBrowse      = "browse"
	actSearch      = "search"
	actProductView = "product_view"
	actProductBuy  = "product_buy"

	actCart       = "cart"
	actCartAdd    = "cart_add"
	actCartRemove = "cart_remove"
	actCartClear  = "cart_clear"
	actCheckout   = "checkout"
	actPay        = "pay"

	actOrders        = "orders"
	actOrderView     = "order_view"
	actOrderProcess  = "order_process"
	actOrderShip     = "order_ship"
	actOrderDeliver  = "order_deliver"
	actOrderCancel   = "order_cancel"
	actOrderCancelOK = "order_cancel_confirm"

	actWallet         = "wallet"
	actDeposit        = "deposit"
	actDepositAmount  = "deposit_amount"
	actDepositCustom  = "deposit_custom"
	actDepositMethod  = "deposit_method"
	actDepositConfirm = "deposit_confirm"
	actWithdraw       = "withdraw"
	actWithdrawMethod = "withdraw_method"

	actAdmin           = "admin"
	actProductNew      = "product_new"
	actProductToggle   = "product_toggle"
	actBroadcast       = "broadcast"
	actUsers           = "users"
	actReport          = "report"
	actWithdrawals     = "withdrawals"
	actWithdrawApprove = "withdraw_approve"
	actWithdrawReject  = "withdraw_reject"

	actSupport      = "support"
	actSupportReply = "support_reply"
)

// splitToken separates a token into verb and argument.
func splitToken(token string) (verb, arg string) {
	if i := strings.IndexByte(token, ':'); i >= 0 {
		return token[:i], token[i+1:]
	}
	return token, ""
}

func (e *Engine) dispatchAction(ctx context.Context, user *domain.User, sess *domain.Session, token string) error {
	verb, arg := splitToken(token)

	// Any explicit navigation abandons an in-progress step.
	switch verb {
	case actDepositMethod, actWithdrawMethod, actDepositConfirm, actPayConfirm:
		// Mid-flow selections keep the step's drafts.
	default:
		sess.ClearStep()
	}

	var err error
	switch verb {
	case actMenu, actCancel:
		e.mainMenu(ctx, user, sess)

	case actBrowse:
		err = e.showCatalog(ctx, sess)
	case actSearch:
		sess.Step = domain.Step{Kind: domain.StepSearchQuery}
		e.prompt(ctx, sess, "What are you looking for?", cancelRow())
	case actProductView:
		err = e.showProduct(ctx, sess, arg)
	case actProductBuy:
		err = e.buyNow(ctx, user, sess, arg)

	case actCart:
		e.showCart(ctx, sess)
	case actCartAdd:
		if err = e.commerce.AddToCart(ctx, user.ID, arg, 1); err == nil {
			e.showCart(ctx, sess)
		}
	case actCartRemove:
		if err = e.commerce.RemoveFromCart(ctx, user.ID, arg); err == nil {
			e.showCart(ctx, sess)
		}
	case actCartClear:
		if err = e.commerce.ClearCart(ctx, user.ID); err == nil {
			e.showCart(ctx, sess)
		}
	case actCheckout:
		e.choosePayment(ctx, sess)
	case actPay:
		err = e.checkout(ctx, user, sess, arg)
	case actPayConfirm:
		err = e.confirmPurchase(ctx, user, sess)

	case actOrders:
		err = e.showOrders(ctx, sess)
	case actOrderView:
		err = e.showOrder(ctx, user, sess, arg)
	case actOrderProcess:
		err = e.advanceOrder(ctx, user, sess, arg, commerce.ActionProcess, "")
	case actOrderShip:
		sess.Step = domain.Step{Kind: domain.StepTracking, OrderID: arg}
		e.prompt(ctx, sess, "Enter the tracking number:", cancelRow())
	case actOrderDeliver:
		err = e.advanceOrder(ctx, user, sess, arg, commerce.ActionDeliver, "")
	case actOrderCancel:
		e.prompt(ctx, sess, fmt.Sprintf("Cancel order #%s? Stock is returned and wallet payments are refunded.", shortID(arg)),
			ports.Keyboard{ports.Row(
				ports.Button{Label: "Yes, cancel it", Action: actOrderCancelOK + ":" + arg},
				ports.Button{Label: "Keep it", Action: actOrderView + ":" + arg},
			)})
	case actOrderCancelOK:
		err = e.cancelOrder(ctx, user, sess, arg)

	case actWallet:
		e.showWallet(ctx, user, sess)
	case actDeposit:
		e.chooseDepositAmount(ctx, sess)
	case actDepositAmount:
		var amount decimal.Decimal
		if amount, err = decimal.NewFromString(arg); err != nil {
			err = domain.Validation("amount", "malformed token")
			break
		}
		sess.Deposit = domain.DepositDraft{Amount: amount}
		e.chooseDepositMethod(ctx, sess)
	case actDepositCustom:
		sess.Step = domain.Step{Kind: domain.StepCustomDeposit}
		e.prompt(ctx, sess, "Enter the amount to deposit (1.00 - 1000.00):", cancelRow())
	case actDepositMethod:
		err = e.beginDeposit(ctx, user, sess, arg)
	case actDepositConfirm:
		err = e.confirmDeposit(ctx, user, sess)
	case actWithdraw:
		e.chooseWithdrawMethod(ctx, user, sess)
	case actWithdrawMethod:
		sess.Withdrawal = domain.WithdrawalDraft{Method: arg}
		sess.Step = domain.Step{Kind: domain.StepWithdrawalAmount}
		e.prompt(ctx, sess, fmt.Sprintf("How much would you like to withdraw? (minimum %s %s)",
			e.commerce.Pricing().MinWithdrawal.StringFixed(2), e.commerce.Pricing().Currency), cancelRow())

	case actSupport:
		sess.Step = domain.Step{Kind: domain.StepSupport}
		e.prompt(ctx, sess, "Describe your issue and we'll get back to you.", cancelRow())
	case actSupportReply:
		var to int64
		if to, err = strconv.ParseInt(arg, 10, 64); err != nil {
			err = domain.Validation("user", "malformed token")
			break
		}
		if !user.IsAdmin() {
			err = domain.ErrUnauthorized
			break
		}
		sess.Step = domain.Step{Kind: domain.StepReply, ReplyTo: to}
		e.prompt(ctx, sess, fmt.Sprintf("Type your reply to user %d:", to), cancelRow())

	case actAdmin, actProductNew, actProductToggle, actBroadcast, actUsers, actReport,
		actWithdrawals, actWithdrawApprove, actWithdrawReject:
		err = e.dispatchAdminAction(ctx, user, sess, verb, arg)

	default:
		e.logger.Debug("unknown action token", "user_id", user.ID, "token", token)
		e.mainMenu(ctx, user, sess)
	}

	return e.renderError(ctx, user, sess, err)
}

func (e *Engine) dispatchAdminAction(ctx context.Context, user *domain.User, sess *domain.Session, verb, arg string) error {
	if !user.IsAdmin() {
		return domain.ErrUnauthorized
	}

	switch verb {
	case actAdmin:
		e.adminMenu(ctx, sess)
	case actProductNew:
		sess.Step = domain.Step{Kind: domain.StepProductName}
		e.prompt(ctx, sess, "New product — what's it called?", cancelRow())
	case actProductToggle:
		p, err := e.commerce.Product(ctx, arg)
		if err != nil {
			return err
		}
		if err := e.commerce.SetProductActive(ctx, user.ID, arg, p.Status != domain.ProductActive); err != nil {
			return err
		}
		return e.showProduct(ctx, sess, arg)
	case actBroadcast:
		sess.Step = domain.Step{Kind: domain.StepBroadcast}
		e.prompt(ctx, sess, "Type the announcement to send to every user:", cancelRow())
	case actUsers:
		return e.showUserStats(ctx, user, sess)
	case actReport:
		return e.showSalesReport(ctx, user, sess)
	case actWithdrawals:
		return e.showPendingWithdrawals(ctx, sess)
	case actWithdrawApprove, actWithdrawReject:
		return e.settleWithdrawal(ctx, user, sess, arg, verb == actWithdrawApprove)
	}
	return nil
}

// renderError turns domain failures into dialogue replies. Validation and
// precondition problems are part of the conversation; only infrastructure
// errors propagate to the transport layer.
func (e *Engine) renderError(ctx context.Context, user *domain.User, sess *domain.Session, err error) error {
	switch {
	case err == nil:
		return nil
	case domain.IsValidation(err):
		var verr *domain.ValidationError
		text := "That input isn't valid."
		if errors.As(err, &verr) {
			text = fmt.Sprintf("Invalid %s: %s.", verr.Field, verr.Reason)
		}
		e.prompt(ctx, sess, text, cancelRow())
		return nil
	case domain.IsPrecondition(err), errors.Is(err, domain.ErrPaymentProvider):
		e.prompt(ctx, sess, friendlyPrecondition(err), backRow())
		return nil
	case domain.IsNotFound(err):
		e.prompt(ctx, sess, "That item isn't available anymore.", backRow())
		return nil
	default:
		e.logger.Error("dialogue failed", "user_id", user.ID, "err", err)
		e.send(ctx, user.ID, "Something went wrong on our side. Please try again.", nil)
		return err
	}
}

func friendlyPrecondition(err error) string {
	switch {
	case errors.Is(err, domain.ErrInsufficientStock):
		return "Not enough stock for that, sorry."
	case errors.Is(err, domain.ErrInsufficientFunds):
		return "Your wallet balance doesn't cover that. Top it up first?"
	case errors.Is(err, domain.ErrUnauthorized):
		return "You're not allowed to do that."
	case errors.Is(err, domain.ErrCartEmpty):
		return "Your cart is empty."
	case errors.Is(err, domain.ErrProductInactive):
		return "That product isn't for sale right now."
	case errors.Is(err, domain.ErrPaymentProvider):
		return "Payment couldn't be confirmed. Try again or pick another method."
	case errors.Is(err, domain.ErrIllegalTransition):
		return "That order can't change to that state anymore."
	default:
		return "That can't be done right now."
	}
}

func cancelRow() ports.Keyboard {
	return ports.Keyboard{ports.Row(ports.Button{Label: "Cancel", Action: actCancel})}
}
