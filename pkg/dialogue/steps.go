package dialogue

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/telemart/telemart/pkg/commerce"
	"github.com/telemart/telemart/pkg/domain"
	"github.com/telemart/telemart/pkg/ports"
)

// dispatchText routes free text by the session's current step. Invalid input
// re-prompts the same step; the step is cleared only by completion, explicit
// cancel, or navigation.
func (e *Engine) dispatchText(ctx context.Context, user *domain.User, sess *domain.Session, text string) error {
	text = strings.TrimSpace(text)
	if strings.EqualFold(text, "cancel") || strings.EqualFold(text, "/cancel") {
		sess.ClearStep()
		e.mainMenu(ctx, user, sess)
		return nil
	}

	var err error
	switch sess.Step.Kind {
	case domain.StepNone:
		e.mainMenu(ctx, user, sess)

	case domain.StepProductName:
		if text == "" {
			e.prompt(ctx, sess, "The name can't be empty. What's the product called?", cancelRow())
			break
		}
		sess.Product.Name = text
		sess.Step = domain.Step{Kind: domain.StepProductDescription}
		e.prompt(ctx, sess, "Got it. Now a short description:", cancelRow())

	case domain.StepProductDescription:
		sess.Product.Description = text
		sess.Step = domain.Step{Kind: domain.StepProductPrice}
		e.prompt(ctx, sess, "Price? (for example 19.99)", cancelRow())

	case domain.StepProductPrice:
		price, perr := decimal.NewFromString(text)
		if perr != nil || !price.IsPositive() {
			e.prompt(ctx, sess, "That doesn't look like a price. Enter a positive amount like 19.99:", cancelRow())
			break
		}
		sess.Product.Price = price
		sess.Step = domain.Step{Kind: domain.StepProductStock}
		e.prompt(ctx, sess, "How many are in stock?", cancelRow())

	case domain.StepProductStock:
		stock, serr := strconv.Atoi(text)
		if serr != nil || stock < 0 {
			e.prompt(ctx, sess, "Enter the stock as a whole number, 0 or more:", cancelRow())
			break
		}
		sess.Product.Stock = stock
		sess.Step = domain.Step{Kind: domain.StepProductCategory}
		e.prompt(ctx, sess, `Category? Type "skip" to leave it out.`, cancelRow())

	case domain.StepProductCategory:
		if !strings.EqualFold(text, "skip") {
			sess.Product.Category = text
		}
		err = e.finishProduct(ctx, user, sess)

	case domain.StepBroadcast:
		err = e.runBroadcast(ctx, user, sess, text)

	case domain.StepSearchQuery:
		err = e.runSearch(ctx, sess, text)

	case domain.StepCustomDeposit:
		amount, derr := decimal.NewFromString(text)
		if derr != nil {
			e.prompt(ctx, sess, "Enter the deposit as a number, like 42.50:", cancelRow())
			break
		}
		p := e.commerce.Pricing()
		if amount.LessThan(p.MinDeposit) || amount.GreaterThan(p.MaxDeposit) {
			e.prompt(ctx, sess, fmt.Sprintf("Deposits must be between %s and %s %s. Try again:",
				p.MinDeposit.StringFixed(2), p.MaxDeposit.StringFixed(2), p.Currency), cancelRow())
			break
		}
		sess.Deposit = domain.DepositDraft{Amount: amount}
		e.chooseDepositMethod(ctx, sess)

	case domain.StepDepositMethod:
		method := strings.ToLower(text)
		if method != "card" && method != "crypto" {
			e.chooseDepositMethod(ctx, sess)
			break
		}
		err = e.beginDeposit(ctx, user, sess, method)

	case domain.StepWithdrawalMethod:
		method := strings.ToLower(text)
		if method != "paypal" && method != "bank" && method != "crypto" {
			e.prompt(ctx, sess, "Pick PayPal, bank or crypto:", cancelRow())
			break
		}
		sess.Withdrawal = domain.WithdrawalDraft{Method: method}
		sess.Step = domain.Step{Kind: domain.StepWithdrawalAmount}
		e.prompt(ctx, sess, fmt.Sprintf("How much would you like to withdraw? (minimum %s %s)",
			e.commerce.Pricing().MinWithdrawal.StringFixed(2), e.commerce.Pricing().Currency), cancelRow())

	case domain.StepWithdrawalAmount:
		amount, werr := decimal.NewFromString(text)
		if werr != nil || !amount.IsPositive() {
			e.prompt(ctx, sess, "Enter the amount as a number, like 25.00:", cancelRow())
			break
		}
		p := e.commerce.Pricing()
		if amount.LessThan(p.MinWithdrawal) {
			e.prompt(ctx, sess, fmt.Sprintf("The minimum withdrawal is %s %s. Enter a larger amount:",
				p.MinWithdrawal.StringFixed(2), p.Currency), cancelRow())
			break
		}
		balance, berr := e.commerce.Balance(ctx, user.ID)
		if berr != nil {
			err = berr
			break
		}
		if amount.GreaterThan(balance) {
			e.prompt(ctx, sess, fmt.Sprintf("Your wallet holds %s %s. Enter a smaller amount:",
				balance.StringFixed(2), p.Currency), cancelRow())
			break
		}
		sess.Withdrawal.Amount = amount
		sess.Step = domain.Step{Kind: domain.StepWithdrawalDetail}
		e.prompt(ctx, sess, withdrawalDetailPrompt(sess.Withdrawal.Method), cancelRow())

	case domain.StepWithdrawalDetail:
		err = e.finishWithdrawal(ctx, user, sess, text)

	case domain.StepTracking:
		if text == "" {
			e.prompt(ctx, sess, "Enter the tracking number:", cancelRow())
			break
		}
		orderID := sess.Step.OrderID
		if err = e.advanceOrder(ctx, user, sess, orderID, commerce.ActionShip, text); err == nil {
			sess.ClearStep()
		}

	case domain.StepSupport:
		err = e.forwardSupport(ctx, user, sess, text)

	case domain.StepReply:
		to := sess.Step.ReplyTo
		sess.ClearStep()
		e.send(ctx, to, "Support: "+text, ports.Keyboard{
			ports.Row(ports.Button{Label: "Reply", Action: actSupport}),
		})
		e.prompt(ctx, sess, fmt.Sprintf("Reply sent to user %d.", to), backRow())

	default:
		sess.ClearStep()
		e.mainMenu(ctx, user, sess)
	}

	return e.renderError(ctx, user, sess, err)
}

func (e *Engine) finishProduct(ctx context.Context, user *domain.User, sess *domain.Session) error {
	draft := sess.Product
	sess.ClearStep()
	p, err := e.commerce.CreateProduct(ctx, user.ID, draft)
	if err != nil {
		return err
	}
	e.prompt(ctx, sess, fmt.Sprintf("%s is live: %s %s, %d in stock.",
		p.Name, p.Price.StringFixed(2), e.commerce.Pricing().Currency, p.Stock),
		ports.Keyboard{
			ports.Row(ports.Button{Label: "View", Action: actProductView + ":" + p.ID}),
			ports.Row(ports.Button{Label: "Admin", Action: actAdmin}),
		})
	return nil
}

func (e *Engine) finishWithdrawal(ctx context.Context, user *domain.User, sess *domain.Session, details string) error {
	draft := sess.Withdrawal
	if _, err := e.commerce.RequestWithdrawal(ctx, user.ID, draft.Amount, draft.Method, details); err != nil {
		return err
	}
	sess.ClearStep()
	e.prompt(ctx, sess, fmt.Sprintf("Withdrawal of %s %s requested. We'll notify you once it's reviewed.",
		draft.Amount.StringFixed(2), e.commerce.Pricing().Currency), backRow())
	return nil
}

func (e *Engine) runSearch(ctx context.Context, sess *domain.Session, query string) error {
	sess.ClearStep()
	hits, err := e.commerce.SearchProducts(ctx, query)
	if err != nil {
		return err
	}
	if len(hits) == 0 {
		e.prompt(ctx, sess, fmt.Sprintf("Nothing matched %q.", query), ports.Keyboard{
			ports.Row(ports.Button{Label: "Search again", Action: actSearch}),
			ports.Row(ports.Button{Label: "Back", Action: actMenu}),
		})
		return nil
	}
	var kb ports.Keyboard
	for _, p := range hits {
		label := fmt.Sprintf("%s — %s %s", p.Name, p.Price.StringFixed(2), e.commerce.Pricing().Currency)
		kb = append(kb, ports.Row(ports.Button{Label: label, Action: actProductView + ":" + p.ID}))
	}
	kb = append(kb, backRow()...)
	e.prompt(ctx, sess, fmt.Sprintf("%d results for %q:", len(hits), query), kb)
	return nil
}

// forwardSupport relays a customer message to the administrator with a reply
// button carrying the customer's id.
func (e *Engine) forwardSupport(ctx context.Context, user *domain.User, sess *domain.Session, text string) error {
	sess.ClearStep()
	adminID := e.commerce.AdminID()
	if adminID == 0 {
		e.prompt(ctx, sess, "Support isn't available right now, sorry.", backRow())
		return nil
	}
	e.send(ctx, adminID, fmt.Sprintf("Support request from %s (%d):\n\n%s", user.Name, user.ID, text),
		ports.Keyboard{ports.Row(ports.Button{
			Label:  "Reply to " + user.Name,
			Action: fmt.Sprintf("%s:%d", actSupportReply, user.ID),
		})})
	e.prompt(ctx, sess, "Thanks! Your message is with our support team.", backRow())
	return nil
}
