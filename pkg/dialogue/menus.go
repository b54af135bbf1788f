package dialogue

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/telemart/telemart/pkg/domain"
	"github.com/telemart/telemart/pkg/ports"
)

func qty(n int) decimal.Decimal { return decimal.NewFromInt(int64(n)) }

func (e *Engine) mainMenu(ctx context.Context, user *domain.User, sess *domain.Session) {
	kb := ports.Keyboard{
		ports.Row(
			ports.Button{Label: "Browse", Action: actBrowse},
			ports.Button{Label: "Search", Action: actSearch},
		),
		ports.Row(
			ports.Button{Label: "Cart", Action: actCart},
			ports.Button{Label: "My Orders", Action: actOrders},
		),
		ports.Row(
			ports.Button{Label: "Wallet", Action: actWallet},
			ports.Button{Label: "Support", Action: actSupport},
		),
	}
	if user.IsAdmin() {
		kb = append(kb, ports.Row(ports.Button{Label: "Admin", Action: actAdmin}))
	}
	e.prompt(ctx, sess, fmt.Sprintf("Welcome, %s. What would you like to do?", user.Name), kb)
}

func (e *Engine) adminMenu(ctx context.Context, sess *domain.Session) {
	kb := ports.Keyboard{
		ports.Row(
			ports.Button{Label: "Add Product", Action: actProductNew},
			ports.Button{Label: "Catalog", Action: actBrowse},
		),
		ports.Row(
			ports.Button{Label: "Broadcast", Action: actBroadcast},
			ports.Button{Label: "Users", Action: actUsers},
		),
		ports.Row(
			ports.Button{Label: "Sales Report", Action: actReport},
			ports.Button{Label: "Withdrawals", Action: actWithdrawals},
		),
		ports.Row(ports.Button{Label: "Back", Action: actMenu}),
	}
	e.prompt(ctx, sess, "Admin panel.", kb)
}

func (e *Engine) showCatalog(ctx context.Context, sess *domain.Session) error {
	products, err := e.commerce.Catalog(ctx)
	if err != nil {
		return err
	}
	if len(products) == 0 {
		e.prompt(ctx, sess, "The shop is empty right now. Check back soon!", backRow())
		return nil
	}

	var kb ports.Keyboard
	for _, p := range products {
		label := fmt.Sprintf("%s — %s %s", p.Name, p.Price.StringFixed(2), e.commerce.Pricing().Currency)
		kb = append(kb, ports.Row(ports.Button{Label: label, Action: actProductView + ":" + p.ID}))
	}
	kb = append(kb, backRow()...)
	e.prompt(ctx, sess, fmt.Sprintf("Catalog — %d products:", len(products)), kb)
	return nil
}

func (e *Engine) showProduct(ctx context.Context, sess *domain.Session, productID string) error {
	p, err := e.commerce.Product(ctx, productID)
	if err != nil {
		return err
	}
	cur := e.commerce.Pricing().Currency
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n%s\n\nPrice: %s %s\n", p.Name, p.Description, p.Price.StringFixed(2), cur)
	if p.Category != "" {
		fmt.Fprintf(&b, "Category: %s\n", p.Category)
	}
	if p.Stock > 0 {
		fmt.Fprintf(&b, "In stock: %d", p.Stock)
	} else {
		b.WriteString("Out of stock")
	}

	kb := ports.Keyboard{}
	if p.Purchasable() {
		kb = append(kb, ports.Row(
			ports.Button{Label: "Add to Cart", Action: actCartAdd + ":" + p.ID},
			ports.Button{Label: "Buy Now", Action: actProductBuy + ":" + p.ID},
		))
	}
	kb = append(kb, ports.Row(ports.Button{Label: "Back to Catalog", Action: actBrowse}))
	e.prompt(ctx, sess, b.String(), kb)
	return nil
}

func (e *Engine) showCart(ctx context.Context, sess *domain.Session) {
	cart := e.commerce.Cart(sess.UserID)
	if cart.Empty() {
		e.prompt(ctx, sess, "Your cart is empty.", ports.Keyboard{
			ports.Row(ports.Button{Label: "Browse", Action: actBrowse}),
			ports.Row(ports.Button{Label: "Back", Action: actMenu}),
		})
		return
	}

	cur := e.commerce.Pricing().Currency
	var b strings.Builder
	b.WriteString("Your cart:\n\n")
	kb := ports.Keyboard{}
	for _, l := range cart.Lines {
		fmt.Fprintf(&b, "%s x%d — %s %s\n", l.Name, l.Qty, l.Subtotal().StringFixed(2), cur)
		kb = append(kb, ports.Row(ports.Button{
			Label:  "Remove " + l.Name,
			Action: actCartRemove + ":" + l.ProductID,
		}))
	}
	fmt.Fprintf(&b, "\nSubtotal: %s %s", cart.Total().StringFixed(2), cur)
	kb = append(kb,
		ports.Row(ports.Button{Label: "Checkout", Action: actCheckout}),
		ports.Row(
			ports.Button{Label: "Clear", Action: actCartClear},
			ports.Button{Label: "Back", Action: actMenu},
		),
	)
	e.prompt(ctx, sess, b.String(), kb)
}

func (e *Engine) showOrders(ctx context.Context, sess *domain.Session) error {
	orders, err := e.commerce.OrdersFor(ctx, sess.UserID)
	if err != nil {
		return err
	}
	if len(orders) == 0 {
		e.prompt(ctx, sess, "You have no orders yet.", backRow())
		return nil
	}
	var kb ports.Keyboard
	for _, o := range orders {
		label := fmt.Sprintf("#%s — %s — %s %s", shortID(o.ID), o.Status,
			o.Total.StringFixed(2), e.commerce.Pricing().Currency)
		kb = append(kb, ports.Row(ports.Button{Label: label, Action: actOrderView + ":" + o.ID}))
	}
	kb = append(kb, backRow()...)
	e.prompt(ctx, sess, "Your orders:", kb)
	return nil
}

func (e *Engine) showOrder(ctx context.Context, user *domain.User, sess *domain.Session, orderID string) error {
	o, err := e.commerce.Order(ctx, orderID, user.ID)
	if err != nil {
		return err
	}
	cur := e.commerce.Pricing().Currency

	var b strings.Builder
	fmt.Fprintf(&b, "Order #%s — %s\n\n", shortID(o.ID), o.Status)
	for _, item := range o.Items {
		fmt.Fprintf(&b, "%s x%d — %s %s\n", item.Name, item.Qty,
			item.UnitPrice.Mul(qty(item.Qty)).StringFixed(2), cur)
	}
	fmt.Fprintf(&b, "\nSubtotal: %s\nShipping: %s\nTax: %s\nTotal: %s %s\nPaid by: %s",
		o.Subtotal.StringFixed(2), o.ShippingFee.StringFixed(2), o.Tax.StringFixed(2),
		o.Total.StringFixed(2), cur, o.Method)
	if o.TrackingNumber != "" {
		fmt.Fprintf(&b, "\nTracking: %s", o.TrackingNumber)
	}

	kb := ports.Keyboard{}
	if user.IsAdmin() {
		switch o.Status {
		case domain.OrderPending:
			kb = append(kb, ports.Row(ports.Button{Label: "Mark Processing", Action: actOrderProcess + ":" + o.ID}))
		case domain.OrderProcessing:
			kb = append(kb, ports.Row(ports.Button{Label: "Ship (enter tracking)", Action: actOrderShip + ":" + o.ID}))
		case domain.OrderShipped:
			kb = append(kb, ports.Row(ports.Button{Label: "Mark Delivered", Action: actOrderDeliver + ":" + o.ID}))
		}
	} else if o.Status == domain.OrderShipped && o.UserID == user.ID {
		kb = append(kb, ports.Row(ports.Button{Label: "Confirm Received", Action: actOrderDeliver + ":" + o.ID}))
	}
	if o.Cancellable() && (user.IsAdmin() || o.UserID == user.ID) {
		kb = append(kb, ports.Row(ports.Button{Label: "Cancel Order", Action: actOrderCancel + ":" + o.ID}))
	}
	kb = append(kb, ports.Row(ports.Button{Label: "Back", Action: actOrders}))
	e.prompt(ctx, sess, b.String(), kb)
	return nil
}

func (e *Engine) showWallet(ctx context.Context, user *domain.User, sess *domain.Session) {
	cur := e.commerce.Pricing().Currency
	text := fmt.Sprintf("Wallet balance: %s %s\nLifetime spend: %s %s across %d orders.",
		user.Wallet.StringFixed(2), cur, user.TotalSpent.StringFixed(2), cur, user.OrderCount)
	kb := ports.Keyboard{
		ports.Row(
			ports.Button{Label: "Deposit", Action: actDeposit},
			ports.Button{Label: "Withdraw", Action: actWithdraw},
		),
		ports.Row(ports.Button{Label: "Back", Action: actMenu}),
	}
	e.prompt(ctx, sess, text, kb)
}

func backRow() ports.Keyboard {
	return ports.Keyboard{ports.Row(ports.Button{Label: "Back", Action: actMenu})}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
