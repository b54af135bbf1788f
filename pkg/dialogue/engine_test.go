package dialogue_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telemart/telemart/pkg/commerce"
	"github.com/telemart/telemart/pkg/dialogue"
	"github.com/telemart/telemart/pkg/domain"
	"github.com/telemart/telemart/pkg/ports"
	"github.com/telemart/telemart/pkg/session"
	"github.com/telemart/telemart/pkg/store/memory"
)

const (
	adminID    = int64(1)
	customerID = int64(100)
)

type sentMessage struct {
	To   int64
	Text string
	KB   ports.Keyboard
}

// fakeMessenger records every send and can be told to fail for specific
// recipients.
type fakeMessenger struct {
	mu     sync.Mutex
	seq    int
	sent   []sentMessage
	failTo map[int64]bool
}

func newFakeMessenger() *fakeMessenger {
	return &fakeMessenger{failTo: make(map[int64]bool)}
}

func (m *fakeMessenger) SendMessage(_ context.Context, to int64, text string, kb ports.Keyboard) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failTo[to] {
		return "", errors.New("recipient blocked the bot")
	}
	m.seq++
	m.sent = append(m.sent, sentMessage{To: to, Text: text, KB: kb})
	return fmt.Sprintf("msg-%d", m.seq), nil
}

func (m *fakeMessenger) DeleteMessage(_ context.Context, _ int64, _ string) error {
	return nil
}

func (m *fakeMessenger) lastTo(to int64) sentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.sent) - 1; i >= 0; i-- {
		if m.sent[i].To == to {
			return m.sent[i]
		}
	}
	return sentMessage{}
}

func (m *fakeMessenger) countTo(to int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.sent {
		if s.To == to {
			n++
		}
	}
	return n
}

type payStub struct {
	mu     sync.Mutex
	seq    int
	issued map[string]bool
}

func (p *payStub) CreateIntent(_ context.Context, _ decimal.Decimal, _ string, _ map[string]string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.issued == nil {
		p.issued = make(map[string]bool)
	}
	p.seq++
	id := fmt.Sprintf("pi-%d", p.seq)
	p.issued[id] = true
	return id, nil
}

func (p *payStub) Verify(_ context.Context, intentID string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.issued[intentID], nil
}

type world struct {
	engine    *dialogue.Engine
	svc       *commerce.Service
	users     *memory.Users
	products  *memory.Products
	orders    *memory.Orders
	messenger *fakeMessenger
}

func newWorld(t *testing.T) *world {
	t.Helper()

	w := &world{
		users:     memory.NewUsers(),
		products:  memory.NewProducts(),
		orders:    memory.NewOrders(),
		messenger: newFakeMessenger(),
	}
	w.svc = commerce.NewService(w.users, w.products, w.orders,
		commerce.WithAdmin(adminID),
		commerce.WithPayments(&payStub{}),
		commerce.WithNotifier(func(ctx context.Context, to int64, text string) {
			_, _ = w.messenger.SendMessage(ctx, to, text, nil)
		}),
	)
	mgr := session.NewManager(memory.NewSessions())
	w.engine = dialogue.NewEngine(mgr, w.svc, w.messenger,
		dialogue.WithBroadcast(time.Millisecond, 2),
	)
	return w
}

func (w *world) text(t *testing.T, userID int64, text string) {
	t.Helper()
	require.NoError(t, w.engine.HandleText(context.Background(), userID, name(userID), "", text))
}

func (w *world) action(t *testing.T, userID int64, token string) {
	t.Helper()
	require.NoError(t, w.engine.HandleAction(context.Background(), userID, name(userID), "", token))
}

func name(userID int64) string {
	if userID == adminID {
		return "Boss"
	}
	return fmt.Sprintf("user%d", userID)
}

func (w *world) seedProduct(t *testing.T, id, productName, price string, stock int) {
	t.Helper()
	now := time.Now()
	require.NoError(t, w.products.Put(context.Background(), &domain.Product{
		ID:        id,
		Name:      productName,
		Price:     decimal.RequireFromString(price),
		Stock:     stock,
		Status:    domain.ProductActive,
		CreatedAt: now,
		UpdatedAt: now,
	}))
}

func (w *world) fund(t *testing.T, userID int64, amount string) {
	t.Helper()
	ctx := context.Background()
	u, _, err := w.users.GetOrCreate(ctx, userID, name(userID), "")
	require.NoError(t, err)
	amt := decimal.RequireFromString(amount)
	u.Wallet = u.Wallet.Add(amt)
	u.Transactions = append(u.Transactions, domain.Transaction{
		ID: "seed", UserID: userID, Kind: domain.TxnDeposit, Amount: amt,
		Method: "card", Status: domain.TxnCompleted, CreatedAt: time.Now(),
	})
	require.NoError(t, w.users.Put(ctx, u))
}

func TestFirstContactShowsMenu(t *testing.T) {
	w := newWorld(t)
	w.text(t, customerID, "hello")

	last := w.messenger.lastTo(customerID)
	assert.Contains(t, last.Text, "Welcome")
	assert.NotEmpty(t, last.KB)

	// Customer keyboards never carry admin entries.
	for _, row := range last.KB {
		for _, b := range row {
			assert.NotEqual(t, "admin", b.Action)
		}
	}
}

func TestAdminMenuRequiresRole(t *testing.T) {
	w := newWorld(t)

	w.action(t, customerID, "admin")
	assert.Contains(t, w.messenger.lastTo(customerID).Text, "not allowed")

	w.action(t, adminID, "admin")
	assert.Contains(t, w.messenger.lastTo(adminID).Text, "Admin panel")
}

func TestProductCreationFlow(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()

	w.action(t, adminID, "product_new")
	assert.Contains(t, w.messenger.lastTo(adminID).Text, "called")

	w.text(t, adminID, "Mechanical Keyboard")
	w.text(t, adminID, "Clacky and durable.")

	t.Run("non-numeric price re-prompts without advancing", func(t *testing.T) {
		w.text(t, adminID, "cheap")
		assert.Contains(t, w.messenger.lastTo(adminID).Text, "positive amount")
		// Still on the price step: a valid price is accepted next.
	})

	w.text(t, adminID, "79.99")
	w.text(t, adminID, "12")

	t.Run("skip leaves category empty", func(t *testing.T) {
		w.text(t, adminID, "skip")
		assert.Contains(t, w.messenger.lastTo(adminID).Text, "live")
	})

	products, err := w.products.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, products, 1)
	for _, p := range products {
		assert.Equal(t, "Mechanical Keyboard", p.Name)
		assert.True(t, p.Price.Equal(decimal.RequireFromString("79.99")))
		assert.Equal(t, 12, p.Stock)
		assert.Empty(t, p.Category)
		assert.Equal(t, domain.ProductActive, p.Status)
	}
}

func TestProductCreationKeepsCategory(t *testing.T) {
	w := newWorld(t)

	w.action(t, adminID, "product_new")
	w.text(t, adminID, "Mouse")
	w.text(t, adminID, "Wireless.")
	w.text(t, adminID, "25.00")
	w.text(t, adminID, "5")
	w.text(t, adminID, "peripherals")

	products, err := w.products.Snapshot(context.Background())
	require.NoError(t, err)
	for _, p := range products {
		assert.Equal(t, "peripherals", p.Category)
	}
}

func TestCancelAbandonsStep(t *testing.T) {
	w := newWorld(t)

	w.action(t, adminID, "product_new")
	w.text(t, adminID, "Half-made product")
	w.text(t, adminID, "cancel")
	assert.Contains(t, w.messenger.lastTo(adminID).Text, "Welcome")

	// The abandoned draft never became a product.
	products, err := w.products.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Empty(t, products)

	// And the next text is a fresh conversation, not a draft continuation.
	w.text(t, adminID, "Loose text")
	assert.Contains(t, w.messenger.lastTo(adminID).Text, "Welcome")
}

func TestSearchFlow(t *testing.T) {
	w := newWorld(t)
	w.seedProduct(t, "p1", "Red Mug", "9.00", 3)
	w.seedProduct(t, "p2", "Blue Mug", "9.00", 3)
	w.seedProduct(t, "p3", "Poster", "4.00", 3)

	w.action(t, customerID, "search")
	w.text(t, customerID, "mug")
	last := w.messenger.lastTo(customerID)
	assert.Contains(t, last.Text, "2 results")

	w.action(t, customerID, "search")
	w.text(t, customerID, "teapot")
	assert.Contains(t, w.messenger.lastTo(customerID).Text, "Nothing matched")
}

func TestWalletCheckoutViaDialogue(t *testing.T) {
	w := newWorld(t)
	w.seedProduct(t, "p1", "Widget", "10.00", 5)
	w.fund(t, customerID, "100.00")

	w.action(t, customerID, "cart_add:p1")
	assert.Contains(t, w.messenger.lastTo(customerID).Text, "Widget x1")

	w.action(t, customerID, "checkout")
	assert.Contains(t, w.messenger.lastTo(customerID).Text, "How would you like to pay")

	w.action(t, customerID, "pay:wallet")
	assert.Contains(t, w.messenger.lastTo(customerID).Text, "placed")

	orders, err := w.svc.OrdersFor(context.Background(), customerID)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	// 10.00 + 5.00 shipping + 0.80 tax
	assert.True(t, orders[0].Total.Equal(decimal.RequireFromString("15.80")))
}

func TestExternalCheckoutNeedsConfirmation(t *testing.T) {
	w := newWorld(t)
	w.seedProduct(t, "p1", "Widget", "10.00", 5)

	w.action(t, customerID, "cart_add:p1")
	w.action(t, customerID, "checkout")
	w.action(t, customerID, "pay:card")
	assert.Contains(t, w.messenger.lastTo(customerID).Text, "press Confirm")

	orders, err := w.svc.OrdersFor(context.Background(), customerID)
	require.NoError(t, err)
	assert.Empty(t, orders, "no order before confirmation")

	w.action(t, customerID, "pay_confirm")
	orders, err = w.svc.OrdersFor(context.Background(), customerID)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "card", orders[0].Method)
}

func TestTrackingStepShipsOrder(t *testing.T) {
	w := newWorld(t)
	w.seedProduct(t, "p1", "Widget", "10.00", 5)
	w.fund(t, customerID, "100.00")
	w.text(t, adminID, "hi") // register the admin
	ctx := context.Background()

	order, err := w.svc.BuyNow(ctx, customerID, "p1", commerce.PayWallet, "")
	require.NoError(t, err)
	require.NoError(t, w.svc.AdvanceOrderStatus(ctx, order.ID, adminID, commerce.ActionProcess, ""))

	w.action(t, adminID, "order_ship:"+order.ID)
	assert.Contains(t, w.messenger.lastTo(adminID).Text, "tracking number")

	w.text(t, adminID, "TRK-42")
	got, err := w.orders.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderShipped, got.Status)
	assert.Equal(t, "TRK-42", got.TrackingNumber)
}

func TestCustomDepositFlow(t *testing.T) {
	w := newWorld(t)
	w.text(t, customerID, "hi") // register

	w.action(t, customerID, "deposit_custom")

	t.Run("non-numeric amount re-prompts", func(t *testing.T) {
		w.text(t, customerID, "lots")
		assert.Contains(t, w.messenger.lastTo(customerID).Text, "number")
	})

	t.Run("out-of-range amount re-prompts", func(t *testing.T) {
		w.text(t, customerID, "5000")
		assert.Contains(t, w.messenger.lastTo(customerID).Text, "between")
	})

	w.text(t, customerID, "42.50")
	assert.Contains(t, w.messenger.lastTo(customerID).Text, "payment method")

	w.action(t, customerID, "deposit_method:card")
	assert.Contains(t, w.messenger.lastTo(customerID).Text, "press Confirm")

	w.action(t, customerID, "deposit_confirm")
	u, err := w.users.Get(context.Background(), customerID)
	require.NoError(t, err)
	assert.True(t, u.Wallet.Equal(decimal.RequireFromString("42.50")), u.Wallet.String())
	assert.True(t, u.LedgerBalance().Equal(u.Wallet))
}

func TestWithdrawalDialogueFlow(t *testing.T) {
	w := newWorld(t)
	w.fund(t, customerID, "80.00")

	w.action(t, customerID, "withdraw")
	assert.Contains(t, w.messenger.lastTo(customerID).Text, "send the funds")

	// Typed method instead of button press.
	w.text(t, customerID, "paypal")
	assert.Contains(t, w.messenger.lastTo(customerID).Text, "How much")

	w.text(t, customerID, "30")
	assert.Contains(t, w.messenger.lastTo(customerID).Text, "PayPal email")

	w.text(t, customerID, "alice@example.com")
	assert.Contains(t, w.messenger.lastTo(customerID).Text, "requested")

	u, err := w.users.Get(context.Background(), customerID)
	require.NoError(t, err)
	assert.True(t, u.Wallet.Equal(decimal.RequireFromString("50.00")), u.Wallet.String())

	// Admin was alerted with the review reference.
	assert.Contains(t, w.messenger.lastTo(adminID).Text, "Withdrawal request")
}

func TestWithdrawalBelowMinimumBlocked(t *testing.T) {
	w := newWorld(t)
	w.fund(t, customerID, "5.00")

	w.action(t, customerID, "withdraw")
	assert.Contains(t, w.messenger.lastTo(customerID).Text, "at least")
}

func TestBroadcastIsolatesFailures(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, _, err := w.users.GetOrCreate(ctx, int64(200+i), "subscriber", "")
		require.NoError(t, err)
	}
	w.messenger.failTo[202] = true

	w.action(t, adminID, "broadcast")
	w.text(t, adminID, "Flash sale this weekend!")

	last := w.messenger.lastTo(adminID)
	assert.Contains(t, last.Text, "4 delivered")
	assert.Contains(t, last.Text, "1 failed")

	for i := 0; i < 5; i++ {
		id := int64(200 + i)
		if id == 202 {
			assert.Zero(t, w.messenger.countTo(id))
			continue
		}
		got := w.messenger.lastTo(id)
		assert.Equal(t, "Flash sale this weekend!", got.Text)
	}
}

func TestSupportRoundTrip(t *testing.T) {
	w := newWorld(t)
	w.text(t, adminID, "hi") // register the admin so replies can reach them

	w.action(t, customerID, "support")
	w.text(t, customerID, "My order never arrived.")
	assert.Contains(t, w.messenger.lastTo(customerID).Text, "support team")

	forwarded := w.messenger.lastTo(adminID)
	assert.Contains(t, forwarded.Text, "My order never arrived.")

	var replyToken string
	for _, row := range forwarded.KB {
		for _, b := range row {
			if strings.HasPrefix(b.Action, "support_reply:") {
				replyToken = b.Action
			}
		}
	}
	require.NotEmpty(t, replyToken)

	w.action(t, adminID, replyToken)
	w.text(t, adminID, "It ships tomorrow, sorry for the delay.")
	assert.Contains(t, w.messenger.lastTo(customerID).Text, "It ships tomorrow")
}

func TestUnknownTokenFallsBackToMenu(t *testing.T) {
	w := newWorld(t)
	w.action(t, customerID, "bogus_token:xyz")
	assert.Contains(t, w.messenger.lastTo(customerID).Text, "Welcome")
}

func TestWithdrawalAmountValidationKeepsFlow(t *testing.T) {
	w := newWorld(t)
	w.fund(t, customerID, "80.00")

	w.action(t, customerID, "withdraw")
	w.text(t, customerID, "paypal")

	// An amount over the balance re-prompts instead of abandoning the flow.
	w.text(t, customerID, "500")
	assert.Contains(t, w.messenger.lastTo(customerID).Text, "wallet holds 80.00")

	// So does one under the minimum.
	w.text(t, customerID, "5")
	assert.Contains(t, w.messenger.lastTo(customerID).Text, "minimum withdrawal is 10.00")

	// A corrected amount continues where the flow left off.
	w.text(t, customerID, "50")
	assert.Contains(t, w.messenger.lastTo(customerID).Text, "PayPal email")

	w.text(t, customerID, "alice@example.com")
	assert.Contains(t, w.messenger.lastTo(customerID).Text, "requested")

	u, err := w.users.Get(context.Background(), customerID)
	require.NoError(t, err)
	assert.True(t, u.Wallet.Equal(decimal.RequireFromString("30.00")), u.Wallet.String())
}

func TestEmptyTrackingReprompts(t *testing.T) {
	w := newWorld(t)
	w.seedProduct(t, "p1", "Widget", "10.00", 5)
	w.fund(t, customerID, "100.00")
	w.text(t, adminID, "hi") // register the admin
	ctx := context.Background()

	order, err := w.svc.BuyNow(ctx, customerID, "p1", commerce.PayWallet, "")
	require.NoError(t, err)
	require.NoError(t, w.svc.AdvanceOrderStatus(ctx, order.ID, adminID, commerce.ActionProcess, ""))

	w.action(t, adminID, "order_ship:"+order.ID)
	w.text(t, adminID, "   ")
	assert.Contains(t, w.messenger.lastTo(adminID).Text, "tracking number")

	got, err := w.orders.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderProcessing, got.Status, "blank tracking does not ship")

	w.text(t, adminID, "TRK-7")
	got, err = w.orders.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderShipped, got.Status)
	assert.Equal(t, "TRK-7", got.TrackingNumber)
}
