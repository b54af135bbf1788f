/*
Package telemart is a conversational storefront: a dialogue engine for
chat-style commerce backed by a transactional ledger.

Customers browse a catalog, manage a cart, pay from a wallet or through an
external payment provider, and follow their orders through a fixed lifecycle.
Administrators manage the catalog, settle withdrawals, broadcast
announcements and answer support messages, all through the same chat surface.

# Architecture

The package follows a ports-and-adapters layout. The core owns entities and
business rules; the chat transport and the payment gateway are ports the host
implements:

  - ports.Messenger delivers outbound messages and keyboards.
  - ports.PaymentProvider registers and verifies payment intents.

The host feeds inbound chat updates into App.HandleText and
App.HandleAction. Everything else, including entity locking, session
management, persistence and the ops HTTP listener, lives behind App.

# Usage

	cfg, err := config.Load("telemart.yaml")
	if err != nil {
		log.Fatal(err)
	}
	app, err := telemart.New(cfg,
		telemart.WithMessenger(myTransport),
		telemart.WithPayments(myGateway),
	)
	if err != nil {
		log.Fatal(err)
	}
	// Feed updates from the transport:
	//   app.HandleText(ctx, userID, name, handle, text)
	//   app.HandleAction(ctx, userID, name, handle, token)
	if err := app.Run(ctx); err != nil {
		log.Fatal(err)
	}

# Consistency

Every commerce operation runs its precondition checks and mutations inside
one critical section over the entities it touches, using sorted keyed locks.
Wallet balances reconcile against the transaction ledger at every terminal
state. Dialogue sessions are ephemeral and expire after an idle period;
expiry abandons conversation state only, never money or stock.
*/
package telemart
