/*
Package ports defines the driven ports (interfaces) for the storefront core.

These interfaces decouple the dialogue engine and commerce operations from
external implementations: entity and session storage backends, the messaging
transport and the payment provider.

# Key Interfaces

  - UserStore / ProductStore / OrderStore: entity persistence.
  - SessionStore: per-counterparty dialogue session persistence.
  - Messenger: outbound messages and retractions on the chat transport.
  - PaymentProvider: external payment intents and verification.
*/
package ports
