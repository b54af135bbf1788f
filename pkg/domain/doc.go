/*
Package domain holds the storefront entities and the rules that travel with
them: the order status state machine, the append-only wallet ledger, cart
arithmetic and the tagged dialogue step variants.

Entities here are plain data plus invariant-preserving methods. Cross-entity
mutation (checkout, cancellation, deposits) lives in package commerce, which
is the only writer for wallets, stock and order status.
*/
package domain
