// Package delivery holds the Delivery aggregate and its lifecycle.
//
// A delivery is created Open with a funded escrow, accepted by a carrier,
// moved through pickup, transit and delivery, and completed when the escrow
// is released. An Open delivery can instead be cancelled, which refunds the
// escrow. Status.Apply is the single place where the allowed transitions are
// defined; Delivery enforces the status/carrier invariant on every change.
package delivery
