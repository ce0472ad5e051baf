// Package kernel provides the value objects shared by the delivery, user and
// ledger transaction models.
//
// The package includes:
//   - Address: a wallet address on the escrow ledger (the zero value means none)
//   - Amount: a non-negative decimal payment that preserves its original text
//   - Clock: the time source, with timestamps kept at millisecond precision
package kernel
