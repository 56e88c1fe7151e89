// Package orders implements the order lifecycle over a mirror.State:
// draft cart → pending order (Submit) → completed order (Complete).
// There is no reverse transition and no cancel.
//
// Destructive operations (ClearCompleted, ResetAll, ResetCounter) require
// an explicit confirmation flag and return ErrConfirmationRequired without
// touching state when it is false.
//
// ResetCounter leaves existing orders alone, so order numbers issued after
// a reset can collide with orders still in the ledger. This is a known
// hazard and is not prevented.
package orders
