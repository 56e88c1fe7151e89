// Package mirror holds the local copy of the shared document plus the
// device-local cart.
//
// A State is owned by exactly one goroutine (the engine's loop) and is not
// safe for concurrent use. Every change goes through a method here so the
// invariants hold after each call:
//
//   - new menu items and extra options take ids from their counters, and a
//     counter lagging behind an existing id is advanced first
//   - deleting a menu item removes its inventory cap, never order lines
//   - cart quantities are positive; AddDrink is off for items that cannot
//     add a drink
//   - admin forms are validated as a whole; a rejected form changes nothing
//
// Apply overwrites the fields present in a remote snapshot. Slices are
// truncated and refilled in place. The cart is never part of a snapshot.
package mirror
