// Package harness runs multi-client scenarios against real engines sharing
// one in-memory ledger.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: concurrent_submit
//	description: "Two clients at counter 5 both submit"
//	clients: [pos-a, pos-b]
//	seed:
//	  orderCounter: 5
//	steps:
//	  - client: pos-a
//	    action: add_to_cart
//	    args: { item: 1, quantity: 2, addDrink: true }
//	  - client: pos-a
//	    action: submit
//	    expect: { ok: true, orderNumber: 6 }
//	  - client: pos-a
//	    action: flush
//	  - action: foreign_update
//	    args: { fields: { currentTheme: blue } }
//	assertions:
//	  - type: order_numbers
//	    numbers: [6]
//	  - type: converged
//
// Steps with a client drive that client's engine. Steps without one act
// on the ledger: foreign_update writes as an outside party,
// fail_writes/restore_writes toggle write failures and advance_clock moves
// the shared clock.
//
// # Delivery
//
// Clients never subscribe. A remote value reaches a client only through a
// load or deliver step, and a client's own write only reaches the ledger
// once a flush step has waited for it. Interleavings such as "B persists
// after A without seeing A's write" are therefore written out explicitly
// and reproduce exactly.
//
// # Assertion Types
//
//   - document_field: a dotted path into a document equals a value
//   - order_numbers: order numbers, newest first, optionally by status
//   - status: a client's live status message
//   - converged: every mirror equals the remote document (lastUpdated aside)
//
// Assertions read the remote document unless a client is named.
//
// # Golden Files
//
// RunWithGolden compares the step trace and the final remote document,
// as canonical JSON, against testdata/golden/<name>.golden. Every client
// shares a fixed clock starting at testutil.Epoch, so timestamps in the
// golden files are stable.
package harness
