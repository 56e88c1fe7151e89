// Package engine keeps one client's mirror of the shared ledger document
// convergent with the remote store.
//
// ARCHITECTURE:
//
// Single-Writer Event Loop:
// Every mutation of the mirror happens on the goroutine running Run.
// Three kinds of event reach it through one FIFO queue:
//   - intents from the user (Do and the typed helpers such as Submit)
//   - snapshots delivered by the remote ledger (Subscribe, Load, ApplyRemote)
//   - refresh ticks from the refresher while a live view is open
//
// Event Processing Flow:
//  1. An intent runs against the mirror through a Tx
//  2. If it changed the shared document, the whole mirror is snapshotted
//     and queued on the persister (fire-and-forget, FIFO, no retries)
//  3. The store fans the write out to every subscriber, this client too
//  4. A delivered snapshot is decoded and validated; a malformed one is
//     rejected and the mirror is left untouched
//  5. A valid snapshot overwrites the fields it carries
//  6. Renderers are invoked after every event
//
// Persistence is whole-document last-write-wins. Two clients that submit
// concurrently from the same counter both issue order N+1 and the later
// write erases the other one's order. That hazard is observable and is not
// prevented here.
package engine
