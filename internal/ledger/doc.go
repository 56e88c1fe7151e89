// Package ledger defines the shared food-stand document and its records.
//
// The whole application state (menu, orders, inventory caps, extra options,
// site identity, theme and id counters) is exchanged with the remote store
// as ONE JSON document. Field names on the wire match the documents written
// by the browser clients (nameCh/nameEn, timestamp, siteName.chinese, ...)
// so both kinds of client can share a store.
//
// # Boundaries
//
//   - Decode is the only way bytes from a store become a Document. It checks
//     the payload against the embedded CUE schema first and rejects malformed
//     snapshots outright; nothing is assigned partially.
//   - MarshalCanonical produces RFC 8785 canonical JSON (sorted keys, NFC
//     strings, no floats). It is used for content hashes and golden files,
//     never for the wire format.
//
// Integers only: prices, totals, quantities and counters are whole units of
// the local currency.
package ledger
