package ledger

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Field identifies a top-level document field.
type Field uint16

const (
	FieldMenuItems Field = 1 << iota
	FieldOrders
	FieldOrderCounter
	FieldMaxInventory
	FieldCurrentTheme
	FieldSiteName
	FieldExtraOptions
	FieldNextItemID
	FieldNextExtraOptionID
	FieldLastUpdated
)

// AllFields is the presence set of a complete document.
const AllFields = FieldMenuItems | FieldOrders | FieldOrderCounter |
	FieldMaxInventory | FieldCurrentTheme | FieldSiteName |
	FieldExtraOptions | FieldNextItemID | FieldNextExtraOptionID |
	FieldLastUpdated

var fieldsByName = map[string]Field{
	"menuItems":         FieldMenuItems,
	"orders":            FieldOrders,
	"orderCounter":      FieldOrderCounter,
	"maxInventory":      FieldMaxInventory,
	"currentTheme":      FieldCurrentTheme,
	"siteName":          FieldSiteName,
	"extraOptions":      FieldExtraOptions,
	"nextItemId":        FieldNextItemID,
	"nextExtraOptionId": FieldNextExtraOptionID,
	"lastUpdated":       FieldLastUpdated,
}

// Snapshot is a decoded remote value together with the set of fields it
// actually carried. Absent fields must not overwrite local state.
type Snapshot struct {
	Document Document
	Present  Field
	// Keys counts the top-level keys, known or not.
	Keys int
}

// Has reports whether f was present in the snapshot.
func (s Snapshot) Has(f Field) bool {
	return s.Present&f != 0
}

// Empty reports whether there is no document yet: nothing stored, null
// or {}. An object holding only fields this version does not know is not
// empty.
func (s Snapshot) Empty() bool {
	return s.Present == 0 && s.Keys == 0
}

// Full wraps a locally built document as a snapshot carrying every field.
func Full(doc Document) Snapshot {
	return Snapshot{Document: doc.Clone(), Present: AllFields, Keys: len(fieldsByName)}
}

// Decode turns a remote value into a Snapshot.
//
// Empty input and JSON null decode to an empty snapshot (no document yet).
// Anything else must be a JSON object satisfying the document schema;
// otherwise the returned error wraps ErrMalformedSnapshot.
func Decode(data []byte) (Snapshot, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return Snapshot{}, nil
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &top); err != nil {
		return Snapshot{}, malformed(fmt.Errorf("decode: %w", err))
	}

	if err := Validate(trimmed); err != nil {
		return Snapshot{}, malformed(err)
	}

	var snap Snapshot
	if err := json.Unmarshal(trimmed, &snap.Document); err != nil {
		return Snapshot{}, malformed(fmt.Errorf("decode: %w", err))
	}
	snap.Keys = len(top)
	for name := range top {
		if f, ok := fieldsByName[name]; ok {
			snap.Present |= f
		}
	}
	return snap, nil
}

// Encode serializes a document in wire form. Empty collections are written
// as [] and {}, never null.
func Encode(doc Document) ([]byte, error) {
	data, err := json.Marshal(doc.Clone())
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return data, nil
}
