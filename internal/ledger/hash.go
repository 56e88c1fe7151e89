package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// DomainDocument prefixes document content hashes. The version suffix
// leaves room for a future change of algorithm.
const DomainDocument = "foodstand/document/v1"

// hashWithDomain computes SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ContentHash identifies the observable state held by a document.
// LastUpdated is excluded: two persists of the same state hash equally,
// which is how an engine recognizes the echo of its own write.
func ContentHash(doc Document) (string, error) {
	doc.LastUpdated = ""
	// Clone turns nil slices and maps into empty ones so a decoded document
	// and a constructed one hash identically.
	canonical, err := MarshalCanonical(doc.Clone())
	if err != nil {
		return "", fmt.Errorf("ContentHash: %w", err)
	}
	return hashWithDomain(DomainDocument, canonical), nil
}
