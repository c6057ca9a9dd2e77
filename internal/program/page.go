package program

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Page is the pagination view of one decoded feed payload. Pointer fields are
// nil when the payload does not carry the signal.
type Page struct {
	Items      []any
	HasNext    *bool
	Page       *int
	TotalPages *int
}

// ExtractPage locates the item array and pagination hints in a page payload.
// A non-object payload yields an empty page.
func ExtractPage(payload any) Page {
	root := asRecord(payload)
	if root == nil {
		return Page{}
	}

	var page Page
	candidates := make([]any, 0, 2)
	if value, ok := firstPresent(root, "items", "Items", "results", "Results", "entries", "Entries", "data", "Data"); ok {
		candidates = append(candidates, value)
	}
	if data := asRecord(root["data"]); data != nil {
		if value, ok := firstPresent(data, "items", "results", "entries"); ok {
			candidates = append(candidates, value)
		}
	}
	for _, candidate := range candidates {
		if items, ok := candidate.([]any); ok {
			page.Items = items
			break
		}
	}

	if raw, ok := firstPresent(root, "hasNext", "HasNext", "has_next", "nextPage", "NextPage"); ok {
		if b, ok := asBool(raw); ok {
			page.HasNext = &b
		}
	}
	if raw, ok := firstPresent(root, "totalPages", "TotalPages", "pageCount", "PageCount"); ok {
		if n, ok := asNumber(raw); ok {
			page.TotalPages = intPtr(n)
		}
	}
	if raw, ok := firstPresent(root, "page", "Page", "currentPage", "CurrentPage"); ok {
		if n, ok := asNumber(raw); ok {
			page.Page = intPtr(n)
		}
	}
	return page
}

// ExtractSourceID returns the upstream identifier of a program item, falling
// back to a content hash when no identifier field is present.
func ExtractSourceID(item any) string {
	record := asRecord(item)
	if record == nil {
		return "hash:" + StableHash(item)
	}
	if id := firstID(record, "id", "Id", "uuid", "UUID", "slug", "Slug", "code", "Code"); id != "" {
		return id
	}
	nested := asRecord(record["film"])
	if nested == nil {
		nested = asRecord(record["movie"])
	}
	if nested != nil {
		if id := firstID(nested, "id", "Id", "uuid", "slug"); id != "" {
			return id
		}
	}
	return "hash:" + StableHash(item)
}

// StableHash is the hex SHA-256 of the canonical JSON encoding of v. Map keys
// are encoded in sorted order, so equal documents hash equally.
func StableHash(v any) string {
	encoded, err := CanonicalJSON(v)
	if err != nil {
		encoded = []byte(fmt.Sprintf("%#v", v))
	}
	sum := sha256.Sum256(encoded)
	return hex.EncodeToString(sum[:])
}

// CanonicalJSON encodes v with sorted object keys and no HTML escaping.
func CanonicalJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
