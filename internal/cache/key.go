// Package cache implements the content-addressed Cache (spec.md §4.9): a
// bounded, TTL-evicting store keyed by a hash of the normalized request,
// with single-flight coalescing so concurrent misses on the same key share
// one computation.
//
// Key hashing (sorted keys, SHA256, canonical byte string) is grounded on
// the teacher's GenerateCacheKey/generateArgHash in core/mcp_cache.go,
// generalized from MCP tool-call args to a diagram request's
// (diagram_type, content+data_points, theme) triple.
package cache

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"

	"github.com/archviz/diagramsvc/internal/model"
)

// Key returns the content-address for (diagramType, content+data_points,
// resolved theme): a hex SHA256 digest of a canonical byte string built
// from length-prefixed, normalized fields (spec.md §4.9).
func Key(diagramType string, req model.DiagramRequest, resolvedTheme interface{}) string {
	h := sha256.New()
	writeLengthPrefixed(h, []byte(strings.ToLower(diagramType)))
	writeLengthPrefixed(h, canonicalJSON(struct {
		Content    string            `json:"content"`
		DataPoints []model.DataPoint `json:"data_points"`
	}{req.Content, req.DataPoints}))
	writeLengthPrefixed(h, canonicalJSON(resolvedTheme))
	return hex.EncodeToString(h.Sum(nil))
}

func writeLengthPrefixed(h interface{ Write([]byte) (int, error) }, b []byte) {
	n := len(b)
	prefix := []byte{byte(n >> 24), byte(n >> 16), byte(n >> 8), byte(n)}
	h.Write(prefix)
	h.Write(b)
}

// canonicalJSON renders v as JSON with sorted object keys and no
// insignificant whitespace, so the same logical value always hashes to the
// same bytes regardless of struct field order or map iteration order
// (spec.md §4.9).
func canonicalJSON(v interface{}) []byte {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var generic interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return raw
	}
	var buf bytes.Buffer
	encodeCanonical(&buf, generic)
	return buf.Bytes()
}

func encodeCanonical(buf *bytes.Buffer, v interface{}) {
	switch val := v.(type) {
	case map[string]interface{}:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, _ := json.Marshal(k)
			buf.Write(kb)
			buf.WriteByte(':')
			encodeCanonical(buf, val[k])
		}
		buf.WriteByte('}')
	case []interface{}:
		buf.WriteByte('[')
		for i, e := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			encodeCanonical(buf, e)
		}
		buf.WriteByte(']')
	default:
		b, _ := json.Marshal(val)
		buf.Write(b)
	}
}
