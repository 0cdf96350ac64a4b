package service

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"hash"
	"sort"
	"strconv"

	"github.com/ppiankov/casecheck/internal/model"
)

// Signature digests a case's document set together with the case metadata and checklist version.
// Any change to any document text changes it; document order in the input does not.
func Signature(caseID, caseName, version string, docs []model.Document) string {
	h := sha256.New()
	writeField(h, caseID)
	writeField(h, version)
	writeField(h, caseName)

	for _, doc := range sortDocuments(docs) {
		writeField(h, strconv.Itoa(doc.ID))
		writeField(h, doc.Title)
		writeField(h, doc.Type)
		writeField(h, doc.Content)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// CombinedSignature folds user items into a base signature.
// It equals base when there are no user items.
func CombinedSignature(base string, userItems []model.StoredUserChecklistItem) string {
	if len(userItems) == 0 {
		return base
	}
	data, err := json.Marshal(userItems)
	if err != nil {
		// Plain structs always encode
		panic(err)
	}
	h := sha256.New()
	writeField(h, base)
	writeField(h, string(data))
	return hex.EncodeToString(h.Sum(nil))
}

// writeField writes a length-prefixed field so adjacent fields cannot run together
func writeField(h hash.Hash, s string) {
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], uint64(len(s)))
	h.Write(n[:])
	h.Write([]byte(s))
}

// sortDocuments orders dockets first, then by ECF number, then by id
func sortDocuments(docs []model.Document) []model.Document {
	out := append([]model.Document(nil), docs...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.IsDocket != b.IsDocket {
			return a.IsDocket
		}
		if c := compareECF(a.ECFNumber, b.ECFNumber); c != 0 {
			return c < 0
		}
		return a.ID < b.ID
	})
	return out
}

// compareECF orders numeric ECF numbers by value, then non-numeric ones lexically, then empty
func compareECF(a, b string) int {
	if a == b {
		return 0
	}
	if a == "" {
		return 1
	}
	if b == "" {
		return -1
	}

	na, errA := strconv.Atoi(a)
	nb, errB := strconv.Atoi(b)
	switch {
	case errA == nil && errB == nil:
		if na != nb {
			if na < nb {
				return -1
			}
			return 1
		}
	case errA == nil:
		return -1
	case errB == nil:
		return 1
	}

	if a < b {
		return -1
	}
	return 1
}
