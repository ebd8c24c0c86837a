package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"storewatch/pkg/models"
)

// FingerprintPrefixLen is how many fingerprint characters are appended to
// address-based keys. The suffix is always present, even when an address is
// currently unique, so a key never changes when a second store later opens
// at the same address.
const FingerprintPrefixLen = 12

// identityFields is the fixed, ordered list of fields hashed into the
// fingerprint. Comparison-only fields (hours, scrape timestamps, anything in
// Extra) never participate: identity must survive a store updating its hours.
var identityFields = []string{
	models.FieldStoreID,
	models.FieldURL,
	models.FieldName,
	models.FieldStreetAddress,
	models.FieldCity,
	models.FieldState,
	models.FieldZip,
	models.FieldPhone,
}

// Canonicalize normalizes a field value for hashing: unicode NFKC, case
// folded, whitespace collapsed. Formatting noise must never change identity.
// A fresh Caser per call: Casers are stateful and not goroutine-safe.
func Canonicalize(value string) string {
	value = norm.NFKC.String(value)
	value = cases.Fold().String(value)
	return strings.Join(strings.Fields(value), " ")
}

// ComputeFingerprint returns a 64-character lowercase hex SHA-256 digest over
// the canonicalized identity fields. Missing fields hash as empty strings so
// the result is deterministic for any record shape.
func ComputeFingerprint(r models.StoreRecord) string {
	fields := r.Fields()
	parts := make([]string, len(identityFields))
	for i, name := range identityFields {
		parts[i] = Canonicalize(fields[name])
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

// ComputeKey returns the stable per-record key:
//
//	id:{store_id}                          when the retailer assigns ids
//	url:{url}                              when only a detail URL exists
//	addr:{normalized_address}::{fp prefix} otherwise
//
// Pure function, no I/O. The address form always carries the fingerprint
// suffix to keep multi-tenant locations (two stores, one address) distinct.
func ComputeKey(r models.StoreRecord) string {
	if id := strings.TrimSpace(r.StoreID); id != "" {
		return "id:" + id
	}
	if url := strings.TrimSpace(r.URL); url != "" {
		return "url:" + url
	}
	fp := ComputeFingerprint(r)
	return "addr:" + NormalizeAddress(r) + "::" + fp[:FingerprintPrefixLen]
}

// NormalizeAddress builds the canonical address string used in address-based
// keys. Missing components are kept as empty slots so the shape is stable.
func NormalizeAddress(r models.StoreRecord) string {
	parts := []string{
		Canonicalize(r.StreetAddress),
		Canonicalize(r.City),
		Canonicalize(r.State),
		Canonicalize(r.Zip),
	}
	return strings.Join(parts, ",")
}
