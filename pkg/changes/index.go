package changes

import (
	"storewatch/pkg/identity"
	"storewatch/pkg/logger"
	"storewatch/pkg/models"
)

// Index maps StoreKey to its record. For any permutation of the same input
// records, BuildIndex yields an identical key set and key->record mapping;
// this order independence is what keeps diffs free of false positives.
type Index map[string]models.StoreRecord

// BuildIndex builds an Index in a single pass over the records.
//
// Two distinct records resolving to the same fingerprinted key is a genuine
// data-quality anomaly (the fingerprint suffix exists to prevent it). It is
// logged and resolved last-write-wins rather than failing the run.
func BuildIndex(records []models.StoreRecord, log logger.Logger) Index {
	if log == nil {
		log = logger.GetLogger()
	}
	index := make(Index, len(records))
	for _, record := range records {
		key := identity.ComputeKey(record)
		if existing, ok := index[key]; ok && !fieldsEqual(existing.Fields(), record.Fields()) {
			log.WarnWithFields("store key collision, keeping last record", map[string]interface{}{
				"key": key,
			})
		}
		index[key] = record
	}
	return index
}

// Keys returns the index's key set in sorted order.
func (idx Index) Keys() []string {
	keys := make([]string, 0, len(idx))
	for k := range idx {
		keys = append(keys, k)
	}
	sortStrings(keys)
	return keys
}

func fieldsEqual(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}
