package changes

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storewatch/pkg/identity"
	"storewatch/pkg/logger"
	"storewatch/pkg/models"
)

func sampleRecords() []models.StoreRecord {
	return []models.StoreRecord{
		{StoreID: "1", Name: "Acme North", City: "Portland"},
		{URL: "https://acme.example/stores/south", Name: "Acme South"},
		{StreetAddress: "123 Main St", City: "Salem", Phone: "555-1111"},
		{StreetAddress: "123 Main St", City: "Salem", Phone: "555-2222"},
		{StreetAddress: "9 Pine Rd", City: "Bend", Zip: "97701"},
	}
}

func TestBuildIndexOrderIndependence(t *testing.T) {
	records := sampleRecords()
	log := logger.NewTestLogger()
	base := BuildIndex(records, log)

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 20; i++ {
		shuffled := make([]models.StoreRecord, len(records))
		copy(shuffled, records)
		rng.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})

		permuted := BuildIndex(shuffled, log)
		require.Equal(t, base.Keys(), permuted.Keys(), "key set must not depend on input order")
		for key, record := range base {
			assert.Equal(t, record.Fields(), permuted[key].Fields(),
				"key %q must map to the same record in every permutation", key)
		}
	}
}

func TestBuildIndexSharedAddressKeepsBothStores(t *testing.T) {
	a := models.StoreRecord{StreetAddress: "123 Main St", City: "Salem", Phone: "555-1111"}
	b := models.StoreRecord{StreetAddress: "123 Main St", City: "Salem", Phone: "555-2222"}

	forward := BuildIndex([]models.StoreRecord{a, b}, logger.NewTestLogger())
	reverse := BuildIndex([]models.StoreRecord{b, a}, logger.NewTestLogger())

	require.Len(t, forward, 2)
	require.Equal(t, forward.Keys(), reverse.Keys())
	assert.Equal(t, forward[identity.ComputeKey(a)].Phone, "555-1111")
	assert.Equal(t, forward[identity.ComputeKey(b)].Phone, "555-2222")
}

func TestBuildIndexIncrementalStability(t *testing.T) {
	a := models.StoreRecord{StreetAddress: "5 Oak Ave", City: "Eugene", Phone: "555-0001"}
	b := models.StoreRecord{StreetAddress: "5 Oak Ave", City: "Eugene", Phone: "555-0002"}

	solo := BuildIndex([]models.StoreRecord{a}, logger.NewTestLogger())
	both := BuildIndex([]models.StoreRecord{a, b}, logger.NewTestLogger())

	keyA := identity.ComputeKey(a)
	_, inSolo := solo[keyA]
	_, inBoth := both[keyA]
	require.True(t, inSolo)
	require.True(t, inBoth, "A's key must not move when B appears at the same address")
}

func TestBuildIndexCollisionLogsAndKeepsLast(t *testing.T) {
	// Same identity fields, different comparison-only data: identical keys
	// by construction, so the collision path fires.
	first := models.StoreRecord{StoreID: "77", Name: "Acme"}
	first.SetExtra("hours", "9-5")
	second := models.StoreRecord{StoreID: "77", Name: "Acme"}
	second.SetExtra("hours", "10-6")

	log := logger.NewTestLogger()
	index := BuildIndex([]models.StoreRecord{first, second}, log)

	require.Len(t, index, 1)
	assert.Equal(t, "10-6", index["id:77"].Extra["hours"], "last write wins")
	assert.True(t, log.HasMessage("WARN", "collision"))
}

func TestBuildIndexDuplicateRecordIsSilent(t *testing.T) {
	r := models.StoreRecord{StoreID: "5", Name: "Acme"}
	log := logger.NewTestLogger()
	index := BuildIndex([]models.StoreRecord{r, r}, log)

	require.Len(t, index, 1)
	assert.False(t, log.HasMessage("WARN", "collision"), "identical records are not an anomaly")
}
