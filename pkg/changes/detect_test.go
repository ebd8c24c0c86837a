package changes

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storewatch/pkg/logger"
	"storewatch/pkg/models"
)

func TestDetectChangesNoFalsePositives(t *testing.T) {
	records := sampleRecords()
	reversed := make([]models.StoreRecord, len(records))
	for i, r := range records {
		reversed[len(records)-1-i] = r
	}

	report := DetectChanges(
		BuildIndex(records, logger.NewTestLogger()),
		BuildIndex(reversed, logger.NewTestLogger()),
	)

	assert.Empty(t, report.New)
	assert.Empty(t, report.Closed)
	assert.Empty(t, report.Modified)
	assert.Equal(t, len(records), report.UnchangedCount)
	assert.True(t, report.Empty())
}

func TestDetectChangesNewAndClosed(t *testing.T) {
	old := []models.StoreRecord{
		{StoreID: "1", Name: "Acme North"},
		{StoreID: "2", Name: "Acme South"},
	}
	current := []models.StoreRecord{
		{StoreID: "2", Name: "Acme South"},
		{StoreID: "3", Name: "Acme East"},
	}

	report := DetectChanges(
		BuildIndex(old, logger.NewTestLogger()),
		BuildIndex(current, logger.NewTestLogger()),
	)

	assert.Equal(t, []string{"id:3"}, report.New)
	assert.Equal(t, []string{"id:1"}, report.Closed)
	assert.Empty(t, report.Modified)
	assert.Equal(t, 1, report.UnchangedCount)
}

func TestDetectChangesModifiedFields(t *testing.T) {
	old := models.StoreRecord{StoreID: "9", Name: "Acme", Phone: "555-0000"}
	old.SetExtra("hours", "9-5")
	current := models.StoreRecord{StoreID: "9", Name: "Acme", Phone: "555-9999"}
	current.SetExtra("hours", "24/7")
	current.SetExtra("drive_thru", "yes")

	report := DetectChanges(
		BuildIndex([]models.StoreRecord{old}, logger.NewTestLogger()),
		BuildIndex([]models.StoreRecord{current}, logger.NewTestLogger()),
	)

	require.Len(t, report.Modified, 1)
	assert.Equal(t, "id:9", report.Modified[0].Key)
	assert.Equal(t, []string{"drive_thru", "hours", "phone"}, report.Modified[0].ChangedFields)
	assert.Equal(t, 0, report.UnchangedCount)
}

func TestDetectChangesIgnoresVolatileTimestamp(t *testing.T) {
	old := models.StoreRecord{StoreID: "4", Name: "Acme"}
	current := old
	current.ScrapedAt = current.ScrapedAt.AddDate(0, 0, 1)

	report := DetectChanges(
		BuildIndex([]models.StoreRecord{old}, logger.NewTestLogger()),
		BuildIndex([]models.StoreRecord{current}, logger.NewTestLogger()),
	)

	assert.True(t, report.Empty(), "scrape timestamps must never count as modifications")
	assert.Equal(t, 1, report.UnchangedCount)
}

func TestDetectChangesOutputSorted(t *testing.T) {
	var old, current []models.StoreRecord
	// Deliberately unsorted insertion order.
	for _, id := range []string{"9", "2", "7", "4"} {
		old = append(old, models.StoreRecord{StoreID: id, Name: "Old " + id})
	}
	for _, id := range []string{"8", "3", "6", "1"} {
		current = append(current, models.StoreRecord{StoreID: id, Name: "New " + id})
	}

	report := DetectChanges(
		BuildIndex(old, logger.NewTestLogger()),
		BuildIndex(current, logger.NewTestLogger()),
	)

	assert.True(t, sort.StringsAreSorted(report.New))
	assert.True(t, sort.StringsAreSorted(report.Closed))
}

func TestDetectChangesEmptyPrevMeansAllNew(t *testing.T) {
	current := []models.StoreRecord{{StoreID: "1"}, {StoreID: "2"}}
	report := DetectChanges(Index{}, BuildIndex(current, logger.NewTestLogger()))

	assert.Equal(t, []string{"id:1", "id:2"}, report.New)
	assert.Empty(t, report.Closed)
}
