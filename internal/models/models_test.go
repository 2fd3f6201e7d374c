package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNewDateCategoryUnitKey(t *testing.T) {
	u := NewDateCategoryUnit(day(2025, 5, 12), "2", "Criminal")
	assert.Equal(t, "2025-05-12_2", u.Key)
	assert.Equal(t, "Criminal", u.CategoryName)
	assert.True(t, u.SingleDay())
}

func TestNewMonthUnitSpansCalendarMonth(t *testing.T) {
	u := NewMonthUnit(2025, time.February)
	assert.Equal(t, "2025-02", u.Key)
	assert.Equal(t, day(2025, 2, 1), u.From)
	assert.Equal(t, day(2025, 2, 28), u.To)
	assert.False(t, u.SingleDay())
}

func TestEnumerateDateCategoriesDescending(t *testing.T) {
	cats := []Category{{Value: "2", Name: "Criminal"}, {Value: "1", Name: "Civil"}}
	units := EnumerateDateCategories(day(2025, 5, 12), 3, cats)
	require.Len(t, units, 6)

	assert.Equal(t, "2025-05-12_2", units[0].Key)
	assert.Equal(t, "2025-05-12_1", units[1].Key)
	assert.Equal(t, "2025-05-11_2", units[2].Key)
	assert.Equal(t, "2025-05-10_1", units[5].Key)
}

func TestEnumerateMonthsDescending(t *testing.T) {
	units := EnumerateMonths(day(2025, 1, 15), 3)
	require.Len(t, units, 3)
	assert.Equal(t, "2025-01", units[0].Key)
	assert.Equal(t, "2024-12", units[1].Key)
	assert.Equal(t, "2024-11", units[2].Key)
}

func TestEnumerateRangeChunks(t *testing.T) {
	units := EnumerateRangeChunks(day(2025, 5, 12), 12, 5)
	require.Len(t, units, 3)

	assert.Equal(t, day(2025, 5, 8), units[0].From)
	assert.Equal(t, day(2025, 5, 12), units[0].To)
	assert.Equal(t, day(2025, 5, 3), units[1].From)
	assert.Equal(t, day(2025, 5, 7), units[1].To)
	// The oldest chunk is clipped to the window.
	assert.Equal(t, day(2025, 5, 1), units[2].From)
	assert.Equal(t, day(2025, 5, 2), units[2].To)

	assert.Equal(t, "2025-05-08_2025-05-12", units[0].Key)
}

func TestProcessedMarkerTerminal(t *testing.T) {
	for _, status := range []string{StatusSuccess, StatusNoRecords, StatusOverLimit} {
		assert.True(t, ProcessedMarker{Status: status}.Terminal(), status)
	}
	assert.False(t, ProcessedMarker{Status: StatusError}.Terminal())
}
