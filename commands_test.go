package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"showroom-kpi/models"
)

var testNow = time.Date(2024, time.May, 20, 12, 0, 0, 0, time.UTC)

func TestSelectMonthsDefaultIsNewest(t *testing.T) {
	months, err := selectMonths(&runOptions{}, models.FirstAvailableMonth, testNow)
	require.NoError(t, err)
	assert.Equal(t, []models.Month{{Year: 2024, Month: time.May}}, months)
}

func TestSelectMonthsAll(t *testing.T) {
	months, err := selectMonths(&runOptions{all: true}, models.FirstAvailableMonth, testNow)
	require.NoError(t, err)
	assert.Len(t, months, 9)
	assert.Equal(t, models.FirstAvailableMonth, months[len(months)-1])
}

func TestSelectMonthsExplicitKeepsNewestFirst(t *testing.T) {
	opts := &runOptions{months: []string{"2023-10", "2024/03", "2023-10"}}
	months, err := selectMonths(opts, models.FirstAvailableMonth, testNow)
	require.NoError(t, err)
	assert.Equal(t, []models.Month{
		{Year: 2024, Month: time.March},
		{Year: 2023, Month: time.October},
	}, months)
}

func TestSelectMonthsRejectsOutOfRange(t *testing.T) {
	for _, m := range []string{"2023-08", "2024-06", "bad"} {
		_, err := selectMonths(&runOptions{months: []string{m}}, models.FirstAvailableMonth, testNow)
		assert.Error(t, err, m)
	}
}

func TestJoinLabels(t *testing.T) {
	got := joinLabels([]models.Month{{Year: 2024, Month: time.May}, {Year: 2024, Month: time.April}})
	assert.Equal(t, "2024/05, 2024/04", got)
}
