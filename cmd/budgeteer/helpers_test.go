package main

import (
	"testing"

	"github.com/budgeteer-dev/budgeteer/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		name     string
		scaled   int64
		currency string
		expected string
	}{
		{name: "whole dollars", scaled: 1000000, currency: "USD", expected: "$100.00"},
		{name: "cents", scaled: -127500, currency: "USD", expected: "-$12.75"},
		{name: "sub-cent rounds to display precision", scaled: 10003, currency: "USD", expected: "$1.00"},
		{name: "zero", scaled: 0, currency: "USD", expected: "$0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := formatMoney(model.NewMoney(tt.scaled, tt.currency))
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestParseSplit(t *testing.T) {
	id, amount, err := parseSplit("2:100.00")
	require.NoError(t, err)
	assert.Equal(t, int64(2), id)
	assert.Equal(t, int64(1000000), amount.ScaledAmount())

	id, amount, err = parseSplit("3:-38.97")
	require.NoError(t, err)
	assert.Equal(t, int64(3), id)
	assert.Equal(t, int64(-389700), amount.ScaledAmount())

	_, _, err = parseSplit("no-colon")
	assert.Error(t, err)

	_, _, err = parseSplit("x:1.00")
	assert.Error(t, err)
}

func TestParseDay(t *testing.T) {
	day, err := parseDay("2018-09-01")
	require.NoError(t, err)
	assert.Equal(t, 2018, day.Year())

	_, err = parseDay("09/01/2018")
	assert.Error(t, err)
}

func TestParseRange(t *testing.T) {
	from, to, err := parseRange("2018-08-01", "2018-09-30")
	require.NoError(t, err)
	assert.True(t, from.Before(to))

	// Defaults cover the trailing 30 days.
	from, to, err = parseRange("", "")
	require.NoError(t, err)
	assert.True(t, from.Before(to))

	_, _, err = parseRange("bad", "")
	assert.Error(t, err)
}
