package util

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{name: "thousands and quotes", input: `"1,234.50"`, want: "1234.5"},
		{name: "padded", input: "  1,250.75 ", want: "1250.75"},
		{name: "negative", input: "-42.10", want: "-42.1"},
		{name: "empty", input: "", want: "0"},
		{name: "dash", input: " - ", want: "0"},
		{name: "garbage", input: "n/a", want: "0"},
		{name: "millions", input: "1,000,000", want: "1000000"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ParseAmount(tc.input)
			assert.True(t, got.Equal(decimal.RequireFromString(tc.want)), "got %s want %s", got, tc.want)
		})
	}
}

func TestParseInt(t *testing.T) {
	cases := []struct {
		input string
		want  int64
	}{
		{input: "12", want: 12},
		{input: "3.9", want: 3},
		{input: "-2.5", want: -2},
		{input: `"1,200"`, want: 1200},
		{input: "", want: 0},
		{input: "-", want: 0},
		{input: "abc", want: 0},
		{input: "NaN", want: 0},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, ParseInt(tc.input), "input %q", tc.input)
	}
}

func TestParseDate(t *testing.T) {
	want := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	for _, input := range []string{
		"2024-05-01", "01-05-2024", "01/05/2024", " 2024-05-01 ",
		"2024-5-1", "1-5-2024", "1/5/2024", "01/5/2024",
	} {
		got := ParseDate(input)
		require.NotNil(t, got, "input %q", input)
		assert.True(t, got.Equal(want), "input %q got %s", input, got)
	}

	for _, input := range []string{"", "May 1, 2024", "2024/05/01", "32-01-2024", "1/13/2024", "24-5-1", "nan"} {
		assert.Nil(t, ParseDate(input), "input %q", input)
	}
}

func TestParseExcelSerialDate(t *testing.T) {
	got := ParseExcelSerialDate("45413")
	require.NotNil(t, got)
	assert.Equal(t, "2024-05-01", got.Format("2006-01-02"))

	assert.Nil(t, ParseExcelSerialDate("12"))
	assert.Nil(t, ParseExcelSerialDate("B100"))
}

func TestIsNumeric(t *testing.T) {
	assert.True(t, IsNumeric("1,250.75"))
	assert.True(t, IsNumeric(" 42 "))
	assert.False(t, IsNumeric("01-City Store"))
	assert.False(t, IsNumeric(""))
}

func TestTextHelpers(t *testing.T) {
	assert.True(t, IsBlank("   "))
	assert.True(t, IsBlank(" NaN "))
	assert.False(t, IsBlank("B100"))

	assert.Nil(t, OptionalString("nan"))
	require.NotNil(t, OptionalString(" Ali "))
	assert.Equal(t, "Ali", *OptionalString(" Ali "))

	assert.Equal(t, "a b", NormalizeSpaces(" a \t b "))
	assert.Equal(t, 1.0, DiceCoefficient("riyadh mall", "riyadh mall"))
	assert.Greater(t, DiceCoefficient("riyadh mall 1", "riyadh mall1"), 0.8)
	assert.Less(t, DiceCoefficient("jeddah", "dammam"), 0.3)
}
