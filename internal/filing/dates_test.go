package filing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var testNow = time.Date(2026, time.August, 26, 0, 0, 0, 0, time.UTC)

func TestDateFromFilename_SuffixDate(t *testing.T) {
	d := DateFromFilename("aapl-20241231.htm", testNow)
	assert.Equal(t, time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC), d)

	d = DateFromFilename("msft-10k-20230630.html", testNow)
	assert.Equal(t, time.Date(2023, 6, 30, 0, 0, 0, 0, time.UTC), d)
}

func TestDateFromFilename_CIKDate(t *testing.T) {
	d := DateFromFilename("000032019320241101_doc.htm", testNow)
	assert.Equal(t, time.Date(2024, 11, 1, 0, 0, 0, 0, time.UTC), d)
}

func TestDateFromFilename_CIKYearSequence(t *testing.T) {
	// 10-digit CIK, 2-digit year, 6-digit sequence maps to Jan 1 of 20YY.
	d := DateFromFilename("000032019324000123.htm", testNow)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), d)
}

func TestDateFromFilename_ISODateAnywhere(t *testing.T) {
	d := DateFromFilename("report_2022-12-31_final.html", testNow)
	assert.Equal(t, time.Date(2022, 12, 31, 0, 0, 0, 0, time.UTC), d)
}

func TestDateFromFilename_RejectsOutOfRangeYears(t *testing.T) {
	assert.True(t, DateFromFilename("doc-18891231.htm", testNow).IsZero())
	assert.True(t, DateFromFilename("doc-20991231.htm", testNow).IsZero())
	assert.True(t, DateFromFilename("1889-12-31_report.html", testNow).IsZero())
}

func TestDateFromFilename_NoMatch(t *testing.T) {
	assert.True(t, DateFromFilename("primary_document.htm", testNow).IsZero())
	assert.True(t, DateFromFilename("", testNow).IsZero())
}

func TestDateFromFilename_SuffixWinsOverISO(t *testing.T) {
	d := DateFromFilename("2020-01-01-x-20241231.htm", testNow)
	assert.Equal(t, time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC), d)
}
