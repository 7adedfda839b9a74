package model

import (
	"fmt"
	"strings"
)

// PadCIK normalizes a CIK to the SEC's zero-padded 10-digit form. Returns ""
// for anything that is not a plain number.
func PadCIK(cik string) string {
	c := strings.TrimLeft(strings.TrimSpace(cik), "0")
	if c == "" {
		return ""
	}
	for _, r := range c {
		if r < '0' || r > '9' {
			return ""
		}
	}
	padded := fmt.Sprintf("%010s", c)
	if len(padded) > 10 {
		padded = padded[len(padded)-10:]
	}
	return padded
}

// DocID builds the deterministic composite document key.
func DocID(cik, sectionType string, year int) string {
	return fmt.Sprintf("%s_%s_%d", cik, sectionType, year)
}

// ChunkID builds the deterministic chunk key for a document.
func ChunkID(docID string, index int) string {
	return fmt.Sprintf("%s_chunk_%d", docID, index)
}
