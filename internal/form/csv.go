package form

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/mesh-intelligence/sheetform/pkg/types"
)

// DefaultDelimiter separates declaration CSV fields unless sniffed otherwise.
const DefaultDelimiter = ','

// sniffCandidates are the delimiters SniffDelimiter chooses among, in
// tie-break order.
var sniffCandidates = []rune{'\t', ';', ','}

// SniffDelimiter returns the candidate delimiter occurring most often in the
// first line of text, or DefaultDelimiter when none occurs.
func SniffDelimiter(text string) rune {
	first, _, _ := strings.Cut(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	best, bestCount := DefaultDelimiter, 0
	for _, d := range sniffCandidates {
		if n := strings.Count(first, string(d)); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}

// ReadDeclarationCSV reads a declaration CSV into a trimmed text grid. The
// first non-blank record must be a header naming L1 and L9; the rows after it
// are returned.
func ReadDeclarationCSV(r io.Reader, delimiter rune) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.Comma = delimiter
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	var grid [][]string
	seenHeader := false
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", types.ErrFormatViolation, err)
		}
		if blankRecord(rec) {
			continue
		}
		if !seenHeader {
			if !isLevelHeader(rec) {
				return nil, types.ErrMalformedHeader
			}
			seenHeader = true
			continue
		}
		row := make([]string, Levels)
		for i := 0; i < Levels && i < len(rec); i++ {
			row[i] = strings.TrimSpace(rec[i])
		}
		grid = append(grid, row)
	}
	if len(grid) == 0 {
		return nil, types.ErrEmptyDeclaration
	}
	return grid, nil
}

// ParseDeclarationCSV reads a declaration CSV and parses its cells.
func ParseDeclarationCSV(r io.Reader, delimiter rune) ([][]types.Cell, error) {
	grid, err := ReadDeclarationCSV(r, delimiter)
	if err != nil {
		return nil, err
	}
	return ParseGrid(grid), nil
}

func isLevelHeader(rec []string) bool {
	var hasFirst, hasLast bool
	for _, f := range rec {
		switch strings.ToUpper(strings.TrimSpace(f)) {
		case "L1":
			hasFirst = true
		case fmt.Sprintf("L%d", Levels):
			hasLast = true
		}
	}
	return hasFirst && hasLast
}

func blankRecord(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
