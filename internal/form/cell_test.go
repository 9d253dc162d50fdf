package form

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/sheetform/pkg/types"
)

func TestParseCell(t *testing.T) {
	tests := []struct {
		in   string
		want types.Cell
	}{
		{"氏名/re:^.{1,40}$/姓と名の間は空白1つ", types.Cell{Title: "氏名", Type: "re:^.{1,40}$", Hint: "姓と名の間は空白1つ"}},
		{"X/display:age", types.Cell{Title: "X", Type: "display:age"}},
		{"T2", types.Cell{Title: "T2"}},
		{"", types.Cell{}},
		{"   ", types.Cell{}},
		{`A\/B/selector:RADIO`, types.Cell{Title: "A/B", Type: types.SelectorRadio}},
		{`date/re:^\d{4}\/\d{2}$`, types.Cell{Title: "date", Type: `re:^\d{4}/\d{2}$`}},
		{"t/re:x/see a/b", types.Cell{Title: "t", Type: "re:x", Hint: "see a/b"}},
		{"t//hint only", types.Cell{Title: "t", Hint: "hint only"}},
		{"/re:x", types.Cell{Type: "re:x"}},
		{"opt/radio", types.Cell{Title: "opt", Type: types.SelectorRadio}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseCell(tt.in))
		})
	}
}

func TestNormalizeType(t *testing.T) {
	tests := map[string]string{
		"RADIO":             types.SelectorRadio,
		"Checkbox":          types.SelectorCheckbox,
		"select":            types.SelectorDropdown,
		"DROPDOWN":          types.SelectorDropdown,
		"SELECTOR:DROPDOWN": types.SelectorDropdown,
		"selector:RADIO":    types.SelectorRadio,
		" re:^a$ ":          "re:^a$",
		"display:note":      "display:note",
		"text":              "text",
		"":                  "",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeType(in), "NormalizeType(%q)", in)
	}
}

func TestParseGridPadsRows(t *testing.T) {
	cells := ParseGrid([][]string{{"A", "B"}, {}})
	require.Len(t, cells, 2)
	assert.Len(t, cells[0], Levels)
	assert.Equal(t, "B", cells[0][1].Title)
	assert.True(t, cells[1][0].Empty())
}

func TestSniffDelimiter(t *testing.T) {
	assert.Equal(t, ',', SniffDelimiter("L1,L2,L3"))
	assert.Equal(t, '\t', SniffDelimiter("L1\tL2\tL3\nA,B,C,D,E"))
	assert.Equal(t, ';', SniffDelimiter("L1;L2;L3"))
	assert.Equal(t, DefaultDelimiter, SniffDelimiter("L1"))
	assert.Equal(t, DefaultDelimiter, SniffDelimiter(""))
}

func TestReadDeclarationCSV(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		delim   rune
		want    [][]string
		wantErr error
	}{
		{
			name:  "header then rows",
			in:    "L1,L2,L3,L4,L5,L6,L7,L8,L9\nA,B\n,C/re:.+\n",
			delim: ',',
			want: [][]string{
				{"A", "B", "", "", "", "", "", "", ""},
				{"", "C/re:.+", "", "", "", "", "", "", ""},
			},
		},
		{
			name:  "quoted cells and blank lines",
			in:    "\nL1,L2,L3,L4,L5,L6,L7,L8,L9\n\n\"A, with comma\",\"say \"\"hi\"\"\"\n",
			delim: ',',
			want:  [][]string{{"A, with comma", `say "hi"`, "", "", "", "", "", "", ""}},
		},
		{
			name:  "tab separated",
			in:    "L1\tL2\tL3\tL4\tL5\tL6\tL7\tL8\tL9\nA\tB\n",
			delim: '\t',
			want:  [][]string{{"A", "B", "", "", "", "", "", "", ""}},
		},
		{
			name:    "missing header",
			in:      "A,B\nC,D\n",
			delim:   ',',
			wantErr: types.ErrMalformedHeader,
		},
		{
			name:    "header without L9",
			in:      "L1,L2,L3\nA\n",
			delim:   ',',
			wantErr: types.ErrMalformedHeader,
		},
		{
			name:    "header only",
			in:      "L1,L2,L3,L4,L5,L6,L7,L8,L9\n",
			delim:   ',',
			wantErr: types.ErrEmptyDeclaration,
		},
		{
			name:    "empty input",
			in:      "",
			delim:   ',',
			wantErr: types.ErrEmptyDeclaration,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadDeclarationCSV(strings.NewReader(tt.in), tt.delim)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMalformedHeaderIsFormatViolation(t *testing.T) {
	_, err := ParseDeclarationCSV(strings.NewReader("a,b\n"), ',')
	assert.ErrorIs(t, err, types.ErrFormatViolation)

	_, err = ParseDeclarationCSV(strings.NewReader("L1,L9\n"), ',')
	assert.ErrorIs(t, err, types.ErrStructural)
}
