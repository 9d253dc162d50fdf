package types

import (
	"fmt"
	"strconv"
)

// CellText renders a cell value the way a spreadsheet displays it. Whole
// floats print without a fraction so an id stored as 3 and read back as 3.0
// still compares equal to "3".
func CellText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case List:
		return string(x)
	case Existence:
		return strconv.Itoa(int(x))
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	}
	return fmt.Sprint(v)
}

// IsBlank reports whether a cell value is empty.
func IsBlank(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == ""
	}
	return false
}

// CellInt parses a cell as an integer. Floats with a fractional part and
// non-numeric text report false.
func CellInt(v any) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case int64:
		return int(x), true
	case float64:
		if x == float64(int(x)) {
			return int(x), true
		}
		return 0, false
	}
	n, err := strconv.Atoi(CellText(v))
	if err != nil {
		return 0, false
	}
	return n, true
}
