package postgres

// convert.go turns decoded row values into pgtype values for COPY.
//
// Decoded rows hold sheet text with a few typed defaults (0, 0.0, false), so
// every converter accepts any and copes with the usual spreadsheet noise:
//   - thousands separators as spaces or no-break spaces ("1 234")
//   - decimal commas ("12,5")
//   - ruble, dollar and euro signs
//   - dd.mm.yyyy dates
//
// All converters return Valid=false for empty or unparseable input so the
// value lands as NULL instead of failing the COPY.

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/sheetbridge/internal/dataset"
)

// numericRegex validates that a string is a valid numeric format after cleanup.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"02.01.2006 15:04:05",
	"02.01.2006 15:04",
	"02.01.2006",
	"2.1.2006",
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
}

// ColumnValue converts v for a column of the given type.
func ColumnValue(dt dataset.DataType, v any) any {
	switch dt {
	case dataset.Int64:
		return ToPgInt8(v)
	case dataset.Double:
		return ToPgFloat8(v)
	case dataset.Decimal:
		return ToPgNumeric(v)
	case dataset.Boolean:
		return ToPgBool(v)
	case dataset.DateTime:
		return ToPgTimestamptz(v)
	default:
		return ToPgText(v)
	}
}

// ColumnType returns the PostgreSQL type for a dataset type.
func ColumnType(dt dataset.DataType) string {
	switch dt {
	case dataset.Int64:
		return "bigint"
	case dataset.Double:
		return "double precision"
	case dataset.Decimal:
		return "numeric"
	case dataset.Boolean:
		return "boolean"
	case dataset.DateTime:
		return "timestamptz"
	default:
		return "text"
	}
}

// ToPgText converts a value to pgtype.Text.
// Returns invalid if the value is empty or only whitespace.
func ToPgText(v any) pgtype.Text {
	s := strings.TrimSpace(CleanCell(text(v)))
	if s == "" {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: s, Valid: true}
}

// ToPgInt8 converts a value to pgtype.Int8. Fractional values are invalid.
func ToPgInt8(v any) pgtype.Int8 {
	switch t := v.(type) {
	case int:
		return pgtype.Int8{Int64: int64(t), Valid: true}
	case int64:
		return pgtype.Int8{Int64: t, Valid: true}
	case bool:
		return pgtype.Int8{Valid: false}
	}

	s := cleanNumber(text(v))
	if s == "" {
		return pgtype.Int8{Valid: false}
	}
	i, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return pgtype.Int8{Valid: false}
	}
	return pgtype.Int8{Int64: i, Valid: true}
}

// ToPgFloat8 converts a value to pgtype.Float8.
func ToPgFloat8(v any) pgtype.Float8 {
	switch t := v.(type) {
	case float64:
		return pgtype.Float8{Float64: t, Valid: true}
	case int:
		return pgtype.Float8{Float64: float64(t), Valid: true}
	case bool:
		return pgtype.Float8{Valid: false}
	}

	s := cleanNumber(text(v))
	if !numericRegex.MatchString(s) {
		return pgtype.Float8{Valid: false}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return pgtype.Float8{Valid: false}
	}
	return pgtype.Float8{Float64: f, Valid: true}
}

// ToPgNumeric converts a value to pgtype.Numeric.
func ToPgNumeric(v any) pgtype.Numeric {
	s := cleanNumber(text(v))
	if !numericRegex.MatchString(s) {
		return pgtype.Numeric{Valid: false}
	}

	var n pgtype.Numeric
	if err := n.Scan(s); err != nil {
		return pgtype.Numeric{Valid: false}
	}
	return n
}

// ToPgBool converts a value to pgtype.Bool.
// Accepts true/false, yes/no, t/f, y/n, 1/0 and да/нет.
func ToPgBool(v any) pgtype.Bool {
	if b, ok := v.(bool); ok {
		return pgtype.Bool{Bool: b, Valid: true}
	}

	s := strings.TrimSpace(strings.ToLower(text(v)))
	switch s {
	case "true", "t", "yes", "y", "1", "да", "истина":
		return pgtype.Bool{Bool: true, Valid: true}
	case "false", "f", "no", "n", "0", "нет", "ложь":
		return pgtype.Bool{Bool: false, Valid: true}
	default:
		return pgtype.Bool{Valid: false}
	}
}

// ToPgTimestamptz converts a value to pgtype.Timestamptz. Values without a
// zone are read as UTC.
func ToPgTimestamptz(v any) pgtype.Timestamptz {
	s := strings.TrimSpace(text(v))
	if s == "" {
		return pgtype.Timestamptz{Valid: false}
	}

	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return pgtype.Timestamptz{Time: t, Valid: true}
		}
	}
	return pgtype.Timestamptz{Valid: false}
}

// CleanCell removes common export artifacts from a cell value:
// - Trims whitespace
// - Removes the formula prefix (="...")
// - Removes surrounding quotes
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	return strings.Trim(s, `"'`)
}

// cleanNumber strips currency signs and grouping spaces and normalizes a
// decimal comma. "(12,5)" accounting negatives become "-12.5".
func cleanNumber(s string) string {
	s = strings.TrimSpace(CleanCell(s))
	if s == "" {
		return ""
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}

	s = strings.Map(func(r rune) rune {
		switch {
		case unicode.IsSpace(r):
			return -1
		case r == '₽' || r == '$' || r == '€' || r == '£':
			return -1
		}
		return r
	}, s)

	switch {
	case strings.Count(s, ",") == 1 && !strings.Contains(s, "."):
		s = strings.Replace(s, ",", ".", 1)
	default:
		s = strings.ReplaceAll(s, ",", "")
	}

	if negative {
		s = "-" + s
	}
	return s
}

func text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}
