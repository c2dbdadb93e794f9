package postgres

import (
	"testing"
	"time"

	"github.com/JonMunkholm/sheetbridge/internal/dataset"
)

// ----------------------------------------------------------------------------
// ToPgInt8 Tests
// ----------------------------------------------------------------------------

func TestToPgInt8(t *testing.T) {
	tests := []struct {
		name      string
		input     any
		wantValid bool
		wantValue int64
	}{
		{"decoded default", 0, true, 0},
		{"integer text", "1234", true, 1234},
		{"grouped with spaces", "1 234", true, 1234},
		{"grouped with no-break space", "12\u00a0500", true, 12500},
		{"ruble sign", "500 ₽", true, 500},
		{"negative accounting", "(42)", true, -42},
		{"fraction", "1,5", false, 0},
		{"empty", "", false, 0},
		{"text", "n/a", false, 0},
		{"bool", true, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToPgInt8(tt.input)
			if got.Valid != tt.wantValid {
				t.Fatalf("ToPgInt8(%v).Valid = %v, want %v", tt.input, got.Valid, tt.wantValid)
			}
			if got.Valid && got.Int64 != tt.wantValue {
				t.Errorf("ToPgInt8(%v) = %d, want %d", tt.input, got.Int64, tt.wantValue)
			}
		})
	}
}

// ----------------------------------------------------------------------------
// ToPgFloat8 Tests
// ----------------------------------------------------------------------------

func TestToPgFloat8(t *testing.T) {
	tests := []struct {
		name      string
		input     any
		wantValid bool
		wantValue float64
	}{
		{"decoded default", 0.0, true, 0},
		{"decimal comma", "12,5", true, 12.5},
		{"grouped decimal comma", "1 234,56", true, 1234.56},
		{"us grouping", "1,234.5", true, 1234.5},
		{"many commas", "1,234,567", true, 1234567},
		{"currency", "99 ₽", true, 99},
		{"int default", 0, true, 0},
		{"empty", "", false, 0},
		{"garbage", "12abc", false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToPgFloat8(tt.input)
			if got.Valid != tt.wantValid {
				t.Fatalf("ToPgFloat8(%v).Valid = %v, want %v", tt.input, got.Valid, tt.wantValid)
			}
			if got.Valid && got.Float64 != tt.wantValue {
				t.Errorf("ToPgFloat8(%v) = %v, want %v", tt.input, got.Float64, tt.wantValue)
			}
		})
	}
}

// ----------------------------------------------------------------------------
// ToPgNumeric Tests
// ----------------------------------------------------------------------------

func TestToPgNumeric(t *testing.T) {
	tests := []struct {
		input     any
		wantValid bool
	}{
		{"123.45", true},
		{"1 000,5", true},
		{".99", true},
		{"-7", true},
		{"", false},
		{"abc", false},
	}

	for _, tt := range tests {
		got := ToPgNumeric(tt.input)
		if got.Valid != tt.wantValid {
			t.Errorf("ToPgNumeric(%v).Valid = %v, want %v", tt.input, got.Valid, tt.wantValid)
		}
	}
}

// ----------------------------------------------------------------------------
// ToPgBool Tests
// ----------------------------------------------------------------------------

func TestToPgBool(t *testing.T) {
	tests := []struct {
		input     any
		wantValid bool
		wantValue bool
	}{
		{false, true, false},
		{true, true, true},
		{"TRUE", true, true},
		{"да", true, true},
		{"Нет", true, false},
		{"0", true, false},
		{"", false, false},
		{"maybe", false, false},
	}

	for _, tt := range tests {
		got := ToPgBool(tt.input)
		if got.Valid != tt.wantValid || got.Bool != tt.wantValue {
			t.Errorf("ToPgBool(%v) = (%v, %v), want (%v, %v)",
				tt.input, got.Bool, got.Valid, tt.wantValue, tt.wantValid)
		}
	}
}

// ----------------------------------------------------------------------------
// ToPgTimestamptz Tests
// ----------------------------------------------------------------------------

func TestToPgTimestamptz(t *testing.T) {
	tests := []struct {
		input     string
		wantValid bool
		want      time.Time
	}{
		{"15.03.2026", true, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)},
		{"5.3.2026", true, time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)},
		{"15.03.2026 08:30", true, time.Date(2026, 3, 15, 8, 30, 0, 0, time.UTC)},
		{"2026-03-15", true, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)},
		{"", false, time.Time{}},
		{"вчера", false, time.Time{}},
	}

	for _, tt := range tests {
		got := ToPgTimestamptz(tt.input)
		if got.Valid != tt.wantValid {
			t.Errorf("ToPgTimestamptz(%q).Valid = %v, want %v", tt.input, got.Valid, tt.wantValid)
			continue
		}
		if got.Valid && !got.Time.Equal(tt.want) {
			t.Errorf("ToPgTimestamptz(%q) = %v, want %v", tt.input, got.Time, tt.want)
		}
	}
}

// ----------------------------------------------------------------------------
// ToPgText / CleanCell Tests
// ----------------------------------------------------------------------------

func TestToPgText(t *testing.T) {
	if got := ToPgText("  "); got.Valid {
		t.Errorf("ToPgText(blank).Valid = true, want false")
	}
	if got := ToPgText(`="00123"`); got.String != "00123" {
		t.Errorf("ToPgText(formula) = %q, want 00123", got.String)
	}
	if got := ToPgText(3.5); got.String != "3.5" {
		t.Errorf("ToPgText(3.5) = %q, want 3.5", got.String)
	}
}

func TestColumnValue(t *testing.T) {
	tests := []struct {
		dt   dataset.DataType
		want string
	}{
		{dataset.Int64, "pgtype.Int8"},
		{dataset.Double, "pgtype.Float8"},
		{dataset.Decimal, "pgtype.Numeric"},
		{dataset.Boolean, "pgtype.Bool"},
		{dataset.DateTime, "pgtype.Timestamptz"},
		{dataset.String, "pgtype.Text"},
		{dataset.Variant, "pgtype.Text"},
	}
	for _, tt := range tests {
		got := typeName(ColumnValue(tt.dt, "1"))
		if got != tt.want {
			t.Errorf("ColumnValue(%s) type = %s, want %s", tt.dt, got, tt.want)
		}
	}
}
