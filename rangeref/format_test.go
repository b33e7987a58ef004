package rangeref

import "testing"

func TestFormat(t *testing.T) {
	tests := []struct {
		name string
		r    A1Range
		want string
	}{
		{"single cell", A1Range{StartRow: 0, StartCol: 0, EndRow: 0, EndCol: 0}, "A1"},
		{"bounded range", A1Range{StartRow: 0, StartCol: 0, EndRow: 9, EndCol: 2}, "A1:C10"},
		{"with sheet", A1Range{Sheet: "Sheet1", StartRow: 1, StartCol: 1, EndRow: 3, EndCol: 3}, "Sheet1!B2:D4"},
		{"sheet needing quotes", A1Range{Sheet: "My Sheet", StartRow: 0, StartCol: 0, EndRow: 0, EndCol: 0}, "'My Sheet'!A1"},
		{"sheet with quote", A1Range{Sheet: "O'Brien", StartRow: 0, StartCol: 0, EndRow: 0, EndCol: 0}, "'O''Brien'!A1"},
		{"whole column single", A1Range{StartRow: 0, StartCol: 0, EndRow: Unbounded, EndCol: 0}, "A"},
		{"whole column range", A1Range{StartRow: 0, StartCol: 0, EndRow: Unbounded, EndCol: 2}, "A:C"},
		{"whole row single", A1Range{StartRow: 4, StartCol: 0, EndRow: 4, EndCol: Unbounded}, "5"},
		{"whole row range", A1Range{StartRow: 0, StartCol: 0, EndRow: 4, EndCol: Unbounded}, "1:5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.r.Format(); got != tt.want {
				t.Errorf("Format() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseFormatRoundTrip(t *testing.T) {
	inputs := []string{
		"A1",
		"A1:C10",
		"Sheet1!B2:D4",
		"'My Sheet'!A1:B2",
		"A:A",
		"A:C",
		"5",
		"1:5",
		"AA100:AZ200",
	}
	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			r, err := ParseA1Range(in)
			if err != nil {
				t.Fatalf("ParseA1Range(%q) error = %v", in, err)
			}
			formatted := r.Format()
			r2, err := ParseA1Range(formatted)
			if err != nil {
				t.Fatalf("ParseA1Range(Format(%q)=%q) error = %v", in, formatted, err)
			}
			if r != r2 {
				t.Errorf("round trip mismatch for %q: %+v != %+v (via %q)", in, r, r2, formatted)
			}
		})
	}
}
