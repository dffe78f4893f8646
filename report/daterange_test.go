package report

import (
	"testing"
)

func TestNewDateRange(t *testing.T) {
	tests := []struct {
		start string
		end   string
		valid bool
	}{
		{"2025-05-22", "2025-05-27", true},
		{"2025-05-22", "2025-05-22", true},
		{" 2025-05-22", "2025-05-27 ", true},
		{"2025-05-27", "2025-05-22", false},
		{"2025-5-22", "2025-05-27", false},
		{"2025-05-22' OR '1'='1", "2025-05-27", false},
		{"", "2025-05-27", false},
		{"2025-05-22", "2025-02-30", false},
	}

	for _, test := range tests {
		_, err := NewDateRange(test.start, test.end)
		if test.valid && err != nil {
			t.Errorf("NewDateRange(%q,%q): unexpected error (%v)", test.start, test.end, err)
		} else if !test.valid && err == nil {
			t.Errorf("NewDateRange(%q,%q): expected error", test.start, test.end)
		}
	}
}

func TestDefaultDateRange(t *testing.T) {
	dates := DefaultDateRange()

	if dates.Start() != "2025-05-22" || dates.End() != "2025-05-27" {
		t.Errorf("Incorrect default date range - expected %v, got %v", "2025-05-22..2025-05-27", dates)
	}

	if s := dates.String(); s != "2025-05-22..2025-05-27" {
		t.Errorf("Incorrect date range string - expected %v, got %v", "2025-05-22..2025-05-27", s)
	}
}
