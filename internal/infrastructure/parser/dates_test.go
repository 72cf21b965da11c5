package parser

import (
	"testing"
	"time"
)

func TestParseListingDate(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("UTC+8", 8*3600)
	now := time.Date(2025, time.January, 10, 9, 0, 0, 0, loc)

	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"2025-01-09 18:30", "2025-01-09", true},
		{"2025/1/8", "2025-01-08", true},
		{"2025年1月7日", "2025-01-07", true},
		{"01-05", "2025-01-05", true},
		{"3小时前", "2025-01-10", true},
		{"10 hours ago", "2025-01-09", true},
		{"2天前", "2025-01-08", true},
		{"45分钟前", "2025-01-10", true},
		{"昨天 12:00", "2025-01-09", true},
		{"前天", "2025-01-08", true},
		{"刚刚", "2025-01-10", true},
		{"2025-02-30", "", false},
		{"", "", false},
		{"soon", "", false},
	}

	for _, tc := range cases {
		got, ok := parseListingDate(tc.in, now)
		if ok != tc.ok {
			t.Fatalf("%q: expected ok=%v, got %v", tc.in, tc.ok, ok)
		}
		if !ok {
			continue
		}
		if got.Format("2006-01-02") != tc.want {
			t.Fatalf("%q: expected %s, got %s", tc.in, tc.want, got.Format("2006-01-02"))
		}
		if got.Location() != loc {
			t.Fatalf("%q: expected location %v, got %v", tc.in, loc, got.Location())
		}
	}
}
