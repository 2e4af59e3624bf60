package memctx

import (
	"testing"
	"time"
)

func TestSeparatorFormat(t *testing.T) {
	at := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	got := Separator(at)
	want := "\n\n--- CONTEXT ENTRY (2025-03-14 09:26:53 UTC) ---\n\n"
	if got != want {
		t.Fatalf("Separator() = %q, want %q", got, want)
	}
}

func TestParseEntries(t *testing.T) {
	sep1 := "\n\n--- CONTEXT ENTRY (2025-01-01 10:00:00 UTC) ---\n\n"
	sep2 := "\n\n--- CONTEXT ENTRY (2025-01-02 11:30:00 UTC) ---\n\n"

	cases := []struct {
		name  string
		input string
		want  []Entry
	}{
		{
			name:  "empty",
			input: "",
			want:  nil,
		},
		{
			name:  "legacy only",
			input: "  plain old content  ",
			want:  []Entry{{Timestamp: "Legacy", Content: "plain old content"}},
		},
		{
			name:  "legacy plus entries",
			input: "base" + sep1 + "first" + sep2 + "second",
			want: []Entry{
				{Timestamp: "Legacy", Content: "base"},
				{Timestamp: "2025-01-01 10:00:00 UTC", Content: "first"},
				{Timestamp: "2025-01-02 11:30:00 UTC", Content: "second"},
			},
		},
		{
			name:  "no legacy prefix",
			input: sep1 + "only entry",
			want:  []Entry{{Timestamp: "2025-01-01 10:00:00 UTC", Content: "only entry"}},
		},
		{
			name:  "blank entry dropped",
			input: "base" + sep1 + "   ",
			want:  []Entry{{Timestamp: "Legacy", Content: "base"}},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ParseEntries(tc.input)
			if len(got) != len(tc.want) {
				t.Fatalf("got %d entries, want %d: %+v", len(got), len(tc.want), got)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Errorf("entry %d = %+v, want %+v", i, got[i], tc.want[i])
				}
			}
		})
	}
}
