package ids

import (
	"testing"
	"time"
)

func TestNewULID_SortsByTime(t *testing.T) {
	t.Parallel()

	base := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	a, err := NewULID(base)
	if err != nil {
		t.Fatalf("NewULID: %v", err)
	}
	b, err := NewULID(base.Add(time.Millisecond))
	if err != nil {
		t.Fatalf("NewULID: %v", err)
	}
	if len(a) != 26 || len(b) != 26 {
		t.Fatalf("unexpected lengths: %d %d", len(a), len(b))
	}
	if !(a < b) {
		t.Fatalf("expected %s < %s", a, b)
	}
}

func TestValid(t *testing.T) {
	t.Parallel()

	id, err := NewULID(time.Time{})
	if err != nil {
		t.Fatalf("NewULID: %v", err)
	}

	cases := []struct {
		in   string
		want bool
	}{
		{in: id, want: true},
		{in: "01ARZ3NDEKTSV4RRFFQ69G5FAV", want: true},
		{in: "", want: false},
		{in: "42", want: false},
		{in: "01ARZ3NDEKTSV4RRFFQ69G5FA!", want: false},
	}
	for _, tc := range cases {
		if got := Valid(tc.in); got != tc.want {
			t.Fatalf("Valid(%q)=%v want=%v", tc.in, got, tc.want)
		}
	}
}
