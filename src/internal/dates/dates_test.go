package dates

import "testing"

func TestMonthName(t *testing.T) {
	cases := []struct {
		in   int
		want string
	}{
		{1, "January"},
		{6, "June"},
		{12, "December"},
		{0, ""},
		{13, ""},
		{-3, ""},
	}
	for _, c := range cases {
		if got := MonthName(c.in); got != c.want {
			t.Fatalf("MonthName(%d)=%q want %q", c.in, got, c.want)
		}
	}
}

func TestToInt(t *testing.T) {
	cases := []struct {
		in   any
		def  int
		want int
	}{
		{2020, 0, 2020},
		{int64(7), 0, 7},
		{float64(3), 0, 3},
		{3.5, 99, 99},
		{" 11 ", 0, 11},
		{"march", 12, 12},
		{nil, 12, 12},
		{true, 5, 5},
	}
	for _, c := range cases {
		if got := ToInt(c.in, c.def); got != c.want {
			t.Fatalf("ToInt(%v)=%d want %d", c.in, got, c.want)
		}
	}
}
