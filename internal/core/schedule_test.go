package core

import "testing"

func TestAddMonthsClampsShortMonths(t *testing.T) {
	cases := []struct {
		base Date
		n    int
		want string
	}{
		{NewDate(2025, 1, 31), 1, "2025-02-28"}, // clamp, not roll into March
		{NewDate(2024, 1, 31), 1, "2024-02-29"}, // leap year
		{NewDate(2025, 1, 31), 2, "2025-03-31"}, // clamping is per-step, not sticky
		{NewDate(2025, 3, 31), 1, "2025-04-30"},
		{NewDate(2025, 11, 15), 2, "2026-01-15"}, // year carry
		{NewDate(2025, 12, 31), 2, "2026-02-28"},
		{NewDate(2025, 6, 10), 0, "2025-06-10"},
	}
	for _, tc := range cases {
		if got := AddMonths(tc.base, tc.n).String(); got != tc.want {
			t.Fatalf("%s + %d months: expected %s, got %s", tc.base, tc.n, tc.want, got)
		}
	}
}

func TestMonthlySchedule(t *testing.T) {
	dates := MonthlySchedule(NewDate(2025, 1, 31), 4)
	want := []string{"2025-01-31", "2025-02-28", "2025-03-31", "2025-04-30"}
	if len(dates) != len(want) {
		t.Fatalf("expected %d dates, got %d", len(want), len(dates))
	}
	for i, w := range want {
		if dates[i].String() != w {
			t.Fatalf("occurrence %d: expected %s, got %s", i, w, dates[i])
		}
	}
}

func TestInstallmentDescription(t *testing.T) {
	if got := InstallmentDescription("TV", 2, 12); got != "TV (2/12)" {
		t.Fatalf("unexpected description %q", got)
	}
}
