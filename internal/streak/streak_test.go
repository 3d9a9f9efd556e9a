package streak

import (
	"errors"
	"testing"
	"time"
)

var noon = time.Date(2025, time.November, 10, 12, 0, 0, 0, time.UTC)

func TestAccountForLoginFirstEver(t *testing.T) {
	got, err := AccountForLogin(nil, 0, noon, time.UTC)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := Result{NewStreak: 1, IsNewDay: true, StreakBroken: false}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestAccountForLoginZeroStreakResets(t *testing.T) {
	yesterday := noon.Add(-24 * time.Hour)
	got, err := AccountForLogin(&yesterday, 0, noon, time.UTC)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.NewStreak != 1 || !got.IsNewDay {
		t.Fatalf("got %+v, want streak 1 on a new day", got)
	}
}

func TestAccountForLoginConsecutiveDay(t *testing.T) {
	yesterday := noon.Add(-24 * time.Hour)
	got, err := AccountForLogin(&yesterday, 5, noon, time.UTC)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := Result{NewStreak: 6, IsNewDay: true, StreakBroken: false}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestAccountForLoginGapBreaksStreak(t *testing.T) {
	tenDaysAgo := noon.Add(-10 * 24 * time.Hour)
	got, err := AccountForLogin(&tenDaysAgo, 6, noon, time.UTC)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := Result{NewStreak: 1, IsNewDay: true, StreakBroken: true}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestAccountForLoginSameDay(t *testing.T) {
	earlier := noon.Add(-3 * time.Hour)
	got, err := AccountForLogin(&earlier, 3, noon, time.UTC)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := Result{NewStreak: 3, IsNewDay: false, StreakBroken: false}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestAccountForLoginLateNightToEarlyMorning(t *testing.T) {
	// 23:50 yesterday to 00:10 today is a consecutive calendar day even
	// though less than an hour elapsed.
	lastLogin := time.Date(2025, time.November, 9, 23, 50, 0, 0, time.UTC)
	loginAt := time.Date(2025, time.November, 10, 0, 10, 0, 0, time.UTC)

	got, err := AccountForLogin(&lastLogin, 2, loginAt, time.UTC)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.NewStreak != 3 || !got.IsNewDay {
		t.Fatalf("got %+v, want streak 3 on a new day", got)
	}
}

func TestAccountForLoginAcrossSpringForward(t *testing.T) {
	// US DST starts 2026-03-08; that local day is only 23 hours long.
	// Noon to noon across the transition is still exactly one calendar day.
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}

	lastLogin := time.Date(2026, time.March, 8, 12, 0, 0, 0, loc)
	loginAt := time.Date(2026, time.March, 9, 12, 0, 0, 0, loc)

	got, err := AccountForLogin(&lastLogin, 5, loginAt, loc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := Result{NewStreak: 6, IsNewDay: true, StreakBroken: false}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}

	if !ShouldGrantDailyReward(&lastLogin, loginAt, loc) {
		t.Fatal("next-day login across the transition should grant the reward")
	}
}

func TestAccountForLoginAcrossFallBack(t *testing.T) {
	// US DST ends 2026-11-01; that local day is 25 hours long. The extra
	// hour must not turn a one-day gap into two.
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}

	lastLogin := time.Date(2026, time.November, 1, 12, 0, 0, 0, loc)
	loginAt := time.Date(2026, time.November, 2, 12, 0, 0, 0, loc)

	got, err := AccountForLogin(&lastLogin, 3, loginAt, loc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := Result{NewStreak: 4, IsNewDay: true, StreakBroken: false}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestAccountForLoginFutureTimestamp(t *testing.T) {
	tomorrow := noon.Add(24 * time.Hour)
	_, err := AccountForLogin(&tomorrow, 4, noon, time.UTC)
	if !errors.Is(err, ErrClockSkew) {
		t.Fatalf("expected ErrClockSkew, got %v", err)
	}
}

func TestShouldGrantDailyReward(t *testing.T) {
	if !ShouldGrantDailyReward(nil, noon, time.UTC) {
		t.Fatal("first login ever should grant the daily reward")
	}

	sameDay := noon.Add(-2 * time.Hour)
	if ShouldGrantDailyReward(&sameDay, noon, time.UTC) {
		t.Fatal("second login on the same day should not grant the reward")
	}

	yesterday := noon.Add(-24 * time.Hour)
	if !ShouldGrantDailyReward(&yesterday, noon, time.UTC) {
		t.Fatal("login on a new day should grant the reward")
	}
}

func TestBonusBoundaries(t *testing.T) {
	cases := []struct {
		streak int
		want   int
	}{
		{0, 0},
		{2, 0},
		{3, 5},
		{6, 5},
		{7, 15},
		{13, 15},
		{14, 25},
		{29, 25},
		{30, 50},
		{365, 50},
	}

	for _, tc := range cases {
		if got := Bonus(tc.streak); got != tc.want {
			t.Errorf("Bonus(%d) = %d, want %d", tc.streak, got, tc.want)
		}
	}
}
