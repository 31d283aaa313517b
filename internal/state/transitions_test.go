package state

import "testing"

func TestIsTransitionAllowed(t *testing.T) {
	testCases := []struct {
		name     string
		from     State
		to       State
		expected bool
	}{
		{name: "idle to profile name", from: StateIdle, to: StateProfileName, expected: true},
		{name: "payout user to payout amount", from: StatePayoutUser, to: StatePayoutAmount, expected: true},
		{name: "rank user to rank value", from: StateRankUser, to: StateRankValue, expected: true},
		{name: "ban user to ban duration", from: StateBanUser, to: StateBanDuration, expected: true},
		{name: "entry state interrupts another wizard", from: StatePayoutAmount, to: StatePostUsersText, expected: true},
		{name: "idle straight to payout amount invalid", from: StateIdle, to: StatePayoutAmount, expected: false},
		{name: "rank user to ban duration invalid", from: StateRankUser, to: StateBanDuration, expected: false},
		{name: "unknown state to rank value invalid", from: State("unknown"), to: StateRankValue, expected: false},
		{name: "any state to idle", from: State("whatever"), to: StateIdle, expected: true},
		{name: "any state to error", from: StateBanDuration, to: StateError, expected: true},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if actual := IsTransitionAllowed(tc.from, tc.to); actual != tc.expected {
				t.Errorf("IsTransitionAllowed(%s -> %s) = %t, expected %t", tc.from, tc.to, actual, tc.expected)
			}
		})
	}
}

func TestUserState_ContextReaders(t *testing.T) {
	st := &UserState{Context: map[string]interface{}{
		"float":  float64(42),
		"string": "17",
		"bad":    "x",
		"text":   "add",
	}}

	if v, ok := st.Int64("float"); !ok || v != 42 {
		t.Fatalf("Int64(float) = %d, %t", v, ok)
	}
	if v, ok := st.Int64("string"); !ok || v != 17 {
		t.Fatalf("Int64(string) = %d, %t", v, ok)
	}
	if _, ok := st.Int64("bad"); ok {
		t.Fatal("Int64(bad) should fail")
	}
	if _, ok := st.Int64("missing"); ok {
		t.Fatal("Int64(missing) should fail")
	}
	if v, ok := st.String("text"); !ok || v != "add" {
		t.Fatalf("String(text) = %q, %t", v, ok)
	}

	var empty *UserState
	if _, ok := empty.String("text"); ok {
		t.Fatal("nil state should not yield values")
	}
}
