package state

// entryStates start a wizard. Starting one always replaces whatever was in progress.
var entryStates = map[State]struct{}{
	StateProfileName:        {},
	StateProfileWallet:      {},
	StateApplicationMessage: {},
	StateAssignAdminUser:    {},
	StateRevokeAdminUser:    {},
	StateRankUser:           {},
	StatePayoutUser:         {},
	StateBanUser:            {},
	StateUnbanUser:          {},
	StatePostUsersText:      {},
	StatePostChannelText:    {},
}

// validTransitions contains the follow-up steps of multi-step wizards.
var validTransitions = map[State][]State{
	StateRankUser:   {StateRankValue},
	StatePayoutUser: {StatePayoutAmount},
	StateBanUser:    {StateBanDuration},
}

// IsTransitionAllowed reports whether moving from one state to another is valid.
func IsTransitionAllowed(from, to State) bool {
	if to == StateError || to == StateIdle {
		return true
	}

	if _, ok := entryStates[to]; ok {
		return true
	}

	for _, state := range validTransitions[from] {
		if state == to {
			return true
		}
	}

	return false
}

// IsEntry reports whether s starts a wizard.
func IsEntry(s State) bool {
	_, ok := entryStates[s]
	return ok
}
