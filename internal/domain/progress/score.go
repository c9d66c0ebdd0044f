package progress

// ComputeScore is round-half-up(100*done/total) in integer arithmetic; 0 when total is 0.
// Only done == total yields 100, so large weeks cannot round into completion.
func ComputeScore(done, total int) int {
	if total <= 0 || done <= 0 {
		return 0
	}
	if done >= total {
		return 100
	}
	return min((200*done+total)/(2*total), 99)
}

func ClampScore(score int) int {
	switch {
	case score < 0:
		return 0
	case score > 100:
		return 100
	default:
		return score
	}
}

// DeriveStatus is the only place status is computed from score and access.
// Completed is terminal.
func DeriveStatus(prev Status, score int, unlocked bool) Status {
	switch {
	case prev == StatusCompleted || score >= 100:
		return StatusCompleted
	case score > 0:
		return StatusInProgress
	case unlocked:
		return StatusUnlocked
	default:
		return StatusNotStarted
	}
}
