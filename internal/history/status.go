package history

import "strings"

// State is the derived lifecycle state of the supervised process. It is
// never stored; it is always reprojected from the history so there is no
// second copy to fall out of sync.
type State int

const (
	StateNotStarted State = iota
	StateSpawnReady
	StateSpawnAwaitingLast
	StateSpawned
	StateKillPending
	StateKilled
	StateClosing
	StateClosed
)

var stateLabels = map[State]string{
	StateNotStarted:        "NOT_STARTED",
	StateSpawnReady:        "SPAWN_READY",
	StateSpawnAwaitingLast: "SPAWN_AWAITING_LAST",
	StateSpawned:           "SPAWNED",
	StateKillPending:       "KILL_PENDING",
	StateKilled:            "KILLED",
	StateClosing:           "CLOSING",
	StateClosed:            "CLOSED",
}

// Status is the projected status: a state tag plus, for the two waiting
// states, the names of the timestamp fields still pending. Callers should
// match on State; String is presentation only.
type Status struct {
	State   State
	Pending []string
}

// String renders the human-readable status label
func (s Status) String() string {
	label, ok := stateLabels[s.State]
	if !ok {
		label = "UNKNOWN"
	}
	if len(s.Pending) == 0 {
		return label
	}
	return label + ": " + strings.Join(s.Pending, ", ")
}

// Project derives the status purely from the last one or two records.
// No side effects.
func Project(records []Record) Status {
	if len(records) == 0 {
		return Status{State: StateNotStarted}
	}

	last := records[len(records)-1]

	if last.Start.IsZero() {
		// The newest slot has not started yet, which can only happen while
		// an older instance is still finishing.
		if len(records) >= 2 {
			if pending := pendingFields(records[len(records)-2]); len(pending) > 0 {
				return Status{State: StateSpawnAwaitingLast, Pending: pending}
			}
		}
		return Status{State: StateSpawnReady}
	}

	if !last.Kill.IsZero() {
		if pending := pendingFields(last); len(pending) > 0 {
			return Status{State: StateKillPending, Pending: pending}
		}
		return Status{State: StateKilled}
	}

	if !last.Exit.IsZero() {
		if last.Close.IsZero() {
			return Status{State: StateClosing}
		}
		return Status{State: StateClosed}
	}

	return Status{State: StateSpawned}
}

// pendingFields lists the asynchronous termination milestones a record is
// still waiting for.
func pendingFields(r Record) []string {
	var pending []string
	if r.Exit.IsZero() {
		pending = append(pending, "exit")
	}
	if r.Close.IsZero() {
		pending = append(pending, "close")
	}
	return pending
}
