package engine

import (
	"github.com/stack-sync/stack-sync/pkg/reporter"
	"github.com/stack-sync/stack-sync/pkg/state"
)

// State classifies a stack before reconciliation.
type State int

const (
	// Disabled stacks are only ever stopped.
	Disabled State = iota
	Missing
	InSync
	OutOfSync
	StoppedButInSync
)

func (s State) String() string {
	switch s {
	case Disabled:
		return "disabled"
	case Missing:
		return "missing"
	case InSync:
		return "in sync"
	case OutOfSync:
		return "out of sync"
	case StoppedButInSync:
		return "stopped but in sync"
	}
	return "unknown"
}

// Action is the single backend mutation a reconciliation performs.
type Action int

const (
	ActionNone Action = iota
	ActionCreate
	ActionUpdate
	ActionStart
	ActionStop
)

func (a Action) String() string {
	switch a {
	case ActionNone:
		return "none"
	case ActionCreate:
		return "create"
	case ActionUpdate:
		return "update"
	case ActionStart:
		return "start"
	case ActionStop:
		return "stop"
	}
	return "unknown"
}

// Decision is the outcome of Decide.
type Decision struct {
	State  State
	Action Action
	// Idle is reported when Action is ActionNone.
	Idle reporter.Event
}

// Decide picks the action for one stack. observed is nil when the stack does
// not exist remotely; match reports whether local compose content and env
// equal the remote ones and is ignored for disabled or missing stacks.
func Decide(enabled bool, observed *state.Remote, match bool) Decision {
	if !enabled {
		switch {
		case observed == nil:
			return Decision{State: Disabled, Action: ActionNone, Idle: reporter.Disabled}
		case observed.Running:
			return Decision{State: Disabled, Action: ActionStop}
		default:
			return Decision{State: Disabled, Action: ActionNone, Idle: reporter.AlreadyStopped}
		}
	}
	switch {
	case observed == nil:
		return Decision{State: Missing, Action: ActionCreate}
	case !match:
		return Decision{State: OutOfSync, Action: ActionUpdate}
	case !observed.Running:
		return Decision{State: StoppedButInSync, Action: ActionStart}
	}
	return Decision{State: InSync, Action: ActionNone, Idle: reporter.UpToDate}
}

// events returns the dry-run, in-progress and done events of an action.
func (a Action) events() (would, doing, done reporter.Event) {
	switch a {
	case ActionCreate:
		return reporter.WouldCreate, reporter.Creating, reporter.Created
	case ActionUpdate:
		return reporter.WouldUpdate, reporter.Updating, reporter.Updated
	case ActionStart:
		return reporter.WouldStart, reporter.Starting, reporter.Started
	case ActionStop:
		return reporter.WouldStop, reporter.Stopping, reporter.Stopped
	}
	return reporter.UpToDate, reporter.UpToDate, reporter.UpToDate
}
