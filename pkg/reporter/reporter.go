// Package reporter renders reconciliation progress for humans.
package reporter

import (
	"time"

	"github.com/stack-sync/stack-sync/pkg/state"
)

// Event is a step in the life of one stack during a command.
type Event int

const (
	WouldCreate Event = iota
	WouldUpdate
	WouldStart
	WouldStop
	WouldRedeploy
	Creating
	Created
	Updating
	Updated
	Starting
	Started
	Stopping
	Stopped
	Redeploying
	Redeployed
	UpToDate
	AlreadyStopped
	Disabled
	NotFound
)

// kind groups events that share a style.
type kind int

const (
	kindWould kind = iota
	kindWaiting
	kindDone
	kindUpToDate
	kindMuted
)

var events = map[Event]struct {
	label string
	kind  kind
}{
	WouldCreate:    {"Would Create", kindWould},
	WouldUpdate:    {"Would Update", kindWould},
	WouldStart:     {"Would Start", kindWould},
	WouldStop:      {"Would Stop", kindWould},
	WouldRedeploy:  {"Would Redep.", kindWould},
	Creating:       {"Creating", kindWaiting},
	Created:        {"Created", kindDone},
	Updating:       {"Updating", kindWaiting},
	Updated:        {"Updated", kindDone},
	Starting:       {"Starting", kindWaiting},
	Started:        {"Started", kindDone},
	Stopping:       {"Stopping", kindWaiting},
	Stopped:        {"Stopped", kindDone},
	Redeploying:    {"Redeploying", kindWaiting},
	Redeployed:     {"Redeployed", kindDone},
	UpToDate:       {"Up-to-Date", kindUpToDate},
	AlreadyStopped: {"Stopped", kindUpToDate},
	Disabled:       {"Disabled", kindMuted},
	NotFound:       {"Not Found", kindWould},
}

// Label is the text shown for e.
func (e Event) Label() string {
	return events[e].label
}

func (e Event) String() string {
	return e.Label()
}

// Details describes the local side of a stack, shown with --verbose.
type Details struct {
	Host         string
	ComposePath  string
	ComposeBytes int
	EnvPath      string // empty when the stack has no env file
	EnvVars      int
	EndpointID   uint64 // 0 when the backend has no endpoints
}

// Reporter receives progress from the engine. Implementations must tolerate
// being called for several stacks in sequence.
type Reporter interface {
	// Event reports a step for stack name. ref identifies the remote stack
	// ("id: 42" or a host) and may be empty.
	Event(e Event, name, ref string)
	Details(d Details)
	Diff(name, unified string)
	Services(name string, changes []state.ServiceChange)
	// EnvChanges lists env var names only; values may be secrets.
	EnvChanges(name string, added, changed, removed []string)
	View(remote *state.Remote, verbose bool, now time.Time)
	// Info prints a plain message such as a written file path.
	Info(format string, args ...any)
}
