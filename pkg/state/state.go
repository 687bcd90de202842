// Package state holds the observed state of a stack on a remote target and
// compares it with the local declaration.
package state

import (
	"time"

	"github.com/stack-sync/stack-sync/pkg/envfile"
)

// Remote is the normalized state of a stack that exists on a target. It is
// fetched fresh for every reconciliation and never cached.
type Remote struct {
	Name           string
	Running        bool
	ComposeContent string
	Env            []envfile.Var

	// Target is the host label of the backend the stack was read from.
	Target string

	// Portainer only.
	ID         int64
	EndpointID uint64

	// Display metadata, empty when the backend does not report it.
	Type      string // "Swarm", "Compose" or "Kubernetes"
	CreatedBy string
	CreatedAt time.Time
	UpdatedBy string
	UpdatedAt time.Time
}

// Status renders Running as the label shown to users.
func (r *Remote) Status() string {
	if r.Running {
		return "active"
	}
	return "inactive"
}
