package state

import (
	"sort"

	"github.com/compose-spec/compose-go/v2/types"
)

// Service change kinds reported by MergeServices.
const (
	ServiceAdded     = "added"
	ServiceRemoved   = "removed"
	ServiceChanged   = "changed"
	ServiceUnchanged = "unchanged"
)

// ServiceChange is the per-service outcome of comparing two projects.
type ServiceChange struct {
	Name        string
	Change      string
	LocalImage  string
	RemoteImage string
}

// MergeServices pairs the services of the local and remote projects by name
// and classifies each one. Either project may be nil. The result is sorted by
// service name.
func MergeServices(local, remote *types.Project) []ServiceChange {
	localSvcs := services(local)
	remoteSvcs := services(remote)

	names := make([]string, 0, len(localSvcs)+len(remoteSvcs))
	for name := range localSvcs {
		names = append(names, name)
	}
	for name := range remoteSvcs {
		if _, ok := localSvcs[name]; !ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	result := make([]ServiceChange, 0, len(names))
	for _, name := range names {
		l, inLocal := localSvcs[name]
		r, inRemote := remoteSvcs[name]
		change := ServiceChange{Name: name, LocalImage: l.Image, RemoteImage: r.Image}
		switch {
		case !inRemote:
			change.Change = ServiceAdded
		case !inLocal:
			change.Change = ServiceRemoved
		case l.Image != r.Image:
			change.Change = ServiceChanged
		default:
			change.Change = ServiceUnchanged
		}
		result = append(result, change)
	}
	return result
}

func services(project *types.Project) map[string]types.ServiceConfig {
	if project == nil {
		return nil
	}
	return project.Services
}
