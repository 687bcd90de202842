package config

// Mode selects the remote backend.
type Mode string

const (
	ModePortainer Mode = "portainer"
	ModeSSH       Mode = "ssh"
)

// DefaultEndpointID is the Portainer environment used when none is configured.
const DefaultEndpointID uint64 = 2

// GlobalConfig is the validated, fully merged global configuration. It is
// either a Portainer or an SSH value; no other implementations exist.
type GlobalConfig interface {
	Mode() Mode
	// Target is the host label used in messages.
	Target() string
	isGlobal()
}

// Portainer holds the credentials of a Portainer server.
type Portainer struct {
	APIKey     string
	Host       string
	EndpointID uint64
}

func (Portainer) Mode() Mode       { return ModePortainer }
func (p Portainer) Target() string { return p.Host }
func (Portainer) isGlobal()        {}

// SSH describes a docker host reached through the ssh client.
type SSH struct {
	Host    string
	User    string // optional
	Key     string // optional identity file, already ~ expanded
	Options string // optional extra ssh arguments
	HostDir string
}

func (SSH) Mode() Mode       { return ModeSSH }
func (s SSH) Target() string { return s.Host }
func (SSH) isGlobal()        {}
