package portainer

import (
	"encoding/json"
	"time"

	"github.com/stack-sync/stack-sync/pkg/envfile"
)

// Stack status codes.
const (
	StatusActive   = 1
	StatusInactive = 2
)

// Stack is a stack as returned by the Portainer API.
type Stack struct {
	ID           int64         `json:"Id"`
	Name         string        `json:"Name"`
	EndpointID   uint64        `json:"EndpointId"`
	Type         int           `json:"Type"`
	Status       int           `json:"Status"`
	Env          []envfile.Var `json:"Env"`
	CreatedBy    string        `json:"createdBy"`
	CreationDate int64         `json:"creationDate"`
	UpdatedBy    string        `json:"updatedBy"`
	UpdateDate   int64         `json:"updateDate"`
}

// TypeName maps the stack type code to its display name.
func (s Stack) TypeName() string {
	switch s.Type {
	case 1:
		return "Swarm"
	case 2:
		return "Compose"
	case 3:
		return "Kubernetes"
	}
	return "Unknown"
}

// Running reports whether Portainer considers the stack active.
func (s Stack) Running() bool {
	return s.Status == StatusActive
}

func unixTime(sec int64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}

type stackFileResponse struct {
	StackFileContent string `json:"StackFileContent"`
}

type createStackPayload struct {
	Name             string        `json:"name"`
	StackFileContent string        `json:"stackFileContent"`
	Env              []envfile.Var `json:"env,omitempty"`
}

type updateStackPayload struct {
	StackFileContent string        `json:"stackFileContent"`
	Env              []envfile.Var `json:"env,omitempty"`
	Prune            bool          `json:"prune"`
	PullImage        bool          `json:"pullImage"`
}

// errorResponse is the body Portainer sends with non-2xx responses.
type errorResponse struct {
	Message string `json:"message"`
	Details string `json:"details"`
}

func decodeErrorMessage(body []byte) string {
	var resp errorResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return ""
	}
	if resp.Details != "" && resp.Details != resp.Message {
		return resp.Message + ": " + resp.Details
	}
	return resp.Message
}
