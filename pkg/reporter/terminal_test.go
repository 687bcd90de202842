package reporter

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/stack-sync/stack-sync/pkg/envfile"
	"github.com/stack-sync/stack-sync/pkg/state"
)

func newPlain() (*Terminal, *bytes.Buffer) {
	var buf bytes.Buffer
	t := New(&buf)
	t.SetColor(false)
	return t, &buf
}

func TestEventLines(t *testing.T) {
	tests := []struct {
		event Event
		ref   string
		want  string
	}{
		{WouldUpdate, "id: 42", " Would Update my-stack (id: 42)\n"},
		{WouldCreate, "", " Would Create my-stack\n"},
		{Updating, "id: 42", "     Updating my-stack...\n"},
		{Created, "docker1", "      Created my-stack (docker1)\n"},
		{UpToDate, "", "   Up-to-Date my-stack\n"},
		{WouldRedeploy, "", " Would Redep. my-stack\n"},
		{NotFound, "", "    Not Found my-stack\n"},
		{Disabled, "", "     Disabled my-stack\n"},
	}
	for _, tt := range tests {
		t.Run(tt.event.String(), func(t *testing.T) {
			r, buf := newPlain()
			r.Event(tt.event, "my-stack", tt.ref)
			if got := buf.String(); got != tt.want {
				t.Errorf("Event(%v) = %q, want %q", tt.event, got, tt.want)
			}
		})
	}
}

func TestEveryEventHasALabel(t *testing.T) {
	for e := WouldCreate; e <= NotFound; e++ {
		if e.Label() == "" {
			t.Errorf("event %d has no label", e)
		}
		if len(e.Label()) > labelWidth {
			t.Errorf("label %q is wider than %d", e.Label(), labelWidth)
		}
	}
}

func TestDetails(t *testing.T) {
	r, buf := newPlain()
	r.Details(Details{Host: "https://p", ComposePath: "web.yaml", ComposeBytes: 1234, EndpointID: 2})

	out := buf.String()
	assert.Contains(t, out, "Host:         https://p")
	assert.Contains(t, out, "web.yaml (1.234kB)")
	assert.Contains(t, out, "(none)")
	assert.Contains(t, out, "Endpoint ID:  2")
}

func TestFormatTime(t *testing.T) {
	assert.Equal(t, "n/a", FormatTime(time.Time{}))
	assert.Equal(t, "2020-04-20 18:00 UTC", FormatTime(time.Unix(1587405600, 0)))
	assert.Equal(t, "2024-01-01 00:00 UTC", FormatTime(time.Unix(1704067200, 0)))
}

func TestViewVerbosePortainer(t *testing.T) {
	r, buf := newPlain()
	now := time.Unix(1587405600, 0).Add(72 * time.Hour)
	r.View(&state.Remote{
		Name:      "web",
		Running:   true,
		ID:        42,
		Target:    "https://p",
		Type:      "Compose",
		CreatedBy: "admin",
		CreatedAt: time.Unix(1587405600, 0),
		Env:       []envfile.Var{{Name: "A", Value: "1"}},
	}, true, now)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	assert.Equal(t, "       active web (id: 42)", lines[0])
	out := buf.String()
	assert.Contains(t, out, "Type:         Compose")
	assert.Contains(t, out, "2020-04-20 18:00 UTC by admin 3 days ago")
	assert.Contains(t, out, "n/a by n/a")
	assert.Contains(t, out, "Env vars:     1")
}

func TestViewSSH(t *testing.T) {
	r, buf := newPlain()
	r.View(&state.Remote{Name: "web", Target: "docker1"}, false, time.Now())
	assert.Equal(t, "     inactive web (docker1)\n", buf.String())
}

func TestServices(t *testing.T) {
	r, buf := newPlain()
	r.Services("web", []state.ServiceChange{
		{Name: "a", Change: state.ServiceAdded, LocalImage: "nginx"},
		{Name: "b", Change: state.ServiceUnchanged},
		{Name: "c", Change: state.ServiceChanged, LocalImage: "x:2", RemoteImage: "x:1"},
	})
	out := buf.String()
	assert.Contains(t, out, "+ a nginx")
	assert.NotContains(t, out, " b")
	assert.Contains(t, out, "~ c x:1 -> x:2")
}

func TestEnvChanges(t *testing.T) {
	r, buf := newPlain()
	r.EnvChanges("web", []string{"NEW"}, []string{"TAG"}, []string{"OLD"})
	assert.Equal(t, detailIndent+"Env changes:  +NEW ~TAG -OLD\n", buf.String())

	buf.Reset()
	r.EnvChanges("web", nil, nil, nil)
	assert.Empty(t, buf.String())
}
