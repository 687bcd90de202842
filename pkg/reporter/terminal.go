package reporter

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/docker/go-units"
	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/stack-sync/stack-sync/pkg/state"
)

// labelWidth is the column action labels are right aligned to.
const labelWidth = 12

// detailIndent lines detail blocks up with the stack name column.
var detailIndent = strings.Repeat(" ", labelWidth+2)

// Terminal writes colored, aligned lines to an io.Writer.
type Terminal struct {
	w      io.Writer
	styles map[kind]*color.Color
	bold   *color.Color
	dim    *color.Color
	field  *color.Color
	add    *color.Color
	del    *color.Color
}

// New returns a Terminal writing to w. Colors are used only when w is a
// terminal and color output has not been disabled (NO_COLOR).
func New(w io.Writer) *Terminal {
	t := &Terminal{
		w: w,
		styles: map[kind]*color.Color{
			kindWould:    color.New(color.FgYellow, color.Bold),
			kindWaiting:  color.New(color.FgBlue, color.Bold),
			kindDone:     color.New(color.FgGreen, color.Bold),
			kindUpToDate: color.New(color.FgCyan, color.Bold),
			kindMuted:    color.New(color.FgHiBlack, color.Bold),
		},
		bold:  color.New(color.Bold),
		dim:   color.New(color.Faint),
		field: color.New(color.FgHiBlack),
		add:   color.New(color.FgGreen),
		del:   color.New(color.FgRed),
	}
	t.SetColor(isTerminalWriter(w) && !color.NoColor)
	return t
}

// SetColor forces colors on or off.
func (t *Terminal) SetColor(enabled bool) {
	all := []*color.Color{t.bold, t.dim, t.field, t.add, t.del}
	for _, c := range t.styles {
		all = append(all, c)
	}
	for _, c := range all {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
}

func isTerminalWriter(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		return term.IsTerminal(int(f.Fd()))
	}
	return false
}

func (t *Terminal) Event(e Event, name, ref string) {
	ev := events[e]
	label := fmt.Sprintf("%*s", labelWidth, ev.label)
	line := fmt.Sprintf(" %s %s", t.styles[ev.kind].Sprint(label), t.bold.Sprint(name))
	if ev.kind == kindWaiting {
		line += "..."
	}
	if ref != "" && ev.kind != kindWaiting {
		line += " " + t.dim.Sprintf("(%s)", ref)
	}
	fmt.Fprintln(t.w, line)
}

func (t *Terminal) detail(label, value string) {
	fmt.Fprintf(t.w, "%s%s %s\n", detailIndent, t.field.Sprintf("%-13s", label+":"), value)
}

func (t *Terminal) Details(d Details) {
	t.detail("Host", d.Host)
	t.detail("Compose file", d.ComposePath+" "+t.dim.Sprintf("(%s)", units.HumanSize(float64(d.ComposeBytes))))
	if d.EnvPath != "" {
		t.detail("Env file", d.EnvPath+" "+t.dim.Sprintf("(%d vars)", d.EnvVars))
	} else {
		t.detail("Env file", t.dim.Sprint("(none)"))
	}
	if d.EndpointID != 0 {
		t.detail("Endpoint ID", fmt.Sprint(d.EndpointID))
	}
}

func (t *Terminal) Diff(name, unified string) {
	if unified == "" {
		return
	}
	for _, line := range strings.Split(strings.TrimRight(unified, "\n"), "\n") {
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			line = t.bold.Sprint(line)
		case strings.HasPrefix(line, "+"):
			line = t.add.Sprint(line)
		case strings.HasPrefix(line, "-"):
			line = t.del.Sprint(line)
		case strings.HasPrefix(line, "@@"):
			line = t.field.Sprint(line)
		}
		fmt.Fprintf(t.w, "%s%s\n", detailIndent, line)
	}
}

func (t *Terminal) Services(name string, changes []state.ServiceChange) {
	for _, c := range changes {
		var line string
		switch c.Change {
		case state.ServiceAdded:
			line = t.add.Sprintf("+ %s", c.Name) + " " + t.dim.Sprint(c.LocalImage)
		case state.ServiceRemoved:
			line = t.del.Sprintf("- %s", c.Name) + " " + t.dim.Sprint(c.RemoteImage)
		case state.ServiceChanged:
			line = fmt.Sprintf("~ %s %s", c.Name, t.dim.Sprintf("%s -> %s", c.RemoteImage, c.LocalImage))
		default:
			continue
		}
		fmt.Fprintf(t.w, "%s%s\n", detailIndent, line)
	}
}

func (t *Terminal) EnvChanges(name string, added, changed, removed []string) {
	var parts []string
	for _, n := range added {
		parts = append(parts, t.add.Sprint("+"+n))
	}
	for _, n := range changed {
		parts = append(parts, "~"+n)
	}
	for _, n := range removed {
		parts = append(parts, t.del.Sprint("-"+n))
	}
	if len(parts) == 0 {
		return
	}
	t.detail("Env changes", strings.Join(parts, " "))
}

// FormatTime renders a remote timestamp, "n/a" when unknown.
func FormatTime(ts time.Time) string {
	if ts.IsZero() {
		return "n/a"
	}
	return ts.UTC().Format("2006-01-02 15:04") + " UTC"
}

func ago(ts, now time.Time) string {
	if ts.IsZero() || now.Before(ts) {
		return ""
	}
	return " " + units.HumanDuration(now.Sub(ts)) + " ago"
}

func (t *Terminal) View(r *state.Remote, verbose bool, now time.Time) {
	ref := r.Target
	if r.ID != 0 {
		ref = fmt.Sprintf("id: %d", r.ID)
	}
	style := t.styles[kindUpToDate]
	if !r.Running {
		style = t.styles[kindWould]
	}
	label := fmt.Sprintf("%*s", labelWidth, r.Status())
	fmt.Fprintf(t.w, " %s %s %s\n", style.Sprint(label), t.bold.Sprint(r.Name), t.dim.Sprintf("(%s)", ref))
	if !verbose {
		return
	}
	if r.Type != "" {
		t.detail("Type", r.Type)
	}
	if r.EndpointID != 0 {
		t.detail("Endpoint ID", fmt.Sprint(r.EndpointID))
	}
	if r.ID != 0 {
		t.detail("Created", fmt.Sprintf("%s by %s%s", FormatTime(r.CreatedAt), orNA(r.CreatedBy), t.dim.Sprint(ago(r.CreatedAt, now))))
		t.detail("Updated", fmt.Sprintf("%s by %s%s", FormatTime(r.UpdatedAt), orNA(r.UpdatedBy), t.dim.Sprint(ago(r.UpdatedAt, now))))
	} else {
		t.detail("Host", r.Target)
	}
	t.detail("Env vars", fmt.Sprint(len(r.Env)))
	t.detail("Compose", units.HumanSize(float64(len(r.ComposeContent))))
}

func orNA(s string) string {
	if s == "" {
		return "n/a"
	}
	return s
}

func (t *Terminal) Info(format string, args ...any) {
	fmt.Fprintf(t.w, format+"\n", args...)
}
