package doctor

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"strings"
	"time"

	"xcmcp/internal/color"
	"xcmcp/internal/registry"
	"xcmcp/internal/toolexec"
	"xcmcp/pkg/logging"

	"github.com/mattn/go-runewidth"
)

const probeTimeout = 10 * time.Second

// Probe is a toolchain command whose first output line is reported.
type Probe struct {
	Name    string
	Program string
	Args    []string
}

// DefaultProbes checks the Apple toolchain.
var DefaultProbes = []Probe{
	{Name: "Xcode", Program: "xcodebuild", Args: []string{"-version"}},
	{Name: "xcrun", Program: "xcrun", Args: []string{"--version"}},
	{Name: "Swift", Program: "swift", Args: []string{"--version"}},
	{Name: "simctl", Program: "xcrun", Args: []string{"simctl", "help"}},
}

// ProbeResult is the outcome of one probe.
type ProbeResult struct {
	Name    string `json:"name"`
	OK      bool   `json:"ok"`
	Detail  string `json:"detail"`
	Command string `json:"command"`
}

// WorkflowSource is the registry view used by the report.
type WorkflowSource interface {
	Mode() registry.Mode
	Workflows() []registry.WorkflowStatus
}

// Report is a diagnostics snapshot.
type Report struct {
	Version   string                    `json:"version"`
	Platform  string                    `json:"platform"`
	Mode      registry.Mode             `json:"mode"`
	Sampling  string                    `json:"sampling"`
	Workflows []registry.WorkflowStatus `json:"workflows"`
	Probes    []ProbeResult             `json:"probes"`
}

// Doctor builds diagnostics reports.
type Doctor struct {
	executor toolexec.CommandExecutor
	probes   []Probe
	version  string
}

// New creates a Doctor. A nil probes slice selects DefaultProbes.
func New(executor toolexec.CommandExecutor, version string, probes []Probe) *Doctor {
	if probes == nil {
		probes = DefaultProbes
	}
	return &Doctor{executor: executor, probes: probes, version: version}
}

// Run probes the toolchain and snapshots the registry. sampling describes
// whether the current client supports sampling ("unknown" outside a session).
func (d *Doctor) Run(ctx context.Context, source WorkflowSource, sampling string) Report {
	report := Report{
		Version:   d.version,
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
		Mode:      source.Mode(),
		Sampling:  sampling,
		Workflows: source.Workflows(),
	}
	for _, p := range d.probes {
		report.Probes = append(report.Probes, d.probe(ctx, p))
	}
	return report
}

func (d *Doctor) probe(ctx context.Context, p Probe) ProbeResult {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	cmd := toolexec.Command{Program: p.Program, Args: p.Args}
	result := ProbeResult{Name: p.Name, Command: toolexec.FormatCommandLine(cmd)}

	res, err := d.executor.Execute(ctx, cmd)
	switch {
	case err != nil:
		result.Detail = err.Error()
	case res.ExitCode != 0:
		result.Detail = fmt.Sprintf("exit code %d: %s", res.ExitCode, firstLine(res.Stderr))
	default:
		result.OK = true
		result.Detail = firstLine(res.Stdout)
		if result.Detail == "" {
			result.Detail = firstLine(res.Stderr)
		}
	}
	logging.Debug("Doctor", "Probe %s ok=%v: %s", p.Name, result.OK, result.Detail)
	return result
}

// Healthy reports whether every probe passed.
func (r Report) Healthy() bool {
	for _, p := range r.Probes {
		if !p.OK {
			return false
		}
	}
	return true
}

// Render writes the report using styles.
func (r Report) Render(w io.Writer, styles color.Styles) error {
	var b strings.Builder

	fmt.Fprintln(&b, styles.Title.Render("xcmcp doctor"))
	fmt.Fprintf(&b, "%s %s\n", styles.Label.Render("Version: "), r.Version)
	fmt.Fprintf(&b, "%s %s\n", styles.Label.Render("Platform:"), r.Platform)
	fmt.Fprintf(&b, "%s %s\n", styles.Label.Render("Mode:    "), r.Mode)
	fmt.Fprintf(&b, "%s %s\n", styles.Label.Render("Sampling:"), r.Sampling)

	fmt.Fprintln(&b)
	fmt.Fprintln(&b, styles.Title.Render("Toolchain"))
	nameWidth := 0
	for _, p := range r.Probes {
		nameWidth = max(nameWidth, runewidth.StringWidth(p.Name))
	}
	for _, p := range r.Probes {
		icon := styles.OK.Render(color.IconOK)
		detail := p.Detail
		if !p.OK {
			icon = styles.Fail.Render(color.IconFail)
			detail = styles.Fail.Render(detail)
		}
		fmt.Fprintf(&b, "  %s %s  %s\n", icon, runewidth.FillRight(p.Name, nameWidth), detail)
	}

	fmt.Fprintln(&b)
	fmt.Fprintln(&b, styles.Title.Render("Workflows"))
	idWidth := 0
	for _, wf := range r.Workflows {
		idWidth = max(idWidth, runewidth.StringWidth(wf.ID))
	}
	for _, wf := range r.Workflows {
		fmt.Fprintf(&b, "  %s %s  %s\n",
			styles.Status(wf.Enabled),
			runewidth.FillRight(wf.ID, idWidth),
			styles.Muted.Render(fmt.Sprintf("%d tools", len(wf.Tools))))
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
