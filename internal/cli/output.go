package cli

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/crateops/cargo-edit/internal/engine"
)

type styles struct {
	verb lipgloss.Style
	warn lipgloss.Style
	err  lipgloss.Style
	path lipgloss.Style
}

// newStyles detects color support on w itself, so piped output stays plain.
func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		verb: r.NewStyle().Bold(true).Foreground(lipgloss.Color("10")),
		warn: r.NewStyle().Bold(true).Foreground(lipgloss.Color("11")),
		err:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
		path: r.NewStyle().Foreground(lipgloss.Color("245")),
	}
}

// printer reports changes as the engine makes them. Failures are printed
// even in quiet mode.
type printer struct {
	out, errOut io.Writer
	outStyles   styles
	errStyles   styles
	quiet       bool
	// perManifest prefixes each group of changes with its manifest path.
	perManifest bool
	last        string
}

func newPrinter(out, errOut io.Writer, quiet, perManifest bool) *printer {
	return &printer{
		out:         out,
		errOut:      errOut,
		outStyles:   newStyles(out),
		errStyles:   newStyles(errOut),
		quiet:       quiet,
		perManifest: perManifest,
	}
}

func (p *printer) Report(c engine.Change) {
	if p.quiet {
		return
	}
	if p.perManifest && c.Manifest != p.last {
		fmt.Fprintln(p.out, p.outStyles.path.Render(c.Manifest))
		p.last = c.Manifest
	}
	fmt.Fprintln(p.out, formatChange(p.outStyles, c))
}

func formatChange(st styles, c engine.Change) string {
	verb := func(s string) string {
		return st.verb.Render(fmt.Sprintf("%12s", s))
	}
	switch c.Action {
	case engine.ActionAdd:
		return fmt.Sprintf("%s %s %s to %s", verb("Adding"), c.Name, c.New, c.Section)
	case engine.ActionUpdate:
		return fmt.Sprintf("%s %s %s -> %s in %s", verb("Updating"), c.Name, c.Old, c.New, c.Section)
	case engine.ActionRemove:
		return fmt.Sprintf("%s %s from %s", verb("Removing"), c.Name, c.Section)
	case engine.ActionUpgrade:
		return fmt.Sprintf("%s %s %s -> %s", verb("Upgrading"), c.Name, vers(c.Old), vers(c.New))
	case engine.ActionSort:
		return fmt.Sprintf("%s %s", verb("Tidying"), c.Section)
	default:
		return fmt.Sprintf("%s %s", verb(string(c.Action)), c.Name)
	}
}

// vers prefixes bare versions with "v"; operators are left as written.
func vers(req string) string {
	if req != "" && req[0] >= '0' && req[0] <= '9' {
		return "v" + req
	}
	return req
}

// finish prints failures and the dry-run notice, and turns failures into
// a non-zero exit.
func (p *printer) finish(op string, res *engine.Result) error {
	for _, f := range res.Failures {
		printError(p.errOut, f)
	}
	if res.DryRun {
		fmt.Fprintf(p.errOut, "%s aborting %s due to dry run\n", p.errStyles.warn.Render("warning:"), op)
	}
	if len(res.Failures) > 0 {
		return errFailed
	}
	return nil
}

func printError(w io.Writer, err error) {
	fmt.Fprintf(w, "%s %v\n", newStyles(w).err.Render("error:"), err)
}
