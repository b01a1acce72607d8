package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/openfroyo/ceres/pkg/engine"
)

// Type is an output format.
type Type string

const (
	TypeHuman Type = "human"
	TypeJSON  Type = "json"
	TypePlain Type = "plain"
)

// Types lists every output format in flag help order.
var Types = []Type{TypeHuman, TypeJSON, TypePlain}

// ParseType parses an output format name.
func ParseType(s string) (Type, error) {
	switch t := Type(strings.ToLower(s)); t {
	case TypeHuman, TypeJSON, TypePlain:
		return t, nil
	default:
		return "", engine.NewError(engine.KindUnknownOutputType, s)
	}
}

// TypeNames returns the names of types, for flag help and validation.
func TypeNames(types ...Type) []string {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	return names
}

// Require fails with an unsupported output error unless t is one of supported.
func Require(t Type, supported ...Type) error {
	for _, s := range supported {
		if t == s {
			return nil
		}
	}
	return engine.NewError(engine.KindUnsupportedOutput, string(t))
}

// Asps renders a list of ASPs.
func Asps(w io.Writer, t Type, asps []engine.Asp) error {
	var err error
	switch t {
	case TypeHuman:
		rows := make([][]string, len(asps))
		for i, a := range asps {
			rows[i] = []string{a.Project, a.Resource}
		}
		err = renderTable(w, []string{"Project", "Resource"}, rows)
	case TypeJSON:
		err = renderJSON(w, asps)
	case TypePlain:
		for _, a := range asps {
			if _, err = fmt.Fprintf(w, "%s\t%s\n", a.Project, a.Resource); err != nil {
				break
			}
		}
	default:
		return engine.NewError(engine.KindUnsupportedOutput, string(t))
	}
	if err != nil {
		return engine.Wrap(err, engine.KindOutputFailed, "")
	}
	return nil
}

// StateChanges renders a list of instance state changes. Plain output is not
// supported.
func StateChanges(w io.Writer, t Type, changes []engine.StateChange) error {
	var err error
	switch t {
	case TypeHuman:
		rows := make([][]string, len(changes))
		for i, c := range changes {
			rows[i] = []string{c.InstanceID, c.PreviousState, c.CurrentState}
		}
		err = renderTable(w, []string{"Instance ID", "Previous State", "Current State"}, rows)
	case TypeJSON:
		err = renderJSON(w, changes)
	default:
		return engine.NewError(engine.KindUnsupportedOutput, string(t))
	}
	if err != nil {
		return engine.Wrap(err, engine.KindOutputFailed, "")
	}
	return nil
}

// Instances renders provider instances. Plain output is one tab separated line of
// id, name and state per instance.
func Instances(w io.Writer, t Type, instances []engine.Instance) error {
	var err error
	switch t {
	case TypeHuman:
		rows := make([][]string, len(instances))
		for i, in := range instances {
			rows[i] = []string{in.InstanceID, in.Name, in.State, in.InstanceType, in.PrivateIP, in.PublicIP}
		}
		err = renderTable(w, []string{"Instance ID", "Name", "State", "Type", "Private IP", "Public IP"}, rows)
	case TypeJSON:
		err = renderJSON(w, instances)
	case TypePlain:
		for _, in := range instances {
			if _, err = fmt.Fprintf(w, "%s\t%s\t%s\n", in.InstanceID, in.Name, in.State); err != nil {
				break
			}
		}
	default:
		return engine.NewError(engine.KindUnsupportedOutput, string(t))
	}
	if err != nil {
		return engine.Wrap(err, engine.KindOutputFailed, "")
	}
	return nil
}

// Profiles renders profile names with their base directory and provider.
func Profiles(w io.Writer, t Type, profiles []ProfileSummary) error {
	var err error
	switch t {
	case TypeHuman:
		rows := make([][]string, len(profiles))
		for i, p := range profiles {
			name := p.Name
			if p.Default {
				name += " *"
			}
			rows[i] = []string{name, p.LocalBaseDir, p.Provider, p.Region}
		}
		err = renderTable(w, []string{"Profile", "Base Dir", "Provider", "Region"}, rows)
	case TypeJSON:
		err = renderJSON(w, profiles)
	case TypePlain:
		for _, p := range profiles {
			if _, err = fmt.Fprintln(w, p.Name); err != nil {
				break
			}
		}
	default:
		return engine.NewError(engine.KindUnsupportedOutput, string(t))
	}
	if err != nil {
		return engine.Wrap(err, engine.KindOutputFailed, "")
	}
	return nil
}

// ProfileSummary is the rendered view of a profile. Credentials are never included.
type ProfileSummary struct {
	Name         string `json:"name"`
	Default      bool   `json:"default"`
	LocalBaseDir string `json:"local_base_dir,omitempty"`
	Provider     string `json:"provider,omitempty"`
	Region       string `json:"region,omitempty"`
}

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

func renderTable(w io.Writer, headers []string, rows [][]string) error {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})

	_, err := fmt.Fprintln(w, t.Render())
	return err
}

func renderJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
