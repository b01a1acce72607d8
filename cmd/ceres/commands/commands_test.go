package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/openfroyo/ceres/pkg/config"
	"github.com/openfroyo/ceres/pkg/engine"
	"github.com/openfroyo/ceres/pkg/modules"
	"github.com/openfroyo/ceres/pkg/output"
	"github.com/openfroyo/ceres/pkg/transports/ssh"
	"github.com/openfroyo/ceres/pkg/workflow"
)

// Mock implementations for testing

type mockProvider struct {
	calls     int
	dry       bool
	ids       []string
	instances []engine.Instance
	described []string
}

func (m *mockProvider) Name() string { return "mock" }

func (m *mockProvider) change(dry bool, ids []string, state string) ([]engine.StateChange, error) {
	m.calls++
	m.dry = dry
	m.ids = ids
	changes := make([]engine.StateChange, len(ids))
	for i, id := range ids {
		changes[i] = engine.StateChange{InstanceID: id, PreviousState: "running", CurrentState: state}
	}
	return changes, nil
}

func (m *mockProvider) TerminateInstances(ctx context.Context, dry bool, ids []string) ([]engine.StateChange, error) {
	return m.change(dry, ids, "shutting-down")
}

func (m *mockProvider) StopInstances(ctx context.Context, dry bool, ids []string) ([]engine.StateChange, error) {
	return m.change(dry, ids, "stopping")
}

func (m *mockProvider) StartInstances(ctx context.Context, dry bool, ids []string) ([]engine.StateChange, error) {
	return m.change(dry, ids, "pending")
}

func (m *mockProvider) DescribeInstances(ctx context.Context, ids []string) ([]engine.Instance, error) {
	m.described = ids
	return m.instances, nil
}

type mockConfirmer struct {
	answer bool
	asked  int
}

func (m *mockConfirmer) Confirm(prompt, expected string) (bool, error) {
	m.asked++
	return m.answer, nil
}

type mockTransport struct {
	address  string
	commands []string
}

func (m *mockTransport) Connect(ctx context.Context) error { return nil }

func (m *mockTransport) Disconnect() error { return nil }

func (m *mockTransport) Run(ctx context.Context, cmd string, stdout, stderr io.Writer) (int, error) {
	m.commands = append(m.commands, cmd)
	_, _ = io.WriteString(stdout, "ok\n")
	return 0, nil
}

type harness struct {
	provider   *mockProvider
	confirmer  *mockConfirmer
	transports []*mockTransport
	insecure   bool
	cfg        *config.Config
	stdin      string
	stdout     bytes.Buffer
	stderr     bytes.Buffer
}

func newHarness(cfg *config.Config) *harness {
	return &harness{
		provider:  &mockProvider{},
		confirmer: &mockConfirmer{},
		cfg:       cfg,
	}
}

func (h *harness) registry() []modules.Module {
	deps := instanceDeps{
		newProvider: func(ctx context.Context, cfg *config.ProviderConfig) (engine.Provider, error) {
			return h.provider, nil
		},
		newConfirmer: func(inv *modules.Invocation) engine.Confirmer { return h.confirmer },
		newGuard:     policyGuard,
		newDialer: func(insecure bool) workflow.Dialer {
			h.insecure = insecure
			return func(ctx context.Context, profile config.Profile, address string) (ssh.Transport, error) {
				tr := &mockTransport{address: address}
				h.transports = append(h.transports, tr)
				return tr, nil
			}
		},
	}

	registry := Registry()
	instances := registry[1].(*modules.Group)
	instances.Modules = []modules.Module{
		newInstancesListModule(deps),
		newInstancesModule(workflow.ActionTerminate, deps),
		newInstancesModule(workflow.ActionStop, deps),
		newInstancesModule(workflow.ActionStart, deps),
		newInstancesRunModule(deps),
	}
	return registry
}

func (h *harness) run(args ...string) error {
	d := modules.NewDispatcher(&cobra.Command{Use: "ceres"}, h.registry(), modules.Options{
		Version: "test",
		LoadConfig: func(path string) (*config.Config, error) {
			if h.cfg == nil {
				return nil, engine.NewError(engine.KindFailedToLoadConfig, path)
			}
			return h.cfg, nil
		},
		Stdin:  strings.NewReader(h.stdin),
		Stdout: &h.stdout,
		Stderr: &h.stderr,
	})
	return d.Execute(context.Background(), args)
}

func testConfig(baseDir string) *config.Config {
	return &config.Config{
		DefaultProfile: "staging",
		Profiles: map[string]config.Profile{
			"staging": {
				Name:         "staging",
				LocalBaseDir: baseDir,
				SSHUser:      "ec2-user",
				Provider:     &config.ProviderConfig{Type: "aws", Region: "eu-central-1"},
			},
			"bare": {Name: "bare"},
		},
		Policy: config.PolicyConfig{DisableBuiltin: true},
	}
}

func writeFile(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create directory: %v", err)
	}
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

func projectsTree(t *testing.T) string {
	base := t.TempDir()
	resources := filepath.Join(base, "logimon", "ansible-setup-package", "resources")
	writeFile(t, filepath.Join(resources, "project.cfg"))
	writeFile(t, filepath.Join(resources, "elk_elasticsearch", "Makefile"))
	return base
}

func TestAspList(t *testing.T) {
	base := projectsTree(t)

	tests := []struct {
		name string
		cfg  *config.Config
		args []string
	}{
		{name: "profile base dir", cfg: testConfig(base), args: nil},
		{name: "base dir flag", cfg: nil, args: []string{"--base-dir", base}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(tt.cfg)
			args := append([]string{"infrastructure", "asp", "list", "-o", "json"}, tt.args...)
			if err := h.run(args...); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			var asps []engine.Asp
			if err := json.Unmarshal(h.stdout.Bytes(), &asps); err != nil {
				t.Fatalf("failed to decode output: %v", err)
			}
			want := engine.Asp{Project: "logimon", Resource: "elk_elasticsearch"}
			if len(asps) != 1 || asps[0] != want {
				t.Errorf("expected [%+v], got %+v", want, asps)
			}
		})
	}
}

func TestAspList_Plain(t *testing.T) {
	h := newHarness(nil)
	if err := h.run("infrastructure", "asp", "list", "--base-dir", projectsTree(t), "-o", "plain"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := h.stdout.String(); got != "logimon\telk_elasticsearch\n" {
		t.Errorf("unexpected output %q", got)
	}
}

func TestAspList_Errors(t *testing.T) {
	tests := []struct {
		name string
		cfg  *config.Config
		args []string
		want engine.ErrorKind
	}{
		{name: "no config", cfg: nil, want: engine.KindFailedToLoadProfile},
		{name: "unknown profile", cfg: testConfig("/tmp"), args: []string{"-p", "nope"}, want: engine.KindFailedToLoadProfile},
		{name: "no base dir", cfg: testConfig("/tmp"), args: []string{"-p", "bare"}, want: engine.KindNoLocalBaseDir},
		{name: "unknown output", cfg: testConfig("/tmp"), args: []string{"-o", "xml"}, want: engine.KindUnknownOutputType},
		{name: "missing base dir", cfg: nil, args: []string{"--base-dir", "/does/not/exist"}, want: engine.KindFailedToFindAsps},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(tt.cfg)
			args := append([]string{"infrastructure", "asp", "list"}, tt.args...)
			err := h.run(args...)
			if !engine.IsKind(err, tt.want) {
				t.Fatalf("expected %s error, got %v", tt.want, err)
			}
			chain := engine.Chain(err)
			if len(chain) < 3 || chain[0] != "executing module infrastructure failed" || chain[2] != "executing module list failed" {
				t.Errorf("expected one module layer per level, got %q", chain)
			}
		})
	}
}

func TestInstances_Terminate(t *testing.T) {
	h := newHarness(testConfig("/tmp"))
	h.confirmer.answer = true

	if err := h.run("instances", "terminate", "-o", "json", "i-1", "i-2"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.confirmer.asked != 1 {
		t.Errorf("expected one confirmation, got %d", h.confirmer.asked)
	}
	if h.provider.calls != 1 || strings.Join(h.provider.ids, ",") != "i-1,i-2" {
		t.Errorf("unexpected provider call %+v", h.provider)
	}

	var changes []engine.StateChange
	if err := json.Unmarshal(h.stdout.Bytes(), &changes); err != nil {
		t.Fatalf("failed to decode output: %v", err)
	}
	if len(changes) != 2 || changes[0].CurrentState != "shutting-down" {
		t.Errorf("unexpected changes %+v", changes)
	}
}

func TestInstances_Refused(t *testing.T) {
	h := newHarness(testConfig("/tmp"))

	err := h.run("instances", "terminate", "i-1")
	if !engine.IsKind(err, engine.KindConfirmationAborted) {
		t.Fatalf("expected confirmation aborted error, got %v", err)
	}
	if kind, _ := engine.KindOf(err); kind != engine.KindModuleFailed {
		t.Errorf("expected module failed error, got %s", kind)
	}
	if h.provider.calls != 0 {
		t.Errorf("expected no provider calls, got %d", h.provider.calls)
	}
}

func TestInstances_DryAndYesExclusive(t *testing.T) {
	h := newHarness(testConfig("/tmp"))

	err := h.run("instances", "terminate", "--dry", "--"+yesFlag, "i-1")
	if err == nil {
		t.Fatal("expected error for mutually exclusive flags")
	}
	if h.provider.calls != 0 || h.confirmer.asked != 0 {
		t.Error("expected nothing to run")
	}
}

func TestInstances_Flags(t *testing.T) {
	tests := []struct {
		name      string
		args      []string
		stdin     string
		wantAsked int
		wantDry   bool
		wantIDs   string
	}{
		{name: "dry", args: []string{"instances", "terminate", "-d", "i-1"}, wantDry: true, wantIDs: "i-1"},
		{name: "yes", args: []string{"instances", "stop", "--" + yesFlag, "i-1"}, wantIDs: "i-1"},
		{name: "start needs no confirmation", args: []string{"instances", "start", "i-1"}, wantIDs: "i-1"},
		{name: "stdin", args: []string{"instances", "terminate", "--" + yesFlag, "-"}, stdin: "i-a\ni-b\n", wantIDs: "i-a,i-b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(testConfig("/tmp"))
			h.stdin = tt.stdin

			if err := h.run(append(tt.args, "-o", "json")...); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if h.confirmer.asked != tt.wantAsked {
				t.Errorf("expected %d confirmations, got %d", tt.wantAsked, h.confirmer.asked)
			}
			if h.provider.dry != tt.wantDry {
				t.Errorf("expected dry=%v, got %v", tt.wantDry, h.provider.dry)
			}
			if got := strings.Join(h.provider.ids, ","); got != tt.wantIDs {
				t.Errorf("expected ids %s, got %s", tt.wantIDs, got)
			}
		})
	}
}

func TestInstances_PlainRejected(t *testing.T) {
	h := newHarness(testConfig("/tmp"))

	err := h.run("instances", "terminate", "--"+yesFlag, "-o", "plain", "i-1")
	if !engine.IsKind(err, engine.KindUnsupportedOutput) {
		t.Fatalf("expected unsupported output error, got %v", err)
	}
	if h.provider.calls != 0 {
		t.Errorf("expected no provider calls, got %d", h.provider.calls)
	}
}

func TestInstances_PlainRejectedWithoutConfig(t *testing.T) {
	h := newHarness(nil)

	err := h.run("instances", "stop", "-o", "plain", "i-1")
	if !engine.IsKind(err, engine.KindUnsupportedOutput) {
		t.Fatalf("expected unsupported output error, got %v", err)
	}
	if engine.IsKind(err, engine.KindFailedToLoadProfile) {
		t.Errorf("expected output check before loading the profile, got %v", err)
	}
}

func TestTerminalConfirmer_AnswerOnStdin(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create pipe: %v", err)
	}
	defer r.Close()
	if _, err := io.WriteString(w, "yes\n"); err != nil {
		t.Fatalf("failed to write answer: %v", err)
	}
	w.Close()

	var prompt bytes.Buffer
	c := terminalConfirmer(&modules.Invocation{Args: []string{"i-1"}, Stdin: r, Stderr: &prompt})

	ok, err := c.Confirm(workflow.ConfirmationPrompt(workflow.ActionTerminate), workflow.ConfirmationAnswer)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Error("expected piped answer to confirm")
	}
	if !strings.Contains(prompt.String(), "terminate") {
		t.Errorf("expected prompt, got %q", prompt.String())
	}
}

func TestInstances_ProfileWithoutProvider(t *testing.T) {
	h := newHarness(testConfig("/tmp"))

	err := h.run("-p", "bare", "instances", "terminate", "--"+yesFlag, "i-1")
	if !engine.IsKind(err, engine.KindConfigMissingInProfile) {
		t.Fatalf("expected config missing error, got %v", err)
	}
}

func TestProfilesList(t *testing.T) {
	h := newHarness(testConfig("/srv/projects"))

	if err := h.run("profiles", "list", "-o", "json"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var profiles []output.ProfileSummary
	if err := json.Unmarshal(h.stdout.Bytes(), &profiles); err != nil {
		t.Fatalf("failed to decode output: %v", err)
	}
	if len(profiles) != 2 {
		t.Fatalf("expected 2 profiles, got %d", len(profiles))
	}
	if profiles[0].Name != "bare" || profiles[0].Default {
		t.Errorf("unexpected first profile %+v", profiles[0])
	}
	want := output.ProfileSummary{
		Name:         "staging",
		Default:      true,
		LocalBaseDir: "/srv/projects",
		Provider:     "aws",
		Region:       "eu-central-1",
	}
	if profiles[1] != want {
		t.Errorf("expected %+v, got %+v", want, profiles[1])
	}
}

func TestRegistry_Names(t *testing.T) {
	registry := Registry()

	var names []string
	for _, m := range registry {
		names = append(names, m.Command().Name())
	}
	if got := strings.Join(names, ","); got != "infrastructure,instances,profiles" {
		t.Errorf("unexpected registry %s", got)
	}

	var sub []string
	for _, m := range registry[1].(*modules.Group).Subcommands() {
		sub = append(sub, m.Command().Name())
	}
	if got := strings.Join(sub, ","); got != "list,terminate,stop,start,run" {
		t.Errorf("unexpected instances subcommands %s", got)
	}
}

func TestInstancesList(t *testing.T) {
	h := newHarness(testConfig("/tmp"))
	h.provider.instances = []engine.Instance{
		{InstanceID: "i-1", Name: "web", State: "running", PrivateIP: "10.0.0.1"},
		{InstanceID: "i-2", State: "stopped"},
	}

	if err := h.run("instances", "list", "-o", "json"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(h.provider.described) != 0 {
		t.Errorf("expected all instances to be listed, got ids %v", h.provider.described)
	}

	var instances []engine.Instance
	if err := json.Unmarshal(h.stdout.Bytes(), &instances); err != nil {
		t.Fatalf("failed to decode output: %v", err)
	}
	if len(instances) != 2 || instances[0].Name != "web" {
		t.Errorf("unexpected instances %+v", instances)
	}
}

func TestInstancesList_Plain(t *testing.T) {
	h := newHarness(testConfig("/tmp"))
	h.provider.instances = []engine.Instance{{InstanceID: "i-1", Name: "web", State: "running"}}

	if err := h.run("instances", "list", "-o", "plain", "i-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Join(h.provider.described, ",") != "i-1" {
		t.Errorf("expected ids to be passed on, got %v", h.provider.described)
	}
	if got := h.stdout.String(); got != "i-1\tweb\trunning\n" {
		t.Errorf("unexpected output %q", got)
	}
}

func TestInstancesRun(t *testing.T) {
	h := newHarness(testConfig("/tmp"))
	h.provider.instances = []engine.Instance{{InstanceID: "i-1", State: "running", PrivateIP: "10.0.0.1"}}

	if err := h.run("instances", "run", "--insecure-ignore-host-key", "i-1", "--", "df", "-h"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !h.insecure {
		t.Error("expected host key checking to be disabled")
	}
	if len(h.transports) != 1 || h.transports[0].address != "10.0.0.1" {
		t.Fatalf("unexpected dials %+v", h.transports)
	}
	if cmds := h.transports[0].commands; len(cmds) != 1 || cmds[0] != "df -h" {
		t.Errorf("unexpected commands %v", cmds)
	}
	if got := h.stdout.String(); got != "i-1: ok\n" {
		t.Errorf("unexpected output %q", got)
	}
}

func TestInstancesRun_MissingCommand(t *testing.T) {
	tests := [][]string{
		{"instances", "run", "i-1"},
		{"instances", "run", "i-1", "--"},
	}

	for _, args := range tests {
		t.Run(strings.Join(args, " "), func(t *testing.T) {
			h := newHarness(testConfig("/tmp"))

			if err := h.run(args...); err == nil {
				t.Fatal("expected error for missing command")
			}
			if len(h.transports) != 0 {
				t.Error("expected no connections")
			}
		})
	}
}

func TestInstances_Policy(t *testing.T) {
	dir := t.TempDir()
	rego := `package ceres.staging

deny contains "no terminations in staging" if {
	input.profile == "staging"
	input.action == "terminate"
}
`
	if err := os.WriteFile(filepath.Join(dir, "staging.rego"), []byte(rego), 0o644); err != nil {
		t.Fatalf("failed to write policy: %v", err)
	}

	t.Run("denied", func(t *testing.T) {
		cfg := testConfig("/tmp")
		cfg.Policy.Paths = []string{dir}
		h := newHarness(cfg)

		err := h.run("instances", "terminate", "--dry", "i-1")
		if !engine.IsKind(err, engine.KindPolicyDenied) {
			t.Fatalf("expected policy denial, got %v", err)
		}
		if h.provider.calls != 0 {
			t.Errorf("expected no provider calls, got %d", h.provider.calls)
		}
	})

	t.Run("allowed", func(t *testing.T) {
		cfg := testConfig("/tmp")
		cfg.Policy.Paths = []string{dir}
		h := newHarness(cfg)

		if err := h.run("instances", "stop", "--dry", "-o", "json", "i-1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if h.provider.calls != 1 {
			t.Errorf("expected one provider call, got %d", h.provider.calls)
		}
	})

	t.Run("load failure", func(t *testing.T) {
		cfg := testConfig("/tmp")
		cfg.Policy.Paths = []string{filepath.Join(dir, "missing")}
		h := newHarness(cfg)

		err := h.run("instances", "stop", "--dry", "i-1")
		if !engine.IsKind(err, engine.KindFailedToLoadPolicies) {
			t.Fatalf("expected policy load failure, got %v", err)
		}
	})
}
