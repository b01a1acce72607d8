package workflow

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/openfroyo/ceres/pkg/config"
	"github.com/openfroyo/ceres/pkg/console"
	"github.com/openfroyo/ceres/pkg/engine"
	"github.com/openfroyo/ceres/pkg/telemetry"
	"github.com/openfroyo/ceres/pkg/transports/ssh"
)

// ActionRun is the guard action of remote command execution.
const ActionRun = "run"

// Dialer opens a transport to address, using the ssh settings of profile.
type Dialer func(ctx context.Context, profile config.Profile, address string) (ssh.Transport, error)

// RemoteRequest describes one remote command execution.
type RemoteRequest struct {
	// Args are instance ids, or the single argument "-" to read ids from stdin.
	Args []string

	// Command is the shell command run on every instance.
	Command string

	// PublicIP connects to the public address even if the profile does not say so.
	PublicIP bool
}

// RemoteRun runs a command on instances of the active profile, in target order.
// The first instance that cannot be reached, or whose command exits non-zero,
// stops the run. Output lines are prefixed with the instance id.
type RemoteRun struct {
	Profiles    ProfileResolver
	NewProvider ProviderFactory
	Dial        Dialer
	Guard       Guard
	Stdin       io.Reader
	Stdout      io.Writer
	Stderr      io.Writer
}

// Run executes req.
func (r *RemoteRun) Run(ctx context.Context, rc engine.RunConfig, req RemoteRequest) error {
	logger := telemetry.FromContext(ctx).NewComponentLogger("remote")

	profile, provider, err := Resolve(ctx, r.Profiles, r.NewProvider, rc.ActiveProfile)
	if err != nil {
		return err
	}

	ids, err := console.ReadInstanceIDs(req.Args, r.Stdin)
	if err != nil {
		return engine.Wrap(err, engine.KindFailedToReadInstanceIDs, "")
	}

	if err := check(ctx, r.Guard, rc, profile, ActionRun, false, ids); err != nil {
		return err
	}

	if len(ids) == 0 {
		logger.Warn("No instances given, nothing to run")
		return nil
	}

	described, err := describe(ctx, provider, ids)
	if err != nil {
		return err
	}
	instances := make(map[string]engine.Instance, len(described))
	for _, inst := range described {
		instances[inst.InstanceID] = inst
	}

	public := req.PublicIP || profile.SSHPublicIP
	for _, id := range ids {
		inst, ok := instances[id]
		if !ok {
			return engine.Wrap(fmt.Errorf("instance not found"), engine.KindRemoteCommandFailed, id)
		}
		if err := r.runOn(ctx, profile, inst, inst.Address(public), req.Command); err != nil {
			return engine.Wrap(err, engine.KindRemoteCommandFailed, id)
		}
	}

	logger.WithField("instances", len(ids)).Info("Remote command finished on all instances")
	return nil
}

// List describes the given instances of the active profile, or all of them when
// ids is empty.
func List(ctx context.Context, profiles ProfileResolver, newProvider ProviderFactory, rc engine.RunConfig, ids []string) ([]engine.Instance, error) {
	_, provider, err := Resolve(ctx, profiles, newProvider, rc.ActiveProfile)
	if err != nil {
		return nil, err
	}
	return describe(ctx, provider, ids)
}

// describe looks up ids with one provider call.
func describe(ctx context.Context, p engine.Provider, ids []string) ([]engine.Instance, error) {
	ctx, span := telemetry.StartSpan(ctx, "provider.describe",
		telemetry.AttrProviderName.String(p.Name()),
		attribute.Int("instances", len(ids)),
	)
	defer span.End()

	metrics := telemetry.MetricsFromContext(ctx)
	start := time.Now()

	described, err := p.DescribeInstances(ctx, ids)
	metrics.RecordProviderCall(p.Name(), "describe", time.Since(start))
	if err != nil {
		metrics.RecordProviderError(p.Name(), "describe")
		telemetry.RecordError(span, err)
		return nil, engine.Wrap(err, engine.KindProviderFailed, "describe")
	}
	telemetry.RecordSuccess(span)
	return described, nil
}

func (r *RemoteRun) runOn(ctx context.Context, profile config.Profile, inst engine.Instance, address, command string) error {
	if address == "" {
		return fmt.Errorf("instance has no usable address (state %s)", inst.State)
	}

	ctx, span := telemetry.StartSpan(ctx, "remote.run",
		attribute.String("instance.id", inst.InstanceID),
		attribute.String("instance.address", address),
	)
	defer span.End()

	logger := telemetry.FromContext(ctx).NewComponentLogger("remote").
		WithField("instance", inst.InstanceID).
		WithField("address", address)
	logger.Debug("Connecting to instance")

	transport, err := r.Dial(ctx, profile, address)
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	if err := transport.Connect(ctx); err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	defer func() { _ = transport.Disconnect() }()

	prefix := inst.InstanceID + ": "
	stdout := console.NewPrefixWriter(r.Stdout, prefix)
	stderr := console.NewPrefixWriter(r.Stderr, prefix)

	code, err := transport.Run(ctx, command, stdout, stderr)
	_ = stdout.Flush()
	_ = stderr.Flush()
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	if code != 0 {
		err := fmt.Errorf("command exited with status %d", code)
		telemetry.RecordError(span, err)
		return err
	}

	telemetry.RecordSuccess(span)
	return nil
}

// SSHDialer returns a Dialer building ssh clients from profile settings. With
// insecure set, host keys are not verified.
func SSHDialer(insecure bool) Dialer {
	return func(ctx context.Context, profile config.Profile, address string) (ssh.Transport, error) {
		cfg, err := SSHConfig(profile, address, insecure)
		if err != nil {
			return nil, err
		}
		client, err := ssh.NewClient(cfg)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
}

// SSHConfig builds the ssh configuration for address from profile settings.
func SSHConfig(profile config.Profile, address string, insecure bool) (*ssh.Config, error) {
	if profile.SSHUser == "" {
		return nil, engine.NewError(engine.KindConfigMissingInProfile, "ssh_user")
	}

	cfg := ssh.DefaultConfig(address, profile.SSHUser)
	if profile.SSHPort != 0 {
		cfg.Port = profile.SSHPort
	}
	if profile.SSHKeyFile != "" {
		cfg.AuthMethod = ssh.AuthMethodKey
		cfg.PrivateKeyPath = profile.SSHKeyFile
	}
	if profile.SSHKnownHosts != "" {
		cfg.KnownHostsPath = profile.SSHKnownHosts
	}
	cfg.StrictHostKeyChecking = !insecure
	if profile.SSHBastion != "" {
		if err := cfg.SetProxy(profile.SSHBastion); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
