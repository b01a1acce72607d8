package awsec2

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/smithy-go"
	"github.com/rs/zerolog/log"

	"github.com/openfroyo/ceres/pkg/engine"
)

// Name is the provider variant name.
const Name = "aws"

// dryRunOperation is the EC2 error code returned when a dry run would have succeeded.
const dryRunOperation = "DryRunOperation"

// EC2API is the subset of the EC2 client used by the provider.
type EC2API interface {
	TerminateInstances(ctx context.Context, params *ec2.TerminateInstancesInput, optFns ...func(*ec2.Options)) (*ec2.TerminateInstancesOutput, error)
	StopInstances(ctx context.Context, params *ec2.StopInstancesInput, optFns ...func(*ec2.Options)) (*ec2.StopInstancesOutput, error)
	StartInstances(ctx context.Context, params *ec2.StartInstancesInput, optFns ...func(*ec2.Options)) (*ec2.StartInstancesOutput, error)
	DescribeInstances(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error)
}

// Options configures the AWS provider.
type Options struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	SharedProfile   string
	RoleARN         string
}

// Provider manages EC2 instances. It is the "aws" provider variant.
type Provider struct {
	client EC2API
}

var _ engine.Provider = (*Provider)(nil)

// New creates a provider from options, resolving credentials the way the AWS
// SDK does: static keys first, then the shared profile, then the default chain.
// A role ARN is assumed with the resolved credentials.
func New(ctx context.Context, o Options) (*Provider, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(o.Region),
	}
	if o.SharedProfile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(o.SharedProfile))
	}
	if o.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(o.AccessKeyID, o.SecretAccessKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws configuration: %w", err)
	}

	if o.RoleARN != "" {
		cfg.Credentials = aws.NewCredentialsCache(
			stscreds.NewAssumeRoleProvider(sts.NewFromConfig(cfg), o.RoleARN),
		)
	}

	return NewWithClient(ec2.NewFromConfig(cfg)), nil
}

// NewWithClient creates a provider using client.
func NewWithClient(client EC2API) *Provider {
	return &Provider{client: client}
}

// Name returns the provider variant name.
func (p *Provider) Name() string {
	return Name
}

// TerminateInstances terminates the given instances.
func (p *Provider) TerminateInstances(ctx context.Context, dry bool, ids []string) ([]engine.StateChange, error) {
	out, err := p.client.TerminateInstances(ctx, &ec2.TerminateInstancesInput{
		InstanceIds: ids,
		DryRun:      aws.Bool(dry),
	})
	if err != nil {
		return p.dryRunResult(ctx, dry, ids, err)
	}
	return stateChanges(out.TerminatingInstances), nil
}

// StopInstances stops the given instances.
func (p *Provider) StopInstances(ctx context.Context, dry bool, ids []string) ([]engine.StateChange, error) {
	out, err := p.client.StopInstances(ctx, &ec2.StopInstancesInput{
		InstanceIds: ids,
		DryRun:      aws.Bool(dry),
	})
	if err != nil {
		return p.dryRunResult(ctx, dry, ids, err)
	}
	return stateChanges(out.StoppingInstances), nil
}

// StartInstances starts the given instances.
func (p *Provider) StartInstances(ctx context.Context, dry bool, ids []string) ([]engine.StateChange, error) {
	out, err := p.client.StartInstances(ctx, &ec2.StartInstancesInput{
		InstanceIds: ids,
		DryRun:      aws.Bool(dry),
	})
	if err != nil {
		return p.dryRunResult(ctx, dry, ids, err)
	}
	return stateChanges(out.StartingInstances), nil
}

// DescribeInstances returns the given instances, or all instances of the region
// when ids is empty.
func (p *Provider) DescribeInstances(ctx context.Context, ids []string) ([]engine.Instance, error) {
	var instances []engine.Instance
	err := p.describe(ctx, ids, func(i types.Instance) {
		instances = append(instances, instance(i))
	})
	if err != nil {
		return nil, err
	}
	return instances, nil
}

// describe calls fn for every instance of the paginated DescribeInstances result.
func (p *Provider) describe(ctx context.Context, ids []string, fn func(types.Instance)) error {
	paginator := ec2.NewDescribeInstancesPaginator(p.client, &ec2.DescribeInstancesInput{
		InstanceIds: ids,
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return err
		}
		for _, r := range page.Reservations {
			for _, i := range r.Instances {
				fn(i)
			}
		}
	}
	return nil
}

// dryRunResult turns the DryRunOperation error of a successful dry run into
// unchanged state transitions of the current instance states. Any other error is
// returned as is.
func (p *Provider) dryRunResult(ctx context.Context, dry bool, ids []string, err error) ([]engine.StateChange, error) {
	var apiErr smithy.APIError
	if !dry || !errors.As(err, &apiErr) || apiErr.ErrorCode() != dryRunOperation {
		return nil, err
	}

	log.Debug().Strs("instances", ids).Msg("Dry run succeeded, describing current instance states")

	var changes []engine.StateChange
	err = p.describe(ctx, ids, func(i types.Instance) {
		state := stateName(i.State)
		changes = append(changes, engine.StateChange{
			InstanceID:    aws.ToString(i.InstanceId),
			PreviousState: state,
			CurrentState:  state,
		})
	})
	if err != nil {
		return nil, err
	}
	return changes, nil
}

func instance(i types.Instance) engine.Instance {
	out := engine.Instance{
		InstanceID:   aws.ToString(i.InstanceId),
		State:        stateName(i.State),
		InstanceType: string(i.InstanceType),
		PrivateIP:    aws.ToString(i.PrivateIpAddress),
		PublicIP:     aws.ToString(i.PublicIpAddress),
	}
	if len(i.Tags) > 0 {
		out.Tags = make(map[string]string, len(i.Tags))
		for _, t := range i.Tags {
			out.Tags[aws.ToString(t.Key)] = aws.ToString(t.Value)
		}
		out.Name = out.Tags["Name"]
	}
	return out
}

func stateChanges(in []types.InstanceStateChange) []engine.StateChange {
	out := make([]engine.StateChange, 0, len(in))
	for _, c := range in {
		out = append(out, engine.StateChange{
			InstanceID:    aws.ToString(c.InstanceId),
			PreviousState: stateName(c.PreviousState),
			CurrentState:  stateName(c.CurrentState),
		})
	}
	return out
}

func stateName(s *types.InstanceState) string {
	if s == nil {
		return ""
	}
	return string(s.Name)
}
