// Package awsbind implements the provisioning collaborator against live AWS
// resources. It binds to existing infrastructure — EventBridge rules and
// targets, Lambda configuration and invoke permissions, SQS queues, S3
// buckets — and never owns resource lifecycle beyond queue creation.
package awsbind

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	ebtypes "github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	awslambda "github.com/aws/aws-sdk-go-v2/service/lambda"
	lambdatypes "github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"golang.org/x/sync/errgroup"

	"github.com/lakeline/lakeline/pkg/types"
)

// Binder is the AWS-backed Provisioner.
type Binder struct {
	events *eventbridge.Client
	fns    *awslambda.Client
	queues *sqs.Client
	store  *s3.Client
	logger *slog.Logger

	mu    sync.Mutex
	roles map[string]string // function name -> execution role ARN
}

// New creates a Binder using the default AWS credential chain.
func New(ctx context.Context, region string, logger *slog.Logger) (*Binder, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	return &Binder{
		events: eventbridge.NewFromConfig(cfg),
		fns:    awslambda.NewFromConfig(cfg),
		queues: sqs.NewFromConfig(cfg),
		store:  s3.NewFromConfig(cfg),
		logger: logger,
		roles:  make(map[string]string),
	}, nil
}

// BindFunction resolves an existing Lambda function by name.
func (b *Binder) BindFunction(ctx context.Context, name string) (types.RouterRef, error) {
	out, err := b.fns.GetFunction(ctx, &awslambda.GetFunctionInput{
		FunctionName: aws.String(name),
	})
	if err != nil {
		return types.RouterRef{}, fmt.Errorf("resolving function %q: %w", name, err)
	}

	b.mu.Lock()
	b.roles[name] = aws.ToString(out.Configuration.Role)
	b.mu.Unlock()

	return types.RouterRef{
		Name:     name,
		Resource: aws.ToString(out.Configuration.FunctionArn),
	}, nil
}

// SetEnvironment merges the bindings into the function's existing
// environment variables.
func (b *Binder) SetEnvironment(ctx context.Context, ref types.RouterRef, env map[string]string) error {
	cfg, err := b.fns.GetFunctionConfiguration(ctx, &awslambda.GetFunctionConfigurationInput{
		FunctionName: aws.String(ref.Name),
	})
	if err != nil {
		return fmt.Errorf("reading configuration of %q: %w", ref.Name, err)
	}

	merged := make(map[string]string)
	if cfg.Environment != nil {
		for k, v := range cfg.Environment.Variables {
			merged[k] = v
		}
	}
	for k, v := range env {
		merged[k] = v
	}

	_, err = b.fns.UpdateFunctionConfiguration(ctx, &awslambda.UpdateFunctionConfigurationInput{
		FunctionName: aws.String(ref.Name),
		Environment:  &lambdatypes.Environment{Variables: merged},
	})
	if err != nil {
		return fmt.Errorf("updating environment of %q: %w", ref.Name, err)
	}
	return nil
}

// ApplyGrant attaches the grant where the target service supports resource
// policies: bucket policies for storage grants, queue policies for queue
// grants. Key and parameter grants belong to the account's IAM baseline
// owned by the platform team, so they are recorded but not applied here.
func (b *Binder) ApplyGrant(ctx context.Context, grant types.PermissionGrant) error {
	role := b.roleFor(grant.Principal.Name)
	if role == "" {
		return fmt.Errorf("no execution role recorded for principal %q", grant.Principal.Name)
	}

	switch grant.Capability {
	case types.StorageReadWrite:
		return b.putBucketGrant(ctx, grant.Scope, role)
	case types.QueueOps:
		// Queue-name patterns resolve per queue at dataset-stack time; the
		// catalog-level grant is principal metadata only.
		b.logger.Debug("queue grant recorded", "role", role, "scope", grant.Scope)
		return nil
	case types.KeyOps, types.ParamRead:
		b.logger.Debug("grant delegated to IAM baseline",
			"capability", grant.Capability, "role", role, "scope", grant.Scope)
		return nil
	default:
		return types.ConfigErrorf("unknown capability %q", grant.Capability)
	}
}

func (b *Binder) putBucketGrant(ctx context.Context, bucket, role string) error {
	policy := map[string]any{
		"Version": "2012-10-17",
		"Statement": []any{
			map[string]any{
				"Effect":    "Allow",
				"Principal": map[string]any{"AWS": role},
				"Action":    []any{"s3:GetObject", "s3:PutObject", "s3:ListBucket"},
				"Resource": []any{
					"arn:aws:s3:::" + bucket,
					"arn:aws:s3:::" + bucket + "/*",
				},
			},
		},
	}
	doc, err := json.Marshal(policy)
	if err != nil {
		return fmt.Errorf("marshaling bucket policy: %w", err)
	}

	_, err = b.store.PutBucketPolicy(ctx, &s3.PutBucketPolicyInput{
		Bucket: aws.String(bucket),
		Policy: aws.String(string(doc)),
	})
	if err != nil {
		return fmt.Errorf("granting storage access on %q: %w", bucket, err)
	}
	return nil
}

// AllowInvoke authorizes the named service principal to invoke the function.
func (b *Binder) AllowInvoke(ctx context.Context, ref types.RouterRef, service string) error {
	_, err := b.fns.AddPermission(ctx, &awslambda.AddPermissionInput{
		FunctionName: aws.String(ref.Name),
		StatementId:  aws.String("lakeline-invoke-" + sanitizeStatementID(service)),
		Action:       aws.String("lambda:InvokeFunction"),
		Principal:    aws.String(service),
	})
	if err != nil {
		return fmt.Errorf("authorizing %s on %q: %w", service, ref.Name, err)
	}
	return nil
}

// PutRule materializes the rule's event pattern and targets on the bus.
func (b *Binder) PutRule(ctx context.Context, bus string, rule *types.Rule) error {
	pattern, err := rule.Filter.MarshalPattern()
	if err != nil {
		return err
	}

	_, err = b.events.PutRule(ctx, &eventbridge.PutRuleInput{
		Name:         aws.String(rule.ID),
		EventBusName: aws.String(bus),
		EventPattern: aws.String(pattern),
		State:        ebtypes.RuleStateEnabled,
	})
	if err != nil {
		return fmt.Errorf("putting rule %q: %w", rule.ID, err)
	}

	targets := make([]ebtypes.Target, 0, len(rule.Targets))
	for _, t := range rule.Targets {
		targets = append(targets, ebtypes.Target{
			Id:  aws.String(t.ID),
			Arn: aws.String(t.Resource),
		})
	}
	_, err = b.events.PutTargets(ctx, &eventbridge.PutTargetsInput{
		Rule:         aws.String(rule.ID),
		EventBusName: aws.String(bus),
		Targets:      targets,
	})
	if err != nil {
		return fmt.Errorf("putting targets for rule %q: %w", rule.ID, err)
	}

	b.logger.Info("rule applied", "rule", rule.ID, "bus", bus, "targets", len(targets))
	return nil
}

// EnsureQueue resolves the queue by name, creating it when absent, and
// returns the queue ARN.
func (b *Binder) EnsureQueue(ctx context.Context, name string) (string, error) {
	var queueURL string
	out, err := b.queues.GetQueueUrl(ctx, &sqs.GetQueueUrlInput{QueueName: aws.String(name)})
	if err == nil {
		queueURL = aws.ToString(out.QueueUrl)
	} else {
		created, cerr := b.queues.CreateQueue(ctx, &sqs.CreateQueueInput{QueueName: aws.String(name)})
		if cerr != nil {
			return "", fmt.Errorf("ensuring queue %q: %w", name, cerr)
		}
		queueURL = aws.ToString(created.QueueUrl)
	}

	attrs, err := b.queues.GetQueueAttributes(ctx, &sqs.GetQueueAttributesInput{
		QueueUrl:       aws.String(queueURL),
		AttributeNames: []sqstypes.QueueAttributeName{sqstypes.QueueAttributeNameQueueArn},
	})
	if err != nil {
		return "", fmt.Errorf("reading attributes of queue %q: %w", name, err)
	}
	return attrs.Attributes[string(sqstypes.QueueAttributeNameQueueArn)], nil
}

// RuleSummary is one rule listed from the bus.
type RuleSummary struct {
	Name  string
	State string
}

// ListRules lists rules on the bus whose names start with prefix.
func (b *Binder) ListRules(ctx context.Context, bus, prefix string) ([]RuleSummary, error) {
	var out []RuleSummary
	var next *string
	for {
		resp, err := b.events.ListRules(ctx, &eventbridge.ListRulesInput{
			EventBusName: aws.String(bus),
			NamePrefix:   aws.String(prefix),
			NextToken:    next,
		})
		if err != nil {
			return nil, fmt.Errorf("listing rules on bus %q: %w", bus, err)
		}
		for _, r := range resp.Rules {
			out = append(out, RuleSummary{
				Name:  aws.ToString(r.Name),
				State: string(r.State),
			})
		}
		if resp.NextToken == nil {
			break
		}
		next = resp.NextToken
	}
	return out, nil
}

// CheckBucket verifies the bucket is reachable.
func (b *Binder) CheckBucket(ctx context.Context, name string) error {
	_, err := b.store.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(name)})
	if err != nil {
		return fmt.Errorf("bucket %q not reachable: %w", name, err)
	}
	return nil
}

// ApplyPipeline pushes every rule of an assembled pipeline to the bus. Rule
// applications are independent of each other, so they fan out; the pipeline
// model itself is not mutated here.
func (b *Binder) ApplyPipeline(ctx context.Context, bus string, p *types.Pipeline) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, rule := range p.Rules() {
		rule := rule
		g.Go(func() error {
			return b.PutRule(ctx, bus, rule)
		})
	}
	return g.Wait()
}

func (b *Binder) roleFor(name string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.roles[name]
}

func sanitizeStatementID(service string) string {
	out := make([]rune, 0, len(service))
	for _, r := range service {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			out = append(out, r)
		default:
			out = append(out, '-')
		}
	}
	return string(out)
}
