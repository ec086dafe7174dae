// Package lambda holds shared runtime dependencies and routing logic for the
// router Lambda.
package lambda

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/lakeline/lakeline/pkg/types"
)

// SQSAPI is the slice of the SQS client the router uses; tests substitute a
// mock.
type SQSAPI interface {
	GetQueueUrl(ctx context.Context, input *sqs.GetQueueUrlInput, optFns ...func(*sqs.Options)) (*sqs.GetQueueUrlOutput, error)
	SendMessage(ctx context.Context, input *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// Deps holds shared dependencies for the router handler.
type Deps struct {
	SQSClient      SQSAPI
	ResourcePrefix string
	App            string
	Org            string
	Environment    string
	Selectors      map[string]string // "<team>/<dataset>" -> transform selector override
	Logger         *slog.Logger
}

// StageASelector returns the stage-A transform selector bound to the
// dataset, falling back to the standard light transform when no override
// was registered. The queue the router resolves must carry the same
// selector the dataset stack was built with.
func (d *Deps) StageASelector(team, dataset string) string {
	if sel, ok := d.Selectors[team+"/"+dataset]; ok && sel != "" {
		return sel
	}
	return types.DefaultStageATransform
}

// Init creates shared dependencies from environment variables.
// Reads: RESOURCE_PREFIX, APP, ORG, ENV, AWS_REGION, DATASET_SELECTORS.
func Init(ctx context.Context) (*Deps, error) {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	prefix := os.Getenv("RESOURCE_PREFIX")
	region := os.Getenv("AWS_REGION")
	if prefix == "" {
		return nil, fmt.Errorf("RESOURCE_PREFIX environment variable required")
	}
	if region == "" {
		return nil, fmt.Errorf("AWS_REGION environment variable required")
	}

	selectors, err := parseSelectors(os.Getenv("DATASET_SELECTORS"))
	if err != nil {
		return nil, err
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	return &Deps{
		SQSClient:      sqs.NewFromConfig(cfg),
		ResourcePrefix: prefix,
		App:            os.Getenv("APP"),
		Org:            os.Getenv("ORG"),
		Environment:    envOrDefault("ENV", "dev"),
		Selectors:      selectors,
		Logger:         logger,
	}, nil
}

// parseSelectors decodes the dataset selector overrides the assembly pass
// bound into the router's environment.
func parseSelectors(raw string) (map[string]string, error) {
	if raw == "" {
		return nil, nil
	}
	var out map[string]string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("parsing DATASET_SELECTORS: %w", err)
	}
	return out, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
