// router Lambda receives object-created events off the bus and forwards a
// routing envelope to the owning dataset's stage queue.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-lambda-go/events"
	awslambda "github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	intlambda "github.com/lakeline/lakeline/internal/lambda"
	"github.com/lakeline/lakeline/internal/metrics"
)

var (
	deps     *intlambda.Deps
	depsOnce sync.Once
	depsErr  error
)

func getDeps() (*intlambda.Deps, error) {
	depsOnce.Do(func() {
		deps, depsErr = intlambda.Init(context.Background())
	})
	return deps, depsErr
}

// handleEvent routes one bus event to the dataset's stage-A queue. Events
// whose keys fall outside the <team>/<dataset>/ layout are logged and
// skipped, not failed: a malformed upload must not poison the batch.
func handleEvent(ctx context.Context, d *intlambda.Deps, event events.CloudWatchEvent) error {
	logger := d.Logger

	var detail intlambda.S3EventDetail
	if err := json.Unmarshal(event.Detail, &detail); err != nil {
		return fmt.Errorf("unmarshaling event detail: %w", err)
	}

	team, dataset, err := intlambda.ParseKey(detail.Object.Key)
	if err != nil {
		metrics.EventsUnroutable.Add(1)
		logger.Warn("unroutable object key", "bucket", detail.Bucket.Name, "key", detail.Object.Key)
		return nil
	}

	// The selector must match the one the dataset stack was built with, or
	// the queue lookup below resolves a name that was never created.
	selector := d.StageASelector(team, dataset)

	envelope := intlambda.RoutingEnvelope{
		Team:      team,
		Dataset:   dataset,
		Bucket:    detail.Bucket.Name,
		Key:       detail.Object.Key,
		Size:      detail.Object.Size,
		Stage:     selector,
		Timestamp: time.Now().UTC(),
	}
	body, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshaling routing envelope: %w", err)
	}

	queueName := intlambda.QueueName(d.ResourcePrefix, team, dataset, selector)
	urlOut, err := d.SQSClient.GetQueueUrl(ctx, &sqs.GetQueueUrlInput{
		QueueName: aws.String(queueName),
	})
	if err != nil {
		return fmt.Errorf("resolving queue %q: %w", queueName, err)
	}

	_, err = d.SQSClient.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    urlOut.QueueUrl,
		MessageBody: aws.String(string(body)),
	})
	if err != nil {
		return fmt.Errorf("forwarding to queue %q: %w", queueName, err)
	}

	metrics.EventsRouted.Add(1)
	logger.Info("event routed", "team", team, "dataset", dataset, "key", detail.Object.Key, "queue", queueName)
	return nil
}

func handler(ctx context.Context, event events.CloudWatchEvent) error {
	d, err := getDeps()
	if err != nil {
		return fmt.Errorf("initializing dependencies: %w", err)
	}
	return handleEvent(ctx, d, event)
}

func main() {
	awslambda.Start(handler)
}
