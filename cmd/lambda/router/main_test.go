package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	intlambda "github.com/lakeline/lakeline/internal/lambda"
)

type mockSQS struct {
	messages []*sqs.SendMessageInput
	urlCalls []string
	urlErr   error
	sendErr  error
}

func (m *mockSQS) GetQueueUrl(_ context.Context, input *sqs.GetQueueUrlInput, _ ...func(*sqs.Options)) (*sqs.GetQueueUrlOutput, error) {
	m.urlCalls = append(m.urlCalls, aws.ToString(input.QueueName))
	if m.urlErr != nil {
		return nil, m.urlErr
	}
	return &sqs.GetQueueUrlOutput{
		QueueUrl: aws.String("https://sqs.mock/" + aws.ToString(input.QueueName)),
	}, nil
}

func (m *mockSQS) SendMessage(_ context.Context, input *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	if m.sendErr != nil {
		return nil, m.sendErr
	}
	m.messages = append(m.messages, input)
	return &sqs.SendMessageOutput{}, nil
}

func testDeps(mock *mockSQS) *intlambda.Deps {
	return &intlambda.Deps{
		SQSClient:      mock,
		ResourcePrefix: "lakeline-dev",
		App:            "datalake",
		Org:            "acme",
		Environment:    "dev",
		Logger:         slog.Default(),
	}
}

func makeEvent(t *testing.T, bucket, key string) events.CloudWatchEvent {
	t.Helper()
	detail, err := json.Marshal(map[string]any{
		"bucket": map[string]any{"name": bucket},
		"object": map[string]any{"key": key, "size": 1024},
	})
	require.NoError(t, err)
	return events.CloudWatchEvent{
		Source:     "aws.s3",
		DetailType: "Object Created",
		Detail:     detail,
	}
}

func TestHandleEvent_RoutesToDatasetQueue(t *testing.T) {
	mock := &mockSQS{}
	d := testDeps(mock)

	err := handleEvent(context.Background(), d, makeEvent(t, "acme-raw", "fin/sales/2026/08/31/file.parquet"))
	require.NoError(t, err)

	require.Equal(t, []string{"lakeline-dev-fin-sales-light-queue"}, mock.urlCalls)
	require.Len(t, mock.messages, 1)

	var envelope intlambda.RoutingEnvelope
	require.NoError(t, json.Unmarshal([]byte(aws.ToString(mock.messages[0].MessageBody)), &envelope))
	assert.Equal(t, "fin", envelope.Team)
	assert.Equal(t, "sales", envelope.Dataset)
	assert.Equal(t, "acme-raw", envelope.Bucket)
	assert.Equal(t, "fin/sales/2026/08/31/file.parquet", envelope.Key)
	assert.Equal(t, int64(1024), envelope.Size)
	assert.Equal(t, "light", envelope.Stage)
}

func TestHandleEvent_CustomSelectorRoutesToItsQueue(t *testing.T) {
	mock := &mockSQS{}
	d := testDeps(mock)
	d.Selectors = map[string]string{"fin/clicks": "light-cdc"}

	err := handleEvent(context.Background(), d, makeEvent(t, "acme-raw", "fin/clicks/2026/08/31/file.parquet"))
	require.NoError(t, err)

	// the resolved queue carries the selector the dataset stack was built
	// with, not the default
	require.Equal(t, []string{"lakeline-dev-fin-clicks-light-cdc-queue"}, mock.urlCalls)
	require.Len(t, mock.messages, 1)

	var envelope intlambda.RoutingEnvelope
	require.NoError(t, json.Unmarshal([]byte(aws.ToString(mock.messages[0].MessageBody)), &envelope))
	assert.Equal(t, "light-cdc", envelope.Stage)

	// other datasets keep the default
	err = handleEvent(context.Background(), d, makeEvent(t, "acme-raw", "fin/sales/file.csv"))
	require.NoError(t, err)
	assert.Equal(t, "lakeline-dev-fin-sales-light-queue", mock.urlCalls[1])
}

func TestHandleEvent_UnroutableKeySkipped(t *testing.T) {
	mock := &mockSQS{}
	d := testDeps(mock)

	err := handleEvent(context.Background(), d, makeEvent(t, "acme-raw", "loose-file.csv"))
	require.NoError(t, err, "malformed keys are skipped, not failed")
	assert.Empty(t, mock.messages)
	assert.Empty(t, mock.urlCalls)
}

func TestHandleEvent_QueueResolutionFailure(t *testing.T) {
	mock := &mockSQS{urlErr: assert.AnError}
	d := testDeps(mock)

	err := handleEvent(context.Background(), d, makeEvent(t, "acme-raw", "fin/sales/file.csv"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "resolving queue")
}

func TestHandleEvent_BadDetailPayload(t *testing.T) {
	mock := &mockSQS{}
	d := testDeps(mock)

	err := handleEvent(context.Background(), d, events.CloudWatchEvent{Detail: []byte("{not json")})
	require.Error(t, err)
}
