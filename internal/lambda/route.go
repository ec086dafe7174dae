package lambda

import (
	"fmt"
	"strings"
	"time"
)

// S3EventDetail is the detail payload of an object-created event as
// delivered by the event bus.
type S3EventDetail struct {
	Bucket struct {
		Name string `json:"name"`
	} `json:"bucket"`
	Object struct {
		Key  string `json:"key"`
		Size int64  `json:"size"`
		ETag string `json:"etag"`
	} `json:"object"`
}

// RoutingEnvelope is the message the router forwards to a dataset's stage
// queue.
type RoutingEnvelope struct {
	Team      string    `json:"team"`
	Dataset   string    `json:"dataset"`
	Bucket    string    `json:"bucket"`
	Key       string    `json:"key"`
	Size      int64     `json:"size"`
	Stage     string    `json:"stage"`
	Timestamp time.Time `json:"timestamp"`
}

// ParseKey extracts the team and dataset from a storage key laid out as
// "<team>/<dataset>/...". Keys outside that layout are unroutable.
func ParseKey(key string) (team, dataset string, err error) {
	parts := strings.SplitN(key, "/", 3)
	if len(parts) < 3 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("key %q does not match <team>/<dataset>/... layout", key)
	}
	return parts[0], parts[1], nil
}

// QueueName returns the dataset stage queue the envelope routes to.
func QueueName(prefix, team, dataset, selector string) string {
	return fmt.Sprintf("%s-%s-%s-%s-queue", prefix, team, dataset, selector)
}
