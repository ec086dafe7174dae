package awsbind

import (
	"context"
	"fmt"

	"github.com/lakeline/lakeline/internal/provision"
)

// resourceBinder is the slice of Binder the stack builder needs; tests
// substitute a fake.
type resourceBinder interface {
	EnsureQueue(ctx context.Context, name string) (string, error)
	CheckBucket(ctx context.Context, name string) error
}

// StackBuilder instantiates dataset-scoped resources: one intake queue per
// transform selector plus reachability checks on the storage the dataset's
// resource refs name. Selectors arrive resolved from the registrar and are
// used verbatim in queue names.
type StackBuilder struct {
	binder resourceBinder
	prefix string
}

// NewStackBuilder creates a dataset stack builder sharing the binder's
// clients.
func NewStackBuilder(binder resourceBinder, resourcePrefix string) *StackBuilder {
	return &StackBuilder{binder: binder, prefix: resourcePrefix}
}

// BuildDatasetStack ensures the dataset's stage queues exist and its storage
// references resolve.
func (s *StackBuilder) BuildDatasetStack(ctx context.Context, req provision.StackRequest) error {
	for _, selector := range []string{req.StageATransform, req.StageBTransform} {
		name := fmt.Sprintf("%s-%s-%s-%s-queue", s.prefix, req.Team, req.Dataset, selector)
		if _, err := s.binder.EnsureQueue(ctx, name); err != nil {
			return err
		}
	}

	for _, key := range []string{"rawBucket", "stageBucket"} {
		bucket, ok := req.ResourceRefs[key]
		if !ok || bucket == "" {
			continue
		}
		if err := s.binder.CheckBucket(ctx, bucket); err != nil {
			return err
		}
	}
	return nil
}
