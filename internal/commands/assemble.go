package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/lakeline/lakeline/internal/provision/awsbind"
)

const assembleTimeout = 5 * time.Minute

// NewAssembleCmd creates the assemble command.
func NewAssembleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "assemble",
		Short: "Assemble the pipeline and apply its rules to the event bus",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAssemble()
		},
	}
}

func runAssemble() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger()

	ctx, cancel := context.WithTimeout(context.Background(), assembleTimeout)
	defer cancel()

	binder, err := awsbind.New(ctx, cfg.Region, logger)
	if err != nil {
		return err
	}

	for _, bucket := range []string{cfg.RawBucket, cfg.StageBucket} {
		if err := binder.CheckBucket(ctx, bucket); err != nil {
			return err
		}
	}

	p, _, err := buildPipeline(ctx, cfg, cfg.Datasets, binder, logger)
	if err != nil {
		return err
	}

	stacks := awsbind.NewStackBuilder(binder, cfg.ResourcePrefix)
	reg := newRegistrar(cfg, stacks, logger)
	for _, ds := range cfg.Datasets {
		if err := reg.Register(ctx, p, ds); err != nil {
			return fmt.Errorf("registering dataset %q: %w", ds.Dataset, err)
		}
	}

	if err := binder.ApplyPipeline(ctx, cfg.Bus, p); err != nil {
		return err
	}

	color.Green("Pipeline %q assembled: %d stages, %d rules on bus %q",
		p.ID(), len(p.Stages()), len(p.Rules()), cfg.Bus)
	return nil
}
