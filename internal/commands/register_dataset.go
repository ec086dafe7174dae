package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/lakeline/lakeline/internal/provision/awsbind"
	"github.com/lakeline/lakeline/pkg/types"
)

const registerTimeout = 2 * time.Minute

// NewRegisterDatasetCmd creates the register-dataset command.
func NewRegisterDatasetCmd() *cobra.Command {
	var (
		dataset         string
		team            string
		stageATransform string
		stageBTransform string
	)

	cmd := &cobra.Command{
		Use:   "register-dataset",
		Short: "Attach a dataset to the assembled pipeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRegisterDataset(dataset, team, stageATransform, stageBTransform)
		},
	}

	cmd.Flags().StringVar(&dataset, "dataset", "", "Dataset name (required)")
	cmd.Flags().StringVar(&team, "team", "", "Owning team (defaults to the project team)")
	cmd.Flags().StringVar(&stageATransform, "stage-a-transform", "", "Stage-A transform selector (default light)")
	cmd.Flags().StringVar(&stageBTransform, "stage-b-transform", "", "Stage-B transform selector (default heavy)")
	_ = cmd.MarkFlagRequired("dataset")

	return cmd
}

func runRegisterDataset(dataset, team, stageATransform, stageBTransform string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger()
	if team == "" {
		team = cfg.Team
	}

	ctx, cancel := context.WithTimeout(context.Background(), registerTimeout)
	defer cancel()

	binder, err := awsbind.New(ctx, cfg.Region, logger)
	if err != nil {
		return err
	}

	dsCfg := types.DatasetConfig{
		Dataset:         dataset,
		Team:            team,
		StageATransform: stageATransform,
		StageBTransform: stageBTransform,
	}

	// Rebuild the pipeline model, including datasets already declared in
	// config, so rule-id collisions against existing registrations surface
	// here instead of on the bus. The new dataset joins the selector
	// bindings pushed to the routers during assembly.
	allDatasets := append(append([]types.DatasetConfig{}, cfg.Datasets...), dsCfg)
	p, _, err := buildPipeline(ctx, cfg, allDatasets, binder, logger)
	if err != nil {
		return err
	}
	stacks := awsbind.NewStackBuilder(binder, cfg.ResourcePrefix)
	reg := newRegistrar(cfg, stacks, logger)
	for _, ds := range cfg.Datasets {
		if err := reg.Register(ctx, p, ds); err != nil {
			return fmt.Errorf("registering configured dataset %q: %w", ds.Dataset, err)
		}
	}

	if err := reg.Register(ctx, p, dsCfg); err != nil {
		return err
	}

	rule, err := ruleForDataset(p, dataset)
	if err != nil {
		return err
	}
	if err := binder.PutRule(ctx, cfg.Bus, rule); err != nil {
		return err
	}

	color.Green("Dataset %q registered on pipeline %q (rule %s, prefix %s)",
		dataset, p.ID(), rule.ID, dsCfg.KeyPrefix())
	return nil
}
