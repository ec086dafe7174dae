package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/lakeline/lakeline/internal/provision/awsbind"
)

const statusTimeout = 30 * time.Second

// NewStatusCmd creates the status command.
func NewStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "List the pipeline's rules currently on the event bus",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus()
		},
	}
}

func runStatus() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger()

	ctx, cancel := context.WithTimeout(context.Background(), statusTimeout)
	defer cancel()

	binder, err := awsbind.New(ctx, cfg.Region, logger)
	if err != nil {
		return err
	}

	rules, err := binder.ListRules(ctx, cfg.Bus, cfg.PipelineKind+"-")
	if err != nil {
		return err
	}
	if len(rules) == 0 {
		color.Yellow("No %s rules on bus %q — run 'lakeline assemble' first", cfg.PipelineKind, cfg.Bus)
		return nil
	}

	color.Cyan("Rules on bus %q:", cfg.Bus)
	for _, r := range rules {
		fmt.Printf("  %-40s %s\n", r.Name, r.State)
	}
	return nil
}
