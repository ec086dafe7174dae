package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lakeline/lakeline/internal/commands"
)

var version = "dev"

func main() {
	root := &cobra.Command{
		Use:   "lakeline",
		Short: "Serverless data-lake pipeline assembler",
		Long: `Lakeline composes capture and transform stages into one addressable
ingestion pipeline, derives per-dataset event-filter rules from the pipeline's
base trigger template, and wires the routing function's permission grants.
Datasets attach at runtime without touching the pipeline's stage sequence.`,
		Version: version,
	}

	root.AddCommand(
		commands.NewInitCmd(),
		commands.NewPlanCmd(),
		commands.NewAssembleCmd(),
		commands.NewRegisterDatasetCmd(),
		commands.NewStatusCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
