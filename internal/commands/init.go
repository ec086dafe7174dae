package commands

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

const starterConfig = `# lakeline project configuration
environment: dev
region: us-east-1
resourcePrefix: lakeline-dev
team: fin
app: datalake
org: acme

rawBucket: acme-datalake-raw-dev
stageBucket: acme-datalake-stage-dev
routerFunction: lakeline-dev-router

# datasets:
#   - dataset: sales
#   - dataset: orders
#     stageBTransform: heavy-ml

# callback:
#   endpoint: https://hooks.example.com/lakeline
`

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a starter lakeline.yaml in the current directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit()
		},
	}
}

func runInit() error {
	if _, err := os.Stat("lakeline.yaml"); err == nil {
		return fmt.Errorf("lakeline.yaml already exists")
	}
	if err := os.WriteFile("lakeline.yaml", []byte(starterConfig), 0o644); err != nil {
		return fmt.Errorf("writing lakeline.yaml: %w", err)
	}
	color.Green("Wrote lakeline.yaml — edit it, then run 'lakeline plan'")
	return nil
}
