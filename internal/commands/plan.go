package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/lakeline/lakeline/internal/grants"
	"github.com/lakeline/lakeline/internal/provision"
)

// NewPlanCmd creates the plan command.
func NewPlanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plan",
		Short: "Print the derived stages, rules, and grants without applying anything",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan()
		},
	}
}

func runPlan() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger()
	ctx := context.Background()

	prov := provision.Unbound{}
	p, heavy, err := buildPipeline(ctx, cfg, cfg.Datasets, prov, logger)
	if err != nil {
		return err
	}

	reg := newRegistrar(cfg, prov, logger)
	for _, ds := range cfg.Datasets {
		if err := reg.Register(ctx, p, ds); err != nil {
			return fmt.Errorf("registering dataset %q: %w", ds.Dataset, err)
		}
	}

	color.Cyan("Pipeline %s (kind %s)", p.ID(), p.Kind())
	fmt.Println("Stages:")
	for _, s := range p.Stages() {
		fmt.Printf("  %-12s %-16s v%s %s\n", s.ID, s.Kind, s.Descriptor.Version, s.Descriptor.Status)
	}
	fmt.Printf("Stage-B router: %s\n", heavy.RoutingB().Resource)
	if eps := p.ExtensionPoints(); len(eps) > 0 {
		fmt.Printf("Extension points: %s\n", strings.Join(eps, ", "))
	}

	fmt.Println("Rules:")
	for _, r := range p.Rules() {
		prefix := "(any)"
		if prefixes := r.Filter.KeyPrefixes(); len(prefixes) > 0 {
			prefix = strings.Join(prefixes, ", ")
		}
		targets := make([]string, 0, len(r.Targets))
		for _, t := range r.Targets {
			targets = append(targets, t.ID)
		}
		fmt.Printf("  %-40s prefix=%-20s targets=%s\n", r.ID, prefix, strings.Join(targets, ","))
	}

	routerRef, err := prov.BindFunction(ctx, cfg.RouterFunction)
	if err != nil {
		return err
	}
	doc, err := grants.PolicyDocument(grants.ForRouter(routerRef, grants.Config{
		RawBucket:      cfg.RawBucket,
		StageBucket:    cfg.StageBucket,
		ResourcePrefix: cfg.ResourcePrefix,
		App:            cfg.App,
		Environment:    cfg.Environment,
	}))
	if err != nil {
		return err
	}
	fmt.Println("Router grants:")
	fmt.Println(string(doc))
	return nil
}
