package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/incari/dashgrid/internal/adapters/factory"
	"github.com/incari/dashgrid/internal/config"
	"github.com/incari/dashgrid/pkg/domain"
	"github.com/incari/dashgrid/pkg/placement"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the persisted layout against the placement invariants",
	Long: `Fetches the canonical layout from the configured backend and verifies that
every container holds a dense, zero-based position sequence and every item
references an existing section.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfgPath, _ := cmd.Flags().GetString("config")

		cfg, err := config.Load(cfgPath)
		if err != nil {
			fmt.Printf("Error loading config: %v\n", err)
			os.Exit(1)
		}

		ctx := context.Background()
		gateway, closeGateway, err := factory.New(ctx, cfg.Store)
		if err != nil {
			fmt.Printf("Error building store backend: %v\n", err)
			os.Exit(1)
		}
		defer closeGateway()

		layout, err := gateway.FetchCanonicalLayout(ctx)
		if err != nil {
			if errors.Is(err, domain.ErrLayoutNotFound) {
				fmt.Println("No layout persisted yet; nothing to validate.")
				return
			}
			fmt.Printf("Error fetching layout: %v\n", err)
			os.Exit(1)
		}

		store := placement.New()
		store.Replace(*layout)

		sections := make(map[string]bool, len(layout.Sections))
		for _, sec := range layout.Sections {
			sections[sec.ID] = true
		}
		for _, it := range layout.Items {
			if it.Container != domain.Unsectioned && !sections[it.Container] {
				fmt.Printf("INVALID: item %s references missing section %s\n", it.ID, it.Container)
				os.Exit(1)
			}
		}

		if err := store.Validate(); err != nil {
			fmt.Printf("INVALID: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("OK: %d items across %d sections, all positions dense.\n",
			len(layout.Items), len(layout.Sections))
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
