package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/unowned-ai/foodtracker/pkg/nutrition"
	"github.com/unowned-ai/foodtracker/pkg/openfoodfacts"
)

var (
	pageFlag     int
	pageSizeFlag int
)

var lookupCmd = &cobra.Command{
	Use:   "lookup [barcode]",
	Short: "Look a product up by barcode",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		product, err := newClient().LookupByBarcode(cmd.Context(), args[0])
		if errors.Is(err, openfoodfacts.ErrNotFound) {
			return fmt.Errorf("product not found: %s", args[0])
		}
		if err != nil {
			return fmt.Errorf("failed to look up product: %w", err)
		}

		info := nutrition.Describe(product)
		if jsonFlag {
			return printJSON(cmd.OutOrStdout(), info)
		}
		printNutrition(cmd.OutOrStdout(), info)
		return nil
	},
}

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search products by name",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := args[0]
		for _, a := range args[1:] {
			query += " " + a
		}
		size := pageSizeFlag
		if !cmd.Flags().Changed("page-size") {
			size = cfg.PageSize
		}

		res, err := newClient().LookupByName(cmd.Context(), query, openfoodfacts.SearchOptions{Page: pageFlag, PageSize: size})
		if err != nil {
			return fmt.Errorf("failed to search products: %w", err)
		}

		infos := make([]nutrition.NutritionInfo, 0, len(res.Products))
		for _, p := range res.Products {
			infos = append(infos, nutrition.Describe(p))
		}
		if jsonFlag {
			return printJSON(cmd.OutOrStdout(), infos)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Page %d: %d of %d result(s) from %s\n", res.Page, len(infos), res.Count, res.Source)
		for i, info := range infos {
			fmt.Fprintf(out, "\n[%d] ", i+1)
			printNutrition(out, info)
		}
		return nil
	},
}

func initLookupCmds() {
	lookupCmd.Flags().BoolVar(&jsonFlag, "json", false, "Print the nutrition panel as JSON")
	searchCmd.Flags().BoolVar(&jsonFlag, "json", false, "Print results as JSON")
	searchCmd.Flags().IntVar(&pageFlag, "page", 1, "Result page, starting at 1")
	searchCmd.Flags().IntVar(&pageSizeFlag, "page-size", openfoodfacts.DefaultPageSize, "Results per page (max 100)")
}
