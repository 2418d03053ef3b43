package main

import (
	"github.com/spf13/cobra"

	"github.com/unowned-ai/foodtracker/pkg/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Show terminal UI",
	Long:  `Display the interactive diary: switch days, browse meals, and add food by scanning or searching.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dbConn, err := openDB()
		if err != nil {
			return err
		}
		defer dbConn.Close()

		return tui.ShowTUI(dbConn, tui.Options{
			Lookup:   newClient(),
			Log:      log,
			PageSize: cfg.PageSize,
		})
	},
}
