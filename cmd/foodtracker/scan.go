package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/unowned-ai/foodtracker/pkg/diary"
	"github.com/unowned-ai/foodtracker/pkg/nutrition"
	"github.com/unowned-ai/foodtracker/pkg/scan"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan a barcode and add the product to a meal",
	Long: `Start a scan session reading barcodes from stdin, one per line, as sent by a
keyboard-wedge scanner or typed by hand. The first barcode is looked up; confirm with
"y" to add it to the meal, "r" to scan another one, or "n" to cancel.
A failed lookup ends the session without saving anything.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		meal, err := diary.ParseMealType(mealFlag)
		if err != nil {
			return err
		}
		day, err := parseDayFlag(dateFlag)
		if err != nil {
			return err
		}

		dbConn, err := openDB()
		if err != nil {
			return err
		}
		defer dbConn.Close()

		ctrl := diary.NewController(newDiaryStore(dbConn), day, log)
		session := scan.NewSession(newClient(),
			scan.WithLogger(log),
			scan.WithAcceptFunc(func(ctx context.Context, entry diary.FoodEntry) error {
				_, err := ctrl.AddEntry(ctx, entry.MealType, entry)
				return err
			}),
		)
		return runScan(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), session, meal)
	},
}

// runScan drives session from line input until it closes.
func runScan(ctx context.Context, in io.Reader, out io.Writer, session *scan.Session, meal diary.MealType) error {
	defer session.Close()
	lines := bufio.NewScanner(in)

	fmt.Fprintf(out, "Scanning for %s. Enter a barcode (empty line to quit):\n", strings.ToLower(meal.Title()))
	for lines.Scan() {
		line := strings.TrimSpace(lines.Text())

		switch session.State() {
		case scan.Idle:
			if line == "" {
				fmt.Fprintln(out, "Scan cancelled.")
				return nil
			}
			d := scan.Detection{Type: scan.GuessFormat(line), Data: line}
			product, err := session.Detect(ctx, d)
			if err != nil {
				return fmt.Errorf("scan failed for %s: %w", line, err)
			}
			printNutrition(out, nutrition.Describe(product))
			fmt.Fprintf(out, "Add to %s? [y]es / [r]escan / [n]o: ", strings.ToLower(meal.Title()))

		case scan.Resolved:
			switch strings.ToLower(line) {
			case "y", "yes":
				entry, err := session.Accept(ctx, meal)
				if err != nil {
					return fmt.Errorf("failed to save entry: %w", err)
				}
				fmt.Fprintf(out, "Added %s (%s kcal) to %s.\n", entry.FoodName, nutrition.FormatAmount(entry.Calories), strings.ToLower(meal.Title()))
				return nil
			case "r", "rescan":
				if err := session.Rescan(); err != nil {
					return err
				}
				fmt.Fprintln(out, "Enter a barcode:")
			case "n", "no", "":
				fmt.Fprintln(out, "Scan cancelled.")
				return nil
			default:
				fmt.Fprint(out, "Please answer y, r or n: ")
			}

		default:
			return nil
		}
	}
	return lines.Err()
}

func initScanCmd() {
	scanCmd.Flags().StringVar(&mealFlag, "meal", "", "Meal: breakfast, lunch, dinner or snack")
	scanCmd.Flags().StringVar(&dateFlag, "date", "today", "Day as YYYY-MM-DD, today or yesterday")
	scanCmd.MarkFlagRequired("meal")
}
