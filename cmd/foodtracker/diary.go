package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/unowned-ai/foodtracker/pkg/diary"
	"github.com/unowned-ai/foodtracker/pkg/nutrition"
)

var (
	dateFlag     string
	mealFlag     string
	jsonFlag     bool
	barcodeFlag  string
	foodNameFlag string
	caloriesFlag float64
	proteinFlag  float64
	carbsFlag    float64
	fatFlag      float64
	servingFlag  string
	confirmFlag  bool
)

var diaryCmd = &cobra.Command{
	Use:   "diary",
	Short: "Show and edit the food diary",
	Long:  `Show a day of the diary, add food to a meal, list logged days, or wipe the diary.`,
}

var diaryShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show one day grouped by meal",
	RunE: func(cmd *cobra.Command, args []string) error {
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
		ctrl.Reload(cmd.Context())
		if jsonFlag {
			return printJSON(cmd.OutOrStdout(), diary.DailyDiary{Date: diary.DayKey(day), Entries: diary.Flatten(ctrl.Sections())})
		}
		printDiary(cmd.OutOrStdout(), ctrl)
		return nil
	},
}

var diaryAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add food to a meal",
	Long: `Add food to a meal, either from Open Food Facts by barcode or as a manual entry.

Examples:
  foodtracker diary add --meal breakfast --barcode 3017620422003
  foodtracker diary add --meal snack --name Apple --calories 95 --carbs 25`,
	RunE: func(cmd *cobra.Command, args []string) error {
		meal, err := diary.ParseMealType(mealFlag)
		if err != nil {
			return err
		}
		day, err := parseDayFlag(dateFlag)
		if err != nil {
			return err
		}

		var entry diary.FoodEntry
		switch {
		case barcodeFlag != "":
			product, err := newClient().LookupByBarcode(cmd.Context(), barcodeFlag)
			if err != nil {
				return fmt.Errorf("failed to look up barcode %s: %w", barcodeFlag, err)
			}
			entry = nutrition.Normalize(product, meal)
		case foodNameFlag != "":
			entry = diary.FoodEntry{
				FoodName:    foodNameFlag,
				Calories:    caloriesFlag,
				Protein:     proteinFlag,
				Carbs:       carbsFlag,
				Fat:         fatFlag,
				ServingSize: servingFlag,
			}
		default:
			return errors.New("either --barcode or --name is required")
		}

		dbConn, err := openDB()
		if err != nil {
			return err
		}
		defer dbConn.Close()

		ctrl := diary.NewController(newDiaryStore(dbConn), day, log)
		added, err := ctrl.AddEntry(cmd.Context(), meal, entry)
		if err != nil {
			return fmt.Errorf("failed to save entry: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Added to %s on %s:\n", meal.Title(), diary.DayKey(day))
		printEntry(cmd.OutOrStdout(), added)
		return nil
	},
}

var diaryDaysCmd = &cobra.Command{
	Use:   "days",
	Short: "List days that have entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		dbConn, err := openDB()
		if err != nil {
			return err
		}
		defer dbConn.Close()

		days, err := newDiaryStore(dbConn).ListDays(cmd.Context())
		if err != nil {
			return err
		}
		if jsonFlag {
			return printJSON(cmd.OutOrStdout(), days)
		}
		if len(days) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No days logged yet.")
			return nil
		}
		for _, d := range days {
			fmt.Fprintln(cmd.OutOrStdout(), d)
		}
		return nil
	},
}

var diaryResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete every diary day (irreversible)",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !confirmFlag {
			return errors.New("refusing to delete the diary without --yes")
		}

		dbConn, err := openDB()
		if err != nil {
			return err
		}
		defer dbConn.Close()

		n, err := newDiaryStore(dbConn).DeleteAllEntries(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Deleted %d diary day(s).\n", n)
		return nil
	},
}

func initDiaryCmd() {
	for _, c := range []*cobra.Command{diaryShowCmd, diaryAddCmd} {
		c.Flags().StringVar(&dateFlag, "date", "today", "Day as YYYY-MM-DD, today or yesterday")
	}
	diaryShowCmd.Flags().BoolVar(&jsonFlag, "json", false, "Print the day as JSON")
	diaryDaysCmd.Flags().BoolVar(&jsonFlag, "json", false, "Print the days as a JSON array")

	diaryAddCmd.Flags().StringVar(&mealFlag, "meal", "", "Meal: breakfast, lunch, dinner or snack")
	diaryAddCmd.Flags().StringVar(&barcodeFlag, "barcode", "", "Look the product up by barcode")
	diaryAddCmd.Flags().StringVar(&foodNameFlag, "name", "", "Food name for a manual entry")
	diaryAddCmd.Flags().Float64Var(&caloriesFlag, "calories", 0, "kcal for a manual entry")
	diaryAddCmd.Flags().Float64Var(&proteinFlag, "protein", 0, "Protein grams for a manual entry")
	diaryAddCmd.Flags().Float64Var(&carbsFlag, "carbs", 0, "Carbohydrate grams for a manual entry")
	diaryAddCmd.Flags().Float64Var(&fatFlag, "fat", 0, "Fat grams for a manual entry")
	diaryAddCmd.Flags().StringVar(&servingFlag, "serving", "", "Serving description for a manual entry")
	diaryAddCmd.MarkFlagRequired("meal")
	diaryAddCmd.MarkFlagsMutuallyExclusive("barcode", "name")

	diaryResetCmd.Flags().BoolVar(&confirmFlag, "yes", false, "Confirm deleting every day")

	diaryCmd.AddCommand(diaryShowCmd, diaryAddCmd, diaryDaysCmd, diaryResetCmd)
}
