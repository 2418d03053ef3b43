package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"time"

	foodtracker "github.com/unowned-ai/foodtracker/pkg"
	pkgdb "github.com/unowned-ai/foodtracker/pkg/db"
	"github.com/unowned-ai/foodtracker/pkg/diary"
	"github.com/unowned-ai/foodtracker/pkg/kv"
	"github.com/unowned-ai/foodtracker/pkg/nutrition"
	"github.com/unowned-ai/foodtracker/pkg/openfoodfacts"
	"github.com/unowned-ai/foodtracker/pkg/utils"
)

func resolveDBPath() (string, error) {
	return utils.ResolveAndEnsureDBPath(cfg.DBPath)
}

// openDB opens the configured database and brings its schema up to date.
func openDB() (*sql.DB, error) {
	path, err := resolveDBPath()
	if err != nil {
		return nil, err
	}
	dbConn, err := pkgdb.OpenDBConnection(path, cfg.WAL, cfg.Sync)
	if err != nil {
		return nil, err
	}
	if err := pkgdb.UpgradeDB(dbConn, path, pkgdb.TargetSchemaVersion, log); err != nil {
		dbConn.Close()
		return nil, err
	}
	return dbConn, nil
}

func newDiaryStore(dbConn *sql.DB) *diary.Store {
	return diary.NewStore(kv.NewSQLiteStore(dbConn), log)
}

func newClient() *openfoodfacts.Client {
	return openfoodfacts.NewClient(cfg.ClientOptions(foodtracker.Version, log)...)
}

// parseDayFlag reads a --date value: empty or "today" for today, otherwise YYYY-MM-DD.
func parseDayFlag(value string) (time.Time, error) {
	switch value {
	case "", "today":
		return time.Now(), nil
	case "yesterday":
		return time.Now().AddDate(0, 0, -1), nil
	}
	return diary.ParseDay(value, time.Local)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printEntry(w io.Writer, e diary.FoodEntry) {
	fmt.Fprintf(w, "  #%-3d %s", e.ID, e.FoodName)
	if e.ServingSize != "" {
		fmt.Fprintf(w, " (%s)", e.ServingSize)
	}
	fmt.Fprintf(w, "\n       %s kcal  P %s g  C %s g  F %s g\n",
		nutrition.FormatAmount(e.Calories), nutrition.FormatAmount(e.Protein),
		nutrition.FormatAmount(e.Carbs), nutrition.FormatAmount(e.Fat))
}

func printDiary(w io.Writer, ctrl *diary.Controller) {
	fmt.Fprintf(w, "%s - %s\n", ctrl.DateLabel(time.Now()), ctrl.FullDateLabel())
	fmt.Fprintln(w, "------------------------------------------------------------")
	for _, s := range ctrl.Sections() {
		fmt.Fprintf(w, "%s (%s kcal)\n", s.Title, nutrition.FormatAmount(s.Calories()))
		for _, e := range s.Entries {
			printEntry(w, e)
		}
		if len(s.Entries) == 0 {
			fmt.Fprintf(w, "  + %s\n", s.AddLabel())
		}
	}
	fmt.Fprintln(w, "------------------------------------------------------------")
	fmt.Fprintf(w, "Total: %s kcal\n", nutrition.FormatAmount(ctrl.TotalCalories()))
}

func printNutrition(w io.Writer, info nutrition.NutritionInfo) {
	fmt.Fprintf(w, "Product:  %s\n", info.Name)
	if info.Brands != "" {
		fmt.Fprintf(w, "Brands:   %s\n", info.Brands)
	}
	if info.Code != "" {
		fmt.Fprintf(w, "Barcode:  %s\n", info.Code)
	}
	fmt.Fprintf(w, "Nutrition %s\n", info.Heading)
	for _, r := range info.Rows {
		fmt.Fprintf(w, "  %s\n", r)
	}
}
