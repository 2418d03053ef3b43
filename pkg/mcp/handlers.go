package mcp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/unowned-ai/foodtracker/pkg/diary"
	"github.com/unowned-ai/foodtracker/pkg/nutrition"
	"github.com/unowned-ai/foodtracker/pkg/openfoodfacts"
)

// ProductLookup is the Open Food Facts capability the tools need.
type ProductLookup interface {
	LookupByBarcode(ctx context.Context, barcode string) (openfoodfacts.Product, error)
	LookupByName(ctx context.Context, query string, opts openfoodfacts.SearchOptions) (openfoodfacts.SearchResults, error)
}

// Tools holds the dependencies shared by every tool handler.
type Tools struct {
	store    *diary.Store
	lookup   ProductLookup
	log      *zap.SugaredLogger
	pageSize int
	now      func() time.Time
}

type ToolsOption func(*Tools)

func WithPageSize(n int) ToolsOption {
	return func(t *Tools) { t.pageSize = n }
}

// WithClock replaces time.Now for resolving "today".
func WithClock(now func() time.Time) ToolsOption {
	return func(t *Tools) { t.now = now }
}

func NewTools(store *diary.Store, lookup ProductLookup, log *zap.SugaredLogger, opts ...ToolsOption) *Tools {
	t := &Tools{
		store:    store,
		lookup:   lookup,
		log:      log,
		pageSize: openfoodfacts.DefaultPageSize,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Register adds every foodtracker tool to s.
func (t *Tools) Register(s *server.MCPServer) {
	s.AddTool(mcp.NewTool("ping",
		mcp.WithDescription("Responds with 'pong' to check if the FoodTracker MCP server is alive."),
	), t.handlePing)

	s.AddTool(mcp.NewTool("lookup_barcode",
		mcp.WithDescription("Looks a product up in Open Food Facts by barcode and returns its nutrition panel."),
		mcp.WithString("barcode", mcp.Required(), mcp.Description("EAN/UPC barcode digits, e.g. 3017620422003.")),
	), t.handleLookupBarcode)

	s.AddTool(mcp.NewTool("search_products",
		mcp.WithDescription("Searches Open Food Facts products by name."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Free-text product name.")),
		mcp.WithNumber("page", mcp.Description("Page number, starting at 1.")),
		mcp.WithNumber("page_size", mcp.Description("Results per page (max 100).")),
	), t.handleSearchProducts)

	s.AddTool(mcp.NewTool("get_diary",
		mcp.WithDescription("Returns one day of the food diary grouped into breakfast, lunch, dinner and snacks."),
		mcp.WithString("date", mcp.Description("Day as YYYY-MM-DD. Defaults to today.")),
	), t.handleGetDiary)

	s.AddTool(mcp.NewTool("add_entry",
		mcp.WithDescription("Adds a food to a meal. Give a barcode to use Open Food Facts data, or a food_name with macros for a manual entry."),
		mcp.WithString("meal", mcp.Required(), mcp.Description("breakfast, lunch, dinner or snack.")),
		mcp.WithString("date", mcp.Description("Day as YYYY-MM-DD. Defaults to today.")),
		mcp.WithString("barcode", mcp.Description("Product barcode to look up.")),
		mcp.WithString("food_name", mcp.Description("Name for a manual entry.")),
		mcp.WithNumber("calories", mcp.Description("kcal for a manual entry.")),
		mcp.WithNumber("protein", mcp.Description("Protein grams for a manual entry.")),
		mcp.WithNumber("carbs", mcp.Description("Carbohydrate grams for a manual entry.")),
		mcp.WithNumber("fat", mcp.Description("Fat grams for a manual entry.")),
		mcp.WithString("serving_size", mcp.Description("Serving description for a manual entry, e.g. 30g.")),
	), t.handleAddEntry)

	s.AddTool(mcp.NewTool("list_days",
		mcp.WithDescription("Lists every day that has diary entries, oldest first."),
	), t.handleListDays)

	s.AddTool(mcp.NewTool("reset_diary",
		mcp.WithDescription("Deletes every diary day. Irreversible."),
		mcp.WithBoolean("confirm", mcp.Required(), mcp.Description("Must be true.")),
	), t.handleResetDiary)
}

func (t *Tools) handlePing(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText("pong_foodtracker"), nil
}

type productResult struct {
	Variant   string                  `json:"variant"`
	Product   openfoodfacts.Product   `json:"product"`
	Nutrition nutrition.NutritionInfo `json:"nutrition"`
}

func describeProduct(p openfoodfacts.Product) productResult {
	variant := "unrecognized"
	switch p.(type) {
	case openfoodfacts.PerServingProduct:
		variant = "per_serving"
	case openfoodfacts.Per100gProduct:
		variant = "per_100g"
	}
	return productResult{Variant: variant, Product: p, Nutrition: nutrition.Describe(p)}
}

func (t *Tools) handleLookupBarcode(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	barcode := stringArg(request, "barcode")
	if barcode == "" {
		return mcp.NewToolResultError("'barcode' parameter is required and must be a non-empty string."), nil
	}

	product, err := t.lookup.LookupByBarcode(ctx, barcode)
	if err != nil {
		return lookupError(barcode, err), nil
	}
	return jsonResult(describeProduct(product))
}

func lookupError(barcode string, err error) *mcp.CallToolResult {
	if errors.Is(err, openfoodfacts.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("No product found for barcode '%s'.", barcode))
	}
	return mcp.NewToolResultError(fmt.Sprintf("Failed to look up barcode '%s': %v", barcode, err))
}

func (t *Tools) handleSearchProducts(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := stringArg(request, "query")
	if query == "" {
		return mcp.NewToolResultError("'query' parameter is required and must be a non-empty string."), nil
	}
	opts := openfoodfacts.SearchOptions{PageSize: t.pageSize}
	if page, ok := numberArg(request, "page"); ok {
		opts.Page = int(page)
	}
	if size, ok := numberArg(request, "page_size"); ok {
		opts.PageSize = int(size)
	}

	res, err := t.lookup.LookupByName(ctx, query, opts)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to search products for '%s': %v", query, err)), nil
	}

	out := struct {
		Source   string          `json:"source"`
		Count    int             `json:"count"`
		Page     int             `json:"page"`
		PageSize int             `json:"page_size"`
		Products []productResult `json:"products"`
	}{Source: res.Source, Count: res.Count, Page: res.Page, PageSize: res.PageSize, Products: []productResult{}}
	for _, p := range res.Products {
		out.Products = append(out.Products, describeProduct(p))
	}
	return jsonResult(out)
}

type sectionView struct {
	Title    string            `json:"title"`
	MealType diary.MealType    `json:"mealType"`
	Calories float64           `json:"calories"`
	Entries  []diary.FoodEntry `json:"entries"`
}

type diaryView struct {
	Date          string        `json:"date"`
	Label         string        `json:"label"`
	TotalCalories float64       `json:"totalCalories"`
	Sections      []sectionView `json:"sections"`
}

func (t *Tools) diaryView(ctx context.Context, day time.Time) diaryView {
	ctrl := diary.NewController(t.store, day, t.log)
	ctrl.Reload(ctx)
	view := diaryView{
		Date:          diary.DayKey(day),
		Label:         ctrl.DateLabel(t.now()),
		TotalCalories: ctrl.TotalCalories(),
	}
	for _, s := range ctrl.Sections() {
		view.Sections = append(view.Sections, sectionView{
			Title:    s.Title,
			MealType: s.MealType,
			Calories: s.Calories(),
			Entries:  s.Entries,
		})
	}
	return view
}

func (t *Tools) handleGetDiary(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	day, err := t.dayArg(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(t.diaryView(ctx, day))
}

func (t *Tools) handleAddEntry(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	meal, err := diary.ParseMealType(stringArg(request, "meal"))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	day, err := t.dayArg(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var entry diary.FoodEntry
	if barcode := stringArg(request, "barcode"); barcode != "" {
		product, err := t.lookup.LookupByBarcode(ctx, barcode)
		if err != nil {
			return lookupError(barcode, err), nil
		}
		entry = nutrition.Normalize(product, meal)
	} else {
		name := stringArg(request, "food_name")
		if name == "" {
			return mcp.NewToolResultError("Either 'barcode' or 'food_name' is required."), nil
		}
		entry = diary.FoodEntry{FoodName: name, ServingSize: stringArg(request, "serving_size")}
		entry.Calories, _ = numberArg(request, "calories")
		entry.Protein, _ = numberArg(request, "protein")
		entry.Carbs, _ = numberArg(request, "carbs")
		entry.Fat, _ = numberArg(request, "fat")
	}

	ctrl := diary.NewController(t.store, day, t.log)
	added, err := ctrl.AddEntry(ctx, meal, entry)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to add entry: %v", err)), nil
	}
	return jsonResult(added)
}

func (t *Tools) handleListDays(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	days, err := t.store.ListDays(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list days: %v", err)), nil
	}
	return jsonResult(days)
}

func (t *Tools) handleResetDiary(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if !boolArg(request, "confirm") {
		return mcp.NewToolResultError("'confirm' must be true to delete the whole diary."), nil
	}
	n, err := t.store.DeleteAllEntries(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to reset diary: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Deleted %d diary day(s).", n)), nil
}
