// Package tui is the interactive diary screen: day navigation, the four meal
// sections, and search and scan flows for adding food.
package tui

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	textinput "github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/unowned-ai/foodtracker/pkg/diary"
	"github.com/unowned-ai/foodtracker/pkg/kv"
	"github.com/unowned-ai/foodtracker/pkg/nutrition"
	"github.com/unowned-ai/foodtracker/pkg/openfoodfacts"
	"github.com/unowned-ai/foodtracker/pkg/scan"
)

// ProductLookup is the Open Food Facts capability the screen needs.
type ProductLookup interface {
	scan.Lookup
	LookupByName(ctx context.Context, query string, opts openfoodfacts.SearchOptions) (openfoodfacts.SearchResults, error)
}

type mode int

const (
	modeDiary mode = iota
	modeSearch
	modeScan
)

// row is one selectable line of the middle column: an entry or a section's add affordance.
type row struct {
	meal  diary.MealType
	entry *diary.FoodEntry
}

type model struct {
	ctrl   *diary.Controller
	lookup ProductLookup
	log    *zap.SugaredLogger
	now    func() time.Time

	mode        mode
	rows        []row
	cursor      int
	activeMeal  diary.MealType
	pageSize    int
	width       int
	height      int
	status      string
	statusIsErr bool
	quitting    bool

	dbFilename string
	mcpUsage   bool

	// Search modal
	searchInput   textinput.Model
	searching     bool
	searchResults []openfoodfacts.Product
	resultCursor  int
	searchFocus   int // 0 = query input, 1 = result list

	// Scan modal
	barcodeInput textinput.Model
	session      *scan.Session
	looking      bool

	// Animation state
	marqueeOffset int
	marqueeTimer  int
}

// Initialize TUI model on today's diary
func initModel(store diary.EntryStore, lookup ProductLookup, log *zap.SugaredLogger, now func() time.Time) model {
	query := textinput.New()
	query.Placeholder = "Product name, e.g. greek yogurt"
	query.CharLimit = 128

	barcode := textinput.New()
	barcode.Placeholder = "Scan or type a barcode"
	barcode.CharLimit = 64

	m := model{
		ctrl:         diary.NewController(store, now(), log),
		lookup:       lookup,
		log:          log,
		now:          now,
		pageSize:     openfoodfacts.DefaultPageSize,
		activeMeal:   diary.MealBreakfast,
		searchInput:  query,
		barcodeInput: barcode,
	}
	m.reload()
	return m
}

func (m model) Init() tea.Cmd {
	return tick()
}

// reload re-reads the current day and rebuilds the selectable rows, keeping the cursor in range.
func (m *model) reload() {
	m.ctrl.Reload(context.Background())
	m.rows = nil
	for _, s := range m.ctrl.Sections() {
		for i := range s.Entries {
			m.rows = append(m.rows, row{meal: s.MealType, entry: &s.Entries[i]})
		}
		m.rows = append(m.rows, row{meal: s.MealType})
	}
	if m.cursor >= len(m.rows) {
		m.cursor = len(m.rows) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m model) selectedMeal() diary.MealType {
	if m.cursor < len(m.rows) {
		return m.rows[m.cursor].meal
	}
	return diary.MealBreakfast
}

func (m *model) setStatus(text string, isErr bool) {
	m.status, m.statusIsErr = text, isErr
}

func (m *model) openSearch(meal diary.MealType) tea.Cmd {
	m.mode = modeSearch
	m.activeMeal = meal
	m.searchFocus = 0
	m.searching = false
	m.searchResults = nil
	m.resultCursor = 0
	m.searchInput.Reset()
	return m.searchInput.Focus()
}

func (m *model) openScan(meal diary.MealType) tea.Cmd {
	m.mode = modeScan
	m.activeMeal = meal
	m.looking = false
	ctrl := m.ctrl
	m.session = scan.NewSession(m.lookup,
		scan.WithLogger(m.log),
		scan.WithAcceptFunc(func(ctx context.Context, entry diary.FoodEntry) error {
			_, err := ctrl.AddEntry(ctx, entry.MealType, entry)
			return err
		}),
	)
	m.barcodeInput.Reset()
	return m.barcodeInput.Focus()
}

func (m *model) closeModal() {
	if m.session != nil {
		m.session.Close()
		m.session = nil
	}
	m.searchInput.Blur()
	m.barcodeInput.Blur()
	m.looking = false
	m.searching = false
	m.mode = modeDiary
	m.reload()
}

// Processes events like window resize, lookup results, and key presses
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tickMsg:
		// Update marquee animation every x ticks (adjust for speed)
		m.marqueeTimer++
		if m.marqueeTimer >= 10 {
			m.marqueeTimer = 0
			m.marqueeOffset++
		}
		return m, tick()

	case scanResultMsg:
		return m.handleScanResult(msg)

	case searchResultMsg:
		if m.mode != modeSearch || msg.query != strings.TrimSpace(m.searchInput.Value()) {
			// Stale result for a closed modal or an older query
			return m, nil
		}
		m.searching = false
		if msg.err != nil {
			m.setStatus(fmt.Sprintf("Search failed: %v", msg.err), true)
			return m, nil
		}
		m.searchResults = msg.results.Products
		m.resultCursor = 0
		if len(m.searchResults) == 0 {
			m.setStatus(fmt.Sprintf("No products found for %q", msg.query), false)
			return m, nil
		}
		m.setStatus(fmt.Sprintf("%d of %d results from %s", len(m.searchResults), msg.results.Count, msg.results.Source), false)
		m.searchFocus = 1
		m.searchInput.Blur()
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m.quit()
		}
		switch m.mode {
		case modeSearch:
			return m.updateSearch(msg)
		case modeScan:
			return m.updateScan(msg)
		}
		return m.updateDiary(msg)
	}
	return m, nil
}

func (m model) quit() (tea.Model, tea.Cmd) {
	if m.session != nil {
		m.session.Close()
	}
	m.quitting = true
	// Exit alt screen before quitting so the goodbye message displays
	return m, tea.Sequence(tea.ExitAltScreen, tea.Quit)
}

// Root navigation: day switching, section cursor and opening modals
func (m model) updateDiary(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	ctx := context.Background()
	switch msg.String() {
	case "q":
		return m.quit()

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}

	case "down", "j":
		if m.cursor < len(m.rows)-1 {
			m.cursor++
		}

	case "left", "h":
		m.ctrl.PreviousDay(ctx)
		m.cursor = 0
		m.reload()
		m.setStatus("", false)

	case "right", "l":
		m.ctrl.NextDay(ctx)
		m.cursor = 0
		m.reload()
		m.setStatus("", false)

	case "t":
		m.ctrl.GoToDay(ctx, m.now())
		m.cursor = 0
		m.reload()

	case "r":
		m.reload()
		m.setStatus("Reloaded", false)

	case "s", "/":
		return m, m.openSearch(m.selectedMeal())

	case "b", "enter":
		if msg.String() == "enter" && m.cursor < len(m.rows) && m.rows[m.cursor].entry != nil {
			return m, nil
		}
		return m, m.openScan(m.selectedMeal())
	}
	return m, nil
}

func (m model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.searchFocus == 1 {
		switch msg.String() {
		case "up", "k":
			if m.resultCursor > 0 {
				m.resultCursor--
			}
		case "down", "j":
			if m.resultCursor < len(m.searchResults)-1 {
				m.resultCursor++
			}
		case "enter":
			product := m.searchResults[m.resultCursor]
			entry := nutrition.Normalize(product, m.activeMeal)
			added, err := m.ctrl.AddEntry(context.Background(), m.activeMeal, entry)
			if err != nil {
				m.setStatus(fmt.Sprintf("Could not save entry: %v", err), true)
				return m, nil
			}
			m.closeModal()
			m.setStatus(fmt.Sprintf("Added %s to %s", added.FoodName, strings.ToLower(m.activeMeal.Title())), false)
		case "esc", "/":
			// Back to the query
			m.searchFocus = 0
			return m, m.searchInput.Focus()
		}
		return m, nil
	}

	switch msg.Type {
	case tea.KeyEsc:
		m.closeModal()
		return m, nil
	case tea.KeyEnter:
		query := strings.TrimSpace(m.searchInput.Value())
		if query == "" || m.searching {
			return m, nil
		}
		m.searching = true
		m.setStatus(fmt.Sprintf("Searching for %q...", query), false)
		return m, searchProducts(m.lookup, query, m.pageSize)
	}
	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	return m, cmd
}

func (m model) updateScan(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyEsc {
		m.closeModal()
		m.setStatus("Scan cancelled", false)
		return m, nil
	}
	if msg.Type == tea.KeyTab {
		m.setStatus(fmt.Sprintf("Using %s camera", m.session.ToggleFacing()), false)
		return m, nil
	}

	switch m.session.State() {
	case scan.Resolved:
		switch msg.String() {
		case "enter", "a":
			entry, err := m.session.Accept(context.Background(), m.activeMeal)
			if err != nil {
				m.setStatus(fmt.Sprintf("Could not save entry: %v", err), true)
				m.closeModal()
				return m, nil
			}
			m.closeModal()
			m.setStatus(fmt.Sprintf("Added %s to %s", entry.FoodName, strings.ToLower(m.activeMeal.Title())), false)
		case "r":
			if err := m.session.Rescan(); err == nil {
				m.barcodeInput.Reset()
				return m, m.barcodeInput.Focus()
			}
		}
		return m, nil

	case scan.Idle:
		if msg.Type == tea.KeyEnter {
			code := strings.TrimSpace(m.barcodeInput.Value())
			if code == "" {
				return m, nil
			}
			d := scan.Detection{Type: scan.GuessFormat(code), Data: code}
			m.looking = true
			m.barcodeInput.Blur()
			m.setStatus("Looking up "+code+"...", false)
			return m, detectBarcode(m.session, d)
		}
		var cmd tea.Cmd
		m.barcodeInput, cmd = m.barcodeInput.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m model) handleScanResult(msg scanResultMsg) (model, tea.Cmd) {
	if m.session == nil || m.session.ID() != msg.sessionID {
		// The scan was closed before its lookup finished
		return m, nil
	}
	m.looking = false
	var cmd tea.Cmd
	switch {
	case msg.err == nil:
		m.setStatus("Enter to add, r to rescan, esc to cancel", false)
	case errors.Is(msg.err, scan.ErrIgnored):
		m.setStatus("Unsupported barcode, try again", true)
		m.barcodeInput.Reset()
		cmd = m.barcodeInput.Focus()
	case errors.Is(msg.err, openfoodfacts.ErrNotFound):
		m.closeModal()
		m.setStatus("Product not found", true)
	default:
		m.closeModal()
		m.setStatus(fmt.Sprintf("Product lookup failed: %v", msg.err), true)
	}
	return m, cmd
}

// Assembles the UI string for each frame
func (m model) View() string {
	if m.quitting {
		return "Diary saved. Enjoy your meal.\n"
	}

	titleBar := titleStyle.Width(m.width).Render("FoodTracker - " + m.ctrl.DateLabel(m.now()))
	leftWidth, middleWidth, rightWidth := m.columnWidths()
	panelHeight := m.height - 3

	panel := func(width int, border bool) lipgloss.Style {
		s := lipgloss.NewStyle().Padding(0, 2).Width(width).Height(panelHeight)
		if border {
			s = s.Border(lipgloss.NormalBorder(), false, true, false, false).
				BorderForeground(lipgloss.Color(colorGray))
		}
		return s
	}

	columns := lipgloss.JoinHorizontal(lipgloss.Top,
		panel(leftWidth, true).Render(m.viewDay(leftWidth-bordersAndPaddingWidth)),
		panel(middleWidth, true).Render(m.viewSections(middleWidth-bordersAndPaddingWidth)),
		panel(rightWidth, false).Render(m.viewRight(rightWidth-bordersAndPaddingWidth)),
	)

	status := m.status
	if m.statusIsErr {
		status = textRedStyle.Render(status)
	}
	footerBar := footerStyle.Width(m.width).Render(m.footerText())
	return titleBar + "\n\n" + columns + "\n" + status + "\n" + footerBar
}

func (m model) footerText() string {
	switch m.mode {
	case modeSearch:
		if m.searchFocus == 1 {
			return "↑/↓ to choose • Enter to add • esc to edit query"
		}
		return "Enter to search • esc to close"
	case modeScan:
		return "Enter to look up/add • r to rescan • tab to flip camera • esc to close"
	}
	return "←/→ day • t today • ↑/↓ select • Enter/b scan • s search • r reload • q quit"
}

func (m model) viewDay(width int) string {
	var b strings.Builder
	b.WriteString(subtitleStyle.Width(width).Render(m.ctrl.DateLabel(m.now())))
	b.WriteString("\n" + m.ctrl.FullDateLabel() + "\n\n")
	b.WriteString(labelStyle.Render("Total: ") + textStyle.Render(fmt.Sprintf("%s kcal", nutrition.FormatAmount(m.ctrl.TotalCalories()))) + "\n\n")
	for _, s := range m.ctrl.Sections() {
		b.WriteString(fmt.Sprintf("%-10s %s kcal\n", s.Title, nutrition.FormatAmount(s.Calories())))
	}

	var mcpStatus, dbStatus int
	if m.mcpUsage {
		mcpStatus = 1
	}
	if m.dbFilename != "" {
		dbStatus = 1
	}
	b.WriteString(fmt.Sprintf("\nMCP server status: %v\nDatabase file: %v\n",
		TextStatusColorize(fmt.Sprint(m.mcpUsage), mcpStatus),
		TextStatusColorize(m.dbFilename, dbStatus)))
	return b.String()
}

func (m model) viewSections(width int) string {
	var b strings.Builder
	i := 0
	for _, s := range m.ctrl.Sections() {
		b.WriteString(sectionTitleStyle.Render(s.Title) + "\n")
		for _, e := range s.Entries {
			selected := m.mode == modeDiary && i == m.cursor
			line := truncate(fmt.Sprintf("%s (%s kcal)", e.FoodName, nutrition.FormatAmount(e.Calories)), width-2)
			if selected {
				line = selectedStyle.Render(line)
			}
			b.WriteString(generateLinePointer(selected, 2) + line + "\n")
			i++
		}
		selected := m.mode == modeDiary && i == m.cursor
		label := "+ " + s.AddLabel()
		if selected {
			label = selectedStyle.Render(label)
		} else {
			label = addStyle.Render(label)
		}
		b.WriteString(generateLinePointer(selected, 2) + label + "\n\n")
		i++
	}
	return b.String()
}

func (m model) viewRight(width int) string {
	var b strings.Builder
	switch m.mode {
	case modeSearch:
		b.WriteString(subtitleStyle.Width(width).Render("Search - " + m.activeMeal.Title()))
		b.WriteString("\n\n" + m.searchInput.View() + "\n\n")
		if m.searching {
			b.WriteString("Searching...\n")
		}
		for i, p := range m.searchResults {
			selected := m.searchFocus == 1 && i == m.resultCursor
			info := nutrition.Describe(p)
			name := info.Name
			if info.Brands != "" && info.Brands != info.Name {
				name += " - " + info.Brands
			}
			if selected {
				b.WriteString(generateLinePointer(true, 2) + selectedStyle.Render(m.marqueeText(name, width-2)) + "\n")
				b.WriteString(viewNutrition(info))
				continue
			}
			b.WriteString(generateLinePointer(false, 2) + truncate(name, width-2) + "\n")
		}

	case modeScan:
		b.WriteString(subtitleStyle.Width(width).Render("Scan - " + m.activeMeal.Title()))
		b.WriteString(fmt.Sprintf("\n\nCamera: %s\n\n", m.session.Facing()))
		snap := m.session.Snapshot()
		switch snap.State {
		case scan.Resolved:
			b.WriteString(viewNutrition(nutrition.Describe(snap.Product)))
			b.WriteString("\n" + addStyle.Render("Enter to add to "+strings.ToLower(m.activeMeal.Title())))
		default:
			b.WriteString(m.barcodeInput.View() + "\n\n")
			if bounds, ok := snap.Highlight(); ok || m.looking {
				b.WriteString(dangerSelectedStyle.Render(" looking up ") + "\n")
				if ok {
					b.WriteString(fmt.Sprintf("at (%.0f, %.0f) %.0fx%.0f\n", bounds.Origin.X, bounds.Origin.Y, bounds.Size.Width, bounds.Size.Height))
				}
			}
		}

	default:
		b.WriteString(subtitleStyle.Width(width).Render("Entry"))
		b.WriteString("\n\n")
		if m.cursor < len(m.rows) && m.rows[m.cursor].entry != nil {
			e := m.rows[m.cursor].entry
			b.WriteString(labelStyle.Render("Food: ") + textStyle.Render(e.FoodName) + "\n")
			b.WriteString(labelStyle.Render("Meal: ") + e.MealType.Title() + "\n")
			if e.ServingSize != "" {
				b.WriteString(labelStyle.Render("Serving: ") + e.ServingSize + "\n")
			}
			b.WriteString(fmt.Sprintf("\nCalories: %s kcal\nProtein: %s g\nCarbs: %s g\nFat: %s g\n",
				nutrition.FormatAmount(e.Calories), nutrition.FormatAmount(e.Protein),
				nutrition.FormatAmount(e.Carbs), nutrition.FormatAmount(e.Fat)))
		} else {
			b.WriteString("Press Enter to scan a barcode or s to search for " + strings.ToLower(m.selectedMeal().Title()) + ".")
		}
	}
	return b.String()
}

func viewNutrition(info nutrition.NutritionInfo) string {
	var b strings.Builder
	b.WriteString(textStyle.Bold(true).Render(info.Name) + "\n")
	b.WriteString(labelStyle.Render(info.Heading) + "\n")
	for _, r := range info.Rows {
		b.WriteString("  " + r.String() + "\n")
	}
	return b.String()
}

// Options configures ShowTUI.
type Options struct {
	Lookup   ProductLookup
	Log      *zap.SugaredLogger
	PageSize int
	MCPUsage bool
}

// Create and start the Bubble Tea TUI
func ShowTUI(db *sql.DB, opts Options) error {
	_, file := getDbPragmaList(db)

	store := diary.NewStore(kv.NewSQLiteStore(db), opts.Log)
	m := initModel(store, opts.Lookup, opts.Log, time.Now)
	m.dbFilename = filepath.Base(file)
	m.mcpUsage = opts.MCPUsage
	if opts.PageSize > 0 {
		m.pageSize = opts.PageSize
	}

	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
