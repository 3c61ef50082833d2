package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
	"google.golang.org/api/googleapi"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"bankrecon/internal/core"
	ports "bankrecon/internal/sheets"
)

const (
	DefaultCategoriesSheet = "Categories"
	DefaultBudgetsSheet    = "Budgets"

	// Values are written RAW so dates and amounts read back byte-exact,
	// which keeps signatures stable.
	valueInputOption = "RAW"
)

var (
	LedgerHeaders   = []string{"S No", "Date", "Cheque No", "Description", "Withdrawal", "Deposit", "Balance", "Category"}
	BudgetHeaders   = []string{"Bank", "Month", "Category", "Amount"}
	CategoryHeaders = []string{"Category"}
)

type Client struct {
	svc             *gsheet.Service
	spreadsheetID   string
	worksheets      map[core.BankID]string
	categoriesSheet string
	budgetsSheet    string

	// mu serializes read-modify-write cycles on a worksheet.
	mu      sync.Mutex
	ensured map[string]bool
}

var _ ports.Store = (*Client)(nil)

// Config names the spreadsheet and its worksheets.
type Config struct {
	SpreadsheetID   string
	Worksheets      map[core.BankID]string
	CategoriesSheet string
	BudgetsSheet    string
}

// New wraps an initialized Sheets service.
func New(svc *gsheet.Service, cfg Config) *Client {
	if cfg.CategoriesSheet == "" {
		cfg.CategoriesSheet = DefaultCategoriesSheet
	}
	if cfg.BudgetsSheet == "" {
		cfg.BudgetsSheet = DefaultBudgetsSheet
	}
	ws := make(map[core.BankID]string, len(cfg.Worksheets))
	for b, name := range cfg.Worksheets {
		ws[b.Normalize()] = name
	}
	return &Client{
		svc:             svc,
		spreadsheetID:   cfg.SpreadsheetID,
		worksheets:      ws,
		categoriesSheet: cfg.CategoriesSheet,
		budgetsSheet:    cfg.BudgetsSheet,
		ensured:         make(map[string]bool),
	}
}

// NewFromEnv creates a Sheets client from environment variables.
// Required: GOOGLE_SPREADSHEET_ID and service account credentials.
// Optional: GOOGLE_CATEGORIES_SHEET_NAME, GOOGLE_BUDGETS_SHEET_NAME.
func NewFromEnv(ctx context.Context, worksheets map[core.BankID]string) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return New(svc, Config{
		SpreadsheetID:   spreadsheetID,
		Worksheets:      worksheets,
		CategoriesSheet: strings.TrimSpace(os.Getenv("GOOGLE_CATEGORIES_SHEET_NAME")),
		BudgetsSheet:    strings.TrimSpace(os.Getenv("GOOGLE_BUDGETS_SHEET_NAME")),
	}), nil
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
// Uses GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	credentialsJSON, err := serviceAccountCredentials()
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "Creating Google Sheets service with Service Account",
		"credentials_size", len(credentialsJSON),
		"scope", gsheet.SpreadsheetsScope)

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

func serviceAccountCredentials() ([]byte, error) {
	if js := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON")); js != "" {
		return []byte(js), nil
	}
	file := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	if file == "" {
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read service account file: %w", err)
	}
	return data, nil
}

// Worksheet returns the ledger worksheet of bank. Unmapped banks use
// "<bank>_transactions".
func (c *Client) Worksheet(bank core.BankID) string {
	if ws, ok := c.worksheets[bank.Normalize()]; ok && ws != "" {
		return ws
	}
	return strings.ToLower(string(bank.Normalize())) + "_transactions"
}

// Prepare creates every missing worksheet with its header row. Bank
// worksheets are created concurrently.
func (c *Client) Prepare(ctx context.Context) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	existing, err := c.sheetTitles(ctx)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	create := func(title string, seed [][]any) {
		if existing[title] {
			return
		}
		g.Go(func() error { return c.createSheet(gctx, title, seed) })
	}
	create(c.categoriesSheet, categoryValues(core.DefaultCategories))
	create(c.budgetsSheet, [][]any{anyRow(BudgetHeaders)})
	for b := range c.worksheets {
		create(c.Worksheet(b), [][]any{anyRow(LedgerHeaders)})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.ensured[c.categoriesSheet] = true
	c.ensured[c.budgetsSheet] = true
	for b := range c.worksheets {
		c.ensured[c.Worksheet(b)] = true
	}
	return nil
}

func (c *Client) ListCategories(ctx context.Context) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureLocked(ctx, c.categoriesSheet, categoryValues(core.DefaultCategories)); err != nil {
		return nil, err
	}
	values, err := c.read(ctx, c.categoriesSheet, "A:A")
	if err != nil {
		return nil, fmt.Errorf("failed to read categories: %w", err)
	}
	return parseCategories(values), nil
}

func (c *Client) SaveCategories(ctx context.Context, categories []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureLocked(ctx, c.categoriesSheet, nil); err != nil {
		return err
	}
	return c.rewrite(ctx, c.categoriesSheet, "A:A", categoryValues(categories))
}

func (c *Client) ListLedger(ctx context.Context, bank core.BankID) ([]core.RawTransaction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.listLedgerLocked(ctx, bank)
}

func (c *Client) listLedgerLocked(ctx context.Context, bank core.BankID) ([]core.RawTransaction, error) {
	ws := c.Worksheet(bank)
	if err := c.ensureLocked(ctx, ws, [][]any{anyRow(LedgerHeaders)}); err != nil {
		return nil, err
	}
	values, err := c.read(ctx, ws, "A:H")
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger %s: %w", ws, err)
	}
	return parseLedger(values), nil
}

// ReplaceDates rewrites the whole worksheet in a single update.
func (c *Client) ReplaceDates(ctx context.Context, bank core.BankID, dates []string, rows []core.RawTransaction) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	existing, err := c.listLedgerLocked(ctx, bank)
	if err != nil {
		return err
	}
	merged := core.MergeLedger(existing, dates, rows)
	ws := c.Worksheet(bank)
	if err := c.rewrite(ctx, ws, "A:H", ledgerValues(merged)); err != nil {
		return err
	}
	slog.DebugContext(ctx, "Ledger worksheet rewritten", "worksheet", ws, "rows", len(merged))
	return nil
}

func (c *Client) ListBudgets(ctx context.Context, bank core.BankID, monthYear string) ([]core.Budget, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	all, err := c.listBudgetsLocked(ctx)
	if err != nil {
		return nil, err
	}
	var out []core.Budget
	for _, b := range all {
		if b.Bank == bank.Normalize() && b.MonthYear == monthYear {
			out = append(out, b)
		}
	}
	return out, nil
}

func (c *Client) listBudgetsLocked(ctx context.Context) ([]core.Budget, error) {
	if err := c.ensureLocked(ctx, c.budgetsSheet, [][]any{anyRow(BudgetHeaders)}); err != nil {
		return nil, err
	}
	values, err := c.read(ctx, c.budgetsSheet, "A:D")
	if err != nil {
		return nil, fmt.Errorf("failed to read budgets: %w", err)
	}
	return parseBudgets(values), nil
}

func (c *Client) SetBudget(ctx context.Context, b core.Budget) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	all, err := c.listBudgetsLocked(ctx)
	if err != nil {
		return err
	}
	b.Bank = b.Bank.Normalize()
	replaced := false
	for i := range all {
		if all[i].BudgetKey == b.BudgetKey {
			all[i] = b
			replaced = true
		}
	}
	if !replaced {
		all = append(all, b)
	}
	return c.rewrite(ctx, c.budgetsSheet, "A:D", budgetValues(all))
}

// ensureLocked creates title with seed rows when it does not exist yet.
func (c *Client) ensureLocked(ctx context.Context, title string, seed [][]any) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	if c.ensured[title] {
		return nil
	}
	existing, err := c.sheetTitles(ctx)
	if err != nil {
		return err
	}
	if !existing[title] {
		if err := c.createSheet(ctx, title, seed); err != nil {
			return err
		}
	}
	c.ensured[title] = true
	return nil
}

func (c *Client) sheetTitles(ctx context.Context) (map[string]bool, error) {
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).
		Fields(googleapi.Field("sheets.properties.title")).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read spreadsheet metadata: %w", err)
	}
	titles := make(map[string]bool, len(ss.Sheets))
	for _, s := range ss.Sheets {
		if s.Properties != nil {
			titles[s.Properties.Title] = true
		}
	}
	return titles, nil
}

func (c *Client) createSheet(ctx context.Context, title string, seed [][]any) error {
	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: title}},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add worksheet %s: %w", title, err)
	}
	slog.InfoContext(ctx, "Created worksheet", "worksheet", title)
	if len(seed) == 0 {
		return nil
	}
	return c.write(ctx, title, seed)
}

func (c *Client) read(ctx context.Context, sheet, cols string) ([][]any, error) {
	rng := fmt.Sprintf("%s!%s", sheet, cols)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return resp.Values, nil
}

func (c *Client) write(ctx context.Context, sheet string, values [][]any) error {
	rng := fmt.Sprintf("%s!A1", sheet)
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, &gsheet.ValueRange{Values: values}).
		ValueInputOption(valueInputOption).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update %s: %w", rng, err)
	}
	return nil
}

// rewrite clears cols of sheet and writes values from A1.
func (c *Client) rewrite(ctx context.Context, sheet, cols string, values [][]any) error {
	rng := fmt.Sprintf("%s!%s", sheet, cols)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", rng, err)
	}
	return c.write(ctx, sheet, values)
}
