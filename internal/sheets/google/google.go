package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	ports "ledger/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

const defaultIndexTTL = 2 * time.Minute

// Client mirrors history rows into one sheet, keyed by the id in column A.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string

	// row index cache: history id -> 1-based sheet row
	mu                 sync.Mutex
	rowIndex           map[int64]int
	cachedRowCount     int
	cacheExpiresAt     time.Time
	cacheValidDuration time.Duration
}

var _ ports.Mirror = (*Client)(nil)

// New creates a client for spreadsheetID/sheetName. Credentials come from
// GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or
// GOOGLE_APPLICATION_CREDENTIALS unless opts already carry them.
func New(ctx context.Context, spreadsheetID, sheetName string, opts ...goption.ClientOption) (*Client, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	if strings.TrimSpace(sheetName) == "" {
		sheetName = "History"
	}

	if len(opts) == 0 {
		creds, err := credentialsFromEnv(ctx)
		if err != nil {
			return nil, err
		}
		opts = []goption.ClientOption{
			goption.WithCredentialsJSON(creds),
			goption.WithScopes(gsheet.SpreadsheetsScope),
		}
	}

	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets service created", "spreadsheet_id", spreadsheetID, "sheet", sheetName)
	return &Client{
		svc:                svc,
		spreadsheetID:      spreadsheetID,
		sheetName:          strings.TrimSpace(sheetName),
		cacheValidDuration: defaultIndexTTL,
	}, nil
}

func credentialsFromEnv(ctx context.Context) ([]byte, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case serviceAccountJSON != "":
		slog.InfoContext(ctx, "Using inline JSON credentials")
		return []byte(serviceAccountJSON), nil
	case serviceAccountFile != "":
		slog.InfoContext(ctx, "Reading credentials from file", "path", serviceAccountFile)
		b, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

func (c *Client) UpsertRow(ctx context.Context, r ports.Row) (string, error) {
	if c.svc == nil {
		return "", ports.ErrNotConfigured
	}
	if r.HistoryID <= 0 {
		return "", fmt.Errorf("invalid history id %d", r.HistoryID)
	}

	row, found, err := c.locate(ctx, r.HistoryID)
	if err != nil {
		return "", err
	}

	rng := fmt.Sprintf("%s!A%d:G%d", c.sheetName, row, row)
	vr := &gsheet.ValueRange{Values: [][]any{r.Values()}}
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		c.invalidateRowCache()
		return "", fmt.Errorf("update %s: %w", rng, err)
	}

	c.mu.Lock()
	if c.rowIndex != nil {
		c.rowIndex[r.HistoryID] = row
		if !found && row > c.cachedRowCount {
			c.cachedRowCount = row
		}
	}
	c.mu.Unlock()

	return rng, nil
}

func (c *Client) ClearRow(ctx context.Context, historyID int64) error {
	if c.svc == nil {
		return ports.ErrNotConfigured
	}

	row, found, err := c.locate(ctx, historyID)
	if err != nil {
		return err
	}
	if !found {
		slog.DebugContext(ctx, "No mirrored row to clear", "history_id", historyID)
		return nil
	}

	rng := fmt.Sprintf("%s!A%d:G%d", c.sheetName, row, row)
	_, err = c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do()
	if err != nil {
		c.invalidateRowCache()
		return fmt.Errorf("clear %s: %w", rng, err)
	}

	c.mu.Lock()
	delete(c.rowIndex, historyID)
	c.mu.Unlock()
	return nil
}

// locate returns the row holding historyID, or the next free row when absent.
func (c *Client) locate(ctx context.Context, historyID int64) (row int, found bool, err error) {
	if err := c.refreshRowCache(ctx); err != nil {
		return 0, false, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if row, ok := c.rowIndex[historyID]; ok {
		return row, true, nil
	}
	return c.cachedRowCount + 1, false, nil
}

func (c *Client) refreshRowCache(ctx context.Context) error {
	c.mu.Lock()
	valid := c.rowIndex != nil && time.Now().Before(c.cacheExpiresAt)
	c.mu.Unlock()
	if valid {
		return nil
	}

	rng := fmt.Sprintf("%s!A:A", c.sheetName)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read %s: %w", rng, err)
	}

	index, count := indexRows(resp.Values)

	c.mu.Lock()
	c.rowIndex = index
	c.cachedRowCount = count
	c.cacheExpiresAt = time.Now().Add(c.cacheValidDuration)
	c.mu.Unlock()
	return nil
}

func (c *Client) invalidateRowCache() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rowIndex = nil
	c.cacheExpiresAt = time.Time{}
}

// indexRows maps the ids found in column A to their 1-based row. Header and
// blank rows are skipped but still count towards the row total.
func indexRows(values [][]any) (map[int64]int, int) {
	index := make(map[int64]int, len(values))
	for i, row := range values {
		if len(row) == 0 {
			continue
		}
		id, err := strconv.ParseInt(strings.TrimSpace(fmt.Sprint(row[0])), 10, 64)
		if err != nil || id <= 0 {
			continue
		}
		index[id] = i + 1
	}
	return index, len(values)
}
