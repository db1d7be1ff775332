package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"ledger/internal/core"
	ports "ledger/internal/sheets"

	goption "google.golang.org/api/option"
)

// fakeSheet serves the three Values endpoints the client uses.
type fakeSheet struct {
	mu      sync.Mutex
	columnA [][]any
	updates []string
	clears  []string
	gets    int
}

func (f *fakeSheet) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := r.URL.Path
	i := strings.Index(path, "/values/")
	if i < 0 {
		http.NotFound(w, r)
		return
	}
	rng := path[i+len("/values/"):]
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodGet:
		f.gets++
		json.NewEncoder(w).Encode(map[string]any{"range": rng, "values": f.columnA})
	case r.Method == http.MethodPut:
		f.updates = append(f.updates, rng)
		json.NewEncoder(w).Encode(map[string]any{"updatedRange": rng})
	case r.Method == http.MethodPost && strings.HasSuffix(rng, ":clear"):
		f.clears = append(f.clears, strings.TrimSuffix(rng, ":clear"))
		json.NewEncoder(w).Encode(map[string]any{"clearedRange": rng})
	default:
		http.Error(w, "unexpected call", http.StatusBadRequest)
	}
}

func newTestClient(t *testing.T, fake *fakeSheet) *Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	c, err := New(context.Background(), "sheet-id", "History",
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithoutAuthentication(),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), " ", "History")
	if err == nil || err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNew_MissingCredentials(t *testing.T) {
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")

	_, err := New(context.Background(), "id", "History")
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestIndexRows(t *testing.T) {
	values := [][]any{{"id"}, {"7"}, {}, {float64(9)}, {"x"}}
	index, count := indexRows(values)

	if count != 5 {
		t.Errorf("count = %d, want 5", count)
	}
	if index[7] != 2 || index[9] != 4 || len(index) != 2 {
		t.Errorf("index = %v", index)
	}
}

func TestClient_UpsertRow(t *testing.T) {
	fake := &fakeSheet{columnA: [][]any{{"id"}, {"4"}}}
	c := newTestClient(t, fake)
	ctx := context.Background()

	row := ports.Row{HistoryID: 4, ServiceID: 1, Date: core.NewDate(2020, 8, 1), Content: "rent", Price: 900}
	ref, err := c.UpsertRow(ctx, row)
	if err != nil {
		t.Fatalf("UpsertRow existing: %v", err)
	}
	if ref != "History!A2:G2" {
		t.Errorf("existing row ref = %q", ref)
	}

	row.HistoryID = 5
	if ref, err = c.UpsertRow(ctx, row); err != nil || ref != "History!A3:G3" {
		t.Fatalf("append ref = %q, err %v", ref, err)
	}
	row.HistoryID = 6
	if ref, _ = c.UpsertRow(ctx, row); ref != "History!A4:G4" {
		t.Errorf("second append ref = %q", ref)
	}

	if fake.gets != 1 {
		t.Errorf("column reads = %d, want 1 (row index cached)", fake.gets)
	}
}

func TestClient_ClearRow(t *testing.T) {
	fake := &fakeSheet{columnA: [][]any{{"id"}, {"4"}, {"8"}}}
	c := newTestClient(t, fake)
	ctx := context.Background()

	if err := c.ClearRow(ctx, 8); err != nil {
		t.Fatalf("ClearRow: %v", err)
	}
	if err := c.ClearRow(ctx, 99); err != nil {
		t.Fatalf("ClearRow missing id: %v", err)
	}
	if len(fake.clears) != 1 || fake.clears[0] != "History!A3:G3" {
		t.Fatalf("clears = %v", fake.clears)
	}
}

func TestRowCacheExpiration(t *testing.T) {
	fake := &fakeSheet{columnA: [][]any{{"id"}}}
	c := newTestClient(t, fake)
	c.cacheValidDuration = 20 * time.Millisecond
	ctx := context.Background()

	if _, err := c.UpsertRow(ctx, ports.Row{HistoryID: 1}); err != nil {
		t.Fatal(err)
	}
	time.Sleep(40 * time.Millisecond)
	if _, err := c.UpsertRow(ctx, ports.Row{HistoryID: 2}); err != nil {
		t.Fatal(err)
	}
	if fake.gets != 2 {
		t.Fatalf("column reads = %d, want 2 after expiry", fake.gets)
	}
}

func TestClient_NotConfigured(t *testing.T) {
	c := &Client{spreadsheetID: "test"}
	if _, err := c.UpsertRow(context.Background(), ports.Row{HistoryID: 1}); err != ports.ErrNotConfigured {
		t.Fatalf("err = %v", err)
	}
}
