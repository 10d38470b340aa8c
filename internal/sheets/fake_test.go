package sheets

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// fakeSheets is an in-memory stand-in for the Sheets REST API covering the
// calls the client makes.
type fakeSheets struct {
	mu            sync.Mutex
	tabs          map[string]*fakeTab
	nextID        int64
	batchRequests []*sheets.Request
	inputOptions  []string
	failAppend    bool
	failOpen      bool
	// failHeaderWrites rejects that many PUTs before accepting them.
	failHeaderWrites int
	// addSheetRace makes AddSheet fail as if another writer created the tab first.
	addSheetRace bool
}

type fakeTab struct {
	id   int64
	rows [][]interface{}
}

func newFakeSheets() *fakeSheets {
	return &fakeSheets{tabs: map[string]*fakeTab{}, nextID: 100}
}

func (f *fakeSheets) addTab(title string, rows ...[]interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.tabs[title] = &fakeTab{id: f.nextID, rows: rows}
}

func (f *fakeSheets) tab(title string) *fakeTab {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tabs[title]
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := strings.TrimPrefix(r.URL.Path, "/v4/spreadsheets/")
	id, rest, _ := strings.Cut(path, "/")

	switch {
	case r.Method == http.MethodGet && rest == "":
		if f.failOpen {
			http.Error(w, `{"error":{"code":403,"message":"forbidden"}}`, http.StatusForbidden)
			return
		}
		var resp sheets.Spreadsheet
		for title, tab := range f.tabs {
			resp.Sheets = append(resp.Sheets, &sheets.Sheet{
				Properties: &sheets.SheetProperties{SheetId: tab.id, Title: title},
			})
		}
		writeFakeJSON(w, resp)

	case r.Method == http.MethodPost && strings.HasSuffix(id, ":batchUpdate"):
		var req sheets.BatchUpdateSpreadsheetRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		var resp sheets.BatchUpdateSpreadsheetResponse
		for _, sub := range req.Requests {
			f.batchRequests = append(f.batchRequests, sub)
			reply := &sheets.Response{}
			if sub.AddSheet != nil {
				f.nextID++
				title := sub.AddSheet.Properties.Title
				if f.addSheetRace {
					f.tabs[title] = &fakeTab{id: f.nextID}
					http.Error(w, `{"error":{"code":400,"message":"A sheet with this name already exists"}}`, http.StatusBadRequest)
					return
				}
				f.tabs[title] = &fakeTab{id: f.nextID}
				reply.AddSheet = &sheets.AddSheetResponse{
					Properties: &sheets.SheetProperties{SheetId: f.nextID, Title: title},
				}
			}
			resp.Replies = append(resp.Replies, reply)
		}
		writeFakeJSON(w, resp)

	case strings.HasPrefix(rest, "values/"):
		rng := strings.TrimPrefix(rest, "values/")
		tab := f.tabs[tabFromRange(rng)]
		if tab == nil {
			http.Error(w, `{"error":{"code":400,"message":"Unable to parse range"}}`, http.StatusBadRequest)
			return
		}

		switch r.Method {
		case http.MethodGet:
			writeFakeJSON(w, sheets.ValueRange{Range: rng, Values: tab.rows})
		case http.MethodPut, http.MethodPost:
			if r.Method == http.MethodPost && f.failAppend {
				http.Error(w, `{"error":{"code":403,"message":"forbidden"}}`, http.StatusForbidden)
				return
			}
			if r.Method == http.MethodPut && f.failHeaderWrites > 0 {
				f.failHeaderWrites--
				http.Error(w, `{"error":{"code":503,"message":"backend error"}}`, http.StatusServiceUnavailable)
				return
			}
			var vr sheets.ValueRange
			if err := json.NewDecoder(r.Body).Decode(&vr); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			f.inputOptions = append(f.inputOptions, r.URL.Query().Get("valueInputOption"))
			if r.Method == http.MethodPut && len(tab.rows) > 0 {
				tab.rows[0] = vr.Values[0]
			} else {
				tab.rows = append(tab.rows, vr.Values...)
			}
			writeFakeJSON(w, struct{}{})
		default:
			http.Error(w, "unsupported", http.StatusMethodNotAllowed)
		}

	default:
		http.Error(w, "unsupported", http.StatusNotFound)
	}
}

// tabFromRange extracts the unquoted tab title from 'Tab'!A1:append.
func tabFromRange(rng string) string {
	i := strings.LastIndex(rng, "!")
	if i < 0 {
		return rng
	}
	title := rng[:i]
	title = strings.TrimSuffix(strings.TrimPrefix(title, "'"), "'")
	return strings.ReplaceAll(title, "''", "'")
}

func writeFakeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(context.Background(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
	)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	return client
}
