package sheets

import (
	"context"
	"fmt"
	"sync"
	"time"

	"contact_intake/internal/submission"

	"github.com/rs/zerolog/log"
)

// TimestampLayout is how the append time is written.
const TimestampLayout = "2006-01-02 15:04:05"

var baseHeader = []interface{}{"Timestamp", "Name", "Email", "Subject", "Message"}

// Row is one stored submission.
type Row struct {
	Timestamp string
	Name      string
	Email     string
	Subject   string
	Message   string
	// Source is only written when source recording is enabled.
	Source string
}

func (r Row) values(withSource bool) []interface{} {
	vals := []interface{}{r.Timestamp, r.Name, r.Email, r.Subject, r.Message}
	if withSource {
		vals = append(vals, r.Source)
	}
	return vals
}

// Settings configures an Appender.
type Settings struct {
	Enabled      bool
	Target       Target
	RecordSource bool
	Location     *time.Location
}

// Active reports whether appends will reach the spreadsheet.
func (s Settings) Active() bool {
	return s.Enabled && s.Target.SpreadsheetID != ""
}

// Header returns the header row written to a freshly created tab.
func (s Settings) Header() []interface{} {
	header := append([]interface{}{}, baseHeader...)
	if s.RecordSource {
		header = append(header, "Source")
	}
	return header
}

// StorageError records which step of an append failed.
type StorageError struct {
	Stage string
	Err   error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s failed: %v", e.Stage, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Appender writes cleaned submissions to a spreadsheet tab.
type Appender struct {
	client   *Client
	settings Settings
	now      func() time.Time

	// mu serializes tab preparation; sheetID is cached once the tab is ready.
	mu       sync.Mutex
	sheetID  int64
	prepared bool
}

func NewAppender(client *Client, settings Settings) *Appender {
	if settings.Location == nil {
		settings.Location = time.UTC
	}
	return &Appender{
		client:   client,
		settings: settings,
		now:      time.Now,
	}
}

// Settings returns the appender's configuration.
func (a *Appender) Settings() Settings {
	return a.settings
}

// Append stores one submission. It returns false with a nil error when
// storage is disabled or no spreadsheet is configured.
func (a *Appender) Append(ctx context.Context, cleaned submission.Cleaned, source string) (bool, error) {
	if !a.settings.Active() || a.client == nil {
		log.Ctx(ctx).Debug().Msg("Storage disabled, skipping append")
		return false, nil
	}

	target := a.settings.Target
	sheetID, err := a.prepare(ctx)
	if err != nil {
		return false, &StorageError{Stage: "prepare tab", Err: err}
	}

	row := Row{
		Timestamp: a.now().In(a.settings.Location).Format(TimestampLayout),
		Name:      cleaned.Name,
		Email:     cleaned.Email,
		Subject:   cleaned.Subject,
		Message:   cleaned.Message,
		Source:    source,
	}

	values := row.values(a.settings.RecordSource)
	if err := a.client.AppendRows(ctx, target.SpreadsheetID, target.A1("A1"), [][]interface{}{values}); err != nil {
		// The tab may have been removed; look it up again next time.
		a.reset()
		return false, &StorageError{Stage: "append", Err: err}
	}

	if err := a.client.AutoResize(ctx, target.SpreadsheetID, sheetID, len(values)); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("tab", target.Tab).Msg("Failed to resize columns")
	}

	log.Ctx(ctx).Info().
		Str("spreadsheet_id", target.SpreadsheetID).
		Str("tab", target.Tab).
		Msg("Stored submission")
	return true, nil
}

func (a *Appender) prepare(ctx context.Context) (int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.prepared {
		return a.sheetID, nil
	}
	sheetID, _, err := EnsureTab(ctx, a.client, a.settings.Target, a.settings.Header())
	if err != nil {
		return 0, err
	}
	a.sheetID, a.prepared = sheetID, true
	return sheetID, nil
}

func (a *Appender) reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.prepared = false
}
