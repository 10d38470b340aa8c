package sheets

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

// Target names the tab rows are appended to.
type Target struct {
	SpreadsheetID string
	Tab           string
}

// A1 returns an A1-notation range inside the target tab, e.g. 'Contact Submissions'!A1.
func (t Target) A1(cells string) string {
	return quoteTab(t.Tab) + "!" + cells
}

func quoteTab(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}

// EnsureTab makes sure the target tab exists and starts with a header row,
// creating and styling it when needed. It returns the tab's sheet ID and
// whether this call created the tab.
func EnsureTab(ctx context.Context, sheetsClient *Client, target Target, header []interface{}) (int64, bool, error) {
	sheetID, found, err := sheetsClient.FindTab(ctx, target.SpreadsheetID, target.Tab)
	if err != nil {
		return 0, false, err
	}

	if found {
		present, err := hasHeader(ctx, sheetsClient, target, len(header))
		if err != nil {
			return sheetID, false, err
		}
		if !present {
			log.Ctx(ctx).Warn().Str("tab", target.Tab).Msg("Storage tab has no header row, writing it")
			if err := writeHeader(ctx, sheetsClient, target, sheetID, header); err != nil {
				return sheetID, false, err
			}
		}
		return sheetID, false, nil
	}

	log.Ctx(ctx).Info().
		Str("spreadsheet_id", target.SpreadsheetID).
		Str("tab", target.Tab).
		Msg("Creating storage tab")

	created := true
	sheetID, err = sheetsClient.AddTab(ctx, target.SpreadsheetID, target.Tab)
	if err != nil {
		// Another writer may have created the tab between the lookup and the add.
		existingID, found, findErr := sheetsClient.FindTab(ctx, target.SpreadsheetID, target.Tab)
		if findErr != nil || !found {
			return 0, false, err
		}
		log.Ctx(ctx).Info().Str("tab", target.Tab).Msg("Storage tab was created concurrently")
		sheetID, created = existingID, false
	}

	// The header is written before any data row so appends never land in row 1.
	if err := writeHeader(ctx, sheetsClient, target, sheetID, header); err != nil {
		return sheetID, created, err
	}
	return sheetID, created, nil
}

func hasHeader(ctx context.Context, sheetsClient *Client, target Target, columns int) (bool, error) {
	values, err := sheetsClient.ReadSheet(ctx, target.SpreadsheetID, target.A1(fmt.Sprintf("A1:%s1", columnLetter(columns))))
	if err != nil {
		return false, err
	}
	return len(values) > 0 && len(values[0]) > 0, nil
}

func writeHeader(ctx context.Context, sheetsClient *Client, target Target, sheetID int64, header []interface{}) error {
	headerRange := target.A1(fmt.Sprintf("A1:%s1", columnLetter(len(header))))
	if err := sheetsClient.UpdateRange(ctx, target.SpreadsheetID, headerRange, [][]interface{}{header}); err != nil {
		return fmt.Errorf("failed to write header row: %w", err)
	}

	// Styling is cosmetic; a failure here does not fail the append.
	if err := sheetsClient.StyleHeader(ctx, target.SpreadsheetID, sheetID, len(header)); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("tab", target.Tab).Msg("Failed to style header row")
	}
	return nil
}

// ReadRows reads the data rows of the target tab, skipping the header row.
func ReadRows(ctx context.Context, sheetsClient *Client, target Target) ([]Row, error) {
	values, err := sheetsClient.ReadSheet(ctx, target.SpreadsheetID, target.A1("A1:F"))
	if err != nil {
		return nil, err
	}
	return ParseRows(values), nil
}

// ParseRows converts raw sheet values into rows. The first row is treated as
// the header; rows with fewer than five columns are skipped.
func ParseRows(values [][]interface{}) []Row {
	var rows []Row
	for i, raw := range values {
		if i == 0 {
			continue
		}
		if len(raw) < len(baseHeader) {
			log.Debug().
				Int("row", i+1).
				Int("columns", len(raw)).
				Msg("Skipping row with insufficient columns")
			continue
		}
		rows = append(rows, Row{
			Timestamp: extractStringField(raw, 0),
			Name:      extractStringField(raw, 1),
			Email:     extractStringField(raw, 2),
			Subject:   extractStringField(raw, 3),
			Message:   extractStringField(raw, 4),
			Source:    extractStringField(raw, 5),
		})
	}
	return rows
}

// extractStringField safely extracts a string field from a row at the given index
func extractStringField(row []interface{}, index int) string {
	if len(row) > index && row[index] != nil {
		return fmt.Sprintf("%v", row[index])
	}
	return ""
}

// columnLetter maps a 1-based column count to its letter (1 → A). Storage
// rows never exceed 26 columns.
func columnLetter(n int) string {
	if n < 1 {
		n = 1
	}
	return string(rune('A' + n - 1))
}
