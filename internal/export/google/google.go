// Package google appends ledger events to a Google Sheet through the
// Sheets API, authenticated with a service account.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"jizhang/internal/amqp"
	"jizhang/internal/config"
	"jizhang/internal/export"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

var _ export.RowAppender = (*Client)(nil)

// New builds the Sheets client from configuration. Credentials come
// inline (GOOGLE_CREDENTIALS_JSON) or from a file (GOOGLE_CREDENTIALS_FILE).
func New(ctx context.Context, cfg *config.Config) (*Client, error) {
	if cfg.GoogleSpreadsheetID == "" {
		return nil, errors.New("missing spreadsheet id")
	}

	var credentialsJSON []byte
	switch {
	case cfg.GoogleCredentialsJSON != "":
		credentialsJSON = []byte(cfg.GoogleCredentialsJSON)
	case cfg.GoogleCredentialsFile != "":
		data, err := os.ReadFile(cfg.GoogleCredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read credentials file: %w", err)
		}
		credentialsJSON = data
	default:
		return nil, errors.New("missing service account credentials")
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets export client ready",
		"spreadsheet_id", cfg.GoogleSpreadsheetID,
		"sheet", cfg.GoogleSheetName)

	return &Client{
		svc:           svc,
		spreadsheetID: cfg.GoogleSpreadsheetID,
		sheetName:     cfg.GoogleSheetName,
	}, nil
}

// AppendEvent appends one row: timestamp, kind, record id, user id,
// amount in cents, reason. Deletions append a row too, the sheet is an
// audit trail, not a mirror.
func (c *Client) AppendEvent(ctx context.Context, ev *amqp.LedgerEventMessage) error {
	row := []any{
		ev.Timestamp.UTC().Format(time.RFC3339),
		ev.Kind,
		ev.RecordID,
		ev.UserID,
		ev.AmountCents,
		ev.Reason,
	}

	vr := &gsheet.ValueRange{Values: [][]any{row}}
	_, err := c.svc.Spreadsheets.Values.
		Append(c.spreadsheetID, c.sheetName+"!A:F", vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("append row: %w", err)
	}

	slog.InfoContext(ctx, "Appended ledger event to sheet",
		"kind", ev.Kind,
		"record_id", ev.RecordID)
	return nil
}
