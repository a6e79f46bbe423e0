// Package sheets appends booked entries to a Google Sheets journal.
package sheets

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"kassenbuch/internal/core"
)

type Client struct {
	svc           *sheetsapi.Service
	spreadsheetID string
	sheetName     string
}

// Options configures the export client.
type Options struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsFile string
	CredentialsJSON string
}

// NewClient builds a Sheets client from service-account credentials.
func NewClient(ctx context.Context, opts Options) (*Client, error) {
	if opts.SpreadsheetID == "" {
		return nil, fmt.Errorf("spreadsheet id is required")
	}
	if opts.SheetName == "" {
		return nil, fmt.Errorf("sheet name is required")
	}

	var clientOpts []option.ClientOption
	switch {
	case opts.CredentialsJSON != "":
		clientOpts = append(clientOpts, option.WithCredentialsJSON([]byte(opts.CredentialsJSON)))
	case opts.CredentialsFile != "":
		clientOpts = append(clientOpts, option.WithCredentialsFile(opts.CredentialsFile))
	default:
		return nil, fmt.Errorf("sheets credentials are required")
	}
	clientOpts = append(clientOpts, option.WithScopes(sheetsapi.SpreadsheetsScope))

	svc, err := sheetsapi.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: opts.SpreadsheetID,
		sheetName:     opts.SheetName,
	}, nil
}

// AppendEntry implements ledger.EntryExporter. One entry becomes one journal
// row: date, description, amount, type, category, projects, notes.
func (c *Client) AppendEntry(ctx context.Context, e core.Entry) error {
	category := ""
	if e.Category != nil {
		category = e.Category.Name
	}
	projects := make([]string, 0, len(e.Projects))
	for _, p := range e.Projects {
		projects = append(projects, p.Name)
	}
	notes := ""
	if e.Notes != nil {
		notes = *e.Notes
	}

	row := []interface{}{
		e.Date.String(),
		e.Description,
		e.Amount.String(),
		string(e.Type),
		category,
		strings.Join(projects, ", "),
		notes,
	}

	_, err := c.svc.Spreadsheets.Values.Append(
		c.spreadsheetID,
		c.sheetName,
		&sheetsapi.ValueRange{Values: [][]interface{}{row}},
	).ValueInputOption("USER_ENTERED").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append entry row: %w", err)
	}

	slog.InfoContext(ctx, "Entry appended to sheet",
		"id", e.ID,
		"spreadsheet_id", c.spreadsheetID,
		"sheet", c.sheetName)
	return nil
}
