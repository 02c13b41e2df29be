// Package export appends expense events to a Google Sheets audit journal.
package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

type SheetsJournal struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

// NewSheetsJournalFromEnv builds a journal client from environment
// variables. Required: GOOGLE_SPREADSHEET_ID. Credentials come from
// GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or
// GOOGLE_APPLICATION_CREDENTIALS. Optional: GOOGLE_SHEET_NAME (default
// "Journal").
func NewSheetsJournalFromEnv(ctx context.Context) (*SheetsJournal, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	sheetName := strings.TrimSpace(os.Getenv("GOOGLE_SHEET_NAME"))
	if sheetName == "" {
		sheetName = "Journal"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &SheetsJournal{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
	}, nil
}

func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	scope := goption.WithScopes(gsheet.SpreadsheetsScope)
	switch {
	case serviceAccountJSON != "":
		return gsheet.NewService(ctx, goption.WithCredentialsJSON([]byte(serviceAccountJSON)), scope)
	case serviceAccountFile != "":
		return gsheet.NewService(ctx, goption.WithCredentialsFile(serviceAccountFile), scope)
	default:
		return nil, errors.New("no Google service account credentials configured")
	}
}

// AppendRow appends one row at the bottom of the journal sheet.
func (j *SheetsJournal) AppendRow(ctx context.Context, row []any) error {
	vr := &gsheet.ValueRange{Values: [][]any{row}}
	_, err := j.svc.Spreadsheets.Values.
		Append(j.spreadsheetID, j.sheetName+"!A:H", vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("append journal row: %w", err)
	}
	return nil
}
