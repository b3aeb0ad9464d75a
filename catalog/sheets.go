package catalog

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/promoimperio/broadcast_backend/models"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// SheetsCatalog reads products from a Google Sheets range. The first row of
// the range supplies the field names for every following row.
type SheetsCatalog struct {
	svc           *sheets.Service
	spreadsheetId string
	readRange     string
}

func NewSheetsCatalog(ctx context.Context, spreadsheetId string, readRange string) (*SheetsCatalog, error) {
	svc, err := sheets.NewService(ctx, googleCredentialOptions()...)
	if err != nil {
		return nil, fmt.Errorf("init sheets service: %w", err)
	}
	return &SheetsCatalog{
		svc:           svc,
		spreadsheetId: spreadsheetId,
		readRange:     readRange,
	}, nil
}

func (c *SheetsCatalog) LoadProducts(ctx context.Context) ([]models.Product, error) {
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetId, c.readRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read spreadsheet %s: %w", c.spreadsheetId, err)
	}

	rows := make([][]string, 0, len(resp.Values))
	for _, raw := range resp.Values {
		row := make([]string, 0, len(raw))
		for _, cell := range raw {
			row = append(row, fmt.Sprint(cell))
		}
		rows = append(rows, row)
	}
	return rowsToProducts(rows), nil
}

// googleCredentialOptions prefers ADC; GOOGLE_CREDENTIALS_JSON overrides for
// local runs, same convention as the storage client.
func googleCredentialOptions() []option.ClientOption {
	if credJSON := strings.TrimSpace(os.Getenv("GOOGLE_CREDENTIALS_JSON")); credJSON != "" {
		return []option.ClientOption{
			option.WithCredentialsJSON([]byte(credJSON)),
			option.WithScopes(sheets.SpreadsheetsReadonlyScope),
		}
	}
	return []option.ClientOption{option.WithScopes(sheets.SpreadsheetsReadonlyScope)}
}
