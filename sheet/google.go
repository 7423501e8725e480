package sheet

import (
	"context"
	"fmt"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// GoogleTable is a Table backed by one worksheet of a Google spreadsheet.
type GoogleTable struct {
	service       *sheets.Service
	spreadsheetID string
	worksheet     string
}

// NewGoogleService authenticates against the Sheets API with service-account
// credentials JSON.
func NewGoogleService(ctx context.Context, credentials []byte) (*sheets.Service, error) {
	service, err := sheets.NewService(ctx,
		option.WithCredentialsJSON(credentials),
		option.WithScopes(sheets.SpreadsheetsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// NewGoogleTable binds a service to one worksheet.
func NewGoogleTable(service *sheets.Service, spreadsheetID, worksheet string) *GoogleTable {
	return &GoogleTable{
		service:       service,
		spreadsheetID: spreadsheetID,
		worksheet:     worksheet,
	}
}

// Read fetches the whole worksheet, header row first.
func (g *GoogleTable) Read(ctx context.Context) ([][]string, error) {
	resp, err := g.service.Spreadsheets.Values.Get(g.spreadsheetID, g.worksheet).
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read worksheet %q: %w", g.worksheet, err)
	}

	values := make([][]string, 0, len(resp.Values))
	for _, row := range resp.Values {
		cells := make([]string, 0, len(row))
		for _, cell := range row {
			cells = append(cells, fmt.Sprint(cell))
		}
		values = append(values, cells)
	}
	return values, nil
}

// Replace clears the worksheet and writes values back in one update, so the
// commit is a full overwrite rather than a cell-level patch.
func (g *GoogleTable) Replace(ctx context.Context, values [][]string) error {
	if _, err := g.service.Spreadsheets.Values.Clear(g.spreadsheetID, g.worksheet,
		&sheets.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear worksheet %q: %w", g.worksheet, err)
	}

	body := &sheets.ValueRange{Values: toCellValues(values)}
	if _, err := g.service.Spreadsheets.Values.Update(g.spreadsheetID, g.worksheet, body).
		ValueInputOption("USER_ENTERED").Context(ctx).Do(); err != nil {
		return fmt.Errorf("update worksheet %q: %w", g.worksheet, err)
	}
	return nil
}

func toCellValues(values [][]string) [][]interface{} {
	out := make([][]interface{}, len(values))
	for i, row := range values {
		cells := make([]interface{}, len(row))
		for j, cell := range row {
			cells[j] = cell
		}
		out[i] = cells
	}
	return out
}
