package sheet

import (
	"context"
	"fmt"

	"google.golang.org/api/sheets/v4"
)

// Target appends consolidated rows to the destination worksheet. Implements
// rollup.Target.
type Target struct {
	google        *sheets.Service
	spreadsheetID string
	tab           string
}

func NewTarget(google *sheets.Service, spreadsheetID, tab string) *Target {
	return &Target{
		google:        google,
		spreadsheetID: spreadsheetID,
		tab:           tab,
	}
}

// Prepare creates the destination worksheet if it doesn't exist and writes
// the header row if the worksheet is empty. An existing header is left alone.
func (t *Target) Prepare(ctx context.Context, header []string) error {
	spreadsheet, err := t.google.Spreadsheets.Get(t.spreadsheetID).
		Fields("sheets(properties(sheetId,title))").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("unable to retrieve target spreadsheet metadata (%w)", err)
	}

	exists := false
	for _, worksheet := range spreadsheet.Sheets {
		if worksheet.Properties.Title == t.tab {
			exists = true
			break
		}
	}

	if !exists {
		rq := sheets.BatchUpdateSpreadsheetRequest{
			Requests: []*sheets.Request{
				{
					AddSheet: &sheets.AddSheetRequest{
						Properties: &sheets.SheetProperties{
							Title: t.tab,
							GridProperties: &sheets.GridProperties{
								RowCount:    1000,
								ColumnCount: 26,
							},
						},
					},
				},
			},
		}

		if _, err := t.google.Spreadsheets.BatchUpdate(t.spreadsheetID, &rq).Context(ctx).Do(); err != nil {
			return fmt.Errorf("unable to create worksheet '%s' (%w)", t.tab, err)
		}

		infof("created worksheet '%s' in target spreadsheet", t.tab)
	}

	if len(header) == 0 {
		return nil
	}

	area := fmt.Sprintf("'%s'!A1:A1", t.tab)

	response, err := t.google.Spreadsheets.Values.Get(t.spreadsheetID, area).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("unable to check target worksheet (%w)", err)
	}

	if len(response.Values) == 0 {
		rq := sheets.ValueRange{
			Values: [][]any{values(header)},
		}

		if _, err := t.google.Spreadsheets.Values.Update(t.spreadsheetID, fmt.Sprintf("'%s'!A1", t.tab), &rq).
			ValueInputOption("RAW").
			Context(ctx).
			Do(); err != nil {
			return fmt.Errorf("unable to write header row (%w)", err)
		}

		infof("wrote header row to empty worksheet '%s'", t.tab)
	}

	return nil
}

// Append appends rows after the worksheet's existing content.
func (t *Target) Append(ctx context.Context, rows [][]string) error {
	if len(rows) == 0 {
		return nil
	}

	rq := sheets.ValueRange{
		Values: make([][]any, len(rows)),
	}

	for i, row := range rows {
		rq.Values[i] = values(row)
	}

	if _, err := t.google.Spreadsheets.Values.Append(t.spreadsheetID, fmt.Sprintf("'%s'!A1", t.tab), &rq).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do(); err != nil {
		return err
	}

	return nil
}

func values(row []string) []any {
	list := make([]any, len(row))
	for i, v := range row {
		list[i] = v
	}

	return list
}
