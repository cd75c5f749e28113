package sheet

import (
	"context"
	"fmt"
	"log"
	"time"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/sheets/v4"

	"github.com/sheetrollup/sheetrollup/rollup"
)

// Master identifies the worksheet listing the source sheets and the headers
// of the columns to read from it.
type Master struct {
	SpreadsheetID string
	Tab           string
	CompanyHeader string
	URLHeader     string
}

// Sources reads the master list and the listed source sheets from Google
// Sheets. Implements rollup.Sources.
type Sources struct {
	google *sheets.Service
	gdrive *drive.Service
	master Master
	bounds string
}

// NewSources creates a Sources over a Sheets client. gdrive may be nil, in
// which case revision checking is unavailable and every source is fetched.
// bounds is the column range read from each source sheet, e.g. "A:Q".
func NewSources(google *sheets.Service, gdrive *drive.Service, master Master, bounds string) *Sources {
	return &Sources{
		google: google,
		gdrive: gdrive,
		master: master,
		bounds: bounds,
	}
}

func (s *Sources) List(ctx context.Context) ([]rollup.Source, error) {
	area := fmt.Sprintf("'%s'!A1:ZZ", s.master.Tab)

	response, err := s.google.Spreadsheets.Values.Get(s.master.SpreadsheetID, area).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve master list (%w)", err)
	}

	list, err := ParseMaster(response.Values, s.master.CompanyHeader, s.master.URLHeader)
	if err != nil {
		return nil, err
	}

	infof("loaded %v source sheets from master list", len(list))

	return list, nil
}

func (s *Sources) Fetch(ctx context.Context, src rollup.Source) ([]string, [][]string, error) {
	title, err := s.title(ctx, src)
	if err != nil {
		return nil, nil, err
	}

	area := fmt.Sprintf("'%s'!%s", title, s.bounds)

	response, err := s.google.Spreadsheets.Values.Get(src.SpreadsheetID, area).Context(ctx).Do()
	if err != nil {
		return nil, nil, fmt.Errorf("unable to retrieve data from sheet (%w)", err)
	}

	if len(response.Values) == 0 {
		return nil, nil, nil
	}

	header := cells(response.Values[0])
	rows := make([][]string, 0, len(response.Values)-1)

	for _, row := range response.Values[1:] {
		rows = append(rows, cells(row))
	}

	return header, rows, nil
}

// title resolves the worksheet title for the source's gid, falling back to
// the first worksheet if the gid isn't present in the spreadsheet.
func (s *Sources) title(ctx context.Context, src rollup.Source) (string, error) {
	spreadsheet, err := s.google.Spreadsheets.Get(src.SpreadsheetID).
		Fields("sheets(properties(sheetId,title))").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("unable to retrieve spreadsheet metadata (%w)", err)
	}

	for _, worksheet := range spreadsheet.Sheets {
		if worksheet.Properties.SheetId == src.GID {
			return worksheet.Properties.Title, nil
		}
	}

	if len(spreadsheet.Sheets) > 0 {
		return spreadsheet.Sheets[0].Properties.Title, nil
	}

	return "", fmt.Errorf("spreadsheet has no worksheets")
}

// Revision returns the id of the source spreadsheet's latest Drive revision.
// Sheets with long edit histories page their revisions, so the whole list is
// walked for the most recent modification time.
func (s *Sources) Revision(ctx context.Context, src rollup.Source) (string, error) {
	if s.gdrive == nil {
		return "", nil
	}

	page := ""
	latest := ""
	modified := time.Time{}

	for {
		call := drive.NewRevisionsService(s.gdrive).List(src.SpreadsheetID).
			Fields("nextPageToken", "revisions(id,modifiedTime)").
			Context(ctx)

		if page != "" {
			call.PageToken(page)
		}

		revisions, err := call.Do()
		if err != nil {
			return "", err
		}

		for _, revision := range revisions.Revisions {
			datetime, err := time.Parse(time.RFC3339, revision.ModifiedTime)
			if err != nil {
				return "", err
			}

			if modified.Before(datetime) {
				latest = revision.Id
				modified = datetime
			}
		}

		if page = revisions.NextPageToken; page == "" {
			break
		}
	}

	return latest, nil
}

func infof(format string, args ...any) {
	log.Printf("%-5s %s", "INFO", fmt.Sprintf(format, args...))
}

func warnf(format string, args ...any) {
	log.Printf("%-5s %s", "WARN", fmt.Sprintf(format, args...))
}
