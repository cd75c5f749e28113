package sheet

import (
	"fmt"
	"strings"

	"github.com/sheetrollup/sheetrollup/rollup"
)

// ParseMaster converts the master worksheet's values (header row first) into
// the list of source sheets to consolidate. The company and URL columns are
// located by header name; rows without both a company and a parsable
// spreadsheet URL are skipped, and repeated URLs keep their first entry.
func ParseMaster(values [][]any, companyHeader, urlHeader string) ([]rollup.Source, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("empty master sheet")
	}

	companyIx := -1
	urlIx := -1

	for i, v := range values[0] {
		switch strings.TrimSpace(cell(v)) {
		case strings.TrimSpace(companyHeader):
			companyIx = i
		case strings.TrimSpace(urlHeader):
			urlIx = i
		}
	}

	if companyIx == -1 {
		return nil, fmt.Errorf("master sheet has no '%s' column", companyHeader)
	}

	if urlIx == -1 {
		return nil, fmt.Errorf("master sheet has no '%s' column", urlHeader)
	}

	sources := []rollup.Source{}
	seen := map[string]bool{}

	for _, row := range values[1:] {
		if len(row) <= companyIx || len(row) <= urlIx {
			continue
		}

		company := strings.TrimSpace(cell(row[companyIx]))
		url := extractURL(cell(row[urlIx]))

		if company == "" || url == "" {
			continue
		}

		if seen[url] {
			continue
		}

		seen[url] = true

		id, gid, err := ParseURL(url)
		if err != nil {
			warnf("%v  %v", company, err)
			continue
		}

		sources = append(sources, rollup.Source{
			Company:       company,
			URL:           url,
			SpreadsheetID: id,
			GID:           gid,
		})
	}

	return sources, nil
}

func cell(v any) string {
	if s, ok := v.(string); ok {
		return s
	}

	return fmt.Sprintf("%v", v)
}

func cells(row []any) []string {
	list := make([]string, len(row))
	for i, v := range row {
		list[i] = cell(v)
	}

	return list
}
