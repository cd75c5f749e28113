package sheet

import (
	"fmt"
	"regexp"
	"strconv"
)

var (
	idPatterns = []*regexp.Regexp{
		regexp.MustCompile(`/spreadsheets/d/([a-zA-Z0-9-_]+)`),
		regexp.MustCompile(`[?&]id=([a-zA-Z0-9-_]+)`),
	}

	gidPattern = regexp.MustCompile(`[#?&]gid=([0-9]+)`)
	urlPattern = regexp.MustCompile(`https?://\S+`)
)

// ParseURL extracts the spreadsheet ID and worksheet gid from a Google Sheets
// URL. The gid defaults to 0 (the first worksheet) when the URL doesn't name
// one.
func ParseURL(url string) (string, int64, error) {
	id := ""
	for _, pattern := range idPatterns {
		if match := pattern.FindStringSubmatch(url); len(match) > 1 {
			id = match[1]
			break
		}
	}

	if id == "" {
		return "", 0, fmt.Errorf("invalid spreadsheet URL '%s' - expected something like 'https://docs.google.com/spreadsheets/d/1BxiMVs0XRA5nFMdKvBdBZjgmUUqptlbs74OgvE2upms'", url)
	}

	gid := int64(0)
	if match := gidPattern.FindStringSubmatch(url); len(match) > 1 {
		gid, _ = strconv.ParseInt(match[1], 10, 64)
	}

	return id, gid, nil
}

// extractURL returns the URL embedded in a master sheet cell. The cell may be
// the URL itself or free text with a URL somewhere inside it.
func extractURL(cell string) string {
	return urlPattern.FindString(cell)
}
