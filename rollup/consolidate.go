package rollup

import (
	"context"
	"fmt"
	"log"
	"strings"
)

// Source is one entry from the master worksheet - a company and the
// spreadsheet it submits rows to.
type Source struct {
	Company       string
	URL           string
	SpreadsheetID string
	GID           int64
}

// Key is the seen-set key for the source.
func (s Source) Key() string {
	return fmt.Sprintf("%s_%v", s.SpreadsheetID, s.GID)
}

// Sources enumerates the master list and fetches rows from the listed sheets.
type Sources interface {
	// List returns the master list entries in worksheet order, duplicates removed.
	List(ctx context.Context) ([]Source, error)

	// Fetch returns a source sheet's header row and data rows.
	Fetch(ctx context.Context, src Source) (header []string, rows [][]string, err error)

	// Revision returns an opaque identifier for the source sheet's current
	// content, or "" if no identifier is available.
	Revision(ctx context.Context, src Source) (string, error)
}

// Target appends consolidated rows to the destination worksheet.
type Target interface {
	// Prepare ensures the destination worksheet exists and has a header row.
	Prepare(ctx context.Context, header []string) error

	// Append appends rows after the destination worksheet's existing content.
	Append(ctx context.Context, rows [][]string) error
}

type Status string

const (
	Consolidated Status = "consolidated"
	Skipped      Status = "skipped"
	Unchanged    Status = "unchanged"
	Empty        Status = "empty"
)

// Result is the per-source outcome of a consolidation pass.
type Result struct {
	Source Source
	Status Status
	Rows   int
	Reason string
}

// Consolidator orchestrates a consolidation pass: master list → fetch →
// deduplicate → append → persist.
type Consolidator struct {
	Sources Sources
	Target  Target
	Store   Store

	// BatchSize is the number of sources consolidated between appends to the
	// target sheet (and saves of the seen-set).
	BatchSize int

	// CompanyColumn pads each row to the header width and appends the company
	// name as a trailing column.
	CompanyColumn bool

	// RevisionCheck skips fetching sources whose revision is unchanged since
	// their last successful consolidation.
	RevisionCheck bool

	// IdentityColumns restricts the fingerprint to the named header columns.
	// Empty means the whole row participates.
	IdentityColumns []string

	// DryRun logs what would be consolidated without writing to the target
	// sheet or the seen-set.
	DryRun bool
}

type pass struct {
	set       *SeenSet
	header    []string
	staged    [][]string
	pending   map[string][]Fingerprint
	revisions map[string]string
	prepared  bool
}

// Run executes a single consolidation pass. The returned results hold the
// per-source outcomes accumulated up to the point of any error.
func (c *Consolidator) Run(ctx context.Context) ([]Result, error) {
	batch := c.BatchSize
	if batch < 1 {
		batch = 1
	}

	set, err := c.Store.Load()
	if err != nil {
		return nil, fmt.Errorf("unable to load seen-set (%w)", err)
	}

	list, err := c.Sources.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to read master sheet (%w)", err)
	}

	infof("consolidating %v source sheets (%v fingerprints on record)", len(list), set.Size())

	p := &pass{
		set:       set,
		pending:   map[string][]Fingerprint{},
		revisions: map[string]string{},
	}

	results := []Result{}

	for i, src := range list {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		result := c.consolidate(ctx, src, p)
		results = append(results, result)

		if (i+1)%batch == 0 || i+1 == len(list) {
			if err := c.flush(ctx, p); err != nil {
				return results, err
			}
		}
	}

	return results, nil
}

func (c *Consolidator) consolidate(ctx context.Context, src Source, p *pass) Result {
	key := src.Key()
	revision := ""

	if c.RevisionCheck {
		if rev, err := c.Sources.Revision(ctx, src); err != nil {
			warnf("%v  unable to get sheet revision (%v)", src.Company, err)
		} else if rev != "" && rev == p.set.Revision(key) {
			infof("%v  unchanged since last run", src.Company)
			return Result{Source: src, Status: Unchanged}
		} else {
			revision = rev
		}
	}

	header, rows, err := c.Sources.Fetch(ctx, src)
	if err != nil {
		warnf("%v  skipped (%v)", src.Company, err)
		return Result{Source: src, Status: Skipped, Reason: fmt.Sprintf("%v", err)}
	}

	// The revision is recorded even for an empty sheet - an unchanged empty
	// sheet shouldn't be re-fetched on every run
	if revision != "" {
		p.revisions[key] = revision
	}

	if len(rows) == 0 {
		return Result{Source: src, Status: Empty}
	}

	identity := c.identity(header)
	fresh := 0

	for _, row := range rows {
		fp := FingerprintRow(project(row, identity))
		if p.set.Contains(key, fp) || staged(p.pending[key], fp) {
			continue
		}

		p.pending[key] = append(p.pending[key], fp)
		p.staged = append(p.staged, c.annotate(row, header, src))
		fresh++
	}

	if p.header == nil {
		p.header = header
		if c.CompanyColumn {
			p.header = append(append([]string{}, header...), "Company Name")
		}
	}

	infof("%v  %v new rows", src.Company, fresh)

	return Result{Source: src, Status: Consolidated, Rows: fresh}
}

func (c *Consolidator) flush(ctx context.Context, p *pass) error {
	if len(p.staged) > 0 && !c.DryRun {
		if !p.prepared {
			if err := c.Target.Prepare(ctx, p.header); err != nil {
				return fmt.Errorf("unable to prepare target sheet (%w)", err)
			}

			p.prepared = true
		}

		if err := c.Target.Append(ctx, p.staged); err != nil {
			return fmt.Errorf("unable to append %v rows to target sheet (%w)", len(p.staged), err)
		}

		infof("appended %v rows to target sheet", len(p.staged))
	}

	if c.DryRun && len(p.staged) > 0 {
		infof("dry run - would append %v rows to target sheet", len(p.staged))
	}

	// Fingerprints are registered only once the rows are actually in the
	// target sheet - a failed append must not mark its rows as consolidated.
	for source, fps := range p.pending {
		for _, fp := range fps {
			p.set.Add(source, fp)
		}
	}

	for source, revision := range p.revisions {
		p.set.SetRevision(source, revision)
	}

	if !c.DryRun {
		if err := c.Store.Save(p.set); err != nil {
			return fmt.Errorf("unable to save seen-set (%w)", err)
		}
	}

	p.staged = nil
	p.pending = map[string][]Fingerprint{}
	p.revisions = map[string]string{}

	return nil
}

// identity maps the configured identity column names to column indices in a
// source's header. Falls back to whole-row fingerprinting if any configured
// column is missing from the header.
func (c *Consolidator) identity(header []string) []int {
	if len(c.IdentityColumns) == 0 {
		return nil
	}

	index := map[string]int{}
	for i, h := range header {
		index[normalise(h)] = i
	}

	columns := []int{}
	for _, name := range c.IdentityColumns {
		ix, ok := index[normalise(name)]
		if !ok {
			warnf("identity column '%s' not found - fingerprinting whole rows", name)
			return nil
		}

		columns = append(columns, ix)
	}

	return columns
}

// annotate pads a row to at least the header width and appends the company
// name. A row wider than its header keeps its extra cells - the Sheets API
// trims trailing empty header cells, so ragged rows are ordinary input.
func (c *Consolidator) annotate(row, header []string, src Source) []string {
	if !c.CompanyColumn {
		return row
	}

	width := len(header)
	if len(row) > width {
		width = len(row)
	}

	padded := make([]string, width)
	copy(padded, row)

	return append(padded, src.Company)
}

func project(row []string, columns []int) []string {
	if columns == nil {
		return row
	}

	cells := make([]string, len(columns))
	for i, ix := range columns {
		if ix < len(row) {
			cells[i] = row[ix]
		}
	}

	return cells
}

func staged(fps []Fingerprint, fp Fingerprint) bool {
	for _, v := range fps {
		if v == fp {
			return true
		}
	}

	return false
}

func normalise(v string) string {
	return strings.ToLower(strings.ReplaceAll(v, " ", ""))
}

func infof(format string, args ...any) {
	log.Printf("%-5s %s", "INFO", fmt.Sprintf(format, args...))
}

func warnf(format string, args ...any) {
	log.Printf("%-5s %s", "WARN", fmt.Sprintf(format, args...))
}
