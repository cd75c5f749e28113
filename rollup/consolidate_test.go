package rollup

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"testing"
)

type fakeSheet struct {
	header []string
	rows   [][]string
	err    error
}

type fakeSources struct {
	list    []Source
	sheets  map[string]fakeSheet
	revs    map[string]string
	fetched []string
}

func (f *fakeSources) List(ctx context.Context) ([]Source, error) {
	return f.list, nil
}

func (f *fakeSources) Fetch(ctx context.Context, src Source) ([]string, [][]string, error) {
	f.fetched = append(f.fetched, src.Key())

	s, ok := f.sheets[src.Key()]
	if !ok {
		return nil, nil, fmt.Errorf("no such sheet")
	}

	if s.err != nil {
		return nil, nil, s.err
	}

	return s.header, s.rows, nil
}

func (f *fakeSources) Revision(ctx context.Context, src Source) (string, error) {
	return f.revs[src.Key()], nil
}

type fakeTarget struct {
	header   []string
	appended [][]string
	appends  int
	fail     error
}

func (t *fakeTarget) Prepare(ctx context.Context, header []string) error {
	t.header = header

	return nil
}

func (t *fakeTarget) Append(ctx context.Context, rows [][]string) error {
	if t.fail != nil {
		return t.fail
	}

	t.appends++
	t.appended = append(t.appended, rows...)

	return nil
}

type memStore struct {
	set   *SeenSet
	saves int
	fail  error
}

func (m *memStore) Load() (*SeenSet, error) {
	if m.set == nil {
		m.set = NewSeenSet()
	}

	return m.set, nil
}

func (m *memStore) Save(set *SeenSet) error {
	if m.fail != nil {
		return m.fail
	}

	m.set = set
	m.saves++

	return nil
}

func acme() (*fakeSources, Source) {
	src := Source{Company: "ACME", URL: "https://docs.google.com/spreadsheets/d/abc", SpreadsheetID: "abc", GID: 0}

	sources := &fakeSources{
		list: []Source{src},
		sheets: map[string]fakeSheet{
			"abc_0": {
				header: []string{"Name", "Date"},
				rows:   [][]string{{"Alice", "2024-01-01"}, {"Bob", "2024-01-02"}},
			},
		},
	}

	return sources, src
}

func TestRunConsolidatesNewRows(t *testing.T) {
	sources, _ := acme()
	target := &fakeTarget{}
	store := &memStore{}

	c := Consolidator{Sources: sources, Target: target, Store: store}

	results, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Unexpected error from consolidation run (%v)", err)
	}

	expected := [][]string{{"Alice", "2024-01-01"}, {"Bob", "2024-01-02"}}
	if !reflect.DeepEqual(target.appended, expected) {
		t.Errorf("Incorrect rows appended to target\n   expected: %v\n   got:      %v", expected, target.appended)
	}

	if !reflect.DeepEqual(target.header, []string{"Name", "Date"}) {
		t.Errorf("Incorrect target header - expected:%v, got:%v", []string{"Name", "Date"}, target.header)
	}

	if store.set.Size() != 2 {
		t.Errorf("Incorrect seen-set size - expected:%v, got:%v", 2, store.set.Size())
	}

	if len(results) != 1 || results[0].Status != Consolidated || results[0].Rows != 2 {
		t.Errorf("Incorrect results - expected 1 consolidated source with 2 rows, got %+v", results)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	sources, _ := acme()
	store := &memStore{}

	first := Consolidator{Sources: sources, Target: &fakeTarget{}, Store: store}
	if _, err := first.Run(context.Background()); err != nil {
		t.Fatalf("Unexpected error from first run (%v)", err)
	}

	target := &fakeTarget{}
	second := Consolidator{Sources: sources, Target: target, Store: store}

	results, err := second.Run(context.Background())
	if err != nil {
		t.Fatalf("Unexpected error from second run (%v)", err)
	}

	if len(target.appended) != 0 {
		t.Errorf("Expected no rows appended on second run, got %v", target.appended)
	}

	if store.set.Size() != 2 {
		t.Errorf("Incorrect seen-set size - expected:%v, got:%v", 2, store.set.Size())
	}

	if results[0].Rows != 0 {
		t.Errorf("Expected 0 new rows on second run, got %v", results[0].Rows)
	}
}

func TestRunConsolidatesOnlyAddedRows(t *testing.T) {
	sources, _ := acme()
	store := &memStore{}

	first := Consolidator{Sources: sources, Target: &fakeTarget{}, Store: store}
	if _, err := first.Run(context.Background()); err != nil {
		t.Fatalf("Unexpected error from first run (%v)", err)
	}

	sheet := sources.sheets["abc_0"]
	sheet.rows = append(sheet.rows, []string{"Carol", "2024-01-03"})
	sources.sheets["abc_0"] = sheet

	target := &fakeTarget{}
	second := Consolidator{Sources: sources, Target: target, Store: store}

	if _, err := second.Run(context.Background()); err != nil {
		t.Fatalf("Unexpected error from second run (%v)", err)
	}

	expected := [][]string{{"Carol", "2024-01-03"}}
	if !reflect.DeepEqual(target.appended, expected) {
		t.Errorf("Incorrect rows appended to target\n   expected: %v\n   got:      %v", expected, target.appended)
	}

	if store.set.Size() != 3 {
		t.Errorf("Incorrect seen-set size - expected:%v, got:%v", 3, store.set.Size())
	}
}

func TestRunReconsolidatesAfterSeenSetReset(t *testing.T) {
	sources, _ := acme()
	store := &memStore{}

	first := Consolidator{Sources: sources, Target: &fakeTarget{}, Store: store}
	if _, err := first.Run(context.Background()); err != nil {
		t.Fatalf("Unexpected error from first run (%v)", err)
	}

	// A deleted seen-set file means every row is new again
	store.set = nil

	target := &fakeTarget{}
	second := Consolidator{Sources: sources, Target: target, Store: store}

	if _, err := second.Run(context.Background()); err != nil {
		t.Fatalf("Unexpected error from second run (%v)", err)
	}

	if len(target.appended) != 2 {
		t.Errorf("Expected both rows re-appended after reset, got %v", target.appended)
	}
}

func TestRunDoesNotRegisterFingerprintsOnAppendFailure(t *testing.T) {
	sources, _ := acme()
	target := &fakeTarget{fail: fmt.Errorf("quota exceeded")}
	store := &memStore{}

	c := Consolidator{Sources: sources, Target: target, Store: store}

	if _, err := c.Run(context.Background()); err == nil {
		t.Fatalf("Expected error from consolidation run with failing target, got %v", err)
	}

	if store.set.Size() != 0 {
		t.Errorf("Expected no fingerprints registered after append failure, got %v", store.set.Size())
	}

	if store.saves != 0 {
		t.Errorf("Expected no seen-set saves after append failure, got %v", store.saves)
	}
}

func TestRunReturnsSeenSetSaveError(t *testing.T) {
	sources, _ := acme()
	target := &fakeTarget{}
	store := &memStore{fail: fmt.Errorf("disk full")}

	c := Consolidator{Sources: sources, Target: target, Store: store}

	_, err := c.Run(context.Background())
	if err == nil {
		t.Fatalf("Expected error from consolidation run with failing seen-set save, got %v", err)
	}

	if !strings.Contains(fmt.Sprintf("%v", err), "unable to save seen-set") {
		t.Errorf("Incorrect error from failing seen-set save (%v)", err)
	}
}

func TestRunSkipsUnreachableSource(t *testing.T) {
	broken := Source{Company: "Broken Co", SpreadsheetID: "bad", GID: 0}
	ok := Source{Company: "ACME", SpreadsheetID: "abc", GID: 0}

	sources := &fakeSources{
		list: []Source{broken, ok},
		sheets: map[string]fakeSheet{
			"bad_0": {err: fmt.Errorf("googleapi: Error 403: forbidden")},
			"abc_0": {
				header: []string{"Name", "Date"},
				rows:   [][]string{{"Alice", "2024-01-01"}},
			},
		},
	}

	target := &fakeTarget{}
	store := &memStore{}

	c := Consolidator{Sources: sources, Target: target, Store: store}

	results, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Unexpected error from consolidation run (%v)", err)
	}

	if results[0].Status != Skipped || results[0].Reason == "" {
		t.Errorf("Expected first source skipped with a reason, got %+v", results[0])
	}

	if results[1].Status != Consolidated || results[1].Rows != 1 {
		t.Errorf("Expected second source consolidated with 1 row, got %+v", results[1])
	}

	if len(target.appended) != 1 {
		t.Errorf("Expected 1 row appended, got %v", target.appended)
	}
}

func TestRunSkipsUnchangedRevisions(t *testing.T) {
	sources, _ := acme()
	sources.revs = map[string]string{"abc_0": "rev-1"}
	store := &memStore{}

	first := Consolidator{Sources: sources, Target: &fakeTarget{}, Store: store, RevisionCheck: true}
	if _, err := first.Run(context.Background()); err != nil {
		t.Fatalf("Unexpected error from first run (%v)", err)
	}

	if len(sources.fetched) != 1 {
		t.Fatalf("Expected 1 fetch on first run, got %v", sources.fetched)
	}

	second := Consolidator{Sources: sources, Target: &fakeTarget{}, Store: store, RevisionCheck: true}

	results, err := second.Run(context.Background())
	if err != nil {
		t.Fatalf("Unexpected error from second run (%v)", err)
	}

	if len(sources.fetched) != 1 {
		t.Errorf("Expected no fetches on second run, got %v", sources.fetched)
	}

	if results[0].Status != Unchanged {
		t.Errorf("Expected source reported unchanged, got %+v", results[0])
	}
}

func TestRunRefetchesChangedRevisions(t *testing.T) {
	sources, _ := acme()
	sources.revs = map[string]string{"abc_0": "rev-1"}
	store := &memStore{}

	first := Consolidator{Sources: sources, Target: &fakeTarget{}, Store: store, RevisionCheck: true}
	if _, err := first.Run(context.Background()); err != nil {
		t.Fatalf("Unexpected error from first run (%v)", err)
	}

	sources.revs["abc_0"] = "rev-2"

	second := Consolidator{Sources: sources, Target: &fakeTarget{}, Store: store, RevisionCheck: true}
	if _, err := second.Run(context.Background()); err != nil {
		t.Fatalf("Unexpected error from second run (%v)", err)
	}

	if len(sources.fetched) != 2 {
		t.Errorf("Expected a fetch on both runs, got %v", sources.fetched)
	}
}

func TestRunRecordsRevisionForEmptySheet(t *testing.T) {
	src := Source{Company: "ACME", SpreadsheetID: "abc", GID: 0}

	sources := &fakeSources{
		list: []Source{src},
		sheets: map[string]fakeSheet{
			"abc_0": {header: []string{"Name", "Date"}},
		},
		revs: map[string]string{"abc_0": "rev-1"},
	}

	store := &memStore{}

	first := Consolidator{Sources: sources, Target: &fakeTarget{}, Store: store, RevisionCheck: true}

	results, err := first.Run(context.Background())
	if err != nil {
		t.Fatalf("Unexpected error from first run (%v)", err)
	}

	if results[0].Status != Empty {
		t.Fatalf("Expected source reported empty, got %+v", results[0])
	}

	second := Consolidator{Sources: sources, Target: &fakeTarget{}, Store: store, RevisionCheck: true}

	results, err = second.Run(context.Background())
	if err != nil {
		t.Fatalf("Unexpected error from second run (%v)", err)
	}

	if len(sources.fetched) != 1 {
		t.Errorf("Expected the unchanged empty sheet not to be re-fetched, got %v", sources.fetched)
	}

	if results[0].Status != Unchanged {
		t.Errorf("Expected source reported unchanged, got %+v", results[0])
	}
}

func TestRunAnnotatesCompanyColumn(t *testing.T) {
	src := Source{Company: "ACME", SpreadsheetID: "abc", GID: 0}

	sources := &fakeSources{
		list: []Source{src},
		sheets: map[string]fakeSheet{
			"abc_0": {
				header: []string{"Name", "Date"},
				rows:   [][]string{{"Alice"}, {"Bob", "2024-01-02"}},
			},
		},
	}

	target := &fakeTarget{}

	c := Consolidator{Sources: sources, Target: target, Store: &memStore{}, CompanyColumn: true}

	if _, err := c.Run(context.Background()); err != nil {
		t.Fatalf("Unexpected error from consolidation run (%v)", err)
	}

	header := []string{"Name", "Date", "Company Name"}
	if !reflect.DeepEqual(target.header, header) {
		t.Errorf("Incorrect target header\n   expected: %v\n   got:      %v", header, target.header)
	}

	expected := [][]string{{"Alice", "", "ACME"}, {"Bob", "2024-01-02", "ACME"}}
	if !reflect.DeepEqual(target.appended, expected) {
		t.Errorf("Incorrect annotated rows\n   expected: %v\n   got:      %v", expected, target.appended)
	}
}

func TestRunKeepsCellsBeyondHeaderWidth(t *testing.T) {
	src := Source{Company: "ACME", SpreadsheetID: "abc", GID: 0}

	sources := &fakeSources{
		list: []Source{src},
		sheets: map[string]fakeSheet{
			"abc_0": {
				header: []string{"Name", "Date"},
				rows:   [][]string{{"Alice", "2024-01-01", "extra note"}},
			},
		},
	}

	target := &fakeTarget{}

	c := Consolidator{Sources: sources, Target: target, Store: &memStore{}, CompanyColumn: true}

	if _, err := c.Run(context.Background()); err != nil {
		t.Fatalf("Unexpected error from consolidation run (%v)", err)
	}

	expected := [][]string{{"Alice", "2024-01-01", "extra note", "ACME"}}
	if !reflect.DeepEqual(target.appended, expected) {
		t.Errorf("Cells beyond the header width were dropped\n   expected: %v\n   got:      %v", expected, target.appended)
	}
}

func TestRunWithIdentityColumns(t *testing.T) {
	src := Source{Company: "ACME", SpreadsheetID: "abc", GID: 0}

	sources := &fakeSources{
		list: []Source{src},
		sheets: map[string]fakeSheet{
			"abc_0": {
				header: []string{"Name", "Status"},
				rows:   [][]string{{"Alice", "pending"}, {"Alice", "confirmed"}, {"Bob", "pending"}},
			},
		},
	}

	target := &fakeTarget{}

	c := Consolidator{Sources: sources, Target: target, Store: &memStore{}, IdentityColumns: []string{"Name"}}

	if _, err := c.Run(context.Background()); err != nil {
		t.Fatalf("Unexpected error from consolidation run (%v)", err)
	}

	expected := [][]string{{"Alice", "pending"}, {"Bob", "pending"}}
	if !reflect.DeepEqual(target.appended, expected) {
		t.Errorf("Incorrect rows appended with identity columns\n   expected: %v\n   got:      %v", expected, target.appended)
	}
}

func TestRunDeduplicatesWithinASource(t *testing.T) {
	src := Source{Company: "ACME", SpreadsheetID: "abc", GID: 0}

	sources := &fakeSources{
		list: []Source{src},
		sheets: map[string]fakeSheet{
			"abc_0": {
				header: []string{"Name", "Date"},
				rows:   [][]string{{"Alice", "2024-01-01"}, {"Alice", "2024-01-01"}},
			},
		},
	}

	target := &fakeTarget{}

	c := Consolidator{Sources: sources, Target: target, Store: &memStore{}}

	if _, err := c.Run(context.Background()); err != nil {
		t.Fatalf("Unexpected error from consolidation run (%v)", err)
	}

	if len(target.appended) != 1 {
		t.Errorf("Expected duplicated row appended once, got %v", target.appended)
	}
}

func TestRunFlushesInBatches(t *testing.T) {
	a := Source{Company: "ACME", SpreadsheetID: "abc", GID: 0}
	b := Source{Company: "Globex", SpreadsheetID: "def", GID: 0}

	sources := &fakeSources{
		list: []Source{a, b},
		sheets: map[string]fakeSheet{
			"abc_0": {header: []string{"Name"}, rows: [][]string{{"Alice"}}},
			"def_0": {header: []string{"Name"}, rows: [][]string{{"Hank"}}},
		},
	}

	target := &fakeTarget{}
	store := &memStore{}

	c := Consolidator{Sources: sources, Target: target, Store: store, BatchSize: 1}

	if _, err := c.Run(context.Background()); err != nil {
		t.Fatalf("Unexpected error from consolidation run (%v)", err)
	}

	if target.appends != 2 {
		t.Errorf("Expected 2 batched appends, got %v", target.appends)
	}

	if store.saves != 2 {
		t.Errorf("Expected 2 seen-set saves, got %v", store.saves)
	}

	expected := [][]string{{"Alice"}, {"Hank"}}
	if !reflect.DeepEqual(target.appended, expected) {
		t.Errorf("Incorrect rows appended\n   expected: %v\n   got:      %v", expected, target.appended)
	}
}

func TestRunDryRunWritesNothing(t *testing.T) {
	sources, _ := acme()
	target := &fakeTarget{}
	store := &memStore{}

	c := Consolidator{Sources: sources, Target: target, Store: store, DryRun: true}

	results, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Unexpected error from dry run (%v)", err)
	}

	if len(target.appended) != 0 {
		t.Errorf("Expected no rows appended on dry run, got %v", target.appended)
	}

	if store.saves != 0 {
		t.Errorf("Expected no seen-set saves on dry run, got %v", store.saves)
	}

	if results[0].Rows != 2 {
		t.Errorf("Expected dry run to report 2 new rows, got %v", results[0].Rows)
	}
}
