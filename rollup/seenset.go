package rollup

import (
	"encoding/json"
	"sort"
)

// Store loads and saves the set of row fingerprints that have already been
// consolidated. Implementations are expected to make Save atomic enough that
// a crash mid-write leaves the previous state intact.
type Store interface {
	Load() (*SeenSet, error)
	Save(*SeenSet) error
}

// SeenSet is the collection of fingerprints already appended to the target
// worksheet, keyed by source so that a departed company's entries can be
// pruned without touching the rest.
type SeenSet struct {
	seen      map[string]map[Fingerprint]bool
	revisions map[string]string
}

func NewSeenSet() *SeenSet {
	return &SeenSet{
		seen:      map[string]map[Fingerprint]bool{},
		revisions: map[string]string{},
	}
}

func (s *SeenSet) Contains(source string, fp Fingerprint) bool {
	return s.seen[source][fp]
}

func (s *SeenSet) Add(source string, fp Fingerprint) {
	if s.seen[source] == nil {
		s.seen[source] = map[Fingerprint]bool{}
	}

	s.seen[source][fp] = true
}

// Revision returns the Drive revision recorded for a source at its last
// successful consolidation, or "" if the source has not been seen.
func (s *SeenSet) Revision(source string) string {
	return s.revisions[source]
}

func (s *SeenSet) SetRevision(source, revision string) {
	s.revisions[source] = revision
}

// Revisions returns a copy of the source → Drive revision map.
func (s *SeenSet) Revisions() map[string]string {
	m := map[string]string{}
	for source, revision := range s.revisions {
		m[source] = revision
	}

	return m
}

// Size returns the total number of fingerprints across all sources.
func (s *SeenSet) Size() int {
	total := 0
	for _, v := range s.seen {
		total += len(v)
	}

	return total
}

// Sources returns the source keys in lexical order.
func (s *SeenSet) Sources() []string {
	keys := []string{}
	for k := range s.seen {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}

// Fingerprints returns a source's fingerprints in lexical order.
func (s *SeenSet) Fingerprints(source string) []Fingerprint {
	list := []Fingerprint{}
	for fp := range s.seen[source] {
		list = append(list, fp)
	}

	sort.Slice(list, func(i, j int) bool { return list[i] < list[j] })

	return list
}

type document struct {
	Seen      map[string][]string `json:"seen"`
	Revisions map[string]string   `json:"revisions,omitempty"`
}

func (s *SeenSet) MarshalJSON() ([]byte, error) {
	doc := document{
		Seen:      map[string][]string{},
		Revisions: s.revisions,
	}

	for _, source := range s.Sources() {
		list := []string{}
		for _, fp := range s.Fingerprints(source) {
			list = append(list, string(fp))
		}

		doc.Seen[source] = list
	}

	return json.Marshal(doc)
}

func (s *SeenSet) UnmarshalJSON(bytes []byte) error {
	doc := document{}
	if err := json.Unmarshal(bytes, &doc); err != nil {
		return err
	}

	// Files written before revision tracking are a flat source → fingerprints map
	if doc.Seen == nil {
		flat := map[string][]string{}
		if err := json.Unmarshal(bytes, &flat); err != nil {
			return err
		}

		doc.Seen = flat
	}

	s.seen = map[string]map[Fingerprint]bool{}
	s.revisions = map[string]string{}

	for source, list := range doc.Seen {
		for _, fp := range list {
			s.Add(source, Fingerprint(fp))
		}
	}

	for source, revision := range doc.Revisions {
		s.revisions[source] = revision
	}

	return nil
}
