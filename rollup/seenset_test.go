package rollup

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestSeenSetContains(t *testing.T) {
	set := NewSeenSet()

	set.Add("abc_0", "fp1")
	set.Add("abc_0", "fp2")
	set.Add("xyz_123", "fp1")

	if !set.Contains("abc_0", "fp1") {
		t.Errorf("Expected fingerprint 'fp1' in source 'abc_0'")
	}

	if set.Contains("abc_0", "fp3") {
		t.Errorf("Unexpected fingerprint 'fp3' in source 'abc_0'")
	}

	if set.Contains("other_0", "fp1") {
		t.Errorf("Unexpected fingerprint 'fp1' in source 'other_0'")
	}

	if set.Size() != 3 {
		t.Errorf("Incorrect set size - expected:%v, got:%v", 3, set.Size())
	}
}

func TestSeenSetJSONRoundTrip(t *testing.T) {
	set := NewSeenSet()

	set.Add("abc_0", "fp2")
	set.Add("abc_0", "fp1")
	set.Add("xyz_123", "fp3")
	set.SetRevision("abc_0", "rev-17")

	bytes, err := json.Marshal(set)
	if err != nil {
		t.Fatalf("Unexpected error marshalling seen-set (%v)", err)
	}

	restored := NewSeenSet()
	if err := json.Unmarshal(bytes, restored); err != nil {
		t.Fatalf("Unexpected error unmarshalling seen-set (%v)", err)
	}

	if !reflect.DeepEqual(restored, set) {
		t.Errorf("Round-tripped seen-set does not match\n   expected: %+v\n   got:      %+v", set, restored)
	}
}

func TestSeenSetUnmarshalsLegacyFormat(t *testing.T) {
	// Files written before revision tracking are a flat source → fingerprints map
	legacy := `{"abc_0": ["fp1", "fp2"], "xyz_123": ["fp3"]}`

	set := NewSeenSet()
	if err := json.Unmarshal([]byte(legacy), set); err != nil {
		t.Fatalf("Unexpected error unmarshalling legacy seen-set (%v)", err)
	}

	if !set.Contains("abc_0", "fp1") || !set.Contains("abc_0", "fp2") || !set.Contains("xyz_123", "fp3") {
		t.Errorf("Legacy seen-set missing fingerprints - got %v", set.Sources())
	}

	if set.Size() != 3 {
		t.Errorf("Incorrect set size - expected:%v, got:%v", 3, set.Size())
	}
}

func TestSeenSetSources(t *testing.T) {
	set := NewSeenSet()

	set.Add("zzz_0", "fp1")
	set.Add("aaa_0", "fp2")
	set.Add("mmm_9", "fp3")

	expected := []string{"aaa_0", "mmm_9", "zzz_0"}

	if sources := set.Sources(); !reflect.DeepEqual(sources, expected) {
		t.Errorf("Incorrect source list\n   expected: %v\n   got:      %v", expected, sources)
	}
}
