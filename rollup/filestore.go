package rollup

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// FileStore persists the seen-set as a JSON document on local disk.
type FileStore struct {
	Path string
}

// Load reads the seen-set from the backing file. A missing or unparsable file
// is not an error - the run proceeds with an empty set and re-consolidates
// everything, which duplicates rows but never loses them.
func (f FileStore) Load() (*SeenSet, error) {
	set := NewSeenSet()

	bytes, err := os.ReadFile(f.Path)
	if os.IsNotExist(err) {
		return set, nil
	} else if err != nil {
		warnf("unable to read seen-set file %s (%v) - starting with an empty set", f.Path, err)
		return set, nil
	}

	if err := json.Unmarshal(bytes, set); err != nil {
		warnf("seen-set file %s is unparsable (%v) - starting with an empty set", f.Path, err)
		return NewSeenSet(), nil
	}

	return set, nil
}

// Save writes the seen-set to a temporary file in the destination directory
// and renames it over the previous file, so that a crash mid-write leaves the
// previous state intact for the next run.
func (f FileStore) Save(set *SeenSet) error {
	bytes, err := json.MarshalIndent(set, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(f.Path)
	if err := os.MkdirAll(dir, 0770); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "seenset")
	if err != nil {
		return err
	}

	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(bytes); err != nil {
		tmp.Close()
		return err
	}

	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Rename(tmp.Name(), f.Path); err != nil {
		return fmt.Errorf("unable to replace seen-set file %s (%w)", f.Path, err)
	}

	return nil
}
