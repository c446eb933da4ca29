// Package credentials stages opaque credential strings as transient files for
// hand-off to the extractor, with guaranteed cleanup.
package credentials

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// StagedFile is a transient file holding a raw credential string. It exists
// only for the duration of one gateway call; Cleanup must run on every exit
// path of the surrounding operation.
type StagedFile struct {
	path string

	once  sync.Once
	rmErr error
}

// Stage writes contents into a uniquely named file under dir and returns a
// handle to it. Filenames embed a UUID so concurrently staged credentials
// never collide. The file is readable by the owning process only.
func Stage(dir, contents string) (*StagedFile, error) {
	path := filepath.Join(dir, fmt.Sprintf("cookies_%s.txt", uuid.NewString()))
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		return nil, fmt.Errorf("writing credential file: %w", err)
	}
	return &StagedFile{path: path}, nil
}

// Path returns the on-disk location of the staged credential file.
func (f *StagedFile) Path() string {
	return f.path
}

// Cleanup removes the staged file. It is idempotent: repeated calls return
// the result of the first removal, and a file already gone is not an error.
func (f *StagedFile) Cleanup() error {
	f.once.Do(func() {
		if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
			f.rmErr = err
		}
	})
	return f.rmErr
}
