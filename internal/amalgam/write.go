package amalgam

import (
	"fmt"
	"os"
	"path/filepath"
)

// WriteFile replaces path with data in one step. Data goes to a temporary
// file next to the destination which is then renamed over it, so a failed
// write leaves any previous output untouched.
func WriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return &Error{Code: CodeOutputWriteFailure, Path: path, Err: err}
	}
	tmpName := tmp.Name()
	fail := func(err error) error {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return &Error{Code: CodeOutputWriteFailure, Path: path, Err: err}
	}

	if _, err := tmp.Write(data); err != nil {
		return fail(err)
	}
	if err := tmp.Sync(); err != nil {
		return fail(err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		return fail(err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return &Error{Code: CodeOutputWriteFailure, Path: path, Err: err}
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return &Error{Code: CodeOutputWriteFailure, Path: path, Err: fmt.Errorf("replace output: %w", err)}
	}
	return nil
}
