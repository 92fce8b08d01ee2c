package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/amalgam/internal/license"
)

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Root == "" {
		return fmt.Errorf("root is required")
	}
	if filepath.IsAbs(c.Root) {
		return fmt.Errorf("root must be relative to source_dir, got %s", c.Root)
	}
	if c.Dest == "" {
		return fmt.Errorf("dest is required")
	}
	if !strings.HasPrefix(c.DeclExt, ".") || !strings.HasPrefix(c.ImplExt, ".") {
		return fmt.Errorf("decl_ext and impl_ext must start with a dot, got %q and %q", c.DeclExt, c.ImplExt)
	}
	if c.DeclExt == c.ImplExt {
		return fmt.Errorf("decl_ext and impl_ext must differ, both are %q", c.DeclExt)
	}
	if strings.ContainsAny(c.Guard, " \t\r\n") || c.Guard == "" {
		return fmt.Errorf("guard must be a single macro name, got %q", c.Guard)
	}
	if c.License.File == "" {
		if _, err := license.Preset(c.License.Preset); err != nil {
			return err
		}
	}
	if c.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must not be negative")
	}
	return nil
}

// ValidateDirectories checks that the source directory and the root
// document inside it exist.
func (c *Config) ValidateDirectories() error {
	info, err := os.Stat(c.SourceDir)
	if os.IsNotExist(err) {
		return fmt.Errorf("source directory does not exist: %s\nHint: Create the directory or use --source-dir to specify a different path", c.SourceDir)
	}
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("source directory is not a directory: %s", c.SourceDir)
	}
	if _, err := os.Stat(c.RootPath()); os.IsNotExist(err) {
		return fmt.Errorf("root document does not exist: %s\nHint: Use --root to name the root document inside the source directory", c.RootPath())
	}
	return nil
}

// RootPath returns the root document's path on disk.
func (c *Config) RootPath() string {
	return filepath.Join(c.SourceDir, filepath.FromSlash(c.Root))
}

// LicenseText loads the configured footer.
func (c *Config) LicenseText() (string, error) {
	return license.Load(c.License.Preset, c.License.File)
}
