package amalgam

import (
	"errors"
	"io/fs"
	"path"

	"github.com/leapstack-labs/amalgam/internal/scanner"
)

// Status is the outcome for one referenced module.
type Status string

// Status values.
const (
	StatusIncluded  Status = "included"  // declaration inlined, implementation appended
	StatusExcluded  Status = "excluded"  // in the exclusion set; marker deleted
	StatusSelf      Status = "self"      // marker names the root document; deleted
	StatusMissing   Status = "missing"   // a file of the pair does not exist
	StatusMalformed Status = "malformed" // no file pair can be derived
)

// ModuleStatus describes one distinct marker of the root document.
type ModuleStatus struct {
	Name        string   `json:"name"`
	Marker      string   `json:"marker"`
	DeclPath    string   `json:"decl_path,omitempty"`
	ImplPath    string   `json:"impl_path,omitempty"`
	Status      Status   `json:"status"`
	Line        int      `json:"line"`
	Occurrences int      `json:"occurrences"`
	DeclBytes   int      `json:"decl_bytes,omitempty"`
	ImplBytes   int      `json:"impl_bytes,omitempty"`
	Missing     []string `json:"missing,omitempty"`
	Reason      string   `json:"reason,omitempty"`
}

// classify decides what happens to a reference without touching module
// files. Marker paths resolve against the root document's directory and the
// module name is the cleaned marker path without its extension, so every
// spelling of one file maps to one module.
func (a *Amalgamator) classify(ref scanner.Reference, root string) ModuleStatus {
	st := ModuleStatus{
		Marker:      ref.Marker,
		Line:        ref.First().Line,
		Occurrences: len(ref.Spans),
	}
	if ref.Path == "" {
		st.Status = StatusMalformed
		st.Reason = "empty path"
		return st
	}

	root = cleanPath(root)
	dir := path.Dir(root)
	decl := ref.Resolve(dir)
	switch {
	case decl == root:
		st.Name = ref.Module(a.declExt)
		st.Status = StatusSelf
		return st
	case !ref.HasExt(a.declExt):
		st.Status = StatusMalformed
		st.Reason = "path does not end in " + a.declExt
		return st
	case !fs.ValidPath(decl):
		st.Status = StatusMalformed
		st.Reason = "path escapes the source directory"
		return st
	}

	st.Name = ref.Module(a.declExt)
	if a.exclude.Skips(st.Name) {
		st.Status = StatusExcluded
		return st
	}

	st.DeclPath = decl
	st.ImplPath = path.Join(dir, ref.ImplPath(a.declExt, a.implExt))
	st.Status = StatusIncluded
	return st
}

// Inspect classifies every marker of root without failing on missing
// module files. It only fails when the root document itself is unreadable.
func (a *Amalgamator) Inspect(fsys fs.FS, root string) ([]ModuleStatus, error) {
	rootText, err := readText(fsys, root)
	if err != nil {
		return nil, missingInput(root, err)
	}

	doc := NewRootDocument(root, rootText)
	out := make([]ModuleStatus, 0, len(doc.References))
	for _, ref := range doc.References {
		st := a.classify(ref, root)
		if st.Status == StatusIncluded {
			for _, p := range []string{st.DeclPath, st.ImplPath} {
				if _, err := fs.Stat(fsys, p); err != nil {
					if !errors.Is(err, fs.ErrNotExist) {
						return nil, missingInput(p, err)
					}
					st.Missing = append(st.Missing, p)
				}
			}
			if len(st.Missing) > 0 {
				st.Status = StatusMissing
			}
		}
		out = append(out, st)
	}
	return out, nil
}
