// Package amalgam flattens a root declaration file and the modules it
// references into a single-header library.
//
// Each marker in the root document names a module: a declaration file and
// an implementation file sharing a base name. Declarations replace their
// markers in place; implementations are appended, in reference order, inside
// an #ifdef guard so consumers compile them in exactly one translation unit.
// A static license block closes the document.
//
// Expansion is exactly one level deep. Markers found inside inlined module
// text are never expanded, so every cross-module include a consumer needs
// must be listed in the root document itself.
package amalgam

import (
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"sort"
	"strings"

	"github.com/leapstack-labs/amalgam/internal/scanner"
)

// Defaults matching the sk_gpu source layout.
const (
	DefaultRoot    = "sk_gpu_dev.h"
	DefaultDeclExt = ".h"
	DefaultImplExt = ".cpp"
	DefaultGuard   = "SKG_IMPL"
)

// ExclusionSet maps module names to skip. A module mapped to false is
// included.
type ExclusionSet map[string]bool

// Skips reports whether module is excluded.
func (s ExclusionSet) Skips(module string) bool { return s[module] }

// Names returns the excluded module names, sorted.
func (s ExclusionSet) Names() []string {
	names := make([]string, 0, len(s))
	for name, skip := range s {
		if skip {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Options configures an Amalgamator.
type Options struct {
	// DeclExt and ImplExt name the file pair of a module.
	DeclExt string
	ImplExt string
	// Guard is the macro wrapping the implementation section.
	Guard string
	// Exclude lists modules that are referenced but never materialized.
	Exclude ExclusionSet
	// License is appended verbatim as the last content. Empty for none.
	License string
	// OnceGuards overrides DefaultOnceGuards when non-nil.
	OnceGuards []string
	// Logger is the structured logger (optional, uses discard if nil).
	Logger *slog.Logger
}

// Amalgamator runs single-pass amalgamations. It holds no per-run state and
// may be reused.
type Amalgamator struct {
	declExt    string
	implExt    string
	guard      string
	exclude    ExclusionSet
	license    string
	onceGuards []string
	logger     *slog.Logger
}

// New creates an Amalgamator, filling unset options with defaults.
func New(opts Options) *Amalgamator {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	a := &Amalgamator{
		declExt:    opts.DeclExt,
		implExt:    opts.ImplExt,
		guard:      opts.Guard,
		exclude:    opts.Exclude,
		license:    opts.License,
		onceGuards: opts.OnceGuards,
		logger:     logger,
	}
	if a.declExt == "" {
		a.declExt = DefaultDeclExt
	}
	if a.implExt == "" {
		a.implExt = DefaultImplExt
	}
	if a.guard == "" {
		a.guard = DefaultGuard
	}
	if a.exclude == nil {
		a.exclude = ExclusionSet{}
	}
	if a.onceGuards == nil {
		a.onceGuards = DefaultOnceGuards
	}
	return a
}

// Guard returns the implementation guard macro.
func (a *Amalgamator) Guard() string { return a.guard }

// Result is a fully assembled document.
type Result struct {
	Root string
	// Declarations is the root text with markers substituted.
	Declarations string
	// Implementation is the concatenated implementation text, unguarded.
	Implementation string
	// Text is the final document.
	Text    string
	Modules []ModuleStatus
}

// Bytes returns the final document.
func (r *Result) Bytes() []byte { return []byte(r.Text) }

// Count returns how many modules ended with status s.
func (r *Result) Count(s Status) int {
	n := 0
	for _, m := range r.Modules {
		if m.Status == s {
			n++
		}
	}
	return n
}

// Run amalgamates root and the modules it references, reading every file
// from fsys. Any unreadable file or malformed marker aborts the run.
func (a *Amalgamator) Run(fsys fs.FS, root string) (*Result, error) {
	rootText, err := readText(fsys, root)
	if err != nil {
		return nil, missingInput(root, err)
	}

	doc := NewRootDocument(root, rootText)
	a.logger.Debug("scanned root document", "root", root, "references", len(doc.References))

	replacements := make(map[string]string, len(doc.References))
	// inlined maps module names to their normalized declaration. A module
	// spelled two ways contributes its implementation once.
	inlined := make(map[string]string, len(doc.References))
	modules := make([]ModuleStatus, 0, len(doc.References))
	var impl strings.Builder

	for _, ref := range doc.References {
		st := a.classify(ref, root)
		switch st.Status {
		case StatusMalformed:
			return nil, malformed(ref.Path, ref.Marker, st.Line, st.Reason)
		case StatusSelf, StatusExcluded:
			a.logger.Debug("dropping marker", "marker", ref.Marker, "reason", st.Status)
			replacements[ref.Marker] = ""
		default:
			if decl, ok := inlined[st.Name]; ok {
				replacements[ref.Marker] = decl
				st.DeclBytes = len(decl)
				a.logger.Debug("module already inlined", "module", st.Name, "marker", ref.Marker)
				break
			}

			decl, err := readText(fsys, st.DeclPath)
			if err != nil {
				return nil, missingModuleFile(st.DeclPath, ref, st.Line, err)
			}
			body, err := readText(fsys, st.ImplPath)
			if err != nil {
				return nil, missingModuleFile(st.ImplPath, ref, st.Line, err)
			}

			norm := Normalizer{Root: root, Dir: path.Dir(st.DeclPath), OnceGuards: a.onceGuards}
			decl = norm.Declaration(decl)
			body = norm.Implementation(body)
			replacements[ref.Marker] = decl
			inlined[st.Name] = decl
			appendBlock(&impl, body)

			st.DeclBytes = len(decl)
			st.ImplBytes = len(body)
			a.logger.Debug("inlined module", "module", st.Name, "decl_bytes", st.DeclBytes, "impl_bytes", st.ImplBytes, "occurrences", st.Occurrences)
		}
		modules = append(modules, st)
	}

	decls := doc.Splice(replacements)
	return &Result{
		Root:           root,
		Declarations:   decls,
		Implementation: impl.String(),
		Text:           Assemble(decls, impl.String(), a.guard, a.license),
		Modules:        modules,
	}, nil
}

// Build runs the amalgamation and writes the document to dest. Nothing is
// written unless the run succeeds.
func (a *Amalgamator) Build(fsys fs.FS, root, dest string) (*Result, error) {
	res, err := a.Run(fsys, root)
	if err != nil {
		return nil, err
	}
	if err := WriteFile(dest, res.Bytes()); err != nil {
		return nil, err
	}
	a.logger.Debug("wrote amalgamation", "dest", dest, "bytes", len(res.Text))
	return res, nil
}

func missingModuleFile(file string, ref scanner.Reference, line int, cause error) error {
	return &Error{
		Code:   CodeMissingInputFile,
		Path:   file,
		Marker: ref.Marker,
		Line:   line,
		Err:    cause,
	}
}

// GuardOpen returns the line opening the implementation section.
func GuardOpen(guard string) string { return "#ifdef " + guard }

// GuardClose returns the line closing the implementation section.
func GuardClose(guard string) string { return "#endif // " + guard }

// Assemble joins the spliced declarations, the guarded implementation
// buffer and the license block. Every piece starts on a fresh line. The
// license is written verbatim, so a footer without a trailing newline ends
// the document without one.
func Assemble(decls, impl, guard, license string) string {
	var b strings.Builder
	b.Grow(len(decls) + len(impl) + len(license) + 2*len(guard) + 32)

	appendBlock(&b, decls)
	b.WriteString(GuardOpen(guard))
	b.WriteByte('\n')
	appendBlock(&b, impl)
	b.WriteString(GuardClose(guard))
	b.WriteByte('\n')
	b.WriteString(license)
	return b.String()
}

// appendBlock writes s and terminates it with a newline if it lacks one.
func appendBlock(b *strings.Builder, s string) {
	if s == "" {
		return
	}
	b.WriteString(s)
	if !strings.HasSuffix(s, "\n") {
		b.WriteByte('\n')
	}
}

func readText(fsys fs.FS, name string) (string, error) {
	if !fs.ValidPath(name) {
		return "", fmt.Errorf("%w: invalid path %q", fs.ErrNotExist, name)
	}
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func cleanPath(p string) string {
	return path.Clean(strings.ReplaceAll(p, "\\", "/"))
}
