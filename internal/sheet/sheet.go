// Package sheet resolves one manifest member into the text fragment it contributes.
//
// A member is either a plain text file or a bundle: a directory holding the
// canonical text file plus an assets folder. Bundled text gets its asset links
// rewritten so they still resolve from the directory the deck is written to.
package sheet

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"syscall"

	"golang.org/x/text/unicode/norm"

	ferrors "git.home.luguber.info/inful/ulyssesdeck/internal/foundation/errors"
	"git.home.luguber.info/inful/ulyssesdeck/internal/tags"
)

// Kind distinguishes plain sheets from bundles.
type Kind string

const (
	KindFile   Kind = "file"
	KindBundle Kind = "bundle"
)

// Fragment is the resolved text of one member. Source and Kind are kept for
// diagnostics only; the deck is built from Content alone.
type Fragment struct {
	Member  string
	Source  string
	Kind    Kind
	Content string
}

var (
	// ErrSelf reports the deck itself listed as a member.
	ErrSelf = ferrors.NewError(ferrors.CategorySheet, "member is the output artifact").Info().Build()
	// ErrMissing reports a member name with nothing on disk behind it.
	ErrMissing = ferrors.NotFoundError("sheet not found").Build()
	// ErrHidden reports a member carrying the hide tag.
	ErrHidden = ferrors.NewError(ferrors.CategorySheet, "sheet is hidden").Info().Build()
	// ErrInvalidName reports a member name that is not a plain file name.
	ErrInvalidName = ferrors.SheetError("member name is not a plain file name").Build()
	// ErrMalformedBundle reports a bundle directory without its canonical text file.
	ErrMalformedBundle = ferrors.SheetError("bundle has no canonical text file").Build()
	// ErrUnreadable reports a sheet that exists but cannot be read.
	ErrUnreadable = ferrors.FileSystemError("failed to read sheet").Build()
)

// doubledLink is emitted by the Ulysses export for some link types.
const doubledLink = "]()("

// Options configures a Resolver.
type Options struct {
	// OutputName is the deck filename; a member with this name is never read.
	OutputName string
	// BundleText is the canonical text file inside a bundle.
	BundleText string
	// AssetsDir is the media folder inside a bundle.
	AssetsDir string
	// HiddenTag excludes a member when present in its tags.
	HiddenTag string
	// LinkBase is the directory rewritten asset links are relative to.
	// Defaults to the working directory.
	LinkBase string
	// Tags looks up member tags. Defaults to tags.None.
	Tags tags.Lookup
}

// Resolver turns member names into fragments.
type Resolver struct {
	opts Options
}

// NewResolver validates opts and fills defaults.
func NewResolver(opts Options) (*Resolver, error) {
	if opts.BundleText == "" {
		opts.BundleText = "text.md"
	}
	if opts.AssetsDir == "" {
		opts.AssetsDir = "assets"
	}
	if opts.Tags == nil {
		opts.Tags = tags.None
	}
	if opts.LinkBase == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, ferrors.WrapError(err, ferrors.CategoryRuntime, "failed to determine working directory").Build()
		}
		opts.LinkBase = wd
	}
	base, err := filepath.Abs(opts.LinkBase)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryValidation, "invalid link base").
			WithContext("link_base", opts.LinkBase).
			Build()
	}
	opts.LinkBase = base
	return &Resolver{opts: opts}, nil
}

// Resolve produces the fragment for member name in dir.
//
// Members that contribute nothing return one of ErrSelf, ErrMissing or
// ErrHidden. ErrMalformedBundle and ErrUnreadable (with errno context) drop
// only this member.
func (r *Resolver) Resolve(dir, name string) (Fragment, error) {
	if name == r.opts.OutputName {
		return Fragment{}, ErrSelf.WithContext("member", name)
	}

	if !ValidName(name) {
		return Fragment{}, ErrInvalidName.WithContext("member", name)
	}

	path, info, ok := statMember(dir, name)
	if !ok {
		return Fragment{}, ErrMissing.WithContext("path", filepath.Join(dir, name))
	}

	if r.hidden(path) {
		return Fragment{}, ErrHidden.WithContext("path", path)
	}

	frag := Fragment{Member: name, Source: path, Kind: KindFile}
	assetRoot := ""
	if info.IsDir() {
		assetRoot = path
		frag.Kind = KindBundle
		frag.Source = filepath.Join(path, r.opts.BundleText)
		if _, err := os.Stat(frag.Source); err != nil {
			return Fragment{}, ferrors.WrapError(err, ferrors.CategorySheet, ErrMalformedBundle.Message()).
				Warning().
				WithContext("path", path).
				Build()
		}
	}

	data, err := os.ReadFile(frag.Source)
	if err != nil {
		b := ferrors.WrapError(err, ferrors.CategoryFileSystem, ErrUnreadable.Message()).
			WithContext("path", frag.Source)
		var errno syscall.Errno
		if errors.As(err, &errno) {
			b = b.WithContext("errno", int(errno))
		}
		return Fragment{}, b.Build()
	}

	content := string(data)
	if assetRoot != "" {
		content = r.rewriteAssets(content, assetRoot)
	}
	frag.Content = strings.ReplaceAll(content, doubledLink, "](")
	return frag, nil
}

func (r *Resolver) hidden(path string) bool {
	if r.opts.HiddenTag == "" {
		return false
	}
	found, err := r.opts.Tags.Tags(path)
	if err != nil {
		return false
	}
	return tags.Hidden(found, r.opts.HiddenTag)
}

// rewriteAssets points "](assets/" links at the bundle's assets folder,
// expressed relative to the link base with spaces escaped.
func (r *Resolver) rewriteAssets(content, assetRoot string) string {
	assets := filepath.Join(assetRoot, r.opts.AssetsDir)
	if abs, err := filepath.Abs(assets); err == nil {
		assets = abs
	}
	target := assets
	if rel, err := filepath.Rel(r.opts.LinkBase, assets); err == nil {
		target = rel
	}
	target = strings.ReplaceAll(filepath.ToSlash(target), " ", "%20")
	return strings.ReplaceAll(content, "]("+r.opts.AssetsDir+"/", "]("+target+"/")
}

// statMember finds name in dir, retrying the NFD and NFC spellings of the name.
func statMember(dir, name string) (string, os.FileInfo, bool) {
	candidates := []string{name}
	for _, alt := range []string{norm.NFD.String(name), norm.NFC.String(name)} {
		if !slices.Contains(candidates, alt) {
			candidates = append(candidates, alt)
		}
	}
	for _, c := range candidates {
		p := filepath.Join(dir, c)
		if info, err := os.Stat(p); err == nil {
			return p, info, true
		}
	}
	return "", nil, false
}

// ValidName reports whether name is a single path element that stays inside
// its directory.
func ValidName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsRune(name, '/') && !strings.ContainsRune(name, filepath.Separator)
}

// IsSkip reports whether err only means "this member contributes nothing"
// as opposed to a failure worth a warning.
func IsSkip(err error) bool {
	return errors.Is(err, ErrSelf) || errors.Is(err, ErrMissing) || errors.Is(err, ErrHidden)
}

// IsMemberFailure reports whether err drops a single member without
// affecting the rest of the pass.
func IsMemberFailure(err error) bool {
	return IsSkip(err) || errors.Is(err, ErrInvalidName) || errors.Is(err, ErrMalformedBundle) || errors.Is(err, ErrUnreadable)
}
