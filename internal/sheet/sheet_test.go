package sheet

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/text/unicode/norm"

	"git.home.luguber.info/inful/ulyssesdeck/internal/tags"
)

func write(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
}

func newResolver(t *testing.T, base string, lookup tags.Lookup) *Resolver {
	t.Helper()
	r, err := NewResolver(Options{
		OutputName: "deck.md",
		HiddenTag:  "hide",
		LinkBase:   base,
		Tags:       lookup,
	})
	require.NoError(t, err)
	return r
}

func TestResolve_PlainFile(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, "a.md"), "# Hello")

	frag, err := newResolver(t, dir, nil).Resolve(dir, "a.md")
	require.NoError(t, err)
	require.Equal(t, "# Hello", frag.Content)
	require.Equal(t, KindFile, frag.Kind)
	require.Equal(t, filepath.Join(dir, "a.md"), frag.Source)
}

func TestResolve_SkipsOutputArtifact(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, "deck.md"), "old deck")

	_, err := newResolver(t, dir, nil).Resolve(dir, "deck.md")
	require.ErrorIs(t, err, ErrSelf)
	require.True(t, IsSkip(err))
}

func TestResolve_MissingMemberIsSilentSkip(t *testing.T) {
	dir := t.TempDir()

	_, err := newResolver(t, dir, nil).Resolve(dir, "gone.md")
	require.ErrorIs(t, err, ErrMissing)
	require.True(t, IsSkip(err))
}

func TestResolve_Hidden(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, "secret.md"), "nope")
	lookup := tags.LookupFunc(func(path string) ([]string, error) {
		if filepath.Base(path) == "secret.md" {
			return []string{"Hide"}, nil
		}
		return nil, nil
	})

	_, err := newResolver(t, dir, lookup).Resolve(dir, "secret.md")
	require.ErrorIs(t, err, ErrHidden)
}

func TestResolve_TagLookupErrorDoesNotHide(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, "a.md"), "visible")
	lookup := tags.LookupFunc(func(string) ([]string, error) { return nil, errors.New("xattr broken") })

	frag, err := newResolver(t, dir, lookup).Resolve(dir, "a.md")
	require.NoError(t, err)
	require.Equal(t, "visible", frag.Content)
}

func TestResolve_BundleRewritesAssets(t *testing.T) {
	base := t.TempDir()
	dir := filepath.Join(base, "My Talk")
	write(t, filepath.Join(dir, "Note", "text.md"), "![x](assets/img.png) and ![y](assets/b.png)")
	write(t, filepath.Join(dir, "Note", "assets", "img.png"), "png")

	frag, err := newResolver(t, base, nil).Resolve(dir, "Note")
	require.NoError(t, err)
	require.Equal(t, KindBundle, frag.Kind)
	require.Equal(t, filepath.Join(dir, "Note", "text.md"), frag.Source)
	require.Equal(t, "![x](My%20Talk/Note/assets/img.png) and ![y](My%20Talk/Note/assets/b.png)", frag.Content)
}

func TestResolve_BundleWithoutTextIsMalformed(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "Empty", "assets"), 0o755))

	_, err := newResolver(t, dir, nil).Resolve(dir, "Empty")
	require.ErrorIs(t, err, ErrMalformedBundle)
	require.False(t, IsSkip(err))
	require.True(t, IsMemberFailure(err))
}

func TestResolve_UnreadableCarriesErrno(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced")
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "locked.md")
	write(t, path, "x")
	require.NoError(t, os.Chmod(path, 0o000))

	_, err := newResolver(t, dir, nil).Resolve(dir, "locked.md")
	require.ErrorIs(t, err, ErrUnreadable)
	require.True(t, IsMemberFailure(err))
}

func TestResolve_RepairsDoubledLinks(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, "a.md"), "[site]()(https://example.com)")

	frag, err := newResolver(t, dir, nil).Resolve(dir, "a.md")
	require.NoError(t, err)
	require.Equal(t, "[site](https://example.com)", frag.Content)
}

func TestResolve_PlainFileKeepsAssetLinks(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, "a.md"), "![x](assets/img.png)")

	frag, err := newResolver(t, t.TempDir(), nil).Resolve(dir, "a.md")
	require.NoError(t, err)
	require.Equal(t, "![x](assets/img.png)", frag.Content)
}

func TestResolve_DecomposedFilename(t *testing.T) {
	dir := t.TempDir()
	composed := "Café.md"
	decomposed := norm.NFD.String(composed)
	write(t, filepath.Join(dir, decomposed), "coffee")

	frag, err := newResolver(t, dir, nil).Resolve(dir, composed)
	require.NoError(t, err)
	require.Equal(t, "coffee", frag.Content)
}

func TestResolve_RejectsNamesOutsideDirectory(t *testing.T) {
	base := t.TempDir()
	dir := filepath.Join(base, "talk")
	write(t, filepath.Join(base, "secret.md"), "secret")
	write(t, filepath.Join(dir, "Sub", "a.md"), "a")
	r := newResolver(t, dir, nil)

	for _, name := range []string{"../secret.md", "Sub/a.md", ".", "..", ""} {
		_, err := r.Resolve(dir, name)
		require.ErrorIs(t, err, ErrInvalidName, name)
		require.True(t, IsMemberFailure(err))
		require.False(t, IsSkip(err))
	}
}

func TestValidName(t *testing.T) {
	require.True(t, ValidName("a.md"))
	require.True(t, ValidName(".hidden.md"))
	require.True(t, ValidName("My Note"))
	require.False(t, ValidName(""))
	require.False(t, ValidName("."))
	require.False(t, ValidName(".."))
	require.False(t, ValidName("a/b.md"))
}
