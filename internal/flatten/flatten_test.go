package flatten

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/ulyssesdeck/internal/foundation/errors"
	"git.home.luguber.info/inful/ulyssesdeck/internal/manifest"
	"git.home.luguber.info/inful/ulyssesdeck/internal/sheet"
	"git.home.luguber.info/inful/ulyssesdeck/internal/tags"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
}

func plistArray(names []string) string {
	var b strings.Builder
	b.WriteString("<array>")
	for _, n := range names {
		fmt.Fprintf(&b, "<string>%s</string>", n)
	}
	b.WriteString("</array>")
	return b.String()
}

// writeGroup writes a manifest with one cluster per member.
func writeGroup(t *testing.T, dir string, members []string, childOrder []string) {
	t.Helper()
	var clusters strings.Builder
	for _, m := range members {
		clusters.WriteString(plistArray([]string{m}))
	}
	body := `<?xml version="1.0" encoding="UTF-8"?><plist version="1.0"><dict>` +
		`<key>sheetClusters</key><array>` + clusters.String() + `</array>`
	if childOrder != nil {
		body += `<key>childOrder</key>` + plistArray(childOrder)
	}
	body += `</dict></plist>`
	writeFile(t, filepath.Join(dir, manifest.DefaultName), body)
}

func newFlattener(t *testing.T, base string, lookup tags.Lookup) *Flattener {
	t.Helper()
	resolver, err := sheet.NewResolver(sheet.Options{
		OutputName: "deck.md",
		HiddenTag:  "hide",
		LinkBase:   base,
		Tags:       lookup,
	})
	require.NoError(t, err)
	return New(manifest.NewReader(""), resolver, Options{})
}

func contents(frags []sheet.Fragment) []string {
	out := make([]string, 0, len(frags))
	for _, f := range frags {
		out = append(out, f.Content)
	}
	return out
}

func TestFlatten_MembersBeforeChildren(t *testing.T) {
	root := t.TempDir()
	writeGroup(t, root, []string{"A.md", "B.md"}, []string{"Sub"})
	writeFile(t, filepath.Join(root, "A.md"), "A")
	writeFile(t, filepath.Join(root, "B.md"), "B")
	writeGroup(t, filepath.Join(root, "Sub"), []string{"C.md"}, nil)
	writeFile(t, filepath.Join(root, "Sub", "C.md"), "C")

	got, err := newFlattener(t, root, nil).Flatten(t.Context(), root)
	require.NoError(t, err)
	require.Equal(t, []string{"A", "B", "C"}, contents(got))
}

func TestFlatten_ManifestOrderNotFilesystemOrder(t *testing.T) {
	root := t.TempDir()
	writeGroup(t, root, []string{"z.md", "a.md", "m.md"}, []string{"Zed", "Alpha"})
	for _, n := range []string{"z", "a", "m"} {
		writeFile(t, filepath.Join(root, n+".md"), n)
	}
	writeGroup(t, filepath.Join(root, "Alpha"), []string{"x.md"}, nil)
	writeFile(t, filepath.Join(root, "Alpha", "x.md"), "alpha")
	writeGroup(t, filepath.Join(root, "Zed"), []string{"x.md"}, nil)
	writeFile(t, filepath.Join(root, "Zed", "x.md"), "zed")

	f := newFlattener(t, root, nil)
	first, err := f.Flatten(t.Context(), root)
	require.NoError(t, err)
	require.Equal(t, []string{"z", "a", "m", "zed", "alpha"}, contents(first))

	for range 10 {
		again, err := f.Flatten(t.Context(), root)
		require.NoError(t, err)
		require.Equal(t, contents(first), contents(again))
	}
}

func TestFlatten_ManifestAuthority(t *testing.T) {
	root := t.TempDir()
	writeGroup(t, root, []string{"listed.md"}, []string{})
	writeFile(t, filepath.Join(root, "listed.md"), "listed")
	writeFile(t, filepath.Join(root, "stray.md"), "stray")
	writeGroup(t, filepath.Join(root, "Unlisted"), []string{"u.md"}, nil)
	writeFile(t, filepath.Join(root, "Unlisted", "u.md"), "unlisted")

	got, err := newFlattener(t, root, nil).Flatten(t.Context(), root)
	require.NoError(t, err)
	require.Equal(t, []string{"listed"}, contents(got))
}

func TestFlatten_DanglingReferencesAreSkipped(t *testing.T) {
	root := t.TempDir()
	writeGroup(t, root, []string{"gone.md", "here.md"}, []string{"Vanished"})
	writeFile(t, filepath.Join(root, "here.md"), "here")

	got, err := newFlattener(t, root, nil).Flatten(t.Context(), root)
	require.NoError(t, err)
	require.Equal(t, []string{"here"}, contents(got))
}

func TestFlatten_HiddenKeepsSiblingOrder(t *testing.T) {
	root := t.TempDir()
	writeGroup(t, root, []string{"1.md", "2.md", "3.md"}, nil)
	for _, n := range []string{"1", "2", "3"} {
		writeFile(t, filepath.Join(root, n+".md"), n)
	}
	lookup := tags.LookupFunc(func(path string) ([]string, error) {
		if filepath.Base(path) == "2.md" {
			return []string{"hide"}, nil
		}
		return nil, nil
	})

	got, err := newFlattener(t, root, lookup).Flatten(t.Context(), root)
	require.NoError(t, err)
	require.Equal(t, []string{"1", "3"}, contents(got))
}

func TestFlatten_MalformedManifestOmitsOnlyThatGroup(t *testing.T) {
	root := t.TempDir()
	writeGroup(t, root, []string{"top.md"}, []string{"Broken", "Fine"})
	writeFile(t, filepath.Join(root, "top.md"), "top")
	writeFile(t, filepath.Join(root, "Broken", manifest.DefaultName), "<plist><dict><key>sheetClusters")
	writeFile(t, filepath.Join(root, "Broken", "b.md"), "broken")
	writeGroup(t, filepath.Join(root, "Broken", "Deep"), []string{"d.md"}, nil)
	writeFile(t, filepath.Join(root, "Broken", "Deep", "d.md"), "deep")
	writeGroup(t, filepath.Join(root, "Fine"), []string{"f.md"}, nil)
	writeFile(t, filepath.Join(root, "Fine", "f.md"), "fine")

	got, err := newFlattener(t, root, nil).Flatten(t.Context(), root)
	require.NoError(t, err)
	require.Equal(t, []string{"top", "fine"}, contents(got))
}

func TestFlatten_NoManifestContributesNothing(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.md"), "a")

	got, err := newFlattener(t, root, nil).Flatten(t.Context(), root)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestFlatten_MissingRootIsEmpty(t *testing.T) {
	got, err := newFlattener(t, t.TempDir(), nil).Flatten(t.Context(), filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Empty(t, got)
}

func TestFlatten_BundleAndOutputExclusion(t *testing.T) {
	root := t.TempDir()
	writeGroup(t, root, []string{"deck.md", "Note", "Empty"}, nil)
	writeFile(t, filepath.Join(root, "deck.md"), "previous deck")
	writeFile(t, filepath.Join(root, "Note", "text.md"), "![x](assets/img.png)")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "Empty"), 0o755))

	got, err := newFlattener(t, root, nil).Flatten(t.Context(), root)
	require.NoError(t, err)
	require.Equal(t, []string{"![x](Note/assets/img.png)"}, contents(got))
	require.Equal(t, sheet.KindBundle, got[0].Kind)
}

type stubManifests map[string]*manifest.Manifest

func (s stubManifests) Read(dir string) (*manifest.Manifest, error) {
	if m, ok := s[dir]; ok {
		return m, nil
	}
	return nil, manifest.ErrNotFound
}

type resolverFunc func(dir, name string) (sheet.Fragment, error)

func (f resolverFunc) Resolve(dir, name string) (sheet.Fragment, error) { return f(dir, name) }

func TestFlatten_UnexpectedErrorAbortsPass(t *testing.T) {
	root := t.TempDir()
	boom := errors.New("disk on fire")
	f := New(stubManifests{root: {Members: []string{"a", "b"}}},
		resolverFunc(func(_, name string) (sheet.Fragment, error) {
			if name == "b" {
				return sheet.Fragment{}, boom
			}
			return sheet.Fragment{Content: name}, nil
		}), Options{})

	_, err := f.Flatten(t.Context(), root)
	require.ErrorIs(t, err, boom)
}

func TestFlatten_PanicBecomesInternalError(t *testing.T) {
	root := t.TempDir()
	f := New(stubManifests{root: {Members: []string{"a"}}},
		resolverFunc(func(string, string) (sheet.Fragment, error) { panic("bad sheet") }),
		Options{MaxReads: 1})

	_, err := f.Flatten(t.Context(), root)
	require.Error(t, err)
	require.True(t, ferrors.HasCategory(err, ferrors.CategoryInternal))
}

func flattenWithin(t *testing.T, f *Flattener, dir string) []sheet.Fragment {
	t.Helper()
	type result struct {
		frags []sheet.Fragment
		err   error
	}
	done := make(chan result, 1)
	go func() {
		frags, err := f.Flatten(t.Context(), dir)
		done <- result{frags, err}
	}()
	select {
	case r := <-done:
		require.NoError(t, r.err)
		return r.frags
	case <-time.After(3 * time.Second):
		t.Fatal("flatten did not finish")
		return nil
	}
}

func TestFlatten_SelfReferencingChildOrderTerminates(t *testing.T) {
	for _, child := range []string{".", "..", "", "Sub/..", "../x"} {
		t.Run("child "+child, func(t *testing.T) {
			root := t.TempDir()
			writeGroup(t, root, []string{"A.md"}, []string{child, "Sub"})
			writeFile(t, filepath.Join(root, "A.md"), "a")
			writeGroup(t, filepath.Join(root, "Sub"), []string{"B.md"}, nil)
			writeFile(t, filepath.Join(root, "Sub", "B.md"), "b")

			got := flattenWithin(t, newFlattener(t, root, nil), root)
			require.Equal(t, []string{"a", "b"}, contents(got))
		})
	}
}

func TestFlatten_SymlinkToAncestorContributesOnce(t *testing.T) {
	root := t.TempDir()
	writeGroup(t, root, []string{"A.md"}, []string{"Sub"})
	writeFile(t, filepath.Join(root, "A.md"), "a")
	writeGroup(t, filepath.Join(root, "Sub"), []string{"B.md"}, []string{"Loop"})
	writeFile(t, filepath.Join(root, "Sub", "B.md"), "b")
	require.NoError(t, os.Symlink(root, filepath.Join(root, "Sub", "Loop")))

	got := flattenWithin(t, newFlattener(t, root, nil), root)
	require.Equal(t, []string{"a", "b"}, contents(got))
}

func TestFlatten_MemberEscapingDirectoryIsSkipped(t *testing.T) {
	base := t.TempDir()
	root := filepath.Join(base, "talk")
	writeFile(t, filepath.Join(base, "secret.md"), "secret")
	writeGroup(t, root, []string{"../secret.md", "A.md", "."}, nil)
	writeFile(t, filepath.Join(root, "A.md"), "a")

	got := flattenWithin(t, newFlattener(t, root, nil), root)
	require.Equal(t, []string{"a"}, contents(got))
}
