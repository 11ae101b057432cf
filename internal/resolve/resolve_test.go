package resolve

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tturner/pccov/internal/logging"
)

// tempTree returns a symlink-free temp root containing the given files.
func tempTree(t *testing.T, files ...string) string {
	t.Helper()
	root, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatalf("eval temp dir: %v", err)
	}
	for _, f := range files {
		path := filepath.Join(root, f)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte("function f() {}\n"), 0o644); err != nil {
			t.Fatalf("write %s: %v", f, err)
		}
	}
	return root
}

func TestResolveRelativeAndAbsolute(t *testing.T) {
	root := tempTree(t, "a.js", "sub/b.jsm")
	r := New(OS, nil, nil)

	tests := []struct {
		name string
		raw  string
		base string
		want string
	}{
		{name: "relative", raw: "a.js", base: root, want: filepath.Join(root, "a.js")},
		{name: "nested relative", raw: "sub/b.jsm", base: root, want: filepath.Join(root, "sub", "b.jsm")},
		{name: "absolute ignores base", raw: filepath.Join(root, "a.js"), base: "/elsewhere", want: filepath.Join(root, "a.js")},
		{name: "dot segments cleaned", raw: "sub/../a.js", base: root, want: filepath.Join(root, "a.js")},
		{name: "file URI", raw: "file://" + filepath.Join(root, "a.js"), base: "/elsewhere", want: filepath.Join(root, "a.js")},
		{name: "missing file", raw: "nope.js", base: root, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.Resolve(tt.raw, tt.base); got != tt.want {
				t.Errorf("Resolve(%q, %q) = %q, want %q", tt.raw, tt.base, got, tt.want)
			}
		})
	}
}

func TestResolveRedirectChainUsesLastSegment(t *testing.T) {
	root := tempTree(t, "bar.js")
	r := New(OS, nil, nil)

	got := r.Lookup("foo.js -> bar.js", root)
	if got.Status != Resolved || got.Path != filepath.Join(root, "bar.js") {
		t.Fatalf("Lookup = %+v, want bar.js resolved", got)
	}

	// foo.js exists but must not be chosen.
	root2 := tempTree(t, "foo.js")
	if got := r.Resolve("foo.js -> bar.js", root2); got != "" {
		t.Errorf("Resolve = %q, want empty", got)
	}
}

func TestResolveFollowsSymlink(t *testing.T) {
	root := tempTree(t, "real/target.js")
	link := filepath.Join(root, "link.js")
	if err := os.Symlink(filepath.Join(root, "real", "target.js"), link); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	r := New(OS, nil, nil)
	got := r.Resolve("link.js", root)
	if want := filepath.Join(root, "real", "target.js"); got != want {
		t.Errorf("Resolve(link) = %q, want %q", got, want)
	}
}

func TestResolveThroughLinkedDirectory(t *testing.T) {
	root := tempTree(t, "src/a.js", "src/lib/b.js")
	link := filepath.Join(root, "link")
	if err := os.Symlink(filepath.Join(root, "src"), link); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}
	r := New(OS, nil, nil)

	tests := []struct {
		raw  string
		base string
		want string
	}{
		{"a.js", link, filepath.Join(root, "src", "a.js")},
		{"lib/b.js", link, filepath.Join(root, "src", "lib", "b.js")},
		{filepath.Join(link, "a.js"), "", filepath.Join(root, "src", "a.js")},
		{"file://" + filepath.Join(link, "lib", "b.js"), "", filepath.Join(root, "src", "lib", "b.js")},
	}
	for _, tt := range tests {
		if got := r.Resolve(tt.raw, tt.base); got != tt.want {
			t.Errorf("Resolve(%q, %q) = %q, want %q", tt.raw, tt.base, got, tt.want)
		}
	}

	direct, ok := r.Canonical(filepath.Join(root, "src", "a.js"))
	linked, ok2 := r.Canonical(filepath.Join(link, "a.js"))
	if !ok || !ok2 || direct != linked {
		t.Errorf("Canonical keys differ: %q vs %q", direct, linked)
	}
}

func TestResolveBrokenSymlinkIsMissing(t *testing.T) {
	root := tempTree(t)
	if err := os.Symlink(filepath.Join(root, "gone.js"), filepath.Join(root, "dangling.js")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}
	r := New(OS, nil, nil)
	if got := r.Lookup("dangling.js", root); got.Status != Missing {
		t.Errorf("Lookup = %+v, want Missing", got)
	}
}

func TestResolveMappedURI(t *testing.T) {
	root := tempTree(t, "dist/modules/Foo.jsm")
	uris := NewMappingURIResolver(map[string]string{
		"resource:///":        filepath.Join(root, "dist") + "/",
		"resource://gre/":     "/nowhere/",
		"resource:///modules": "file://" + filepath.Join(root, "dist", "modules"),
	})
	r := New(OS, uris, nil)

	got := r.Lookup("resource:///modules/Foo.jsm", "/ignored")
	if got.Status != Resolved {
		t.Fatalf("Lookup = %+v, want resolved", got)
	}
	if want := filepath.Join(root, "dist", "modules", "Foo.jsm"); got.Path != want {
		t.Errorf("path = %q, want %q", got.Path, want)
	}
}

func TestResolveUnsupportedSchemeIsOpaque(t *testing.T) {
	var buf bytes.Buffer
	r := New(OS, NewMappingURIResolver(nil), logging.NewLoggerTo(logging.LogLevelWarn, &buf))

	raw := "chrome://browser/content/browser.js"
	got := r.Lookup(raw, "/base")
	if got.Status != Opaque || got.Path != raw {
		t.Fatalf("Lookup = %+v, want opaque %q", got, raw)
	}
	if r.Resolve(raw, "/base") != raw {
		t.Error("Resolve should return the identifier unchanged")
	}
	if !strings.Contains(buf.String(), "Unknown URL") {
		t.Errorf("expected diagnostic, got %q", buf.String())
	}
	if strings.Count(buf.String(), "Unknown URL") != 1 {
		t.Errorf("diagnostic should be emitted once, got %q", buf.String())
	}
}

func TestResolveUnparseableURIIsOpaque(t *testing.T) {
	var buf bytes.Buffer
	r := New(OS, nil, logging.NewLoggerTo(logging.LogLevelWarn, &buf))

	raw := "foo.js -> ::not a uri"
	got := r.Lookup(raw, "/base")
	if got.Status != Opaque || got.Path != "::not a uri" {
		t.Fatalf("Lookup = %+v", got)
	}
	if !strings.Contains(buf.String(), "Unable to view URL") {
		t.Errorf("expected diagnostic, got %q", buf.String())
	}
}

func TestMappingURIResolverLongestPrefixWins(t *testing.T) {
	m := NewMappingURIResolver(map[string]string{
		"resource://":     "/a/",
		"resource://gre/": "/b/",
	})
	got, err := m.ResolveURI("resource://gre/modules/X.jsm")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "file:///b/modules/X.jsm" {
		t.Errorf("got %q", got)
	}

	got, err = m.ResolveURI("about:blank")
	if err != nil || got != "about:blank" {
		t.Errorf("unmapped URI = %q, %v; want passthrough", got, err)
	}
}

func TestStatusString(t *testing.T) {
	for s, want := range map[Status]string{Resolved: "resolved", Missing: "missing", Opaque: "opaque", Status(9): "unknown"} {
		if s.String() != want {
			t.Errorf("%d.String() = %q, want %q", s, s.String(), want)
		}
	}
}
