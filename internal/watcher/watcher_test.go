package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

const testDebounce = 50 * time.Millisecond

// recorder collects callback paths.
type recorder struct {
	mu    sync.Mutex
	paths []string
}

func (r *recorder) add(path string) {
	r.mu.Lock()
	r.paths = append(r.paths, path)
	r.mu.Unlock()
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.paths...)
}

func (r *recorder) has(suffix string) bool {
	for _, p := range r.snapshot() {
		if strings.HasSuffix(p, suffix) {
			return true
		}
	}
	return false
}

// eventually polls cond until it holds or the deadline passes.
func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Error(msg)
}

func startWatcher(t *testing.T, roots []string, exts []string, recursive bool, imported, removed *recorder) *Watcher {
	t.Helper()
	var onImport, onRemove func(string)
	if imported != nil {
		onImport = imported.add
	}
	if removed != nil {
		onRemove = removed.add
	}
	w := NewWatcher(roots, exts, recursive, onImport, onRemove, WithDebounce(testDebounce))
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(w.Stop)
	return w
}

func TestWatcher_AddRemoveDirectories(t *testing.T) {
	dir := t.TempDir()
	w := startWatcher(t, nil, []string{".json"}, true, nil, nil)

	if err := w.AddDirectory(dir, false); err != nil {
		t.Fatal(err)
	}
	// Adding twice is a no-op.
	if err := w.AddDirectory(dir, false); err != nil {
		t.Fatal(err)
	}
	dirs := w.Directories()
	if len(dirs) != 1 || dirs[0] != filepath.Clean(dir) {
		t.Errorf("Directories() = %v", dirs)
	}

	if err := w.RemoveDirectory(dir); err != nil {
		t.Fatal(err)
	}
	if len(w.Directories()) != 0 {
		t.Errorf("after remove: %v", w.Directories())
	}
	// Removing an unknown root is a no-op.
	if err := w.RemoveDirectory(filepath.Join(dir, "nope")); err != nil {
		t.Fatal(err)
	}
}

func TestWatcher_AddDirectory_syncExisting(t *testing.T) {
	dir := t.TempDir()
	if err := writeFile(filepath.Join(dir, "a.json"), "[]"); err != nil {
		t.Fatal(err)
	}
	imported := &recorder{}
	w := startWatcher(t, nil, []string{".json"}, true, imported, nil)
	if err := w.AddDirectory(dir, true); err != nil {
		t.Fatal(err)
	}
	eventually(t, func() bool { return imported.has("a.json") }, "existing a.json should be imported")
}

func TestWatcher_DebounceAndExtensionFilter(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")
	if err := mkdirAll(sub); err != nil {
		t.Fatal(err)
	}
	imported := &recorder{}
	startWatcher(t, []string{dir}, []string{".json"}, true, imported, nil)

	fPath := filepath.Join(sub, "f.json")
	for i := 0; i < 3; i++ {
		if err := writeFile(fPath, "[]"); err != nil {
			t.Fatal(err)
		}
	}
	if err := writeFile(filepath.Join(sub, "notes.txt"), "skip"); err != nil {
		t.Fatal(err)
	}
	eventually(t, func() bool { return imported.has("f.json") }, "f.json should be imported")
	time.Sleep(4 * testDebounce)

	count := 0
	for _, p := range imported.snapshot() {
		if strings.HasSuffix(p, "notes.txt") {
			t.Error("notes.txt should not be imported")
		}
		if p == fPath {
			count++
		}
	}
	if count != 1 {
		t.Errorf("rapid writes should collapse into one import, got %d", count)
	}
}

func TestWatcher_RemoveTriggersCallback(t *testing.T) {
	dir := t.TempDir()
	fPath := filepath.Join(dir, "gone.yaml")
	if err := writeFile(fPath, "[]"); err != nil {
		t.Fatal(err)
	}
	removed := &recorder{}
	startWatcher(t, []string{dir}, []string{".yaml"}, true, nil, removed)

	if err := os.Remove(fPath); err != nil {
		t.Fatal(err)
	}
	eventually(t, func() bool { return removed.has("gone.yaml") }, "gone.yaml removal should be reported")
}

func TestWatcher_RenameReportsOldName(t *testing.T) {
	dir := t.TempDir()
	oldPath := filepath.Join(dir, "old.json")
	if err := writeFile(oldPath, "[]"); err != nil {
		t.Fatal(err)
	}
	imported, removed := &recorder{}, &recorder{}
	startWatcher(t, []string{dir}, []string{".json"}, true, imported, removed)

	if err := os.Rename(oldPath, filepath.Join(dir, "new.json")); err != nil {
		t.Fatal(err)
	}
	eventually(t, func() bool { return removed.has("old.json") }, "old.json should be reported removed")
	eventually(t, func() bool { return imported.has("new.json") }, "new.json should be imported")
}

func TestMatchExtension(t *testing.T) {
	tests := []struct {
		path       string
		extensions []string
		want       bool
	}{
		{"/a/b.json", []string{".json"}, true},
		{"/a/b.JSON", []string{"json"}, true},
		{"/a/b.yml", []string{".json"}, false},
		{"/a/b", nil, true},
		{"/a/b", []string{}, true},
	}
	for _, tt := range tests {
		got := matchExtension(tt.path, tt.extensions)
		if got != tt.want {
			t.Errorf("matchExtension(%q, %v) = %v, want %v", tt.path, tt.extensions, got, tt.want)
		}
	}
}

func TestIgnoredName(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"tables.json", false},
		{".tables.json.swp", true},
		{"~$catalog.xlsx", true},
		{"tables.yaml~", true},
	}
	for _, tt := range tests {
		if got := ignoredName(tt.name); got != tt.want {
			t.Errorf("ignoredName(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestInDir(t *testing.T) {
	tests := []struct {
		dir  string
		path string
		want bool
	}{
		{"/tmp/a", "/tmp/a", true},
		{"/tmp/a", "/tmp/a/b.json", true},
		{"/tmp/a", "/tmp/b", false},
		{"/tmp/a", "/tmp/a/../b", false},
	}
	for _, tt := range tests {
		got := inDir(tt.dir, tt.path)
		if got != tt.want {
			t.Errorf("inDir(%q, %q) = %v, want %v", tt.dir, tt.path, got, tt.want)
		}
	}
}

func TestWatcher_SyncExistingFiles(t *testing.T) {
	dir := t.TempDir()
	nested := filepath.Join(dir, "nested")
	if err := mkdirAll(nested); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"a.json", "ignore.txt", ".hidden.json"} {
		if err := writeFile(filepath.Join(dir, name), "[]"); err != nil {
			t.Fatal(err)
		}
	}
	if err := writeFile(filepath.Join(nested, "b.json"), "[]"); err != nil {
		t.Fatal(err)
	}

	imported := &recorder{}
	w := startWatcher(t, []string{dir}, []string{".json"}, false, imported, nil)
	w.SyncExistingFiles()

	got := imported.snapshot()
	if len(got) != 1 || !strings.HasSuffix(got[0], "a.json") {
		t.Errorf("non-recursive sync: expected only a.json, got %v", got)
	}
}

func TestWatcher_Start_createsMissingRootDirectory(t *testing.T) {
	base := t.TempDir()
	root := filepath.Join(base, "watch", "me")

	startWatcher(t, []string{root}, []string{".json"}, true, nil, nil)

	if _, err := os.Stat(root); err != nil {
		t.Errorf("root directory should exist after Start: %v", err)
	}
}

func TestWatcher_HandleNewDirectory_importsFilesInNewFolder(t *testing.T) {
	dir := t.TempDir()
	imported := &recorder{}
	startWatcher(t, []string{dir}, []string{".json", ".yaml"}, true, imported, nil)

	// Simulate copying a folder with files into the watched directory
	newFolder := filepath.Join(dir, "new-folder", "level2")
	if err := mkdirAll(newFolder); err != nil {
		t.Fatal(err)
	}
	if err := writeFile(filepath.Join(newFolder, "a.json"), "[]"); err != nil {
		t.Fatal(err)
	}
	if err := writeFile(filepath.Join(newFolder, "b.yaml"), "[]"); err != nil {
		t.Fatal(err)
	}
	if err := writeFile(filepath.Join(newFolder, "ignore.xyz"), "skip"); err != nil {
		t.Fatal(err)
	}

	eventually(t, func() bool { return imported.has("a.json") && imported.has("b.yaml") },
		"files in the new folder should be imported")
	if imported.has("ignore.xyz") {
		t.Error("ignore.xyz should not be imported")
	}
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	w := NewWatcher([]string{t.TempDir()}, nil, true, nil, nil)
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	w.Stop()
	w.Stop()
	if w.Pending() != 0 {
		t.Errorf("Pending() = %d after Stop", w.Pending())
	}
}

func mkdirAll(path string) error {
	return os.MkdirAll(path, 0755)
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0600)
}
