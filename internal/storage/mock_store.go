package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/TheMichaelB/sharegate/internal/models"
)

// Mock operation names used for call counting and fault injection.
const (
	OpStat      = "stat"
	OpExists    = "exists"
	OpOpenRead  = "open_read"
	OpRead      = "read"
	OpOpenWrite = "open_write"
	OpWrite     = "write"
	OpListDir   = "list_dir"
	OpMkdir     = "mkdir"
	OpMkdirAll  = "mkdir_all"
	OpDelete    = "delete"
	OpRename    = "rename"
)

type fault struct {
	op   string
	path string
	err  error
}

// MockStore is an in-memory Share for testing. It counts calls and can be
// told to fail specific operations.
type MockStore struct {
	mu     sync.RWMutex
	files  map[string][]byte
	dirs   map[string]bool
	calls  map[string]int
	faults []fault
	closed bool
}

// NewMockStore creates an empty share holding only the root directory.
func NewMockStore() *MockStore {
	return &MockStore{
		files: make(map[string][]byte),
		dirs:  map[string]bool{"/": true},
		calls: make(map[string]int),
	}
}

// Scheme implements Share.
func (m *MockStore) Scheme() string {
	return "mem"
}

// FailOn makes op fail with err. An empty p matches every path; for
// rename the source path is matched.
func (m *MockStore) FailOn(op, p string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if p != "" {
		p = Clean(p)
	}
	m.faults = append(m.faults, fault{op: op, path: p, err: err})
}

// ClearFaults removes every injected failure.
func (m *MockStore) ClearFaults() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.faults = nil
}

// Calls returns how often op was invoked.
func (m *MockStore) Calls(op string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls[op]
}

// TotalCalls returns the number of backend calls of any kind.
func (m *MockStore) TotalCalls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	total := 0
	for _, n := range m.calls {
		total += n
	}
	return total
}

// ResetCalls zeroes the call counters.
func (m *MockStore) ResetCalls() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = make(map[string]int)
}

// Stat returns entry metadata.
func (m *MockStore) Stat(_ context.Context, p string) (models.FileInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p = Clean(p)
	if err := m.enter(OpStat, p); err != nil {
		return models.FileInfo{}, err
	}
	return m.statLocked(p)
}

// Exists checks if an entry exists.
func (m *MockStore) Exists(_ context.Context, p string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p = Clean(p)
	if err := m.enter(OpExists, p); err != nil {
		return false, err
	}

	_, isFile := m.files[p]
	return isFile || m.dirs[p], nil
}

// OpenRead returns a reader over a snapshot of the file.
func (m *MockStore) OpenRead(_ context.Context, p string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p = Clean(p)
	if err := m.enter(OpOpenRead, p); err != nil {
		return nil, err
	}

	data, ok := m.files[p]
	if !ok {
		return nil, notExist("open", p)
	}

	snapshot := make([]byte, len(data))
	copy(snapshot, data)

	if err := m.faultFor(OpRead, p); err != nil {
		return io.NopCloser(&failingReader{data: snapshot, err: err}), nil
	}
	return io.NopCloser(bytes.NewReader(snapshot)), nil
}

// OpenWrite returns a writer that stores its content on Close.
func (m *MockStore) OpenWrite(_ context.Context, p string) (io.WriteCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p = Clean(p)
	if err := m.enter(OpOpenWrite, p); err != nil {
		return nil, err
	}
	if !m.dirs[path.Dir(p)] {
		return nil, notExist("create", p)
	}
	if m.dirs[p] {
		return nil, &os.PathError{Op: "create", Path: p, Err: fmt.Errorf("is a directory")}
	}

	m.files[p] = []byte{}
	return &mockWriter{store: m, path: p, err: m.faultFor(OpWrite, p)}, nil
}

// ListDir returns the direct children of a directory, sorted by name.
func (m *MockStore) ListDir(_ context.Context, p string) ([]models.FileInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p = Clean(p)
	if err := m.enter(OpListDir, p); err != nil {
		return nil, err
	}
	if !m.dirs[p] {
		return nil, notExist("readdir", p)
	}

	var entries []models.FileInfo
	for _, child := range m.childrenLocked(p) {
		info, _ := m.statLocked(child)
		entries = append(entries, info)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

// Mkdir creates a single directory.
func (m *MockStore) Mkdir(_ context.Context, p string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p = Clean(p)
	if err := m.enter(OpMkdir, p); err != nil {
		return err
	}

	if _, isFile := m.files[p]; isFile || m.dirs[p] {
		return &os.PathError{Op: "mkdir", Path: p, Err: os.ErrExist}
	}
	if !m.dirs[path.Dir(p)] {
		return notExist("mkdir", p)
	}

	m.dirs[p] = true
	return nil
}

// MkdirAll creates a directory and its parents.
func (m *MockStore) MkdirAll(_ context.Context, p string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p = Clean(p)
	if err := m.enter(OpMkdirAll, p); err != nil {
		return err
	}

	for dir := p; ; dir = path.Dir(dir) {
		if _, isFile := m.files[dir]; isFile {
			return &os.PathError{Op: "mkdir", Path: dir, Err: fmt.Errorf("not a directory")}
		}
		m.dirs[dir] = true
		if dir == "/" {
			break
		}
	}
	return nil
}

// Delete removes a file or an empty directory.
func (m *MockStore) Delete(_ context.Context, p string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p = Clean(p)
	if err := m.enter(OpDelete, p); err != nil {
		return err
	}

	if _, ok := m.files[p]; ok {
		delete(m.files, p)
		return nil
	}
	if m.dirs[p] {
		if p == "/" || len(m.childrenLocked(p)) > 0 {
			return &os.PathError{Op: "remove", Path: p, Err: fmt.Errorf("directory not empty")}
		}
		delete(m.dirs, p)
		return nil
	}

	return notExist("remove", p)
}

// Rename moves a file or directory tree, replacing a destination file.
func (m *MockStore) Rename(_ context.Context, oldPath, newPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	oldPath, newPath = Clean(oldPath), Clean(newPath)
	if err := m.enter(OpRename, oldPath); err != nil {
		return err
	}
	if !m.dirs[path.Dir(newPath)] {
		return notExist("rename", newPath)
	}

	if data, ok := m.files[oldPath]; ok {
		if m.dirs[newPath] {
			return &os.LinkError{Op: "rename", Old: oldPath, New: newPath, Err: os.ErrExist}
		}
		delete(m.files, oldPath)
		m.files[newPath] = data
		return nil
	}

	if m.dirs[oldPath] {
		prefix := oldPath + "/"
		if strings.HasPrefix(newPath, prefix) {
			return &os.LinkError{Op: "rename", Old: oldPath, New: newPath, Err: fmt.Errorf("invalid argument")}
		}

		var movedFiles, movedDirs []string
		for f := range m.files {
			if strings.HasPrefix(f, prefix) {
				movedFiles = append(movedFiles, f)
			}
		}
		for d := range m.dirs {
			if d == oldPath || strings.HasPrefix(d, prefix) {
				movedDirs = append(movedDirs, d)
			}
		}

		for _, f := range movedFiles {
			data := m.files[f]
			delete(m.files, f)
			m.files[newPath+strings.TrimPrefix(f, oldPath)] = data
		}
		for _, d := range movedDirs {
			delete(m.dirs, d)
			m.dirs[newPath+strings.TrimPrefix(d, oldPath)] = true
		}
		return nil
	}

	return notExist("rename", oldPath)
}

// Close marks the store closed.
func (m *MockStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Helper methods for testing

// PutFile stores data at p, creating parent directories.
func (m *MockStore) PutFile(p string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p = Clean(p)
	for dir := path.Dir(p); ; dir = path.Dir(dir) {
		m.dirs[dir] = true
		if dir == "/" {
			break
		}
	}
	m.files[p] = append([]byte(nil), data...)
}

// File returns the content stored at p.
func (m *MockStore) File(p string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.files[Clean(p)]
	return data, ok
}

// FileExists checks if a file exists.
func (m *MockStore) FileExists(p string) bool {
	_, ok := m.File(p)
	return ok
}

// DirExists checks if a directory exists.
func (m *MockStore) DirExists(p string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.dirs[Clean(p)]
}

// Closed reports whether Close was called.
func (m *MockStore) Closed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}

// Paths lists every file and directory, sorted.
func (m *MockStore) Paths() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]string, 0, len(m.files)+len(m.dirs))
	for f := range m.files {
		out = append(out, f)
	}
	for d := range m.dirs {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// enter counts the call and returns any injected failure. Caller holds mu.
func (m *MockStore) enter(op, p string) error {
	m.calls[op]++
	return m.faultFor(op, p)
}

func (m *MockStore) faultFor(op, p string) error {
	for _, f := range m.faults {
		if f.op == op && (f.path == "" || f.path == p) {
			return f.err
		}
	}
	return nil
}

func (m *MockStore) statLocked(p string) (models.FileInfo, error) {
	if data, ok := m.files[p]; ok {
		return models.FileInfo{
			Name:    path.Base(p),
			Path:    p,
			Size:    int64(len(data)),
			Mode:    0644,
			ModTime: time.Now(),
		}, nil
	}

	if m.dirs[p] {
		return models.FileInfo{
			Name:    path.Base(p),
			Path:    p,
			Mode:    os.ModeDir | 0755,
			ModTime: time.Now(),
			IsDir:   true,
		}, nil
	}

	return models.FileInfo{}, notExist("stat", p)
}

func (m *MockStore) childrenLocked(dir string) []string {
	var children []string
	for f := range m.files {
		if f != dir && path.Dir(f) == dir {
			children = append(children, f)
		}
	}
	for d := range m.dirs {
		if d != dir && path.Dir(d) == dir {
			children = append(children, d)
		}
	}
	return children
}

func notExist(op, p string) error {
	return &os.PathError{Op: op, Path: p, Err: os.ErrNotExist}
}

type mockWriter struct {
	store *MockStore
	path  string
	buf   bytes.Buffer
	err   error
}

func (w *mockWriter) Write(p []byte) (int, error) {
	if w.err != nil {
		return 0, w.err
	}
	return w.buf.Write(p)
}

func (w *mockWriter) Close() error {
	w.store.mu.Lock()
	defer w.store.mu.Unlock()

	if _, ok := w.store.files[w.path]; ok {
		w.store.files[w.path] = w.buf.Bytes()
	}
	return nil
}

// failingReader yields half the data, then err.
type failingReader struct {
	data []byte
	off  int
	err  error
}

func (r *failingReader) Read(p []byte) (int, error) {
	half := len(r.data) / 2
	if r.off >= half {
		return 0, r.err
	}
	n := copy(p, r.data[r.off:half])
	r.off += n
	return n, nil
}
