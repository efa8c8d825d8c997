package testsupport

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path"
	"strings"
	"sync"
	"testing"
)

// AListServer is an in-memory AList stand-in serving /api/fs/get and
// /api/fs/list. Directories are implied by file paths; a path ending in "/"
// declares an empty directory.
type AListServer struct {
	URL string

	mu       sync.Mutex
	children map[string][]aListChild
	files    map[string]int64
	listed   []string
	failing  map[string]int
}

type aListChild struct {
	name  string
	isDir bool
	size  int64
}

// NewAListServer starts a fake AList holding the given remote paths.
func NewAListServer(t testing.TB, paths ...string) *AListServer {
	t.Helper()

	fake := &AListServer{
		children: map[string][]aListChild{"/": {}},
		files:    make(map[string]int64),
		failing:  make(map[string]int),
	}
	for _, p := range paths {
		fake.add(p)
	}
	srv := httptest.NewServer(http.HandlerFunc(fake.serve))
	t.Cleanup(srv.Close)
	fake.URL = srv.URL
	return fake
}

func (f *AListServer) add(p string) {
	isDir := strings.HasSuffix(p, "/")
	p = path.Clean("/" + p)
	segments := strings.Split(strings.TrimPrefix(p, "/"), "/")
	parent := "/"
	for i, segment := range segments {
		current := path.Join(parent, segment)
		leafFile := i == len(segments)-1 && !isDir
		if !f.hasChild(parent, segment) {
			f.children[parent] = append(f.children[parent], aListChild{name: segment, isDir: !leafFile, size: int64(len(current))})
		}
		if leafFile {
			f.files[current] = int64(len(current))
		} else if _, ok := f.children[current]; !ok {
			f.children[current] = []aListChild{}
		}
		parent = current
	}
}

func (f *AListServer) hasChild(parent, name string) bool {
	for _, child := range f.children[parent] {
		if child.name == name {
			return true
		}
	}
	return false
}

// FailStatus makes listings of dir answer with the given HTTP status.
func (f *AListServer) FailStatus(dir string, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failing[path.Clean("/"+dir)] = status
}

// Listed returns the directories listed so far, in request order.
func (f *AListServer) Listed() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.listed...)
}

func (f *AListServer) serve(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Path string `json:"path"`
	}
	if r.Method != http.MethodPost || json.NewDecoder(r.Body).Decode(&req) != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	p := path.Clean("/" + req.Path)

	f.mu.Lock()
	defer f.mu.Unlock()

	switch r.URL.Path {
	case "/api/fs/get":
		if size, ok := f.files[p]; ok {
			writeAListEnvelope(w, 200, "success", map[string]any{"name": path.Base(p), "is_dir": false, "size": size})
			return
		}
		if _, ok := f.children[p]; ok {
			writeAListEnvelope(w, 200, "success", map[string]any{"name": path.Base(p), "is_dir": true})
			return
		}
		writeAListEnvelope(w, 500, "object not found", nil)
	case "/api/fs/list":
		f.listed = append(f.listed, p)
		if status, ok := f.failing[p]; ok {
			w.WriteHeader(status)
			return
		}
		children, ok := f.children[p]
		if !ok {
			writeAListEnvelope(w, 500, "object not found", nil)
			return
		}
		content := make([]map[string]any, 0, len(children))
		for _, child := range children {
			content = append(content, map[string]any{"name": child.name, "is_dir": child.isDir, "size": child.size})
		}
		writeAListEnvelope(w, 200, "success", map[string]any{"content": content, "total": len(content)})
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func writeAListEnvelope(w http.ResponseWriter, code int, message string, data any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"code": code, "message": message, "data": data})
}
