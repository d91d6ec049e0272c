package handlers

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/vitalvas/wire/httpwire"
)

// ErrStaticFilesNoRoot is returned when StaticFilesConfig.Root is empty.
var ErrStaticFilesNoRoot = errors.New("static files: root directory must not be empty")

// StaticFilesConfig configures the static file handler.
type StaticFilesConfig struct {
	// Root is the directory to serve files from. Required. It does not have
	// to exist yet; it is resolved on every request.
	Root string

	// IndexFile is served for "/". Defaults to "index.html".
	IndexFile string
}

// StaticFiles serves files from a directory tree. Paths that resolve outside
// the root, including through symlinks, are rejected.
type StaticFiles struct {
	root  string
	index string
}

// NewStaticFiles returns a static file handler for cfg.
func NewStaticFiles(cfg StaticFilesConfig) (*StaticFiles, error) {
	if cfg.Root == "" {
		return nil, ErrStaticFilesNoRoot
	}

	index := cfg.IndexFile
	if index == "" {
		index = "index.html"
	}

	return &StaticFiles{root: cfg.Root, index: index}, nil
}

// ServeWire implements Handler.
func (s *StaticFiles) ServeWire(_ context.Context, req *httpwire.Request) (*httpwire.Response, error) {
	name := req.Path
	if i := strings.IndexAny(name, "?#"); i >= 0 {
		name = name[:i]
	}
	if name == "/" {
		name = "/" + s.index
	}

	filePath := filepath.Join(s.root, filepath.FromSlash(name))

	resolved, err := s.resolve(filePath)
	if err != nil {
		if errors.Is(err, errOutsideRoot) {
			return httpwire.BadRequest().WithText("Invalid path"), nil
		}
		return notFound(), nil
	}

	info, err := os.Stat(resolved)
	if err != nil || info.IsDir() {
		return notFound(), nil
	}

	body, err := os.ReadFile(resolved)
	if err != nil {
		return notFound(), nil
	}

	return httpwire.OK().
		WithHeader("content-type", ContentType(filePath)).
		WithBody(body), nil
}

var errOutsideRoot = errors.New("static files: path outside root")

// resolve canonicalizes filePath and checks that it stays within the
// canonical root.
func (s *StaticFiles) resolve(filePath string) (string, error) {
	root, err := canonicalize(s.root)
	if err != nil {
		return "", err
	}

	resolved, err := canonicalize(filePath)
	if err != nil {
		return "", err
	}

	if !withinRoot(root, resolved) {
		return "", errOutsideRoot
	}

	return resolved, nil
}

// withinRoot reports whether the canonical path p is root or lies below it.
func withinRoot(root, p string) bool {
	if p == root {
		return true
	}

	prefix := root
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	return strings.HasPrefix(p, prefix)
}

func canonicalize(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}

func notFound() *httpwire.Response {
	return httpwire.NotFound().WithText("File not found")
}
