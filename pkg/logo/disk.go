package logo

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// DiskStore writes logos into a directory served by the panel server.
type DiskStore struct {
	dir       string
	urlPrefix string
}

// NewDiskStore creates the directory if needed. urlPrefix is the path the
// directory is served under, e.g. "/logos/".
func NewDiskStore(dir, urlPrefix string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	if !strings.HasSuffix(urlPrefix, "/") {
		urlPrefix += "/"
	}
	return &DiskStore{dir: dir, urlPrefix: urlPrefix}, nil
}

// Put writes the image under a random name and returns its URL path.
func (s *DiskStore) Put(_ context.Context, img Image) (string, error) {
	name := newName(img)
	tmp := filepath.Join(s.dir, "."+name+".tmp")
	if err := os.WriteFile(tmp, img.Data, 0644); err != nil {
		return "", err
	}
	if err := os.Rename(tmp, filepath.Join(s.dir, name)); err != nil {
		os.Remove(tmp)
		return "", err
	}
	return s.urlPrefix + name, nil
}

// Prefix returns the URL path prefix.
func (s *DiskStore) Prefix() string {
	return s.urlPrefix
}

// Handler serves the stored logos. Mount it under Prefix.
func (s *DiskStore) Handler() http.Handler {
	return http.StripPrefix(s.urlPrefix, http.FileServer(http.Dir(s.dir)))
}
