package server

import (
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"fmt"
	"io/fs"
	"mime"
	"net/http"
	"path"
	"strings"
	"sync"
)

//go:embed static/*
var staticFiles embed.FS

// assetContentTypes pins the types of the assets pages load, independent of
// the host's mime tables.
var assetContentTypes = map[string]string{
	".css": "text/css; charset=utf-8",
	".js":  "text/javascript; charset=utf-8",
}

type staticAsset struct {
	data        []byte
	contentType string
	etag        string
}

// version is the short content hash used in asset URLs.
func (a staticAsset) version() string {
	return strings.Trim(a.etag, `"`)
}

func StaticFilesFS() fs.FS {
	subFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic("Failed to create sub filesystem: " + err.Error())
	}
	return subFS
}

var loadAssets = sync.OnceValues(func() (map[string]staticAsset, error) {
	assets := map[string]staticAsset{}
	err := fs.WalkDir(StaticFilesFS(), ".", func(name string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := fs.ReadFile(StaticFilesFS(), name)
		if err != nil {
			return err
		}
		sum := sha256.Sum256(data)
		assets[name] = staticAsset{
			data:        data,
			contentType: contentTypeFor(name, data),
			etag:        `"` + hex.EncodeToString(sum[:6]) + `"`,
		}
		return nil
	})
	return assets, err
})

func contentTypeFor(name string, data []byte) string {
	ext := strings.ToLower(path.Ext(name))
	if ctype, ok := assetContentTypes[ext]; ok {
		return ctype
	}
	ctype := mime.TypeByExtension(ext)
	if ctype == "" {
		ctype = http.DetectContentType(data)
	}
	if strings.HasPrefix(ctype, "text/") && !strings.Contains(strings.ToLower(ctype), "charset=") {
		ctype += "; charset=utf-8"
	}
	return ctype
}

// AssetPath is the URL pages use for a static file. The version query changes
// whenever the file does, so browsers can cache it for good.
func AssetPath(name string) string {
	name = strings.TrimPrefix(name, "/")
	assets, err := loadAssets()
	if err != nil {
		return "/" + name
	}
	a, ok := assets[name]
	if !ok {
		return "/" + name
	}
	return "/" + name + "?v=" + a.version()
}

// StreamFile writes an embedded static file, answering 304 when the browser
// already holds the current version.
func StreamFile(w http.ResponseWriter, r *http.Request, fileName string) error {
	assets, err := loadAssets()
	if err != nil {
		return fmt.Errorf("failed to load static files: %w", err)
	}
	a, ok := assets[fileName]
	if !ok {
		return fmt.Errorf("failed to open %s: %w", fileName, fs.ErrNotExist)
	}

	w.Header().Set("ETag", a.etag)
	if r != nil && r.Header.Get("If-None-Match") == a.etag {
		w.WriteHeader(http.StatusNotModified)
		return nil
	}
	w.Header().Set("Content-Type", a.contentType)
	if _, err := w.Write(a.data); err != nil {
		return fmt.Errorf("failed to write %s content: %w", fileName, err)
	}
	return nil
}
