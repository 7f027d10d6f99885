package resolver

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/vk/componentd/internal/fsutil"
	"github.com/vk/componentd/internal/manifest"
)

// FileResolver resolves file:// component URLs by loading HCL manifests
// from a root directory. The URL path names the manifest relative to the
// root; the manifest's directory doubles as the component's package dir.
type FileResolver struct {
	root string
}

// NewFileResolver returns a resolver rooted at the given directory.
func NewFileResolver(root string) *FileResolver {
	return &FileResolver{root: root}
}

// Resolve implements Resolver for the "file" scheme.
func (r *FileResolver) Resolve(ctx context.Context, componentURL string) (*ResolvedComponent, error) {
	u, err := url.Parse(componentURL)
	if err != nil {
		return nil, NewError(ManifestInvalid, componentURL, err)
	}
	if u.Scheme != "file" {
		return nil, NewError(SchemeNotRegistered, componentURL, nil)
	}

	rel := strings.TrimPrefix(u.Path, "/")
	if rel == "" {
		return nil, NewError(ManifestInvalid, componentURL, fmt.Errorf("component URL has no path"))
	}
	if !strings.HasSuffix(rel, ".hcl") {
		rel += ".hcl"
	}
	path := filepath.Join(r.root, filepath.FromSlash(rel))

	d, err := manifest.ParseFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, NewError(ManifestInvalid, componentURL, fmt.Errorf("manifest not found: %s", path))
		}
		return nil, NewError(ManifestInvalid, componentURL, err)
	}

	return &ResolvedComponent{
		URL:        componentURL,
		Decl:       d,
		PackageDir: filepath.Dir(path),
	}, nil
}

// ListComponents enumerates the component URLs this resolver can serve, by
// walking the root directory for manifests. Manifest validity is not
// checked; resolution still decides that.
func (r *FileResolver) ListComponents() ([]string, error) {
	paths, err := fsutil.FindFilesByExtension(r.root, ".hcl")
	if err != nil {
		return nil, err
	}
	urls := make([]string, 0, len(paths))
	for _, p := range paths {
		rel, err := filepath.Rel(r.root, p)
		if err != nil {
			return nil, err
		}
		rel = strings.TrimSuffix(filepath.ToSlash(rel), ".hcl")
		urls = append(urls, "file:///"+rel)
	}
	return urls, nil
}
