package registry

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"localcode/internal/common/fsutil"
	"localcode/pkg/types"
)

// ScanDir walks dir recursively and lists *.gguf files. Files inside the hub
// cache layout (hub/models--org--name/snapshots/<rev>/file) carry their RepoID.
// Blob files are skipped since snapshots reference them.
func ScanDir(dir string) ([]types.Model, error) {
	base, err := fsutil.ExpandHome(dir)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	if _, err := os.Stat(abs); err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var models []types.Model
	err = filepath.WalkDir(abs, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == "blobs" {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(strings.ToLower(d.Name()), ".gguf") {
			return nil
		}
		fi, err := os.Stat(p) // follows snapshot symlinks
		if err != nil {
			return nil
		}
		models = append(models, types.Model{
			ID:     d.Name(),
			Path:   p,
			Size:   fi.Size(),
			RepoID: repoFromCachePath(abs, p),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", abs, err)
	}
	sort.Slice(models, func(i, j int) bool { return models[i].Path < models[j].Path })
	return models, nil
}

func repoFromCachePath(root, p string) string {
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return ""
	}
	for _, seg := range strings.Split(filepath.ToSlash(rel), "/") {
		if rest, ok := strings.CutPrefix(seg, "models--"); ok {
			return strings.Replace(rest, "--", "/", 1)
		}
	}
	return ""
}
