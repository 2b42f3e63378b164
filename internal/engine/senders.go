package engine

import (
	"archive/zip"
	"errors"
	"html/template"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/blazehttp/blazefs/internal/reload"
)

// copyBufSize bounds the read buffer used by the streaming senders,
// per spec §5 resource limits (4-16 KiB).
const copyBufSize = 16 * 1024

// ErrInvalidRange is returned by SendFileRange when start > end.
var ErrInvalidRange = errors.New("engine: invalid range: start > end")

// SendDir renders a depth-1 directory listing as §4.5 describes:
// filtered by hidden/ignore rules, "..", sorted, with breadcrumbs.
// watch threads SPEC_FULL.md §3's live-reload supplement: when true,
// the rendered page embeds reload.Script so it opens a websocket to
// reload.Endpoint and refreshes on filesystem change.
func SendDir(fs afero.Fs, ignorer *Ignorer, root, dirPath, pathPrefix string, all, ignoreEnabled bool, style string, watch bool) ([]byte, error) {
	entries, err := afero.ReadDir(fs, dirPath)
	if err != nil {
		return nil, err
	}

	relDir := relSlash(root, dirPath)
	items := make(ListingItems, 0, len(entries)+1)

	if dirPath != root {
		parent := path.Dir(relDir)
		if parent == "." {
			parent = ""
		}
		items = append(items, ListingItem{
			PathType: PathDir,
			Name:     "..",
			Href:     hrefFor(pathPrefix, parent),
		})
	}

	px := NewPathExt(fs)
	for _, fi := range entries {
		name := fi.Name()
		entryRel := path.Join(relDir, name)

		if IsRelativelyHidden(name) && !all {
			continue
		}
		if ignoreEnabled && ignorer.MatchesPath(entryRel) {
			continue
		}

		pt, err := px.Type(filepath.Join(dirPath, name))
		if err != nil {
			return nil, err
		}

		href := hrefFor(pathPrefix, entryRel)
		if pt == PathDir || pt == PathSymlinkDir {
			href += "/"
		}
		items = append(items, ListingItem{PathType: pt, Name: name, Href: href})
	}

	SortListing(items)

	breadcrumbs := buildBreadcrumbs(pathPrefix, relDir)

	dirName := relDir
	if dirName == "." || dirName == "" {
		dirName = "/"
	}

	var reloadScript template.HTML
	if watch {
		reloadScript = template.HTML(reload.Script)
	}

	return RenderListing(ListingPage{
		DirName:      dirName,
		Files:        items,
		Breadcrumbs:  breadcrumbs,
		Style:        template.CSS(style),
		ReloadScript: reloadScript,
	}), nil
}

func relSlash(root, p string) string {
	rel, err := filepath.Rel(root, p)
	if err != nil {
		rel = p
	}
	rel = filepath.ToSlash(rel)
	if rel == "." {
		return ""
	}
	return rel
}

func hrefFor(pathPrefix, rel string) string {
	rel = strings.TrimPrefix(rel, "/")
	return pathPrefix + "/" + rel
}

// buildBreadcrumbs builds one Breadcrumb per path segment from root to
// dirPath's relative path, including the root itself.
func buildBreadcrumbs(pathPrefix, relDir string) []Breadcrumb {
	crumbs := []Breadcrumb{{Name: "/", Href: pathPrefix + "/"}}
	if relDir == "" {
		return crumbs
	}
	segs := strings.Split(relDir, "/")
	accum := ""
	for _, seg := range segs {
		if seg == "" {
			continue
		}
		accum = path.Join(accum, seg)
		crumbs = append(crumbs, Breadcrumb{Name: seg, Href: hrefFor(pathPrefix, accum) + "/"})
	}
	return crumbs
}

// SendFile streams the whole file from offset 0 to EOF into w using a
// bounded buffer.
func SendFile(fs afero.Fs, filePath string, w io.Writer) (int64, error) {
	f, err := fs.Open(filePath)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return io.CopyBuffer(w, f, make([]byte, copyBufSize))
}

// SendFileRange streams bytes [start, end] (inclusive) of filePath
// into w. Returns ErrInvalidRange if start > end.
func SendFileRange(fs afero.Fs, filePath string, start, end int64, w io.Writer) error {
	if start > end {
		return ErrInvalidRange
	}
	f, err := fs.Open(filePath)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.Seek(start, io.SeekStart); err != nil {
		return err
	}
	n := end - start + 1
	_, err = io.CopyN(w, f, n)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// SendDirAsZip walks dirPath (respecting all/ignore) and writes a ZIP
// archive — Stored method, unix perms 0o755 — into a spooled temp
// file, then rewinds it for the caller to stream back. The caller MUST
// close and remove the returned file when done.
func SendDirAsZip(fs afero.Fs, dirPath string, ignorer *Ignorer, all, ignoreEnabled bool) (afero.File, int64, error) {
	tmp, err := afero.TempFile(fs, "", "blazefs-zip-*")
	if err != nil {
		return nil, 0, err
	}

	zw := zip.NewWriter(tmp)
	walkErr := afero.Walk(fs, dirPath, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if p == dirPath {
			return nil
		}
		rel, err := filepath.Rel(dirPath, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if IsRelativelyHidden(rel) && !all {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if ignoreEnabled && ignorer.MatchesPath(rel) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if info.IsDir() {
			_, err := zw.CreateHeader(&zip.FileHeader{
				Name:   rel + "/",
				Method: zip.Store,
			})
			return err
		}

		hdr, err := zip.FileInfoHeader(info)
		if err != nil {
			return err
		}
		hdr.Name = rel
		hdr.Method = zip.Store
		hdr.SetMode(0o755)

		w, err := zw.CreateHeader(hdr)
		if err != nil {
			return err
		}
		src, err := fs.Open(p)
		if err != nil {
			return err
		}
		defer src.Close()
		_, err = io.CopyBuffer(w, src, make([]byte, copyBufSize))
		return err
	})
	if walkErr != nil {
		zw.Close()
		tmp.Close()
		fs.Remove(tmp.Name())
		return nil, 0, walkErr
	}
	if err := zw.Close(); err != nil {
		tmp.Close()
		fs.Remove(tmp.Name())
		return nil, 0, err
	}

	size, err := tmp.Seek(0, io.SeekEnd)
	if err != nil {
		tmp.Close()
		fs.Remove(tmp.Name())
		return nil, 0, err
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		tmp.Close()
		fs.Remove(tmp.Name())
		return nil, 0, err
	}
	return tmp, size, nil
}
