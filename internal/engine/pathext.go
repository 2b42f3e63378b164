package engine

import (
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// PathExt provides the pure path operations of §4.1 over an afero
// filesystem so the pipeline and its tests can run against either a
// real OS tree or an in-memory one.
type PathExt struct {
	Fs afero.Fs
}

// NewPathExt builds a PathExt bound to fs.
func NewPathExt(fs afero.Fs) *PathExt { return &PathExt{Fs: fs} }

// Mime guesses a MIME type by file extension only — no content
// sniffing, per spec §4.1.
func Mime(p string) (string, bool) {
	ext := filepath.Ext(p)
	if ext == "" {
		return "", false
	}
	typ := mime.TypeByExtension(ext)
	if typ == "" {
		return "", false
	}
	return typ, true
}

// IsRelativelyHidden reports whether any path component begins with a
// dot.
func IsRelativelyHidden(p string) bool {
	p = filepath.ToSlash(p)
	for _, seg := range strings.Split(p, "/") {
		if strings.HasPrefix(seg, ".") && seg != "" {
			return true
		}
	}
	return false
}

// Filename returns the last path component, empty if absent.
func Filename(p string) string {
	base := filepath.Base(filepath.ToSlash(p))
	if base == "." || base == "/" {
		return ""
	}
	return base
}

// Stat wraps afero.Fs.Stat (it follows symlinks; Type does the
// symlink classification). mtime/size failures are fatal for the request per
// spec §4.1 — callers bubble the error up to a 500.
func (px *PathExt) Stat(p string) (os.FileInfo, error) {
	return px.Fs.Stat(p)
}

// Type classifies p as PathType by consulting symlink metadata plus
// IsDir. afero's Lstater interface is used when the backing fs
// supports it (the OS fs does). The in-memory fs has no symlinks and
// its Lstat never reports one, so File/Dir is accurate there too.
func (px *PathExt) Type(p string) (PathType, error) {
	isSymlink := false
	if lst, ok := px.Fs.(afero.Lstater); ok {
		fi, _, err := lst.LstatIfPossible(p)
		if err == nil && fi.Mode()&os.ModeSymlink != 0 {
			isSymlink = true
		}
	}
	fi, err := px.Fs.Stat(p)
	if err != nil {
		return 0, err
	}
	switch {
	case fi.IsDir() && isSymlink:
		return PathSymlinkDir, nil
	case fi.IsDir():
		return PathDir, nil
	case isSymlink:
		return PathSymlinkFile, nil
	default:
		return PathFile, nil
	}
}

// MakeETag builds the normative validator for a file from its mtime
// and size: `"<mtime_unix_secs>-<size_bytes>"`, strong, decimal.
func MakeETag(mtimeUnix int64, size int64) string {
	return `"` + itoa64(mtimeUnix) + "-" + itoa64(size) + `"`
}

func itoa64(n int64) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	pos := len(buf)
	for n > 0 {
		pos--
		buf[pos] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		pos--
		buf[pos] = '-'
	}
	return string(buf[pos:])
}
