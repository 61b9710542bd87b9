// Package layout computes canonical storage paths for tracked files and
// their derived artifacts. Every function is pure; the media root is a
// parameter, never package state, so one process can serve libraries on
// different roots at once.
package layout

import (
	"path"
	"strings"

	"github.com/papayastack/papaya/internal/storage"
)

// FileKind identifies which artifact of an entity a path belongs to.
type FileKind string

const (
	KindOriginal  FileKind = "original"
	KindThumbnail FileKind = "thumbnail"
	KindPreview   FileKind = "preview"
	KindVideo     FileKind = "video"
	KindSidecar   FileKind = "sidecar"
)

// kindDirs maps each kind to its top-level directory under the root.
var kindDirs = map[FileKind]string{
	KindOriginal:  "originals",
	KindThumbnail: "thumbnails",
	KindPreview:   "previews",
	KindVideo:     "videos",
	KindSidecar:   "sidecar",
}

// Valid reports whether k is a known file kind.
func (k FileKind) Valid() bool {
	_, ok := kindDirs[k]
	return ok
}

// FanOut returns the two-level directory prefix for a filename, derived
// from its leading characters. The fan-out bounds entries per directory
// on very large collections and is stable for a given filename.
func FanOut(filename string) string {
	name := strings.ToLower(filename)
	return segment(name, 0) + "/" + segment(name, 2)
}

// segment returns two characters of name starting at off, padded with
// zeros for short names so every file lands exactly two levels deep.
func segment(name string, off int) string {
	const pad = "00"
	if len(name) <= off {
		return pad
	}
	s := name[off:]
	if len(s) >= 2 {
		return s[:2]
	}
	return s + pad[len(s):]
}

// RelativePath returns the canonical path of a file relative to the
// media root: <kind dir>/<owner>/<fan-out>/<filename>.
func RelativePath(ownerID string, kind FileKind, filename string) string {
	dir := kindDirs[kind]
	if dir == "" {
		dir = string(KindOriginal)
	}
	return path.Join(dir, ownerID, FanOut(filename), filename)
}

// FullPath prepends the media root to the canonical relative path.
// Logical paths use forward slashes on both backends, so a remote root's
// host/bucket pair simply becomes the leading segments and the remainder
// is the object key.
func FullPath(root, ownerID string, kind FileKind, filename string) string {
	return path.Join(root, RelativePath(ownerID, kind, filename))
}

// NeedsMkdir reports whether destinations under this root require
// directory creation. Object keys have no directories.
func NeedsMkdir(root string) bool {
	return !storage.IsRemote(root)
}
