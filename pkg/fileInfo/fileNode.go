package fileInfo

import (
	"fmt"
	"os"

	"github.com/gabriel-vasile/mimetype"
)

// ZipMimeType is the MIME type reported for zip archives.
const ZipMimeType = "application/zip"

// FileNode describes a downloaded file.
type FileNode struct {
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	MimeType string `json:"mime_type,omitempty"`
	Path     string `json:"-"`

	zipBased bool
}

// Describe stats path and sniffs its content type.
func Describe(path string) (FileNode, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileNode{}, err
	}
	if info.IsDir() {
		return FileNode{}, fmt.Errorf("%s is a directory", path)
	}

	node := FileNode{
		Name: info.Name(),
		Size: info.Size(),
		Path: path,
	}
	mime, err := mimetype.DetectFile(path)
	if err != nil {
		node.MimeType = "application/octet-stream"
	} else {
		node.MimeType = mime.String()
		for m := mime; m != nil; m = m.Parent() {
			if m.Is(ZipMimeType) {
				node.zipBased = true
				break
			}
		}
	}
	return node, nil
}

// IsZip reports whether the content is a zip archive, including formats
// built on zip such as epub, docx or jar.
func (n FileNode) IsZip() bool {
	return n.zipBased || mimetype.EqualsAny(n.MimeType, ZipMimeType)
}
