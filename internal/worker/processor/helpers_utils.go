package processor

import (
	"path"
	"strings"
)

// SanitizeFilename strips path separators and traversal from a name.
func SanitizeFilename(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "..", "")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	if s == "" {
		return "input"
	}
	return s
}

// ExtFromMime returns the file extension for the MIME types accepted on upload.
func ExtFromMime(mime string) string {
	mime = strings.ToLower(strings.TrimSpace(mime))
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	switch mime {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/tiff":
		return ".tif"
	case "application/vnd.openxmlformats-officedocument.presentationml.presentation":
		return ".pptx"
	default:
		return ""
	}
}

// extFor picks the extension of a spooled object: the key's own extension
// when it has one (localfs), the content type otherwise (gdrive file IDs).
func extFor(objectKey, contentType string) string {
	if ext := strings.ToLower(path.Ext(objectKey)); ext != "" {
		return ext
	}
	return ExtFromMime(contentType)
}
