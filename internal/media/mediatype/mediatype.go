// Package mediatype sniffs file content and classifies it as audio, image
// or unknown.
package mediatype

import (
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Type is the coarse media class of a file.
type Type string

const (
	Audio   Type = "audio"
	Image   Type = "image"
	Unknown Type = "unknown"
)

// Ogg containers sniff as application/ogg when the codec page is not
// recognized; they are treated as audio.
var audioContainers = map[string]struct{}{
	"application/ogg": {},
}

// Classify maps a MIME type string onto a Type.
func Classify(mime string) Type {
	mime = strings.ToLower(strings.TrimSpace(mime))
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	switch {
	case strings.HasPrefix(mime, "audio/"):
		return Audio
	case strings.HasPrefix(mime, "image/"):
		return Image
	}
	if _, ok := audioContainers[mime]; ok {
		return Audio
	}
	return Unknown
}

// Detect sniffs the file at path and returns its MIME type and class.
func Detect(path string) (string, Type, error) {
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return "", Unknown, fmt.Errorf("detect media type: %w", err)
	}
	mime := mtype.String()
	return mime, Classify(mime), nil
}
