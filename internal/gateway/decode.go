package gateway

import (
	"encoding/base64"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
)

// DefaultImageMIMEType is assumed when a data URL does not name one.
const DefaultImageMIMEType = "image/jpeg"

// Image is raw image bytes plus their media type.
type Image struct {
	MIMEType string
	Data     []byte
}

func (i Image) mimeType() string {
	if i.MIMEType == "" {
		return DefaultImageMIMEType
	}
	return i.MIMEType
}

// ParseDataURL decodes "data:<mime>;base64,<payload>". A header without a
// media type yields DefaultImageMIMEType.
func ParseDataURL(dataURL string) (Image, error) {
	header, payload, ok := strings.Cut(dataURL, ",")
	if !ok {
		return Image{}, fmt.Errorf("%w: missing data URL separator", ErrInvalidImage)
	}

	mime := DefaultImageMIMEType
	if _, rest, found := strings.Cut(header, ":"); found {
		if m, _, found := strings.Cut(rest, ";"); found && m != "" {
			mime = m
		}
	}

	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(payload))
	if err != nil {
		return Image{}, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if len(data) == 0 {
		return Image{}, fmt.Errorf("%w: empty payload", ErrInvalidImage)
	}
	return Image{MIMEType: mime, Data: data}, nil
}

// ReadImageFile loads a screenshot from disk.
func ReadImageFile(path string) (Image, error) {
	name := filepath.Base(path)
	if _, err := imageType(name); err != nil {
		return Image{}, fmt.Errorf("ReadImageFile: %w", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Image{}, fmt.Errorf("ReadImageFile: %w", err)
	}
	return NewImage(name, data)
}

// NewImage wraps data read from a file or object called name. The media type
// comes from the name's extension; names without an image extension and
// empty data are rejected.
func NewImage(name string, data []byte) (Image, error) {
	mediaType, err := imageType(name)
	if err != nil {
		return Image{}, err
	}
	if len(data) == 0 {
		return Image{}, fmt.Errorf("%w: %s is empty", ErrInvalidImage, name)
	}
	return Image{MIMEType: mediaType, Data: data}, nil
}

func imageType(name string) (string, error) {
	mediaType := mime.TypeByExtension(strings.ToLower(filepath.Ext(name)))
	if i := strings.Index(mediaType, ";"); i >= 0 {
		mediaType = mediaType[:i]
	}
	if !strings.HasPrefix(mediaType, "image/") {
		return "", fmt.Errorf("%w: %s is not an image file", ErrInvalidImage, name)
	}
	return mediaType, nil
}

// cleanModelJSON strips Markdown code fences and any chatter around the
// outermost JSON object or array.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	// Handle ```json ... ``` or ``` ... ``` wrappers.
	if strings.HasPrefix(s, "```") {
		idx := strings.Index(s, "\n")
		if idx == -1 {
			return s
		}
		s = strings.TrimSpace(s[idx+1:])
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	start := strings.IndexAny(s, "[{")
	if start == -1 {
		return s
	}
	closer := "}"
	if s[start] == '[' {
		closer = "]"
	}
	if end := strings.LastIndex(s, closer); end > start {
		s = s[start : end+1]
	}
	return strings.TrimSpace(s)
}
