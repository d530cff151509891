// Package imagefmt detects image formats from raw bytes and builds data URIs.
package imagefmt

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// DefaultFormat is used when a format cannot be determined or is not one of
// the commonly supported formats.
const DefaultFormat = "jpeg"

// dataURIPrefix marks a payload that is already a self-describing inline image.
const dataURIPrefix = "data:image"

// ErrUnrecognized is returned when bytes do not decode as any known image format.
var ErrUnrecognized = errors.New("unrecognized image data")

var common = map[string]bool{
	"jpeg": true,
	"png":  true,
	"webp": true,
	"gif":  true,
}

// Detect returns the image format of data ("png", "jpeg", "gif", "webp",
// "bmp" or "tiff"). Only the header is decoded.
func Detect(data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrUnrecognized
	}
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnrecognized, err)
	}
	if format == "" {
		return DefaultFormat, nil
	}
	return strings.ToLower(format), nil
}

// IsCommon reports whether format is one of jpeg, png, webp or gif.
func IsCommon(format string) bool {
	return common[strings.ToLower(format)]
}

// Normalize maps format to itself when it is common and to DefaultFormat otherwise.
func Normalize(format string) string {
	if IsCommon(format) {
		return strings.ToLower(format)
	}
	return DefaultFormat
}

// MIMEType returns image/<format>, falling back to image/jpeg for an empty format.
func MIMEType(format string) string {
	if format == "" {
		format = DefaultFormat
	}
	return "image/" + strings.ToLower(format)
}

// DataURI builds data:image/<format>;base64,<payload>. payload must already be base64.
func DataURI(format, payload string) string {
	return "data:" + MIMEType(format) + ";base64," + payload
}

// IsDataURI reports whether s is already an inline image data URI.
func IsDataURI(s string) bool {
	return strings.HasPrefix(s, dataURIPrefix)
}
