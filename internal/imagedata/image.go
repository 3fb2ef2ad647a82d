// internal/imagedata/image.go
package imagedata

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	MimeJPEG = "image/jpeg"
	MimePNG  = "image/png"
)

var (
	ErrNotFound   = errors.New("image file not found")
	ErrEmptyImage = errors.New("image data is empty")
)

// Image is an inline image payload ready for the model request.
type Image struct {
	Data     string // base64, standard encoding
	MimeType string
	Size     int // decoded bytes
}

// MimeTypeFor infers the MIME type from the file extension: .png is PNG, anything else JPEG.
func MimeTypeFor(path string) string {
	if strings.ToLower(filepath.Ext(path)) == ".png" {
		return MimePNG
	}
	return MimeJPEG
}

func LoadFile(path string) (*Image, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to read image file: %w", err)
	}
	return FromBytes(raw, MimeTypeFor(path))
}

func FromBytes(raw []byte, mimeType string) (*Image, error) {
	if len(raw) == 0 {
		return nil, ErrEmptyImage
	}
	return &Image{
		Data:     base64.StdEncoding.EncodeToString(raw),
		MimeType: normalizeMime(mimeType),
		Size:     len(raw),
	}, nil
}

// FromBase64 accepts plain base64 or a data URL ("data:image/png;base64,...").
// A MIME type carried by the data URL wins over mimeType.
func FromBase64(payload, mimeType string) (*Image, error) {
	payload = strings.TrimSpace(payload)
	if rest, ok := strings.CutPrefix(payload, "data:"); ok {
		meta, data, found := strings.Cut(rest, ",")
		if !found || !strings.HasSuffix(meta, ";base64") {
			return nil, errors.New("invalid data URL: expected base64 payload")
		}
		if m := strings.TrimSuffix(meta, ";base64"); m != "" {
			mimeType = m
		}
		payload = data
	}
	if payload == "" {
		return nil, ErrEmptyImage
	}

	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("invalid base64 image data: %w", err)
	}
	if len(raw) == 0 {
		return nil, ErrEmptyImage
	}
	return &Image{
		Data:     payload,
		MimeType: normalizeMime(mimeType),
		Size:     len(raw),
	}, nil
}

func normalizeMime(mimeType string) string {
	switch strings.ToLower(strings.TrimSpace(mimeType)) {
	case MimePNG:
		return MimePNG
	case "", MimeJPEG, "image/jpg":
		return MimeJPEG
	default:
		return strings.ToLower(strings.TrimSpace(mimeType))
	}
}
