package analyzer

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// MaxImageSize bounds decoded uploads.
const MaxImageSize = 10 * 1024 * 1024

var (
	ErrEmptyImage       = errors.New("image is empty")
	ErrImageTooLarge    = errors.New("image exceeds maximum size")
	ErrUnsupportedImage = errors.New("unsupported image type")
)

// Image is a captured product photo.
type Image struct {
	Data     []byte
	MIMEType string
}

// ImageFromBytes validates raw upload bytes. The MIME type is derived from the file
// signature when mimeType is empty.
func ImageFromBytes(data []byte, mimeType string) (*Image, error) {
	if len(data) == 0 {
		return nil, ErrEmptyImage
	}
	if len(data) > MaxImageSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrImageTooLarge, len(data))
	}

	detected := sniffImageType(data)
	if detected == "" {
		return nil, ErrUnsupportedImage
	}
	if mimeType == "" || !strings.HasPrefix(mimeType, "image/") {
		mimeType = detected
	}

	return &Image{Data: data, MIMEType: mimeType}, nil
}

// ImageFromDataURI accepts "data:image/png;base64,..." or bare base64.
func ImageFromDataURI(uri string) (*Image, error) {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return nil, ErrEmptyImage
	}

	mimeType := ""
	payload := uri
	if strings.HasPrefix(uri, "data:") {
		comma := strings.IndexByte(uri, ',')
		if comma < 0 {
			return nil, fmt.Errorf("malformed data URI")
		}
		header := uri[len("data:"):comma]
		if !strings.HasSuffix(header, ";base64") {
			return nil, fmt.Errorf("data URI is not base64 encoded")
		}
		mimeType = strings.TrimSuffix(header, ";base64")
		payload = uri[comma+1:]
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	return ImageFromBytes(data, mimeType)
}

// Base64 returns the raw standard base64 encoding without a data URI prefix.
func (i *Image) Base64() string {
	return base64.StdEncoding.EncodeToString(i.Data)
}

// DataURI returns the preview encoding of the image.
func (i *Image) DataURI() string {
	return "data:" + i.MIMEType + ";base64," + i.Base64()
}

// Extension returns the file extension matching the image type.
func (i *Image) Extension() string {
	switch i.MIMEType {
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	default:
		return ".jpg"
	}
}

func sniffImageType(buffer []byte) string {
	// JPEG
	if len(buffer) >= 3 && buffer[0] == 0xFF && buffer[1] == 0xD8 && buffer[2] == 0xFF {
		return "image/jpeg"
	}

	// PNG
	if len(buffer) >= 8 && buffer[0] == 0x89 && buffer[1] == 0x50 && buffer[2] == 0x4E && buffer[3] == 0x47 {
		return "image/png"
	}

	// GIF
	if len(buffer) >= 6 && (string(buffer[0:6]) == "GIF87a" || string(buffer[0:6]) == "GIF89a") {
		return "image/gif"
	}

	return ""
}
