package logo

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"
)

// ErrTooLarge is returned when an image exceeds the size limit.
var ErrTooLarge = errors.New("logo: image too large")

// ErrUnsupportedType is returned for content that is not an image.
var ErrUnsupportedType = errors.New("logo: unsupported image type")

// ErrNoFile is returned when the upload carries no "file" part.
var ErrNoFile = errors.New("logo: no file provided")

// Store persists a logo image and returns the reference to put in the
// configuration.
type Store interface {
	Put(ctx context.Context, img Image) (ref string, err error)
}

// Image is a validated logo upload.
type Image struct {
	// Filename is the original filename from the client.
	Filename string

	// ContentType is the detected MIME type.
	ContentType string

	// Data holds the image bytes.
	Data []byte
}

// Ext returns the file extension for the image type.
func (img Image) Ext() string {
	switch img.ContentType {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	case "image/svg+xml":
		return ".svg"
	}
	return ".bin"
}

var allowedTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/gif":  true,
	"image/webp": true,
}

// Read consumes r up to maxBytes and validates that it is an image.
// maxBytes <= 0 disables the limit.
func Read(filename string, r io.Reader, maxBytes int64) (Image, error) {
	var buf bytes.Buffer
	src := r
	if maxBytes > 0 {
		src = io.LimitReader(r, maxBytes+1)
	}
	n, err := io.Copy(&buf, src)
	if err != nil {
		return Image{}, err
	}
	if maxBytes > 0 && n > maxBytes {
		return Image{}, ErrTooLarge
	}

	data := buf.Bytes()
	ct := detectType(filename, data)
	if ct == "" {
		return Image{}, ErrUnsupportedType
	}
	return Image{Filename: filepath.Base(filename), ContentType: ct, Data: data}, nil
}

func detectType(filename string, data []byte) string {
	if len(data) == 0 {
		return ""
	}
	detected := http.DetectContentType(data)
	if allowedTypes[detected] {
		return detected
	}
	// DetectContentType reports SVG as XML or plain text.
	if strings.EqualFold(filepath.Ext(filename), ".svg") &&
		(strings.HasPrefix(detected, "text/xml") || strings.HasPrefix(detected, "text/plain")) &&
		bytes.Contains(data, []byte("<svg")) {
		return "image/svg+xml"
	}
	return ""
}

// Receive parses a multipart request with a "file" part, validates the
// image and hands it to store. The request body is capped at maxBytes plus
// room for the multipart framing.
func Receive(w http.ResponseWriter, r *http.Request, store Store, maxBytes int64) (string, error) {
	memory := int64(32 << 20)
	if maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes+64<<10)
		memory = maxBytes
	}
	if err := r.ParseMultipartForm(memory); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return "", ErrTooLarge
		}
		return "", ErrNoFile
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return "", ErrNoFile
	}
	defer file.Close()

	img, err := Read(header.Filename, file, maxBytes)
	if err != nil {
		return "", err
	}
	return store.Put(r.Context(), img)
}

// newName returns a random object name with the image's extension.
func newName(img Image) string {
	b := make([]byte, 16)
	rand.Read(b)
	return hex.EncodeToString(b) + img.Ext()
}
