package logo

import (
	"context"
	"encoding/base64"
)

// DataURLStore inlines the image as a base64 data URL.
type DataURLStore struct{}

// Put returns "data:<type>;base64,<data>".
func (DataURLStore) Put(_ context.Context, img Image) (string, error) {
	return "data:" + img.ContentType + ";base64," + base64.StdEncoding.EncodeToString(img.Data), nil
}
