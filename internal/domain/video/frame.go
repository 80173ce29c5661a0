package video

import (
	"encoding/base64"
	"errors"
	"strings"
)

var (
	ErrDeviceIDRequired = errors.New("device id is required")
	ErrEmptyImage       = errors.New("image payload is empty")
	ErrNotBase64        = errors.New("image must be base64-encoded")
	ErrFrameTooLarge    = errors.New("image exceeds the maximum frame size")
	ErrNoFrame          = errors.New("no recent frame for device")
)

// ValidateImage checks a base64 JPEG payload and returns its decoded size.
// Data URI prefixes ("data:image/jpeg;base64,...") are tolerated.
func ValidateImage(image string, maxBytes int) (int, error) {
	image = strings.TrimSpace(image)
	if image == "" {
		return 0, ErrEmptyImage
	}
	if idx := strings.Index(image, ","); idx != -1 && strings.HasPrefix(image, "data:") {
		image = image[idx+1:]
	}

	decoded, err := base64.StdEncoding.DecodeString(image)
	if err != nil {
		return 0, ErrNotBase64
	}
	if maxBytes > 0 && len(decoded) > maxBytes {
		return 0, ErrFrameTooLarge
	}
	return len(decoded), nil
}
