package service

import (
	"bytes"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/timmy/lookaloud/internal/domain"
)

// InspectImage builds a SelectedImage from raw file content. Detection is
// best effort: any content is accepted, and unknown formats keep the declared
// MIME type with zero dimensions.
func InspectImage(name, declaredMIME string, data []byte) domain.SelectedImage {
	img := domain.SelectedImage{
		Name:     name,
		MIMEType: strings.TrimSpace(declaredMIME),
		Data:     data,
		Size:     int64(len(data)),
	}

	if len(data) > 0 {
		detected := mimetype.Detect(data)
		if strings.HasPrefix(detected.String(), "image/") || img.MIMEType == "" {
			img.MIMEType = detected.String()
		}
	}
	if idx := strings.Index(img.MIMEType, ";"); idx >= 0 {
		img.MIMEType = strings.TrimSpace(img.MIMEType[:idx])
	}
	if img.MIMEType == "" {
		img.MIMEType = "application/octet-stream"
	}

	if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		img.Width = cfg.Width
		img.Height = cfg.Height
	}

	return img
}
