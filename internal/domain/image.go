package domain

// SelectedImage is the file the user picked. Content is never validated as an
// image; MIMEType, Width and Height are best-effort metadata.
type SelectedImage struct {
	Name     string
	MIMEType string
	Data     []byte
	Size     int64
	Width    int
	Height   int
}

// Info strips the content, leaving what the presentation layer needs.
func (i SelectedImage) Info() ImageInfo {
	return ImageInfo{
		Name:     i.Name,
		MIMEType: i.MIMEType,
		Size:     i.Size,
		Width:    i.Width,
		Height:   i.Height,
	}
}

// ImageInfo describes a SelectedImage without its bytes.
type ImageInfo struct {
	Name     string `json:"name"`
	MIMEType string `json:"mime_type"`
	Size     int64  `json:"size"`
	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`
}

// PreviewReference is a display handle for the selected image.
type PreviewReference struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}
