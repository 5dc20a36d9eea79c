package workflow

import (
	"sync"

	"github.com/google/uuid"

	"github.com/timmy/lookaloud/internal/domain"
)

// DefaultPreviewPrefix is the URL path previews are served under.
const DefaultPreviewPrefix = "/preview/"

// PreviewRegistry keeps the bytes behind preview references until they are
// released.
type PreviewRegistry struct {
	mu      sync.RWMutex
	prefix  string
	entries map[string]previewEntry
}

type previewEntry struct {
	name     string
	mimeType string
	data     []byte
}

// NewPreviewRegistry creates a registry whose URLs start with prefix.
func NewPreviewRegistry(prefix string) *PreviewRegistry {
	if prefix == "" {
		prefix = DefaultPreviewPrefix
	}
	return &PreviewRegistry{
		prefix:  prefix,
		entries: make(map[string]previewEntry),
	}
}

// Register stores the image and returns a fresh reference to it.
func (r *PreviewRegistry) Register(img domain.SelectedImage) domain.PreviewReference {
	id := uuid.NewString()

	r.mu.Lock()
	r.entries[id] = previewEntry{name: img.Name, mimeType: img.MIMEType, data: img.Data}
	r.mu.Unlock()

	return domain.PreviewReference{ID: id, URL: r.prefix + id}
}

// Open returns the content of a live preview.
func (r *PreviewRegistry) Open(id string) (data []byte, mimeType string, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[id]
	if !ok {
		return nil, "", false
	}
	return e.data, e.mimeType, true
}

// Release drops a preview. Releasing an unknown ID is a no-op.
func (r *PreviewRegistry) Release(id string) {
	r.mu.Lock()
	delete(r.entries, id)
	r.mu.Unlock()
}
