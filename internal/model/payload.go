package model

import (
	"encoding/json"
	"hash/fnv"
)

// Bitmap is a decoded raster handed to the sink. The pipeline treats pixel
// data as opaque bytes; composition happens in the host or the sink.
type Bitmap struct {
	Width  int
	Height int
	Data   []byte
}

// ViewRef is an opaque handle to a live widget view owned by the widget
// subsystem. The sink dereferences it; the pipeline never does.
type ViewRef struct {
	WidgetID int
	Token    string
}

// Picture binds a resource key (referenced from the param block) to either
// raster data or a built-in resource name.
type Picture struct {
	Key         string
	Bitmap      *Bitmap
	ResourceRef string
	// TintARGB re-colors the picture ("#FFFFFF" for contrast on accented
	// action slots). Empty means no tint.
	TintARGB string
}

// ActionDescriptor is a rendered action slot. At most a small fixed number
// survive translation.
type ActionDescriptor struct {
	Key       string `json:"key"`
	Title     string `json:"title,omitempty"`
	IconKey   string `json:"icon_key,omitempty"`
	InvokeRef string `json:"-"`
	// AccentARGB is the slot background ("#FF3B30" hang-up, "#34C759"
	// answer). Empty renders the neutral slot.
	AccentARGB string `json:"accent,omitempty"`
	TitleARGB  string `json:"title_color,omitempty"`
}

// DisplayPayload is the vendor-neutral unit handed to the rendering sink:
// renderable resources plus an opaque structured parameter block.
type DisplayPayload struct {
	Pictures []Picture
	Actions  []ActionDescriptor

	// View carries a live widget view for interactive widget islands.
	View *ViewRef

	// Param is interpreted only by the sink. It is the deduplication unit:
	// two payloads with equal Param render identically.
	Param json.RawMessage
}

// ContentHash is a stable hash of the rendered content, used for
// deduplication. Empty param hashes to 0.
func (p DisplayPayload) ContentHash() uint64 {
	if len(p.Param) == 0 {
		return 0
	}
	h := fnv.New64a()
	_, _ = h.Write(p.Param)
	return h.Sum64()
}
