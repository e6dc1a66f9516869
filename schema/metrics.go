package schema

// Metrics are the layout measurements reported to the peer. All values are
// logical pixels; the margins include both sides.
type Metrics struct {
	Width            float64 `json:"width"`
	Height           float64 `json:"height"`
	GridCharWidth    float64 `json:"gridcharwidth"`
	GridCharHeight   float64 `json:"gridcharheight"`
	GridMarginX      float64 `json:"gridmarginx"`
	GridMarginY      float64 `json:"gridmarginy"`
	BufferCharWidth  float64 `json:"buffercharwidth"`
	BufferCharHeight float64 `json:"buffercharheight"`
	BufferMarginX    float64 `json:"buffermarginx"`
	BufferMarginY    float64 `json:"buffermarginy"`
	GraphicsMarginX  float64 `json:"graphicsmarginx"`
	GraphicsMarginY  float64 `json:"graphicsmarginy"`
	OutSpacingX      float64 `json:"outspacingx"`
	OutSpacingY      float64 `json:"outspacingy"`
	InSpacingX       float64 `json:"inspacingx"`
	InSpacingY       float64 `json:"inspacingy"`
}

// Match reports whether two measurements agree on the fields that change out
// from under the client: surface size and the grid and buffer cell sizes.
func (m Metrics) Match(other Metrics) bool {
	return m.Width == other.Width &&
		m.Height == other.Height &&
		m.GridCharWidth == other.GridCharWidth &&
		m.GridCharHeight == other.GridCharHeight &&
		m.BufferCharWidth == other.BufferCharWidth &&
		m.BufferCharHeight == other.BufferCharHeight
}

// Normalize clamps the character cell sizes to at least one pixel.
func (m Metrics) Normalize() Metrics {
	if m.GridCharWidth < 1 {
		m.GridCharWidth = 1
	}
	if m.GridCharHeight < 1 {
		m.GridCharHeight = 1
	}
	if m.BufferCharWidth < 1 {
		m.BufferCharWidth = 1
	}
	if m.BufferCharHeight < 1 {
		m.BufferCharHeight = 1
	}
	return m
}

// ApplySpacing fills the spacing fields from a general spacing value and the
// more specific overrides. Nil overrides keep the general value.
func (m Metrics) ApplySpacing(spacing, outSpacing, inSpacing *float64) Metrics {
	if spacing != nil {
		m.OutSpacingX, m.OutSpacingY = *spacing, *spacing
		m.InSpacingX, m.InSpacingY = *spacing, *spacing
	}
	if outSpacing != nil {
		m.OutSpacingX, m.OutSpacingY = *outSpacing, *outSpacing
	}
	if inSpacing != nil {
		m.InSpacingX, m.InSpacingY = *inSpacing, *inSpacing
	}
	return m
}
