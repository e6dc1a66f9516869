package schema

// AllState is the extra display state kept with an autosave so a restored
// session can look like the one that was saved.
type AllState struct {
	Metrics  *StateMetrics         `json:"metrics,omitempty"`
	History  map[WindowID][]string `json:"history,omitempty"`
	DefColor map[WindowID]string   `json:"defcolor,omitempty"`
}

// StateMetrics is the surface size at save time.
type StateMetrics struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// MatchesSize reports whether the saved surface size equals the given metrics.
func (s AllState) MatchesSize(m Metrics) bool {
	return s.Metrics != nil && s.Metrics.Width == m.Width && s.Metrics.Height == m.Height
}
