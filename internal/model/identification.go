package model

import "strings"

// Identification is the free-text wine identity handed to the engine by the
// upstream identification subsystem. Producer and WineName are raw user or
// label text; Vintage is a 4-digit year string or empty for non-vintage.
type Identification struct {
	Producer string `json:"producer,omitempty"`
	WineName string `json:"wine_name,omitempty"`
	Vintage  string `json:"vintage,omitempty"`
	WineType string `json:"wine_type,omitempty"`
	Region   string `json:"region,omitempty"`
}

// Empty reports whether the identification carries neither a producer nor
// a wine name. Such a request cannot be resolved or searched.
func (id Identification) Empty() bool {
	return strings.TrimSpace(id.Producer) == "" && strings.TrimSpace(id.WineName) == ""
}

// Label returns a human-readable form for logging.
func (id Identification) Label() string {
	parts := make([]string, 0, 3)
	if id.Producer != "" {
		parts = append(parts, id.Producer)
	}
	if id.WineName != "" {
		parts = append(parts, id.WineName)
	}
	if id.Vintage != "" {
		parts = append(parts, id.Vintage)
	}
	return strings.Join(parts, " ")
}
