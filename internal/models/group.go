package models

// Group holds the shared group chat metadata. There is exactly one group;
// every field is last-write-wins and broadcast to all sessions on change.
type Group struct {
	Name            string `json:"name"`
	IconURL         string `json:"icon_url,omitempty"`
	BackgroundTheme string `json:"background_theme,omitempty"`
}
