package publisher

// Edit is the server-assigned handle for an open, uncommitted release
// transaction. Every call after creation references its ID; commit finalizes
// and destroys it.
type Edit struct {
	ID                string `json:"id"`
	ExpiryTimeSeconds string `json:"expiryTimeSeconds"`
}

// Track assigns releases to a named distribution ring.
type Track struct {
	Track    string    `json:"track,omitempty"`
	Releases []Release `json:"releases,omitempty"`
}

// Release binds version codes to a rollout status.
type Release struct {
	Name         string   `json:"name,omitempty"`
	VersionCodes []string `json:"versionCodes,omitempty"`
	Status       string   `json:"status,omitempty"`
}
