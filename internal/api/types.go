package api

// AddonVersion is reported by the manifest and the health endpoint.
const AddonVersion = "2.0.0"

// Manifest describes the addon to clients.
type Manifest struct {
	ID            string            `json:"id"`
	Version       string            `json:"version"`
	Name          string            `json:"name"`
	Description   string            `json:"description"`
	Resources     []string          `json:"resources"`
	Types         []string          `json:"types"`
	Catalogs      []any             `json:"catalogs"`
	IDPrefixes    []string          `json:"idPrefixes"`
	BehaviorHints ManifestBehaviors `json:"behaviorHints"`
}

// ManifestBehaviors advertises addon configuration support.
type ManifestBehaviors struct {
	Configurable          bool `json:"configurable"`
	ConfigurationRequired bool `json:"configurationRequired"`
}

// Stream is one entry in a stream response. Rating streams are never
// playable; they exist to show the description.
type Stream struct {
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	ExternalURL   string          `json:"externalUrl,omitempty"`
	BehaviorHints StreamBehaviors `json:"behaviorHints"`
	Type          string          `json:"type"`
}

// StreamBehaviors groups rating streams per content id.
type StreamBehaviors struct {
	NotWebReady bool   `json:"notWebReady"`
	BingeGroup  string `json:"bingeGroup"`
}

// StreamResponse is the body of the stream endpoint.
type StreamResponse struct {
	Streams []Stream `json:"streams"`
}

// HealthResponse is the body of the health endpoint.
type HealthResponse struct {
	Status  string `json:"status"`
	Time    string `json:"time"`
	Version string `json:"version"`
	Store   string `json:"store"`
}

// NotFoundResponse is returned for unknown paths.
type NotFoundResponse struct {
	Error              string   `json:"error"`
	Path               string   `json:"path"`
	AvailableEndpoints []string `json:"availableEndpoints"`
}

// CleanupResponse reports removed cache entries.
type CleanupResponse struct {
	Deleted int64 `json:"deleted"`
}
