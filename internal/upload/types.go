package upload

import (
	"encoding/json"
	"time"

	"direct2url/internal/storage"
)

// Route paths served by Handler.
const (
	PathS3     = "/s3-presigned-url"
	PathGCP    = "/gcp-signed-url"
	PathAzure  = "/azure-sas-url"
	PathHealth = "/health"
)

// PathFor returns the signing route of provider p.
func PathFor(p storage.Provider) string {
	switch p {
	case storage.ProviderGCP:
		return PathGCP
	case storage.ProviderAzure:
		return PathAzure
	default:
		return PathS3
	}
}

// PresignRequest is the body of every signing route. Config is decoded
// against the route's provider.
type PresignRequest struct {
	FileName string          `json:"fileName"`
	FileType string          `json:"fileType"`
	Config   json.RawMessage `json:"config"`
}

// PresignResponse is returned on success
type PresignResponse struct {
	SignedURL string    `json:"signedUrl"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type HealthResponse struct {
	Status      string  `json:"status"`
	Timestamp   string  `json:"timestamp"`
	Uptime      float64 `json:"uptime"`
	Environment string  `json:"environment"`
}
