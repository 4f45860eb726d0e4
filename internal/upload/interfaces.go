package upload

import (
	"context"

	"direct2url/internal/signer"
	"direct2url/internal/storage"
)

// CredentialIssuer interface for dependency injection and testing
type CredentialIssuer interface {
	IssueWriteCredential(ctx context.Context, objectName, contentType string, v storage.Variant) (*signer.Credential, error)
}
