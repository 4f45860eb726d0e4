package upload

import (
	"context"
	"strings"

	"direct2url/internal/apperr"
	"direct2url/internal/storage"
)

type Service struct {
	issuer CredentialIssuer
}

func NewService(issuer CredentialIssuer) *Service {
	return &Service{issuer: issuer}
}

// Presign validates req for provider p and issues a write credential.
func (s *Service) Presign(ctx context.Context, p storage.Provider, req *PresignRequest) (*PresignResponse, error) {
	if strings.TrimSpace(req.FileName) == "" {
		return nil, apperr.Validation("fileName is required", map[string]string{"field": "fileName"})
	}
	if strings.TrimSpace(req.FileType) == "" {
		return nil, apperr.Validation("fileType is required", map[string]string{"field": "fileType"})
	}

	variant, err := storage.DecodeVariant(p, req.Config)
	if err != nil {
		return nil, err
	}

	cred, err := s.issuer.IssueWriteCredential(ctx, req.FileName, req.FileType, variant)
	if err != nil {
		return nil, err
	}

	return &PresignResponse{
		SignedURL: cred.URL,
		ExpiresAt: cred.ExpiresAt.UTC(),
	}, nil
}
