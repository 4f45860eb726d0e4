package signer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"direct2url/internal/apperr"
	"direct2url/internal/storage"
)

// serviceAccountKey is the subset of a service-account JSON key used for signing.
type serviceAccountKey struct {
	Type        string `json:"type"`
	ProjectID   string `json:"project_id"`
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
}

// newGCSClient is swapped in tests.
var newGCSClient = func(ctx context.Context, keyJSON []byte) (*gcs.Client, error) {
	return gcs.NewClient(ctx, option.WithCredentialsJSON(keyJSON))
}

type gcsPresigner struct {
	client *gcs.Client
	bucket string
	key    serviceAccountKey
}

func newGCSPresigner(ctx context.Context, v storage.Variant) (Presigner, error) {
	c, ok := v.(storage.GCPConfig)
	if !ok {
		return nil, fmt.Errorf("expected GCP credentials, got %T", v)
	}

	key, err := parseServiceAccountKey(c.KeyFile)
	if err != nil {
		return nil, err
	}

	client, err := newGCSClient(ctx, []byte(c.KeyFile))
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInvalidCredential, "could not build a storage client from keyFile", err)
	}

	return &gcsPresigner{client: client, bucket: c.Bucket, key: key}, nil
}

func parseServiceAccountKey(keyFile string) (serviceAccountKey, error) {
	var key serviceAccountKey
	if err := json.Unmarshal([]byte(keyFile), &key); err != nil {
		return key, apperr.Wrap(apperr.CodeInvalidCredential, "keyFile is not valid JSON", err)
	}
	if strings.TrimSpace(key.ClientEmail) == "" || strings.TrimSpace(key.PrivateKey) == "" {
		return key, apperr.New(apperr.CodeInvalidCredential, "keyFile must contain client_email and private_key")
	}
	return key, nil
}

// PresignPut returns a V4 signed URL scoped to a PUT with contentType
func (p *gcsPresigner) PresignPut(ctx context.Context, object, contentType string, w Window) (string, error) {
	return p.client.Bucket(p.bucket).SignedURL(object, &gcs.SignedURLOptions{
		GoogleAccessID: p.key.ClientEmail,
		PrivateKey:     []byte(p.key.PrivateKey),
		Method:         http.MethodPut,
		ContentType:    contentType,
		Expires:        w.Expiry,
		Scheme:         gcs.SigningSchemeV4,
	})
}

func (p *gcsPresigner) Close() error {
	return p.client.Close()
}
