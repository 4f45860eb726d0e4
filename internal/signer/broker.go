package signer

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"direct2url/internal/apperr"
	"direct2url/internal/storage"
)

const (
	// ExpiryWindow bounds the lifetime of every issued write credential.
	ExpiryWindow = 3600 * time.Second
	// MaxObjectNameLength is the longest accepted object name, in characters.
	MaxObjectNameLength = 255
	// DefaultFileName is used when neither the response nor the URL yield a name.
	DefaultFileName = "download"
)

// Credential is a time-limited URL allowing a single PUT of one object.
type Credential struct {
	URL        string
	ObjectName string
	ExpiresAt  time.Time
	// Headers must accompany the PUT for the signature to match.
	Headers map[string]string
}

// Window is the validity period of one credential.
type Window struct {
	Start  time.Time
	Expiry time.Time
}

func (w Window) Duration() time.Duration { return w.Expiry.Sub(w.Start) }

// Presigner issues a write URL for one object on an already configured
// backend. The URL must not outlive w.Expiry.
type Presigner interface {
	PresignPut(ctx context.Context, objectName, contentType string, w Window) (string, error)
}

// Factory builds a Presigner from one provider's credentials. The variant has
// already passed storage.Validate.
type Factory func(ctx context.Context, v storage.Variant) (Presigner, error)

// Broker validates requests and dispatches them to the presigner of the
// variant's provider. It keeps no state between calls.
type Broker struct {
	factories map[storage.Provider]Factory
	expiry    time.Duration
	now       func() time.Time
}

func NewBroker() *Broker {
	return &Broker{
		factories: map[storage.Provider]Factory{
			storage.ProviderS3:    newS3Presigner,
			storage.ProviderGCP:   newGCSPresigner,
			storage.ProviderAzure: newAzurePresigner,
		},
		expiry: ExpiryWindow,
		now:    time.Now,
	}
}

// WithFactory replaces the presigner factory for p.
func (b *Broker) WithFactory(p storage.Provider, f Factory) *Broker {
	b.factories[p] = f
	return b
}

// IssueWriteCredential returns a URL authorized to write exactly objectName
// (after sanitization) with the given content type.
func (b *Broker) IssueWriteCredential(ctx context.Context, objectName, contentType string, v storage.Variant) (*Credential, error) {
	name, err := ObjectName(objectName)
	if err != nil {
		return nil, err
	}
	contentType = strings.TrimSpace(contentType)
	if contentType == "" {
		return nil, apperr.Validation("fileType is required", nil)
	}
	if err := storage.Validate(v); err != nil {
		return nil, err
	}

	provider := v.Provider()
	factory, ok := b.factories[provider]
	if !ok {
		return nil, apperr.New(apperr.CodeConfiguration, fmt.Sprintf("no signer registered for provider %s", provider))
	}

	presigner, err := factory(ctx, v)
	if err != nil {
		return nil, coded(provider, "failed to initialize storage client", err)
	}
	if c, ok := presigner.(io.Closer); ok {
		defer c.Close()
	}

	// whole seconds, the resolution every provider signs with
	start := b.now().UTC().Truncate(time.Second)
	window := Window{Start: start, Expiry: start.Add(b.expiry)}
	signedURL, err := presigner.PresignPut(ctx, name, contentType, window)
	if err != nil {
		return nil, coded(provider, "failed to generate signed URL", err)
	}

	return &Credential{
		URL:        signedURL,
		ObjectName: name,
		ExpiresAt:  window.Expiry,
		Headers:    UploadHeaders(provider, contentType),
	}, nil
}

// UploadHeaders returns the headers a PUT to a signed URL of provider p needs.
func UploadHeaders(p storage.Provider, contentType string) map[string]string {
	headers := map[string]string{
		"Content-Type": contentType,
	}
	if p == storage.ProviderAzure {
		headers["x-ms-blob-type"] = "BlockBlob"
	}
	return headers
}

// ObjectName validates a raw file name and returns its sanitized form.
func ObjectName(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", apperr.Validation("fileName is required", nil)
	}
	if utf8.RuneCountInString(raw) > MaxObjectNameLength {
		return "", apperr.Validation(
			fmt.Sprintf("fileName must be at most %d characters", MaxObjectNameLength),
			map[string]any{"length": utf8.RuneCountInString(raw)},
		)
	}
	return SanitizeFileName(raw), nil
}

// SanitizeFileName maps every character outside [A-Za-z0-9._-] to '_',
// collapses runs of '_' and truncates to MaxObjectNameLength.
func SanitizeFileName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	underscore := false
	for _, r := range name {
		if r != '_' && isSafe(r) {
			b.WriteRune(r)
			underscore = false
			continue
		}
		if !underscore {
			b.WriteByte('_')
			underscore = true
		}
	}
	out := b.String()
	if len(out) > MaxObjectNameLength {
		out = out[:MaxObjectNameLength]
	}
	return out
}

func isSafe(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '.', r == '_', r == '-':
		return true
	}
	return false
}

// coded keeps an already coded error and tags anything else with the
// provider's error code.
func coded(p storage.Provider, message string, err error) error {
	if apperr.CodeOf(err) != apperr.CodeInternal {
		return err
	}
	return apperr.Wrap(providerCode(p), message, err)
}

func providerCode(p storage.Provider) apperr.Code {
	switch p {
	case storage.ProviderGCP:
		return apperr.CodeGCP
	case storage.ProviderAzure:
		return apperr.CodeAzure
	default:
		return apperr.CodeS3
	}
}
