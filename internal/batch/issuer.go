package batch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"direct2url/internal/apperr"
	"direct2url/internal/response"
	"direct2url/internal/signer"
	"direct2url/internal/storage"
	"direct2url/internal/upload"
)

// Issuer hands out write credentials for one object at a time.
// *signer.Broker signs in process; *Client asks a running server.
type Issuer interface {
	IssueWriteCredential(ctx context.Context, objectName, contentType string, v storage.Variant) (*signer.Credential, error)
}

var (
	_ Issuer = (*signer.Broker)(nil)
	_ Issuer = (*Client)(nil)
)

// Client requests credentials from the signing routes of a server.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

// IssueWriteCredential posts the variant to the route of its provider. Error
// envelopes come back as *apperr.Error with the server's code and message.
func (c *Client) IssueWriteCredential(ctx context.Context, objectName, contentType string, v storage.Variant) (*signer.Credential, error) {
	if v == nil {
		return nil, apperr.Validation("provider configuration is required", nil)
	}
	name, err := signer.ObjectName(objectName)
	if err != nil {
		return nil, err
	}

	cfg, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode provider config: %w", err)
	}
	body, err := json.Marshal(upload.PresignRequest{FileName: objectName, FileType: contentType, Config: cfg})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+upload.PathFor(v.Provider()), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("signing request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeEnvelope(resp)
	}

	var out upload.PresignResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode signing response: %w", err)
	}
	if out.SignedURL == "" {
		return nil, apperr.New(apperr.CodeInternal, "signing response carried no URL")
	}

	return &signer.Credential{
		URL:        out.SignedURL,
		ObjectName: name,
		ExpiresAt:  out.ExpiresAt,
		Headers:    signer.UploadHeaders(v.Provider(), contentType),
	}, nil
}

func decodeEnvelope(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var env response.ErrorEnvelope
	if err := json.Unmarshal(data, &env); err != nil || env.Error.Code == "" {
		return apperr.New(apperr.CodeInternal, fmt.Sprintf("signing request failed: HTTP %d", resp.StatusCode))
	}
	return &apperr.Error{Code: env.Error.Code, Message: env.Error.Message, Details: env.Error.Details}
}
