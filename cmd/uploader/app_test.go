package main

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"direct2url/internal/signer"
	"direct2url/internal/storage"
	"direct2url/internal/upload"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "providers.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const azureConfig = `
provider: azure
s3:
  bucket: uploads
azure:
  account_name: acct
  container_name: files
  sas_token: "?sv=2022-11-02&sig=abc"
`

func TestCheck(t *testing.T) {
	path := writeConfig(t, azureConfig)

	var out bytes.Buffer
	require.NoError(t, newApp(&out).Run([]string{"uploader", "check", "--config", path}))
	assert.Equal(t, "azure is configured\n", out.String())

	err := newApp(io.Discard).Run([]string{"uploader", "check", "--config", path, "--provider", "s3"})
	require.Error(t, err)
	assert.Equal(t, "missing required s3 configuration: region, accessKeyId, secretAccessKey", err.Error())
}

func TestSign(t *testing.T) {
	path := writeConfig(t, azureConfig)

	var out bytes.Buffer
	require.NoError(t, newApp(&out).Run([]string{"uploader", "sign", "--config", path, "Annual Report.pdf", "application/pdf"}))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "object:  Annual_Report.pdf", lines[0])
	assert.Equal(t, "header:  Content-Type: application/pdf", lines[2])
	assert.Equal(t, "header:  x-ms-blob-type: BlockBlob", lines[3])
	assert.Equal(t, "https://acct.blob.core.windows.net/files/Annual_Report.pdf?sv=2022-11-02&sig=abc", lines[4])

	err := newApp(io.Discard).Run([]string{"uploader", "sign", "--config", path, "only-one-arg"})
	assert.Error(t, err)
}

type redirectPresigner struct{ base string }

func (r redirectPresigner) PresignPut(ctx context.Context, objectName, contentType string, w signer.Window) (string, error) {
	return r.base + objectName, nil
}

func TestRun_ThroughServer(t *testing.T) {
	var mu sync.Mutex
	var got []string
	store := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			if r.URL.Path == "/missing" {
				http.NotFound(w, r)
				return
			}
			w.Header().Set("Content-Type", "text/plain")
			io.WriteString(w, "payload")
		case http.MethodPut:
			body, _ := io.ReadAll(r.Body)
			mu.Lock()
			got = append(got, r.URL.Path+"="+string(body))
			mu.Unlock()
			w.WriteHeader(http.StatusOK)
		}
	}))
	t.Cleanup(store.Close)

	broker := signer.NewBroker().WithFactory(storage.ProviderAzure, func(ctx context.Context, v storage.Variant) (signer.Presigner, error) {
		return redirectPresigner{base: store.URL + "/put/"}, nil
	})
	mux := http.NewServeMux()
	upload.NewHandler(upload.NewService(broker), "test").Register(mux)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	urlFile := filepath.Join(t.TempDir(), "urls.txt")
	require.NoError(t, os.WriteFile(urlFile, []byte(store.URL+"/missing\n"), 0o600))

	var out bytes.Buffer
	err := newApp(&out).Run([]string{
		"uploader", "run",
		"--config", writeConfig(t, azureConfig),
		"--server", server.URL,
		"--file", urlFile,
		store.URL + "/docs/readme.txt",
	})

	require.Error(t, err)
	assert.Equal(t, "1 of 2 uploads failed", err.Error())
	mu.Lock()
	assert.Equal(t, []string{"/put/readme.txt=payload"}, got)
	mu.Unlock()
	assert.Contains(t, out.String(), "1 uploaded, 1 failed, overall 50%")
	assert.Contains(t, out.String(), "failed to fetch: HTTP 404")
}

func TestRun_NoURLs(t *testing.T) {
	err := newApp(io.Discard).Run([]string{"uploader", "run", "--config", writeConfig(t, azureConfig), "not-a-url"})
	assert.Error(t, err)
}
