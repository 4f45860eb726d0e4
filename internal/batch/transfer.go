package batch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"

	"direct2url/internal/signer"
	"direct2url/internal/storage"
)

// transfer fetches src, obtains a credential for it and PUTs the bytes.
func (o *Orchestrator) transfer(ctx context.Context, id, src string, v storage.Variant) error {
	data, name, contentType, err := o.fetch(ctx, src)
	if err != nil {
		return err
	}
	o.update(id, func(it *Item) { it.FileName = name })

	cred, err := o.issuer.IssueWriteCredential(ctx, name, contentType, v)
	if err != nil {
		return err
	}

	return o.put(ctx, id, cred, data)
}

func (o *Orchestrator) fetch(ctx context.Context, src string) (data []byte, name, contentType string, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, "", "", fmt.Errorf("failed to fetch: %w", err)
	}
	resp, err := o.client.Do(req)
	if err != nil {
		return nil, "", "", fmt.Errorf("failed to fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", "", fmt.Errorf("failed to fetch: HTTP %d", resp.StatusCode)
	}

	data, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", "", fmt.Errorf("failed to read source: %w", err)
	}

	contentType = strings.TrimSpace(resp.Header.Get("Content-Type"))
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return data, FileName(resp.Header.Get("Content-Disposition"), resp.Request.URL), contentType, nil
}

func (o *Orchestrator) put(ctx context.Context, id string, cred *signer.Credential, data []byte) error {
	body := &progressReader{
		r:     bytes.NewReader(data),
		total: int64(len(data)),
		report: func(pct int) {
			o.update(id, func(it *Item) {
				if pct > it.Progress {
					it.Progress = pct
				}
			})
		},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, cred.URL, body)
	if err != nil {
		return fmt.Errorf("failed to upload: %w", err)
	}
	req.ContentLength = int64(len(data))
	if len(data) == 0 {
		req.Body = http.NoBody
	}
	for k, val := range cred.Headers {
		req.Header.Set(k, val)
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to upload: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("upload failed: HTTP %d", resp.StatusCode)
	}
	return nil
}

// FileName picks the object name for a fetched source: the
// Content-Disposition filename, else the last path segment of u, else
// signer.DefaultFileName. The result is sanitized.
func FileName(contentDisposition string, u *url.URL) string {
	if contentDisposition != "" {
		if _, params, err := mime.ParseMediaType(contentDisposition); err == nil {
			if name := sanitized(params["filename"]); name != "" {
				return name
			}
		}
	}
	if u != nil {
		if name := sanitized(path.Base(u.Path)); name != "" {
			return name
		}
	}
	return signer.DefaultFileName
}

func sanitized(name string) string {
	name = path.Base(strings.ReplaceAll(strings.TrimSpace(name), `\`, "/"))
	if name == "." || name == "/" || name == "" {
		return ""
	}
	name = signer.SanitizeFileName(name)
	if strings.Trim(name, "_") == "" {
		return ""
	}
	return name
}

// progressReader reports whole percentages below 100 as bytes are read.
// Completion is reported by the caller once the store accepts the object.
type progressReader struct {
	r      io.Reader
	total  int64
	read   int64
	last   int
	report func(int)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 && p.total > 0 {
		p.read += int64(n)
		pct := int(p.read * 100 / p.total)
		if pct > 99 {
			pct = 99
		}
		if pct > p.last {
			p.last = pct
			p.report(pct)
		}
	}
	return n, err
}
