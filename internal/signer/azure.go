package signer

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/sas"

	"direct2url/internal/apperr"
	"direct2url/internal/storage"
)

// azureBlobHost is the public blob endpoint suffix.
const azureBlobHost = "blob.core.windows.net"

type azurePresigner struct {
	account   string
	container string
	cred      *azblob.SharedKeyCredential
	sasToken  string
}

func newAzurePresigner(ctx context.Context, v storage.Variant) (Presigner, error) {
	c, ok := v.(storage.AzureConfig)
	if !ok {
		return nil, fmt.Errorf("expected Azure credentials, got %T", v)
	}

	p := &azurePresigner{account: c.AccountName, container: c.ContainerName}
	switch {
	case strings.TrimSpace(c.AccountKey) != "":
		cred, err := azblob.NewSharedKeyCredential(c.AccountName, c.AccountKey)
		if err != nil {
			return nil, apperr.Wrap(apperr.CodeInvalidCredential, "accountKey is not a valid storage account key", err)
		}
		p.cred = cred
	case strings.TrimSpace(c.SASToken) != "":
		p.sasToken = strings.TrimPrefix(strings.TrimSpace(c.SASToken), "?")
	default:
		return nil, apperr.New(apperr.CodeConfiguration, "either accountKey or sasToken must be provided")
	}
	return p, nil
}

func (p *azurePresigner) blobURL(blob string) string {
	return fmt.Sprintf("https://%s.%s/%s/%s", p.account, azureBlobHost, url.PathEscape(p.container), url.PathEscape(blob))
}

// PresignPut signs a write-only SAS for blob with the shared key, or reuses
// the configured SAS token as is.
func (p *azurePresigner) PresignPut(ctx context.Context, blob, contentType string, w Window) (string, error) {
	if p.cred == nil {
		return p.blobURL(blob) + "?" + p.sasToken, nil
	}

	perms := sas.BlobPermissions{Create: true, Write: true}
	qp, err := sas.BlobSignatureValues{
		Protocol:      sas.ProtocolHTTPS,
		StartTime:     w.Start,
		ExpiryTime:    w.Expiry,
		Permissions:   perms.String(),
		ContainerName: p.container,
		BlobName:      blob,
	}.SignWithSharedKey(p.cred)
	if err != nil {
		return "", err
	}

	return p.blobURL(blob) + "?" + qp.Encode(), nil
}
