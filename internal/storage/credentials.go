package storage

import (
	"encoding/json"
	"fmt"
	"strings"

	"direct2url/internal/apperr"
)

// Provider names an object store variant.
type Provider string

const (
	ProviderS3    Provider = "s3"
	ProviderGCP   Provider = "gcp"
	ProviderAzure Provider = "azure"
)

// Providers lists every supported variant in display order.
var Providers = []Provider{ProviderS3, ProviderGCP, ProviderAzure}

func (p Provider) String() string { return string(p) }

func (p Provider) IsValid() bool {
	switch p {
	case ProviderS3, ProviderGCP, ProviderAzure:
		return true
	}
	return false
}

// ParseProvider accepts the wire names plus the common "gcs" alias.
func ParseProvider(name string) (Provider, error) {
	switch p := Provider(strings.ToLower(strings.TrimSpace(name))); p {
	case ProviderS3, ProviderGCP, ProviderAzure:
		return p, nil
	case "gcs":
		return ProviderGCP, nil
	}
	return "", fmt.Errorf("unknown provider: %q", name)
}

// Variant is one provider's credential set.
type Variant interface {
	Provider() Provider
	// Missing lists the required fields that are empty.
	Missing() []string
}

// IsConfigured reports whether every required field of v is set.
func IsConfigured(v Variant) bool {
	return v != nil && len(v.Missing()) == 0
}

// Validate returns a VALIDATION_ERROR naming the missing fields, or nil.
func Validate(v Variant) error {
	if v == nil {
		return apperr.Validation("provider configuration is required", nil)
	}
	if missing := v.Missing(); len(missing) > 0 {
		return apperr.Validation(
			fmt.Sprintf("missing required %s configuration: %s", v.Provider(), strings.Join(missing, ", ")),
			map[string]any{"provider": v.Provider(), "missing": missing},
		)
	}
	return nil
}

// S3Config holds AWS S3 (or S3-compatible) credentials.
type S3Config struct {
	Bucket          string `json:"bucket" yaml:"bucket"`
	Region          string `json:"region" yaml:"region"`
	AccessKeyID     string `json:"accessKeyId" yaml:"access_key_id"`
	SecretAccessKey string `json:"secretAccessKey" yaml:"secret_access_key"`
	SessionToken    string `json:"sessionToken,omitempty" yaml:"session_token"`
	Endpoint        string `json:"endpoint,omitempty" yaml:"endpoint"`
}

func (c S3Config) Provider() Provider { return ProviderS3 }

func (c S3Config) Missing() []string {
	return missing(
		field{"bucket", c.Bucket},
		field{"region", c.Region},
		field{"accessKeyId", c.AccessKeyID},
		field{"secretAccessKey", c.SecretAccessKey},
	)
}

func (c S3Config) MarshalJSON() ([]byte, error) {
	type plain S3Config
	return json.Marshal(struct {
		Provider Provider `json:"provider"`
		plain
	}{ProviderS3, plain(c)})
}

// GCPConfig holds a Google Cloud Storage bucket and service-account key.
type GCPConfig struct {
	Bucket    string `json:"bucket" yaml:"bucket"`
	ProjectID string `json:"projectId" yaml:"project_id"`
	// KeyFile is the service-account JSON document itself, not a path.
	KeyFile string `json:"keyFile" yaml:"key_file"`
}

func (c GCPConfig) Provider() Provider { return ProviderGCP }

func (c GCPConfig) Missing() []string {
	return missing(
		field{"bucket", c.Bucket},
		field{"projectId", c.ProjectID},
		field{"keyFile", c.KeyFile},
	)
}

func (c GCPConfig) MarshalJSON() ([]byte, error) {
	type plain GCPConfig
	return json.Marshal(struct {
		Provider Provider `json:"provider"`
		plain
	}{ProviderGCP, plain(c)})
}

// AzureConfig holds an Azure Blob container and either an account key or a
// pre-issued SAS token. When both are set the account key wins.
type AzureConfig struct {
	AccountName   string `json:"accountName" yaml:"account_name"`
	ContainerName string `json:"containerName" yaml:"container_name"`
	AccountKey    string `json:"accountKey,omitempty" yaml:"account_key"`
	SASToken      string `json:"sasToken,omitempty" yaml:"sas_token"`
}

func (c AzureConfig) Provider() Provider { return ProviderAzure }

func (c AzureConfig) Missing() []string {
	m := missing(
		field{"accountName", c.AccountName},
		field{"containerName", c.ContainerName},
	)
	if blank(c.AccountKey) && blank(c.SASToken) {
		m = append(m, "accountKey or sasToken")
	}
	return m
}

func (c AzureConfig) MarshalJSON() ([]byte, error) {
	type plain AzureConfig
	return json.Marshal(struct {
		Provider Provider `json:"provider"`
		plain
	}{ProviderAzure, plain(c)})
}

// DecodeVariant parses a wire config object and checks that its provider
// discriminator matches want.
func DecodeVariant(want Provider, raw json.RawMessage) (Variant, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, apperr.Validation("config is required", nil)
	}

	var tag struct {
		Provider string `json:"provider"`
	}
	if err := json.Unmarshal(raw, &tag); err != nil {
		return nil, apperr.Validation("config must be a JSON object", nil)
	}
	got, err := ParseProvider(tag.Provider)
	if err != nil || got != want {
		return nil, apperr.Validation(
			fmt.Sprintf("config.provider must be %q", want),
			map[string]any{"provider": tag.Provider},
		)
	}

	var v Variant
	switch want {
	case ProviderS3:
		var c S3Config
		err = json.Unmarshal(raw, &c)
		v = c
	case ProviderGCP:
		var c GCPConfig
		err = json.Unmarshal(raw, &c)
		v = c
	case ProviderAzure:
		var c AzureConfig
		err = json.Unmarshal(raw, &c)
		v = c
	}
	if err != nil {
		return nil, apperr.Validation(fmt.Sprintf("invalid %s config: %v", want, err), nil)
	}
	return v, nil
}

type field struct {
	name  string
	value string
}

func missing(fields ...field) []string {
	var out []string
	for _, f := range fields {
		if blank(f.value) {
			out = append(out, f.name)
		}
	}
	return out
}

func blank(s string) bool { return strings.TrimSpace(s) == "" }
