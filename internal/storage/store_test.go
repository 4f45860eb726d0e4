package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_SelectKeepsOtherVariants(t *testing.T) {
	s := NewStore(ProviderS3)
	s.SetS3(validS3())
	s.SetAzure(AzureConfig{AccountName: "acct", ContainerName: "c", SASToken: "sv=1"})

	require.True(t, s.IsConfigured())

	require.NoError(t, s.Select(ProviderGCP))
	assert.Equal(t, ProviderGCP, s.ActiveProvider())
	assert.False(t, s.IsConfigured())

	require.NoError(t, s.Select(ProviderAzure))
	assert.True(t, s.IsConfigured())

	require.NoError(t, s.Select(ProviderS3))
	assert.Equal(t, validS3(), s.Active())
}

func TestStore_SelectUnknown(t *testing.T) {
	s := NewStore(ProviderAzure)
	assert.Error(t, s.Select("ftp"))
	assert.Equal(t, ProviderAzure, s.ActiveProvider())
}

func TestStore_DefaultsToS3(t *testing.T) {
	assert.Equal(t, ProviderS3, NewStore("").ActiveProvider())
}

func TestStore_Set(t *testing.T) {
	s := NewStore(ProviderS3)
	require.NoError(t, s.Set(GCPConfig{Bucket: "b", ProjectID: "p", KeyFile: "{}"}))
	assert.Equal(t, ProviderS3, s.ActiveProvider())

	v, err := s.Variant(ProviderGCP)
	require.NoError(t, err)
	assert.True(t, IsConfigured(v))

	assert.Error(t, s.Set(nil))
	_, err = s.Variant("nope")
	assert.Error(t, err)
}
