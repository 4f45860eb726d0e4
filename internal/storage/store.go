package storage

import (
	"fmt"
	"sync"
)

// Store holds the credentials entered for every provider and which one is
// active. Switching providers keeps the other variants' values.
type Store struct {
	mu     sync.RWMutex
	active Provider
	s3     S3Config
	gcp    GCPConfig
	azure  AzureConfig
}

func NewStore(active Provider) *Store {
	if !active.IsValid() {
		active = ProviderS3
	}
	return &Store{active: active}
}

// Select switches the active provider.
func (s *Store) Select(p Provider) error {
	if !p.IsValid() {
		return fmt.Errorf("unknown provider: %q", p)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = p
	return nil
}

func (s *Store) ActiveProvider() Provider {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// Active returns a copy of the active variant's credentials.
func (s *Store) Active() Variant {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.variantLocked(s.active)
}

// Variant returns a copy of the stored credentials for p.
func (s *Store) Variant(p Provider) (Variant, error) {
	if !p.IsValid() {
		return nil, fmt.Errorf("unknown provider: %q", p)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.variantLocked(p), nil
}

// IsConfigured applies the active provider's required-field predicate.
func (s *Store) IsConfigured() bool {
	return IsConfigured(s.Active())
}

func (s *Store) SetS3(c S3Config) {
	s.mu.Lock()
	s.s3 = c
	s.mu.Unlock()
}

func (s *Store) SetGCP(c GCPConfig) {
	s.mu.Lock()
	s.gcp = c
	s.mu.Unlock()
}

func (s *Store) SetAzure(c AzureConfig) {
	s.mu.Lock()
	s.azure = c
	s.mu.Unlock()
}

// Set stores v under its own provider without changing the active one.
func (s *Store) Set(v Variant) error {
	switch c := v.(type) {
	case S3Config:
		s.SetS3(c)
	case GCPConfig:
		s.SetGCP(c)
	case AzureConfig:
		s.SetAzure(c)
	default:
		return fmt.Errorf("unsupported credential type %T", v)
	}
	return nil
}

func (s *Store) variantLocked(p Provider) Variant {
	switch p {
	case ProviderGCP:
		return s.gcp
	case ProviderAzure:
		return s.azure
	default:
		return s.s3
	}
}
