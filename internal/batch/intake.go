package batch

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
)

// ParseURLs splits text on commas and newlines and keeps the entries that are
// absolute http or https URLs with a host, in input order.
func ParseURLs(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || r == '\n'
	})

	urls := make([]string, 0, len(fields))
	for _, field := range fields {
		candidate := strings.TrimSpace(strings.Map(stripQuotes, field))
		if isUploadable(candidate) {
			urls = append(urls, candidate)
		}
	}
	return urls
}

// ParseURLReader applies ParseURLs to everything read from r.
func ParseURLReader(r io.Reader) ([]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read url list: %w", err)
	}
	return ParseURLs(string(data)), nil
}

// ReadURLFile reads a text file of URLs.
func ReadURLFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open url file: %w", err)
	}
	defer f.Close()
	return ParseURLReader(f)
}

func stripQuotes(r rune) rune {
	switch r {
	case '<', '>', '\'', '"':
		return -1
	}
	return r
}

func isUploadable(raw string) bool {
	if raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}
