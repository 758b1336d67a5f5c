package cds

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrNoCredentials is returned when neither the environment nor the rc file
// provides an API endpoint and key.
var ErrNoCredentials = errors.New("no CDS API credentials")

// Credentials identify a Climate Data Store account.
type Credentials struct {
	URL string `yaml:"url"`
	Key string `yaml:"key"`
}

// LoadCredentials prefers explicit url and key values and falls back to the
// rc file at rcPath.
func LoadCredentials(url, key, rcPath string) (Credentials, error) {
	if url != "" && key != "" {
		return Credentials{URL: strings.TrimRight(url, "/"), Key: key}, nil
	}

	data, err := os.ReadFile(rcPath)
	if errors.Is(err, os.ErrNotExist) {
		return Credentials{}, fmt.Errorf("%w: set CDSAPI_URL and CDSAPI_KEY or create %s", ErrNoCredentials, rcPath)
	}
	if err != nil {
		return Credentials{}, fmt.Errorf("read %s: %w", rcPath, err)
	}

	var creds Credentials
	if err := yaml.Unmarshal(data, &creds); err != nil {
		return Credentials{}, fmt.Errorf("parse %s: %w", rcPath, err)
	}
	if creds.URL == "" || creds.Key == "" {
		return Credentials{}, fmt.Errorf("%w: %s needs url and key", ErrNoCredentials, rcPath)
	}
	creds.URL = strings.TrimRight(creds.URL, "/")
	return creds, nil
}

// basicAuth splits the "UID:KEY" form used by the CDS API.
func (c Credentials) basicAuth() (user, pass string, err error) {
	user, pass, ok := strings.Cut(c.Key, ":")
	if !ok || user == "" || pass == "" {
		return "", "", errors.New("CDS key must have the form UID:KEY")
	}
	return user, pass, nil
}
