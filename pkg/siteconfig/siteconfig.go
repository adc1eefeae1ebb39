package siteconfig

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Package siteconfig resolves where the follow endpoint lives from host-provided configuration.

// DefaultSiteURL is used when the host does not provide a site URL.
const DefaultSiteURL = "http://localhost:8065"

// HostConfig mirrors the slice of host state the plugin reads:
// entities.general.config.SiteURL.
type HostConfig struct {
	Entities Entities `json:"entities" yaml:"entities"`
}

type Entities struct {
	General General `json:"general" yaml:"general"`
}

type General struct {
	Config GeneralConfig `json:"config" yaml:"config"`
}

type GeneralConfig struct {
	SiteURL string `json:"SiteURL" yaml:"SiteURL"`
}

// WithSiteURL returns a HostConfig carrying only siteURL.
func WithSiteURL(siteURL string) HostConfig {
	var cfg HostConfig
	cfg.Entities.General.Config.SiteURL = siteURL
	return cfg
}

// SiteURL returns the raw configured value.
func (c HostConfig) SiteURL() string { return c.Entities.General.Config.SiteURL }

// ResolveBaseURL returns the configured site URL, or DefaultSiteURL when it is blank.
func ResolveBaseURL(cfg HostConfig) string {
	if site := cfg.SiteURL(); strings.TrimSpace(site) != "" {
		return site
	}
	return DefaultSiteURL
}

// ServiceURL joins a site URL and plugin id into the plugin's route prefix.
func ServiceURL(siteURL, pluginID string) string {
	return strings.TrimRight(siteURL, "/") + "/plugins/" + strings.Trim(pluginID, "/")
}

// Load reads a host configuration snapshot from a YAML or JSON file.
// An empty path yields the zero HostConfig.
func Load(path string) (HostConfig, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return HostConfig{}, nil
	}

	file, err := os.Open(path)
	if err != nil {
		return HostConfig{}, fmt.Errorf("open host config file: %w", err)
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return HostConfig{}, fmt.Errorf("read host config file: %w", err)
	}
	return parse(raw, filepath.Ext(path))
}

func parse(data []byte, ext string) (HostConfig, error) {
	ext = strings.ToLower(strings.TrimSpace(ext))
	decoders := []struct {
		name string
		ext  string
		fn   func([]byte, any) error
	}{
		{name: "yaml", ext: ".yaml", fn: yaml.Unmarshal},
		{name: "yaml", ext: ".yml", fn: yaml.Unmarshal},
		{name: "json", ext: ".json", fn: json.Unmarshal},
	}

	for _, d := range decoders {
		if ext != "" && ext != d.ext {
			continue
		}
		var cfg HostConfig
		if err := d.fn(data, &cfg); err == nil {
			return cfg, nil
		}
	}
	return HostConfig{}, errors.New("host config format not recognized (expected YAML or JSON)")
}
