package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	commonerrors "github.com/AlibekovAA/givematch-portal/internal/common/errors"
)

type channelsFile struct {
	Channels []ChannelConfig `yaml:"channels"`
}

// LoadChannelsFile reads a YAML document of the form
//
//	channels:
//	  - name: dashboard
//	    path: /ws/dashboard/
//	  - name: donations
//	    url: wss://events.example.org/ws/donations/
//	    policy:
//	      max_attempts: 10
//	      base_delay: 500ms
func LoadChannelsFile(path string) ([]ChannelConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read channels file: %w", err)
	}

	var doc channelsFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, commonerrors.ErrInvalidConfig.WithCause(fmt.Errorf("parse channels file %s: %w", path, err))
	}

	if len(doc.Channels) == 0 {
		return nil, commonerrors.ErrInvalidConfig.WithCause(fmt.Errorf("channels file %s declares no channels", path))
	}

	seen := make(map[string]struct{}, len(doc.Channels))
	for _, ch := range doc.Channels {
		if _, dup := seen[ch.Name]; dup {
			return nil, commonerrors.ErrInvalidConfig.WithCause(fmt.Errorf("duplicate channel %q", ch.Name))
		}
		seen[ch.Name] = struct{}{}
	}

	return doc.Channels, nil
}
