package realtime

import (
	"github.com/AlibekovAA/givematch-portal/internal/common/config"
	"github.com/AlibekovAA/givematch-portal/internal/common/constants"
)

func RegistryConfigFrom(cfg config.RealtimeConfig) RegistryConfig {
	channels := make([]ChannelSpec, 0, len(cfg.Channels))
	for _, ch := range cfg.Channels {
		channels = append(channels, ChannelSpec{
			Name:     ch.Name,
			Endpoint: ch.Endpoint(cfg.BaseURL),
			Policy:   PolicyFromConfig(ch.EffectivePolicy(cfg.Policy)),
		})
	}
	return RegistryConfig{
		BaseURL:       cfg.BaseURL,
		DefaultPolicy: PolicyFromConfig(cfg.Policy),
		DialTimeout:   constants.RealtimeHandshakeTimeout,
		Channels:      channels,
	}
}
