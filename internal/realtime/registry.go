package realtime

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/AlibekovAA/givematch-portal/internal/common/clock"
	"github.com/AlibekovAA/givematch-portal/internal/common/logger"
)

type ChannelSpec struct {
	Name     string
	Endpoint string
	Policy   ReconnectPolicy
}

type RegistryConfig struct {
	BaseURL       string
	DefaultPolicy ReconnectPolicy
	DialTimeout   time.Duration
	Channels      []ChannelSpec
}

// Registry holds one Manager per channel name. Managers are created on first
// access and live as long as the registry.
type Registry struct {
	cfg    RegistryConfig
	specs  map[string]ChannelSpec
	dialer Dialer
	clock  clock.Clock
	log    *logger.Logger

	mu       sync.Mutex
	channels map[string]*Manager
}

func NewRegistry(cfg RegistryConfig, dialer Dialer, clk clock.Clock, log *logger.Logger) *Registry {
	specs := make(map[string]ChannelSpec, len(cfg.Channels))
	for _, spec := range cfg.Channels {
		specs[spec.Name] = spec
	}
	return &Registry{
		cfg:      cfg,
		specs:    specs,
		dialer:   dialer,
		clock:    clk,
		log:      log,
		channels: make(map[string]*Manager),
	}
}

// Channel returns the manager for name, creating it if needed. Names without
// a declared spec resolve to <base>/ws/<name>/ with the default policy.
func (r *Registry) Channel(name string) *Manager {
	r.mu.Lock()
	defer r.mu.Unlock()

	if m, ok := r.channels[name]; ok {
		return m
	}

	spec, ok := r.specs[name]
	if !ok {
		spec = ChannelSpec{
			Name:     name,
			Endpoint: strings.TrimRight(r.cfg.BaseURL, "/") + "/ws/" + name + "/",
			Policy:   r.cfg.DefaultPolicy,
		}
	}

	m := NewManager(ManagerConfig{
		Name:        spec.Name,
		Endpoint:    spec.Endpoint,
		Policy:      spec.Policy,
		DialTimeout: r.cfg.DialTimeout,
	}, r.dialer, r.clock, r.log)
	r.channels[name] = m
	return m
}

// Lookup returns the manager for a declared or already created channel
// without creating anything new.
func (r *Registry) Lookup(name string) (*Manager, bool) {
	r.mu.Lock()
	m, created := r.channels[name]
	_, declared := r.specs[name]
	r.mu.Unlock()

	if created {
		return m, true
	}
	if declared {
		return r.Channel(name), true
	}
	return nil, false
}

// Names lists declared and created channels in sorted order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]struct{}, len(r.specs)+len(r.channels))
	for name := range r.specs {
		seen[name] = struct{}{}
	}
	for name := range r.channels {
		seen[name] = struct{}{}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) ConnectAll() {
	for _, name := range r.Names() {
		r.Channel(name).Connect()
	}
}

func (r *Registry) DisconnectAll() {
	for _, m := range r.managers() {
		m.Disconnect()
	}
}

func (r *Registry) Statuses() []Status {
	managers := r.managers()
	out := make([]Status, 0, len(managers))
	for _, m := range managers {
		out = append(out, m.Status())
	}
	return out
}

func (r *Registry) managers() []*Manager {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*Manager, 0, len(r.channels))
	for _, m := range r.channels {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}
