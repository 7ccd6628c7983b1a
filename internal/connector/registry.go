package connector

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/smallbiznis/pricewatch/internal/connector/domain"
)

// Registry holds the statically registered source connectors.
type Registry struct {
	byName         map[string]domain.Connector
	order          []string
	timeouts       map[string]time.Duration
	defaultTimeout time.Duration
}

func NewRegistry(connectors ...domain.Connector) (*Registry, error) {
	r := &Registry{
		byName:         make(map[string]domain.Connector, len(connectors)),
		timeouts:       make(map[string]time.Duration),
		defaultTimeout: DefaultTimeout,
	}
	for _, c := range connectors {
		if err := r.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds c. Names are unique and compared case-sensitively, as stored.
func (r *Registry) Register(c domain.Connector) error {
	if c == nil {
		return domain.ErrInvalidConnector
	}
	name := strings.TrimSpace(c.Name())
	if name == "" {
		return domain.ErrInvalidConnector
	}
	if _, exists := r.byName[name]; exists {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateConnector, name)
	}
	r.byName[name] = c
	r.order = append(r.order, name)
	return nil
}

// RegisterWithTimeout adds c with its own call timeout.
func (r *Registry) RegisterWithTimeout(c domain.Connector, timeout time.Duration) error {
	if err := r.Register(c); err != nil {
		return err
	}
	if timeout > 0 {
		r.timeouts[strings.TrimSpace(c.Name())] = timeout
	}
	return nil
}

func (r *Registry) SetDefaultTimeout(timeout time.Duration) {
	if timeout > 0 {
		r.defaultTimeout = timeout
	}
}

// Timeout is the call timeout for the named source.
func (r *Registry) Timeout(name string) time.Duration {
	if d, ok := r.timeouts[strings.TrimSpace(name)]; ok {
		return d
	}
	return r.defaultTimeout
}

func (r *Registry) Get(name string) (domain.Connector, bool) {
	c, ok := r.byName[strings.TrimSpace(name)]
	return c, ok
}

// All returns connectors in registration order.
func (r *Registry) All() []domain.Connector {
	out := make([]domain.Connector, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byName[name])
	}
	return out
}

// Names returns the registered source names sorted alphabetically.
func (r *Registry) Names() []string {
	names := append([]string(nil), r.order...)
	sort.Strings(names)
	return names
}

// Select returns the connectors named in sources, or all of them when sources is empty.
func (r *Registry) Select(sources []string) ([]domain.Connector, error) {
	if len(sources) == 0 {
		return r.All(), nil
	}
	seen := make(map[string]struct{}, len(sources))
	out := make([]domain.Connector, 0, len(sources))
	for _, source := range sources {
		source = strings.TrimSpace(source)
		if source == "" {
			continue
		}
		if _, dup := seen[source]; dup {
			continue
		}
		c, ok := r.byName[source]
		if !ok {
			return nil, fmt.Errorf("%w: %s", domain.ErrUnknownSource, source)
		}
		seen[source] = struct{}{}
		out = append(out, c)
	}
	return out, nil
}
