package scanner

import (
	"fmt"
	"sort"

	"DailyDigest/internal/ports"
)

// Known source identifiers.
const (
	SourceTencent = "tencent"
	SourceAIBase  = "aibase"
)

// DefaultSources is used when a request does not name any.
var DefaultSources = []string{SourceTencent, SourceAIBase}

// Registry keeps a mapping from source ids to their fetchers.
type Registry struct {
	fetchers map[string]ports.SourceFetcher
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{fetchers: map[string]ports.SourceFetcher{}}
}

// Register adds or replaces a fetcher implementation.
func (r *Registry) Register(fetcher ports.SourceFetcher) {
	if r.fetchers == nil {
		r.fetchers = map[string]ports.SourceFetcher{}
	}
	r.fetchers[fetcher.Name()] = fetcher
}

// Resolve returns a fetcher by name or an error if it is absent.
func (r *Registry) Resolve(name string) (ports.SourceFetcher, error) {
	if fetcher, ok := r.fetchers[name]; ok {
		return fetcher, nil
	}
	return nil, fmt.Errorf("source %s is not registered", name)
}

// Names lists registered sources in lexical order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.fetchers))
	for name := range r.fetchers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
