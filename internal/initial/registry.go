package initial

import (
	"fmt"
	"sort"
)

type Registry struct {
	providers map[string]func() Provider
}

func NewRegistry() *Registry {
	r := &Registry{
		providers: make(map[string]func() Provider),
	}

	r.providers["uniform"] = func() Provider { return Uniform{} }
	r.providers["ring"] = func() Provider { return Ring{Radius: 0.8, Speed: 0.5} }
	r.providers["disk"] = func() Provider { return Disk{Radius: 0.9, Spin: 0.3} }
	r.providers["clusters"] = func() Provider { return Clusters{Count: 3, Spread: 0.05, Drift: 0.05} }

	return r
}

func (r *Registry) Register(name string, fn func() Provider) {
	r.providers[name] = fn
}

func (r *Registry) Get(name string) (Provider, error) {
	fn, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("unknown distribution: %s (available: %v)", name, r.List())
	}
	return fn(), nil
}

func (r *Registry) List() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
