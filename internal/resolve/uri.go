package resolve

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// URIResolver turns an engine URI (resource://, chrome://, ...) into the URI
// of the file backing it. A result that is not a file:// URI is passed
// through and later reported as unsupported.
type URIResolver interface {
	ResolveURI(uri string) (string, error)
}

type uriMapping struct {
	prefix string
	target string
}

// MappingURIResolver resolves URIs by longest-prefix substitution, e.g.
// "resource:///" -> "/obj/dist/bin/". Targets may be plain paths or
// file:// URIs.
type MappingURIResolver struct {
	mappings []uriMapping
}

// NewMappingURIResolver builds a resolver from a prefix -> target table.
func NewMappingURIResolver(table map[string]string) *MappingURIResolver {
	m := &MappingURIResolver{mappings: make([]uriMapping, 0, len(table))}
	for prefix, target := range table {
		if !strings.Contains(target, "://") {
			target = "file://" + target
		}
		m.mappings = append(m.mappings, uriMapping{prefix: prefix, target: target})
	}
	sort.Slice(m.mappings, func(i, j int) bool {
		if len(m.mappings[i].prefix) != len(m.mappings[j].prefix) {
			return len(m.mappings[i].prefix) > len(m.mappings[j].prefix)
		}
		return m.mappings[i].prefix < m.mappings[j].prefix
	})
	return m
}

// ResolveURI applies the longest matching prefix. URIs without a matching
// prefix are returned unchanged.
func (m *MappingURIResolver) ResolveURI(uri string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("parse URI: %w", err)
	}
	if u.Scheme == "" {
		return "", fmt.Errorf("parse URI %q: missing scheme", uri)
	}
	for _, mp := range m.mappings {
		if strings.HasPrefix(uri, mp.prefix) {
			return mp.target + strings.TrimPrefix(uri, mp.prefix), nil
		}
	}
	return uri, nil
}
