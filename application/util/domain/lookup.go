package domain

import (
	"context"
	"maps"
	"net"
	"net/netip"
	"strings"

	"github.com/pkg/errors"
)

var ErrDomainNotFound = errors.New("domain not found")

// Lookuper resolves a domain name to its addresses.
type Lookuper interface {
	LookupIP(ctx context.Context, domain string) (addrs []netip.Addr, err error)
}

type MapLookuper struct {
	set map[string][]netip.Addr
}

var _ Lookuper = (*MapLookuper)(nil)

// NewMapLookuper creates a static lookuper, like a hosts file.
// The given set is copied.
func NewMapLookuper(set map[string][]netip.Addr) *MapLookuper {
	m := &MapLookuper{set: make(map[string][]netip.Addr, len(set))}
	for domain, addrs := range set {
		m.Set(domain, addrs)
	}
	return m
}

func (m *MapLookuper) LookupIP(ctx context.Context, domain string) (addrs []netip.Addr, err error) {
	addrs, ok := m.set[strings.ToLower(domain)]
	if !ok {
		return nil, errors.Wrap(ErrDomainNotFound, domain)
	}
	return addrs, nil
}

func (m *MapLookuper) Set(domain string, addrs []netip.Addr) {
	if len(addrs) == 0 {
		return
	}
	m.set[strings.ToLower(domain)] = append([]netip.Addr(nil), addrs...)
}

func (m *MapLookuper) Del(domain string) { delete(m.set, strings.ToLower(domain)) }

// Domains returns a copy of the known domains and their addresses.
func (m *MapLookuper) Domains() map[string][]netip.Addr { return maps.Clone(m.set) }

// ResolverLookuper asks the system resolver.
type ResolverLookuper struct {
	Resolver *net.Resolver
}

var _ Lookuper = ResolverLookuper{}

func (r ResolverLookuper) LookupIP(ctx context.Context, domain string) ([]netip.Addr, error) {
	resolver := r.Resolver
	if resolver == nil {
		resolver = net.DefaultResolver
	}

	addrs, err := resolver.LookupNetIP(ctx, "ip", domain)
	if err != nil {
		var dnsErr *net.DNSError
		if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
			return nil, errors.Wrap(ErrDomainNotFound, domain)
		}
		return nil, errors.Wrap(err, "looking up domain")
	}
	return addrs, nil
}

// ChainLookuper tries each lookuper in order until one knows the domain.
type ChainLookuper []Lookuper

var _ Lookuper = ChainLookuper(nil)

func (c ChainLookuper) LookupIP(ctx context.Context, domain string) ([]netip.Addr, error) {
	for _, l := range c {
		addrs, err := l.LookupIP(ctx, domain)
		if err == nil {
			return addrs, nil
		}
		if !errors.Is(err, ErrDomainNotFound) {
			return nil, err
		}
	}
	return nil, errors.Wrap(ErrDomainNotFound, domain)
}
