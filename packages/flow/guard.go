package flow

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"net/url"
	"syscall"
)

// ErrDisallowedAddress is returned for targets on internal networks
var ErrDisallowedAddress = errors.New("access to internal IP addresses is not allowed")

// reservedPrefixes are documentation, benchmarking and other special-use
// ranges that never host a public service.
var reservedPrefixes = []netip.Prefix{
	netip.MustParsePrefix("0.0.0.0/8"),
	netip.MustParsePrefix("192.0.0.0/24"),
	netip.MustParsePrefix("192.0.2.0/24"),
	netip.MustParsePrefix("192.88.99.0/24"),
	netip.MustParsePrefix("198.18.0.0/15"),
	netip.MustParsePrefix("198.51.100.0/24"),
	netip.MustParsePrefix("203.0.113.0/24"),
	netip.MustParsePrefix("240.0.0.0/4"),
	netip.MustParsePrefix("2001:db8::/32"),
}

// HostResolver looks up the addresses of a host. *net.Resolver satisfies it.
type HostResolver interface {
	LookupNetIP(ctx context.Context, network, host string) ([]netip.Addr, error)
}

// AddressGuard refuses targets that resolve to loopback, private,
// link-local or reserved addresses.
type AddressGuard struct {
	resolver HostResolver
}

// NewAddressGuard uses resolver for host lookups, net.DefaultResolver when nil.
func NewAddressGuard(resolver HostResolver) *AddressGuard {
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	return &AddressGuard{resolver: resolver}
}

// Check resolves the host of rawURL and fails if any of its addresses is
// disallowed.
func (g *AddressGuard) Check(ctx context.Context, rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	host := u.Hostname()
	if host == "" {
		return fmt.Errorf("invalid URL %q: no host", rawURL)
	}

	if addr, err := netip.ParseAddr(host); err == nil {
		return checkAddr(addr)
	}

	addrs, err := g.resolver.LookupNetIP(ctx, "ip", host)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", host, err)
	}
	for _, addr := range addrs {
		if err := checkAddr(addr); err != nil {
			return err
		}
	}
	return nil
}

// Control has the signature of net.Dialer.Control. It sees the address
// actually dialed, so a name that resolves differently after Check is
// still refused.
func (g *AddressGuard) Control(network, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return err
	}
	return checkAddr(addr)
}

func checkAddr(addr netip.Addr) error {
	if !Allowed(addr) {
		return fmt.Errorf("%w: %s", ErrDisallowedAddress, addr)
	}
	return nil
}

// Allowed reports whether addr may be targeted by a flow.
func Allowed(addr netip.Addr) bool {
	addr = addr.Unmap()
	if addr.IsLoopback() || addr.IsPrivate() || addr.IsUnspecified() ||
		addr.IsLinkLocalUnicast() || addr.IsLinkLocalMulticast() {
		return false
	}
	for _, p := range reservedPrefixes {
		if p.Contains(addr) {
			return false
		}
	}
	return true
}
