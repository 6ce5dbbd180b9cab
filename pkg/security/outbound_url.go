// Package security guards where agent requests may be sent.
package security

import (
	"net/netip"
	"net/url"
	"strings"

	"github.com/pkg/errors"
)

var (
	ErrUnsupportedScheme = errors.New("unsupported URL scheme")
	ErrLocalTarget       = errors.New("local network target")
)

// BaseURLPolicy controls which provider base URLs are accepted.
type BaseURLPolicy struct {
	// AllowLocal accepts plain http and loopback, private, link-local or
	// .local hosts, for proxies running next to the workflow.
	AllowLocal bool
}

// CheckBaseURL rejects provider base URLs that would send prompts and API keys
// somewhere unexpected. IP literals are checked; hostnames are not resolved.
func CheckBaseURL(raw string, p BaseURLPolicy) error {
	u, err := url.Parse(raw)
	if err != nil {
		return errors.Wrap(err, "invalid base URL")
	}

	switch u.Scheme {
	case "https":
	case "http":
		if !p.AllowLocal {
			return errors.Wrapf(ErrUnsupportedScheme, "%s (http needs allow_local_base_url)", raw)
		}
	default:
		return errors.Wrapf(ErrUnsupportedScheme, "%q", u.Scheme)
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return errors.Errorf("base URL %s has no host", raw)
	}
	if p.AllowLocal {
		return nil
	}

	if host == "localhost" || strings.HasSuffix(host, ".localhost") || strings.HasSuffix(host, ".local") {
		return errors.Wrapf(ErrLocalTarget, "host %s", host)
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		// a hostname
		return nil
	}
	if addr.Zone() != "" {
		return errors.Wrapf(ErrLocalTarget, "zoned address %s", host)
	}
	addr = addr.Unmap()
	switch {
	case addr.IsUnspecified(), addr.IsMulticast():
		return errors.Errorf("base URL host %s is not routable", host)
	case addr.IsLoopback(), addr.IsPrivate(), addr.IsLinkLocalUnicast(), addr.IsLinkLocalMulticast():
		return errors.Wrapf(ErrLocalTarget, "address %s", host)
	}
	return nil
}
