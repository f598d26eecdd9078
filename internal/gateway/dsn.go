package gateway

import (
	"net"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"codequery/internal/core"
)

var hostKeyRe = regexp.MustCompile(`(^|\s)host\s*=\s*('(?:[^'\\]|\\.)*'|\S+)`)

// BuildDSN renders a lib/pq connection string for the descriptor.
func BuildDSN(desc *core.ConnectionDescriptor, opts Options) string {
	if desc.Profile != nil {
		return profileDSN(*desc.Profile, opts)
	}
	return withDefaults(desc.Raw, opts)
}

// FallbackDSN is BuildDSN with the host rewritten to the IPv4 loopback.
func FallbackDSN(desc *core.ConnectionDescriptor, opts Options) string {
	if desc.Profile != nil {
		p := *desc.Profile
		p.Host = FallbackHost
		return profileDSN(p, opts)
	}
	return withDefaults(rewriteHost(desc.Raw, FallbackHost), opts)
}

func profileDSN(p core.ConnectionProfile, opts Options) string {
	parts := []string{}
	add := func(key, val string) {
		if val != "" {
			parts = append(parts, key+"="+quote(val))
		}
	}
	add("host", p.Host)
	if p.Port > 0 {
		add("port", strconv.Itoa(int(p.Port)))
	}
	add("user", p.User)
	add("password", p.Password)
	add("dbname", p.Database)
	add("sslmode", opts.SSLMode)
	if opts.ConnectTimeout > 0 {
		add("connect_timeout", strconv.Itoa(opts.ConnectTimeout))
	}
	return strings.Join(parts, " ")
}

func quote(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}

func isURL(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

func rewriteHost(dsn, host string) string {
	if isURL(dsn) {
		u, err := url.Parse(dsn)
		if err != nil {
			return dsn
		}
		if port := u.Port(); port != "" {
			u.Host = net.JoinHostPort(host, port)
		} else {
			u.Host = host
		}
		return u.String()
	}
	if hostKeyRe.MatchString(dsn) {
		return hostKeyRe.ReplaceAllString(dsn, "${1}host="+host)
	}
	return strings.TrimSpace(dsn + " host=" + host)
}

// withDefaults adds sslmode and connect_timeout when a raw string omits them.
func withDefaults(dsn string, opts Options) string {
	if isURL(dsn) {
		u, err := url.Parse(dsn)
		if err != nil {
			return dsn
		}
		q := u.Query()
		if q.Get("sslmode") == "" && opts.SSLMode != "" {
			q.Set("sslmode", opts.SSLMode)
		}
		if q.Get("connect_timeout") == "" && opts.ConnectTimeout > 0 {
			q.Set("connect_timeout", strconv.Itoa(opts.ConnectTimeout))
		}
		u.RawQuery = q.Encode()
		return u.String()
	}
	if !strings.Contains(dsn, "sslmode") && opts.SSLMode != "" {
		dsn += " sslmode=" + opts.SSLMode
	}
	if !strings.Contains(dsn, "connect_timeout") && opts.ConnectTimeout > 0 {
		dsn += " connect_timeout=" + strconv.Itoa(opts.ConnectTimeout)
	}
	return strings.TrimSpace(dsn)
}
