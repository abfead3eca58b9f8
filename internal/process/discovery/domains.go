package discovery

import (
	"net/url"
	"strings"
)

// unreadableHosts render through JavaScript or wrap links, so the crawler
// cannot get event text from them.
var unreadableHosts = map[string]bool{
	"twitter.com":   true,
	"x.com":         true,
	"t.co":          true,
	"facebook.com":  true,
	"fb.com":        true,
	"instagram.com": true,
	"threads.net":   true,
	"youtube.com":   true,
	"youtu.be":      true,
	"tiktok.com":    true,
	"vimeo.com":     true,
	"twitch.tv":     true,
	"linkedin.com":  true,
	"t.me":          true,
	"discord.com":   true,
	"discord.gg":    true,
	"reddit.com":    true,
	"pinterest.com": true,

	"bit.ly":      true,
	"goo.gl":      true,
	"tinyurl.com": true,
	"ow.ly":       true,
	"buff.ly":     true,
}

// DomainFilter decides which result hosts are worth crawling.
type DomainFilter struct {
	allowlist map[string]bool
	denylist  map[string]bool
}

// NewDomainFilter parses comma-separated host lists. A non-empty allowlist
// admits only its hosts; otherwise the denylist excludes hosts. Unreadable
// hosts are always excluded.
func NewDomainFilter(allowlist, denylist string) *DomainFilter {
	return &DomainFilter{
		allowlist: parseDomainList(allowlist),
		denylist:  parseDomainList(denylist),
	}
}

// AllowsURL reports whether the host of rawURL passes the filter.
func (f *DomainFilter) AllowsURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	return f.Allows(u.Hostname())
}

// Allows reports whether host passes the filter. Subdomains match their parent.
func (f *DomainFilter) Allows(host string) bool {
	host = normalizeDomain(host)
	if host == "" {
		return false
	}

	if matchesList(host, unreadableHosts) {
		return false
	}

	if len(f.allowlist) > 0 {
		return matchesList(host, f.allowlist)
	}

	return !matchesList(host, f.denylist)
}

func matchesList(host string, list map[string]bool) bool {
	if list[host] {
		return true
	}

	for d := range list {
		if strings.HasSuffix(host, "."+d) {
			return true
		}
	}

	return false
}

func parseDomainList(s string) map[string]bool {
	result := make(map[string]bool)

	for _, d := range strings.Split(s, ",") {
		if d = normalizeDomain(d); d != "" {
			result[d] = true
		}
	}

	return result
}

func normalizeDomain(d string) string {
	d = strings.ToLower(strings.TrimSpace(d))
	d = strings.TrimPrefix(d, "https://")
	d = strings.TrimPrefix(d, "http://")
	d = strings.TrimSuffix(d, "/")

	return strings.TrimPrefix(d, "www.")
}
