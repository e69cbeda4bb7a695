package render

import (
	"net/url"
	"strings"

	"golang.org/x/net/idna"
)

// UnknownSource is the label used when a fake-source URL cannot be parsed.
const UnknownSource = "Unknown Source"

type provider struct {
	key   string // substring matched against the hostname
	label string
}

// 已知的公开代理列表站点。按顺序匹配，更具体的 key 必须排在前面。
var knownProviders = []provider{
	{"proxyscrape", "ProxyScrape"},
	{"free-proxy-list", "Free Proxy List"},
	{"proxy-list.download", "Proxy-List.download"},
	{"geonode", "Geonode"},
	{"spys", "Spys.one"},
	{"proxynova", "ProxyNova"},
	{"hidemy", "HideMy.name"},
	{"openproxy", "OpenProxy.space"},
	{"proxydb", "ProxyDB"},
	{"sslproxies", "SSL Proxies"},
	{"us-proxy", "US Proxy"},
	{"socks-proxy", "Socks Proxy"},
	{"kuaidaili", "Kuaidaili"},
	{"zdaye", "Zdaye"},
	{"ip3366", "IP3366"},
	{"qiyunip", "Qiyun IP"},
	{"githubusercontent", "GitHub"},
	{"github", "GitHub"},
}

// SourceLabel derives a short site label from a fake-source URL.
func SourceLabel(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Hostname() == "" {
		return UnknownSource
	}
	host := strings.ToLower(u.Hostname())

	for _, p := range knownProviders {
		if strings.Contains(host, p.key) {
			return p.label
		}
	}

	host = strings.TrimPrefix(host, "www.")
	label := strings.Split(host, ".")[0]
	if label == "" {
		return UnknownSource
	}
	if uni, err := idna.ToUnicode(label); err == nil && uni != "" {
		label = uni
	}
	return label
}

// linkable reports whether rawURL is safe to use as an href.
func linkable(rawURL string) bool {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return scheme == "http" || scheme == "https"
}
