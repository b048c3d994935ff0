package browser

import (
	"log/slog"
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// resourceTypes maps config names to protocol resource types. Scripts are
// absent on purpose: every page type in the table renders client side.
var resourceTypes = map[string]proto.NetworkResourceType{
	"Image":      proto.NetworkResourceTypeImage,
	"Stylesheet": proto.NetworkResourceTypeStylesheet,
	"Font":       proto.NetworkResourceTypeFont,
	"Media":      proto.NetworkResourceTypeMedia,
}

// adDomains holds well-known ad and tracking hosts. Subdomains match too.
var adDomains = map[string]struct{}{
	"doubleclick.net":       {},
	"googlesyndication.com": {},
	"googleadservices.com":  {},
	"google-analytics.com":  {},
	"googletagmanager.com":  {},
	"googletagservices.com": {},
	"connect.facebook.net":  {},
	"adnxs.com":             {},
	"adsrvr.org":            {},
	"amazon-adsystem.com":   {},
	"criteo.com":            {},
	"criteo.net":            {},
	"outbrain.com":          {},
	"taboola.com":           {},
	"moatads.com":           {},
	"pubmatic.com":          {},
	"rubiconproject.com":    {},
	"scorecardresearch.com": {},
	"quantserve.com":        {},
	"hotjar.com":            {},
	"mixpanel.com":          {},
	"segment.io":            {},
	"analytics.twitter.com": {},
	"ads-twitter.com":       {},
	"chartbeat.com":         {},
	"chartbeat.net":         {},
	"optimizely.com":        {},
	"media.net":             {},
	"openx.net":             {},
	"casalemedia.com":       {},
	"demdex.net":            {},
	"krxd.net":              {},
	"bluekai.com":           {},
	"sharethis.com":         {},
	"addthis.com":           {},
	"consensu.org":          {},
}

// requestFilter decides which tab requests are failed before they leave
// the browser. Blocked requests never reach the traffic counter.
type requestFilter struct {
	types map[proto.NetworkResourceType]struct{}
	ads   bool
}

// newRequestFilter returns nil when there is nothing to block. Unknown
// resource names are logged and ignored.
func newRequestFilter(names []string, blockAds bool, logger *slog.Logger) *requestFilter {
	types := make(map[proto.NetworkResourceType]struct{}, len(names))
	for _, name := range names {
		rt, ok := resourceTypes[name]
		if !ok {
			logger.Warn("ignoring unknown blocked resource type", "type", name)
			continue
		}
		types[rt] = struct{}{}
	}
	if len(types) == 0 && !blockAds {
		return nil
	}
	return &requestFilter{types: types, ads: blockAds}
}

func (f *requestFilter) blocks(rt proto.NetworkResourceType, host string) bool {
	if _, ok := f.types[rt]; ok {
		return true
	}
	return f.ads && isAdDomain(host)
}

// install starts a hijack router on page. The caller stops it before the
// tab closes.
func (f *requestFilter) install(page *rod.Page) *rod.HijackRouter {
	router := page.HijackRequests()

	// Empty resource type intercepts everything; the handler decides.
	_ = router.Add("*", "", func(h *rod.Hijack) {
		if f.blocks(h.Request.Type(), h.Request.URL().Hostname()) {
			h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		h.ContinueRequest(&proto.FetchContinueRequest{})
	})

	// Run blocks until Stop.
	go router.Run()
	return router
}

// isAdDomain reports whether host or any parent domain is a known ad host.
func isAdDomain(host string) bool {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	for host != "" {
		if _, ok := adDomains[host]; ok {
			return true
		}
		i := strings.IndexByte(host, '.')
		if i < 0 {
			break
		}
		host = host[i+1:]
	}
	return false
}
