package middleware

import (
	"net/http"
	"regexp"
	"strings"
)

var (
	emailRE = regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`)
	// Checkout references as issued by the payment provider (pi_…, cs_…, ch_…).
	paymentRefRE = regexp.MustCompile(`\b(?:pi|cs|ch|in)_[A-Za-z0-9]{6,}\b`)
)

// scrubber removes personal and payment data from log fields.
type scrubber struct {
	mask map[string]struct{}
}

func newScrubber(extra []string) scrubber {
	mask := map[string]struct{}{
		"authorization": {},
		"cookie":        {},
		"set-cookie":    {},
	}
	for _, h := range extra {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			mask[h] = struct{}{}
		}
	}
	return scrubber{mask: mask}
}

func (s scrubber) scrub(v string) string {
	if v == "" {
		return v
	}
	v = emailRE.ReplaceAllString(v, "[REDACTED:email]")
	return paymentRefRE.ReplaceAllString(v, "[REDACTED:payment]")
}

func (s scrubber) headers(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, vv := range h {
		if _, ok := s.mask[strings.ToLower(k)]; ok {
			out[k] = "[REDACTED]"
			continue
		}
		out[k] = s.scrub(strings.Join(vv, ", "))
	}
	return out
}
