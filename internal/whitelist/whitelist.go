// Package whitelist decides which senders are trusted by their domain.
package whitelist

import (
	"net/mail"
	"strings"

	"go.uber.org/zap"
)

// Checker matches sender domains against a list of trusted domains.
// A listed domain also covers its subdomains.
type Checker struct {
	domains map[string]struct{}
	logger  *zap.Logger
}

// NewChecker creates a new whitelist checker
func NewChecker(domains []string, logger *zap.Logger) *Checker {
	set := make(map[string]struct{}, len(domains))
	var listed []string
	for _, domain := range domains {
		d := strings.Trim(strings.ToLower(strings.TrimSpace(domain)), ".")
		if d == "" {
			continue
		}
		set[d] = struct{}{}
		listed = append(listed, d)
	}

	if len(listed) > 0 && logger != nil {
		logger.Info("Initialized whitelist checker", zap.Strings("domains", listed))
	}

	return &Checker{
		domains: set,
		logger:  logger,
	}
}

// IsWhitelisted reports whether the sender's domain is trusted.
// from may be a bare address or a "Name <address>" form.
func (c *Checker) IsWhitelisted(from string) bool {
	if len(c.domains) == 0 {
		return false
	}

	domain := senderDomain(from)
	for d := domain; d != ""; {
		if _, ok := c.domains[d]; ok {
			if c.logger != nil {
				c.logger.Debug("Domain is whitelisted",
					zap.String("domain", domain),
					zap.String("email", from))
			}
			return true
		}
		dot := strings.IndexByte(d, '.')
		if dot < 0 {
			break
		}
		d = d[dot+1:]
	}
	return false
}

func senderDomain(from string) string {
	addr := strings.TrimSpace(from)
	if parsed, err := mail.ParseAddress(addr); err == nil {
		addr = parsed.Address
	}
	at := strings.LastIndexByte(addr, '@')
	if at < 0 || at == len(addr)-1 {
		return ""
	}
	return strings.ToLower(addr[at+1:])
}
