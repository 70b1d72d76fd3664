package notify

import (
	"fmt"
	"net/url"
	"strings"
)

// Provider describes one webhook destination the dispatcher will deliver to.
// Hostnames are matched exactly; a URL that merely contains an allowed
// hostname somewhere in its query or path is rejected.
type Provider struct {
	Name       string
	Hosts      []string
	PathPrefix string
}

var providers = []Provider{
	{Name: "slack", Hosts: []string{"hooks.slack.com"}, PathPrefix: "/services/"},
	{Name: "discord", Hosts: []string{"discord.com", "discordapp.com"}, PathPrefix: "/api/webhooks/"},
	{Name: "ntfy", Hosts: []string{"ntfy.sh"}, PathPrefix: "/"},
}

// ValidateWebhookURL accepts only http/https URLs whose hostname exactly
// matches a known provider and whose path carries the provider's prefix.
func ValidateWebhookURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("webhook url is empty")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid webhook url: %w", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("webhook url scheme must be http or https")
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return fmt.Errorf("webhook url has no hostname")
	}

	for _, p := range providers {
		for _, allowed := range p.Hosts {
			if host != allowed {
				continue
			}
			if !strings.HasPrefix(u.Path, p.PathPrefix) {
				return fmt.Errorf("webhook path does not match %s provider", p.Name)
			}
			return nil
		}
	}

	return fmt.Errorf("webhook host %q is not an allowed provider", host)
}
