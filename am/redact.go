package am

import (
	"net/url"
	"strings"
)

const mask = "****"

// Redacted returns a copy of c safe to print: webhook tokens and DSN
// passwords are masked.
func (c *Config) Redacted() Config {
	out := *c
	out.Storage.DSN = redactDSN(c.Storage.DSN)

	out.Categories = make([]CategoryConfig, len(c.Categories))
	for i, cat := range c.Categories {
		cat.Discord.WebhookURL = redactWebhook(cat.Discord.WebhookURL)
		cat.Repositories = append([]string(nil), cat.Repositories...)
		out.Categories[i] = cat
	}
	return out
}

// redactWebhook masks the token, the last path segment of a webhook URL.
func redactWebhook(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return mask
	}
	if i := strings.LastIndex(u.Path, "/"); i >= 0 && i < len(u.Path)-1 {
		u.Path = u.Path[:i+1] + mask
	}
	u.RawQuery = ""
	return u.String()
}

// redactDSN masks the password of URL-style DSNs. Plain paths are returned
// unchanged.
func redactDSN(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), mask)
	}
	return u.String()
}
