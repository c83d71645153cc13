// Package source keeps local clones of the listing repositories up to date
// and reads their listings file.
package source

import (
	"net/url"
	"path/filepath"
	"strings"

	"github.com/teranos/jobpulse/errors"
)

// DefaultListingsPath is where the upstream repositories keep their listings.
const DefaultListingsPath = ".github/scripts/listings.json"

// Repository is one configured snapshot source.
type Repository struct {
	// URL is the clone URL as configured.
	URL string
	// Slug is "owner/name", used as the source name in stores and notifications.
	Slug string
	// Dir is the local clone directory.
	Dir string
}

// ParseRepository derives a Repository from a clone URL. The clone lives in
// root under the slug with "/" replaced by "-".
func ParseRepository(rawURL, root string) (Repository, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return Repository{}, errors.Wrapf(err, "parse repository URL %q", rawURL)
	}
	if u.Host == "" {
		return Repository{}, errors.WithHint(
			errors.Newf("repository URL %q has no host", rawURL),
			"use the full clone URL, e.g. https://github.com/SimplifyJobs/Summer2026-Internships")
	}

	slug := strings.TrimSuffix(strings.Trim(u.Path, "/"), ".git")
	if slug == "" || !strings.Contains(slug, "/") {
		return Repository{}, errors.Newf("repository URL %q has no owner/name path", rawURL)
	}

	return Repository{
		URL:  u.String(),
		Slug: slug,
		Dir:  filepath.Join(root, strings.ReplaceAll(slug, "/", "-")),
	}, nil
}

// Owner returns the first segment of the slug.
func (r Repository) Owner() string {
	owner, _, _ := strings.Cut(r.Slug, "/")
	return owner
}
