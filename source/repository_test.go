package source

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRepository(t *testing.T) {
	root := filepath.Join("var", "repos")

	tests := []struct {
		name    string
		url     string
		slug    string
		dir     string
		wantErr bool
	}{
		{
			name: "github https",
			url:  "https://github.com/SimplifyJobs/Summer2026-Internships",
			slug: "SimplifyJobs/Summer2026-Internships",
			dir:  filepath.Join(root, "SimplifyJobs-Summer2026-Internships"),
		},
		{
			name: "git suffix and trailing slash",
			url:  "https://github.com/vanshb03/New-Grad-2025.git/",
			slug: "vanshb03/New-Grad-2025",
			dir:  filepath.Join(root, "vanshb03-New-Grad-2025"),
		},
		{name: "no host", url: "SimplifyJobs/Summer2026-Internships", wantErr: true},
		{name: "no name", url: "https://github.com/SimplifyJobs", wantErr: true},
		{name: "unparseable", url: "https://github.com/%zz", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, err := ParseRepository(tt.url, root)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.slug, repo.Slug)
			assert.Equal(t, tt.dir, repo.Dir)
		})
	}
}

func TestRepositoryOwner(t *testing.T) {
	repo := Repository{Slug: "SimplifyJobs/New-Grad-Positions"}
	assert.Equal(t, "SimplifyJobs", repo.Owner())
}
