package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/jobpulse/errors"
)

const validEntry = `{"id":"1","company_name":"Acme","title":"Intern","active":true,"is_visible":true,"date_posted":1700000000,"date_updated":1700000000,"season":"Summer","locations":["Remote"],"sponsorship":"Other","url":"https://acme.example","source":"Acme"}`

func writeListings(t *testing.T, dir, content string) {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(DefaultListingsPath))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestReadSnapshot(t *testing.T) {
	repo := Repository{Slug: "owner/repo", Dir: t.TempDir()}
	writeListings(t, repo.Dir, "["+validEntry+"]")

	snap, found, err := ReadSnapshot(repo, DefaultListingsPath)
	require.NoError(t, err)
	assert.True(t, found)
	require.Len(t, snap, 1)
	assert.Equal(t, "Acme", snap[0].CompanyName)
}

func TestReadSnapshotMissingFile(t *testing.T) {
	repo := Repository{Slug: "owner/repo", Dir: t.TempDir()}

	snap, found, err := ReadSnapshot(repo, DefaultListingsPath)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, snap)
}

func TestReadSnapshotNotAnArray(t *testing.T) {
	repo := Repository{Slug: "owner/repo", Dir: t.TempDir()}
	writeListings(t, repo.Dir, `{"listings":[]}`)

	snap, found, err := ReadSnapshot(repo, DefaultListingsPath)
	require.Error(t, err)
	assert.True(t, found)
	assert.Nil(t, snap)
	assert.True(t, errors.IsCorruptStateError(err))
}

func TestAcquireKeepsValidListings(t *testing.T) {
	repo := Repository{Slug: "owner/repo", Dir: t.TempDir()}
	writeListings(t, repo.Dir, `[`+validEntry+`,{"id":"2","company_name":"Bad","season":"Summer","terms":["Fall"]}]`)

	snap, found, err := NewAcquirer(nil, "", nil).Acquire(context.Background(), repo)
	require.NoError(t, err)
	assert.True(t, found)
	require.Len(t, snap, 1)
	assert.Equal(t, "1", snap[0].ID)
}
