// Package catalog enumerates locally installed Minecraft versions and the
// upstream version manifest, and owns the process-wide manifest cache.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/Masterminds/semver/v3"

	"github.com/sammwyy/minilaunch/internal/manifest"
)

const mojangVersionManifestURL = "https://piston-meta.mojang.com/mc/game/version_manifest_v2.json"

const cacheTTL = 5 * time.Minute

// MinecraftVersion is one entry of the union catalog: either a locally
// installed version or one named by the upstream manifest.
type MinecraftVersion struct {
	ID          string
	Type        manifest.VersionType
	ReleaseTime time.Time
	URL         string
	IsLocal     bool
	LocalPath   string
}

type cacheEntry struct {
	manifest  *manifest.VersionManifest
	fetchedAt time.Time
}

var (
	cacheMu sync.Mutex
	cache   = map[string]cacheEntry{}
)

// Catalog fetches the remote manifest and scans a local versions directory.
type Catalog struct {
	httpClient *http.Client
}

// New builds a Catalog with a modest request timeout, matching the
// teacher's api.MojangClient (manifest fetches are small and don't need the
// retrying transport the file fetcher uses).
func New() *Catalog {
	return &Catalog{httpClient: &http.Client{Timeout: 30 * time.Second}}
}

// LocalVersions lists subdirectories of mcDir/versions whose <name>.json
// descriptor parses successfully. Parse failures are logged and skipped,
// never fail the call.
func LocalVersions(mcDir string) []MinecraftVersion {
	versionsDir := filepath.Join(mcDir, "versions")

	entries, err := os.ReadDir(versionsDir)
	if err != nil {
		return nil
	}

	var result []MinecraftVersion
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		name := entry.Name()
		path := filepath.Join(versionsDir, name, name+".json")

		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}

		var desc manifest.VersionDescriptor
		if err := json.Unmarshal(data, &desc); err != nil {
			log.Printf("catalog: skipping local version %q: malformed descriptor: %v", name, err)
			continue
		}

		result = append(result, MinecraftVersion{
			ID:          desc.ID,
			Type:        desc.Type,
			ReleaseTime: desc.ReleaseTime,
			IsLocal:     true,
			LocalPath:   filepath.Join(versionsDir, name),
		})
	}

	return result
}

// RemoteVersions fetches the (cached) upstream manifest and returns every
// entry, sorted by ReleaseTime descending with a semver tie-break.
func (c *Catalog) RemoteVersions(ctx context.Context) ([]MinecraftVersion, error) {
	m, err := c.manifest(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]MinecraftVersion, 0, len(m.Versions))
	for _, v := range m.Versions {
		result = append(result, MinecraftVersion{
			ID:          v.ID,
			Type:        v.Type,
			ReleaseTime: v.ReleaseTime,
			URL:         v.URL,
			IsLocal:     false,
		})
	}

	sortByReleaseTime(result)
	return result, nil
}

// AvailableVersions returns the union of local and remote versions: locals
// first in directory-scan order, then remotes whose id is not already
// local, in upstream order. A remote fetch failure degrades to locals-only
// rather than failing the call.
func (c *Catalog) AvailableVersions(ctx context.Context, mcDir string) []MinecraftVersion {
	locals := LocalVersions(mcDir)

	haveLocal := make(map[string]bool, len(locals))
	for _, v := range locals {
		haveLocal[v.ID] = true
	}

	m, err := c.manifest(ctx)
	if err != nil {
		log.Printf("catalog: remote manifest unavailable, showing local versions only: %v", err)
		return locals
	}

	result := make([]MinecraftVersion, 0, len(locals)+len(m.Versions))
	result = append(result, locals...)
	for _, v := range m.Versions {
		if haveLocal[v.ID] {
			continue
		}
		result = append(result, MinecraftVersion{
			ID:          v.ID,
			Type:        v.Type,
			ReleaseTime: v.ReleaseTime,
			URL:         v.URL,
			IsLocal:     false,
		})
	}

	return result
}

// FindRemote resolves a version id against the upstream manifest.
func (c *Catalog) FindRemote(ctx context.Context, versionID string) (*manifest.VersionEntry, error) {
	m, err := c.manifest(ctx)
	if err != nil {
		return nil, err
	}

	for i := range m.Versions {
		if m.Versions[i].ID == versionID {
			return &m.Versions[i], nil
		}
	}

	return nil, fmt.Errorf("version not found: %s", versionID)
}

// manifest returns the cached manifest if fresh, otherwise fetches and
// repopulates it. The cache is process-wide, keyed "main"; concurrent
// callers may race to populate it — duplicate fetches are acceptable and no
// per-key lock is held across the network call.
func (c *Catalog) manifest(ctx context.Context) (*manifest.VersionManifest, error) {
	if m := cachedManifest(); m != nil {
		return m, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mojangVersionManifestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating manifest request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching version manifest: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching version manifest: unexpected status %d", resp.StatusCode)
	}

	var m manifest.VersionManifest
	if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
		return nil, fmt.Errorf("decoding version manifest: %w", err)
	}

	setCachedManifest(&m)
	return &m, nil
}

func cachedManifest() *manifest.VersionManifest {
	cacheMu.Lock()
	defer cacheMu.Unlock()

	entry, ok := cache["main"]
	if !ok || time.Since(entry.fetchedAt) >= cacheTTL {
		return nil
	}
	return entry.manifest
}

func setCachedManifest(m *manifest.VersionManifest) {
	cacheMu.Lock()
	cache["main"] = cacheEntry{manifest: m, fetchedAt: time.Now()}
	cacheMu.Unlock()
}

func sortByReleaseTime(versions []MinecraftVersion) {
	sort.SliceStable(versions, func(i, j int) bool {
		a, b := versions[i], versions[j]
		if !a.ReleaseTime.Equal(b.ReleaseTime) {
			return a.ReleaseTime.After(b.ReleaseTime)
		}
		// Tie-break with semver when both ids parse as one; snapshot ids
		// like "24w14a" don't, and fall back to lexical order.
		av, aerr := semver.NewVersion(a.ID)
		bv, berr := semver.NewVersion(b.ID)
		if aerr == nil && berr == nil {
			return av.GreaterThan(bv)
		}
		return a.ID > b.ID
	})
}
