// Package engine implements the bootstrap state machine: initialize (diff
// local files against the version manifest graph), download (fetch
// everything missing with bounded parallelism), and launch (spawn the
// configured Java child process). See spec.md §4.6.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/sammwyy/minilaunch/internal/catalog"
	"github.com/sammwyy/minilaunch/internal/config"
	"github.com/sammwyy/minilaunch/internal/fetch"
	"github.com/sammwyy/minilaunch/internal/launchcmd"
	"github.com/sammwyy/minilaunch/internal/layout"
	"github.com/sammwyy/minilaunch/internal/manifest"
	"github.com/sammwyy/minilaunch/internal/rules"
)

const defaultWorkerCount = 8

// defaultLibrariesEndpoint is the upstream host used when a library
// artifact's URL is not an absolute http(s) URL; defaultResourcesEndpoint is
// the host every asset object is fetched from. They're vars rather than
// consts so tests can point them at a local server.
var (
	defaultLibrariesEndpoint = "https://libraries.minecraft.net"
	defaultResourcesEndpoint = "https://resources.download.minecraft.net"
)

// Engine owns the LaunchState, the HTTP fetcher, and the worker pool for a
// single installation. It lends DownloadState references back to callers
// for observation but never shares LaunchState directly.
type Engine struct {
	cfg         *config.LaunchConfig
	paths       layout.Paths
	fetcher     *fetch.Fetcher
	catalog     *catalog.Catalog
	workerCount int

	state *LaunchState

	objMu      sync.Mutex
	descriptor *manifest.VersionDescriptor
	assetIndex *manifest.AssetIndex

	closeOnce sync.Once
}

// New validates cfg and constructs an Engine. Fails with ErrInvalidConfig on
// an empty username or missing mcDir.
func New(cfg *config.LaunchConfig) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, newError(ErrInvalidConfig, err)
	}

	return &Engine{
		cfg:         cfg,
		paths:       layout.NewPaths(cfg.McDir),
		fetcher:     fetch.New(),
		catalog:     catalog.New(),
		workerCount: defaultWorkerCount,
		state:       newLaunchState(),
	}, nil
}

// State returns a snapshot of the current LaunchState.
func (e *Engine) State() LaunchStateSnapshot {
	return e.state.Snapshot()
}

// Close shuts down the fetcher's idle connections. Idempotent.
func (e *Engine) Close() {
	e.closeOnce.Do(func() {
		e.fetcher.CloseIdleConnections()
	})
}

// Initialize resets LaunchState, provisions directories, loads whatever
// local descriptor/asset index exist, and diffs them against disk. It never
// returns with initialized=true on error.
func (e *Engine) Initialize(ctx context.Context) error {
	e.state.Reset()
	e.setDescriptor(nil)
	e.setAssetIndex(nil)

	if err := e.paths.EnsureDirectories(); err != nil {
		bErr := newError(ErrIoFailure, err)
		e.state.SetLastError(bErr)
		return bErr
	}

	if fetch.Exists(e.cfg.VersionJSONPath) {
		desc, err := loadDescriptor(e.cfg.VersionJSONPath)
		if err != nil {
			bErr := newError(ErrParseFailure, err)
			e.state.SetLastError(bErr)
			return bErr
		}
		e.setDescriptor(desc)
	} else {
		e.state.AddMissingFile(MissingVersionJSON)
	}

	if !fetch.Exists(e.cfg.VersionJarPath) {
		e.state.AddMissingFile(MissingClientJar)
	}

	desc := e.getDescriptor()
	if desc == nil {
		e.state.AddMissingFile(MissingAssetIndex)
	} else {
		assetIndexPath := e.paths.AssetIndexPath(desc.AssetIndex.ID)
		if fetch.Exists(assetIndexPath) {
			idx, err := loadAssetIndex(assetIndexPath)
			if err != nil {
				bErr := newError(ErrParseFailure, err)
				e.state.SetLastError(bErr)
				return bErr
			}
			e.setAssetIndex(idx)
		} else {
			e.state.AddMissingFile(MissingAssetIndex)
		}
	}

	e.diffLibraries()
	e.diffAssets()

	e.state.SetInitialized(true)
	snap := e.state.Snapshot()
	if snap.NeedsDownload() {
		e.state.SetStatusMessage(fmt.Sprintf(
			"missing %d file(s), %d librar(ies), %d asset(s)",
			len(snap.MissingFiles), len(snap.MissingLibraries), len(snap.MissingAssets)))
	} else {
		e.state.SetStatusMessage("ready to launch")
	}

	return nil
}

// diffLibraries adds any admitted library (or its native artifact) whose
// local file is absent to missingLibraries. Idempotent: already-missing
// entries aren't duplicated, and present libraries are left alone (removal
// is handled by the download phase).
func (e *Engine) diffLibraries() {
	desc := e.getDescriptor()
	if desc == nil {
		return
	}

	for _, lib := range desc.Libraries {
		if !rules.Admitted(lib.Rules) {
			continue
		}

		if lib.Downloads != nil && lib.Downloads.Artifact != nil {
			path := e.paths.LibraryPath(lib.Downloads.Artifact.Path)
			if !fetch.Exists(path) {
				e.state.AddMissingLibrary(lib.Downloads.Artifact.Path)
			}
		}

		if artifact, ok := rules.NativeArtifact(lib); ok {
			path := e.paths.LibraryPath(artifact.Path)
			if !fetch.Exists(path) {
				e.state.AddMissingLibrary(artifact.Path)
			}
		}
	}
}

// diffAssets adds any asset index entry whose object file is absent to
// missingAssets.
func (e *Engine) diffAssets() {
	idx := e.getAssetIndex()
	if idx == nil {
		return
	}

	for name, obj := range idx.Objects {
		path := e.paths.AssetObjectPath(obj.Hash)
		if !fetch.Exists(path) {
			e.state.AddMissingAsset(name)
		}
	}
}

// Download starts a session on the engine's worker pool and returns
// immediately with a live DownloadState. Precondition: Initialize must have
// succeeded.
func (e *Engine) Download(ctx context.Context) (*DownloadState, error) {
	if !e.state.Snapshot().Initialized {
		return nil, newError(ErrPreconditionNotMet, fmt.Errorf("download called before a successful initialize"))
	}

	sessionCtx, cancel := context.WithCancel(ctx)
	ds := newDownloadState(cancel)

	go e.runSession(sessionCtx, ds)

	return ds, nil
}

func (e *Engine) runSession(ctx context.Context, ds *DownloadState) {
	ds.setStatus(StatusDownloading)
	ds.setTotal(int64(e.totalMissingCount()))

	if err := e.runSequentialPhases(ctx, ds); err != nil {
		ds.setStatus(StatusFailed)
		ds.fireError(err)
		e.state.SetLastError(err)
		return
	}

	if ctx.Err() != nil {
		ds.setStatus(StatusCancelled)
		return
	}

	// The descriptor/asset index may have just been loaded above: recompute
	// the missing library/asset sets and fold the newly discovered work
	// into the running total before the parallel phases start.
	e.diffLibraries()
	e.diffAssets()
	ds.setTotal(ds.CompletedFiles() + int64(e.totalMissingCount()))

	e.runParallelPhases(ctx, ds)

	if ctx.Err() != nil {
		ds.setStatus(StatusCancelled)
		return
	}

	ds.setStatus(StatusCompleted)

	if err := e.Initialize(context.Background()); err != nil {
		e.state.SetLastError(err)
	}
}

func (e *Engine) totalMissingCount() int {
	snap := e.state.Snapshot()
	return len(snap.MissingFiles) + len(snap.MissingLibraries) + len(snap.MissingAssets)
}

// runSequentialPhases fetches the version descriptor, asset index, and
// client jar in order, since each later step depends on the previous one's
// output (spec.md §5).
func (e *Engine) runSequentialPhases(ctx context.Context, ds *DownloadState) error {
	if e.state.hasMissingFile(MissingVersionJSON) {
		entry, err := e.catalog.FindRemote(ctx, e.cfg.VersionID)
		if err != nil {
			return newError(ErrVersionNotFound, err)
		}

		if err := e.fetcher.DownloadTo(ctx, entry.URL, e.cfg.VersionJSONPath); err != nil {
			return newError(ErrNetworkFailure, err)
		}

		desc, err := loadDescriptor(e.cfg.VersionJSONPath)
		if err != nil {
			return newError(ErrParseFailure, err)
		}
		e.setDescriptor(desc)
		e.state.RemoveMissingFile(MissingVersionJSON)
		recordBytes(ds, e.cfg.VersionJSONPath)
		ds.incrementCompleted(e.cfg.VersionJSONPath)
	}

	desc := e.getDescriptor()

	if e.state.hasMissingFile(MissingAssetIndex) && desc != nil {
		target := e.paths.AssetIndexPath(desc.AssetIndex.ID)
		if err := e.fetcher.DownloadTo(ctx, desc.AssetIndex.URL, target); err != nil {
			return newError(ErrNetworkFailure, err)
		}

		idx, err := loadAssetIndex(target)
		if err != nil {
			return newError(ErrParseFailure, err)
		}
		e.setAssetIndex(idx)
		e.state.RemoveMissingFile(MissingAssetIndex)
		recordBytes(ds, target)
		ds.incrementCompleted(target)
	}

	if e.state.hasMissingFile(MissingClientJar) && desc != nil {
		if desc.Downloads.Client == nil {
			return newError(ErrParseFailure, fmt.Errorf("version descriptor %s has no client download", desc.ID))
		}
		if err := e.fetcher.DownloadTo(ctx, desc.Downloads.Client.URL, e.cfg.VersionJarPath); err != nil {
			return newError(ErrNetworkFailure, err)
		}
		e.state.RemoveMissingFile(MissingClientJar)
		recordBytes(ds, e.cfg.VersionJarPath)
		ds.incrementCompleted(e.cfg.VersionJarPath)
	}

	return nil
}

// recordBytes folds a freshly downloaded file's size into the session's
// running byte total. Best-effort: a stat failure here doesn't fail the
// download itself, since the file was already verified present.
func recordBytes(ds *DownloadState, path string) {
	if info, err := os.Stat(path); err == nil {
		ds.addBytes(info.Size())
	}
}

type downloadJob struct {
	url        string
	target     string
	isLibrary  bool
	identifier string
}

// runParallelPhases downloads every currently-missing library and asset on
// a fixed pool of workers, mirroring the teacher's work-channel pattern.
// Per-item failures only advance failedFiles; they never abort the
// session (spec.md §4.6, §7).
func (e *Engine) runParallelPhases(ctx context.Context, ds *DownloadState) {
	jobs := e.buildParallelJobs()
	if len(jobs) == 0 {
		return
	}

	workChan := make(chan downloadJob, len(jobs))
	for _, job := range jobs {
		workChan <- job
	}
	close(workChan)

	var wg sync.WaitGroup
	for i := 0; i < e.workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range workChan {
				select {
				case <-ctx.Done():
					continue
				default:
				}

				if err := e.fetcher.DownloadTo(ctx, job.url, job.target); err != nil {
					log.Printf("engine: fetching %s: %v", job.url, err)
					ds.incrementFailed(job.identifier)
					continue
				}

				if job.isLibrary {
					e.state.RemoveMissingLibrary(job.identifier)
				} else {
					e.state.RemoveMissingAsset(job.identifier)
				}
				recordBytes(ds, job.target)
				ds.incrementCompleted(job.identifier)
			}
		}()
	}

	wg.Wait()
}

func (e *Engine) buildParallelJobs() []downloadJob {
	var jobs []downloadJob

	desc := e.getDescriptor()
	if desc != nil {
		artifacts := make(map[string]manifest.Artifact)
		for _, lib := range desc.Libraries {
			if !rules.Admitted(lib.Rules) {
				continue
			}
			if lib.Downloads != nil && lib.Downloads.Artifact != nil {
				artifacts[lib.Downloads.Artifact.Path] = *lib.Downloads.Artifact
			}
			if artifact, ok := rules.NativeArtifact(lib); ok {
				artifacts[artifact.Path] = *artifact
			}
		}

		for _, path := range e.state.Snapshot().MissingLibraries {
			artifact, ok := artifacts[path]
			if !ok {
				continue
			}
			url := artifact.URL
			if !isAbsoluteURL(url) {
				url = defaultLibrariesEndpoint + "/" + artifact.Path
			}
			jobs = append(jobs, downloadJob{
				url:        url,
				target:     e.paths.LibraryPath(path),
				isLibrary:  true,
				identifier: path,
			})
		}
	}

	idx := e.getAssetIndex()
	if idx != nil {
		for _, name := range e.state.Snapshot().MissingAssets {
			obj, ok := idx.Objects[name]
			if !ok {
				continue
			}
			hash := obj.Hash
			prefix := hash
			if len(hash) >= 2 {
				prefix = hash[:2]
			}
			jobs = append(jobs, downloadJob{
				url:        fmt.Sprintf("%s/%s/%s", defaultResourcesEndpoint, prefix, hash),
				target:     e.paths.AssetObjectPath(hash),
				isLibrary:  false,
				identifier: name,
			})
		}
	}

	return jobs
}

// Launch builds the argv and spawns the Java child process. Precondition:
// CanLaunch must be true.
func (e *Engine) Launch(ctx context.Context) (*exec.Cmd, error) {
	snap := e.state.Snapshot()
	if !snap.CanLaunch {
		return nil, newError(ErrPreconditionNotMet, fmt.Errorf("cannot launch: installation is incomplete"))
	}

	desc := e.getDescriptor()
	if desc == nil {
		return nil, newError(ErrPreconditionNotMet, fmt.Errorf("cannot launch: no version descriptor loaded"))
	}

	args, err := launchcmd.Build(e.cfg, desc)
	if err != nil {
		return nil, newError(ErrIoFailure, err)
	}

	cmd := exec.CommandContext(ctx, "java", args...)
	cmd.Dir = e.cfg.McDir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return nil, newError(ErrIoFailure, err)
	}

	return cmd, nil
}

func (e *Engine) setDescriptor(d *manifest.VersionDescriptor) {
	e.objMu.Lock()
	e.descriptor = d
	e.objMu.Unlock()
}

func (e *Engine) getDescriptor() *manifest.VersionDescriptor {
	e.objMu.Lock()
	defer e.objMu.Unlock()
	return e.descriptor
}

func (e *Engine) setAssetIndex(idx *manifest.AssetIndex) {
	e.objMu.Lock()
	e.assetIndex = idx
	e.objMu.Unlock()
}

func (e *Engine) getAssetIndex() *manifest.AssetIndex {
	e.objMu.Lock()
	defer e.objMu.Unlock()
	return e.assetIndex
}

func isAbsoluteURL(url string) bool {
	return strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://")
}

func loadDescriptor(path string) (*manifest.VersionDescriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading version descriptor: %w", err)
	}
	var desc manifest.VersionDescriptor
	if err := json.Unmarshal(data, &desc); err != nil {
		return nil, fmt.Errorf("parsing version descriptor: %w", err)
	}
	return &desc, nil
}

func loadAssetIndex(path string) (*manifest.AssetIndex, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading asset index: %w", err)
	}
	var idx manifest.AssetIndex
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("parsing asset index: %w", err)
	}
	return &idx, nil
}
