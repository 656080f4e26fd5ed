package engine

import "sync"

// Missing-file sentinels (spec.md §3).
const (
	MissingVersionJSON = "version.json"
	MissingAssetIndex  = "asset_index"
	MissingClientJar   = "client.jar"
)

// LaunchState is the engine's mutable, mutex-guarded diagnosis of what's
// missing before a launch can happen. It is reset on every Initialize and
// read by the caller between operations.
type LaunchState struct {
	mu sync.Mutex

	initialized bool
	canLaunch   bool

	missingFiles      *orderedSet
	missingLibraries  *orderedSet
	missingAssets     *orderedSet
	statusMessage     string
	lastErr           error
}

// LaunchStateSnapshot is an immutable copy of LaunchState for callers to
// inspect without holding the engine's lock.
type LaunchStateSnapshot struct {
	Initialized      bool
	CanLaunch        bool
	MissingFiles     []string
	MissingLibraries []string
	MissingAssets    []string
	StatusMessage    string
	LastError        error
}

// NeedsDownload reports whether any missing set is non-empty.
func (s LaunchStateSnapshot) NeedsDownload() bool {
	return len(s.MissingFiles) > 0 || len(s.MissingLibraries) > 0 || len(s.MissingAssets) > 0
}

func newLaunchState() *LaunchState {
	s := &LaunchState{}
	s.reset()
	return s
}

// reset clears the state back to its pre-Initialize shape. Must be called
// with mu held.
func (s *LaunchState) reset() {
	s.initialized = false
	s.canLaunch = false
	s.missingFiles = newOrderedSet()
	s.missingLibraries = newOrderedSet()
	s.missingAssets = newOrderedSet()
	s.statusMessage = ""
	s.lastErr = nil
}

func (s *LaunchState) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
}

func (s *LaunchState) AddMissingFile(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.missingFiles.add(name)
	s.recomputeCanLaunch()
}

func (s *LaunchState) RemoveMissingFile(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.missingFiles.remove(name)
	s.recomputeCanLaunch()
}

func (s *LaunchState) AddMissingLibrary(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.missingLibraries.add(path)
	s.recomputeCanLaunch()
}

func (s *LaunchState) RemoveMissingLibrary(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.missingLibraries.remove(path)
	s.recomputeCanLaunch()
}

func (s *LaunchState) AddMissingAsset(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.missingAssets.add(name)
	s.recomputeCanLaunch()
}

func (s *LaunchState) RemoveMissingAsset(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.missingAssets.remove(name)
	s.recomputeCanLaunch()
}

func (s *LaunchState) SetInitialized(initialized bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.initialized = initialized
	s.recomputeCanLaunch()
}

func (s *LaunchState) SetStatusMessage(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statusMessage = msg
}

func (s *LaunchState) SetLastError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = err
}

// recomputeCanLaunch enforces can_launch ⇔ initialized ∧ all missing sets
// empty. Must be called with mu held.
func (s *LaunchState) recomputeCanLaunch() {
	s.canLaunch = s.initialized &&
		s.missingFiles.len() == 0 &&
		s.missingLibraries.len() == 0 &&
		s.missingAssets.len() == 0
}

func (s *LaunchState) hasMissingFile(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.missingFiles.seen[name]
}

// Snapshot copies the current state out from under the lock.
func (s *LaunchState) Snapshot() LaunchStateSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return LaunchStateSnapshot{
		Initialized:      s.initialized,
		CanLaunch:        s.canLaunch,
		MissingFiles:     s.missingFiles.items(),
		MissingLibraries: s.missingLibraries.items(),
		MissingAssets:    s.missingAssets.items(),
		StatusMessage:    s.statusMessage,
		LastError:        s.lastErr,
	}
}

// orderedSet is an insertion-ordered set of strings: membership add/remove
// is idempotent, and iteration order matches first insertion.
type orderedSet struct {
	order []string
	seen  map[string]bool
}

func newOrderedSet() *orderedSet {
	return &orderedSet{seen: make(map[string]bool)}
}

func (o *orderedSet) add(item string) {
	if o.seen[item] {
		return
	}
	o.seen[item] = true
	o.order = append(o.order, item)
}

func (o *orderedSet) remove(item string) {
	if !o.seen[item] {
		return
	}
	delete(o.seen, item)
	for i, v := range o.order {
		if v == item {
			o.order = append(o.order[:i], o.order[i+1:]...)
			break
		}
	}
}

func (o *orderedSet) len() int {
	return len(o.order)
}

func (o *orderedSet) items() []string {
	if len(o.order) == 0 {
		return nil
	}
	out := make([]string, len(o.order))
	copy(out, o.order)
	return out
}
