package artifact

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"clipscribe/domain/media"

	"github.com/google/uuid"
)

// File name prefixes for each artifact kind
const (
	rawMediaPrefix = "video_"
	audioPrefix    = "audio_"
)

// KnownExtensions is the finite set of extensions the downloader and the
// transcoder may choose. ReleaseAll tries every prefix/extension combination,
// so an artifact whose extension is outside this set is only removed when it
// was adopted.
var KnownExtensions = []string{
	"",
	".mp4", ".webm", ".mkv", ".mov",
	".mp3", ".m4a", ".aac", ".opus", ".ogg", ".wav",
}

// PartialSuffixes are appended by the downloader to files still in progress
var PartialSuffixes = []string{".part", ".ytdl"}

// IntermediateInfixes go between the name and the extension of files the
// downloader's post-processors write before renaming, e.g. video_x.temp.mp3
var IntermediateInfixes = []string{".temp"}

// Store implements media.ArtifactStore on a local directory
type Store struct {
	dir      string
	logger   *log.Logger
	newToken func() string
	remove   func(string) error
}

// StoreOption is a functional option for configuring Store
type StoreOption func(*Store)

// WithLogger sets the logger that receives cleanup failures
func WithLogger(logger *log.Logger) StoreOption {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithTokenSource sets a custom namespace token generator (for testing)
func WithTokenSource(fn func() string) StoreOption {
	return func(s *Store) {
		s.newToken = fn
	}
}

// WithRemove sets a custom file removal function (for testing)
func WithRemove(fn func(string) error) StoreOption {
	return func(s *Store) {
		s.remove = fn
	}
}

// NewStore creates a store rooted at dir. The directory is created on first use.
func NewStore(dir string, opts ...StoreOption) *Store {
	s := &Store{
		dir:      dir,
		logger:   log.New(io.Discard, "", 0),
		newToken: func() string { return uuid.NewString() },
		remove:   os.Remove,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Dir returns the root directory of the store
func (s *Store) Dir() string {
	return s.dir
}

// NewNamespace implements media.ArtifactStore. It performs no I/O.
func (s *Store) NewNamespace() media.Namespace {
	return &namespace{
		store: s,
		token: s.newToken(),
	}
}

// SweepStale removes artifacts older than retention, left behind by a process
// that died mid-Job. It returns the number of files removed.
func (s *Store) SweepStale(retention time.Duration) (int, error) {
	var files []string
	for _, prefix := range []string{rawMediaPrefix, audioPrefix} {
		matches, err := filepath.Glob(filepath.Join(s.dir, prefix+"*"))
		if err != nil {
			return 0, fmt.Errorf("failed to list artifacts: %w", err)
		}
		files = append(files, matches...)
	}

	cutoff := time.Now().Add(-retention)
	removed := 0
	for _, f := range files {
		info, err := os.Stat(f)
		if err != nil || info.IsDir() || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := s.remove(f); err != nil {
			s.logger.Printf("failed to remove stale artifact %s: %v", f, err)
			continue
		}
		removed++
	}

	if removed > 0 {
		s.logger.Printf("removed %d stale artifacts from %s", removed, s.dir)
	}
	return removed, nil
}

// namespace is the per-Job partition of a Store
type namespace struct {
	store   *Store
	token   string
	adopted []media.Artifact
}

func (n *namespace) Token() string {
	return n.token
}

// PathFor returns the raw-media path prefix or the canonical audio path
func (n *namespace) PathFor(kind media.ArtifactKind) (string, error) {
	if err := os.MkdirAll(n.store.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create temp directory %s: %w", n.store.dir, err)
	}

	switch kind {
	case media.ArtifactRawMedia:
		return filepath.Join(n.store.dir, rawMediaPrefix+n.token), nil
	case media.ArtifactAudio:
		return filepath.Join(n.store.dir, audioPrefix+n.token+media.CanonicalAudioExt), nil
	default:
		return "", fmt.Errorf("unknown artifact kind %q", kind)
	}
}

func (n *namespace) Adopt(path string, kind media.ArtifactKind) media.Artifact {
	a := media.Artifact{
		Path:      path,
		Kind:      kind,
		CreatedAt: time.Now(),
	}
	n.adopted = append(n.adopted, a)
	return a
}

func (n *namespace) Artifacts() []media.Artifact {
	return append([]media.Artifact(nil), n.adopted...)
}

// ReleaseAll deletes adopted artifacts and every known prefix/extension
// combination, including partial and intermediate variants. Missing files are ignored; other failures are logged.
func (n *namespace) ReleaseAll() {
	perPrefix := len(KnownExtensions) * (1 + len(PartialSuffixes) + len(IntermediateInfixes))
	candidates := make([]string, 0, len(n.adopted)+2*perPrefix)
	for _, a := range n.adopted {
		candidates = append(candidates, a.Path)
	}
	for _, prefix := range []string{rawMediaPrefix, audioPrefix} {
		base := filepath.Join(n.store.dir, prefix+n.token)
		for _, ext := range KnownExtensions {
			candidates = append(candidates, base+ext)
			for _, suffix := range PartialSuffixes {
				candidates = append(candidates, base+ext+suffix)
			}
			if ext == "" {
				continue
			}
			for _, infix := range IntermediateInfixes {
				candidates = append(candidates, base+infix+ext)
			}
		}
	}

	seen := make(map[string]bool, len(candidates))
	for _, path := range candidates {
		if seen[path] {
			continue
		}
		seen[path] = true

		if err := n.store.remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			n.store.logger.Printf("failed to remove artifact %s: %v", path, err)
		}
	}
	n.adopted = nil
}

// Ensure Store implements media.ArtifactStore
var _ media.ArtifactStore = (*Store)(nil)
