package media

import "time"

// ArtifactKind classifies a temporary file created during a Job
type ArtifactKind string

const (
	ArtifactRawMedia ArtifactKind = "raw-media"
	ArtifactAudio    ArtifactKind = "audio"
)

// Artifact is a temporary file owned by a Job's namespace
type Artifact struct {
	Path      string
	Kind      ArtifactKind
	CreatedAt time.Time
}

// Namespace is the per-Job partition of the artifact store. It is owned by
// exactly one Job and needs no locking.
type Namespace interface {
	// Token returns the unique token that partitions file names
	Token() string

	// PathFor returns the path (or path prefix, for raw media) of an artifact kind
	PathFor(kind ArtifactKind) (string, error)

	// Adopt records a file discovered at runtime so ReleaseAll deletes it
	Adopt(path string, kind ArtifactKind) Artifact

	// Artifacts lists the adopted artifacts
	Artifacts() []Artifact

	// ReleaseAll deletes every artifact the namespace may own. It never fails.
	ReleaseAll()
}

// ArtifactStore hands out per-Job namespaces
type ArtifactStore interface {
	NewNamespace() Namespace
}
