package distribution

// PruneResult contains information about transcripts deleted during pruning
type PruneResult struct {
	DeletedFiles []DeletedFile
	FreedBytes   int64
}

// DeletedFile represents a file that was deleted
type DeletedFile struct {
	Name string
	Size int64
}
