package distribution

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"clipscribe/domain/distribution"
)

// transcriptPrefix marks files in the Drive folder that were published by this tool
const transcriptPrefix = "transcript"

// CleanupService prunes old transcripts from the Drive folder
type CleanupService struct {
	driveClient distribution.DriveClient
	folderID    string
}

// NewCleanupService creates a new cleanup service
func NewCleanupService(client distribution.DriveClient, folderID string) *CleanupService {
	return &CleanupService{
		driveClient: client,
		folderID:    folderID,
	}
}

// KeepNewest deletes the oldest published transcripts until at most keep remain.
// keep <= 0 disables pruning. Files not named like transcripts are never touched.
func (s *CleanupService) KeepNewest(ctx context.Context, keep int) (*distribution.PruneResult, error) {
	result := &distribution.PruneResult{}
	if keep <= 0 {
		return result, nil
	}

	files, err := s.ListTranscripts(ctx)
	if err != nil {
		return result, err
	}

	for len(files) > keep {
		oldest := files[0]
		if err := s.driveClient.DeletePermanently(ctx, oldest.ID); err != nil {
			return result, fmt.Errorf("failed to delete %s: %w", oldest.Name, err)
		}

		result.DeletedFiles = append(result.DeletedFiles, distribution.DeletedFile{
			Name: oldest.Name,
			Size: oldest.Size,
		})
		result.FreedBytes += oldest.Size
		files = files[1:]
	}

	return result, nil
}

// ListTranscripts lists published transcripts, oldest first
func (s *CleanupService) ListTranscripts(ctx context.Context) ([]distribution.FileInfo, error) {
	files, err := s.driveClient.ListFiles(ctx, s.folderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}

	var transcripts []distribution.FileInfo
	for _, f := range files {
		if strings.HasPrefix(f.Name, transcriptPrefix) {
			transcripts = append(transcripts, f)
		}
	}

	sort.SliceStable(transcripts, func(i, j int) bool {
		return transcripts[i].CreatedTime.Before(transcripts[j].CreatedTime)
	})
	return transcripts, nil
}
