// Package service sequences the publishing transaction for one release.
package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"playship/internal/progress"
	"playship/internal/publisher"

	"go.uber.org/zap"
)

// EditClient is the slice of the publishing client the release flow needs.
type EditClient interface {
	CreateEdit(ctx context.Context) (*publisher.Edit, error)
	UploadBundle(ctx context.Context, editID string, r io.Reader, size int64, reporter progress.Reporter) error
	UpdateTrack(ctx context.Context, editID, versionCode string) error
	CommitEdit(ctx context.Context, editID string) (*publisher.Edit, error)
}

// ReleaseService drives the four-step edit transaction in strict order,
// aborting on the first failure. There is no rollback: a failure after the
// edit is opened leaves it open server-side.
type ReleaseService struct {
	client EditClient
	log    *zap.Logger
}

func NewReleaseService(client EditClient, log *zap.Logger) *ReleaseService {
	if log == nil {
		log = zap.NewNop()
	}
	return &ReleaseService{client: client, log: log}
}

// Publish uploads the bundle at bundlePath and releases versionCode to the
// internal track as a draft. It returns the committed edit.
func (s *ReleaseService) Publish(ctx context.Context, bundlePath, versionCode string, reporter progress.Reporter) (*publisher.Edit, error) {
	bundle, err := os.Open(bundlePath)
	if err != nil {
		return nil, fmt.Errorf("open bundle: %w", err)
	}
	defer func() { _ = bundle.Close() }()

	info, err := bundle.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat bundle: %w", err)
	}

	started := time.Now()
	edit, err := s.client.CreateEdit(ctx)
	if err != nil {
		return nil, fmt.Errorf("create edit: %w", err)
	}
	s.log.Info("edit opened",
		zap.String("edit_id", edit.ID),
		zap.String("edit_expiry_seconds", edit.ExpiryTimeSeconds),
	)

	if err := s.client.UploadBundle(ctx, edit.ID, bundle, info.Size(), reporter); err != nil {
		s.warnEditLeftOpen(edit.ID)
		return nil, fmt.Errorf("upload bundle: %w", err)
	}
	s.log.Info("bundle uploaded",
		zap.String("edit_id", edit.ID),
		zap.Int64("bytes", info.Size()),
		zap.Duration("elapsed", time.Since(started)),
	)

	if err := s.client.UpdateTrack(ctx, edit.ID, versionCode); err != nil {
		s.warnEditLeftOpen(edit.ID)
		return nil, fmt.Errorf("update track: %w", err)
	}
	s.log.Info("track updated",
		zap.String("edit_id", edit.ID),
		zap.String("version_code", versionCode),
	)

	committed, err := s.client.CommitEdit(ctx, edit.ID)
	if err != nil {
		s.warnEditLeftOpen(edit.ID)
		return nil, fmt.Errorf("commit edit: %w", err)
	}
	s.log.Info("edit committed",
		zap.String("edit_id", committed.ID),
		zap.Duration("elapsed", time.Since(started)),
	)
	return committed, nil
}

func (s *ReleaseService) warnEditLeftOpen(editID string) {
	s.log.Warn("edit left open and uncommitted on the server", zap.String("edit_id", editID))
}
