package batch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"fiado-ledger/internal/domain/backup"
)

// BackupSnapshotJob writes a dated JSON export of the whole ledger to a
// local directory. It runs on a cron schedule and exists so the ledger
// survives a lost database the same way a downloaded backup file would.
type BackupSnapshotJob struct {
	backupService backup.BackupService
	outputDir     string
	logger        *slog.Logger
}

func NewBackupSnapshotJob(backupSvc backup.BackupService, outputDir string, logger *slog.Logger) *BackupSnapshotJob {
	if backupSvc == nil || logger == nil {
		panic("BackupSnapshotJob dependencies cannot be nil")
	}
	if outputDir == "" {
		outputDir = "backups"
	}
	return &BackupSnapshotJob{
		backupService: backupSvc,
		outputDir:     outputDir,
		logger:        logger.With("job", "BackupSnapshot"),
	}
}

func (j *BackupSnapshotJob) Run(ctx context.Context) error {
	startTime := time.Now()
	j.logger.InfoContext(ctx, "Starting scheduled ledger backup job.")

	data, err := j.backupService.Export(ctx)
	if err != nil {
		j.logger.ErrorContext(ctx, "Failed to export ledger, aborting job.", slog.Any("error", err))
		return fmt.Errorf("cannot run job, export failed: %w", err)
	}

	if err := os.MkdirAll(j.outputDir, 0o755); err != nil {
		j.logger.ErrorContext(ctx, "Failed to create backup directory.", slog.String("dir", j.outputDir), slog.Any("error", err))
		return fmt.Errorf("cannot create backup directory %s: %w", j.outputDir, err)
	}

	path := filepath.Join(j.outputDir, backup.ExportFilename(time.Now()))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		j.logger.ErrorContext(ctx, "Failed to write backup file.", slog.String("path", path), slog.Any("error", err))
		return fmt.Errorf("cannot write backup file %s: %w", path, err)
	}

	j.logger.InfoContext(ctx, "Ledger backup job finished successfully.",
		slog.String("path", path),
		slog.Int("bytes", len(data)),
		slog.Duration("duration", time.Since(startTime)),
	)
	return nil
}
