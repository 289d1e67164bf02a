package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/maauso/concepto-video-api/internal/generator"
	"github.com/maauso/concepto-video-api/internal/job/id"
	"github.com/maauso/concepto-video-api/internal/storage"
)

// ErrArtifactNotStored is returned when a produced video could not be
// downloaded from the vendor or written to the primary store.
var ErrArtifactNotStored = errors.New("artifact not stored")

const videoContentType = "video/mp4"

// PrimaryKey is the storage key of the video served to the application.
func PrimaryKey(episodeID string, at time.Time, suffix string) string {
	return fmt.Sprintf("episodes/%s/av-script/videos/%s-%s.mp4", episodeID, strconv.FormatInt(at.UnixMilli(), 10), suffix)
}

// BackupKey is the storage key of the per-vendor backup copy.
func BackupKey(vendor generator.Vendor, episodeID string, at time.Time, suffix string) string {
	return fmt.Sprintf("concepto-app/AIbackups/videos/%s/%s-%s-%s.mp4", vendor, episodeID, strconv.FormatInt(at.UnixMilli(), 10), suffix)
}

// Artifact holds the URLs of a stored video.
type Artifact struct {
	VideoURL  string
	BackupURL string // Empty when the backup upload failed
}

// Materializer turns a vendor result into stored artifacts.
// Downloads are staged in a temp file so each upload gets a seekable reader.
type Materializer struct {
	store  storage.Storage
	logger *slog.Logger
	now    func() time.Time
	suffix func() string
}

// NewMaterializer creates a Materializer that writes to store.
func NewMaterializer(store storage.Storage, logger *slog.Logger) *Materializer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Materializer{
		store:  store,
		logger: logger,
		now:    time.Now,
		suffix: id.Suffix,
	}
}

// WithKeySource replaces the clock and random suffix used for keys.
func (m *Materializer) WithKeySource(now func() time.Time, suffix func() string) *Materializer {
	if now != nil {
		m.now = now
	}
	if suffix != nil {
		m.suffix = suffix
	}
	return m
}

// Fetch downloads the produced video into a temp file and returns its path.
func (m *Materializer) Fetch(ctx context.Context, gen generator.Generator, result generator.PollResult) (string, error) {
	body, err := gen.DownloadOutput(ctx, result)
	if err != nil {
		return "", fmt.Errorf("%w: download: %w", ErrArtifactNotStored, err)
	}
	defer body.Close()

	staged, err := m.store.SaveTemp(ctx, "result", body)
	if err != nil {
		return "", fmt.Errorf("%w: stage download: %w", ErrArtifactNotStored, err)
	}
	return staged, nil
}

// Store uploads the staged video to its primary key, then makes a
// best-effort backup copy. A backup failure is logged and never returned.
func (m *Materializer) Store(ctx context.Context, staged string, vendor generator.Vendor, episodeID string) (*Artifact, error) {
	at := m.now()

	primaryKey := PrimaryKey(episodeID, at, m.suffix())
	videoURL, err := m.upload(ctx, staged, primaryKey)
	if err != nil {
		return nil, fmt.Errorf("%w: upload %s: %w", ErrArtifactNotStored, primaryKey, err)
	}

	m.logger.Info("video stored",
		slog.String("key", primaryKey),
		slog.String("url", videoURL),
	)

	art := &Artifact{VideoURL: videoURL}

	backupKey := BackupKey(vendor, episodeID, at, m.suffix())
	backupURL, err := m.upload(ctx, staged, backupKey)
	if err != nil {
		m.logger.Warn("backup upload failed",
			slog.String("key", backupKey),
			slog.String("vendor", string(vendor)),
			slog.String("error", err.Error()),
		)
		return art, nil
	}
	art.BackupURL = backupURL
	return art, nil
}

// Release removes the staged file.
func (m *Materializer) Release(ctx context.Context, staged string) {
	if staged == "" {
		return
	}
	if err := m.store.CleanupTemp(context.WithoutCancel(ctx), []string{staged}); err != nil {
		m.logger.Warn("failed to remove staged video",
			slog.String("path", staged),
			slog.String("error", err.Error()),
		)
	}
}

func (m *Materializer) upload(ctx context.Context, staged, key string) (string, error) {
	rc, err := m.store.LoadTemp(ctx, staged)
	if err != nil {
		return "", err
	}
	defer rc.Close()

	return m.store.Upload(ctx, key, videoContentType, rc)
}
