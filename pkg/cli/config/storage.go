package config

import (
	"context"
	"io"
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/studypal/pkg/domain/interfaces"
	"github.com/secmon-lab/studypal/pkg/service/storage"
	"github.com/secmon-lab/studypal/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// Storage holds CLI flags for the storage of uploaded note files
type Storage struct {
	backend   string
	dir       string
	gcsBucket string
	gcsPrefix string
}

func (s *Storage) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "storage-backend",
			Usage:       "File storage backend (local or gcs)",
			Value:       "local",
			Category:    "Storage",
			Sources:     cli.EnvVars("STUDYPAL_STORAGE_BACKEND"),
			Destination: &s.backend,
		},
		&cli.StringFlag{
			Name:        "storage-dir",
			Usage:       "Directory of uploaded files for the local backend",
			Value:       "./data/uploads",
			Category:    "Storage",
			Sources:     cli.EnvVars("STUDYPAL_STORAGE_DIR"),
			Destination: &s.dir,
		},
		&cli.StringFlag{
			Name:        "gcs-bucket",
			Usage:       "Cloud Storage bucket for the gcs backend",
			Category:    "Storage",
			Sources:     cli.EnvVars("STUDYPAL_GCS_BUCKET"),
			Destination: &s.gcsBucket,
		},
		&cli.StringFlag{
			Name:        "gcs-prefix",
			Usage:       "Object name prefix in the Cloud Storage bucket",
			Category:    "Storage",
			Sources:     cli.EnvVars("STUDYPAL_GCS_PREFIX"),
			Destination: &s.gcsPrefix,
		},
	}
}

func (s Storage) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("backend", s.backend),
		slog.String("dir", s.dir),
		slog.String("gcs_bucket", s.gcsBucket),
		slog.String("gcs_prefix", s.gcsPrefix),
	)
}

// Configure returns the file storage and a closer for its client
func (s *Storage) Configure(ctx context.Context) (interfaces.FileStorage, func(), error) {
	switch s.backend {
	case "", "local":
		fs, err := storage.NewLocal(s.dir)
		if err != nil {
			return nil, nil, goerr.Wrap(err, "failed to initialize local storage", goerr.V("dir", s.dir))
		}
		logging.Default().Info("Using local file storage", "dir", s.dir)
		return fs, func() {}, nil

	case "gcs":
		if s.gcsBucket == "" {
			return nil, nil, goerr.Wrap(ErrMissingRequired, "gcs-bucket is required when using gcs backend",
				goerr.V(FlagKey, "gcs-bucket"))
		}
		fs, err := storage.NewGCS(ctx, s.gcsBucket, s.gcsPrefix)
		if err != nil {
			return nil, nil, goerr.Wrap(err, "failed to initialize gcs storage", goerr.V("bucket", s.gcsBucket))
		}
		logging.Default().Info("Using Cloud Storage", "bucket", s.gcsBucket, "prefix", s.gcsPrefix)
		return fs, closeWithLog(fs), nil

	default:
		return nil, nil, goerr.Wrap(ErrInvalidConfig, "invalid storage backend", goerr.V(BackendKey, s.backend))
	}
}

func closeWithLog(c io.Closer) func() {
	return func() {
		if err := c.Close(); err != nil {
			logging.Default().Error("failed to close storage client", "error", err.Error())
		}
	}
}
