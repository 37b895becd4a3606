package config_test

import (
	"path/filepath"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/studypal/pkg/cli/config"
	"github.com/secmon-lab/studypal/pkg/utils/logging"
)

func TestLogger_Configure(t *testing.T) {
	orig := logging.Default()
	t.Cleanup(func() { logging.SetDefault(orig) })

	t.Run("writes json logs to a file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "app.log")
		closer, err := config.NewLoggerForTest("debug", "json", path).Configure()
		gt.NoError(t, err).Required()
		logging.Default().Info("hello")
		closer()
	})

	t.Run("rejects unknown level", func(t *testing.T) {
		_, err := config.NewLoggerForTest("verbose", "console", "stdout").Configure()
		gt.Error(t, err).Is(config.ErrInvalidConfig)
	})

	t.Run("rejects unknown format", func(t *testing.T) {
		_, err := config.NewLoggerForTest("info", "xml", "stdout").Configure()
		gt.Error(t, err).Is(config.ErrInvalidConfig)
	})
}

func TestRepository_Configure(t *testing.T) {
	t.Run("memory backend", func(t *testing.T) {
		repo, err := config.NewRepositoryForTest("memory", "").Configure(t.Context())
		gt.NoError(t, err).Required()
		gt.Value(t, repo).NotNil()
		gt.NoError(t, repo.Close())
	})

	t.Run("firestore requires project", func(t *testing.T) {
		_, err := config.NewRepositoryForTest("firestore", "").Configure(t.Context())
		gt.Error(t, err).Is(config.ErrMissingRequired)
	})

	t.Run("unknown backend", func(t *testing.T) {
		_, err := config.NewRepositoryForTest("mysql", "").Configure(t.Context())
		gt.Error(t, err).Is(config.ErrInvalidConfig)
	})
}

func TestStorage_Configure(t *testing.T) {
	t.Run("local backend", func(t *testing.T) {
		fs, closer, err := config.NewStorageForTest("local", t.TempDir(), "").Configure(t.Context())
		gt.NoError(t, err).Required()
		gt.Value(t, fs).NotNil()
		closer()
	})

	t.Run("gcs requires bucket", func(t *testing.T) {
		_, _, err := config.NewStorageForTest("gcs", "", "").Configure(t.Context())
		gt.Error(t, err).Is(config.ErrMissingRequired)
	})

	t.Run("unknown backend", func(t *testing.T) {
		_, _, err := config.NewStorageForTest("s3", "", "").Configure(t.Context())
		gt.Error(t, err).Is(config.ErrInvalidConfig)
	})
}

func TestRetrieval_RetrieverOptions(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		opts, err := config.NewRetrievalForTest(0.2, 2, 350, 5).RetrieverOptions()
		gt.NoError(t, err).Required()
		gt.Array(t, opts).Length(4)
	})

	t.Run("fetch k below max chunks", func(t *testing.T) {
		_, err := config.NewRetrievalForTest(0.2, 3, 350, 2).RetrieverOptions()
		gt.Error(t, err).Is(config.ErrInvalidConfig)
	})

	t.Run("zero word budget", func(t *testing.T) {
		_, err := config.NewRetrievalForTest(0.2, 2, 0, 5).RetrieverOptions()
		gt.Error(t, err).Is(config.ErrInvalidConfig)
	})

	t.Run("splitter", func(t *testing.T) {
		s, err := config.NewRetrievalForTest(0.2, 2, 350, 5).Splitter()
		gt.NoError(t, err).Required()
		gt.Value(t, s).NotNil()
	})

	t.Run("built-in dataset", func(t *testing.T) {
		ds, err := config.NewRetrievalForTest(0.2, 2, 350, 5).Dataset()
		gt.NoError(t, err).Required()
		gt.Number(t, len(ds.Subjects())).Greater(0)
	})
}

func TestSentry_Configure(t *testing.T) {
	closer, err := config.NewSentryForTest("").Configure("dev")
	gt.NoError(t, err).Required()
	closer()
}

func TestLLM_Configure(t *testing.T) {
	t.Run("gemini serves local", func(t *testing.T) {
		var calls []string
		resolver, local, err := config.NewLLMForTest("my-project", "", "gemini", &calls).Configure(t.Context(), nil)
		gt.NoError(t, err).Required()
		gt.Value(t, local.Name()).Equal("gemini")
		gt.Value(t, resolver.Default()).Equal(local)
		gt.Value(t, calls).Equal([]string{"gemini:my-project"})
	})

	t.Run("both providers", func(t *testing.T) {
		var calls []string
		_, local, err := config.NewLLMForTest("p", "sk-test", "openai", &calls).Configure(t.Context(), nil)
		gt.NoError(t, err).Required()
		gt.Value(t, local.Name()).Equal("openai")
		gt.Array(t, calls).Length(2)
	})

	t.Run("local provider not configured", func(t *testing.T) {
		var calls []string
		_, _, err := config.NewLLMForTest("", "sk-test", "gemini", &calls).Configure(t.Context(), nil)
		gt.Error(t, err).Is(config.ErrMissingRequired)
	})

	t.Run("local provider must be a remote backend", func(t *testing.T) {
		var calls []string
		_, _, err := config.NewLLMForTest("p", "", "local", &calls).Configure(t.Context(), nil)
		gt.Error(t, err).Is(config.ErrInvalidConfig)
	})
}
