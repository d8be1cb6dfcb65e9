package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagarc03/filevault/config"
)

const testSecret = "0123456789abcdef0123456789abcdef"

// setRequiredEnv satisfies the fields that have no usable default.
func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("FILEVAULT_AUTH_JWT_SECRET", testSecret)
	t.Setenv("FILEVAULT_S3_BUCKET", "test-bucket")
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := config.Load(nil, nil)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, int64(512<<20), cfg.Server.MaxUploadSize)
	assert.Equal(t, 3600, cfg.Service.URLTTL)
	assert.Equal(t, 30, cfg.Service.CleanupTimeout)
	assert.Equal(t, "sqlite", cfg.Database.Type)
	assert.Equal(t, "filevault.db", cfg.Database.DSN)
	assert.Equal(t, "us-east-1", cfg.S3.Region)
	assert.Equal(t, 86400, cfg.Auth.TokenTTL)
	assert.Equal(t, int64(5<<30), cfg.Quota.CapBytes)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_ConfigFile(t *testing.T) {
	path := writeConfigFile(t, `
server:
  port: 9090
  max_upload_size: 1048576
database:
  type: postgres
  dsn: postgres://localhost/filevault
s3:
  bucket: my-bucket
  region: eu-west-1
  use_path_style: true
auth:
  jwt_secret: `+testSecret+`
quota:
  cap_bytes: 1073741824
log:
  level: debug
`)

	cfg, err := config.Load([]string{path}, nil)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, int64(1<<20), cfg.Server.MaxUploadSize)
	assert.Equal(t, "postgres", cfg.Database.Type)
	assert.Equal(t, "postgres://localhost/filevault", cfg.Database.DSN)
	assert.Equal(t, "my-bucket", cfg.S3.Bucket)
	assert.Equal(t, "eu-west-1", cfg.S3.Region)
	assert.True(t, cfg.S3.UsePathStyle)
	assert.Equal(t, int64(1<<30), cfg.Quota.CapBytes)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_ConfigFileMerge(t *testing.T) {
	setRequiredEnv(t)

	base := writeConfigFile(t, `
server:
  port: 9090
log:
  level: warn
`)
	override := writeConfigFile(t, `
log:
  level: error
`)

	cfg, err := config.Load([]string{base, override}, nil)
	require.NoError(t, err)

	// Later files override earlier ones; untouched keys survive the merge.
	assert.Equal(t, "error", cfg.Log.Level)
	assert.Equal(t, 9090, cfg.Server.Port)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	setRequiredEnv(t)

	path := writeConfigFile(t, `
server:
  port: 9090
`)
	t.Setenv("FILEVAULT_SERVER_PORT", "7070")

	cfg, err := config.Load([]string{path}, nil)
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
}

func TestLoad_FlagOverridesEnv(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("FILEVAULT_DATABASE_TYPE", "sqlite")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("db-type", "", "")
	flags.Int("port", 0, "")
	require.NoError(t, flags.Parse([]string{"--db-type=postgres"}))

	cfg, err := config.Load(nil, flags)
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Database.Type, "a set flag wins over env")
	assert.Equal(t, 8080, cfg.Server.Port, "unset flags must not bind")
}

func TestLoad_Validation(t *testing.T) {
	t.Run("missing jwt secret", func(t *testing.T) {
		t.Setenv("FILEVAULT_S3_BUCKET", "test-bucket")

		_, err := config.Load(nil, nil)
		assert.Error(t, err)
	})

	t.Run("short jwt secret", func(t *testing.T) {
		t.Setenv("FILEVAULT_S3_BUCKET", "test-bucket")
		t.Setenv("FILEVAULT_AUTH_JWT_SECRET", "too-short")

		_, err := config.Load(nil, nil)
		assert.Error(t, err)
	})

	t.Run("missing bucket", func(t *testing.T) {
		t.Setenv("FILEVAULT_AUTH_JWT_SECRET", testSecret)

		_, err := config.Load(nil, nil)
		assert.Error(t, err)
	})

	t.Run("bad log level", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("FILEVAULT_LOG_LEVEL", "verbose")

		_, err := config.Load(nil, nil)
		assert.Error(t, err)
	})

	t.Run("port out of range", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("FILEVAULT_SERVER_PORT", "70000")

		_, err := config.Load(nil, nil)
		assert.Error(t, err)
	})
}

func TestContext(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		cfg := &config.Config{}
		ctx := config.WithContext(context.Background(), cfg)

		got, err := config.FromContext(ctx)
		require.NoError(t, err)
		assert.Same(t, cfg, got)
	})

	t.Run("missing config", func(t *testing.T) {
		_, err := config.FromContext(context.Background())
		assert.Error(t, err)
	})
}
