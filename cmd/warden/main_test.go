package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yairfalse/warden/internal/config"
	"github.com/yairfalse/warden/internal/scheduler"
	"github.com/yairfalse/warden/internal/versioning"
	"github.com/yairfalse/warden/pkg/resource"
)

func TestBuildPasses_Enabled(t *testing.T) {
	cfg := config.Default()

	passes := buildPasses(cfg, nil, nil)

	require.Len(t, passes, 2)
	assert.Equal(t, scheduler.PassName, passes[0].Name())
	assert.Equal(t, versioning.PassName, passes[1].Name())
	assert.IsType(t, &scheduler.Scheduler{}, passes[0])
	enforcer, ok := passes[1].(*versioning.Enforcer)
	require.True(t, ok)
	assert.Equal(t, "yasinh-", enforcer.Prefix())
}

func TestBuildPasses_Disabled(t *testing.T) {
	cfg := config.Default()
	cfg.Scheduler.Enabled = false
	cfg.Versioning.Enabled = false

	passes := buildPasses(cfg, nil, nil)

	require.Len(t, passes, 2)

	first, err := passes[0].Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Instance scheduling disabled.", first.Status)

	second, err := passes[1].Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bucket versioning disabled.", second.Status)
}

func TestBuildPasses_DryRun(t *testing.T) {
	cfg := config.Default()
	cfg.Versioning.DryRun = true
	store := &stubStore{}

	passes := buildPasses(cfg, nil, store)
	result, err := passes[1].Run(context.Background())

	require.NoError(t, err)
	require.Len(t, result.Outcomes, 1)
	assert.True(t, result.Outcomes[0].DryRun)
	assert.Zero(t, store.writes)
}

func TestAWSConfig(t *testing.T) {
	got := awsConfig(config.AWSConfig{
		Region:          "eu-west-1",
		Profile:         "ops",
		Endpoint:        "http://localhost:4566",
		AccessKeyID:     "AKIA",
		SecretAccessKey: "secret",
	})

	assert.Equal(t, "eu-west-1", got.Region)
	assert.Equal(t, "ops", got.Profile)
	assert.Equal(t, "http://localhost:4566", got.Endpoint)
	assert.Equal(t, "AKIA", got.AccessKeyID)
	assert.Equal(t, "secret", got.SecretAccessKey)
}

func TestLoadConfig_DryRunFlag(t *testing.T) {
	prevPath, prevDry := configPath, dryRun
	t.Cleanup(func() { configPath, dryRun = prevPath, prevDry })

	configPath = ""
	dryRun = true

	cfg, err := loadConfig()

	require.NoError(t, err)
	assert.True(t, cfg.Scheduler.DryRun)
	assert.True(t, cfg.Versioning.DryRun)
}

func TestConfigCommand(t *testing.T) {
	prevPath := configPath
	t.Cleanup(func() { configPath = prevPath })

	path := filepath.Join(t.TempDir(), "warden.yaml")
	require.NoError(t, os.WriteFile(path, []byte("versioning:\n  bucket_prefix: team-\n"), 0o600))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"config", "--config", path})
	t.Cleanup(func() { rootCmd.SetOut(nil); rootCmd.SetArgs(nil) })

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "bucket_prefix: team-")
	assert.Contains(t, out.String(), "interval: 1h0m0s")
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	t.Cleanup(func() { rootCmd.SetOut(nil); rootCmd.SetArgs(nil) })

	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, "warden "+version+"\n", out.String())
}

// stubStore reports one never-versioned in-scope bucket.
type stubStore struct {
	writes int
}

func (s *stubStore) ListBuckets(context.Context) ([]resource.Bucket, error) {
	return []resource.Bucket{{Name: "yasinh-a"}}, nil
}

func (s *stubStore) Versioning(context.Context, string) (resource.VersioningStatus, error) {
	return resource.VersioningOff, nil
}

func (s *stubStore) EnableVersioning(context.Context, string) error {
	s.writes++
	return nil
}
