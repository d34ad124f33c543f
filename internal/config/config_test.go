package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "next-coder", cfg.App.Name)
	assert.Equal(t, 8123, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, "deepseek", cfg.AI.Provider)
	assert.Equal(t, 10000, cfg.Cache.MaximumSize)
	assert.Equal(t, 30*time.Minute, cfg.Cache.ExpireAfterWrite)
	assert.Equal(t, 10*time.Minute, cfg.Cache.ExpireAfterAccess)
	assert.Equal(t, 20, cfg.Memory.MaxMessages)
	assert.Equal(t, "code_output", filepath.Base(cfg.CodeGen.OutputRoot))
	assert.Equal(t, "code_deploy", filepath.Base(cfg.CodeGen.DeployRoot))
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: 9000
database:
  driver: sqlite
codegen:
  deployHost: https://apps.example.com
cache:
  expireAfterAccess: 5m
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	t.Setenv("NEXT_CODER_AI_PROVIDER", "openai")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "https://apps.example.com", cfg.CodeGen.DeployHost)
	assert.Equal(t, 5*time.Minute, cfg.Cache.ExpireAfterAccess)
	assert.Equal(t, "openai", cfg.AI.Provider)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8123, cfg.Server.Port)
}

func TestAddrs(t *testing.T) {
	s := ServerConfig{Host: "127.0.0.1", Port: 80}
	assert.Equal(t, "127.0.0.1:80", s.GetAddr())

	d := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", DBName: "n", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=n sslmode=disable", d.GetDSN())
}
