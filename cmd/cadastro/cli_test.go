package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cadastro/internal/config"
	"cadastro/internal/logging"
	"cadastro/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Cleanup(logging.Reset)
	t.Cleanup(resetFlags)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

// resetFlags restores flag globals so one command's flags never leak into
// the next test.
func resetFlags() {
	verbose = false
	configPath = config.DefaultPath
	serveAddr = ""
	smokeBaseURL = ""
	smokePreflight = false
	smokeScreenshot = ""
	smokeEvents = false
	usersPage = 1
	usersPageSize = 20
	categoryDescription = ""
	articleTitle = ""
	articleContentFile = ""
	articleAuthorEmail = ""
	articleCategory = ""
	cfg = nil
	logger = nil
}

func writeConfig(t *testing.T, mutate func(*config.Config)) string {
	t.Helper()
	for _, key := range []string{"CADASTRO_ADDR", "CADASTRO_DB", "CADASTRO_BASE_URL", "CADASTRO_HEADLESS", "CADASTRO_CHROME_URL", "CADASTRO_LOG_LEVEL"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	dir := t.TempDir()
	c := config.DefaultConfig()
	c.Database.Path = filepath.Join(dir, "dados.db")
	c.Logging.Level = "error"
	if mutate != nil {
		mutate(c)
	}
	path := filepath.Join(dir, "cadastro.yaml")
	require.NoError(t, c.Save(path))
	return path
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "cadastro dev\n", out)
}

func TestUsersListCmd(t *testing.T) {
	path := writeConfig(t, nil)

	c, err := config.Load(path)
	require.NoError(t, err)
	users, err := store.NewUserStore(c.Database.Path)
	require.NoError(t, err)
	for _, u := range []store.User{
		{Name: "zeca", CPF: "111.111.111-11", Email: "zeca@gmail.com", PasswordHash: "x"},
		{Name: "libertadores", CPF: "999.999.999-99", Email: "example@gmail.com", PasswordHash: "x"},
	} {
		_, err := users.Insert(context.Background(), &u)
		require.NoError(t, err)
	}
	require.NoError(t, users.Close())

	out, err := execute(t, "--config", path, "users", "list", "--page", "1", "--page-size", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "libertadores")
	assert.NotContains(t, out, "zeca")
	assert.Contains(t, out, "1 of 2 users (page 1)")
}

func TestInvalidConfigRejected(t *testing.T) {
	path := writeConfig(t, func(c *config.Config) { c.Logging.Level = "loud" })

	_, err := execute(t, "--config", path, "users", "list", "--page", "1", "--page-size", "20")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}

func TestSmokeCmd_PreflightFailureStopsBeforeBrowser(t *testing.T) {
	// Nothing listens on the reserved port, so preflight fails fast.
	path := writeConfig(t, func(c *config.Config) {
		c.Smoke.BaseURL = "http://127.0.0.1:1"
		c.Smoke.Timeout = "5s"
	})

	_, err := execute(t, "--config", path, "smoke", "--preflight")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "preflight")
}

func TestExecuteResetsFlags(t *testing.T) {
	t.Run("sets", func(t *testing.T) {
		path := writeConfig(t, func(c *config.Config) {
			c.Smoke.BaseURL = "http://127.0.0.1:1"
			c.Smoke.Timeout = "5s"
		})
		_, err := execute(t, "--config", path, "smoke", "--preflight", "--base-url", "http://127.0.0.1:1")
		require.Error(t, err)
		assert.True(t, smokePreflight)
	})

	assert.False(t, smokePreflight)
	assert.Empty(t, smokeBaseURL)
	assert.Equal(t, config.DefaultPath, configPath)
}

func TestArticlesCmd_Lifecycle(t *testing.T) {
	path := writeConfig(t, nil)

	c, err := config.Load(path)
	require.NoError(t, err)
	users, err := store.NewUserStore(c.Database.Path)
	require.NoError(t, err)
	_, err = users.Insert(context.Background(), &store.User{
		Name: "libertadores", CPF: "999.999.999-99", Email: "example@gmail.com", PasswordHash: "x",
	})
	require.NoError(t, err)
	require.NoError(t, users.Close())

	out, err := execute(t, "--config", path, "categories", "add", "Futebol", "--description", "Bola rolando")
	require.NoError(t, err)
	assert.Contains(t, out, "category 1 created")

	body := filepath.Join(t.TempDir(), "artigo.txt")
	require.NoError(t, os.WriteFile(body, []byte(strings.Repeat("gol ", 64)), 0o644))

	out, err = execute(t, "--config", path, "articles", "add",
		"--title", "Final da Libertadores", "--content-file", body,
		"--author", "example@gmail.com", "--category", "Futebol")
	require.NoError(t, err)
	assert.Contains(t, out, "article 1 created as Rascunho")

	out, err = execute(t, "--config", path, "articles", "publish", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "article 1 is now Publicado")

	out, err = execute(t, "--config", path, "articles", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Final da Libertadores")
	assert.Contains(t, out, "Publicado")
	assert.Contains(t, out, "1 articles")

	_, err = execute(t, "--config", path, "articles", "add",
		"--title", "Curto demais", "--content-file", body,
		"--author", "example@gmail.com", "--category", "Futebol")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "3 words")

	out, err = execute(t, "--config", path, "articles", "delete", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "article 1 deleted")

	_, err = execute(t, "--config", path, "articles", "publish", "1")
	assert.ErrorIs(t, err, store.ErrNotFound)
}
