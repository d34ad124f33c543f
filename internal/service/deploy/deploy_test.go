package deploy

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashwinyue/next-coder/internal/apperr"
	"github.com/ashwinyue/next-coder/internal/model"
	"github.com/ashwinyue/next-coder/internal/repository"
	"github.com/ashwinyue/next-coder/internal/service/codegen"
	"github.com/ashwinyue/next-coder/internal/testutil"
)

type fixture struct {
	mgr    *Manager
	repos  *repository.Repositories
	output string
	deploy string
}

func setup(t *testing.T) *fixture {
	t.Helper()
	repos := repository.NewRepositories(testutil.NewTestDB(t))
	root := t.TempDir()
	f := &fixture{
		repos:  repos,
		output: filepath.Join(root, "code_output"),
		deploy: filepath.Join(root, "code_deploy"),
	}
	f.mgr = NewManager(repos.App, Config{
		OutputRoot: f.output,
		DeployRoot: f.deploy,
		DeployHost: "http://localhost/",
	}, testutil.NewLogger())
	return f
}

func (f *fixture) createApp(t *testing.T, userID int64) *model.App {
	t.Helper()
	app := &model.App{AppName: "demo", InitPrompt: "p", CodeGenType: model.CodeGenTypeHTML, UserID: userID}
	require.NoError(t, f.repos.App.Create(context.Background(), app))
	return app
}

func (f *fixture) writeSource(t *testing.T, app *model.App, html string) {
	t.Helper()
	dir := filepath.Join(f.output, codegen.DirName(app.CodeGenType, app.ID))
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte(html), 0644))
}

func TestDeploy_ReusesKey(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	owner := &model.User{ID: 1}
	app := f.createApp(t, owner.ID)
	f.writeSource(t, app, "<p>v1</p>")

	url1, err := f.mgr.Deploy(ctx, app.ID, owner)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url1, "http://localhost/"))
	assert.True(t, strings.HasSuffix(url1, "/"))

	key := strings.TrimSuffix(strings.TrimPrefix(url1, "http://localhost/"), "/")
	assert.Len(t, key, keyLength)

	content, err := os.ReadFile(filepath.Join(f.deploy, key, "index.html"))
	require.NoError(t, err)
	assert.Equal(t, "<p>v1</p>", string(content))

	// 再次部署复用标识并覆盖内容
	f.writeSource(t, app, "<p>v2</p>")
	url2, err := f.mgr.Deploy(ctx, app.ID, owner)
	require.NoError(t, err)
	assert.Equal(t, url1, url2)

	content, err = os.ReadFile(filepath.Join(f.deploy, key, "index.html"))
	require.NoError(t, err)
	assert.Equal(t, "<p>v2</p>", string(content))

	saved, err := f.repos.App.GetByID(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, key, saved.GetDeployKey())
	assert.NotNil(t, saved.DeployedTime)
}

func TestDeploy_SourceNotFound(t *testing.T) {
	f := setup(t)
	owner := &model.User{ID: 1}
	app := f.createApp(t, owner.ID)

	_, err := f.mgr.Deploy(context.Background(), app.ID, owner)
	assert.Equal(t, apperr.SourceNotFound, apperr.KindOf(err))

	_, statErr := os.Stat(f.deploy)
	assert.True(t, os.IsNotExist(statErr))
}

func TestDeploy_Authorization(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	app := f.createApp(t, 1)
	f.writeSource(t, app, "<p>x</p>")

	_, err := f.mgr.Deploy(ctx, app.ID, &model.User{ID: 2})
	assert.Equal(t, apperr.AuthorizationFailed, apperr.KindOf(err))

	_, err = f.mgr.Deploy(ctx, app.ID, nil)
	assert.Equal(t, apperr.NotLogin, apperr.KindOf(err))

	_, err = f.mgr.Deploy(ctx, 99, &model.User{ID: 1})
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))

	_, err = f.mgr.Deploy(ctx, 0, &model.User{ID: 1})
	assert.Equal(t, apperr.ValidationFailed, apperr.KindOf(err))
}

func TestDeploy_KeyCollision(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	owner := &model.User{ID: 1}

	taken := f.createApp(t, owner.ID)
	require.NoError(t, os.MkdirAll(filepath.Join(f.deploy, "dirkey"), 0755))
	key := "dbkey1"
	require.NoError(t, f.repos.App.Updates(ctx, taken.ID, map[string]interface{}{"deploy_key": key}))

	app := f.createApp(t, owner.ID)
	f.writeSource(t, app, "<p>x</p>")

	keys := []string{"dbkey1", "dirkey", "fresh1"}
	f.mgr.newKey = func() (string, error) {
		k := keys[0]
		keys = keys[1:]
		return k, nil
	}

	url, err := f.mgr.Deploy(ctx, app.ID, owner)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost/fresh1/", url)
}

func TestDeploy_KeyExhausted(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	owner := &model.User{ID: 1}
	app := f.createApp(t, owner.ID)
	f.writeSource(t, app, "<p>x</p>")
	require.NoError(t, os.MkdirAll(filepath.Join(f.deploy, "same00"), 0755))

	f.mgr.newKey = func() (string, error) { return "same00", nil }

	_, err := f.mgr.Deploy(ctx, app.ID, owner)
	assert.Equal(t, apperr.StorageError, apperr.KindOf(err))
}

func TestRandomKey(t *testing.T) {
	for i := 0; i < 20; i++ {
		k, err := randomKey()
		require.NoError(t, err)
		require.Len(t, k, keyLength)
		for _, r := range k {
			assert.True(t, strings.ContainsRune(keyAlphabet, r))
		}
	}
}
