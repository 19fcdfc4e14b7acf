package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"cadastro/internal/smoke"
	"cadastro/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestServer(t *testing.T) (*httptest.Server, *store.UserStore) {
	t.Helper()
	users, err := store.NewUserStore(filepath.Join(t.TempDir(), "dados.db"))
	require.NoError(t, err)
	t.Cleanup(func() { users.Close() })

	srv, err := NewServer(users, Options{BcryptCost: bcrypt.MinCost, Articles: users.Articles()})
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, users
}

// noRedirect keeps 303 responses visible to the test.
func noRedirect(ts *httptest.Server) *http.Client {
	c := ts.Client()
	c.CheckRedirect = func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }
	return c
}

func validForm() url.Values {
	return url.Values{
		"nome":    {smoke.DefaultFixture.Nome},
		"cpf":     {smoke.DefaultFixture.CPF},
		"email":   {smoke.DefaultFixture.Email},
		"senha":   {smoke.DefaultFixture.Senha},
		"lembrar": {"on"},
	}
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func TestCadastroForm_EachIDOnce(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := ts.Client().Get(ts.URL + "/cadastro")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")

	counts, err := smoke.CountIDs(resp.Body)
	require.NoError(t, err)
	for _, id := range smoke.FormIDs {
		assert.Equal(t, 1, counts[id], "id %q", id)
	}
}

func TestHealth(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := ts.Client().Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "healthy", body["status"])
}

func TestIndex(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := ts.Client().Get(ts.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), `href="/cadastro"`)
}

func TestCadastroSubmit_Success(t *testing.T) {
	ts, users := newTestServer(t)
	client := noRedirect(ts)

	resp, err := client.PostForm(ts.URL+"/cadastro", validForm())
	require.NoError(t, err)
	resp.Body.Close()

	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/cadastro?ok=1", resp.Header.Get("Location"))

	var remember *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == RememberCookie {
			remember = c
		}
	}
	require.NotNil(t, remember)
	assert.Equal(t, smoke.DefaultFixture.Email, remember.Value)
	assert.True(t, remember.HttpOnly)

	u, err := users.GetByEmail(context.Background(), smoke.DefaultFixture.Email)
	require.NoError(t, err)
	assert.Equal(t, smoke.DefaultFixture.Nome, u.Name)
	assert.Equal(t, smoke.DefaultFixture.CPF, u.CPF)
	assert.Equal(t, store.ProfileAuthor, u.Profile)
	assert.NotEqual(t, smoke.DefaultFixture.Senha, u.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(smoke.DefaultFixture.Senha)))
}

func TestCadastroSubmit_WithoutRememberClearsCookie(t *testing.T) {
	ts, _ := newTestServer(t)

	form := validForm()
	form.Del("lembrar")
	resp, err := noRedirect(ts).PostForm(ts.URL+"/cadastro", form)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	for _, c := range resp.Cookies() {
		if c.Name == RememberCookie {
			assert.Empty(t, c.Value)
			assert.Less(t, c.MaxAge, 0)
		}
	}
}

func TestCadastroForm_Confirmation(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := ts.Client().Get(ts.URL + "/cadastro?ok=1")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Contains(t, readBody(t, resp), "Cadastro realizado com sucesso.")
}

func TestCadastroForm_PrefillsRememberedEmail(t *testing.T) {
	ts, _ := newTestServer(t)

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/cadastro", nil)
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{Name: RememberCookie, Value: "lembrado@gmail.com"})

	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	body := readBody(t, resp)
	assert.Contains(t, body, `value="lembrado@gmail.com"`)
	assert.Contains(t, body, `value="on" checked`)
}

func TestCadastroSubmit_Invalid(t *testing.T) {
	ts, users := newTestServer(t)

	form := validForm()
	form.Set("cpf", "12345")
	form.Set("senha", "curta")

	resp, err := ts.Client().PostForm(ts.URL+"/cadastro", form)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	body := readBody(t, resp)
	assert.Contains(t, body, "Informe o CPF no formato 000.000.000-00.")
	assert.Contains(t, body, "A senha deve ter pelo menos 8 caracteres.")
	assert.Contains(t, body, `value="libertadores"`)
	assert.NotContains(t, body, "curta")

	n, err := users.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCadastroSubmit_Duplicate(t *testing.T) {
	ts, users := newTestServer(t)
	client := noRedirect(ts)

	resp, err := client.PostForm(ts.URL+"/cadastro", validForm())
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	tests := []struct {
		name    string
		mutate  func(url.Values)
		message string
	}{
		{
			name:    "same cpf",
			mutate:  func(v url.Values) { v.Set("email", "outro@gmail.com") },
			message: "CPF já cadastrado.",
		},
		{
			name:    "same email",
			mutate:  func(v url.Values) { v.Set("cpf", "111.111.111-11") },
			message: "E-mail já cadastrado.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := validForm()
			tt.mutate(form)

			resp, err := client.PostForm(ts.URL+"/cadastro", form)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, http.StatusConflict, resp.StatusCode)
			assert.Contains(t, readBody(t, resp), tt.message)
		})
	}

	n, err := users.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

type failingRepo struct {
	err   error
	panic bool
}

func (f failingRepo) Insert(context.Context, *store.User) (int64, error) {
	if f.panic {
		panic("boom")
	}
	return 0, f.err
}

func TestCadastroSubmit_StoreFailure(t *testing.T) {
	srv, err := NewServer(failingRepo{err: errors.New("disk full")}, Options{BcryptCost: bcrypt.MinCost})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/cadastro", strings.NewReader(validForm().Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Não foi possível concluir o cadastro.")
	assert.NotContains(t, rec.Body.String(), "disk full")
}

func TestCadastroSubmit_PanicRecovered(t *testing.T) {
	srv, err := NewServer(failingRepo{panic: true}, Options{BcryptCost: bcrypt.MinCost})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/cadastro", strings.NewReader(validForm().Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestUnknownRoute(t *testing.T) {
	srv, err := NewServer(failingRepo{}, Options{})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
