// Package web serves the public pages and the registration form.
package web

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"cadastro/internal/logging"
	"cadastro/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/crypto/bcrypt"
)

//go:embed templates/*.html
var templateFS embed.FS

// RememberCookie holds the e-mail of a user who ticked "lembrar".
const RememberCookie = "cadastro_lembrar"

const rememberFor = 30 * 24 * time.Hour

// UserRepository is the slice of the user store the handlers need.
type UserRepository interface {
	Insert(ctx context.Context, u *store.User) (int64, error)
}

// ArticleRepository is the read side of the article store used by the
// public blog pages.
type ArticleRepository interface {
	ListPublished(ctx context.Context) ([]store.Article, error)
	GetByID(ctx context.Context, id int64) (*store.Article, error)
	IncrementViews(ctx context.Context, id int64) error
}

// Options tune the server.
type Options struct {
	AppName       string
	SecureCookies bool
	// BcryptCost defaults to bcrypt.DefaultCost.
	BcryptCost int
	// Articles backs /artigos and /artigo/{id}. Nil serves an empty blog.
	Articles ArticleRepository
}

// Server renders pages and handles registrations.
type Server struct {
	users UserRepository
	opts  Options
	pages map[string]*template.Template
}

type pageData struct {
	AppName string
	Title   string
	Form    RegistrationForm
	Errors  FieldErrors
	Success bool

	Articles []store.Article
	Article  *store.Article
}

// NewServer parses the embedded templates.
func NewServer(users UserRepository, opts Options) (*Server, error) {
	if opts.AppName == "" {
		opts.AppName = "cadastro"
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}

	pages := make(map[string]*template.Template)
	for _, name := range []string{"index.html", "cadastro.html", "sobre.html", "artigos.html", "artigo.html"} {
		t, err := template.ParseFS(templateFS, "templates/layout.html", "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		pages[name] = t
	}
	return &Server{users: users, opts: opts, pages: pages}, nil
}

// Handler returns the routed handler with middleware.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleIndex)
	r.Get("/cadastro", s.handleCadastroForm)
	r.Post("/cadastro", s.handleCadastroSubmit)
	r.Get("/sobre", s.handleAbout)
	r.Get("/artigos", s.handleArticles)
	r.Get("/artigo/{id}", s.handleArticle)
	r.Get("/health", handleHealth)
	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "index.html", pageData{Title: "Início"})
}

func (s *Server) handleAbout(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "sobre.html", pageData{Title: "Sobre"})
}

func (s *Server) handleArticles(w http.ResponseWriter, r *http.Request) {
	data := pageData{Title: "Artigos"}
	if s.opts.Articles != nil {
		list, err := s.opts.Articles.ListPublished(r.Context())
		if err != nil {
			logging.WebError("list articles: %v", err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		data.Articles = list
	}
	s.render(w, r, http.StatusOK, "artigos.html", data)
}

// handleArticle shows one published article and counts the view. Drafts and
// paused articles are indistinguishable from missing ones.
func (s *Server) handleArticle(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 || s.opts.Articles == nil {
		http.NotFound(w, r)
		return
	}

	a, err := s.opts.Articles.GetByID(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) || (err == nil && a.Status != store.StatusPublished) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		logging.WebError("get article %d: %v", id, err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if err := s.opts.Articles.IncrementViews(r.Context(), id); err != nil {
		logging.WebWarn("count view of article %d: %v", id, err)
	} else {
		a.Views++
	}
	s.render(w, r, http.StatusOK, "artigo.html", pageData{Title: a.Title, Article: a})
}

func (s *Server) handleCadastroForm(w http.ResponseWriter, r *http.Request) {
	data := pageData{Title: "Cadastro", Success: r.URL.Query().Get("ok") == "1"}
	if c, err := r.Cookie(RememberCookie); err == nil && c.Value != "" {
		data.Form.Email = c.Value
		data.Form.Remember = true
	}
	s.render(w, r, http.StatusOK, "cadastro.html", data)
}

func (s *Server) handleCadastroSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.render(w, r, http.StatusBadRequest, "cadastro.html", pageData{
			Title:  "Cadastro",
			Errors: FieldErrors{"geral": "Formulário inválido."},
		})
		return
	}

	form := parseRegistration(r.PostForm)
	if errs := form.Validate(); errs != nil {
		logging.WebDebug("registration rejected: %v", errs)
		s.render(w, r, http.StatusUnprocessableEntity, "cadastro.html", pageData{
			Title:  "Cadastro",
			Form:   form.withoutPassword(),
			Errors: errs,
		})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(form.Senha), s.opts.BcryptCost)
	if err != nil {
		logging.WebError("hash password: %v", err)
		s.renderServerError(w, r, form)
		return
	}

	user := &store.User{
		Name:         form.Nome,
		CPF:          form.CPF,
		BirthDate:    form.BirthDate,
		Email:        form.Email,
		Phone:        form.Phone,
		PasswordHash: string(hash),
		Profile:      store.ProfileAuthor,
	}
	if _, err := s.users.Insert(r.Context(), user); err != nil {
		var dup *store.DuplicateError
		if errors.As(err, &dup) {
			s.render(w, r, http.StatusConflict, "cadastro.html", pageData{
				Title:  "Cadastro",
				Form:   form.withoutPassword(),
				Errors: duplicateErrors(dup.Field),
			})
			return
		}
		logging.WebError("insert user: %v", err)
		s.renderServerError(w, r, form)
		return
	}

	logging.Web("registered user id=%d", user.ID)

	if form.Remember {
		http.SetCookie(w, &http.Cookie{
			Name:     RememberCookie,
			Value:    form.Email,
			Path:     "/",
			MaxAge:   int(rememberFor / time.Second),
			HttpOnly: true,
			Secure:   s.opts.SecureCookies,
			SameSite: http.SameSiteLaxMode,
		})
	} else {
		http.SetCookie(w, &http.Cookie{Name: RememberCookie, Path: "/", MaxAge: -1})
	}
	http.Redirect(w, r, "/cadastro?ok=1", http.StatusSeeOther)
}

func duplicateErrors(field string) FieldErrors {
	switch field {
	case "cpf":
		return FieldErrors{"cpf": "CPF já cadastrado."}
	case "email":
		return FieldErrors{"email": "E-mail já cadastrado."}
	default:
		return FieldErrors{"geral": "Usuário já cadastrado."}
	}
}

func (s *Server) renderServerError(w http.ResponseWriter, r *http.Request, form RegistrationForm) {
	s.render(w, r, http.StatusInternalServerError, "cadastro.html", pageData{
		Title:  "Cadastro",
		Form:   form.withoutPassword(),
		Errors: FieldErrors{"geral": "Não foi possível concluir o cadastro. Tente novamente."},
	})
}

// render executes into a buffer first so a template failure never leaves a
// half-written 200 behind.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, page string, data pageData) {
	data.AppName = s.opts.AppName

	var buf bytes.Buffer
	if err := s.pages[page].ExecuteTemplate(&buf, "layout", data); err != nil {
		logging.WebError("render %s: %v", page, err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
