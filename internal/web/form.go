package web

import (
	"net/mail"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	minPasswordLen = 8
	maxNameLen     = 100
)

var cpfPattern = regexp.MustCompile(`^\d{3}\.\d{3}\.\d{3}-\d{2}$`)

// RegistrationForm is the decoded POST /cadastro body.
type RegistrationForm struct {
	Nome      string
	CPF       string
	BirthDate string
	Phone     string
	Email     string
	Senha     string
	Remember  bool
}

// FieldErrors maps a form field id to its message. "geral" holds form-wide errors.
type FieldErrors map[string]string

func parseRegistration(v url.Values) RegistrationForm {
	return RegistrationForm{
		Nome:      strings.TrimSpace(v.Get("nome")),
		CPF:       strings.TrimSpace(v.Get("cpf")),
		BirthDate: strings.TrimSpace(v.Get("data_nascimento")),
		Phone:     strings.TrimSpace(v.Get("telefone")),
		Email:     strings.ToLower(strings.TrimSpace(v.Get("email"))),
		Senha:     v.Get("senha"),
		Remember:  v.Get("lembrar") == "on",
	}
}

// Validate returns nil when the form can be stored.
func (f RegistrationForm) Validate() FieldErrors {
	errs := FieldErrors{}

	switch {
	case f.Nome == "":
		errs["nome"] = "Informe o nome."
	case utf8.RuneCountInString(f.Nome) > maxNameLen:
		errs["nome"] = "O nome deve ter no máximo 100 caracteres."
	}

	if !cpfPattern.MatchString(f.CPF) {
		errs["cpf"] = "Informe o CPF no formato 000.000.000-00."
	}

	if f.BirthDate != "" {
		if _, err := time.Parse("2006-01-02", f.BirthDate); err != nil {
			errs["data_nascimento"] = "Data de nascimento inválida."
		}
	}

	if addr, err := mail.ParseAddress(f.Email); err != nil || addr.Address != f.Email {
		errs["email"] = "Informe um e-mail válido."
	}

	if utf8.RuneCountInString(f.Senha) < minPasswordLen {
		errs["senha"] = "A senha deve ter pelo menos 8 caracteres."
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

// withoutPassword is what gets echoed back into a re-rendered form.
func (f RegistrationForm) withoutPassword() RegistrationForm {
	f.Senha = ""
	return f
}
