// Package smoke runs the registration-form smoke scenario: open /cadastro,
// fill nome, cpf, email and senha, check lembrar, click cadastrar.
//
// Steps run strictly in order with no retries; the first failing step ends the
// run. Nothing is asserted about what the server does with the submission.
package smoke

import (
	"fmt"
	"strings"
)

const (
	// DefaultBaseURL is where the registration server listens by default.
	DefaultBaseURL = "http://127.0.0.1:8000"
	// RegistrationPath is the path of the registration form.
	RegistrationPath = "/cadastro"
)

// Element ids the registration page must expose exactly once each.
const (
	FieldNome      = "nome"
	FieldCPF       = "cpf"
	FieldEmail     = "email"
	FieldSenha     = "senha"
	FieldLembrar   = "lembrar"
	FieldCadastrar = "cadastrar"
)

// FormIDs lists the ids the scenario touches, in step order.
var FormIDs = []string{FieldNome, FieldCPF, FieldEmail, FieldSenha, FieldLembrar, FieldCadastrar}

// Kind is the action a step performs.
type Kind string

const (
	KindVisit Kind = "visit"
	KindType  Kind = "type"
	KindCheck Kind = "check"
	KindClick Kind = "click"
)

// Step is one interaction. URL is set for visits, Selector for the rest,
// Text only for typing.
type Step struct {
	Kind     Kind
	Name     string
	URL      string
	Selector string
	Text     string
}

func (s Step) String() string {
	switch s.Kind {
	case KindVisit:
		return fmt.Sprintf("visit %s", s.URL)
	case KindType:
		return fmt.Sprintf("type %q into %s", s.Text, s.Selector)
	default:
		return fmt.Sprintf("%s %s", s.Kind, s.Selector)
	}
}

// Scenario is an ordered list of steps.
type Scenario struct {
	Name  string
	Steps []Step
}

// Fixture holds the literals typed into the form.
type Fixture struct {
	Nome  string
	CPF   string
	Email string
	Senha string
}

// DefaultFixture is the fixed input set of the registration smoke test.
var DefaultFixture = Fixture{
	Nome:  "libertadores",
	CPF:   "999.999.999-99",
	Email: "example@gmail.com",
	Senha: "fJ&&#4445",
}

// Selector builds the tag[id='x'] selector used for every lookup.
func Selector(tag, id string) string {
	return fmt.Sprintf("%s[id='%s']", tag, id)
}

// RegistrationURL joins baseURL and the form path.
func RegistrationURL(baseURL string) string {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return strings.TrimRight(baseURL, "/") + RegistrationPath
}

// Registration returns the registration scenario with the default fixture.
func Registration(baseURL string) Scenario {
	return RegistrationWith(baseURL, DefaultFixture)
}

// RegistrationWith returns the registration scenario typing f.
func RegistrationWith(baseURL string, f Fixture) Scenario {
	return Scenario{
		Name: "registration form",
		Steps: []Step{
			{Kind: KindVisit, Name: "open form", URL: RegistrationURL(baseURL)},
			{Kind: KindType, Name: "fill nome", Selector: Selector("input", FieldNome), Text: f.Nome},
			{Kind: KindType, Name: "fill cpf", Selector: Selector("input", FieldCPF), Text: f.CPF},
			{Kind: KindType, Name: "fill email", Selector: Selector("input", FieldEmail), Text: f.Email},
			{Kind: KindType, Name: "fill senha", Selector: Selector("input", FieldSenha), Text: f.Senha},
			{Kind: KindCheck, Name: "check lembrar", Selector: Selector("input", FieldLembrar)},
			{Kind: KindClick, Name: "submit", Selector: Selector("button", FieldCadastrar)},
		},
	}
}
