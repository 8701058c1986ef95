package signup

import (
	"context"
	"fmt"
	"net/mail"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/manishahirrao/postpilot/identity"
	apperrors "github.com/manishahirrao/postpilot/internal/errors"
	"github.com/manishahirrao/postpilot/users"
)

const (
	minFullNameLength = 2
	maxHeadlineLength = 120
)

// Step is a page of the registration wizard.
type Step int

const (
	StepAccountType Step = iota
	StepCredentials
	StepProfile
	StepReview
)

func (s Step) String() string {
	switch s {
	case StepAccountType:
		return "account_type"
	case StepCredentials:
		return "credentials"
	case StepProfile:
		return "profile"
	case StepReview:
		return "review"
	default:
		return fmt.Sprintf("step(%d)", int(s))
	}
}

// Form holds everything the wizard collects.
type Form struct {
	AccountType     users.AccountType
	Email           string
	Password        string
	ConfirmPassword string
	FullName        string
	Headline        string
	CompanyName     string
	Industry        string
	Plan            string
	AcceptedTerms   bool
}

// ValidationErrors maps form field names to messages.
type ValidationErrors map[string]string

func (v ValidationErrors) Error() string {
	fields := make([]string, 0, len(v))
	for field := range v {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, field+": "+v[field])
	}
	return strings.Join(parts, "; ")
}

func (v ValidationErrors) Unwrap() error {
	return apperrors.ErrInvalidInput
}

// Registrar creates accounts.
type Registrar interface {
	Register(ctx context.Context, registration identity.Registration) (*identity.AuthResponse, error)
}

// SessionEstablisher stores the session handed out on sign-up.
type SessionEstablisher interface {
	Establish(ctx context.Context, payload *identity.SessionPayload, user *users.User) (*users.User, error)
}

// Result is the outcome of a submitted registration.
type Result struct {
	User     *users.User
	Message  string
	SignedIn bool
	NextPath string
}

// Wizard walks a user through registration one step at a time.
type Wizard struct {
	Form Form

	step      Step
	registrar Registrar
	sessions  SessionEstablisher
}

func NewWizard(registrar Registrar, sessions SessionEstablisher) *Wizard {
	return &Wizard{registrar: registrar, sessions: sessions}
}

func (w *Wizard) Step() Step {
	return w.step
}

// Next validates the current step and advances when it is valid.
func (w *Wizard) Next() error {
	if errs := w.Validate(w.step); len(errs) > 0 {
		return errs
	}
	if w.step < StepReview {
		w.step++
	}
	return nil
}

// Back returns to the previous step; the form keeps what was entered.
func (w *Wizard) Back() {
	if w.step > StepAccountType {
		w.step--
	}
}

// Validate checks the fields owned by step.
func (w *Wizard) Validate(step Step) ValidationErrors {
	errs := ValidationErrors{}
	f := w.Form

	switch step {
	case StepAccountType:
		if !f.AccountType.Valid() {
			errs["account_type"] = "choose a personal or company account"
		}
	case StepCredentials:
		if _, err := mail.ParseAddress(strings.TrimSpace(f.Email)); err != nil {
			errs["email"] = "enter a valid email address"
		}
		if err := users.ValidatePasswordStrength(f.Password); err != nil {
			errs["password"] = err.Error()
		}
		if f.ConfirmPassword != f.Password {
			errs["confirm_password"] = "passwords do not match"
		}
	case StepProfile:
		if utf8.RuneCountInString(strings.TrimSpace(f.FullName)) < minFullNameLength {
			errs["full_name"] = "enter your full name"
		}
		if f.AccountType == users.AccountCompany && strings.TrimSpace(f.CompanyName) == "" {
			errs["company_name"] = "company accounts need a company name"
		}
		if utf8.RuneCountInString(f.Headline) > maxHeadlineLength {
			errs["headline"] = fmt.Sprintf("headline must be at most %d characters", maxHeadlineLength)
		}
	case StepReview:
		if !f.AcceptedTerms {
			errs["terms"] = "accept the terms to continue"
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

// Submit registers the account. It is only allowed from the review step with
// every step valid. When the provider signs the user in straight away the
// session is stored; otherwise the user is sent to verify their email.
func (w *Wizard) Submit(ctx context.Context) (*Result, error) {
	if w.step != StepReview {
		return nil, fmt.Errorf("[Wizard Submit] %w: not on the review step", apperrors.ErrInvalidInput)
	}
	for step := StepAccountType; step <= StepReview; step++ {
		if errs := w.Validate(step); len(errs) > 0 {
			w.step = step
			return nil, errs
		}
	}

	plan := w.Form.Plan
	if plan == "" {
		plan = users.PlanFree
	}
	resp, err := w.registrar.Register(ctx, identity.Registration{
		Email:       strings.TrimSpace(w.Form.Email),
		Password:    w.Form.Password,
		AccountType: w.Form.AccountType,
		FullName:    strings.TrimSpace(w.Form.FullName),
		Headline:    strings.TrimSpace(w.Form.Headline),
		CompanyName: strings.TrimSpace(w.Form.CompanyName),
		Industry:    strings.TrimSpace(w.Form.Industry),
		Plan:        plan,
	})
	if err != nil {
		return nil, fmt.Errorf("[Wizard Submit] %w", err)
	}

	result := &Result{User: resp.User, Message: resp.Message, NextPath: users.RouteVerifyEmail}
	if resp.Session == nil || resp.Session.AccessToken == "" {
		return result, nil
	}

	user, err := w.sessions.Establish(ctx, resp.Session, resp.User)
	if err != nil {
		return nil, fmt.Errorf("[Wizard Submit] %w", err)
	}
	result.User = user
	result.SignedIn = true
	result.NextPath = users.DashboardPath(user)
	return result, nil
}
