package users

import (
	"fmt"
	"strings"
	"unicode"

	apperrors "github.com/manishahirrao/postpilot/internal/errors"
)

// AccountType selects the personal or company product experience
type AccountType string

const (
	AccountPersonal AccountType = "personal"
	AccountCompany  AccountType = "company"
)

// Subscription plans
const (
	PlanFree         = "free"
	PlanStarter      = "starter"
	PlanProfessional = "professional"
	PlanEnterprise   = "enterprise"
)

// Dashboard routes for role-based routing
const (
	RouteLogin             = "/login"
	RouteVerifyEmail       = "/verify-email"
	RouteDashboard         = "/dashboard"
	RoutePersonalDashboard = "/dashboard/personal"
	RouteCompanyDashboard  = "/dashboard/company"
)

type Profile struct {
	FullName         string `json:"full_name"`
	Headline         string `json:"headline,omitempty"`
	Bio              string `json:"bio,omitempty"`
	SubscriptionPlan string `json:"subscription_plan"`
	Credits          int    `json:"credits"`
	MaxCredits       int    `json:"max_credits"`
}

type User struct {
	ID            string      `json:"id"`
	Email         string      `json:"email"`
	AccountType   AccountType `json:"account_type"`
	EmailVerified bool        `json:"email_verified"`
	IsActive      bool        `json:"is_active"`
	Profile       Profile     `json:"profile"`
}

// ParseAccountType accepts the wire values case-insensitively.
func ParseAccountType(s string) (AccountType, error) {
	switch AccountType(strings.ToLower(strings.TrimSpace(s))) {
	case AccountPersonal:
		return AccountPersonal, nil
	case AccountCompany:
		return AccountCompany, nil
	default:
		return "", fmt.Errorf("%w: %q", apperrors.ErrInvalidAccountType, s)
	}
}

func (a AccountType) Valid() bool {
	return a == AccountPersonal || a == AccountCompany
}

// DefaultProfile is used when the server response omits the profile.
func DefaultProfile(email string, accountType AccountType) Profile {
	maxCredits := 10
	if accountType == AccountCompany {
		maxCredits = 50
	}
	return Profile{
		FullName:         nameFromEmail(email),
		SubscriptionPlan: PlanFree,
		Credits:          0,
		MaxCredits:       maxCredits,
	}
}

// ApplyProfileDefaults fills profile fields missing from a server response.
func (u *User) ApplyProfileDefaults() {
	if !u.AccountType.Valid() {
		u.AccountType = AccountPersonal
	}
	defaults := DefaultProfile(u.Email, u.AccountType)
	if u.Profile.FullName == "" {
		u.Profile.FullName = defaults.FullName
	}
	if u.Profile.SubscriptionPlan == "" {
		u.Profile.SubscriptionPlan = defaults.SubscriptionPlan
	}
	if u.Profile.MaxCredits <= 0 {
		u.Profile.MaxCredits = defaults.MaxCredits
	}
	if u.Profile.Credits < 0 {
		u.Profile.Credits = 0
	}
}

// DashboardPath returns where the dashboard shell routes u.
func DashboardPath(u *User) string {
	if u == nil || !u.IsActive {
		return RouteLogin
	}
	if !u.EmailVerified {
		return RouteVerifyEmail
	}
	switch u.AccountType {
	case AccountPersonal:
		return RoutePersonalDashboard
	case AccountCompany:
		return RouteCompanyDashboard
	default:
		return RouteDashboard
	}
}

func (u *User) IsCompany() bool {
	return u.AccountType == AccountCompany
}

// HasCredits reports whether the user can generate another post
func (u *User) HasCredits() bool {
	return u.Profile.Credits < u.Profile.MaxCredits
}

// ValidatePasswordStrength checks if password meets security requirements:
// - At least 8 characters long
// - Contains uppercase and lowercase letters
// - Contains at least one number
func ValidatePasswordStrength(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters long")
	}

	var (
		hasUpper  bool
		hasLower  bool
		hasNumber bool
	)

	for _, char := range password {
		if unicode.IsUpper(char) {
			hasUpper = true
		} else if unicode.IsLower(char) {
			hasLower = true
		} else if unicode.IsDigit(char) {
			hasNumber = true
		}
	}

	if !hasUpper {
		return fmt.Errorf("password must contain at least one uppercase letter")
	}
	if !hasLower {
		return fmt.Errorf("password must contain at least one lowercase letter")
	}
	if !hasNumber {
		return fmt.Errorf("password must contain at least one number")
	}

	return nil
}

func nameFromEmail(email string) string {
	local, _, _ := strings.Cut(email, "@")
	parts := strings.FieldsFunc(local, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || r == '+'
	})
	for i, p := range parts {
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, " ")
}
