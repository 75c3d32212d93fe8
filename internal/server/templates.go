package server

import (
	_ "embed"
	"html/template"
	"time"

	"github.com/consolehq/admin-front/internal/apiclient"
)

//go:embed templates/login.html
var loginTemplateHTML string

//go:embed templates/relay.html
var relayTemplateHTML string

//go:embed templates/error.html
var errorTemplateHTML string

//go:embed templates/dashboard.html
var dashboardTemplateHTML string

//go:embed templates/users.html
var usersTemplateHTML string

//go:embed templates/audit.html
var auditTemplateHTML string

//go:embed templates/profile.html
var profileTemplateHTML string

//go:embed templates/debug.html
var debugTemplateHTML string

var (
	loginTemplate     = template.Must(template.New("login").Parse(loginTemplateHTML))
	relayTemplate     = template.Must(template.New("relay").Parse(relayTemplateHTML))
	errorTemplate     = template.Must(template.New("error").Parse(errorTemplateHTML))
	dashboardTemplate = template.Must(template.New("dashboard").Parse(dashboardTemplateHTML))
	usersTemplate     = template.Must(template.New("users").Parse(usersTemplateHTML))
	auditTemplate     = template.Must(template.New("audit").Parse(auditTemplateHTML))
	profileTemplate   = template.Must(template.New("profile").Parse(profileTemplateHTML))
	debugTemplate     = template.Must(template.New("debug").Parse(debugTemplateHTML))
)

// LoginPageData represents the data for the login page
type LoginPageData struct {
	Name        string
	DefaultFlow string
	Message     string
}

// RelayPageData drives the fragment relay page. EmptyRedirect, when set, sends
// fragment-less arrivals straight to that path instead of posting an empty
// relay.
type RelayPageData struct {
	EmptyRedirect string
}

// ErrorPageData drives the failure page. DelaySeconds feeds a meta refresh so
// the message stays readable before the browser navigates to Target.
type ErrorPageData struct {
	Message      string
	Target       string
	DelaySeconds int
	Retryable    bool
	RetryTarget  string
}

// DashboardPageData represents the data for the dashboard
type DashboardPageData struct {
	Name     string
	Identity *apiclient.Identity
	IsAdmin  bool
}

// UsersPageData represents the data for the admin user list
type UsersPageData struct {
	Name  string
	Users []apiclient.AdminUser
}

// AuditPageData represents the data for the audit log page
type AuditPageData struct {
	Name    string
	Entries []apiclient.AuditEntry
}

// ProfilePageData represents the data for the profile page
type ProfilePageData struct {
	Name        string
	Identity    *apiclient.Identity
	Message     string
	MessageType string // "success" or "error"
}

// TokenDebugEntry is one stored credential slot on the debug page
type TokenDebugEntry struct {
	Kind      string
	Present   bool
	Truncated string
	Subject   string
	Email     string
	Roles     []string
	ExpiresAt time.Time
	Expired   bool
	DecodeErr string
}

// DebugPageData represents the data for the token debug page
type DebugPageData struct {
	Name       string
	Tokens     []TokenDebugEntry
	ProbeBody  string
	ProbeError string
}
