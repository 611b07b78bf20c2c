// Package config loads the harness properties from the environment and an
// optional .env style property file.
package config

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/slav123/ews-mtgs-conformance/ews"
)

// Authentication modes accepted in EWS_AUTH.
const (
	AuthBasic    = "basic"
	AuthOAuth2   = "oauth2"
	AuthWorkMail = "workmail"
)

// Config holds every property the scenarios read.
type Config struct {
	URL            string `env:"EWS_URL"`
	Version        string `env:"EWS_VERSION" envDefault:"Exchange2010_SP2"`
	Auth           string `env:"EWS_AUTH" envDefault:"basic"`
	TimeoutSeconds int    `env:"EWS_TIMEOUT_SECONDS" envDefault:"30"`

	Domain            string `env:"DOMAIN"`
	OrganizerName     string `env:"ORGANIZER_NAME"`
	OrganizerPassword string `env:"ORGANIZER_PASSWORD"`
	AttendeeName      string `env:"ATTENDEE_NAME"`
	AttendeePassword  string `env:"ATTENDEE_PASSWORD"`
	DelegateName      string `env:"DELEGATE_NAME"`
	DelegatePassword  string `env:"DELEGATE_PASSWORD"`
	RoomName          string `env:"ROOM_NAME"`

	Location            string `env:"LOCATION" envDefault:"Conference Room 1"`
	LocationUpdate      string `env:"LOCATION_UPDATE" envDefault:"Conference Room 2"`
	MeetingSubject      string `env:"MEETING_SUBJECT" envDefault:"MeetingSubject"`
	SubjectUpdate       string `env:"SUBJECT_UPDATE" envDefault:"SubjectUpdate"`
	MeetingWorkspaceURL string `env:"MEETING_WORKSPACE_URL" envDefault:"http://meetingworkspace.contoso.com"`
	NetShowURL          string `env:"NET_SHOW_URL" envDefault:"http://netshow.contoso.com"`

	// WaitTime is in milliseconds.
	WaitTime int `env:"WAIT_TIME" envDefault:"3000"`
	// RetryCount is kept as text so that a malformed value fails suite
	// initialisation rather than loading.
	RetryCount string `env:"RETRY_COUNT" envDefault:"10"`
	// TimeInterval is in hours.
	TimeInterval int `env:"TIME_INTERVAL" envDefault:"1"`

	PatternInterval     int `env:"PATTERN_INTERVAL" envDefault:"1"`
	NumberOfOccurrences int `env:"NUMBER_OF_OCCURRENCES" envDefault:"3"`
	InstanceIndex       int `env:"INSTANCE_INDEX" envDefault:"1"`

	OAuthTenantID     string `env:"OAUTH_TENANT_ID"`
	OAuthClientID     string `env:"OAUTH_CLIENT_ID"`
	OAuthClientSecret string `env:"OAUTH_CLIENT_SECRET"`

	AWSRegion                   string `env:"AWS_REGION"`
	WorkMailOrganizationID      string `env:"WORKMAIL_ORGANIZATION_ID"`
	WorkMailImpersonationRoleID string `env:"WORKMAIL_IMPERSONATION_ROLE_ID"`

	EnabledRequirements  []int `env:"ENABLED_REQUIREMENTS" envSeparator:","`
	DisabledRequirements []int `env:"DISABLED_REQUIREMENTS" envSeparator:","`
}

// defaultRequirements are the product behaviours a current Exchange server
// implements.
var defaultRequirements = map[int]bool{
	504: true,
	806: true,
	808: true,
}

// Load reads the property files, then the environment. Variables already
// set in the environment win over the files.
func Load(files ...string) (*Config, error) {
	var existing []string
	for _, f := range files {
		if f == "" {
			continue
		}
		if _, err := os.Stat(f); err != nil {
			return nil, fmt.Errorf("error reading property file %s: %w", f, err)
		}
		existing = append(existing, f)
	}

	if len(existing) > 0 {
		if err := godotenv.Load(existing...); err != nil {
			return nil, fmt.Errorf("error loading property files: %w", err)
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("error parsing environment variables: %w", err)
	}

	return cfg, nil
}

// Validate reports every property that makes the configuration unusable.
func (c *Config) Validate() error {
	var errs []string

	if c.URL == "" {
		errs = append(errs, "EWS_URL is required")
	}
	if c.OrganizerName == "" || c.AttendeeName == "" {
		errs = append(errs, "ORGANIZER_NAME and ATTENDEE_NAME are required")
	}
	if _, err := c.Retries(); err != nil {
		errs = append(errs, err.Error())
	}
	if c.InstanceIndex < 1 || c.InstanceIndex > c.NumberOfOccurrences {
		errs = append(errs, fmt.Sprintf("INSTANCE_INDEX %d is outside 1..%d", c.InstanceIndex, c.NumberOfOccurrences))
	}

	switch strings.ToLower(c.Auth) {
	case AuthBasic:
		if c.OrganizerPassword == "" || c.AttendeePassword == "" {
			errs = append(errs, "basic authentication needs ORGANIZER_PASSWORD and ATTENDEE_PASSWORD")
		}
	case AuthOAuth2:
		if c.OAuthTenantID == "" || c.OAuthClientID == "" || c.OAuthClientSecret == "" {
			errs = append(errs, "oauth2 authentication needs OAUTH_TENANT_ID, OAUTH_CLIENT_ID and OAUTH_CLIENT_SECRET")
		}
	case AuthWorkMail:
		if c.AWSRegion == "" || c.WorkMailOrganizationID == "" || c.WorkMailImpersonationRoleID == "" {
			errs = append(errs, "workmail authentication needs AWS_REGION, WORKMAIL_ORGANIZATION_ID and WORKMAIL_IMPERSONATION_ROLE_ID")
		}
	default:
		errs = append(errs, fmt.Sprintf("unknown EWS_AUTH %q", c.Auth))
	}

	if len(errs) > 0 {
		return errors.New("invalid configuration: " + strings.Join(errs, "; "))
	}
	return nil
}

// Retries parses RetryCount.
func (c *Config) Retries() (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(c.RetryCount))
	if err != nil {
		return 0, fmt.Errorf("RETRY_COUNT %q is not an integer", c.RetryCount)
	}
	if n < 1 {
		return 0, fmt.Errorf("RETRY_COUNT must be positive, got %d", n)
	}
	return n, nil
}

// Wait returns WaitTime as a duration.
func (c *Config) Wait() time.Duration {
	return time.Duration(c.WaitTime) * time.Millisecond
}

// Address returns the SMTP address of a user name in the configured domain.
func (c *Config) Address(name string) string {
	if strings.Contains(name, "@") || c.Domain == "" {
		return name
	}
	return name + "@" + c.Domain
}

// RequirementEnabled reports whether a product behaviour requirement is
// expected of the server. Disabled ids win over enabled ones.
func (c *Config) RequirementEnabled(id int) bool {
	for _, d := range c.DisabledRequirements {
		if d == id {
			return false
		}
	}
	for _, e := range c.EnabledRequirements {
		if e == id {
			return true
		}
	}
	return defaultRequirements[id]
}

// Authenticator builds the authenticator named by EWS_AUTH.
func (c *Config) Authenticator(ctx context.Context, log *logrus.Entry) (ews.Authenticator, error) {
	switch strings.ToLower(c.Auth) {
	case AuthBasic, "":
		return ews.BasicAuth{}, nil
	case AuthOAuth2:
		return ews.NewClientCredentialsAuth(ctx, c.OAuthTenantID, c.OAuthClientID, c.OAuthClientSecret), nil
	case AuthWorkMail:
		w, err := ews.NewWorkMailImpersonation(ctx, c.AWSRegion, c.WorkMailOrganizationID, c.WorkMailImpersonationRoleID)
		if err != nil {
			return nil, err
		}
		w.Log = log
		return w, nil
	default:
		return nil, fmt.Errorf("unknown EWS_AUTH %q", c.Auth)
	}
}

// NewClient creates an EWS client acting as the organizer.
func (c *Config) NewClient(ctx context.Context, log *logrus.Entry, opts ...ews.Option) (*ews.EWSClient, error) {
	auth, err := c.Authenticator(ctx, log)
	if err != nil {
		return nil, fmt.Errorf("error creating authenticator: %w", err)
	}

	base := []ews.Option{
		ews.WithAuthenticator(auth),
		ews.WithLogger(log),
		ews.WithVersion(c.Version),
		ews.WithDomain(c.Domain),
		ews.WithHTTPClient(&http.Client{Timeout: time.Duration(c.TimeoutSeconds) * time.Second}),
	}

	return ews.NewClient(c.URL, c.OrganizerName, c.OrganizerPassword, append(base, opts...)...)
}
