package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slav123/ews-mtgs-conformance/ews"
)

func validConfig() *Config {
	return &Config{
		URL:                 "https://mail.contoso.com/EWS/Exchange.asmx",
		Auth:                AuthBasic,
		Domain:              "contoso.com",
		OrganizerName:       "organizer",
		OrganizerPassword:   "secret",
		AttendeeName:        "attendee",
		AttendeePassword:    "secret",
		RetryCount:          "3",
		NumberOfOccurrences: 3,
		InstanceIndex:       1,
	}
}

func TestLoad(t *testing.T) {
	t.Setenv("EWS_URL", "https://mail.contoso.com/EWS/Exchange.asmx")
	t.Setenv("ENABLED_REQUIREMENTS", "8852,710")
	t.Setenv("WAIT_TIME", "250")

	dir := t.TempDir()
	file := filepath.Join(dir, "suite.env")
	require.NoError(t, os.WriteFile(file, []byte("EWS_URL=https://ignored.example.com\nORGANIZER_NAME=file-organizer\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("ORGANIZER_NAME") })

	cfg, err := Load(file)
	require.NoError(t, err)

	assert.Equal(t, "https://mail.contoso.com/EWS/Exchange.asmx", cfg.URL, "environment wins over the property file")
	assert.Equal(t, "file-organizer", cfg.OrganizerName)
	assert.Equal(t, []int{8852, 710}, cfg.EnabledRequirements)
	assert.Equal(t, 250*time.Millisecond, cfg.Wait())
	assert.Equal(t, "Exchange2010_SP2", cfg.Version)
	assert.Equal(t, "10", cfg.RetryCount)
	assert.Equal(t, 3, cfg.NumberOfOccurrences)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid"},
		{name: "missing url", mutate: func(c *Config) { c.URL = "" }, wantErr: "EWS_URL is required"},
		{name: "missing attendee", mutate: func(c *Config) { c.AttendeeName = "" }, wantErr: "ATTENDEE_NAME"},
		{name: "retry count not an integer", mutate: func(c *Config) { c.RetryCount = "ten" }, wantErr: `RETRY_COUNT "ten" is not an integer`},
		{name: "retry count zero", mutate: func(c *Config) { c.RetryCount = "0" }, wantErr: "RETRY_COUNT must be positive"},
		{name: "instance index out of range", mutate: func(c *Config) { c.InstanceIndex = 4 }, wantErr: "INSTANCE_INDEX 4 is outside 1..3"},
		{name: "basic without password", mutate: func(c *Config) { c.OrganizerPassword = "" }, wantErr: "ORGANIZER_PASSWORD"},
		{name: "oauth2 without client", mutate: func(c *Config) { c.Auth = AuthOAuth2 }, wantErr: "OAUTH_TENANT_ID"},
		{name: "workmail without role", mutate: func(c *Config) { c.Auth = AuthWorkMail }, wantErr: "WORKMAIL_IMPERSONATION_ROLE_ID"},
		{name: "unknown auth", mutate: func(c *Config) { c.Auth = "ntlm" }, wantErr: `unknown EWS_AUTH "ntlm"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			if tt.mutate != nil {
				tt.mutate(cfg)
			}

			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRequirementEnabled(t *testing.T) {
	cfg := validConfig()
	cfg.EnabledRequirements = []int{8852}
	cfg.DisabledRequirements = []int{806}

	assert.True(t, cfg.RequirementEnabled(8852))
	assert.True(t, cfg.RequirementEnabled(808), "enabled by default")
	assert.False(t, cfg.RequirementEnabled(806), "disabled overrides the default")
	assert.False(t, cfg.RequirementEnabled(710))
}

func TestAddress(t *testing.T) {
	cfg := validConfig()

	assert.Equal(t, "organizer@contoso.com", cfg.Address("organizer"))
	assert.Equal(t, "room@fabrikam.com", cfg.Address("room@fabrikam.com"))

	cfg.Domain = ""
	assert.Equal(t, "organizer", cfg.Address("organizer"))
}

func TestAuthenticator(t *testing.T) {
	log := logrus.NewEntry(logrus.New())
	ctx := context.Background()

	cfg := validConfig()
	auth, err := cfg.Authenticator(ctx, log)
	require.NoError(t, err)
	assert.IsType(t, ews.BasicAuth{}, auth)
	assert.False(t, auth.Impersonates())

	cfg.Auth = AuthOAuth2
	cfg.OAuthTenantID, cfg.OAuthClientID, cfg.OAuthClientSecret = "tenant", "client", "secret"
	auth, err = cfg.Authenticator(ctx, log)
	require.NoError(t, err)
	assert.IsType(t, ews.TokenAuth{}, auth)
	assert.True(t, auth.Impersonates())

	cfg.Auth = "ntlm"
	_, err = cfg.Authenticator(ctx, log)
	require.Error(t, err)
}

func TestNewClient(t *testing.T) {
	cfg := validConfig()
	cfg.Version = "Exchange2013_SP1"
	cfg.TimeoutSeconds = 5

	c, err := cfg.NewClient(context.Background(), logrus.NewEntry(logrus.New()))
	require.NoError(t, err)

	assert.Equal(t, cfg.URL, c.URL)
	assert.Equal(t, "Exchange2013_SP1", c.Version)
	assert.Equal(t, 5*time.Second, c.Client.Timeout)
	assert.Equal(t, "organizer@contoso.com", c.Identity().Address())
}
