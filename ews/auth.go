package ews

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/workmail"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	// tokenRefreshBuffer is a buffer to proactively refresh the token before it expires.
	tokenRefreshBuffer = 5 * time.Minute
)

// Identity is the mailbox user a request acts as.
type Identity struct {
	Username string
	Password string
	Domain   string
}

// Address returns the SMTP address of the identity.
func (id Identity) Address() string {
	if strings.Contains(id.Username, "@") || id.Domain == "" {
		return id.Username
	}
	return id.Username + "@" + id.Domain
}

// Authenticator signs outgoing EWS requests for an identity.
type Authenticator interface {
	Authorize(ctx context.Context, req *http.Request, id Identity) error
	// Impersonates reports whether requests must carry the
	// ExchangeImpersonation header naming the identity.
	Impersonates() bool
}

// BasicAuth sends the identity's own credentials on each request.
type BasicAuth struct{}

func (BasicAuth) Authorize(_ context.Context, req *http.Request, id Identity) error {
	req.SetBasicAuth(id.Address(), id.Password)
	return nil
}

func (BasicAuth) Impersonates() bool { return false }

// TokenAuth sends a bearer token from an OAuth2 token source and acts for the
// identity through impersonation.
type TokenAuth struct {
	Source oauth2.TokenSource
}

func (a TokenAuth) Authorize(_ context.Context, req *http.Request, _ Identity) error {
	if a.Source == nil {
		return errors.New("no token source configured")
	}
	token, err := a.Source.Token()
	if err != nil {
		return fmt.Errorf("failed to get oauth2 token: %w", err)
	}
	token.SetAuthHeader(req)
	return nil
}

func (TokenAuth) Impersonates() bool { return true }

// ExchangeOnlineScope is the application permission scope for EWS in Exchange Online.
const ExchangeOnlineScope = "https://outlook.office365.com/.default"

// NewClientCredentialsAuth authenticates an Entra ID application with the
// client credentials grant.
func NewClientCredentialsAuth(ctx context.Context, tenantID, clientID, clientSecret string) TokenAuth {
	cfg := clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     "https://login.microsoftonline.com/" + tenantID + "/oauth2/v2.0/token",
		Scopes:       []string{ExchangeOnlineScope},
	}
	return TokenAuth{Source: cfg.TokenSource(ctx)}
}

// ImpersonationRoleAssumer is the subset of the WorkMail API used to obtain
// EWS impersonation tokens.
type ImpersonationRoleAssumer interface {
	AssumeImpersonationRole(ctx context.Context, params *workmail.AssumeImpersonationRoleInput, optFns ...func(*workmail.Options)) (*workmail.AssumeImpersonationRoleOutput, error)
}

// WorkMailImpersonation authenticates with a token from an AWS WorkMail
// impersonation role.
type WorkMailImpersonation struct {
	OrganizationID      string
	ImpersonationRoleID string
	WorkMail            ImpersonationRoleAssumer
	Log                 *logrus.Entry

	tokenLock    sync.Mutex
	currentToken *string
	tokenExpiry  time.Time
}

// NewWorkMailImpersonation loads AWS credentials using the default chain
// (environment, shared credentials, IAM roles).
func NewWorkMailImpersonation(ctx context.Context, awsRegion, workmailOrgID, impersonationRoleID string) (*WorkMailImpersonation, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(awsRegion))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return NewWorkMailImpersonationWithAWSConfig(cfg, workmailOrgID, impersonationRoleID), nil
}

// NewWorkMailImpersonationWithAWSConfig uses a provided AWS config.
func NewWorkMailImpersonationWithAWSConfig(cfg aws.Config, workmailOrgID, impersonationRoleID string) *WorkMailImpersonation {
	return &WorkMailImpersonation{
		OrganizationID:      workmailOrgID,
		ImpersonationRoleID: impersonationRoleID,
		WorkMail:            workmail.NewFromConfig(cfg),
	}
}

func (w *WorkMailImpersonation) Authorize(ctx context.Context, req *http.Request, _ Identity) error {
	token, err := w.getToken(ctx)
	if err != nil {
		return fmt.Errorf("failed to get EWS token: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}

func (w *WorkMailImpersonation) Impersonates() bool { return true }

// getToken retrieves a valid EWS access token, refreshing if necessary.
func (w *WorkMailImpersonation) getToken(ctx context.Context) (string, error) {
	w.tokenLock.Lock()
	defer w.tokenLock.Unlock()

	if w.currentToken != nil && time.Now().Before(w.tokenExpiry.Add(-tokenRefreshBuffer)) {
		return *w.currentToken, nil
	}

	log := w.Log
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	log.Debug("refreshing WorkMail impersonation token")
	resp, err := w.WorkMail.AssumeImpersonationRole(ctx, &workmail.AssumeImpersonationRoleInput{
		OrganizationId:      aws.String(w.OrganizationID),
		ImpersonationRoleId: aws.String(w.ImpersonationRoleID),
	})
	if err != nil {
		return "", fmt.Errorf("failed to assume impersonation role: %w", err)
	}

	if resp.Token == nil || resp.ExpiresIn == nil {
		return "", errors.New("AssumeImpersonationRole response missing token or expiry")
	}

	w.currentToken = resp.Token
	w.tokenExpiry = time.Now().Add(time.Duration(*resp.ExpiresIn) * time.Second)
	log.WithField("expires", w.tokenExpiry.Format(time.RFC3339)).Debug("refreshed WorkMail impersonation token")

	return *w.currentToken, nil
}
