package ews

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// EWSClient sends Exchange Web Services operations for one acting mailbox
// at a time. It satisfies the meetings, search and folder adapters of the
// conformance harness.
type EWSClient struct {
	URL     string
	Version string
	Client  *http.Client
	Auth    Authenticator
	Log     *logrus.Entry
	// TimeZone location for consistent timezone handling
	TimeZone *time.Location

	instr *instrumentation

	mu       sync.RWMutex
	username string
	password string
	domain   string
	last     ExchangeInfo
}

// ExchangeInfo describes the transport of the most recent request.
type ExchangeInfo struct {
	Operation     string
	Scheme        string
	StatusCode    int
	ContentType   string
	ServerVersion *ServerVersionInfo
}

// NewClient creates a new EWS client with the provided credentials.
// It uses the local timezone and basic authentication by default.
func NewClient(url, username, password string, opts ...Option) (*EWSClient, error) {
	cfg := newConfig(opts...)

	instr, err := newInstrumentation(cfg.TracerProvider, cfg.MeterProvider)
	if err != nil {
		return nil, err
	}

	return &EWSClient{
		URL:      url,
		Version:  cfg.version,
		Client:   cfg.httpClient,
		Auth:     cfg.auth,
		Log:      cfg.log.WithField("component", "ews"),
		TimeZone: cfg.timeZone,
		instr:    instr,
		username: username,
		password: password,
		domain:   cfg.domain,
	}, nil
}

// NewClientWithTimezone creates a new EWS client with a specific timezone
func NewClientWithTimezone(url, username, password, timezone string, opts ...Option) (*EWSClient, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone: %w", err)
	}

	return NewClient(url, username, password, append(opts, WithTimeZone(loc))...)
}

// SwitchUser changes the mailbox subsequent requests act as.
func (c *EWSClient) SwitchUser(user, password, domain string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.username = user
	c.password = password
	c.domain = domain
	c.Log.WithField("mailbox", Identity{Username: user, Domain: domain}.Address()).Debug("switched user")
}

// Identity returns the acting mailbox.
func (c *EWSClient) Identity() Identity {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return Identity{Username: c.username, Password: c.password, Domain: c.domain}
}

// LastExchange returns the transport details of the most recent request.
func (c *EWSClient) LastExchange() ExchangeInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.last
}

func (c *EWSClient) recordExchange(info ExchangeInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.last = info
}

// FormatDateWithTZ formats a time.Time with the client's timezone for EWS requests
func (c *EWSClient) FormatDateWithTZ(t time.Time) string {
	return t.In(c.TimeZone).Format("2006-01-02T15:04:05-07:00")
}

// ParseDateTime parses the date-time forms EWS emits. Values without an
// offset are taken to be in loc.
func ParseDateTime(dateStr string, loc *time.Location) (time.Time, error) {
	// Try to parse with timezone first (with offset)
	t, err := time.Parse(time.RFC3339, dateStr)
	if err == nil {
		return t, nil
	}

	// Try with timezone offset without colon (e.g., -0700)
	t, err = time.Parse("2006-01-02T15:04:05-0700", dateStr)
	if err == nil {
		return t, nil
	}

	if loc == nil {
		loc = time.UTC
	}

	t, err = time.ParseInLocation("2006-01-02T15:04:05", dateStr, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("unable to parse date string '%s': %w", dateStr, err)
	}

	return t, nil
}

// GetCalendarItems retrieves calendar items between the specified dates,
// with recurring series expanded into occurrences.
func (c *EWSClient) GetCalendarItems(ctx context.Context, startDate, endDate time.Time) ([]CalendarItem, error) {
	resp, err := c.FindItem(ctx, &FindItem{
		Traversal: Shallow,
		ItemShape: ItemShape{BaseShape: AllProperties},
		CalendarView: &CalendarView{
			StartDate: c.FormatDateWithTZ(startDate),
			EndDate:   c.FormatDateWithTZ(endDate),
		},
		ParentFolderIds: NewFolderIds(FolderCalendar),
	})
	if err != nil {
		return nil, err
	}

	if err := resp.FirstError(); err != nil {
		return nil, fmt.Errorf("EWS error: %w", err)
	}

	var items []CalendarItem
	for _, m := range resp.Messages() {
		if m.RootFolder != nil && m.RootFolder.Items != nil {
			items = append(items, m.RootFolder.Items.CalendarItem...)
		}
	}
	return items, nil
}

// call sends one operation and decodes its response. EWS response messages
// with class Error are returned as data; only transport, SOAP and decoding
// failures are errors.
func (c *EWSClient) call(ctx context.Context, operation string, request interface{}) (resp *Response, err error) {
	id := c.Identity()

	ctx, span := c.instr.start(ctx, operation, id.Address())
	start := time.Now()
	defer func() { c.instr.finish(ctx, span, operation, start, resp, err) }()

	log := c.Log.WithFields(logrus.Fields{"operation": operation, "mailbox": id.Address()})

	header := &Header{RequestServerVersion: &RequestServerVersion{Version: c.Version}}
	if c.Auth.Impersonates() {
		header.ExchangeImpersonation = &ExchangeImpersonation{
			ConnectingSID: ConnectingSID{PrimarySmtpAddress: id.Address()},
		}
	}

	// Convert the envelope to XML
	xmlData, err := xml.MarshalIndent(NewEnvelope(header, request), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("error marshalling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(append([]byte(xml.Header), xmlData...)))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", NSMessages+"/"+operation)
	if err := c.Auth.Authorize(ctx, req, id); err != nil {
		return nil, fmt.Errorf("error authorizing request: %w", err)
	}

	log.Debug("sending request")
	httpResp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error sending request: %w", err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response body: %w", err)
	}

	info := ExchangeInfo{
		Operation:   operation,
		Scheme:      req.URL.Scheme,
		StatusCode:  httpResp.StatusCode,
		ContentType: httpResp.Header.Get("Content-Type"),
	}
	defer func() { c.recordExchange(info) }()

	ed, decodeErr := NewEnvelopeDecoder(bytes.NewReader(body))
	if decodeErr == nil {
		info.ServerVersion = ed.Header.ServerVersionInfo
		if ed.IsFault() {
			fault, err := ed.Fault()
			if err != nil {
				return nil, fmt.Errorf("error unmarshalling fault: %w", err)
			}
			log.WithField("fault", fault.Code).Warn("request faulted")
			return nil, fault
		}
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d, body: %s", httpResp.StatusCode, string(body))
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("error unmarshalling response: %w", decodeErr)
	}

	if want := operation + "Response"; ed.Operation() != want {
		return nil, fmt.Errorf("unexpected response element %s, want %s", ed.Operation(), want)
	}

	resp = &Response{}
	if err := ed.Decode(resp); err != nil {
		return nil, fmt.Errorf("error unmarshalling response: %w", err)
	}

	log.WithField("messages", len(resp.Messages())).Debug("received response")
	return resp, nil
}
