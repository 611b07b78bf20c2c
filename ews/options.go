package ews

import (
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

type clientConfig struct {
	MeterProvider  metric.MeterProvider
	TracerProvider trace.TracerProvider

	httpClient *http.Client
	auth       Authenticator
	log        *logrus.Entry
	version    string
	domain     string
	timeZone   *time.Location
}

// Option specifies client configuration options.
type Option interface {
	apply(*clientConfig)
}

type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

// WithHTTPClient sets the HTTP client used to reach the server.
func WithHTTPClient(client *http.Client) Option {
	return optionFunc(func(c *clientConfig) { c.httpClient = client })
}

// WithAuthenticator replaces basic authentication.
func WithAuthenticator(auth Authenticator) Option {
	return optionFunc(func(c *clientConfig) { c.auth = auth })
}

// WithLogger sets the entry the client logs through.
func WithLogger(log *logrus.Entry) Option {
	return optionFunc(func(c *clientConfig) { c.log = log })
}

// WithVersion sets the RequestServerVersion header value.
func WithVersion(version string) Option {
	return optionFunc(func(c *clientConfig) {
		if version != "" {
			c.version = version
		}
	})
}

// WithDomain sets the domain appended to bare user names.
func WithDomain(domain string) Option {
	return optionFunc(func(c *clientConfig) { c.domain = domain })
}

// WithTimeZone sets the location used by the date helpers.
func WithTimeZone(loc *time.Location) Option {
	return optionFunc(func(c *clientConfig) { c.timeZone = loc })
}

// WithMeterProvider specifies the metric.MeterProvider instance to use for the instrumentation.
// By default, the global metric.MeterProvider is used.
func WithMeterProvider(provider metric.MeterProvider) Option {
	return optionFunc(func(c *clientConfig) { c.MeterProvider = provider })
}

// WithTracerProvider specifies the trace.TracerProvider instance to use for the instrumentation.
// By default, the global trace.TracerProvider is used.
func WithTracerProvider(provider trace.TracerProvider) Option {
	return optionFunc(func(c *clientConfig) { c.TracerProvider = provider })
}

// newConfig computes a clientConfig from the supplied Options.
func newConfig(opts ...Option) clientConfig {
	c := clientConfig{
		MeterProvider:  otel.GetMeterProvider(),
		TracerProvider: otel.GetTracerProvider(),
		httpClient:     &http.Client{Timeout: 30 * time.Second},
		auth:           BasicAuth{},
		log:            logrus.NewEntry(logrus.StandardLogger()),
		version:        DefaultVersion,
		timeZone:       time.Local,
	}

	for _, opt := range opts {
		opt.apply(&c)
	}

	return c
}
