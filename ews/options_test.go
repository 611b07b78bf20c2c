package ews

import (
	"net/http"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/metric/noop"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

func TestNewConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		c := newConfig()
		assert.Equal(t, DefaultVersion, c.version)
		assert.Equal(t, BasicAuth{}, c.auth)
		assert.Equal(t, time.Local, c.timeZone)
		assert.NotNil(t, c.httpClient)
		assert.NotNil(t, c.log)
		assert.NotNil(t, c.MeterProvider)
		assert.NotNil(t, c.TracerProvider)
	})

	t.Run("options", func(t *testing.T) {
		httpClient := &http.Client{}
		log := logrus.NewEntry(logrus.New())
		auth := TokenAuth{}
		mp := noop.NewMeterProvider()
		tp := tracenoop.NewTracerProvider()

		c := newConfig(
			WithHTTPClient(httpClient),
			WithAuthenticator(auth),
			WithLogger(log),
			WithVersion("Exchange2013"),
			WithDomain("contoso.com"),
			WithTimeZone(time.UTC),
			WithMeterProvider(mp),
			WithTracerProvider(tp),
		)

		assert.Same(t, httpClient, c.httpClient)
		assert.Equal(t, auth, c.auth)
		assert.Same(t, log, c.log)
		assert.Equal(t, "Exchange2013", c.version)
		assert.Equal(t, "contoso.com", c.domain)
		assert.Equal(t, time.UTC, c.timeZone)
		assert.Equal(t, mp, c.MeterProvider)
		assert.Equal(t, tp, c.TracerProvider)
	})

	t.Run("empty version keeps the default", func(t *testing.T) {
		assert.Equal(t, DefaultVersion, newConfig(WithVersion("")).version)
	})
}
