// Package scenario holds the copy, move and multiple-item calendar scenarios
// and runs them against a server.
package scenario

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/slav123/ews-mtgs-conformance/internal/config"
	"github.com/slav123/ews-mtgs-conformance/internal/harness"
	"github.com/slav123/ews-mtgs-conformance/internal/requirement"
)

// Scenario is one test case.
type Scenario struct {
	// ID is the short name, e.g. S03_TC01.
	ID          string
	Title       string
	Description string
	Run         func(ctx context.Context, s *harness.Suite) error
}

// Name returns the full scenario name, e.g. MSOXWSMTGS_S03_TC01_CopySingleCalendar.
func (sc Scenario) Name() string {
	return harness.ResourcePrefix + "_" + sc.ID + "_" + sc.Title
}

var registry = map[string]Scenario{}

func register(sc Scenario) {
	if _, ok := registry[sc.ID]; ok {
		panic("scenario: duplicate " + sc.ID)
	}
	registry[sc.ID] = sc
}

// All returns every scenario ordered by ID.
func All() []Scenario {
	out := make([]Scenario, 0, len(registry))
	for _, sc := range registry {
		out = append(out, sc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Select returns the scenarios whose ID or full name matches any of the glob
// patterns. No patterns selects everything.
func Select(patterns ...string) ([]Scenario, error) {
	all := All()
	if len(patterns) == 0 {
		return all, nil
	}

	var out []Scenario
	for _, sc := range all {
		for _, p := range patterns {
			ok, err := matches(p, sc)
			if err != nil {
				return nil, fmt.Errorf("error matching scenario pattern %q: %w", p, err)
			}
			if ok {
				out = append(out, sc)
				break
			}
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no scenario matches %s", strings.Join(patterns, ", "))
	}
	return out, nil
}

func matches(pattern string, sc Scenario) (bool, error) {
	for _, name := range []string{sc.ID, sc.ID + "_" + sc.Title, sc.Name()} {
		ok, err := path.Match(pattern, name)
		if err != nil || ok {
			return ok, err
		}
	}
	return false, nil
}

// Result is the outcome of one scenario.
type Result struct {
	Scenario     string              `json:"scenario"`
	Description  string              `json:"description"`
	Passed       bool                `json:"passed"`
	Error        string              `json:"error,omitempty"`
	Elapsed      string              `json:"elapsed"`
	Requirements []requirement.Entry `json:"requirements"`

	Err error `json:"-"`
}

// Report is the outcome of a run.
type Report struct {
	Started   time.Time           `json:"started"`
	Passed    int                 `json:"passed"`
	Failed    int                 `json:"failed"`
	Scenarios []Result            `json:"scenarios"`
	Summary   requirement.Summary `json:"summary"`
}

// OK reports whether every scenario passed.
func (r Report) OK() bool { return r.Failed == 0 }

// Connector builds the adapters a scenario runs with.
type Connector func(ctx context.Context, cfg *config.Config, log *logrus.Entry) (harness.Adapters, error)

// Dial connects with an EWS client built from configuration.
func Dial(ctx context.Context, cfg *config.Config, log *logrus.Entry) (harness.Adapters, error) {
	client, err := cfg.NewClient(ctx, log)
	if err != nil {
		return harness.Adapters{}, err
	}
	return harness.NewAdapters(client), nil
}

// Runner runs scenarios one after another.
type Runner struct {
	cfg     *config.Config
	log     *logrus.Entry
	connect Connector
	opts    []harness.Option
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithConnector replaces Dial.
func WithConnector(c Connector) RunnerOption {
	return func(r *Runner) { r.connect = c }
}

// WithSuiteOptions passes options to every suite.
func WithSuiteOptions(opts ...harness.Option) RunnerOption {
	return func(r *Runner) { r.opts = append(r.opts, opts...) }
}

// NewRunner creates a runner.
func NewRunner(cfg *config.Config, log *logrus.Entry, opts ...RunnerOption) *Runner {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	r := &Runner{cfg: cfg, log: log, connect: Dial}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run runs one scenario with a fresh suite and recorder.
func (r *Runner) Run(ctx context.Context, sc Scenario) Result {
	log := r.log.WithField("scenario", sc.ID)
	rec := requirement.NewRecorder(requirement.DefaultProtocol, log, r.cfg.RequirementEnabled)
	start := time.Now()

	err := r.run(ctx, sc, rec, log)

	res := Result{
		Scenario:     sc.Name(),
		Description:  sc.Description,
		Passed:       err == nil,
		Elapsed:      time.Since(start).Round(time.Millisecond).String(),
		Requirements: rec.Entries(),
		Err:          err,
	}
	if err != nil {
		res.Error = err.Error()
		log.WithError(err).Error("scenario failed")
	} else {
		log.WithField("elapsed", res.Elapsed).Info("scenario passed")
	}
	return res
}

func (r *Runner) run(ctx context.Context, sc Scenario, rec *requirement.Recorder, log *logrus.Entry) (err error) {
	adapters, err := r.connect(ctx, r.cfg, log)
	if err != nil {
		return fmt.Errorf("error connecting: %w", err)
	}

	s, err := harness.New(sc.ID, r.cfg, adapters, rec, log, r.opts...)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.Cleanup(ctx); cerr != nil && err == nil {
			err = fmt.Errorf("error cleaning up: %w", cerr)
		}
	}()

	return sc.Run(ctx, s)
}

// RunAll runs the scenarios in order and collects a report.
func (r *Runner) RunAll(ctx context.Context, scenarios []Scenario) Report {
	report := Report{Started: time.Now()}

	var entries []requirement.Entry
	for _, sc := range scenarios {
		if ctx.Err() != nil {
			break
		}
		res := r.Run(ctx, sc)
		if res.Passed {
			report.Passed++
		} else {
			report.Failed++
		}
		entries = append(entries, res.Requirements...)
		report.Scenarios = append(report.Scenarios, res)
	}

	report.Summary = requirement.Summarize(entries)
	return report
}
