package uplink

import (
	"context"
	"sync"

	"github.com/evergreen-ci/birch"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
	"github.com/mongodb/uplink/config"
	"github.com/pkg/errors"
)

// Component is the embedding unit whose charts an instance reports.
type Component interface {
	Name() string
	Version() string
	// Active reports whether the host still runs the component.
	Active() bool
}

// Metrics is the uplink instance embedded by one component. It owns
// the component's charts and registers itself with the process-wide
// registry; the first instance to register also schedules and
// submits reports for every instance in the process.
type Metrics struct {
	component Component
	opts      Options
	conf      config.Config
	enabled   bool
	leader    bool

	mu     sync.RWMutex
	charts []Chart

	scheduler *scheduler
	cancel    context.CancelFunc
}

// New constructs the instance for component. Problems with the
// settings file are tolerated and defaults are used; New only fails
// when the component or options are invalid.
func New(component Component, opts Options) (*Metrics, error) {
	if component == nil {
		return nil, errors.New("component cannot be nil")
	}
	if err := opts.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid uplink options")
	}
	if opts.Registry == nil {
		opts.Registry = DefaultRegistry()
	}

	conf, err := config.Load(opts.ConfigPath)
	grip.WarningWhen(conf.LogFailedRequests && err != nil, message.WrapError(err, message.Fields{
		"op":     "loading uplink settings",
		"plugin": component.Name(),
	}))

	m := &Metrics{
		component: component,
		opts:      opts,
		conf:      conf,
		enabled:   conf.Enabled && !opts.OptOut,
	}

	if !m.enabled {
		return m, nil
	}

	m.leader = opts.Registry.Register(component.Name(), m)
	if m.leader {
		m.startSubmitting()
	}

	return m, nil
}

func (m *Metrics) startSubmitting() {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel

	st := newStats(m.opts.Registerer)
	transport := NewTransport(TransportOptions{
		Endpoint:              m.opts.Endpoint,
		Client:                m.opts.HTTPClient,
		LogSentData:           m.conf.LogSentData,
		LogResponseStatusText: m.conf.LogResponseStatusText,
		stats:                 st,
	})

	m.scheduler = newScheduler(schedulerOptions{
		clock:       m.opts.Clock,
		executor:    m.opts.Executor,
		active:      m.component.Active,
		collect:     func(context.Context) *birch.Document { return m.Report() },
		submit:      transport.Send,
		logFailures: m.conf.LogFailedRequests,
		stats:       st,
	})
	m.scheduler.start(ctx)
}

// UplinkProtocolVersion marks the instance for other instances
// scanning the registry.
func (m *Metrics) UplinkProtocolVersion() int { return ProtocolVersion }

// Active reports whether the owning component is still running.
func (m *Metrics) Active() bool { return m.component.Active() }

// Enabled reports whether submissions are enabled for this instance.
func (m *Metrics) Enabled() bool { return m.enabled }

// Leader reports whether this instance schedules submissions for the
// process.
func (m *Metrics) Leader() bool { return m.leader }

// ServerUUID returns the anonymous identity of the process.
func (m *Metrics) ServerUUID() string { return m.conf.ServerUUID }

// SchedulerState returns the state of the instance's scheduler;
// followers and disabled instances stay idle.
func (m *Metrics) SchedulerState() SchedulerState {
	if m.scheduler == nil {
		return StateIdle
	}
	return m.scheduler.State()
}

// AddChart registers a chart with the instance.
func (m *Metrics) AddChart(c Chart) error {
	if err := validateChart(c); err != nil {
		return errors.WithStack(err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.charts = append(m.charts, c)

	return nil
}

// PluginData renders the component's fragment: its name, version and
// every chart that was not omitted this cycle.
func (m *Metrics) PluginData() (*birch.Document, error) {
	m.mu.RLock()
	charts := make([]Chart, len(m.charts))
	copy(charts, m.charts)
	m.mu.RUnlock()

	customCharts := birch.NewArray()
	for _, c := range charts {
		rendered := Render(c)
		switch rendered.Outcome {
		case OutcomeOK:
			customCharts.Append(birch.VC.Document(rendered.Fragment))
		case OutcomeFailed:
			grip.WarningWhen(m.conf.LogFailedRequests, message.WrapError(rendered.Err, message.Fields{
				"op":     "rendering chart",
				"plugin": m.component.Name(),
				"chart":  c.ID(),
			}))
		}
	}

	return birch.NewDocument(
		birch.EC.String("pluginName", m.component.Name()),
		birch.EC.String("pluginVersion", m.component.Version()),
		birch.EC.Array("customCharts", customCharts),
	), nil
}

// Report assembles the document for one cycle from the host facts
// and the fragments of every registered instance.
func (m *Metrics) Report() *birch.Document {
	facts := CollectHostFacts(m.opts.Platform, m.conf.ServerUUID)
	return facts.Document(m.opts.Registry.collectFragments(m.conf.LogFailedRequests))
}

// Close stops the instance's scheduler. It is only needed when the
// host shuts down without deactivating the component first.
func (m *Metrics) Close() {
	if m.cancel != nil {
		m.cancel()
	}
}
