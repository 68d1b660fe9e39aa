package uplink

import (
	"sync"

	"github.com/evergreen-ci/birch"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
	"github.com/pkg/errors"
)

// ProtocolVersion is the version of the submission protocol spoken by
// this package. Services exposing it through UplinkProtocolVersion
// are treated as instances of this library by the registry.
const ProtocolVersion = 1

type protocolMarker interface {
	UplinkProtocolVersion() int
}

// FragmentProvider is implemented by registry services that can
// contribute a plugin fragment to the leader's report.
type FragmentProvider interface {
	PluginData() (*birch.Document, error)
}

type activityReporter interface {
	Active() bool
}

// Entry is one service registered with a Registry.
type Entry struct {
	Owner   string
	Service interface{}
}

// Registry is a process-wide, append-only list of services. Every
// embedded uplink instance registers itself here, and the first one
// becomes the leader that schedules submissions for all of them.
//
// The registry may hold unrelated services as well; only services
// exposing the protocol marker take part in leader election and
// aggregation.
type Registry struct {
	mu      sync.RWMutex
	entries []Entry
}

// NewRegistry constructs an empty registry. Most callers should use
// DefaultRegistry so that all instances in the process see each
// other.
func NewRegistry() *Registry { return &Registry{} }

var defaultRegistry = NewRegistry()

// DefaultRegistry returns the registry shared by the whole process.
func DefaultRegistry() *Registry { return defaultRegistry }

// Register appends a service to the registry and reports whether no
// uplink instance had been registered before it. The scan and the
// append happen under one lock, so instances registering
// concurrently cannot both observe an empty registry.
func (r *Registry) Register(owner string, service interface{}) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	first := true
	for _, entry := range r.entries {
		if isUplink(entry.Service) {
			first = false
			break
		}
	}

	r.entries = append(r.entries, Entry{Owner: owner, Service: service})

	return first
}

// Entries returns a snapshot of the registered services in
// registration order.
func (r *Registry) Entries() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Len returns the number of registered services.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.entries)
}

func isUplink(service interface{}) bool {
	_, ok := service.(protocolMarker)
	return ok
}

// collectFragments gathers the plugin fragment of every active
// uplink instance. Instances that cannot produce one are skipped.
func (r *Registry) collectFragments(logFailures bool) []*birch.Document {
	out := []*birch.Document{}

	for _, entry := range r.Entries() {
		if !isUplink(entry.Service) {
			continue
		}
		if svc, ok := entry.Service.(activityReporter); ok && !svc.Active() {
			continue
		}

		doc, err := fragmentFrom(entry)
		if err != nil {
			grip.WarningWhen(logFailures, message.WrapError(err, message.Fields{
				"op":    "collecting plugin data",
				"owner": entry.Owner,
			}))
			continue
		}

		out = append(out, doc)
	}

	return out
}

func fragmentFrom(entry Entry) (doc *birch.Document, err error) {
	defer func() {
		if p := recover(); p != nil {
			doc = nil
			err = &AggregationError{Owner: entry.Owner, Err: errors.Errorf("fragment producer panicked: %v", p)}
		}
	}()

	provider, ok := entry.Service.(FragmentProvider)
	if !ok {
		return nil, &AggregationError{Owner: entry.Owner, Err: errors.Errorf("service %T cannot produce plugin data", entry.Service)}
	}

	doc, err = provider.PluginData()
	if err != nil {
		return nil, &AggregationError{Owner: entry.Owner, Err: err}
	}
	if doc == nil {
		return nil, &AggregationError{Owner: entry.Owner, Err: errors.New("plugin data is empty")}
	}

	return doc, nil
}
