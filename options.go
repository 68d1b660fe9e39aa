package uplink

import (
	"net/http"

	"github.com/mongodb/grip"
	"github.com/prometheus/client_golang/prometheus"
	"k8s.io/utils/clock"
)

// Options configure how an instance integrates with its host.
type Options struct {
	// ConfigPath is the location of the shared settings file,
	// usually config.DefaultPath of the host's data root.
	ConfigPath string
	// OptOut is the component's own opt-out setting. It disables
	// the instance regardless of the shared settings file.
	OptOut bool

	Platform Platform
	Executor Executor

	// Registry defaults to DefaultRegistry.
	Registry *Registry
	// Clock defaults to the real clock.
	Clock clock.Clock
	// Registerer receives the uplink's own counters when set.
	Registerer prometheus.Registerer

	// Endpoint and HTTPClient override the transport; they exist
	// for test servers.
	Endpoint   string
	HTTPClient *http.Client
}

// Validate checks that the options name every host collaborator.
func (opts Options) Validate() error {
	catcher := grip.NewBasicCatcher()
	catcher.NewWhen(opts.ConfigPath == "", "config path must be specified")
	catcher.NewWhen(opts.Platform == nil, "platform must be specified")
	catcher.NewWhen(opts.Executor == nil, "executor must be specified")
	return catcher.Resolve()
}
