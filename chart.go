package uplink

import (
	"encoding/json"
	"sort"

	"github.com/evergreen-ci/birch"
	"github.com/pkg/errors"
)

// ChartKind identifies one of the chart shapes understood by the
// collection endpoint.
type ChartKind int

const (
	KindSimplePie ChartKind = iota
	KindAdvancedPie
	KindDrilldownPie
	KindSingleLineChart
	KindMultiLineChart
	KindSimpleBarChart
	KindAdvancedBarChart
)

func (k ChartKind) String() string {
	switch k {
	case KindSimplePie:
		return "simple_pie"
	case KindAdvancedPie:
		return "advanced_pie"
	case KindDrilldownPie:
		return "drilldown_pie"
	case KindSingleLineChart:
		return "single_line_chart"
	case KindMultiLineChart:
		return "multi_line_chart"
	case KindSimpleBarChart:
		return "simple_bar_chart"
	case KindAdvancedBarChart:
		return "advanced_bar_chart"
	default:
		return "unknown"
	}
}

// Chart wraps a user-supplied producer and renders its result into
// the chart fragment of a component's report. The set of
// implementations is closed: use the New* constructors in this
// package.
type Chart interface {
	ID() string
	Kind() ChartKind

	// data returns a nil document when the chart should be omitted.
	data() (*birch.Document, error)
	validate() error
}

// Outcome describes what happened when a chart was rendered.
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeOmitted
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeOmitted:
		return "omitted"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Rendered is the result of a single Render call. Fragment is only
// set for OutcomeOK and Err only for OutcomeFailed.
type Rendered struct {
	Outcome  Outcome
	Fragment *birch.Document
	Err      error
}

// Render invokes the chart's producer exactly once and applies the
// chart's omission rule. Errors and panics raised by the producer
// are captured in the result as a *ProducerError and never
// propagate.
func Render(c Chart) (out Rendered) {
	defer func() {
		if p := recover(); p != nil {
			out = Rendered{
				Outcome: OutcomeFailed,
				Err:     &ProducerError{ChartID: c.ID(), Err: errors.Errorf("producer panicked: %v", p)},
			}
		}
	}()

	data, err := c.data()
	if err != nil {
		return Rendered{Outcome: OutcomeFailed, Err: &ProducerError{ChartID: c.ID(), Err: err}}
	}
	if data == nil {
		return Rendered{Outcome: OutcomeOmitted}
	}

	return Rendered{
		Outcome: OutcomeOK,
		Fragment: birch.NewDocument(
			birch.EC.String("chartId", c.ID()),
			birch.EC.SubDocument("data", data),
		),
	}
}

func validateChart(c Chart) error {
	if c == nil {
		return errors.New("chart cannot be nil")
	}
	if c.ID() == "" {
		return errors.Errorf("%s chart id cannot be empty", c.Kind())
	}
	return errors.Wrapf(c.validate(), "problem with chart '%s'", c.ID())
}

func errNilProducer(kind ChartKind) error {
	return errors.Errorf("%s chart requires a producer", kind)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// jsonKey escapes a producer-supplied key for use as a document key.
// Document keys are written verbatim when a report is serialized.
func jsonKey(key string) string {
	quoted, err := json.Marshal(key)
	if err != nil {
		return key
	}
	return string(quoted[1 : len(quoted)-1])
}

// valuesDocument wraps rendered values under the "values" key, or
// returns nil when nothing survived the omission rule.
func valuesDocument(values *birch.Document) *birch.Document {
	if values.Len() == 0 {
		return nil
	}
	return birch.NewDocument(birch.EC.SubDocument("values", values))
}

// nonZeroCounts renders counts for the pie and multi line shapes,
// dropping entries with a zero count.
func nonZeroCounts(counts map[string]int) *birch.Document {
	values := birch.NewDocument()
	for _, key := range sortedKeys(counts) {
		if counts[key] == 0 {
			continue
		}
		values.Append(birch.EC.Int64(jsonKey(key), int64(counts[key])))
	}
	return valuesDocument(values)
}
