package uplink

import "github.com/evergreen-ci/birch"

// SimpleBarChart reports one bar per category. Every entry is kept,
// including zero counts; only an empty map omits the chart.
type SimpleBarChart struct {
	id       string
	producer func() (map[string]int, error)
}

// NewSimpleBarChart constructs a simple bar chart.
func NewSimpleBarChart(id string, producer func() (map[string]int, error)) *SimpleBarChart {
	return &SimpleBarChart{id: id, producer: producer}
}

func (c *SimpleBarChart) ID() string      { return c.id }
func (c *SimpleBarChart) Kind() ChartKind { return KindSimpleBarChart }

func (c *SimpleBarChart) validate() error {
	if c.producer == nil {
		return errNilProducer(c.Kind())
	}
	return nil
}

func (c *SimpleBarChart) data() (*birch.Document, error) {
	counts, err := c.producer()
	if err != nil {
		return nil, err
	}
	if len(counts) == 0 {
		return nil, nil
	}

	values := birch.NewDocument()
	for _, key := range sortedKeys(counts) {
		values.Append(birch.EC.Array(jsonKey(key), birch.NewArray(birch.VC.Int64(int64(counts[key])))))
	}
	return valuesDocument(values), nil
}

// AdvancedBarChart reports several bars per category. Categories
// with no values are dropped, and the chart is omitted when none
// remain.
type AdvancedBarChart struct {
	id       string
	producer func() (map[string][]int, error)
}

// NewAdvancedBarChart constructs an advanced bar chart.
func NewAdvancedBarChart(id string, producer func() (map[string][]int, error)) *AdvancedBarChart {
	return &AdvancedBarChart{id: id, producer: producer}
}

func (c *AdvancedBarChart) ID() string      { return c.id }
func (c *AdvancedBarChart) Kind() ChartKind { return KindAdvancedBarChart }

func (c *AdvancedBarChart) validate() error {
	if c.producer == nil {
		return errNilProducer(c.Kind())
	}
	return nil
}

func (c *AdvancedBarChart) data() (*birch.Document, error) {
	series, err := c.producer()
	if err != nil {
		return nil, err
	}
	if len(series) == 0 {
		return nil, nil
	}

	values := birch.NewDocument()
	for _, key := range sortedKeys(series) {
		if len(series[key]) == 0 {
			continue
		}

		bars := birch.NewArray()
		for _, v := range series[key] {
			bars.Append(birch.VC.Int64(int64(v)))
		}
		values.Append(birch.EC.Array(jsonKey(key), bars))
	}
	return valuesDocument(values), nil
}
