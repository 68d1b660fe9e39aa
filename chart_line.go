package uplink

import "github.com/evergreen-ci/birch"

// SingleLineChart reports one value per cycle. A value of exactly
// zero omits the chart.
type SingleLineChart struct {
	id       string
	producer func() (int, error)
}

// NewSingleLineChart constructs a single line chart.
func NewSingleLineChart(id string, producer func() (int, error)) *SingleLineChart {
	return &SingleLineChart{id: id, producer: producer}
}

func (c *SingleLineChart) ID() string      { return c.id }
func (c *SingleLineChart) Kind() ChartKind { return KindSingleLineChart }

func (c *SingleLineChart) validate() error {
	if c.producer == nil {
		return errNilProducer(c.Kind())
	}
	return nil
}

func (c *SingleLineChart) data() (*birch.Document, error) {
	value, err := c.producer()
	if err != nil {
		return nil, err
	}
	if value == 0 {
		return nil, nil
	}
	return birch.NewDocument(birch.EC.Int64("value", int64(value))), nil
}

// MultiLineChart reports one value per named line. It follows the
// same omission rule as AdvancedPie.
type MultiLineChart struct {
	id       string
	producer func() (map[string]int, error)
}

// NewMultiLineChart constructs a multi line chart.
func NewMultiLineChart(id string, producer func() (map[string]int, error)) *MultiLineChart {
	return &MultiLineChart{id: id, producer: producer}
}

func (c *MultiLineChart) ID() string      { return c.id }
func (c *MultiLineChart) Kind() ChartKind { return KindMultiLineChart }

func (c *MultiLineChart) validate() error {
	if c.producer == nil {
		return errNilProducer(c.Kind())
	}
	return nil
}

func (c *MultiLineChart) data() (*birch.Document, error) {
	counts, err := c.producer()
	if err != nil {
		return nil, err
	}
	if len(counts) == 0 {
		return nil, nil
	}
	return nonZeroCounts(counts), nil
}
