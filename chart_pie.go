package uplink

import "github.com/evergreen-ci/birch"

// SimplePie reports a single category per cycle. It is omitted when
// the producer returns an empty string.
type SimplePie struct {
	id       string
	producer func() (string, error)
}

// NewSimplePie constructs a simple pie chart.
func NewSimplePie(id string, producer func() (string, error)) *SimplePie {
	return &SimplePie{id: id, producer: producer}
}

func (c *SimplePie) ID() string      { return c.id }
func (c *SimplePie) Kind() ChartKind { return KindSimplePie }

func (c *SimplePie) validate() error {
	if c.producer == nil {
		return errNilProducer(c.Kind())
	}
	return nil
}

func (c *SimplePie) data() (*birch.Document, error) {
	value, err := c.producer()
	if err != nil {
		return nil, err
	}
	if value == "" {
		return nil, nil
	}
	return birch.NewDocument(birch.EC.String("value", value)), nil
}

// AdvancedPie reports weighted categories. Categories with a zero
// count are dropped, and the chart is omitted when none remain.
type AdvancedPie struct {
	id       string
	producer func() (map[string]int, error)
}

// NewAdvancedPie constructs an advanced pie chart.
func NewAdvancedPie(id string, producer func() (map[string]int, error)) *AdvancedPie {
	return &AdvancedPie{id: id, producer: producer}
}

func (c *AdvancedPie) ID() string      { return c.id }
func (c *AdvancedPie) Kind() ChartKind { return KindAdvancedPie }

func (c *AdvancedPie) validate() error {
	if c.producer == nil {
		return errNilProducer(c.Kind())
	}
	return nil
}

func (c *AdvancedPie) data() (*birch.Document, error) {
	counts, err := c.producer()
	if err != nil {
		return nil, err
	}
	if len(counts) == 0 {
		return nil, nil
	}
	return nonZeroCounts(counts), nil
}

// DrilldownPie reports two levels of categories. An outer category
// whose inner map is empty is dropped; inner counts are reported as
// given, zeros included.
type DrilldownPie struct {
	id       string
	producer func() (map[string]map[string]int, error)
}

// NewDrilldownPie constructs a drilldown pie chart.
func NewDrilldownPie(id string, producer func() (map[string]map[string]int, error)) *DrilldownPie {
	return &DrilldownPie{id: id, producer: producer}
}

func (c *DrilldownPie) ID() string      { return c.id }
func (c *DrilldownPie) Kind() ChartKind { return KindDrilldownPie }

func (c *DrilldownPie) validate() error {
	if c.producer == nil {
		return errNilProducer(c.Kind())
	}
	return nil
}

func (c *DrilldownPie) data() (*birch.Document, error) {
	nested, err := c.producer()
	if err != nil {
		return nil, err
	}
	if len(nested) == 0 {
		return nil, nil
	}

	values := birch.NewDocument()
	for _, outer := range sortedKeys(nested) {
		inner := nested[outer]
		if len(inner) == 0 {
			continue
		}

		entry := birch.NewDocument()
		for _, key := range sortedKeys(inner) {
			entry.Append(birch.EC.Int64(jsonKey(key), int64(inner[key])))
		}
		values.Append(birch.EC.SubDocument(jsonKey(outer), entry))
	}

	return valuesDocument(values), nil
}
