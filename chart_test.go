package uplink

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countsProducer(counts map[string]int) func() (map[string]int, error) {
	return func() (map[string]int, error) { return counts, nil }
}

func renderData(t *testing.T, c Chart) map[string]interface{} {
	t.Helper()

	rendered := Render(c)
	require.Equal(t, OutcomeOK, rendered.Outcome, "%v", rendered.Err)
	out := decodeJSON(t, rendered.Fragment)
	assert.Equal(t, c.ID(), out["chartId"])

	data, ok := out["data"].(map[string]interface{})
	require.True(t, ok)
	return data
}

func TestChartOmitsEmptyResults(t *testing.T) {
	for _, c := range []Chart{
		NewSimplePie("empty", func() (string, error) { return "", nil }),
		NewAdvancedPie("nil", countsProducer(nil)),
		NewAdvancedPie("empty", countsProducer(map[string]int{})),
		NewDrilldownPie("nil", func() (map[string]map[string]int, error) { return nil, nil }),
		NewDrilldownPie("empty", func() (map[string]map[string]int, error) { return map[string]map[string]int{}, nil }),
		NewSingleLineChart("zero", func() (int, error) { return 0, nil }),
		NewMultiLineChart("nil", countsProducer(nil)),
		NewSimpleBarChart("nil", countsProducer(nil)),
		NewSimpleBarChart("empty", countsProducer(map[string]int{})),
		NewAdvancedBarChart("nil", func() (map[string][]int, error) { return nil, nil }),
	} {
		t.Run(c.Kind().String()+"/"+c.ID(), func(t *testing.T) {
			rendered := Render(c)
			assert.Equal(t, OutcomeOmitted, rendered.Outcome)
			assert.Nil(t, rendered.Fragment)
			assert.NoError(t, rendered.Err)
		})
	}
}

func TestChartRendering(t *testing.T) {
	for _, test := range []struct {
		Name string
		Case func(*testing.T)
	}{
		{
			Name: "SimplePie",
			Case: func(t *testing.T) {
				data := renderData(t, NewSimplePie("lang", func() (string, error) { return "en_US", nil }))
				assert.Equal(t, "en_US", data["value"])
			},
		},
		{
			Name: "SingleLineChart",
			Case: func(t *testing.T) {
				data := renderData(t, NewSingleLineChart("fights", func() (int, error) { return -3, nil }))
				assert.EqualValues(t, -3, data["value"])
			},
		},
		{
			Name: "AdvancedPieAllZero",
			Case: func(t *testing.T) {
				rendered := Render(NewAdvancedPie("zeros", countsProducer(map[string]int{"a": 0, "b": 0})))
				assert.Equal(t, OutcomeOmitted, rendered.Outcome)
			},
		},
		{
			Name: "AdvancedPieDropsZeros",
			Case: func(t *testing.T) {
				data := renderData(t, NewAdvancedPie("mixed", countsProducer(map[string]int{"a": 0, "b": 4, "c": 1})))
				assert.Equal(t, map[string]interface{}{"b": 4.0, "c": 1.0}, data["values"])
			},
		},
		{
			Name: "MultiLineChartAllZero",
			Case: func(t *testing.T) {
				rendered := Render(NewMultiLineChart("zeros", countsProducer(map[string]int{"a": 0})))
				assert.Equal(t, OutcomeOmitted, rendered.Outcome)
			},
		},
		{
			Name: "MultiLineChartDropsZeros",
			Case: func(t *testing.T) {
				data := renderData(t, NewMultiLineChart("lines", countsProducer(map[string]int{"x": 7, "y": 0})))
				assert.Equal(t, map[string]interface{}{"x": 7.0}, data["values"])
			},
		},
		{
			Name: "DrilldownPieDropsEmptyOuterKeys",
			Case: func(t *testing.T) {
				data := renderData(t, NewDrilldownPie("versions", func() (map[string]map[string]int, error) {
					return map[string]map[string]int{
						"1.20": {"1.20.4": 3, "1.20.1": 0},
						"1.19": {},
						"1.18": nil,
					}, nil
				}))
				assert.Equal(t, map[string]interface{}{
					"1.20": map[string]interface{}{"1.20.4": 3.0, "1.20.1": 0.0},
				}, data["values"])
			},
		},
		{
			Name: "DrilldownPieAllOuterKeysEmpty",
			Case: func(t *testing.T) {
				rendered := Render(NewDrilldownPie("versions", func() (map[string]map[string]int, error) {
					return map[string]map[string]int{"1.19": {}, "1.18": nil}, nil
				}))
				assert.Equal(t, OutcomeOmitted, rendered.Outcome)
			},
		},
		{
			Name: "SimpleBarChartKeepsZeroCounts",
			Case: func(t *testing.T) {
				data := renderData(t, NewSimpleBarChart("bars", countsProducer(map[string]int{"a": 0, "b": 2})))
				assert.Equal(t, map[string]interface{}{
					"a": []interface{}{0.0},
					"b": []interface{}{2.0},
				}, data["values"])
			},
		},
		{
			Name: "SimpleBarChartAllZero",
			Case: func(t *testing.T) {
				data := renderData(t, NewSimpleBarChart("bars", countsProducer(map[string]int{"a": 0})))
				assert.Equal(t, map[string]interface{}{"a": []interface{}{0.0}}, data["values"])
			},
		},
		{
			Name: "AdvancedBarChartDropsEmptySeries",
			Case: func(t *testing.T) {
				data := renderData(t, NewAdvancedBarChart("bars", func() (map[string][]int, error) {
					return map[string][]int{"a": {1, 0, 5}, "b": {}, "c": nil}, nil
				}))
				assert.Equal(t, map[string]interface{}{
					"a": []interface{}{1.0, 0.0, 5.0},
				}, data["values"])
			},
		},
		{
			Name: "AdvancedBarChartAllEmpty",
			Case: func(t *testing.T) {
				rendered := Render(NewAdvancedBarChart("bars", func() (map[string][]int, error) {
					return map[string][]int{"a": {}, "b": nil}, nil
				}))
				assert.Equal(t, OutcomeOmitted, rendered.Outcome)
			},
		},
		{
			Name: "KeysAreSorted",
			Case: func(t *testing.T) {
				rendered := Render(NewAdvancedPie("order", countsProducer(map[string]int{"zeta": 1, "alpha": 2, "mid": 3})))
				require.Equal(t, OutcomeOK, rendered.Outcome)
				payload, err := rendered.Fragment.MarshalJSON()
				require.NoError(t, err)
				assert.Regexp(t, `"alpha".*"mid".*"zeta"`, string(payload))
			},
		},
		{
			Name: "KeysAreEscaped",
			Case: func(t *testing.T) {
				name := "Bob's \"arena\""
				path := `C:\worlds` + "\nnether"

				data := renderData(t, NewAdvancedPie("arenas", countsProducer(map[string]int{name: 2, path: 1})))
				assert.Equal(t, map[string]interface{}{name: 2.0, path: 1.0}, data["values"])

				data = renderData(t, NewSimpleBarChart("bars", countsProducer(map[string]int{name: 0})))
				assert.Equal(t, map[string]interface{}{name: []interface{}{0.0}}, data["values"])

				data = renderData(t, NewAdvancedBarChart("series", func() (map[string][]int, error) {
					return map[string][]int{path: {1, 2}}, nil
				}))
				assert.Equal(t, map[string]interface{}{path: []interface{}{1.0, 2.0}}, data["values"])

				data = renderData(t, NewDrilldownPie("nested", func() (map[string]map[string]int, error) {
					return map[string]map[string]int{name: {path: 3}}, nil
				}))
				assert.Equal(t, map[string]interface{}{
					name: map[string]interface{}{path: 3.0},
				}, data["values"])
			},
		},
	} {
		t.Run(test.Name, test.Case)
	}
}

func TestChartProducerFaults(t *testing.T) {
	t.Run("ErrorIsCaptured", func(t *testing.T) {
		rendered := Render(NewSingleLineChart("broken", func() (int, error) { return 0, errProducer }))
		assert.Equal(t, OutcomeFailed, rendered.Outcome)
		assert.Nil(t, rendered.Fragment)

		var perr *ProducerError
		require.True(t, errors.As(rendered.Err, &perr))
		assert.Equal(t, "broken", perr.ChartID)
		assert.True(t, errors.Is(rendered.Err, errProducer))
	})
	t.Run("PanicIsCaptured", func(t *testing.T) {
		var rendered Rendered
		assert.NotPanics(t, func() {
			rendered = Render(NewAdvancedPie("panics", func() (map[string]int, error) { panic("boom") }))
		})
		assert.Equal(t, OutcomeFailed, rendered.Outcome)
		assert.Contains(t, rendered.Err.Error(), "boom")
	})
	t.Run("ProducerCalledOncePerRender", func(t *testing.T) {
		calls := 0
		c := NewSimplePie("counted", func() (string, error) { calls++; return "x", nil })
		Render(c)
		Render(c)
		assert.Equal(t, 2, calls)
	})
}

func TestChartValidation(t *testing.T) {
	assert.Error(t, validateChart(nil))
	assert.Error(t, validateChart(NewSimplePie("", func() (string, error) { return "", nil })))
	assert.Error(t, validateChart(NewSimplePie("id", nil)))
	assert.Error(t, validateChart(NewAdvancedBarChart("id", nil)))
	assert.NoError(t, validateChart(NewDrilldownPie("id", func() (map[string]map[string]int, error) { return nil, nil })))
}
