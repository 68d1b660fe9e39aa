package uplink

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompressionRoundTrip(t *testing.T) {
	payload, err := sampleReport().MarshalJSON()
	require.NoError(t, err)

	for name, input := range map[string][]byte{
		"Report":     payload,
		"Empty":      {},
		"Repetitive": bytes.Repeat([]byte(`{"chartId":"players","data":{"value":1}},`), 512),
		"Binary":     {0x00, 0xff, 0x1f, 0x8b, 0x08},
	} {
		t.Run(name, func(t *testing.T) {
			compressed, err := compressBuffer(input)
			require.NoError(t, err)
			require.True(t, len(compressed) > 2)
			assert.Equal(t, []byte{0x1f, 0x8b}, compressed[:2], "gzip magic")

			out, err := Decompress(compressed)
			require.NoError(t, err)
			assert.True(t, bytes.Equal(input, out))
		})
	}

	t.Run("RejectsPlainInput", func(t *testing.T) {
		_, err := Decompress(payload)
		assert.Error(t, err)
	})
}
