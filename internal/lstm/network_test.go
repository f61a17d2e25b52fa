package lstm

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIsDeterministic(t *testing.T) {
	a := New(8, 42)
	b := New(8, 42)

	seq := []float64{0.1, 0.5, 0.3, 0.9, 0.2}
	assert.Equal(t, a.Predict(seq), b.Predict(seq))
}

func TestPredictIsPure(t *testing.T) {
	n := New(8, 1)
	seq := []float64{0.2, 0.4, 0.6, 0.8}

	first := n.Predict(seq)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, n.Predict(seq))
	}
}

func TestStepReducesLossOnConstantSignal(t *testing.T) {
	n := New(8, 7)
	seq := []float64{0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5}
	target := 0.5

	initial := n.Step(seq, target, 0.05)
	var last float64
	for i := 0; i < 200; i++ {
		last = n.Step(seq, target, 0.05)
	}

	assert.Less(t, last, initial)
	assert.InDelta(t, target, n.Predict(seq), 0.05)
}

func TestStepLossIsFinite(t *testing.T) {
	n := New(8, 3)
	seq := []float64{0, 1, 0, 1, 0, 1}

	for i := 0; i < 50; i++ {
		loss := n.Step(seq, 0.5, 0.1)
		require.False(t, math.IsNaN(loss))
		require.False(t, math.IsInf(loss, 0))
	}
}

func TestSerializeRoundTrip(t *testing.T) {
	n := New(6, 99)
	seq := []float64{0.3, 0.6, 0.1, 0.8}

	// Train a little so the weights are not fresh initialization
	for i := 0; i < 20; i++ {
		n.Step(seq, 0.4, 0.05)
	}

	data, err := n.Serialize()
	require.NoError(t, err)

	restored, err := Deserialize(data)
	require.NoError(t, err)

	assert.Equal(t, n.Hidden(), restored.Hidden())
	assert.Equal(t, n.Predict(seq), restored.Predict(seq))
}

func TestDeserializeRejectsCorruptWeights(t *testing.T) {
	n := New(4, 1)
	data, err := n.Serialize()
	require.NoError(t, err)

	tests := []struct {
		name string
		data []byte
	}{
		{"not json", []byte("not a network")},
		{"empty", nil},
		{"truncated gate", append([]byte(`{"hidden":4,"wf":[1,2,3],"wi":[],"wg":[],"wo":[],"bf":[],"bi":[],"bg":[],"bo":[],"wy":[]`), '}')},
		{"zero hidden", []byte(`{"hidden":0}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Deserialize(tt.data)
			assert.Error(t, err)
		})
	}

	// The intact payload still loads
	_, err = Deserialize(data)
	assert.NoError(t, err)
}

func TestGradientClippingBoundsUpdates(t *testing.T) {
	g := newGradients(4)
	for i := 0; i < 4; i++ {
		for j := 0; j < 5; j++ {
			g.wf.Set(i, j, 100)
		}
	}

	norm := g.norm()
	require.Greater(t, norm, maxGradNorm)

	g.scale(maxGradNorm / norm)
	assert.InDelta(t, maxGradNorm, g.norm(), 1e-9)
}
