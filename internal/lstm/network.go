// Package lstm implements a small recurrent sequence network for
// next-day spend prediction. The network consumes a fixed-length
// window of normalized daily values and emits the next normalized
// value. It is sized for per-owner series, not batch workloads: one
// LSTM cell layer plus a scalar dense head, trained with plain SGD
// and backpropagation through time.
package lstm

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// DefaultHiddenSize is the LSTM cell state width.
const DefaultHiddenSize = 24

// Network is a single-cell LSTM with a dense scalar output head.
// Input at each timestep is one normalized spend value.
type Network struct {
	wf, wi, wg, wo *mat.Dense    // gate weights, (hidden, hidden+1)
	bf, bi, bg, bo *mat.VecDense // gate biases
	wy             *mat.VecDense // output head weights
	by             float64
	hidden         int
}

// New creates a network with randomly initialized weights. The seed
// makes initialization reproducible, which keeps training runs and
// their tests deterministic.
func New(hidden int, seed int64) *Network {
	if hidden <= 0 {
		hidden = DefaultHiddenSize
	}
	rng := rand.New(rand.NewSource(seed))

	scale := 1.0 / math.Sqrt(float64(hidden+1))
	newGate := func() *mat.Dense {
		data := make([]float64, hidden*(hidden+1))
		for i := range data {
			data[i] = rng.NormFloat64() * scale
		}
		return mat.NewDense(hidden, hidden+1, data)
	}
	newHead := func() *mat.VecDense {
		data := make([]float64, hidden)
		for i := range data {
			data[i] = rng.NormFloat64() * scale
		}
		return mat.NewVecDense(hidden, data)
	}

	n := &Network{
		hidden: hidden,
		wf:     newGate(),
		wi:     newGate(),
		wg:     newGate(),
		wo:     newGate(),
		bf:     mat.NewVecDense(hidden, nil),
		bi:     mat.NewVecDense(hidden, nil),
		bg:     mat.NewVecDense(hidden, nil),
		bo:     mat.NewVecDense(hidden, nil),
		wy:     newHead(),
	}

	// Forget-gate bias starts positive so early training retains state
	for i := 0; i < hidden; i++ {
		n.bf.SetVec(i, 1.0)
	}

	return n
}

// Hidden returns the cell state width.
func (n *Network) Hidden() int {
	return n.hidden
}

// stepCache holds per-timestep activations needed by backpropagation.
type stepCache struct {
	z          *mat.VecDense // concatenated [h_prev, x]
	f, i, g, o *mat.VecDense
	c, tanhC   *mat.VecDense
	cPrev      *mat.VecDense
}

func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

// applyVec computes fn elementwise over Av+b into a new vector.
func applyVec(a *mat.Dense, v, b *mat.VecDense, fn func(float64) float64) *mat.VecDense {
	out := mat.NewVecDense(b.Len(), nil)
	out.MulVec(a, v)
	out.AddVec(out, b)
	for i := 0; i < out.Len(); i++ {
		out.SetVec(i, fn(out.AtVec(i)))
	}
	return out
}

// step advances the cell one timestep and returns the new hidden and
// cell states along with the cache backpropagation needs.
func (n *Network) step(x float64, hPrev, cPrev *mat.VecDense) (*mat.VecDense, *mat.VecDense, stepCache) {
	z := mat.NewVecDense(n.hidden+1, nil)
	for i := 0; i < n.hidden; i++ {
		z.SetVec(i, hPrev.AtVec(i))
	}
	z.SetVec(n.hidden, x)

	f := applyVec(n.wf, z, n.bf, sigmoid)
	i := applyVec(n.wi, z, n.bi, sigmoid)
	g := applyVec(n.wg, z, n.bg, math.Tanh)
	o := applyVec(n.wo, z, n.bo, sigmoid)

	c := mat.NewVecDense(n.hidden, nil)
	c.MulElemVec(f, cPrev)
	ig := mat.NewVecDense(n.hidden, nil)
	ig.MulElemVec(i, g)
	c.AddVec(c, ig)

	tanhC := mat.NewVecDense(n.hidden, nil)
	for j := 0; j < n.hidden; j++ {
		tanhC.SetVec(j, math.Tanh(c.AtVec(j)))
	}

	h := mat.NewVecDense(n.hidden, nil)
	h.MulElemVec(o, tanhC)

	return h, c, stepCache{z: z, f: f, i: i, g: g, o: o, c: c, tanhC: tanhC, cPrev: cPrev}
}

// forward runs the full sequence and returns the scalar output plus
// the per-timestep caches.
func (n *Network) forward(seq []float64) (float64, []stepCache, *mat.VecDense) {
	h := mat.NewVecDense(n.hidden, nil)
	c := mat.NewVecDense(n.hidden, nil)
	caches := make([]stepCache, 0, len(seq))

	for _, x := range seq {
		var cache stepCache
		h, c, cache = n.step(x, h, c)
		caches = append(caches, cache)
	}

	y := mat.Dot(n.wy, h) + n.by
	return y, caches, h
}

// Predict returns the network's next-value prediction for a window of
// normalized inputs. It is a pure function of the window and the
// weights; nothing is mutated.
func (n *Network) Predict(seq []float64) float64 {
	y, _, _ := n.forward(seq)
	return y
}

// gradients accumulates parameter gradients for one example.
type gradients struct {
	wf, wi, wg, wo *mat.Dense
	bf, bi, bg, bo *mat.VecDense
	wy             *mat.VecDense
	by             float64
}

func newGradients(hidden int) *gradients {
	return &gradients{
		wf: mat.NewDense(hidden, hidden+1, nil),
		wi: mat.NewDense(hidden, hidden+1, nil),
		wg: mat.NewDense(hidden, hidden+1, nil),
		wo: mat.NewDense(hidden, hidden+1, nil),
		bf: mat.NewVecDense(hidden, nil),
		bi: mat.NewVecDense(hidden, nil),
		bg: mat.NewVecDense(hidden, nil),
		bo: mat.NewVecDense(hidden, nil),
		wy: mat.NewVecDense(hidden, nil),
	}
}

// norm returns the global L2 norm across all gradient tensors.
func (g *gradients) norm() float64 {
	sum := 0.0
	for _, m := range []*mat.Dense{g.wf, g.wi, g.wg, g.wo} {
		n := mat.Norm(m, 2)
		sum += n * n
	}
	for _, v := range []*mat.VecDense{g.bf, g.bi, g.bg, g.bo, g.wy} {
		n := mat.Norm(v, 2)
		sum += n * n
	}
	sum += g.by * g.by
	return math.Sqrt(sum)
}

func (g *gradients) scale(factor float64) {
	for _, m := range []*mat.Dense{g.wf, g.wi, g.wg, g.wo} {
		m.Scale(factor, m)
	}
	for _, v := range []*mat.VecDense{g.bf, g.bi, g.bg, g.bo, g.wy} {
		v.ScaleVec(factor, v)
	}
	g.by *= factor
}

// backward computes gradients for one example via backpropagation
// through time. dy is the output error (prediction - target).
func (n *Network) backward(caches []stepCache, hLast *mat.VecDense, dy float64) *gradients {
	grads := newGradients(n.hidden)

	// Output head
	grads.wy.AddScaledVec(grads.wy, dy, hLast)
	grads.by = dy

	dh := mat.NewVecDense(n.hidden, nil)
	dh.ScaleVec(dy, n.wy)
	dc := mat.NewVecDense(n.hidden, nil)

	one := func(v float64) float64 { return 1 - v }

	for t := len(caches) - 1; t >= 0; t-- {
		cache := caches[t]

		// dc += dh * o * (1 - tanh(c)^2)
		for j := 0; j < n.hidden; j++ {
			tc := cache.tanhC.AtVec(j)
			dc.SetVec(j, dc.AtVec(j)+dh.AtVec(j)*cache.o.AtVec(j)*(1-tc*tc))
		}

		dfPre := mat.NewVecDense(n.hidden, nil)
		diPre := mat.NewVecDense(n.hidden, nil)
		dgPre := mat.NewVecDense(n.hidden, nil)
		doPre := mat.NewVecDense(n.hidden, nil)
		for j := 0; j < n.hidden; j++ {
			f := cache.f.AtVec(j)
			i := cache.i.AtVec(j)
			g := cache.g.AtVec(j)
			o := cache.o.AtVec(j)
			dcj := dc.AtVec(j)

			dfPre.SetVec(j, dcj*cache.cPrev.AtVec(j)*f*one(f))
			diPre.SetVec(j, dcj*g*i*one(i))
			dgPre.SetVec(j, dcj*i*(1-g*g))
			doPre.SetVec(j, dh.AtVec(j)*cache.tanhC.AtVec(j)*o*one(o))
		}

		grads.wf.RankOne(grads.wf, 1, dfPre, cache.z)
		grads.wi.RankOne(grads.wi, 1, diPre, cache.z)
		grads.wg.RankOne(grads.wg, 1, dgPre, cache.z)
		grads.wo.RankOne(grads.wo, 1, doPre, cache.z)
		grads.bf.AddVec(grads.bf, dfPre)
		grads.bi.AddVec(grads.bi, diPre)
		grads.bg.AddVec(grads.bg, dgPre)
		grads.bo.AddVec(grads.bo, doPre)

		// Propagate into the concatenated input
		dz := mat.NewVecDense(n.hidden+1, nil)
		tmp := mat.NewVecDense(n.hidden+1, nil)
		tmp.MulVec(n.wf.T(), dfPre)
		dz.AddVec(dz, tmp)
		tmp.MulVec(n.wi.T(), diPre)
		dz.AddVec(dz, tmp)
		tmp.MulVec(n.wg.T(), dgPre)
		dz.AddVec(dz, tmp)
		tmp.MulVec(n.wo.T(), doPre)
		dz.AddVec(dz, tmp)

		for j := 0; j < n.hidden; j++ {
			dh.SetVec(j, dz.AtVec(j))
		}
		for j := 0; j < n.hidden; j++ {
			dc.SetVec(j, dc.AtVec(j)*cache.f.AtVec(j))
		}
	}

	return grads
}

// maxGradNorm bounds the update applied per example; exploding
// gradients on spiky spend series otherwise destroy the cell state.
const maxGradNorm = 5.0

// Step runs one SGD update for a single example and returns the
// squared-error loss before the update.
func (n *Network) Step(seq []float64, target, learningRate float64) float64 {
	y, caches, hLast := n.forward(seq)
	dy := y - target
	loss := 0.5 * dy * dy

	grads := n.backward(caches, hLast, dy)
	if norm := grads.norm(); norm > maxGradNorm {
		grads.scale(maxGradNorm / norm)
	}

	n.wf.Sub(n.wf, scaled(grads.wf, learningRate))
	n.wi.Sub(n.wi, scaled(grads.wi, learningRate))
	n.wg.Sub(n.wg, scaled(grads.wg, learningRate))
	n.wo.Sub(n.wo, scaled(grads.wo, learningRate))
	n.bf.AddScaledVec(n.bf, -learningRate, grads.bf)
	n.bi.AddScaledVec(n.bi, -learningRate, grads.bi)
	n.bg.AddScaledVec(n.bg, -learningRate, grads.bg)
	n.bo.AddScaledVec(n.bo, -learningRate, grads.bo)
	n.wy.AddScaledVec(n.wy, -learningRate, grads.wy)
	n.by -= learningRate * grads.by

	return loss
}

func scaled(m *mat.Dense, factor float64) *mat.Dense {
	r, c := m.Dims()
	out := mat.NewDense(r, c, nil)
	out.Scale(factor, m)
	return out
}

// weightsPayload is the serialized form of the network.
type weightsPayload struct {
	Hidden int       `json:"hidden"`
	Wf     []float64 `json:"wf"`
	Wi     []float64 `json:"wi"`
	Wg     []float64 `json:"wg"`
	Wo     []float64 `json:"wo"`
	Bf     []float64 `json:"bf"`
	Bi     []float64 `json:"bi"`
	Bg     []float64 `json:"bg"`
	Bo     []float64 `json:"bo"`
	Wy     []float64 `json:"wy"`
	By     float64   `json:"by"`
}

// Serialize encodes the network weights for artifact persistence.
func (n *Network) Serialize() ([]byte, error) {
	payload := weightsPayload{
		Hidden: n.hidden,
		Wf:     denseData(n.wf),
		Wi:     denseData(n.wi),
		Wg:     denseData(n.wg),
		Wo:     denseData(n.wo),
		Bf:     vecData(n.bf),
		Bi:     vecData(n.bi),
		Bg:     vecData(n.bg),
		Bo:     vecData(n.bo),
		Wy:     vecData(n.wy),
		By:     n.by,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize network: %w", err)
	}
	return data, nil
}

// Deserialize restores a network from serialized artifact weights.
func Deserialize(data []byte) (*Network, error) {
	var payload weightsPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode network weights: %w", err)
	}
	h := payload.Hidden
	if h <= 0 {
		return nil, fmt.Errorf("invalid hidden size %d in serialized network", h)
	}
	gateLen := h * (h + 1)
	for name, w := range map[string][]float64{
		"wf": payload.Wf, "wi": payload.Wi, "wg": payload.Wg, "wo": payload.Wo,
	} {
		if len(w) != gateLen {
			return nil, fmt.Errorf("gate %s has %d weights, want %d", name, len(w), gateLen)
		}
	}
	for name, b := range map[string][]float64{
		"bf": payload.Bf, "bi": payload.Bi, "bg": payload.Bg, "bo": payload.Bo, "wy": payload.Wy,
	} {
		if len(b) != h {
			return nil, fmt.Errorf("vector %s has %d weights, want %d", name, len(b), h)
		}
	}

	return &Network{
		hidden: h,
		wf:     mat.NewDense(h, h+1, payload.Wf),
		wi:     mat.NewDense(h, h+1, payload.Wi),
		wg:     mat.NewDense(h, h+1, payload.Wg),
		wo:     mat.NewDense(h, h+1, payload.Wo),
		bf:     mat.NewVecDense(h, payload.Bf),
		bi:     mat.NewVecDense(h, payload.Bi),
		bg:     mat.NewVecDense(h, payload.Bg),
		bo:     mat.NewVecDense(h, payload.Bo),
		wy:     mat.NewVecDense(h, payload.Wy),
		by:     payload.By,
	}, nil
}

func denseData(m *mat.Dense) []float64 {
	r, c := m.Dims()
	out := make([]float64, 0, r*c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out = append(out, m.At(i, j))
		}
	}
	return out
}

func vecData(v *mat.VecDense) []float64 {
	out := make([]float64, v.Len())
	for i := range out {
		out[i] = v.AtVec(i)
	}
	return out
}
