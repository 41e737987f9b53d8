/*
 *	Copyright 2025 Jan Pfeifer
 *
 *	Licensed under the Apache License, Version 2.0 (the "License");
 *	you may not use this file except in compliance with the License.
 *	You may obtain a copy of the License at
 *
 *	http://www.apache.org/licenses/LICENSE-2.0
 *
 *	Unless required by applicable law or agreed to in writing, software
 *	distributed under the License is distributed on an "AS IS" BASIS,
 *	WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *	See the License for the specific language governing permissions and
 *	limitations under the License.
 */

package perceptual

import (
	"testing"

	. "github.com/gomlx/gomlx/graph"
	"github.com/gomlx/gomlx/graph/graphtest"
	"github.com/gomlx/gomlx/types/tensors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gomlx/srlosses/features"
	"github.com/gomlx/srlosses/pixel"

	_ "github.com/gomlx/gomlx/backends/simplego"
)

const deltaForTests = 1e-3

func evalGraph(name string, fn func(g *Graph) []*Node) []*tensors.Tensor {
	backend := graphtest.BuildTestBackend()
	g := NewGraph(backend, name)
	outputs := fn(g)
	g.Compile(outputs...)
	return g.Run()
}

func newTestLoss(perceptualWeight, styleWeight float64, criterion pixel.Criterion) *Loss {
	cfg := NewConfig()
	cfg.Extractor = features.NewPyramid(1, features.Normalization{})
	cfg.LayerWeights = map[string]float64{"pool1": 1.0}
	cfg.PerceptualWeight = perceptualWeight
	cfg.StyleWeight = styleWeight
	cfg.Criterion = criterion
	return New(cfg)
}

func TestIdenticalImages(t *testing.T) {
	loss := newTestLoss(1.0, 1.0, pixel.CriterionL1)
	results := evalGraph("perceptual-identical", func(g *Graph) []*Node {
		values := make([]float32, 3*16)
		for ii := range values {
			values[ii] = float32(ii) / 48.0
		}
		x := Reshape(Const(g, values), 1, 3, 4, 4)
		perceptual, style := loss.LossGraph(x, x)
		return []*Node{perceptual, style}
	})
	require.InDelta(t, 0.0, results[0].Value(), deltaForTests)
	require.InDelta(t, 0.0, results[1].Value(), deltaForTests)
}

func TestKnownValues(t *testing.T) {
	loss := newTestLoss(2.0, 3.0, pixel.CriterionL1)
	results := evalGraph("perceptual-known", func(g *Graph) []*Node {
		pred := Reshape(Const(g, make([]float32, 3*16)), 1, 3, 4, 4)
		target := Reshape(OnesLike(pred), 1, 3, 4, 4)
		perceptual, style := loss.LossGraph(pred, target)
		return []*Node{perceptual, style}
	})
	// pool1 features are all-0 vs all-1: L1 distance 1, perceptual weight 2.
	require.InDelta(t, 2.0, results[0].Value(), deltaForTests)
	// Gram matrices are 0 vs 1/3 everywhere ([1,3,2,2] maps): L1 distance 1/3, weight 3.
	require.InDelta(t, 1.0, results[1].Value(), deltaForTests)
}

func TestFroCriterion(t *testing.T) {
	loss := newTestLoss(1.0, 0.0, pixel.CriterionFro)
	results := evalGraph("perceptual-fro", func(g *Graph) []*Node {
		pred := Reshape(Const(g, make([]float32, 3*16)), 1, 3, 4, 4)
		target := OnesLike(pred)
		perceptual, style := loss.LossGraph(pred, target)
		require.Nil(t, style)
		return []*Node{perceptual}
	})
	// Frobenius norm of an all-ones [1,3,2,2] difference: sqrt(12).
	require.InDelta(t, 3.4641, results[0].Value(), deltaForTests)
}

func TestDisabledTerms(t *testing.T) {
	perceptualOnly := newTestLoss(1.0, 0.0, pixel.CriterionL1)
	styleOnly := newTestLoss(0.0, 1.0, pixel.CriterionL1)
	evalGraph("perceptual-disabled-terms", func(g *Graph) []*Node {
		x := Reshape(Const(g, make([]float32, 3*16)), 1, 3, 4, 4)
		y := OnesLike(x)

		perceptual, style := perceptualOnly.LossGraph(x, y)
		assert.NotNil(t, perceptual)
		assert.Nil(t, style)

		perceptual, style = styleOnly.LossGraph(x, y)
		assert.Nil(t, perceptual)
		assert.NotNil(t, style)
		return []*Node{style}
	})
}

func TestValidation(t *testing.T) {
	extractor := features.NewPyramid(1, features.Normalization{})
	layerWeights := map[string]float64{"pool1": 1.0}

	for name, cfg := range map[string]Config{
		"missing extractor":     {LayerWeights: layerWeights, PerceptualWeight: 1},
		"missing layer weights": {Extractor: extractor, PerceptualWeight: 1},
		"huber criterion": {Extractor: extractor, LayerWeights: layerWeights,
			PerceptualWeight: 1, Criterion: pixel.CriterionHuber},
		"negative weight": {Extractor: extractor, LayerWeights: layerWeights,
			PerceptualWeight: -1},
	} {
		require.Panicsf(t, func() { New(cfg) }, "New should reject config with %s", name)
	}

	// A layer the extractor does not produce fails at graph-building time.
	cfg := NewConfig()
	cfg.Extractor = extractor
	cfg.LayerWeights = map[string]float64{"pool7": 1.0}
	loss := New(cfg)
	backend := graphtest.BuildTestBackend()
	g := NewGraph(backend, "missing-layer")
	x := Reshape(Const(g, make([]float32, 3*16)), 1, 3, 4, 4)
	require.Panics(t, func() { loss.LossGraph(x, x) })
}
