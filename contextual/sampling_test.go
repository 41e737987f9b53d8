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

package contextual

import (
	"math/rand/v2"
	"testing"

	. "github.com/gomlx/gomlx/graph"
	"github.com/gomlx/gomlx/graph/graphtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/gomlx/gomlx/backends/simplego"
)

func TestCropQuarters(t *testing.T) {
	results := evalGraph("crop-quarters", func(g *Graph) []*Node {
		values := make([]float32, 16)
		for ii := range values {
			values[ii] = float32(ii)
		}
		x := Reshape(Const(g, values), 1, 1, 4, 4)
		quarters := CropQuarters(x)
		quarters.AssertDims(4, 1, 2, 2)
		return []*Node{Reshape(quarters, 16)}
	})
	require.InDeltaSlice(t, []float32{
		0, 1, 4, 5, // top-left
		2, 3, 6, 7, // top-right
		8, 9, 12, 13, // bottom-left
		10, 11, 14, 15, // bottom-right
	}, results[0].Value(), deltaForTests)
}

func TestSampleIndices(t *testing.T) {
	rng := rand.New(rand.NewPCG(42, 0))
	indices := SampleIndices(rng, 100, 25)
	require.Len(t, indices, 25)
	seen := make(map[int32]bool)
	for _, idx := range indices {
		assert.GreaterOrEqual(t, idx, int32(0))
		assert.Less(t, idx, int32(100))
		assert.Falsef(t, seen[idx], "index %d drawn twice", idx)
		seen[idx] = true
	}

	// n is clamped to the available positions.
	indices = SampleIndices(rng, 4, 100)
	require.Len(t, indices, 4)

	// The same seed draws the same indices.
	first := SampleIndices(rand.New(rand.NewPCG(7, 0)), 64, 16)
	second := SampleIndices(rand.New(rand.NewPCG(7, 0)), 64, 16)
	assert.Equal(t, first, second)
}

func TestRandomPoolWithIndices(t *testing.T) {
	results := evalGraph("random-pool-indices", func(g *Graph) []*Node {
		values := make([]float32, 16)
		for ii := range values {
			values[ii] = float32(ii)
		}
		a := Reshape(Const(g, values), 1, 1, 4, 4)
		b := Neg(a)
		pooled := RandomPoolWithIndices([]*Node{a, b}, 2, []int32{3, 7, 11, 15})
		pooled[0].AssertDims(1, 1, 2, 2)
		return []*Node{Reshape(pooled[0], 4), Reshape(pooled[1], 4)}
	})
	require.InDeltaSlice(t, []float32{3, 7, 11, 15}, results[0].Value(), deltaForTests)
	require.InDeltaSlice(t, []float32{-3, -7, -11, -15}, results[1].Value(), deltaForTests)
}

// RandomPool draws a single index set for the whole group: pooling x and -x must always
// yield element-wise negations of each other, whatever was sampled.
func TestRandomPoolSharesIndices(t *testing.T) {
	rng := rand.New(rand.NewPCG(13, 0))
	results := evalGraph("random-pool-shared", func(g *Graph) []*Node {
		values := make([]float32, 64)
		for ii := range values {
			values[ii] = float32(ii)
		}
		a := Reshape(Const(g, values), 1, 1, 8, 8)
		b := Neg(a)
		pooled := RandomPool(rng, []*Node{a, b}, 3)
		return []*Node{Reshape(Add(pooled[0], pooled[1]), 9)}
	})
	require.InDeltaSlice(t, make([]float32, 9), results[0].Value(), deltaForTests)
}

func TestRandomPoolValidation(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	g := NewGraph(backend, "random-pool-validation")
	a := Reshape(Const(g, make([]float32, 16)), 1, 1, 4, 4)
	b := Reshape(Const(g, make([]float32, 36)), 1, 1, 6, 6)

	require.Panics(t, func() { RandomPoolWithIndices([]*Node{a}, 2, []int32{0, 1, 2}) })
	require.Panics(t, func() { RandomPoolWithIndices([]*Node{a, b}, 2, []int32{0, 1, 2, 3}) })
	assert.Nil(t, RandomPool(nil, nil, 2))
}
