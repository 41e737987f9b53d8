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

package pixel

import (
	"testing"

	. "github.com/gomlx/gomlx/graph"
	"github.com/gomlx/gomlx/graph/graphtest"
	"github.com/stretchr/testify/require"

	_ "github.com/gomlx/gomlx/backends/simplego"
)

func TestRGBToCbCr(t *testing.T) {
	results := evalGraph("rgb-to-cbcr", func(g *Graph) []*Node {
		// Two pixels: mid gray and pure red, channels-first.
		gray := Reshape(Const(g, []float32{0.5, 0.5, 0.5}), 1, 3, 1, 1)
		red := Reshape(Const(g, []float32{1, 0, 0}), 1, 3, 1, 1)
		grayUV := RGBToCbCr(gray)
		grayUV.AssertDims(1, 2, 1, 1)
		return []*Node{Reshape(grayUV, 2), Reshape(RGBToCbCr(red), 2)}
	})
	// Gray is chroma-neutral: both channels sit at the 128/255 midpoint.
	require.InDeltaSlice(t, []float32{128.0 / 255, 128.0 / 255}, results[0].Value(), deltaForTests)
	require.InDeltaSlice(t, []float32{90.203 / 255, 240.0 / 255}, results[1].Value(), deltaForTests)
}

func TestMakeColor(t *testing.T) {
	results := evalGraph("color-loss", func(g *Graph) []*Node {
		values := []float32{
			0.1, 0.2, 0.3, 0.4, // R
			0.5, 0.6, 0.7, 0.8, // G
			0.9, 0.8, 0.7, 0.6, // B
		}
		x := Reshape(Const(g, values), 1, 3, 2, 2)
		y := MulScalar(x, 0.5)
		loss := MakeColor(CriterionL1, false, 0, 1.0)
		pooled := MakeColor(CriterionL1, true, 2, 1.0)
		return []*Node{loss(x, x), loss(x, y), pooled(x, x)}
	})
	require.InDelta(t, 0.0, results[0].Value(), deltaForTests)
	require.Greater(t, results[1].Value().(float32), float32(0))
	require.InDelta(t, 0.0, results[2].Value(), deltaForTests)
}

func TestMakeAverage(t *testing.T) {
	results := evalGraph("average-loss", func(g *Graph) []*Node {
		pred := Reshape(Const(g, []float32{0, 0, 0, 0}), 1, 1, 2, 2)
		target := Reshape(Const(g, []float32{1, 1, 1, 1}), 1, 1, 2, 2)
		return []*Node{
			MakeAverage(CriterionL1, 1.0, 2)(pred, target),
			MakeAverage(CriterionL1, 0.25, 2)(pred, target),
			MakeAverage(CriterionL2, 1.0, 2)(pred, target),
		}
	})
	require.InDelta(t, 1.0, results[0].Value(), deltaForTests)
	require.InDelta(t, 0.25, results[1].Value(), deltaForTests)
	require.InDelta(t, 1.0, results[2].Value(), deltaForTests)
}

func TestColorValidation(t *testing.T) {
	require.Panics(t, func() { MakeColor(CriterionFro, false, 0, 1.0) })
	require.Panics(t, func() { MakeColor(CriterionL1, true, 0, 1.0) })
	require.Panics(t, func() { MakeAverage(CriterionHuber, 1.0, 2) })
	require.Panics(t, func() { MakeAverage(CriterionL1, 1.0, 0) })

	backend := graphtest.BuildTestBackend()
	g := NewGraph(backend, "cbcr-validation")
	oneChannel := Reshape(Const(g, []float32{1}), 1, 1, 1, 1)
	require.Panics(t, func() { RGBToCbCr(oneChannel) })
}
