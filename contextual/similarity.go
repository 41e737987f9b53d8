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
	. "github.com/gomlx/gomlx/graph"
	"github.com/gomlx/gomlx/types/shapes"
	"github.com/gomlx/gopjrt/dtypes"
)

const (
	// relativeEpsilon is added to the per-row minimum before dividing, so rows whose
	// minimum distance is zero (identical features) stay finite.
	relativeEpsilon = 1e-5

	// logEpsilon keeps the final -log away from log(0).
	logEpsilon = 1e-5
)

// relativeDistance divides every entry of a raw distance tensor by the minimum of its
// row (fixed query position), plus relativeEpsilon. This makes the exponential
// similarity invariant to the absolute scale of feature magnitudes, which varies wildly
// between extractor layers and between images.
func relativeDistance(raw *Node) *Node {
	rowMin := ReduceAndKeep(raw, ReduceMin, -1)
	return Div(raw, AddScalar(rowMin, relativeEpsilon))
}

// similarity converts relative distances into the exponential similarity
// `exp((b - d)/h)` and its row-normalized form. Rows of the normalized similarity sum
// to 1 and every entry is in (0, 1].
//
// Both tensors are returned because the degeneracy guard watches them separately.
func (l *Loss) similarity(relative *Node) (expSim, normSim *Node) {
	expSim = Exp(DivScalar(AddScalar(Neg(relative), l.bias), l.bandWidth))
	normSim = Div(expSim, ReduceAndKeep(expSim, ReduceSum, -1))
	return
}

// aggregate reduces a similarity tensor `[batch, height, width, spatial]` to the scalar
// loss: for each target position take the best matching query position, average those
// maxima per batch element, and map through -log.
func aggregate(sim *Node) *Node {
	best := ReduceMax(sim, 1, 2)    // [batch, spatial]
	score := ReduceMean(best, -1)   // [batch]
	return ReduceMean(Neg(Log(AddScalar(score, logEpsilon))))
}

// coordinateGrid builds the 2-channel feature map of normalized (row, col) coordinates
// used by bilateral mode, shaped `[batch, 2, height, width]`. Row coordinates are
// `i/(height+1)`, column coordinates `j/(width+1)`.
func coordinateGrid(g *Graph, dtype dtypes.DType, batchSize, height, width int) *Node {
	rows := DivScalar(Iota(g, shapes.Make(dtype, height, width), 0), float64(height+1))
	cols := DivScalar(Iota(g, shapes.Make(dtype, height, width), 1), float64(width+1))
	grid := InsertAxes(Stack([]*Node{rows, cols}, 0), 0)
	return BroadcastToShape(grid, shapes.Make(dtype, batchSize, 2, height, width))
}
