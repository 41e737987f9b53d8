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
	"math"
	"math/rand/v2"

	. "github.com/gomlx/exceptions"
	. "github.com/gomlx/gomlx/graph"
)

// CropQuarters splits a `[batch, channels, height, width]` feature map into its 4
// spatial quadrants and stacks them along the batch axis, so the pairwise-distance cost
// is bounded by the quadrant size instead of the full map.
//
// The split point is the half extent rounded to even (matching Python 3's round), per
// spatial axis. Odd extents make the quadrants unequal and the concatenation fails with
// a shape error; callers are expected to feed even-sized maps.
func CropQuarters(x *Node) *Node {
	x.AssertRank(4)
	dims := x.Shape().Dimensions
	height, width := dims[2], dims[3]
	halfH := int(math.RoundToEven(float64(height) / 2))
	halfW := int(math.RoundToEven(float64(width) / 2))
	quarters := []*Node{
		Slice(x, AxisRange(), AxisRange(), AxisRange(0, halfH), AxisRange(0, halfW)),
		Slice(x, AxisRange(), AxisRange(), AxisRange(0, halfH), AxisRange(halfW, width)),
		Slice(x, AxisRange(), AxisRange(), AxisRange(halfH, height), AxisRange(0, halfW)),
		Slice(x, AxisRange(), AxisRange(), AxisRange(halfH, height), AxisRange(halfW, width)),
	}
	return Concatenate(quarters, 0)
}

// SampleIndices draws n distinct positions, uniformly at random, from the flattened
// spatial grid [0, spatialSize). n is clamped to spatialSize. A nil rng uses the
// process-wide source; pass a seeded *rand.Rand for reproducible sampling.
func SampleIndices(rng *rand.Rand, spatialSize, n int) []int32 {
	if n > spatialSize {
		n = spatialSize
	}
	var perm []int
	if rng == nil {
		perm = rand.Perm(spatialSize)
	} else {
		perm = rng.Perm(spatialSize)
	}
	indices := make([]int32, n)
	for ii := range indices {
		indices[ii] = int32(perm[ii])
	}
	return indices
}

// RandomPool gathers size² randomly chosen spatial positions from every tensor of the
// group and reshapes them into a square (size × size) grid. A single index set is drawn
// against the first tensor and reused, unmodified, for every other tensor, so paired
// positions stay aligned across the group.
func RandomPool(rng *rand.Rand, group []*Node, size int) []*Node {
	if len(group) == 0 {
		return nil
	}
	dims := group[0].Shape().Dimensions
	indices := SampleIndices(rng, dims[2]*dims[3], size*size)
	return RandomPoolWithIndices(group, size, indices)
}

// RandomPoolWithIndices is RandomPool with a pre-supplied index set, which must hold
// exactly size² positions. Every tensor of the group must share the spatial extent the
// indices were drawn from.
func RandomPoolWithIndices(group []*Node, size int, indices []int32) []*Node {
	if len(indices) != size*size {
		Panicf("contextual: random pooling to %dx%d requires %d indices, got %d",
			size, size, size*size, len(indices))
	}
	spatialSize := group[0].Shape().Dim(2) * group[0].Shape().Dim(3)
	pooled := make([]*Node, len(group))
	for ii, x := range group {
		if s := x.Shape().Dim(2) * x.Shape().Dim(3); s != spatialSize {
			Panicf("contextual: tensors sharing sampling indices must share spatial extent, got %d and %d",
				spatialSize, s)
		}
		pooled[ii] = gatherSpatial(x, size, indices)
	}
	return pooled
}

// gatherSpatial picks the given flattened spatial positions of x, preserving their
// order, and lays them out as a (size × size) grid.
func gatherSpatial(x *Node, size int, indices []int32) *Node {
	dims := x.Shape().Dimensions
	batchSize, channels := dims[0], dims[1]
	spatialSize := dims[2] * dims[3]
	g := x.Graph()

	idx := Reshape(Const(g, indices), len(indices), 1)
	// Gather works on the leading axis, so move the spatial axis to the front.
	flat := TransposeAllDims(Reshape(x, batchSize, channels, spatialSize), 2, 0, 1)
	picked := Gather(flat, idx) // [size², batch, channels]
	return Reshape(TransposeAllDims(picked, 1, 2, 0), batchSize, channels, size, size)
}
