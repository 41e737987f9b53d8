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
	. "github.com/gomlx/exceptions"
	. "github.com/gomlx/gomlx/graph"
)

//go:generate enumer -type=DistanceType -trimprefix=Distance -transform=snake -values -text distance.go

// DistanceType selects the metric used by the pairwise distance kernel.
type DistanceType int

const (
	// DistanceCosine is the cosine-derived distance `(1 - cos)/2` over mean-centered,
	// channel-normalized feature vectors.
	DistanceCosine DistanceType = iota

	// DistanceL1 is the sum of absolute per-channel differences.
	DistanceL1

	// DistanceL2 is the squared Euclidean distance.
	DistanceL2
)

// normalizeEpsilon protects the channel normalization of the cosine kernel against
// zero feature vectors.
const normalizeEpsilon = 1e-12

// rawDistance computes the distance between every spatial position of query and every
// spatial position of target, independently per batch element.
//
// query and target must share the same `[batch, channels, height, width]` shape; the
// result is shaped `[batch, height, width, height*width]`: entry (n, h, w, p) is the
// distance between position (h, w) of query and flattened position p of target. All
// metrics clamp negative values caused by floating point cancellation, so the result is
// non-negative everywhere.
func rawDistance(metric DistanceType, query, target *Node) *Node {
	if !query.Shape().Equal(target.Shape()) {
		Panicf("contextual: compared feature maps must have the same shape, got query=%s, target=%s",
			query.Shape(), target.Shape())
	}
	query.AssertRank(4)
	switch metric {
	case DistanceL1:
		return l1Distance(query, target)
	case DistanceL2:
		return l2Distance(query, target)
	case DistanceCosine:
		return cosineDistance(query, target)
	}
	Panicf("contextual: unsupported distance type %d", metric)
	return nil
}

// l2Distance is the squared Euclidean distance, expanded as `|a|² + |b|² - 2·a·b` so the
// cross term is a single batched contraction over the channel axis.
func l2Distance(query, target *Node) *Node {
	dims := query.Shape().Dimensions
	batchSize, channels, height, width := dims[0], dims[1], dims[2], dims[3]
	spatialSize := height * width

	q := Reshape(query, batchSize, channels, spatialSize)
	t := Reshape(target, batchSize, channels, spatialSize)
	squareQ := ReduceSum(Mul(q, q), 1) // [batch, spatial]
	squareT := ReduceSum(Mul(t, t), 1)
	crossTerms := Einsum("ncp,ncq->npq", q, t)

	distances := Add(
		Add(InsertAxes(squareQ, -1), InsertAxes(squareT, 1)),
		MulScalar(crossTerms, -2.0))
	// Cancellation in the expansion above can produce small negative values.
	distances = MaxScalar(distances, 0.0)
	return Reshape(distances, batchSize, height, width, spatialSize)
}

// l1Distance sums absolute per-channel differences between every pair of positions.
func l1Distance(query, target *Node) *Node {
	dims := query.Shape().Dimensions
	batchSize, channels, height, width := dims[0], dims[1], dims[2], dims[3]
	spatialSize := height * width

	q := Reshape(query, batchSize, channels, spatialSize)
	t := Reshape(target, batchSize, channels, spatialSize)
	// [batch, channels, spatial, 1] - [batch, channels, 1, spatial], then reduce channels.
	diff := Abs(Sub(InsertAxes(q, -1), InsertAxes(t, 2)))
	distances := ReduceSum(diff, 1)
	return Reshape(distances, batchSize, height, width, spatialSize)
}

// cosineDistance mean-centers both maps by the channel-wise mean of the target (taken
// over batch and spatial axes), L2-normalizes each feature vector along the channel
// axis, and maps the resulting cosine similarity to the distance `(1 - cos)/2`.
func cosineDistance(query, target *Node) *Node {
	dims := query.Shape().Dimensions
	batchSize, channels, height, width := dims[0], dims[1], dims[2], dims[3]
	spatialSize := height * width

	meanT := ReduceAndKeep(target, ReduceMean, 0, 2, 3)
	q := L2NormalizeWithEpsilon(Sub(query, meanT), normalizeEpsilon, 1)
	t := L2NormalizeWithEpsilon(Sub(target, meanT), normalizeEpsilon, 1)

	cosine := Einsum("ncp,ncq->npq",
		Reshape(q, batchSize, channels, spatialSize),
		Reshape(t, batchSize, channels, spatialSize))
	distances := MaxScalar(DivScalar(OneMinus(cosine), 2.0), 0.0)
	return Reshape(distances, batchSize, height, width, spatialSize)
}
