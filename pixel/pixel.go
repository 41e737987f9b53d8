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

// Package pixel implements the element-wise losses used to train image restoration
// models: L1 (MAE), MSE, Charbonnier (a differentiable robust L1), weighted total
// variation, chroma consistency and averaging-downscale losses.
//
// All losses are graph-building functions over `[batch, channels, height, width]`
// tensors. The Make* constructors validate their configuration once and return the
// function to build into a graph; unsupported options are fatal at construction.
package pixel

import (
	. "github.com/gomlx/exceptions"
	. "github.com/gomlx/gomlx/graph"
)

//go:generate enumer -type=Reduction -trimprefix=Reduction -transform=snake -values -text pixel.go
//go:generate enumer -type=Criterion -trimprefix=Criterion -transform=snake -values -text pixel.go

// Reduction specifies how per-element losses are reduced to the returned value.
type Reduction int

const (
	ReductionNone Reduction = iota
	ReductionMean
	ReductionSum
)

// Criterion is the element-wise comparison used by the compound losses (color,
// average, perceptual).
type Criterion int

const (
	CriterionL1 Criterion = iota
	CriterionL2
	CriterionHuber
	CriterionFro
)

// CharbonnierEpsilon is the default curvature control of the Charbonnier loss.
const CharbonnierEpsilon = 1e-12

// huberDelta is the range where the Huber criterion behaves quadratically.
const huberDelta = 1.0

// LossFn is a configured element-wise loss: weight is an optional per-element weight
// tensor of the same shape as pred and may be nil.
type LossFn func(pred, target, weight *Node) *Node

// PairLossFn is a configured loss without element-wise weighting.
type PairLossFn func(pred, target *Node) *Node

func checkReduction(reduction Reduction) {
	if !reduction.IsAReduction() {
		Panicf("pixel: unsupported reduction mode %d, supported ones are %v", reduction, ReductionValues())
	}
}

func checkShapes(pred, target *Node) {
	if !pred.Shape().Equal(target.Shape()) {
		Panicf("pixel: pred (%s) and target (%s) must have the same shape", pred.Shape(), target.Shape())
	}
}

func reduce(loss *Node, reduction Reduction) *Node {
	switch reduction {
	case ReductionMean:
		return ReduceAllMean(loss)
	case ReductionSum:
		return ReduceAllSum(loss)
	}
	return loss
}

func applyWeight(loss, weight *Node) *Node {
	if weight == nil {
		return loss
	}
	checkShapes(loss, weight)
	return Mul(loss, weight)
}

// MakeL1 returns the mean-absolute-error loss, scaled by lossWeight.
func MakeL1(lossWeight float64, reduction Reduction) LossFn {
	checkReduction(reduction)
	return func(pred, target, weight *Node) *Node {
		checkShapes(pred, target)
		loss := applyWeight(Abs(Sub(pred, target)), weight)
		return MulScalar(reduce(loss, reduction), lossWeight)
	}
}

// MakeMSE returns the mean-squared-error (L2) loss, scaled by lossWeight.
func MakeMSE(lossWeight float64, reduction Reduction) LossFn {
	checkReduction(reduction)
	return func(pred, target, weight *Node) *Node {
		checkShapes(pred, target)
		loss := applyWeight(Square(Sub(pred, target)), weight)
		return MulScalar(reduce(loss, reduction), lossWeight)
	}
}

// MakeCharbonnier returns the Charbonnier loss `sqrt((pred-target)² + eps)`, a
// differentiable variant of L1 described in "Deep Laplacian Pyramid Networks for Fast
// and Accurate Super-Resolution". eps controls the curvature near zero;
// CharbonnierEpsilon is a good default.
func MakeCharbonnier(lossWeight, eps float64, reduction Reduction) LossFn {
	checkReduction(reduction)
	if eps <= 0 {
		Panicf("pixel: Charbonnier eps must be positive, got %g", eps)
	}
	return func(pred, target, weight *Node) *Node {
		checkShapes(pred, target)
		loss := Sqrt(AddScalar(Square(Sub(pred, target)), eps))
		loss = applyWeight(loss, weight)
		return MulScalar(reduce(loss, reduction), lossWeight)
	}
}

// MakeWeightedTV returns the anisotropic total-variation loss: the L1 difference
// between vertically and horizontally adjacent pixels, optionally weighted per element.
// Reduction is restricted to mean or sum.
func MakeWeightedTV(lossWeight float64, reduction Reduction) func(pred, weight *Node) *Node {
	if reduction != ReductionMean && reduction != ReductionSum {
		Panicf("pixel: total-variation loss supports only mean or sum reduction, got %s", reduction)
	}
	l1 := MakeL1(1.0, reduction)
	return func(pred, weight *Node) *Node {
		pred.AssertRank(4)
		dims := pred.Shape().Dimensions
		height, width := dims[2], dims[3]

		var yWeight, xWeight *Node
		if weight != nil {
			yWeight = Slice(weight, AxisRange(), AxisRange(), AxisRange(0, height-1), AxisRange())
			xWeight = Slice(weight, AxisRange(), AxisRange(), AxisRange(), AxisRange(0, width-1))
		}
		yDiff := l1(
			Slice(pred, AxisRange(), AxisRange(), AxisRange(0, height-1), AxisRange()),
			Slice(pred, AxisRange(), AxisRange(), AxisRange(1, height), AxisRange()),
			yWeight)
		xDiff := l1(
			Slice(pred, AxisRange(), AxisRange(), AxisRange(), AxisRange(0, width-1)),
			Slice(pred, AxisRange(), AxisRange(), AxisRange(), AxisRange(1, width)),
			xWeight)
		return MulScalar(Add(yDiff, xDiff), lossWeight)
	}
}

// Loss builds the mean criterion value between pred and target. For CriterionFro it is
// the Frobenius norm of the difference instead of a mean.
func (c Criterion) Loss(pred, target *Node) *Node {
	checkShapes(pred, target)
	diff := Sub(pred, target)
	switch c {
	case CriterionL1:
		return ReduceAllMean(Abs(diff))
	case CriterionL2:
		return ReduceAllMean(Square(diff))
	case CriterionHuber:
		return ReduceAllMean(huber(diff))
	case CriterionFro:
		return Sqrt(ReduceAllSum(Square(diff)))
	}
	Panicf("pixel: unsupported criterion %d, supported ones are %v", c, CriterionValues())
	return nil
}

// huber computes the per-element Huber loss of a difference tensor: quadratic within
// huberDelta of zero, linear beyond.
func huber(diff *Node) *Node {
	g := diff.Graph()
	deltaConst := Scalar(g, diff.DType(), huberDelta)
	absErrors := Abs(diff)
	quadratic := Min(absErrors, deltaConst)
	// Same as max(absErrors-delta, 0), but avoids potentially doubling the gradient.
	linear := Sub(absErrors, quadratic)
	return Add(MulScalar(Square(quadratic), 0.5), Mul(deltaConst, linear))
}
