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
	. "github.com/gomlx/exceptions"
	. "github.com/gomlx/gomlx/graph"
	"github.com/gomlx/gomlx/types/tensors/images"
)

// BT.601 studio-range chroma coefficients, for RGB images in [0, 1].
var (
	cbCoeffs   = [3]float64{-37.797 / 255, -74.203 / 255, 112.0 / 255}
	crCoeffs   = [3]float64{112.0 / 255, -93.786 / 255, -18.214 / 255}
	chromaBias = 128.0 / 255
)

// RGBToCbCr converts a `[batch, 3, height, width]` RGB image batch in [0, 1] to its two
// chroma channels `[batch, 2, height, width]` (ITU-R BT.601).
func RGBToCbCr(x *Node) *Node {
	x.AssertRank(4)
	if x.Shape().Dim(1) != 3 {
		Panicf("pixel: RGBToCbCr requires 3-channel (RGB) images, got %s", x.Shape())
	}
	r := Slice(x, AxisRange(), AxisElem(0), AxisRange(), AxisRange())
	g := Slice(x, AxisRange(), AxisElem(1), AxisRange(), AxisRange())
	b := Slice(x, AxisRange(), AxisElem(2), AxisRange(), AxisRange())

	cb := AddScalar(Add(Add(
		MulScalar(r, cbCoeffs[0]),
		MulScalar(g, cbCoeffs[1])),
		MulScalar(b, cbCoeffs[2])), chromaBias)
	cr := AddScalar(Add(Add(
		MulScalar(r, crCoeffs[0]),
		MulScalar(g, crCoeffs[1])),
		MulScalar(b, crCoeffs[2])), chromaBias)
	return Concatenate([]*Node{cb, cr}, 1)
}

// downscale mean-pools a channels-first image batch by the given factor.
func downscale(x *Node, scale int) *Node {
	return MeanPool(x).ChannelsAxis(images.ChannelsFirst).Window(scale).Strides(scale).NoPadding().Done()
}

// MakeColor returns the color-consistency loss: both images are reduced to their chroma
// channels and compared under criterion (l1, l2 or huber). With avgPool set, the chroma
// maps are mean-pooled by scale first.
func MakeColor(criterion Criterion, avgPool bool, scale int, lossWeight float64) PairLossFn {
	if criterion != CriterionL1 && criterion != CriterionL2 && criterion != CriterionHuber {
		Panicf("pixel: color loss does not support criterion %s", criterion)
	}
	if avgPool && scale <= 0 {
		Panicf("pixel: color loss avg-pool scale must be positive, got %d", scale)
	}
	return func(pred, target *Node) *Node {
		checkShapes(pred, target)
		predUV := RGBToCbCr(pred)
		targetUV := RGBToCbCr(target)
		if avgPool {
			predUV = downscale(predUV, scale)
			targetUV = downscale(targetUV, scale)
		}
		return MulScalar(criterion.Loss(predUV, targetUV), lossWeight)
	}
}

// MakeAverage returns the averaging-downscale loss: both images are mean-pooled by
// scale and compared under criterion (l1 or l2).
func MakeAverage(criterion Criterion, lossWeight float64, scale int) PairLossFn {
	if criterion != CriterionL1 && criterion != CriterionL2 {
		Panicf("pixel: average loss does not support criterion %s", criterion)
	}
	if scale <= 0 {
		Panicf("pixel: average loss scale must be positive, got %d", scale)
	}
	return func(pred, target *Node) *Node {
		checkShapes(pred, target)
		return MulScalar(criterion.Loss(downscale(pred, scale), downscale(target, scale)), lossWeight)
	}
}
