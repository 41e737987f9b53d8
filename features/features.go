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

// Package features defines the feature-extractor contract used by the perceptual and
// contextual losses: a fixed (non-trained) network that maps a batch of images to named
// feature maps, one per requested layer.
//
// The losses in this module only consume the extractor's output; they never reimplement
// the network. Any pretrained model can be plugged in by implementing Extractor. The
// package also provides Pyramid, a cheap deterministic multi-scale extractor useful for
// tests and for running the losses without a pretrained network.
package features

import (
	"fmt"

	. "github.com/gomlx/exceptions"
	. "github.com/gomlx/gomlx/graph"
	"github.com/gomlx/gomlx/types/tensors/images"
)

// Extractor maps a batch of images, shaped `[batch, channels, height, width]`, to a
// feature map per named layer, each shaped `[batch, layerChannels, layerHeight, layerWidth]`.
//
// Implementations must be deterministic for a fixed input and must not mutate shared
// weights: the losses invoke Extract twice per evaluation, once per compared image.
// Input normalization (scaling to whatever range the underlying network expects) is the
// extractor's responsibility -- see Normalization.
type Extractor interface {
	// Layers returns the names of the layers this extractor produces.
	Layers() []string

	// Extract builds the graph operations extracting the feature maps for image.
	Extract(image *Node) map[string]*Node
}

// Normalization flags applied by an extractor to its input images before the network runs.
type Normalization struct {
	// RangeNorm maps images given in [-1, 1] to [0, 1].
	RangeNorm bool

	// ZNorm standardizes each channel with the ImageNet mean and standard deviation.
	ZNorm bool
}

// ImageNet per-channel statistics, for images in [0, 1], RGB order.
var (
	imagenetMean   = []float64{0.485, 0.456, 0.406}
	imagenetStdDev = []float64{0.229, 0.224, 0.225}
)

// Apply returns image with the configured normalizations applied.
// image must be shaped `[batch, 3, height, width]` when ZNorm is set.
func (n Normalization) Apply(image *Node) *Node {
	if n.RangeNorm {
		image = DivScalar(AddScalar(image, 1.0), 2.0)
	}
	if n.ZNorm {
		if image.Shape().Dim(1) != 3 {
			Panicf("features: ZNorm requires 3-channel (RGB) images, got %s", image.Shape())
		}
		g := image.Graph()
		dtype := image.DType()
		mean := Reshape(ConvertDType(Const(g, imagenetMean), dtype), 1, 3, 1, 1)
		stddev := Reshape(ConvertDType(Const(g, imagenetStdDev), dtype), 1, 3, 1, 1)
		image = Div(Sub(image, mean), stddev)
	}
	return image
}

// Pyramid is a trivial extractor: each layer "pool<i>" is the input mean-pooled i times
// with a 2x2 window and stride 2. It carries no pretrained weights, so losses computed on
// it measure multi-scale pixel context rather than perceptual similarity.
type Pyramid struct {
	levels int
	norm   Normalization
}

// NewPyramid returns a Pyramid extractor with the given number of pooling levels.
func NewPyramid(levels int, norm Normalization) *Pyramid {
	if levels <= 0 {
		Panicf("features: NewPyramid requires levels > 0, got %d", levels)
	}
	return &Pyramid{levels: levels, norm: norm}
}

// Layers implements Extractor.
func (p *Pyramid) Layers() []string {
	names := make([]string, p.levels)
	for ii := range names {
		names[ii] = fmt.Sprintf("pool%d", ii+1)
	}
	return names
}

// Extract implements Extractor. image must be shaped `[batch, channels, height, width]`,
// with height and width divisible by 2^levels.
func (p *Pyramid) Extract(image *Node) map[string]*Node {
	image.AssertRank(4)
	x := p.norm.Apply(image)
	maps := make(map[string]*Node, p.levels)
	for ii := 1; ii <= p.levels; ii++ {
		x = MeanPool(x).ChannelsAxis(images.ChannelsFirst).Window(2).Strides(2).NoPadding().Done()
		maps[fmt.Sprintf("pool%d", ii)] = x
	}
	return maps
}
