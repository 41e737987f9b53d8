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

// Package perceptual implements the perceptual loss and the commonly paired style
// (Gram-matrix) loss over the feature maps of a fixed extractor.
//
// The perceptual term compares feature maps of the predicted and target images layer by
// layer; the style term compares their Gram matrices. Target features pass through
// StopGradient: only the prediction receives gradients.
package perceptual

import (
	"sort"

	. "github.com/gomlx/exceptions"
	. "github.com/gomlx/gomlx/graph"

	"github.com/gomlx/srlosses/features"
	"github.com/gomlx/srlosses/pixel"
)

// Config for the perceptual/style loss.
type Config struct {
	// Extractor produces the named feature maps. Required.
	Extractor features.Extractor

	// LayerWeights maps extractor layer names to their weight in both terms. Required.
	LayerWeights map[string]float64

	// PerceptualWeight scales the perceptual term; 0 disables it. Default 1.
	PerceptualWeight float64

	// StyleWeight scales the style term; 0 disables it. Default 0.
	StyleWeight float64

	// Criterion compares the feature maps (or Gram matrices): l1, l2 or fro.
	Criterion pixel.Criterion
}

// NewConfig returns a Config with defaults; Extractor and LayerWeights must still be
// filled in.
func NewConfig() Config {
	return Config{
		PerceptualWeight: 1.0,
		Criterion:        pixel.CriterionL1,
	}
}

// Loss computes the perceptual and style losses. Create it with New.
type Loss struct {
	extractor        features.Extractor
	layerNames       []string
	layerWeights     map[string]float64
	perceptualWeight float64
	styleWeight      float64
	criterion        pixel.Criterion
}

// New validates cfg and returns the configured Loss; invalid configuration panics.
func New(cfg Config) *Loss {
	if cfg.Extractor == nil {
		Panicf("perceptual: an extractor is required")
	}
	if len(cfg.LayerWeights) == 0 {
		Panicf("perceptual: layer weights are required")
	}
	if cfg.Criterion != pixel.CriterionL1 && cfg.Criterion != pixel.CriterionL2 && cfg.Criterion != pixel.CriterionFro {
		Panicf("perceptual: criterion %s has not been supported", cfg.Criterion)
	}
	if cfg.PerceptualWeight < 0 || cfg.StyleWeight < 0 {
		Panicf("perceptual: weights must be non-negative, got perceptual=%g, style=%g",
			cfg.PerceptualWeight, cfg.StyleWeight)
	}
	l := &Loss{
		extractor:        cfg.Extractor,
		layerWeights:     cfg.LayerWeights,
		perceptualWeight: cfg.PerceptualWeight,
		styleWeight:      cfg.StyleWeight,
		criterion:        cfg.Criterion,
	}
	l.layerNames = make([]string, 0, len(cfg.LayerWeights))
	for name := range cfg.LayerWeights {
		l.layerNames = append(l.layerNames, name)
	}
	sort.Strings(l.layerNames)
	return l
}

// LossGraph builds both loss terms for the given image batches, each shaped
// `[batch, channels, height, width]`. A term whose weight is 0 is returned as nil.
func (l *Loss) LossGraph(pred, target *Node) (perceptual, style *Node) {
	if !pred.Shape().Equal(target.Shape()) {
		Panicf("perceptual: pred (%s) and target (%s) must have the same shape",
			pred.Shape(), target.Shape())
	}
	predFeatures := l.extractor.Extract(pred)
	targetFeatures := l.extractor.Extract(target)

	for _, name := range l.layerNames {
		pf, okP := predFeatures[name]
		tf, okT := targetFeatures[name]
		if !okP || !okT {
			Panicf("perceptual: extractor did not produce configured layer %q (it offers %v)",
				name, l.extractor.Layers())
		}
		tf = StopGradient(tf)

		if l.perceptualWeight > 0 {
			term := MulScalar(l.criterion.Loss(pf, tf), l.layerWeights[name])
			if perceptual == nil {
				perceptual = term
			} else {
				perceptual = Add(perceptual, term)
			}
		}
		if l.styleWeight > 0 {
			term := MulScalar(l.criterion.Loss(gramMatrix(pf), gramMatrix(tf)), l.layerWeights[name])
			if style == nil {
				style = term
			} else {
				style = Add(style, term)
			}
		}
	}
	if perceptual != nil {
		perceptual = MulScalar(perceptual, l.perceptualWeight)
	}
	if style != nil {
		style = MulScalar(style, l.styleWeight)
	}
	return
}

// gramMatrix computes the channel×channel Gram matrix of a `[batch, channels, height,
// width]` feature map, normalized by channels·height·width.
func gramMatrix(x *Node) *Node {
	x.AssertRank(4)
	dims := x.Shape().Dimensions
	batchSize, channels, height, width := dims[0], dims[1], dims[2], dims[3]
	flat := Reshape(x, batchSize, channels, height*width)
	return DivScalar(Einsum("ncs,nms->ncm", flat, flat), float64(channels*height*width))
}
