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

// Package contextual implements the Contextual Loss (CX), a perceptual similarity
// measure between images that do not need to be spatially aligned
// (https://arxiv.org/abs/1803.02077).
//
// For each configured layer of a feature extractor, the loss compares every spatial
// position of one feature map against every position of the other: raw pairwise
// distances (cosine, L1 or L2) are normalized by the per-row minimum ("relative
// distance"), mapped through a band-width-controlled exponential, row-normalized into a
// similarity in (0, 1], and aggregated by best-match maximum, mean and -log. Large maps
// are optionally quarter-cropped and randomly subsampled to bound the quadratic cost.
//
// The loss is a pure graph-building function: build it into any GoMLX graph and the
// result is differentiable with respect to the predicted image.
package contextual

import (
	"math/rand/v2"
	"sort"

	. "github.com/gomlx/exceptions"
	. "github.com/gomlx/gomlx/graph"

	"github.com/gomlx/srlosses/features"
	"github.com/gomlx/srlosses/nanguard"
)

//go:generate enumer -type=CalcType -trimprefix=Calc -transform=snake -values -text contextual.go

// CalcType selects how the contextual similarity is turned into the final loss.
type CalcType int

const (
	// CalcRegular compares prediction against target in one direction.
	CalcRegular CalcType = iota

	// CalcSymmetric averages the regular loss computed in both directions.
	CalcSymmetric

	// CalcBilateral blends the feature similarity with a purely spatial
	// (coordinate-grid) similarity before aggregating, discouraging matches across
	// large spatial displacements.
	CalcBilateral
)

// ParseCalcType converts a configuration string to a CalcType. Besides the canonical
// names it accepts "symetric", the spelling used by existing traiNNer configurations.
func ParseCalcType(s string) (CalcType, error) {
	if s == "symetric" {
		return CalcSymmetric, nil
	}
	return CalcTypeString(s)
}

// Config for the contextual loss. Build one with NewConfig and adjust fields before
// passing it to New.
type Config struct {
	// LossWeight scales the final loss. Default 1.
	LossWeight float64

	// Extractor produces the named feature maps the loss is computed on. When nil the
	// pipeline runs directly on the raw images -- it works, but the quality of the
	// resulting training signal is unverified.
	Extractor features.Extractor

	// LayerWeights maps extractor layer names to their (positive) weight in the total
	// loss. Required when Extractor is set.
	LayerWeights map[string]float64

	// CropQuarter splits feature maps into 4 spatial quadrants stacked along the batch
	// axis before anything else. Default false.
	CropQuarter bool

	// MaxSize1D bounds the spatial extent entering the distance kernel: maps with more
	// than MaxSize1D² positions are randomly subsampled down to exactly MaxSize1D².
	// Default 100.
	MaxSize1D int

	// Distance selects the pairwise metric. Default DistanceCosine.
	Distance DistanceType

	// Bias is the `b` in the exponential similarity `exp((b - d)/h)`. Default 1.
	Bias float64

	// BandWidth is the `h` in the exponential similarity; must be strictly positive.
	// Default 0.5.
	BandWidth float64

	// SpatialWeight is the convex-combination weight of the spatial similarity in
	// bilateral mode, in [0, 1]. Default 0.1.
	SpatialWeight float64

	// Calc selects the calculation mode. Default CalcRegular.
	Calc CalcType

	// Guard, when set, watches the intermediate tensors (features, raw and relative
	// distances, exponential and normalized similarities) for total NaN/Inf
	// degeneracy. Attach it to the graph.Exec running the loss.
	Guard *nanguard.Guard

	// Rand is the source used to draw sampling indices. Nil uses the process-wide
	// source; inject a seeded one for reproducible sampling. Indices are drawn while
	// the graph is built, so each compiled graph keeps its sample positions.
	Rand *rand.Rand
}

// NewConfig returns a Config with the default values described on each field.
func NewConfig() Config {
	return Config{
		LossWeight:    1.0,
		MaxSize1D:     100,
		Distance:      DistanceCosine,
		Bias:          1.0,
		BandWidth:     0.5,
		SpatialWeight: 0.1,
		Calc:          CalcRegular,
	}
}

// Loss computes the contextual loss between two image batches.
// Create it with New; it is safe to reuse across graphs.
type Loss struct {
	extractor    features.Extractor
	layerNames   []string
	layerWeights map[string]float64

	lossWeight    float64
	cropQuarter   bool
	maxSize1D     int
	distance      DistanceType
	bias          float64
	bandWidth     float64
	spatialWeight float64

	guard *nanguard.Guard
	rng   *rand.Rand

	// calc is resolved once from Config.Calc, avoiding per-call mode dispatch.
	calc func(query, target *Node) *Node
}

// New validates cfg and returns the configured Loss. Invalid configuration -- a
// non-positive band width, an unknown distance or calculation type, non-positive layer
// weights -- is a fatal error and panics.
func New(cfg Config) *Loss {
	if cfg.BandWidth <= 0 {
		Panicf("contextual: band-width must be positive, got %g", cfg.BandWidth)
	}
	if !cfg.Distance.IsADistanceType() {
		Panicf("contextual: unsupported distance type %d, select one of %v", cfg.Distance, DistanceTypeValues())
	}
	if !cfg.Calc.IsACalcType() {
		Panicf("contextual: unsupported calculation type %d, select one of %v", cfg.Calc, CalcTypeValues())
	}
	if cfg.MaxSize1D <= 0 {
		Panicf("contextual: MaxSize1D must be positive, got %d", cfg.MaxSize1D)
	}
	if cfg.SpatialWeight < 0 || cfg.SpatialWeight > 1 {
		Panicf("contextual: SpatialWeight must be in [0, 1], got %g", cfg.SpatialWeight)
	}
	if cfg.Extractor != nil && len(cfg.LayerWeights) == 0 {
		Panicf("contextual: an extractor was configured but no layer weights given")
	}
	for name, weight := range cfg.LayerWeights {
		if weight <= 0 {
			Panicf("contextual: layer %q has non-positive weight %g", name, weight)
		}
	}

	l := &Loss{
		extractor:     cfg.Extractor,
		layerWeights:  cfg.LayerWeights,
		lossWeight:    cfg.LossWeight,
		cropQuarter:   cfg.CropQuarter,
		maxSize1D:     cfg.MaxSize1D,
		distance:      cfg.Distance,
		bias:          cfg.Bias,
		bandWidth:     cfg.BandWidth,
		spatialWeight: cfg.SpatialWeight,
		guard:         cfg.Guard,
		rng:           cfg.Rand,
	}
	// Deterministic layer order keeps the built graph stable across processes.
	l.layerNames = make([]string, 0, len(cfg.LayerWeights))
	for name := range cfg.LayerWeights {
		l.layerNames = append(l.layerNames, name)
	}
	sort.Strings(l.layerNames)

	switch cfg.Calc {
	case CalcSymmetric:
		l.calc = l.symmetric
	case CalcBilateral:
		l.calc = l.bilateral
	default:
		l.calc = l.regular
	}
	return l
}

// LossGraph builds the contextual loss between the predicted and target image batches,
// both shaped `[batch, channels, height, width]`, and returns the scalar loss node.
//
// With an extractor configured the images must have exactly 3 channels; the loss is the
// LossWeight-scaled, per-layer-weighted sum over the configured layers. Without an
// extractor the same pipeline runs on the raw images.
func (l *Loss) LossGraph(pred, target *Node) *Node {
	if !pred.Shape().Equal(target.Shape()) {
		Panicf("contextual: prediction (%s) and target (%s) must have the same shape",
			pred.Shape(), target.Shape())
	}
	pred.AssertRank(4)

	if l.extractor == nil {
		return MulScalar(l.layerLoss(pred, target), l.lossWeight)
	}

	if channels := pred.Shape().Dim(1); channels != 3 {
		Panicf("contextual: the feature extractor takes 3-channel images, got %d channels", channels)
	}
	predFeatures := l.extractor.Extract(pred)
	targetFeatures := l.extractor.Extract(target)

	var total *Node
	for _, name := range l.layerNames {
		qf, okQ := predFeatures[name]
		tf, okT := targetFeatures[name]
		if !okQ || !okT {
			Panicf("contextual: extractor did not produce configured layer %q (it offers %v)",
				name, l.extractor.Layers())
		}
		term := MulScalar(l.layerLoss(qf, tf), l.layerWeights[name])
		if total == nil {
			total = term
		} else {
			total = Add(total, term)
		}
	}
	return MulScalar(total, l.lossWeight)
}

// LossFn adapts the loss to the `train.LossFn` signature used by gomlx trainers:
// labels[0] is the target image, predictions[0] the predicted image.
func (l *Loss) LossFn(labels, predictions []*Node) *Node {
	return l.LossGraph(predictions[0], labels[0])
}

// layerLoss runs the preprocessing (quarter-crop, random pooling) and the configured
// calculation mode on one pair of feature maps.
func (l *Loss) layerLoss(query, target *Node) *Node {
	if l.cropQuarter {
		query = CropQuarters(query)
		target = CropQuarters(target)
	}
	dims := query.Shape().Dimensions
	if dims[2]*dims[3] > l.maxSize1D*l.maxSize1D {
		sampled := RandomPool(l.rng, []*Node{query, target}, l.maxSize1D)
		query, target = sampled[0], sampled[1]
	}
	return l.calc(query, target)
}

// regular computes the one-directional contextual loss between two feature maps.
func (l *Loss) regular(query, target *Node) *Node {
	l.guard.Watch(query, "contextual/query-features")
	l.guard.Watch(target, "contextual/target-features")

	raw := rawDistance(l.distance, query, target)
	l.guard.Watch(raw, "contextual/raw-distance")

	relative := relativeDistance(raw)
	l.guard.Watch(relative, "contextual/relative-distance")

	expSim, sim := l.similarity(relative)
	l.guard.Watch(expSim, "contextual/exp-similarity")
	l.guard.Watch(sim, "contextual/similarity")

	return aggregate(sim)
}

// symmetric averages the regular loss computed in both directions.
func (l *Loss) symmetric(query, target *Node) *Node {
	return DivScalar(Add(l.regular(query, target), l.regular(target, query)), 2.0)
}

// bilateral combines the feature similarity with the similarity of a normalized
// coordinate grid of the same spatial extent, as a convex combination weighted by
// SpatialWeight, and aggregates the blend.
func (l *Loss) bilateral(query, target *Node) *Node {
	dims := query.Shape().Dimensions
	grid := coordinateGrid(query.Graph(), query.DType(), dims[0], dims[2], dims[3])
	_, spatialSim := l.similarity(relativeDistance(l2Distance(grid, grid)))

	l.guard.Watch(query, "contextual/query-features")
	l.guard.Watch(target, "contextual/target-features")
	raw := rawDistance(l.distance, query, target)
	l.guard.Watch(raw, "contextual/raw-distance")
	relative := relativeDistance(raw)
	l.guard.Watch(relative, "contextual/relative-distance")
	expSim, featureSim := l.similarity(relative)
	l.guard.Watch(expSim, "contextual/exp-similarity")
	l.guard.Watch(featureSim, "contextual/similarity")

	combined := Add(
		MulScalar(featureSim, 1.0-l.spatialWeight),
		MulScalar(spatialSim, l.spatialWeight))
	return aggregate(combined)
}
