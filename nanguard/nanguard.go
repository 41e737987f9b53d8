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

// Package nanguard monitors selected `graph.Node` values for total numerical degeneracy:
// a watched tensor whose elements are entirely NaN or entirely Inf fails the execution.
//
// This is the strict-but-cheap policy used when training image restoration models: a
// fully non-finite intermediate means training has diverged, and the forward call must
// surface that immediately so the training loop can react (skip the step, lower the
// learning rate, abort). A tensor that is only partially NaN is NOT flagged and will
// propagate silently -- that is an accepted limitation of the check, not a bug.
//
// It works by hooking into the node-logger of the `graph.Exec` executing the graph,
// like graph/nanlogger does for element-wise NaN debugging:
//
//	guard := nanguard.New()
//	cfg := contextual.NewConfig()
//	cfg.Guard = guard
//	loss := contextual.New(cfg)
//	exec := graph.NewExec(backend, loss.LossGraph)
//	guard.Attach(exec)
package nanguard

import (
	"slices"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gomlx/graph"
	"github.com/gomlx/gomlx/types/tensors"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// UniqueMessageID marks the logged nodes managed by a Guard; any other logged message is
// passed through to the previously configured logger.
const UniqueMessageID = "#nanguard"

// Guard watches graph nodes for total NaN/Inf degeneracy.
// Create it with New, mark nodes with Watch while building the graph, and Attach it to
// the graph.Exec that runs the graph. A nil *Guard is valid and turns every method into
// a no-op, so libraries can thread an optional guard without checking.
type Guard struct {
	prevLoggerFn graph.LoggerFn
	handler      HandlerFn

	traces map[graph.GraphId]map[graph.NodeId]*Trace

	currentScope []string
}

// Trace holds the information reported when a watched node degenerates.
type Trace struct {
	// StackTrace of where the watch was created, stored as an error that can be printed
	// with "%+v".
	StackTrace error

	// Scope active when the watch was created.
	Scope []string
}

// ExecWithLogger is any executor that exposes its node logger: `graph.Exec` and
// `context.Exec` both qualify.
type ExecWithLogger interface {
	SetNodeLogger(loggerFn graph.LoggerFn)
	GetNodeLogger() graph.LoggerFn
}

// HandlerFn is called when a watched node is found entirely non-finite.
type HandlerFn func(info *Trace)

// New creates an empty Guard. See package documentation for usage.
func New() *Guard {
	return &Guard{
		handler: DefaultHandler,
		traces:  make(map[graph.GraphId]map[graph.NodeId]*Trace),
	}
}

// Attach sets the Guard as the node logger in exec. It acts as a pass-through for any
// logged message not marked with UniqueMessageID.
func (gd *Guard) Attach(exec ExecWithLogger) {
	if gd == nil {
		return
	}
	gd.prevLoggerFn = exec.GetNodeLogger()
	exec.SetNodeLogger(gd.loggerFn)
}

// Watch marks node to be checked at execution time. If every element of the node's value
// is NaN, or every element is Inf, the Guard's handler is invoked -- by default it
// panics with the stack trace of the Watch call and the given scope.
//
// The check is reduced in-graph to a single boolean scalar, so the cost per watched node
// is two full passes over its elements and no host transfer beyond one bool.
func (gd *Guard) Watch(node *graph.Node, scope ...string) {
	if gd == nil {
		return
	}
	if !node.DType().IsFloat() {
		return
	}
	g := node.Graph()

	// NaN is the only value that differs from itself; Inf is non-finite and not NaN.
	allNaN := graph.LogicalAll(graph.NotEqual(node, node))
	allInf := graph.LogicalAll(graph.And(graph.Not(graph.IsFinite(node)), graph.Equal(node, node)))
	flag := graph.Or(allNaN, allInf)
	flag.SetLogged(UniqueMessageID)

	trace := &Trace{
		StackTrace: errors.Errorf("stack-trace"),
		Scope:      slices.Clone(gd.currentScope),
	}
	if len(scope) > 0 {
		trace.Scope = slices.Clone(scope)
	}

	gID := g.GraphId()
	graphMap, found := gd.traces[gID]
	if !found {
		graphMap = make(map[graph.NodeId]*Trace)
		gd.traces[gID] = graphMap
	}
	graphMap[flag.Id()] = trace
}

// PushScope adds an entry to the scope stack recorded by subsequent Watch calls.
func (gd *Guard) PushScope(scope string) {
	if gd == nil {
		return
	}
	gd.currentScope = append(gd.currentScope, scope)
}

// PopScope removes the last entry of the scope stack.
func (gd *Guard) PopScope() {
	if gd == nil {
		return
	}
	if len(gd.currentScope) == 0 {
		klog.Warningf("nanguard: PopScope() called on an already empty scope stack!?")
		return
	}
	gd.currentScope = gd.currentScope[:len(gd.currentScope)-1]
}

// SetHandler replaces the function called when a watched node degenerates.
// The default is DefaultHandler.
func (gd *Guard) SetHandler(handler HandlerFn) {
	if gd == nil {
		return
	}
	gd.handler = handler
}

// loggerFn implements graph.LoggerFn: it consumes the flags of watched nodes and passes
// everything else through.
func (gd *Guard) loggerFn(g *graph.Graph, messages []string, values []*tensors.Tensor, nodes []graph.NodeId) {
	filteredMessages := make([]string, 0, len(messages))
	filteredValues := make([]*tensors.Tensor, 0, len(values))
	filteredNodes := make([]graph.NodeId, 0, len(nodes))

	firstTripped := graph.InvalidNodeId
	for ii, msg := range messages {
		if msg != UniqueMessageID {
			filteredMessages = append(filteredMessages, msg)
			filteredValues = append(filteredValues, values[ii])
			filteredNodes = append(filteredNodes, nodes[ii])
			continue
		}
		tripped, ok := values[ii].Value().(bool)
		if !ok {
			klog.Warningf("nanguard: watched node logged a non-boolean value %v, ignoring", values[ii])
			continue
		}
		if tripped {
			nodeID := nodes[ii]
			if firstTripped == graph.InvalidNodeId || nodeID < firstTripped {
				firstTripped = nodeID
			}
		}
	}

	if firstTripped != graph.InvalidNodeId {
		graphMap, found := gd.traces[g.GraphId()]
		if found {
			var trace *Trace
			trace, found = graphMap[firstTripped]
			if found {
				gd.handler(trace)
			}
		}
		if !found {
			klog.Warningf("nanguard: received trace for a node that was not watched: was the wrong Guard attached to the executor?")
		}
	}

	if gd.prevLoggerFn != nil && len(filteredMessages) > 0 {
		gd.prevLoggerFn(g, filteredMessages, filteredValues, filteredNodes)
	}
}

// DefaultHandler panics with the degenerated node's scope and the stack trace of its
// Watch call. The panic aborts the current Exec.Call, making the degeneracy a fatal
// error of that forward evaluation; callers that want to keep the process alive can
// recover from it (or install a softer handler with SetHandler).
func DefaultHandler(info *Trace) {
	var scopeTxt string
	if len(info.Scope) > 0 {
		scopeTxt = "\nScope:\n\t" + strings.Join(info.Scope, "\n\t")
	}
	exceptions.Panicf("nanguard: watched tensor is entirely NaN or entirely Inf%s\nStack-trace of watch:\n%+v",
		scopeTxt, info.StackTrace)
}
