// Copyright 2023 Matrix Origin
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package nodes defines the immutable tree of relational operators that
// represents a deferred DataFrame computation.
//
// Nodes are never mutated after construction. Tree rewrites produce new node
// instances sharing unchanged subtrees by reference. Derived properties
// (hash, fields, cost totals) are memoized once per node instance; the
// memoization is idempotent-safe under concurrent access because every
// computation is a pure function of immutable state.
package nodes

import (
	"context"
	"sync/atomic"

	"github.com/matrixorigin/framequery/pkg/common/moerr"
	"github.com/matrixorigin/framequery/pkg/container/types"
	"github.com/matrixorigin/framequery/pkg/frame/expression"
	"github.com/matrixorigin/framequery/pkg/frame/ids"
)

// OverheadVariables is the fixed variable count assumed for the overhead of
// shuffling operations when estimating planning complexity.
const OverheadVariables = 5

// Field pairs a column identity with its dtype. A node's field sequence is
// its output schema.
type Field struct {
	Id  ids.ColumnId
	Typ types.Type
}

// Session identifies the warehouse session a leaf was created under. Two
// sessions are the same iff their ids are equal.
type Session interface {
	SessionId() string
}

// Node is one immutable operator of the expression tree.
//
// The unexported methods close the variant set to this package, so every
// operation over nodes can switch exhaustively.
type Node interface {
	// Fields returns the output schema, in order.
	Fields() []Field

	// ChildNodes returns exactly the structural children. Auxiliary
	// references (a cached node's original subtree) are not children.
	ChildNodes() []Node

	// TransformChildren rebuilds the node with fn applied to each direct
	// child. All tree rewrites go through it.
	TransformChildren(fn func(Node) Node) Node

	// Prune rewrites the tree to avoid computing columns outside used,
	// preserving output semantics for the requested columns.
	Prune(used ids.ColSet) Node

	// VariablesIntroduced approximates how many value slots evaluating this
	// node adds, as a width proxy for planning complexity.
	VariablesIntroduced() int64

	// RelationOpsCreated counts the relational operations this node lowers
	// into.
	RelationOpsCreated() int64

	// RowPreserving reports whether every input row survives this node.
	RowPreserving() bool

	// NonLocal reports whether the node combines information across rows,
	// an approximation for whether evaluation may shuffle.
	NonLocal() bool

	// Deterministic reports whether repeated evaluation yields the same rows.
	Deterministic() bool

	// Joins reports whether the node joins data.
	Joins() bool

	// OrderAmbiguous reports whether row ordering below this node is
	// potentially ambiguous, e.g. a table read without a total ordering.
	OrderAmbiguous() bool

	// ExplicitlyOrdered reports whether an explicit ordering has been applied
	// at or below this node.
	ExplicitlyOrdered() bool

	// DefinesNamespace reports whether this node's own schema is the full
	// visible column set at this point of the tree.
	DefinesNamespace() bool

	// Hash is a structural hash over the declared state, cached after the
	// first computation.
	Hash() uint64

	nodeMemo() *memo
	hashInto(h *hasher)
	equalSameKind(other Node) bool
	ownSession() Session
	isSelfRoot() bool
}

// memo holds the write-once caches of one node instance. Concurrent
// redundant computation is allowed; every computed value is identical, so
// racing stores converge.
type memo struct {
	hash    atomic.Uint64
	fields  atomic.Pointer[[]Field]
	lookup  atomic.Pointer[expression.TypeLookup]
	totals  atomic.Pointer[treeTotals]
	sess    atomic.Pointer[sessionResult]
	defined atomic.Pointer[ids.ColSet]
}

func (m *memo) cachedFields(compute func() []Field) []Field {
	if p := m.fields.Load(); p != nil {
		return *p
	}
	f := compute()
	m.fields.Store(&f)
	return f
}

type treeTotals struct {
	variables     int64
	relationalOps int64
	joins         int64
}

type sessionResult struct {
	s   Session
	err error
}

// baseNode carries the memo and the default behavior shared by most
// variants.
type baseNode struct {
	memo memo
}

func (b *baseNode) nodeMemo() *memo          { return &b.memo }
func (*baseNode) RowPreserving() bool        { return true }
func (*baseNode) NonLocal() bool             { return false }
func (*baseNode) Deterministic() bool        { return true }
func (*baseNode) Joins() bool                { return false }
func (*baseNode) RelationOpsCreated() int64  { return 1 }
func (*baseNode) DefinesNamespace() bool     { return false }
func (*baseNode) ownSession() Session        { return nil }
func (*baseNode) isSelfRoot() bool           { return false }

// unaryNode carries the single child and the pass-through defaults of the
// unary variants.
type unaryNode struct {
	baseNode
	Child Node
}

func (u *unaryNode) ChildNodes() []Node      { return []Node{u.Child} }
func (u *unaryNode) Fields() []Field         { return u.Child.Fields() }
func (u *unaryNode) OrderAmbiguous() bool    { return u.Child.OrderAmbiguous() }
func (u *unaryNode) ExplicitlyOrdered() bool { return u.Child.ExplicitlyOrdered() }

// leafNode carries the defaults of the source variants.
type leafNode struct {
	baseNode
}

func (*leafNode) ChildNodes() []Node { return nil }
func (*leafNode) isSelfRoot() bool   { return true }

// Leaf is the extra contract of source nodes.
type Leaf interface {
	Node

	// SupportsFastHead reports whether the source can serve row prefixes
	// without a full scan.
	SupportsFastHead() bool

	// RowCount returns the known source row count, if any.
	RowCount() (int64, bool)
}

func hashNode(n Node) uint64 {
	m := n.nodeMemo()
	if h := m.hash.Load(); h != 0 {
		return h
	}
	hs := newHasher()
	n.hashInto(hs)
	h := hs.sum()
	if h == 0 {
		h = 1
	}
	m.hash.Store(h)
	return h
}

// Equal compares two trees structurally, short-circuiting on identity and on
// hash mismatch before the full recursive comparison.
func Equal(a, b Node) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	if a.Hash() != b.Hash() {
		return false
	}
	return a.equalSameKind(b)
}

// Ids returns the output column ids, in schema order.
func Ids(n Node) []ids.ColumnId {
	fields := n.Fields()
	res := make([]ids.ColumnId, len(fields))
	for i, f := range fields {
		res[i] = f.Id
	}
	return res
}

// IdSet returns the output column ids as a set.
func IdSet(n Node) ids.ColSet {
	return ids.MakeColSet(Ids(n)...)
}

// TypeLookupOf returns the memoized id-to-dtype map of a node's schema.
func TypeLookupOf(n Node) expression.TypeLookup {
	m := n.nodeMemo()
	if p := m.lookup.Load(); p != nil {
		return *p
	}
	lookup := make(expression.TypeLookup)
	for _, f := range n.Fields() {
		lookup[f.Id] = f.Typ
	}
	m.lookup.Store(&lookup)
	return lookup
}

// TypeOf resolves one output column's dtype.
func TypeOf(n Node, id ids.ColumnId) (types.Type, bool) {
	t, ok := TypeLookupOf(n)[id]
	return t, ok
}

func totalsOf(n Node) *treeTotals {
	m := n.nodeMemo()
	if t := m.totals.Load(); t != nil {
		return t
	}
	t := &treeTotals{
		variables:     n.VariablesIntroduced(),
		relationalOps: n.RelationOpsCreated(),
	}
	if n.Joins() {
		t.joins = 1
	}
	for _, child := range n.ChildNodes() {
		ct := totalsOf(child)
		t.variables += ct.variables
		t.relationalOps += ct.relationalOps
		t.joins += ct.joins
	}
	m.totals.Store(t)
	return t
}

func TotalVariables(n Node) int64 {
	return totalsOf(n).variables
}

func TotalRelationalOps(n Node) int64 {
	return totalsOf(n).relationalOps
}

func TotalJoins(n Node) int64 {
	return totalsOf(n).joins
}

// PlanningComplexity is the empirical cost score used to decide when to
// materialize an intermediate result rather than keep growing the tree.
func PlanningComplexity(n Node) int64 {
	return TotalVariables(n) * TotalRelationalOps(n) * (1 + TotalJoins(n))
}

// Roots collects the source-like nodes feeding the tree. Leaves and range
// generators report themselves; everything else unions its children.
func Roots(n Node) map[Node]struct{} {
	res := make(map[Node]struct{})
	collectRoots(n, res)
	return res
}

func collectRoots(n Node, res map[Node]struct{}) {
	if n.isSelfRoot() {
		res[n] = struct{}{}
		return
	}
	for _, child := range n.ChildNodes() {
		collectRoots(child, res)
	}
}

// SessionOf resolves the session carried transitively from the leaves. Two
// distinct reachable session identities are a fatal configuration error,
// surfaced here on first access rather than at construction.
func SessionOf(ctx context.Context, n Node) (Session, error) {
	m := n.nodeMemo()
	if r := m.sess.Load(); r != nil {
		return r.s, r.err
	}
	s, err := resolveSession(ctx, n)
	m.sess.Store(&sessionResult{s: s, err: err})
	return s, err
}

func resolveSession(ctx context.Context, n Node) (Session, error) {
	if own := n.ownSession(); own != nil {
		return own, nil
	}
	var found Session
	for _, child := range n.ChildNodes() {
		s, err := SessionOf(ctx, child)
		if err != nil {
			return nil, err
		}
		if s == nil {
			continue
		}
		if found != nil && found.SessionId() != s.SessionId() {
			return nil, moerr.NewInvalidState(ctx, "cannot combine sources from multiple sessions")
		}
		found = s
	}
	return found, nil
}

// DefinedVariables is the full set of column ids defined in the namespace at
// this node, even if not selected.
func DefinedVariables(n Node) ids.ColSet {
	m := n.nodeMemo()
	if p := m.defined.Load(); p != nil {
		return *p
	}
	defined := IdSet(n)
	if !n.DefinesNamespace() {
		children := make([]ids.ColSet, 0, len(n.ChildNodes()))
		for _, child := range n.ChildNodes() {
			children = append(children, DefinedVariables(child))
		}
		defined = defined.Union(children...)
	}
	m.defined.Store(&defined)
	return defined
}

func pruneChildren(n Node, used ids.ColSet) Node {
	return n.TransformChildren(func(child Node) Node {
		return child.Prune(used)
	})
}

func int64Type() types.Type {
	return types.New(types.T_int64)
}

func sessionId(s Session) string {
	if s == nil {
		return ""
	}
	return s.SessionId()
}

func sameSession(a, b Session) bool {
	return sessionId(a) == sessionId(b)
}
