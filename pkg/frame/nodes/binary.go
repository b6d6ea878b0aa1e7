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

package nodes

import (
	"context"
	"fmt"

	"github.com/matrixorigin/framequery/pkg/common/moerr"
	"github.com/matrixorigin/framequery/pkg/frame/ids"
)

// JoinType enumerates the supported join kinds.
type JoinType int8

const (
	JoinInner JoinType = iota
	JoinLeft
	JoinRight
	JoinOuter
	JoinCross
)

func (t JoinType) String() string {
	switch t {
	case JoinInner:
		return "inner"
	case JoinLeft:
		return "left"
	case JoinRight:
		return "right"
	case JoinOuter:
		return "outer"
	case JoinCross:
		return "cross"
	}
	return fmt.Sprintf("unexpected_join[%d]", t)
}

// JoinCondition equates one left column with one right column. Keys compare
// null-safe: two nulls match.
type JoinCondition struct {
	Left  ids.ColumnId
	Right ids.ColumnId
}

// JoinNode joins its two inputs on the given key pairs. Input schemas must be
// disjoint; callers rename columns before joining.
type JoinNode struct {
	baseNode
	Left       Node
	Right      Node
	Conditions []JoinCondition
	Type       JoinType
}

func NewJoinNode(ctx context.Context, left, right Node, conditions []JoinCondition, joinType JoinType) (*JoinNode, error) {
	if IdSet(left).Intersects(IdSet(right)) {
		return nil, moerr.NewInternalError(ctx, "join ids collide")
	}
	if joinType == JoinCross {
		if len(conditions) != 0 {
			return nil, moerr.NewInvalidInput(ctx, "cross join cannot have join conditions")
		}
	} else if len(conditions) == 0 {
		return nil, moerr.NewInvalidInput(ctx, "%s join requires at least one join condition", joinType)
	}
	lTypes, rTypes := TypeLookupOf(left), TypeLookupOf(right)
	for _, cond := range conditions {
		if _, ok := lTypes[cond.Left]; !ok {
			return nil, moerr.NewInvalidInput(ctx, "join key %s not found in left schema", cond.Left)
		}
		if _, ok := rTypes[cond.Right]; !ok {
			return nil, moerr.NewInvalidInput(ctx, "join key %s not found in right schema", cond.Right)
		}
	}
	return &JoinNode{Left: left, Right: right, Conditions: conditions, Type: joinType}, nil
}

func (n *JoinNode) ChildNodes() []Node { return []Node{n.Left, n.Right} }

func (n *JoinNode) Fields() []Field {
	return n.memo.cachedFields(func() []Field {
		l, r := n.Left.Fields(), n.Right.Fields()
		fields := make([]Field, 0, len(l)+len(r))
		fields = append(fields, l...)
		fields = append(fields, r...)
		return fields
	})
}

func (n *JoinNode) RowPreserving() bool { return false }
func (n *JoinNode) NonLocal() bool      { return true }
func (n *JoinNode) Joins() bool         { return true }

func (n *JoinNode) VariablesIntroduced() int64 { return OverheadVariables }

// OrderAmbiguous is always true: the join itself scrambles row order, and the
// ordering compiler has to reconstruct one from the inputs.
func (n *JoinNode) OrderAmbiguous() bool    { return true }
func (n *JoinNode) ExplicitlyOrdered() bool { return false }
func (n *JoinNode) DefinesNamespace() bool  { return true }

func (n *JoinNode) TransformChildren(fn func(Node) Node) Node {
	return &JoinNode{
		Left:       fn(n.Left),
		Right:      fn(n.Right),
		Conditions: n.Conditions,
		Type:       n.Type,
	}
}

func (n *JoinNode) Hash() uint64 { return hashNode(n) }

func (n *JoinNode) hashInto(hs *hasher) {
	hs.str("join")
	hs.node(n.Left)
	hs.node(n.Right)
	hs.u64(uint64(len(n.Conditions)))
	for _, cond := range n.Conditions {
		hs.id(cond.Left)
		hs.id(cond.Right)
	}
	hs.u64(uint64(n.Type))
}

func (n *JoinNode) equalSameKind(o Node) bool {
	other, ok := o.(*JoinNode)
	if !ok || n.Type != other.Type || len(n.Conditions) != len(other.Conditions) {
		return false
	}
	for i := range n.Conditions {
		if n.Conditions[i] != other.Conditions[i] {
			return false
		}
	}
	return Equal(n.Left, other.Left) && Equal(n.Right, other.Right)
}

// ConcatNode stacks its inputs vertically. Inputs must agree on positional
// dtypes; output columns get fresh positional ids since input ids generally
// differ across children.
type ConcatNode struct {
	baseNode
	Children []Node
}

func NewConcatNode(ctx context.Context, children []Node) (*ConcatNode, error) {
	if len(children) == 0 {
		return nil, moerr.NewInvalidInput(ctx, "concat requires at least one input")
	}
	first := children[0].Fields()
	for _, child := range children[1:] {
		fields := child.Fields()
		if len(fields) != len(first) {
			return nil, moerr.NewInvalidInput(ctx,
				"concat inputs have mismatched column counts: %d vs %d", len(first), len(fields))
		}
		for i := range fields {
			if fields[i].Typ != first[i].Typ {
				return nil, moerr.NewInvalidInput(ctx,
					"concat inputs have mismatched types at column %d: %s vs %s",
					i, first[i].Typ, fields[i].Typ)
			}
		}
	}
	return &ConcatNode{Children: children}, nil
}

func (n *ConcatNode) ChildNodes() []Node { return n.Children }

func (n *ConcatNode) Fields() []Field {
	return n.memo.cachedFields(func() []Field {
		first := n.Children[0].Fields()
		fields := make([]Field, len(first))
		for i, f := range first {
			fields[i] = Field{Id: ids.ColumnId(fmt.Sprintf("column_%d", i)), Typ: f.Typ}
		}
		return fields
	})
}

func (n *ConcatNode) NonLocal() bool         { return true }
func (n *ConcatNode) DefinesNamespace() bool { return true }

func (n *ConcatNode) VariablesIntroduced() int64 {
	return int64(len(n.Fields())) + OverheadVariables
}

func (n *ConcatNode) OrderAmbiguous() bool {
	for _, child := range n.Children {
		if child.OrderAmbiguous() {
			return true
		}
	}
	return false
}

func (n *ConcatNode) ExplicitlyOrdered() bool { return true }

func (n *ConcatNode) TransformChildren(fn func(Node) Node) Node {
	children := make([]Node, len(n.Children))
	for i, child := range n.Children {
		children[i] = fn(child)
	}
	return &ConcatNode{Children: children}
}

func (n *ConcatNode) Hash() uint64 { return hashNode(n) }

func (n *ConcatNode) hashInto(hs *hasher) {
	hs.str("concat")
	hs.u64(uint64(len(n.Children)))
	for _, child := range n.Children {
		hs.node(child)
	}
}

func (n *ConcatNode) equalSameKind(o Node) bool {
	other, ok := o.(*ConcatNode)
	if !ok || len(n.Children) != len(other.Children) {
		return false
	}
	for i := range n.Children {
		if !Equal(n.Children[i], other.Children[i]) {
			return false
		}
	}
	return true
}

// FromRangeNode generates an integer sequence from two single-row inputs
// holding the start and end bounds. It reads only scalars from its children,
// so it counts as a root of the tree.
type FromRangeNode struct {
	baseNode
	Start Node
	End   Node
	Step  int64
}

func NewFromRangeNode(ctx context.Context, start, end Node, step int64) (*FromRangeNode, error) {
	if len(start.Fields()) == 0 {
		return nil, moerr.NewInvalidInput(ctx, "range start input has no columns")
	}
	if len(end.Fields()) == 0 {
		return nil, moerr.NewInvalidInput(ctx, "range end input has no columns")
	}
	if step == 0 {
		return nil, moerr.NewInvalidInput(ctx, "range step cannot be zero")
	}
	return &FromRangeNode{Start: start, End: end, Step: step}, nil
}

func (n *FromRangeNode) ChildNodes() []Node { return []Node{n.Start, n.End} }

func (n *FromRangeNode) Fields() []Field {
	return n.memo.cachedFields(func() []Field {
		return []Field{{Id: ids.ColumnId("labels"), Typ: n.Start.Fields()[0].Typ}}
	})
}

func (n *FromRangeNode) RowPreserving() bool    { return false }
func (n *FromRangeNode) NonLocal() bool         { return true }
func (n *FromRangeNode) DefinesNamespace() bool { return true }
func (n *FromRangeNode) isSelfRoot() bool       { return true }

func (n *FromRangeNode) VariablesIntroduced() int64 { return 1 + OverheadVariables }

func (n *FromRangeNode) OrderAmbiguous() bool    { return false }
func (n *FromRangeNode) ExplicitlyOrdered() bool { return true }

func (n *FromRangeNode) TransformChildren(fn func(Node) Node) Node {
	return &FromRangeNode{Start: fn(n.Start), End: fn(n.End), Step: n.Step}
}

func (n *FromRangeNode) Hash() uint64 { return hashNode(n) }

func (n *FromRangeNode) hashInto(hs *hasher) {
	hs.str("from_range")
	hs.node(n.Start)
	hs.node(n.End)
	hs.i64(n.Step)
}

func (n *FromRangeNode) equalSameKind(o Node) bool {
	other, ok := o.(*FromRangeNode)
	return ok && n.Step == other.Step && Equal(n.Start, other.Start) && Equal(n.End, other.End)
}
