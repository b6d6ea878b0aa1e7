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

	"github.com/matrixorigin/framequery/pkg/common/moerr"
	"github.com/matrixorigin/framequery/pkg/frame/expression"
	"github.com/matrixorigin/framequery/pkg/frame/ids"
	"github.com/matrixorigin/framequery/pkg/frame/ordering"
)

// PromoteOffsetsNode appends a dense zero-based int64 row offset column.
type PromoteOffsetsNode struct {
	unaryNode
	ColId ids.ColumnId
}

func NewPromoteOffsetsNode(child Node, colId ids.ColumnId) *PromoteOffsetsNode {
	return &PromoteOffsetsNode{unaryNode: unaryNode{Child: child}, ColId: colId}
}

func (n *PromoteOffsetsNode) Fields() []Field {
	return n.memo.cachedFields(func() []Field {
		child := n.Child.Fields()
		fields := make([]Field, 0, len(child)+1)
		fields = append(fields, child...)
		fields = append(fields, Field{Id: n.ColId, Typ: int64Type()})
		return fields
	})
}

func (n *PromoteOffsetsNode) NonLocal() bool             { return true }
func (n *PromoteOffsetsNode) VariablesIntroduced() int64 { return 1 }
func (n *PromoteOffsetsNode) RelationOpsCreated() int64  { return 2 }

func (n *PromoteOffsetsNode) TransformChildren(fn func(Node) Node) Node {
	return &PromoteOffsetsNode{unaryNode: unaryNode{Child: fn(n.Child)}, ColId: n.ColId}
}

func (n *PromoteOffsetsNode) Hash() uint64 { return hashNode(n) }

func (n *PromoteOffsetsNode) hashInto(hs *hasher) {
	hs.str("promote_offsets")
	hs.node(n.Child)
	hs.id(n.ColId)
}

func (n *PromoteOffsetsNode) equalSameKind(o Node) bool {
	other, ok := o.(*PromoteOffsetsNode)
	return ok && n.ColId == other.ColId && Equal(n.Child, other.Child)
}

// FilterNode keeps the rows for which Predicate evaluates to true.
type FilterNode struct {
	unaryNode
	Predicate expression.Expression
}

func NewFilterNode(child Node, predicate expression.Expression) *FilterNode {
	return &FilterNode{unaryNode: unaryNode{Child: child}, Predicate: predicate}
}

func (n *FilterNode) RowPreserving() bool        { return false }
func (n *FilterNode) VariablesIntroduced() int64 { return 1 }

func (n *FilterNode) TransformChildren(fn func(Node) Node) Node {
	return &FilterNode{unaryNode: unaryNode{Child: fn(n.Child)}, Predicate: n.Predicate}
}

func (n *FilterNode) Hash() uint64 { return hashNode(n) }

func (n *FilterNode) hashInto(hs *hasher) {
	hs.str("filter")
	hs.node(n.Child)
	hs.str(n.Predicate.String())
}

func (n *FilterNode) equalSameKind(o Node) bool {
	other, ok := o.(*FilterNode)
	return ok && n.Predicate.String() == other.Predicate.String() && Equal(n.Child, other.Child)
}

// OrderByNode sorts rows by the given keys. It costs no extra relational op
// since the sort folds into a downstream window or output clause.
type OrderByNode struct {
	unaryNode
	By []ordering.OrderingExpression
}

func NewOrderByNode(child Node, by ...ordering.OrderingExpression) *OrderByNode {
	return &OrderByNode{unaryNode: unaryNode{Child: child}, By: by}
}

func (n *OrderByNode) VariablesIntroduced() int64 { return 0 }
func (n *OrderByNode) RelationOpsCreated() int64  { return 0 }
func (n *OrderByNode) ExplicitlyOrdered() bool    { return true }

func (n *OrderByNode) TransformChildren(fn func(Node) Node) Node {
	return &OrderByNode{unaryNode: unaryNode{Child: fn(n.Child)}, By: n.By}
}

func (n *OrderByNode) Hash() uint64 { return hashNode(n) }

func (n *OrderByNode) hashInto(hs *hasher) {
	hs.str("order_by")
	hs.node(n.Child)
	hs.u64(uint64(len(n.By)))
	for _, k := range n.By {
		hs.id(k.Column)
		hs.u64(uint64(k.Dir))
		hs.boolean(k.NullsLast)
	}
}

func (n *OrderByNode) equalSameKind(o Node) bool {
	other, ok := o.(*OrderByNode)
	if !ok || len(n.By) != len(other.By) {
		return false
	}
	for i := range n.By {
		if n.By[i] != other.By[i] {
			return false
		}
	}
	return Equal(n.Child, other.Child)
}

// ReversedNode reverses the row order of its input.
type ReversedNode struct {
	unaryNode
}

func NewReversedNode(child Node) *ReversedNode {
	return &ReversedNode{unaryNode: unaryNode{Child: child}}
}

func (n *ReversedNode) VariablesIntroduced() int64 { return 0 }
func (n *ReversedNode) RelationOpsCreated() int64  { return 0 }

func (n *ReversedNode) TransformChildren(fn func(Node) Node) Node {
	return &ReversedNode{unaryNode: unaryNode{Child: fn(n.Child)}}
}

func (n *ReversedNode) Hash() uint64 { return hashNode(n) }

func (n *ReversedNode) hashInto(hs *hasher) {
	hs.str("reversed")
	hs.node(n.Child)
}

func (n *ReversedNode) equalSameKind(o Node) bool {
	other, ok := o.(*ReversedNode)
	return ok && Equal(n.Child, other.Child)
}

// SelectionPair renames one input column into the output schema.
type SelectionPair struct {
	In  ids.ColumnId
	Out ids.ColumnId
}

// SelectionNode reorders, subsets and renames the input columns. It replaces
// the visible namespace: columns not selected are gone.
type SelectionNode struct {
	unaryNode
	Pairs []SelectionPair
}

func NewSelectionNode(ctx context.Context, child Node, pairs []SelectionPair) (*SelectionNode, error) {
	lookup := TypeLookupOf(child)
	for _, p := range pairs {
		if _, ok := lookup[p.In]; !ok {
			return nil, moerr.NewInvalidInput(ctx, "selection input column %s not found in schema", p.In)
		}
	}
	return &SelectionNode{unaryNode: unaryNode{Child: child}, Pairs: pairs}, nil
}

func (n *SelectionNode) Fields() []Field {
	return n.memo.cachedFields(func() []Field {
		lookup := TypeLookupOf(n.Child)
		fields := make([]Field, len(n.Pairs))
		for i, p := range n.Pairs {
			fields[i] = Field{Id: p.Out, Typ: lookup[p.In]}
		}
		return fields
	})
}

func (n *SelectionNode) VariablesIntroduced() int64 { return 0 }
func (n *SelectionNode) DefinesNamespace() bool     { return true }

func (n *SelectionNode) TransformChildren(fn func(Node) Node) Node {
	return &SelectionNode{unaryNode: unaryNode{Child: fn(n.Child)}, Pairs: n.Pairs}
}

func (n *SelectionNode) Hash() uint64 { return hashNode(n) }

func (n *SelectionNode) hashInto(hs *hasher) {
	hs.str("selection")
	hs.node(n.Child)
	hs.u64(uint64(len(n.Pairs)))
	for _, p := range n.Pairs {
		hs.id(p.In)
		hs.id(p.Out)
	}
}

func (n *SelectionNode) equalSameKind(o Node) bool {
	other, ok := o.(*SelectionNode)
	if !ok || len(n.Pairs) != len(other.Pairs) {
		return false
	}
	for i := range n.Pairs {
		if n.Pairs[i] != other.Pairs[i] {
			return false
		}
	}
	return Equal(n.Child, other.Child)
}

// Assignment binds one expression result to a fresh output column.
type Assignment struct {
	Expr expression.Expression
	Id   ids.ColumnId
}

// ProjectionNode appends computed columns to its input schema. Assigned ids
// must be fresh; replacing an existing column goes through a selection.
type ProjectionNode struct {
	unaryNode
	Assignments []Assignment
}

func NewProjectionNode(ctx context.Context, child Node, assignments []Assignment) (*ProjectionNode, error) {
	lookup := TypeLookupOf(child)
	for _, a := range assignments {
		if _, ok := lookup[a.Id]; ok {
			return nil, moerr.NewDuplicate(ctx, "projection target column %s already exists in schema", a.Id)
		}
		if _, err := a.Expr.OutputType(ctx, lookup); err != nil {
			return nil, err
		}
	}
	return &ProjectionNode{unaryNode: unaryNode{Child: child}, Assignments: assignments}, nil
}

func (n *ProjectionNode) Fields() []Field {
	return n.memo.cachedFields(func() []Field {
		lookup := TypeLookupOf(n.Child)
		child := n.Child.Fields()
		fields := make([]Field, 0, len(child)+len(n.Assignments))
		fields = append(fields, child...)
		for _, a := range n.Assignments {
			// Validated at construction, cannot fail here.
			typ, err := a.Expr.OutputType(context.Background(), lookup)
			if err != nil {
				panic(moerr.NewInternalError(context.Background(),
					"projection column %s lost its inputs: %v", a.Id, err))
			}
			fields = append(fields, Field{Id: a.Id, Typ: typ})
		}
		return fields
	})
}

// VariablesIntroduced counts only the non-trivial expressions; bare column
// aliases cost nothing at plan time.
func (n *ProjectionNode) VariablesIntroduced() int64 {
	var count int64
	for _, a := range n.Assignments {
		if !a.Expr.IsIdentity() {
			count++
		}
	}
	return count
}

func (n *ProjectionNode) TransformChildren(fn func(Node) Node) Node {
	return &ProjectionNode{unaryNode: unaryNode{Child: fn(n.Child)}, Assignments: n.Assignments}
}

func (n *ProjectionNode) Hash() uint64 { return hashNode(n) }

func (n *ProjectionNode) hashInto(hs *hasher) {
	hs.str("projection")
	hs.node(n.Child)
	hs.u64(uint64(len(n.Assignments)))
	for _, a := range n.Assignments {
		hs.str(a.Expr.String())
		hs.id(a.Id)
	}
}

func (n *ProjectionNode) equalSameKind(o Node) bool {
	other, ok := o.(*ProjectionNode)
	if !ok || len(n.Assignments) != len(other.Assignments) {
		return false
	}
	for i := range n.Assignments {
		if n.Assignments[i].Id != other.Assignments[i].Id ||
			n.Assignments[i].Expr.String() != other.Assignments[i].Expr.String() {
			return false
		}
	}
	return Equal(n.Child, other.Child)
}

// RowCountNode collapses its input into a single row holding the row count.
type RowCountNode struct {
	unaryNode
}

func NewRowCountNode(child Node) *RowCountNode {
	return &RowCountNode{unaryNode: unaryNode{Child: child}}
}

func (n *RowCountNode) Fields() []Field {
	return n.memo.cachedFields(func() []Field {
		return []Field{{Id: ids.ColumnId("count"), Typ: int64Type()}}
	})
}

func (n *RowCountNode) RowPreserving() bool        { return false }
func (n *RowCountNode) NonLocal() bool             { return true }
func (n *RowCountNode) VariablesIntroduced() int64 { return 1 }
func (n *RowCountNode) DefinesNamespace() bool     { return true }
func (n *RowCountNode) OrderAmbiguous() bool       { return false }
func (n *RowCountNode) ExplicitlyOrdered() bool    { return true }

func (n *RowCountNode) TransformChildren(fn func(Node) Node) Node {
	return &RowCountNode{unaryNode: unaryNode{Child: fn(n.Child)}}
}

func (n *RowCountNode) Hash() uint64 { return hashNode(n) }

func (n *RowCountNode) hashInto(hs *hasher) {
	hs.str("row_count")
	hs.node(n.Child)
}

func (n *RowCountNode) equalSameKind(o Node) bool {
	other, ok := o.(*RowCountNode)
	return ok && Equal(n.Child, other.Child)
}

// NamedAggregation binds one aggregate result to an output column.
type NamedAggregation struct {
	Agg *expression.Aggregation
	Id  ids.ColumnId
}

// AggregateNode groups rows by ByColumnIds and computes Aggregations per
// group. Output is one row per group, ordered by the grouping keys.
type AggregateNode struct {
	unaryNode
	Aggregations []NamedAggregation
	ByColumnIds  []ids.ColumnId
	DropNa       bool
}

func NewAggregateNode(ctx context.Context, child Node, aggs []NamedAggregation, by []ids.ColumnId, dropNa bool) (*AggregateNode, error) {
	lookup := TypeLookupOf(child)
	for _, col := range by {
		if _, ok := lookup[col]; !ok {
			return nil, moerr.NewInvalidInput(ctx, "grouping column %s not found in schema", col)
		}
	}
	for _, a := range aggs {
		if _, err := a.Agg.OutputType(ctx, lookup); err != nil {
			return nil, err
		}
	}
	return &AggregateNode{
		unaryNode:    unaryNode{Child: child},
		Aggregations: aggs,
		ByColumnIds:  by,
		DropNa:       dropNa,
	}, nil
}

func (n *AggregateNode) Fields() []Field {
	return n.memo.cachedFields(func() []Field {
		lookup := TypeLookupOf(n.Child)
		fields := make([]Field, 0, len(n.ByColumnIds)+len(n.Aggregations))
		for _, col := range n.ByColumnIds {
			fields = append(fields, Field{Id: col, Typ: lookup[col]})
		}
		for _, a := range n.Aggregations {
			fields = append(fields, Field{Id: a.Id, Typ: a.Agg.Typ})
		}
		return fields
	})
}

func (n *AggregateNode) RowPreserving() bool { return false }
func (n *AggregateNode) NonLocal() bool      { return true }

func (n *AggregateNode) VariablesIntroduced() int64 {
	return int64(len(n.Aggregations) + len(n.ByColumnIds))
}

func (n *AggregateNode) OrderAmbiguous() bool    { return false }
func (n *AggregateNode) ExplicitlyOrdered() bool { return true }
func (n *AggregateNode) DefinesNamespace() bool  { return true }

func (n *AggregateNode) TransformChildren(fn func(Node) Node) Node {
	return &AggregateNode{
		unaryNode:    unaryNode{Child: fn(n.Child)},
		Aggregations: n.Aggregations,
		ByColumnIds:  n.ByColumnIds,
		DropNa:       n.DropNa,
	}
}

func (n *AggregateNode) Hash() uint64 { return hashNode(n) }

func (n *AggregateNode) hashInto(hs *hasher) {
	hs.str("aggregate")
	hs.node(n.Child)
	hs.u64(uint64(len(n.Aggregations)))
	for _, a := range n.Aggregations {
		hs.str(a.Agg.String())
		hs.id(a.Id)
	}
	hs.u64(uint64(len(n.ByColumnIds)))
	for _, col := range n.ByColumnIds {
		hs.id(col)
	}
	hs.boolean(n.DropNa)
}

func (n *AggregateNode) equalSameKind(o Node) bool {
	other, ok := o.(*AggregateNode)
	if !ok || n.DropNa != other.DropNa ||
		len(n.Aggregations) != len(other.Aggregations) ||
		len(n.ByColumnIds) != len(other.ByColumnIds) {
		return false
	}
	for i := range n.Aggregations {
		if n.Aggregations[i].Id != other.Aggregations[i].Id ||
			n.Aggregations[i].Agg.String() != other.Aggregations[i].Agg.String() {
			return false
		}
	}
	for i := range n.ByColumnIds {
		if n.ByColumnIds[i] != other.ByColumnIds[i] {
			return false
		}
	}
	return Equal(n.Child, other.Child)
}

// WindowOpNode appends the result of one analytic operator applied over a
// window of the input.
type WindowOpNode struct {
	unaryNode
	ColumnId   ids.ColumnId
	Op         expression.WindowOp
	Spec       expression.WindowSpec
	OutputName ids.ColumnId

	// NeverSkipNulls disables the null-skipping rewrite some ops allow.
	NeverSkipNulls bool

	// SkipReprojectUnsafe marks the op safe to emit inline without the
	// reprojection barrier. Set only when the caller knows the engine will
	// not reorder around it.
	SkipReprojectUnsafe bool
}

func NewWindowOpNode(ctx context.Context, child Node, colId ids.ColumnId, op expression.WindowOp,
	spec expression.WindowSpec, outputName ids.ColumnId, neverSkipNulls, skipReprojectUnsafe bool) (*WindowOpNode, error) {
	lookup := TypeLookupOf(child)
	if _, ok := lookup[colId]; !ok {
		return nil, moerr.NewInvalidInput(ctx, "window input column %s not found in schema", colId)
	}
	for _, ref := range spec.ReferencedColumns() {
		if _, ok := lookup[ref]; !ok {
			return nil, moerr.NewInvalidInput(ctx, "window key column %s not found in schema", ref)
		}
	}
	return &WindowOpNode{
		unaryNode:           unaryNode{Child: child},
		ColumnId:            colId,
		Op:                  op,
		Spec:                spec,
		OutputName:          outputName,
		NeverSkipNulls:      neverSkipNulls,
		SkipReprojectUnsafe: skipReprojectUnsafe,
	}, nil
}

func (n *WindowOpNode) Fields() []Field {
	return n.memo.cachedFields(func() []Field {
		lookup := TypeLookupOf(n.Child)
		child := n.Child.Fields()
		fields := make([]Field, 0, len(child)+1)
		fields = append(fields, child...)
		fields = append(fields, Field{Id: n.OutputName, Typ: n.Op.OutputType(lookup[n.ColumnId])})
		return fields
	})
}

func (n *WindowOpNode) NonLocal() bool             { return true }
func (n *WindowOpNode) VariablesIntroduced() int64 { return 1 }

// RelationOpsCreated accounts for the reprojection barrier the window needs
// to keep its result stable, unless the caller waived it.
func (n *WindowOpNode) RelationOpsCreated() int64 {
	if n.SkipReprojectUnsafe {
		return 0
	}
	return 4
}

func (n *WindowOpNode) TransformChildren(fn func(Node) Node) Node {
	return &WindowOpNode{
		unaryNode:           unaryNode{Child: fn(n.Child)},
		ColumnId:            n.ColumnId,
		Op:                  n.Op,
		Spec:                n.Spec,
		OutputName:          n.OutputName,
		NeverSkipNulls:      n.NeverSkipNulls,
		SkipReprojectUnsafe: n.SkipReprojectUnsafe,
	}
}

func (n *WindowOpNode) Hash() uint64 { return hashNode(n) }

func (n *WindowOpNode) hashInto(hs *hasher) {
	hs.str("window_op")
	hs.node(n.Child)
	hs.id(n.ColumnId)
	hs.str(n.Op.String())
	hs.str(n.Spec.String())
	hs.id(n.OutputName)
	hs.boolean(n.NeverSkipNulls)
	hs.boolean(n.SkipReprojectUnsafe)
}

func (n *WindowOpNode) equalSameKind(o Node) bool {
	other, ok := o.(*WindowOpNode)
	return ok &&
		n.ColumnId == other.ColumnId &&
		n.Op == other.Op &&
		n.Spec.String() == other.Spec.String() &&
		n.OutputName == other.OutputName &&
		n.NeverSkipNulls == other.NeverSkipNulls &&
		n.SkipReprojectUnsafe == other.SkipReprojectUnsafe &&
		Equal(n.Child, other.Child)
}

// ReprojectOpNode forces materialization of the input as a stable
// intermediate relation, breaking analytic-over-analytic chains.
type ReprojectOpNode struct {
	unaryNode
}

func NewReprojectOpNode(child Node) *ReprojectOpNode {
	return &ReprojectOpNode{unaryNode: unaryNode{Child: child}}
}

func (n *ReprojectOpNode) VariablesIntroduced() int64 { return 0 }
func (n *ReprojectOpNode) RelationOpsCreated() int64  { return 0 }

func (n *ReprojectOpNode) TransformChildren(fn func(Node) Node) Node {
	return &ReprojectOpNode{unaryNode: unaryNode{Child: fn(n.Child)}}
}

func (n *ReprojectOpNode) Hash() uint64 { return hashNode(n) }

func (n *ReprojectOpNode) hashInto(hs *hasher) {
	hs.str("reproject")
	hs.node(n.Child)
}

func (n *ReprojectOpNode) equalSameKind(o Node) bool {
	other, ok := o.(*ReprojectOpNode)
	return ok && Equal(n.Child, other.Child)
}

// RandomSampleNode keeps each input row independently with probability
// Fraction. Re-evaluating produces different rows.
type RandomSampleNode struct {
	unaryNode
	Fraction float64
}

func NewRandomSampleNode(child Node, fraction float64) *RandomSampleNode {
	return &RandomSampleNode{unaryNode: unaryNode{Child: child}, Fraction: fraction}
}

func (n *RandomSampleNode) RowPreserving() bool        { return false }
func (n *RandomSampleNode) Deterministic() bool        { return false }
func (n *RandomSampleNode) VariablesIntroduced() int64 { return 1 }

func (n *RandomSampleNode) TransformChildren(fn func(Node) Node) Node {
	return &RandomSampleNode{unaryNode: unaryNode{Child: fn(n.Child)}, Fraction: n.Fraction}
}

func (n *RandomSampleNode) Hash() uint64 { return hashNode(n) }

func (n *RandomSampleNode) hashInto(hs *hasher) {
	hs.str("random_sample")
	hs.node(n.Child)
	hs.f64(n.Fraction)
}

func (n *RandomSampleNode) equalSameKind(o Node) bool {
	other, ok := o.(*RandomSampleNode)
	return ok && n.Fraction == other.Fraction && Equal(n.Child, other.Child)
}

// ExplodeNode unnests array columns, emitting one output row per element.
// The exploded columns must be arrays and explode together positionally.
type ExplodeNode struct {
	unaryNode
	ColumnIds []ids.ColumnId
}

func NewExplodeNode(ctx context.Context, child Node, columnIds []ids.ColumnId) (*ExplodeNode, error) {
	lookup := TypeLookupOf(child)
	for _, col := range columnIds {
		t, ok := lookup[col]
		if !ok {
			return nil, moerr.NewInvalidInput(ctx, "explode column %s not found in schema", col)
		}
		if !t.IsArray() {
			return nil, moerr.NewInvalidInput(ctx, "explode column %s has non-array type %s", col, t)
		}
	}
	return &ExplodeNode{unaryNode: unaryNode{Child: child}, ColumnIds: columnIds}, nil
}

func (n *ExplodeNode) Fields() []Field {
	return n.memo.cachedFields(func() []Field {
		exploded := ids.MakeColSet(n.ColumnIds...)
		child := n.Child.Fields()
		fields := make([]Field, len(child))
		for i, f := range child {
			if exploded.Contains(f.Id) {
				fields[i] = Field{Id: f.Id, Typ: f.Typ.ArrayElem()}
			} else {
				fields[i] = f
			}
		}
		return fields
	})
}

func (n *ExplodeNode) RowPreserving() bool       { return false }
func (n *ExplodeNode) RelationOpsCreated() int64 { return 3 }
func (n *ExplodeNode) DefinesNamespace() bool    { return true }

func (n *ExplodeNode) VariablesIntroduced() int64 {
	return int64(len(n.ColumnIds)) + 1
}

func (n *ExplodeNode) TransformChildren(fn func(Node) Node) Node {
	return &ExplodeNode{unaryNode: unaryNode{Child: fn(n.Child)}, ColumnIds: n.ColumnIds}
}

func (n *ExplodeNode) Hash() uint64 { return hashNode(n) }

func (n *ExplodeNode) hashInto(hs *hasher) {
	hs.str("explode")
	hs.node(n.Child)
	hs.u64(uint64(len(n.ColumnIds)))
	for _, col := range n.ColumnIds {
		hs.id(col)
	}
}

func (n *ExplodeNode) equalSameKind(o Node) bool {
	other, ok := o.(*ExplodeNode)
	if !ok || len(n.ColumnIds) != len(other.ColumnIds) {
		return false
	}
	for i := range n.ColumnIds {
		if n.ColumnIds[i] != other.ColumnIds[i] {
			return false
		}
	}
	return Equal(n.Child, other.Child)
}
