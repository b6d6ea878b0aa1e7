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

package compile

import (
	"context"

	"github.com/matrixorigin/framequery/pkg/common/moerr"
	"github.com/matrixorigin/framequery/pkg/container/types"
	"github.com/matrixorigin/framequery/pkg/frame/ids"
	"github.com/matrixorigin/framequery/pkg/frame/nodes"
	"github.com/matrixorigin/framequery/pkg/frame/ordering"
)

// nullSentinel stands in for null join keys so null equals null, matching
// pandas join semantics rather than SQL's.
const nullSentinel = "$NULL_SENTINEL$"

// valueToJoinKey converts a key expression into a null-safe string key:
// non-strings are cast, then nulls collapse to the sentinel.
func valueToJoinKey(e Expr) Expr {
	varchar := types.New(types.T_varchar)
	if !e.Type().IsString() {
		e = Call{Name: FnCastString, Args: []Expr{e}, Typ: varchar}
	}
	return Call{
		Name: FnIfNull,
		Args: []Expr{e, Literal{Repr: nullSentinel, Typ: varchar}},
		Typ:  varchar,
	}
}

// remapVisible re-exposes every visible column of r under a fresh name drawn
// from gen. Both join sides go through the same generator, so the remapped
// namespaces cannot collide.
func remapVisible(r *UnorderedRel, gen *ids.Generator) (*UnorderedRel, map[ids.ColumnId]ids.ColumnId) {
	mapping := make(map[ids.ColumnId]ids.ColumnId, len(r.Columns))
	columns := make([]NamedExpr, len(r.Columns))
	for i, c := range r.Columns {
		fresh := gen.Next()
		mapping[c.Name] = fresh
		columns[i] = NamedExpr{Name: fresh, Expr: ColumnRef{Name: c.Name, Typ: c.Expr.Type()}}
	}
	return &UnorderedRel{Base: r.Base, Columns: columns}, mapping
}

// remapHidden renames the hidden ordering columns through the process-wide
// allocator, extending mapping in place.
func remapHidden(hidden []NamedExpr, mapping map[ids.ColumnId]ids.ColumnId) []NamedExpr {
	out := make([]NamedExpr, len(hidden))
	for i, c := range hidden {
		fresh := ids.Alloc("hidden")
		mapping[c.Name] = fresh
		out[i] = NamedExpr{Name: fresh, Expr: ColumnRef{Name: c.Name, Typ: c.Expr.Type()}}
	}
	return out
}

func joinPredicates(ctx context.Context, left, right *UnorderedRel,
	conditions []nodes.JoinCondition,
	leftMapping, rightMapping map[ids.ColumnId]ids.ColumnId) ([]JoinPredicate, error) {
	preds := make([]JoinPredicate, len(conditions))
	for i, cond := range conditions {
		lName, ok := leftMapping[cond.Left]
		if !ok {
			return nil, moerr.NewInvalidInput(ctx, "join key %s not found in left relation", cond.Left)
		}
		rName, ok := rightMapping[cond.Right]
		if !ok {
			return nil, moerr.NewInvalidInput(ctx, "join key %s not found in right relation", cond.Right)
		}
		lTyp, _ := left.ColumnType(cond.Left)
		rTyp, _ := right.ColumnType(cond.Right)
		preds[i] = JoinPredicate{
			Left:  valueToJoinKey(ColumnRef{Name: lName, Typ: lTyp}),
			Right: valueToJoinKey(ColumnRef{Name: rName, Typ: rTyp}),
		}
	}
	return preds, nil
}

func joinOutputColumns(left, right *UnorderedRel) []NamedExpr {
	columns := make([]NamedExpr, 0, len(left.Columns)+len(right.Columns))
	for _, c := range left.Columns {
		columns = append(columns, NamedExpr{Name: c.Name, Expr: ColumnRef{Name: c.Name, Typ: c.Expr.Type()}})
	}
	for _, c := range right.Columns {
		columns = append(columns, NamedExpr{Name: c.Name, Expr: ColumnRef{Name: c.Name, Typ: c.Expr.Type()}})
	}
	return columns
}

// JoinByColumnUnordered joins two unordered relations on equal key pairs.
// Output columns are the left side's followed by the right side's, renamed
// into a fresh shared namespace.
func JoinByColumnUnordered(ctx context.Context, left, right *UnorderedRel,
	conditions []nodes.JoinCondition, kind nodes.JoinType) (*UnorderedRel, error) {
	gen := ids.NewGenerator("col")
	l, lMapping := remapVisible(left, gen)
	r, rMapping := remapVisible(right, gen)

	preds, err := joinPredicates(ctx, left, right, conditions, lMapping, rMapping)
	if err != nil {
		return nil, err
	}
	return &UnorderedRel{
		Base:    JoinSource{Left: l, Right: r, Conditions: preds, Kind: kind},
		Columns: joinOutputColumns(l, r),
	}, nil
}

// JoinByColumnOrdered is JoinByColumnUnordered plus order reconstruction: the
// output carries a composed ordering in which one input's keys dominate. The
// left input dominates except for right joins, where the right side's order
// is the one pandas preserves.
func JoinByColumnOrdered(ctx context.Context, left, right *OrderedRel,
	conditions []nodes.JoinCondition, kind nodes.JoinType) (*OrderedRel, error) {
	gen := ids.NewGenerator("col")
	l, lMapping := remapVisible(&left.UnorderedRel, gen)
	r, rMapping := remapVisible(&right.UnorderedRel, gen)
	lHidden := remapHidden(left.HiddenOrderingColumns, lMapping)
	rHidden := remapHidden(right.HiddenOrderingColumns, rMapping)

	preds, err := joinPredicates(ctx, &left.UnorderedRel, &right.UnorderedRel, conditions, lMapping, rMapping)
	if err != nil {
		return nil, err
	}

	// Hidden ordering columns ride along through the join so the composed
	// ordering stays resolvable.
	lJoin := &UnorderedRel{Base: l.Base, Columns: append(append([]NamedExpr{}, l.Columns...), lHidden...)}
	rJoin := &UnorderedRel{Base: r.Base, Columns: append(append([]NamedExpr{}, r.Columns...), rHidden...)}

	ord := ordering.JoinOrderings(left.Ordering, right.Ordering, lMapping, rMapping, kind != nodes.JoinRight)

	hidden := make([]NamedExpr, 0, len(lHidden)+len(rHidden))
	for _, c := range lHidden {
		hidden = append(hidden, NamedExpr{Name: c.Name, Expr: ColumnRef{Name: c.Name, Typ: c.Expr.Type()}})
	}
	for _, c := range rHidden {
		hidden = append(hidden, NamedExpr{Name: c.Name, Expr: ColumnRef{Name: c.Name, Typ: c.Expr.Type()}})
	}

	return &OrderedRel{
		UnorderedRel: UnorderedRel{
			Base:    JoinSource{Left: lJoin, Right: rJoin, Conditions: preds, Kind: kind},
			Columns: joinOutputColumns(l, r),
		},
		HiddenOrderingColumns: hidden,
		Ordering:              ord,
	}, nil
}
