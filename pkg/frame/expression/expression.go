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

// Package expression holds the scalar, aggregate and window expression model
// the node layer consumes. The node layer only needs output-type resolution,
// column references and a stable textual form; evaluation happens in the
// external engine.
package expression

import (
	"context"
	"fmt"
	"strings"

	"github.com/matrixorigin/framequery/pkg/common/moerr"
	"github.com/matrixorigin/framequery/pkg/container/types"
	"github.com/matrixorigin/framequery/pkg/frame/ids"
	"github.com/matrixorigin/framequery/pkg/frame/ordering"
)

// TypeLookup resolves column ids to dtypes within one schema.
type TypeLookup map[ids.ColumnId]types.Type

// Expression is a scalar expression over column ids.
//
// String() must be a stable structural encoding: the node layer hashes and
// compares expressions by it.
type Expression interface {
	fmt.Stringer

	// OutputType resolves the result dtype against a schema, failing when a
	// referenced column is missing from it.
	OutputType(ctx context.Context, lookup TypeLookup) (types.Type, error)

	// ColumnReferences lists every column id the expression reads.
	ColumnReferences() []ids.ColumnId

	// IsIdentity reports whether the expression is a bare column reference.
	IsIdentity() bool
}

// ColumnRef reads one column.
type ColumnRef struct {
	Id ids.ColumnId
}

func NewColumnRef(id ids.ColumnId) *ColumnRef {
	return &ColumnRef{Id: id}
}

func (e *ColumnRef) OutputType(ctx context.Context, lookup TypeLookup) (types.Type, error) {
	t, ok := lookup[e.Id]
	if !ok {
		return types.Type{}, moerr.NewInvalidInput(ctx, "column %s not found in schema", e.Id)
	}
	return t, nil
}

func (e *ColumnRef) ColumnReferences() []ids.ColumnId {
	return []ids.ColumnId{e.Id}
}

func (e *ColumnRef) IsIdentity() bool {
	return true
}

func (e *ColumnRef) String() string {
	return fmt.Sprintf("deref(%s)", e.Id)
}

// Literal is a constant with a declared dtype. Repr must be a stable textual
// form of the value.
type Literal struct {
	Repr string
	Typ  types.Type
}

func NewLiteral(repr string, typ types.Type) *Literal {
	return &Literal{Repr: repr, Typ: typ}
}

func (e *Literal) OutputType(ctx context.Context, lookup TypeLookup) (types.Type, error) {
	return e.Typ, nil
}

func (e *Literal) ColumnReferences() []ids.ColumnId {
	return nil
}

func (e *Literal) IsIdentity() bool {
	return false
}

func (e *Literal) String() string {
	return fmt.Sprintf("lit(%s:%s)", e.Repr, e.Typ)
}

// FuncExpr applies a named scalar function. The result dtype is declared at
// construction; OutputType still resolves every argument so that missing
// columns surface as errors.
type FuncExpr struct {
	Name string
	Args []Expression
	Typ  types.Type
}

func NewFuncExpr(name string, typ types.Type, args ...Expression) *FuncExpr {
	return &FuncExpr{Name: name, Args: args, Typ: typ}
}

func (e *FuncExpr) OutputType(ctx context.Context, lookup TypeLookup) (types.Type, error) {
	for _, arg := range e.Args {
		if _, err := arg.OutputType(ctx, lookup); err != nil {
			return types.Type{}, err
		}
	}
	return e.Typ, nil
}

func (e *FuncExpr) ColumnReferences() []ids.ColumnId {
	var refs []ids.ColumnId
	for _, arg := range e.Args {
		refs = append(refs, arg.ColumnReferences()...)
	}
	return refs
}

func (e *FuncExpr) IsIdentity() bool {
	return false
}

func (e *FuncExpr) String() string {
	parts := make([]string, len(e.Args))
	for i, arg := range e.Args {
		parts[i] = arg.String()
	}
	return fmt.Sprintf("%s(%s):%s", e.Name, strings.Join(parts, ", "), e.Typ)
}

// Aggregation applies a named aggregate function over its inputs within one
// group.
type Aggregation struct {
	Op   string
	Args []Expression
	Typ  types.Type
}

func NewAggregation(op string, typ types.Type, args ...Expression) *Aggregation {
	return &Aggregation{Op: op, Args: args, Typ: typ}
}

func (a *Aggregation) OutputType(ctx context.Context, lookup TypeLookup) (types.Type, error) {
	for _, arg := range a.Args {
		if _, err := arg.OutputType(ctx, lookup); err != nil {
			return types.Type{}, err
		}
	}
	return a.Typ, nil
}

func (a *Aggregation) ColumnReferences() []ids.ColumnId {
	var refs []ids.ColumnId
	for _, arg := range a.Args {
		refs = append(refs, arg.ColumnReferences()...)
	}
	return refs
}

func (a *Aggregation) String() string {
	parts := make([]string, len(a.Args))
	for i, arg := range a.Args {
		parts[i] = arg.String()
	}
	return fmt.Sprintf("agg:%s(%s):%s", a.Op, strings.Join(parts, ", "), a.Typ)
}

// WindowOp is an analytic operator applied over a window. PreservesType ops
// (lag, first_value, ...) return the input dtype; the rest return Typ.
type WindowOp struct {
	Name          string
	Typ           types.Type
	PreservesType bool
}

func (w WindowOp) OutputType(input types.Type) types.Type {
	if w.PreservesType {
		return input
	}
	return w.Typ
}

func (w WindowOp) String() string {
	if w.PreservesType {
		return fmt.Sprintf("win:%s", w.Name)
	}
	return fmt.Sprintf("win:%s:%s", w.Name, w.Typ)
}

// WindowSpec partitions and orders rows for a window operator. Bounds are row
// offsets relative to the current row; nil means unbounded on that side.
type WindowSpec struct {
	GroupingKeys  []ids.ColumnId
	OrderingKeys  []ordering.OrderingExpression
	PrecedingRows *int64
	FollowingRows *int64
}

func (s WindowSpec) ReferencedColumns() []ids.ColumnId {
	refs := make([]ids.ColumnId, 0, len(s.GroupingKeys)+len(s.OrderingKeys))
	refs = append(refs, s.GroupingKeys...)
	for _, k := range s.OrderingKeys {
		refs = append(refs, k.Column)
	}
	return refs
}

func (s WindowSpec) String() string {
	var sb strings.Builder
	sb.WriteString("window[by=(")
	for i, k := range s.GroupingKeys {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(string(k))
	}
	sb.WriteString(") order=(")
	for i, k := range s.OrderingKeys {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(k.String())
	}
	sb.WriteString(")")
	if s.PrecedingRows != nil {
		fmt.Fprintf(&sb, " preceding=%d", *s.PrecedingRows)
	}
	if s.FollowingRows != nil {
		fmt.Fprintf(&sb, " following=%d", *s.FollowingRows)
	}
	sb.WriteString("]")
	return sb.String()
}
