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

// Package compile lowers node trees into symbolic relational values the
// rendering backend serializes. The key job here is order management: joins
// and default orderings are compiled so that every ordered relation carries
// explicit, remappable order keys.
package compile

import (
	"fmt"
	"strings"
	"time"

	"github.com/matrixorigin/framequery/pkg/container/batch"
	"github.com/matrixorigin/framequery/pkg/container/types"
	"github.com/matrixorigin/framequery/pkg/frame/ids"
	"github.com/matrixorigin/framequery/pkg/frame/nodes"
	"github.com/matrixorigin/framequery/pkg/frame/ordering"
)

// Expr is a symbolic scalar value inside a compiled relation.
type Expr interface {
	Type() types.Type
	String() string
}

// ColumnRef reads a column of the compiled relation by name.
type ColumnRef struct {
	Name ids.ColumnId
	Typ  types.Type
}

func (e ColumnRef) Type() types.Type { return e.Typ }
func (e ColumnRef) String() string   { return string(e.Name) }

// Literal is a constant with a rendered textual form.
type Literal struct {
	Repr string
	Typ  types.Type
}

func (e Literal) Type() types.Type { return e.Typ }
func (e Literal) String() string   { return e.Repr }

// Function names used by the ordering and join compilers. The rendering
// backend maps them to engine functions.
const (
	FnCastString   = "cast_string"
	FnIfNull       = "ifnull"
	FnReplace      = "replace"
	FnConcat       = "concat"
	FnHash         = "farm_fingerprint"
	FnRandom       = "rand"
	FnToJSONString = "to_json_string"
	FnGeoAsText    = "st_astext"
	FnRowNumber    = "row_number"
)

func int64Type() types.Type {
	return types.New(types.T_int64)
}

// Call applies a named function.
type Call struct {
	Name string
	Args []Expr
	Typ  types.Type
}

func (e Call) Type() types.Type { return e.Typ }

func (e Call) String() string {
	parts := make([]string, len(e.Args))
	for i, arg := range e.Args {
		parts[i] = arg.String()
	}
	return fmt.Sprintf("%s(%s)", e.Name, strings.Join(parts, ", "))
}

// NamedExpr binds an expression to an output column name.
type NamedExpr struct {
	Name ids.ColumnId
	Expr Expr
}

// Source is where a compiled relation's rows come from.
type Source interface {
	sourceKind() string
}

// ScanSource reads a warehouse table, optionally pinned in time and
// pre-filtered.
type ScanSource struct {
	Table     nodes.Table
	AtTime    *time.Time
	Predicate string
}

func (ScanSource) sourceKind() string { return "scan" }

// LocalSource reads an in-memory batch.
type LocalSource struct {
	Batch *batch.Batch
}

func (LocalSource) sourceKind() string { return "local" }

// JoinSource combines two compiled relations.
type JoinSource struct {
	Left       *UnorderedRel
	Right      *UnorderedRel
	Conditions []JoinPredicate
	Kind       nodes.JoinType
}

func (JoinSource) sourceKind() string { return "join" }

// JoinPredicate equates one compiled key expression per side. Keys are
// prepared null-safe by the join compiler.
type JoinPredicate struct {
	Left  Expr
	Right Expr
}

// UnorderedRel is a compiled relation without order guarantees.
type UnorderedRel struct {
	Base    Source
	Columns []NamedExpr
}

func NewUnorderedRel(base Source, columns []NamedExpr) *UnorderedRel {
	return &UnorderedRel{Base: base, Columns: columns}
}

// ColumnNames returns the visible output names in order.
func (r *UnorderedRel) ColumnNames() []ids.ColumnId {
	names := make([]ids.ColumnId, len(r.Columns))
	for i, c := range r.Columns {
		names[i] = c.Name
	}
	return names
}

// ColumnType resolves a visible column's dtype.
func (r *UnorderedRel) ColumnType(name ids.ColumnId) (types.Type, bool) {
	for _, c := range r.Columns {
		if c.Name == name {
			return c.Expr.Type(), true
		}
	}
	return types.Type{}, false
}

// Select returns a relation exposing only the named columns, in the given
// order.
func (r *UnorderedRel) Select(names ...ids.ColumnId) *UnorderedRel {
	columns := make([]NamedExpr, 0, len(names))
	for _, name := range names {
		for _, c := range r.Columns {
			if c.Name == name {
				columns = append(columns, c)
				break
			}
		}
	}
	return &UnorderedRel{Base: r.Base, Columns: columns}
}

// OrderedRel pairs a compiled relation with its explicit row ordering.
// Ordering keys may reference hidden columns that are compiled but not part
// of the visible output.
type OrderedRel struct {
	UnorderedRel

	HiddenOrderingColumns []NamedExpr
	Ordering              *ordering.RowOrdering
}

func NewOrderedRel(rel UnorderedRel, hidden []NamedExpr, ord *ordering.RowOrdering) *OrderedRel {
	return &OrderedRel{UnorderedRel: rel, HiddenOrderingColumns: hidden, Ordering: ord}
}

// AllColumns returns the visible columns followed by the hidden ordering
// columns.
func (r *OrderedRel) AllColumns() []NamedExpr {
	all := make([]NamedExpr, 0, len(r.Columns)+len(r.HiddenOrderingColumns))
	all = append(all, r.Columns...)
	all = append(all, r.HiddenOrderingColumns...)
	return all
}

// HasTotalOrder reports whether the relation's rows are totally ordered.
func (r *OrderedRel) HasTotalOrder() bool {
	return r.Ordering.IsTotalOrdering()
}
