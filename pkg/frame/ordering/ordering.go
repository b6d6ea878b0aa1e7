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

// Package ordering tracks whether a relational subtree has a well-defined row
// order, and how binary operators combine or destroy that guarantee.
package ordering

import (
	"fmt"
	"strings"

	"github.com/matrixorigin/framequery/pkg/frame/ids"
)

// Direction for ordering results.
type Direction int8

// Direction values.
const (
	Ascending Direction = iota
	Descending
)

func (d Direction) String() string {
	if d == Descending {
		return "desc"
	}
	return "asc"
}

// OrderingExpression is one sort key: a column reference plus direction and
// null placement.
type OrderingExpression struct {
	Column    ids.ColumnId
	Dir       Direction
	NullsLast bool
}

func Asc(col ids.ColumnId) OrderingExpression {
	return OrderingExpression{Column: col, NullsLast: true}
}

func Desc(col ids.ColumnId) OrderingExpression {
	return OrderingExpression{Column: col, Dir: Descending}
}

func (o OrderingExpression) Reverse() OrderingExpression {
	dir := Ascending
	if o.Dir == Ascending {
		dir = Descending
	}
	return OrderingExpression{Column: o.Column, Dir: dir, NullsLast: !o.NullsLast}
}

func (o OrderingExpression) String() string {
	nulls := "nulls_first"
	if o.NullsLast {
		nulls = "nulls_last"
	}
	return fmt.Sprintf("%s %s %s", o.Column, o.Dir, nulls)
}

// RowOrdering describes the row order of a subtree. A nil *RowOrdering means
// no order at all. With TotalOrderingCols empty the ordering is partial:
// rows tying on every ordering column are in ambiguous relative order.
type RowOrdering struct {
	// Columns holds the ordering keys from highest to lowest priority.
	Columns []OrderingExpression

	// TotalOrderingCols is a subset of the ordering key columns that jointly
	// distinguish every row. Non-empty means the ordering is total.
	TotalOrderingCols ids.ColSet

	// Sequential means the first ordering key is a dense zero-based integer
	// offset, which enables fast "head" shortcuts.
	Sequential bool
}

// NewOrdering builds a partial (tiebreak-ambiguous) ordering.
func NewOrdering(cols ...OrderingExpression) *RowOrdering {
	return &RowOrdering{Columns: cols}
}

// NewTotalOrdering builds a total ordering. total must reference a subset of
// the ordering key columns that uniquely identifies rows.
func NewTotalOrdering(total ids.ColSet, cols ...OrderingExpression) *RowOrdering {
	return &RowOrdering{Columns: cols, TotalOrderingCols: total}
}

// NewSequentialOrdering builds a total ordering over a dense integer offset
// column.
func NewSequentialOrdering(offsets ids.ColumnId) *RowOrdering {
	return &RowOrdering{
		Columns:           []OrderingExpression{Asc(offsets)},
		TotalOrderingCols: ids.MakeColSet(offsets),
		Sequential:        true,
	}
}

func (o *RowOrdering) IsTotalOrdering() bool {
	return o != nil && !o.TotalOrderingCols.Empty()
}

func (o *RowOrdering) IsSequential() bool {
	return o != nil && o.Sequential
}

// ReferencedColumns returns every column the ordering keys read.
func (o *RowOrdering) ReferencedColumns() ids.ColSet {
	if o == nil {
		return nil
	}
	res := ids.MakeColSet()
	for _, c := range o.Columns {
		res.Add(c.Column)
	}
	return res
}

// Reverse flips the order of every key. Totality survives; sequential
// encoding does not, since offsets no longer ascend.
func (o *RowOrdering) Reverse() *RowOrdering {
	if o == nil {
		return nil
	}
	cols := make([]OrderingExpression, len(o.Columns))
	for i, c := range o.Columns {
		cols[i] = c.Reverse()
	}
	return &RowOrdering{Columns: cols, TotalOrderingCols: o.TotalOrderingCols}
}

// Remap rewrites every column reference through m. References absent from m
// are dropped, including from the total-ordering set; dropping a
// total-ordering column demotes the ordering to partial.
func (o *RowOrdering) Remap(m map[ids.ColumnId]ids.ColumnId) *RowOrdering {
	if o == nil {
		return nil
	}
	cols := make([]OrderingExpression, 0, len(o.Columns))
	for _, c := range o.Columns {
		if mapped, ok := m[c.Column]; ok {
			cols = append(cols, OrderingExpression{Column: mapped, Dir: c.Dir, NullsLast: c.NullsLast})
		}
	}
	total := ids.MakeColSet()
	complete := true
	for col := range o.TotalOrderingCols {
		if mapped, ok := m[col]; ok {
			total.Add(mapped)
		} else {
			complete = false
		}
	}
	if !complete {
		total = ids.MakeColSet()
	}
	return &RowOrdering{Columns: cols, TotalOrderingCols: total, Sequential: o.Sequential && complete}
}

// JoinOrderings composes the orderings of the two join inputs after their
// columns have been remapped into the combined namespace. The dominant
// side's keys come first, so its row order breaks ties. The result is total
// only when both inputs were total. Joins shuffle rows, so the sequential
// flag never survives.
func JoinOrderings(
	left, right *RowOrdering,
	leftMapping, rightMapping map[ids.ColumnId]ids.ColumnId,
	leftOrderDominates bool,
) *RowOrdering {
	l := left.Remap(leftMapping)
	r := right.Remap(rightMapping)
	if l == nil {
		l = &RowOrdering{}
	}
	if r == nil {
		r = &RowOrdering{}
	}

	first, second := l, r
	if !leftOrderDominates {
		first, second = r, l
	}
	cols := make([]OrderingExpression, 0, len(first.Columns)+len(second.Columns))
	cols = append(cols, first.Columns...)
	cols = append(cols, second.Columns...)

	total := ids.MakeColSet()
	if l.IsTotalOrdering() && r.IsTotalOrdering() {
		total = l.TotalOrderingCols.Union(r.TotalOrderingCols)
	}
	return &RowOrdering{Columns: cols, TotalOrderingCols: total}
}

// Equal compares two orderings structurally. Either side may be nil.
func (o *RowOrdering) Equal(other *RowOrdering) bool {
	if o == nil || other == nil {
		return o == other
	}
	if len(o.Columns) != len(other.Columns) || o.Sequential != other.Sequential {
		return false
	}
	for i := range o.Columns {
		if o.Columns[i] != other.Columns[i] {
			return false
		}
	}
	return o.TotalOrderingCols.Equals(other.TotalOrderingCols)
}

func (o *RowOrdering) String() string {
	if o == nil {
		return "unordered"
	}
	parts := make([]string, len(o.Columns))
	for i, c := range o.Columns {
		parts[i] = c.String()
	}
	kind := "partial"
	if o.IsTotalOrdering() {
		kind = "total"
	}
	if o.Sequential {
		kind = "sequential"
	}
	return fmt.Sprintf("%s[%s]", kind, strings.Join(parts, ", "))
}
