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
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/matrixorigin/framequery/pkg/common/moerr"
	"github.com/matrixorigin/framequery/pkg/container/types"
	"github.com/matrixorigin/framequery/pkg/frame/ids"
	"github.com/matrixorigin/framequery/pkg/frame/nodes"
	"github.com/matrixorigin/framequery/pkg/frame/ordering"
)

func testRel(cols ...NamedExpr) *UnorderedRel {
	return NewUnorderedRel(LocalSource{}, cols)
}

func col(name ids.ColumnId, oid types.T) NamedExpr {
	return NamedExpr{Name: name, Expr: ColumnRef{Name: name, Typ: types.New(oid)}}
}

func TestValueToJoinKeyString(t *testing.T) {
	key := valueToJoinKey(ColumnRef{Name: "s", Typ: types.New(types.T_varchar)})
	// a string key needs no cast, only the null collapse
	require.Equal(t, "ifnull(s, $NULL_SENTINEL$)", key.String())
	require.True(t, key.Type().IsString())
}

func TestValueToJoinKeyNonString(t *testing.T) {
	key := valueToJoinKey(ColumnRef{Name: "n", Typ: types.New(types.T_int64)})
	require.Equal(t, "ifnull(cast_string(n), $NULL_SENTINEL$)", key.String())
}

func TestJoinByColumnUnordered(t *testing.T) {
	ctx := context.Background()
	left := testRel(col("a", types.T_int64), col("b", types.T_varchar))
	right := testRel(col("x", types.T_int64))

	joined, err := JoinByColumnUnordered(ctx, left, right,
		[]nodes.JoinCondition{{Left: "a", Right: "x"}}, nodes.JoinInner)
	require.NoError(t, err)

	// left columns first, then right, all renamed into one namespace
	names := joined.ColumnNames()
	require.Len(t, names, 3)
	seen := make(map[ids.ColumnId]bool)
	for _, name := range names {
		require.True(t, strings.HasPrefix(string(name), "col_"))
		require.False(t, seen[name])
		seen[name] = true
	}

	src, ok := joined.Base.(JoinSource)
	require.True(t, ok)
	require.Equal(t, nodes.JoinInner, src.Kind)
	require.Len(t, src.Conditions, 1)
	require.Contains(t, src.Conditions[0].Left.String(), nullSentinel)
	require.Contains(t, src.Conditions[0].Right.String(), nullSentinel)
}

func TestJoinByColumnUnorderedMissingKey(t *testing.T) {
	ctx := context.Background()
	left := testRel(col("a", types.T_int64))
	right := testRel(col("x", types.T_int64))
	_, err := JoinByColumnUnordered(ctx, left, right,
		[]nodes.JoinCondition{{Left: "ghost", Right: "x"}}, nodes.JoinInner)
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrInvalidInput))
}

func orderedTestRel(visible NamedExpr, orderCol ids.ColumnId) *OrderedRel {
	hidden := []NamedExpr{{Name: orderCol, Expr: ColumnRef{Name: orderCol, Typ: types.New(types.T_int64)}}}
	return NewOrderedRel(
		UnorderedRel{Base: LocalSource{}, Columns: []NamedExpr{visible}},
		hidden,
		ordering.NewTotalOrdering(ids.MakeColSet(orderCol), ordering.Asc(orderCol)),
	)
}

func TestJoinByColumnOrderedLeftDominates(t *testing.T) {
	ctx := context.Background()
	left := orderedTestRel(col("a", types.T_int64), "lo")
	right := orderedTestRel(col("x", types.T_int64), "ro")

	joined, err := JoinByColumnOrdered(ctx, left, right,
		[]nodes.JoinCondition{{Left: "a", Right: "x"}}, nodes.JoinLeft)
	require.NoError(t, err)

	require.True(t, joined.HasTotalOrder())
	require.Len(t, joined.Ordering.Columns, 2)
	require.Len(t, joined.HiddenOrderingColumns, 2)

	// left ordering key leads; hidden keys got fresh names
	first := joined.Ordering.Columns[0].Column
	require.True(t, strings.HasPrefix(string(first), "hidden_"))
	require.Equal(t, joined.HiddenOrderingColumns[0].Name, first)
}

func TestJoinByColumnOrderedRightDominates(t *testing.T) {
	ctx := context.Background()
	left := orderedTestRel(col("a", types.T_int64), "lo")
	right := orderedTestRel(col("x", types.T_int64), "ro")

	joined, err := JoinByColumnOrdered(ctx, left, right,
		[]nodes.JoinCondition{{Left: "a", Right: "x"}}, nodes.JoinRight)
	require.NoError(t, err)

	// for right joins the right side's key leads
	first := joined.Ordering.Columns[0].Column
	require.Equal(t, joined.HiddenOrderingColumns[1].Name, first)
}

func TestJoinByColumnOrderedPartialInput(t *testing.T) {
	ctx := context.Background()
	left := orderedTestRel(col("a", types.T_int64), "lo")

	partial := NewOrderedRel(
		UnorderedRel{Base: LocalSource{}, Columns: []NamedExpr{col("x", types.T_int64)}},
		nil,
		ordering.NewOrdering(ordering.Asc("x")),
	)

	joined, err := JoinByColumnOrdered(ctx, left, partial,
		[]nodes.JoinCondition{{Left: "a", Right: "x"}}, nodes.JoinInner)
	require.NoError(t, err)
	require.False(t, joined.HasTotalOrder())
}

func TestSelectSubset(t *testing.T) {
	rel := testRel(col("a", types.T_int64), col("b", types.T_varchar), col("c", types.T_bool))
	sub := rel.Select("c", "a")
	require.Equal(t, []ids.ColumnId{"c", "a"}, sub.ColumnNames())

	typ, ok := sub.ColumnType("a")
	require.True(t, ok)
	require.Equal(t, types.New(types.T_int64), typ)
	_, ok = sub.ColumnType("b")
	require.False(t, ok)
}
