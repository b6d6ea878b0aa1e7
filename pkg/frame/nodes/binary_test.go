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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/matrixorigin/framequery/pkg/common/moerr"
	"github.com/matrixorigin/framequery/pkg/container/batch"
	"github.com/matrixorigin/framequery/pkg/container/types"
	"github.com/matrixorigin/framequery/pkg/frame/ids"
)

func singleColLeaf(id ids.ColumnId, typ types.Type, sess Session) *ReadLocalNode {
	b := batch.New([]string{string(id)}, []types.Type{typ}, 3)
	b.Payload = []byte("payload-" + string(id))
	return NewReadLocalNode(b, testScan(
		ScanItem{Id: id, Typ: typ, SourceId: string(id)},
	), sess)
}

func TestJoinRejectsOverlappingIds(t *testing.T) {
	ctx := context.Background()
	sess := testSession("s1")
	left := singleColLeaf("x", types.New(types.T_int64), sess)
	right := singleColLeaf("x", types.New(types.T_int64), sess)
	_, err := NewJoinNode(ctx, left, right, []JoinCondition{{Left: "x", Right: "x"}}, JoinInner)
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrInternal))
}

func TestJoinConditionArity(t *testing.T) {
	ctx := context.Background()
	sess := testSession("s1")
	left := singleColLeaf("x", types.New(types.T_int64), sess)
	right := singleColLeaf("y", types.New(types.T_int64), sess)

	_, err := NewJoinNode(ctx, left, right, nil, JoinInner)
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrInvalidInput))

	_, err = NewJoinNode(ctx, left, right, []JoinCondition{{Left: "x", Right: "y"}}, JoinCross)
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrInvalidInput))

	cross, err := NewJoinNode(ctx, left, right, nil, JoinCross)
	require.NoError(t, err)
	require.Equal(t, JoinCross, cross.Type)
}

func TestJoinRejectsMissingKeys(t *testing.T) {
	ctx := context.Background()
	sess := testSession("s1")
	left := singleColLeaf("x", types.New(types.T_int64), sess)
	right := singleColLeaf("y", types.New(types.T_int64), sess)

	_, err := NewJoinNode(ctx, left, right, []JoinCondition{{Left: "ghost", Right: "y"}}, JoinLeft)
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrInvalidInput))
	_, err = NewJoinNode(ctx, left, right, []JoinCondition{{Left: "x", Right: "ghost"}}, JoinLeft)
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrInvalidInput))
}

func TestJoinProperties(t *testing.T) {
	ctx := context.Background()
	sess := testSession("s1")
	left := singleColLeaf("x", types.New(types.T_int64), sess)
	right := singleColLeaf("y", types.New(types.T_int64), sess)

	join, err := NewJoinNode(ctx, left, right, []JoinCondition{{Left: "x", Right: "y"}}, JoinLeft)
	require.NoError(t, err)

	require.Equal(t, []ids.ColumnId{"x", "y"}, Ids(join))
	require.True(t, join.Joins())
	require.True(t, join.NonLocal())
	require.True(t, join.OrderAmbiguous())
	require.False(t, join.ExplicitlyOrdered())
	require.Equal(t, int64(OverheadVariables), join.VariablesIntroduced())
}

func TestConcatRelabelsColumns(t *testing.T) {
	ctx := context.Background()
	sess := testSession("s1")
	a := singleColLeaf("x", types.New(types.T_int64), sess)
	b := singleColLeaf("y", types.New(types.T_int64), sess)

	concat, err := NewConcatNode(ctx, []Node{a, b})
	require.NoError(t, err)
	require.Equal(t, []ids.ColumnId{"column_0"}, Ids(concat))
	require.Equal(t, types.New(types.T_int64), concat.Fields()[0].Typ)
	require.True(t, concat.DefinesNamespace())
}

func TestConcatRejectsMismatch(t *testing.T) {
	ctx := context.Background()
	sess := testSession("s1")
	a := newLocalLeaf(sess)
	b := singleColLeaf("y", types.New(types.T_int64), sess)

	_, err := NewConcatNode(ctx, []Node{a, b})
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrInvalidInput))

	c := singleColLeaf("z", types.New(types.T_varchar), sess)
	_, err = NewConcatNode(ctx, []Node{b, c})
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrInvalidInput))

	_, err = NewConcatNode(ctx, nil)
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrInvalidInput))
}

func TestConcatOrderAmbiguity(t *testing.T) {
	ctx := context.Background()
	sess := testSession("s1")
	a := singleColLeaf("x", types.New(types.T_int64), sess)
	b := singleColLeaf("y", types.New(types.T_int64), sess)

	concat, err := NewConcatNode(ctx, []Node{a, b})
	require.NoError(t, err)
	// local leaves are unambiguous, so the concat is too
	require.False(t, concat.OrderAmbiguous())
	require.True(t, concat.ExplicitlyOrdered())

	table := testTable("t", 10, TableColumn{Name: "id", Typ: types.New(types.T_int64)})
	scan := testScan(ScanItem{Id: "z", Typ: types.New(types.T_int64), SourceId: "id"})
	unordered, err := NewReadTableNode(ctx, DataSource{Table: table}, scan, nil)
	require.NoError(t, err)

	mixed, err := NewConcatNode(ctx, []Node{a, unordered})
	require.NoError(t, err)
	require.True(t, mixed.OrderAmbiguous())
}

func TestFromRange(t *testing.T) {
	ctx := context.Background()
	sess := testSession("s1")
	start := singleColLeaf("s", types.New(types.T_int64), sess)
	end := singleColLeaf("e", types.New(types.T_int64), sess)

	rng, err := NewFromRangeNode(ctx, start, end, 1)
	require.NoError(t, err)
	require.Equal(t, []ids.ColumnId{"labels"}, Ids(rng))
	require.Equal(t, types.New(types.T_int64), rng.Fields()[0].Typ)
	require.False(t, rng.OrderAmbiguous())
	require.True(t, rng.ExplicitlyOrdered())

	// a range generator is its own root
	roots := Roots(rng)
	require.Len(t, roots, 1)
	_, ok := roots[Node(rng)]
	require.True(t, ok)

	_, err = NewFromRangeNode(ctx, start, end, 0)
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrInvalidInput))
}
