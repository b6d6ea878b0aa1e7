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
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/matrixorigin/framequery/pkg/config"
	"github.com/matrixorigin/framequery/pkg/container/batch"
	"github.com/matrixorigin/framequery/pkg/container/types"
	"github.com/matrixorigin/framequery/pkg/frame/ids"
	"github.com/matrixorigin/framequery/pkg/frame/nodes"
	"github.com/matrixorigin/framequery/pkg/frame/ordering"
)

type testSession string

func (s testSession) SessionId() string { return string(s) }

func defaultOptions() Options {
	var p config.CompilerParameters
	p.SetDefaultValues()
	return OptionsFromConfig(&p)
}

func TestOptionsFromConfig(t *testing.T) {
	opts := defaultOptions()
	require.Equal(t, config.OrderingHashAuto, opts.OrderingHashMode)
	require.Equal(t, int64(100000), opts.SingleHashRowLimit)
	require.Equal(t, int64(1<<24), opts.PlanningComplexityLimit)
}

func TestUseDoubleHash(t *testing.T) {
	cases := []struct {
		mode   string
		rows   int64
		known  bool
		double bool
	}{
		{config.OrderingHashSingle, 1 << 40, true, false},
		{config.OrderingHashDouble, 1, true, true},
		{config.OrderingHashAuto, 500, true, false},
		{config.OrderingHashAuto, 100000, true, false},
		{config.OrderingHashAuto, 100001, true, true},
		{config.OrderingHashAuto, 0, false, true},
	}
	for _, c := range cases {
		opts := defaultOptions()
		opts.OrderingHashMode = c.mode
		comp := NewCompiler(opts)
		require.Equal(t, c.double, comp.useDoubleHash(c.rows, c.known), "%s/%d", c.mode, c.rows)
	}
}

func TestShouldMaterialize(t *testing.T) {
	opts := defaultOptions()
	opts.PlanningComplexityLimit = 2
	comp := NewCompiler(opts)

	b := batch.New([]string{"a"}, []types.Type{types.New(types.T_int64)}, 3)
	b.Payload = []byte("p")
	leaf := nodes.NewReadLocalNode(b, nodes.ScanList{Items: []nodes.ScanItem{
		{Id: "a", Typ: types.New(types.T_int64), SourceId: "a"},
	}}, testSession("s1"))

	// leaf complexity is 2*1 = 2, right at the limit
	require.False(t, comp.ShouldMaterialize(leaf))

	// adding offsets pushes it to 3 vars * 3 ops = 9
	grown := nodes.NewPromoteOffsetsNode(leaf, "off")
	require.True(t, comp.ShouldMaterialize(grown))
}

func tableNode(t *testing.T, numRows int64, physical bool) *nodes.ReadTableNode {
	t.Helper()
	table := nodes.Table{
		ProjectId: "proj", DatasetId: "ds", TableId: "t",
		PhysicalSchema: []nodes.TableColumn{
			{Name: "id", Typ: types.New(types.T_int64)},
			{Name: "name", Typ: types.New(types.T_varchar)},
		},
		NumRows:         numRows,
		IsPhysicalTable: physical,
	}
	scan := nodes.ScanList{Items: []nodes.ScanItem{
		{Id: "c_id", Typ: types.New(types.T_int64), SourceId: "id"},
		{Id: "c_name", Typ: types.New(types.T_varchar), SourceId: "name"},
	}}
	node, err := nodes.NewReadTableNode(context.Background(), nodes.DataSource{Table: table}, scan, nil)
	require.NoError(t, err)
	return node
}

func TestCompileReadTableSmallSourceSingleHash(t *testing.T) {
	comp := NewCompiler(defaultOptions())
	rel, err := comp.CompileReadTable(context.Background(), tableNode(t, 100, true))
	require.NoError(t, err)

	require.Equal(t, []ids.ColumnId{"c_id", "c_name"}, rel.ColumnNames())
	require.True(t, rel.HasTotalOrder())
	// small known row count: hash + random only
	require.Len(t, rel.HiddenOrderingColumns, 2)

	src, ok := rel.Base.(ScanSource)
	require.True(t, ok)
	require.Equal(t, "t", src.Table.TableId)
}

func TestCompileReadTableUnknownRowsDoubleHash(t *testing.T) {
	comp := NewCompiler(defaultOptions())
	rel, err := comp.CompileReadTable(context.Background(), tableNode(t, 100, false))
	require.NoError(t, err)
	// view row counts are untrusted: double hash
	require.Len(t, rel.HiddenOrderingColumns, 3)
}

func TestCompileReadTableKeepsDeclaredOrdering(t *testing.T) {
	table := nodes.Table{
		ProjectId: "p", DatasetId: "d", TableId: "t",
		PhysicalSchema:  []nodes.TableColumn{{Name: "id", Typ: types.New(types.T_int64)}},
		NumRows:         10,
		IsPhysicalTable: true,
	}
	scan := nodes.ScanList{Items: []nodes.ScanItem{
		{Id: "c", Typ: types.New(types.T_int64), SourceId: "id"},
	}}
	src := nodes.DataSource{Table: table, Ordering: ordering.NewSequentialOrdering("c")}
	node, err := nodes.NewReadTableNode(context.Background(), src, scan, nil)
	require.NoError(t, err)

	comp := NewCompiler(defaultOptions())
	rel, err := comp.CompileReadTable(context.Background(), node)
	require.NoError(t, err)
	require.Empty(t, rel.HiddenOrderingColumns)
	require.True(t, rel.Ordering.IsSequential())
}

func sketchedBatch(rows int64, distinct int) *batch.Batch {
	b := batch.New([]string{"a"}, []types.Type{types.New(types.T_varchar)}, rows)
	b.Payload = []byte("p")
	for i := 0; i < distinct; i++ {
		b.InsertKey(0, []byte(fmt.Sprintf("k-%d", i)))
	}
	return b
}

func TestApproxDistinctRows(t *testing.T) {
	b := batch.New(
		[]string{"a", "b"},
		[]types.Type{types.New(types.T_varchar), types.New(types.T_varchar)},
		1000,
	)
	for i := 0; i < 10; i++ {
		b.InsertKey(0, []byte(fmt.Sprintf("a-%d", i)))
	}

	// column b has no sketch yet
	_, ok := approxDistinctRows(b)
	require.False(t, ok)

	for i := 0; i < 5; i++ {
		b.InsertKey(1, []byte(fmt.Sprintf("b-%d", i)))
	}
	est, ok := approxDistinctRows(b)
	require.True(t, ok)
	require.Equal(t, int64(50), est)

	// the product bound never exceeds the row count
	b.Rows = 30
	est, ok = approxDistinctRows(b)
	require.True(t, ok)
	require.Equal(t, int64(30), est)
}

func TestUseDoubleHashLocal(t *testing.T) {
	opts := defaultOptions()
	opts.SingleHashRowLimit = 1000
	comp := NewCompiler(opts)

	// tall but repetitive: the sketch keeps it on the single hash
	require.False(t, comp.useDoubleHashLocal(sketchedBatch(1<<20, 10)))
	// no sketch: the raw row count rules
	require.True(t, comp.useDoubleHashLocal(sketchedBatch(1<<20, 0)))
	require.False(t, comp.useDoubleHashLocal(sketchedBatch(500, 0)))
	// wide distinct: the sketch pushes a small-looking source to double
	require.True(t, comp.useDoubleHashLocal(sketchedBatch(1<<20, 5000)))

	// explicit modes override the sketches
	opts.OrderingHashMode = config.OrderingHashSingle
	require.False(t, NewCompiler(opts).useDoubleHashLocal(sketchedBatch(1<<20, 5000)))
	opts.OrderingHashMode = config.OrderingHashDouble
	require.True(t, NewCompiler(opts).useDoubleHashLocal(sketchedBatch(10, 10)))
}

func TestCompileReadLocalUnordered(t *testing.T) {
	opts := defaultOptions()
	opts.SingleHashRowLimit = 1000
	comp := NewCompiler(opts)

	scan := nodes.ScanList{Items: []nodes.ScanItem{
		{Id: "a", Typ: types.New(types.T_varchar), SourceId: "a"},
	}}
	leaf := nodes.NewReadLocalNode(sketchedBatch(1<<20, 10), scan, testSession("s1"))

	rel, err := comp.CompileReadLocalUnordered(context.Background(), leaf)
	require.NoError(t, err)
	require.True(t, rel.HasTotalOrder())
	require.False(t, rel.Ordering.IsSequential())
	// single hash plus random tiebreaker
	require.Len(t, rel.HiddenOrderingColumns, 2)

	bare := nodes.NewReadLocalNode(sketchedBatch(1<<20, 0), scan, testSession("s1"))
	rel, err = comp.CompileReadLocalUnordered(context.Background(), bare)
	require.NoError(t, err)
	// no sketch on a tall batch: double hash plus random
	require.Len(t, rel.HiddenOrderingColumns, 3)
}

func TestCompileReadLocalSequential(t *testing.T) {
	b := batch.New([]string{"a"}, []types.Type{types.New(types.T_int64)}, 3)
	b.Payload = []byte("p")
	leaf := nodes.NewReadLocalNode(b, nodes.ScanList{Items: []nodes.ScanItem{
		{Id: "a", Typ: types.New(types.T_int64), SourceId: "a"},
	}}, testSession("s1"))

	comp := NewCompiler(defaultOptions())
	rel, err := comp.CompileReadLocal(context.Background(), leaf)
	require.NoError(t, err)

	require.True(t, rel.Ordering.IsSequential())
	require.Len(t, rel.HiddenOrderingColumns, 1)
	require.Equal(t, FnRowNumber+"()", rel.HiddenOrderingColumns[0].Expr.String())

	_, ok := rel.Base.(LocalSource)
	require.True(t, ok)
}
