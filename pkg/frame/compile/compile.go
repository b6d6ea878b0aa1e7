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

	"go.uber.org/zap"

	"github.com/matrixorigin/framequery/pkg/config"
	"github.com/matrixorigin/framequery/pkg/container/batch"
	"github.com/matrixorigin/framequery/pkg/frame/ids"
	"github.com/matrixorigin/framequery/pkg/frame/nodes"
	"github.com/matrixorigin/framequery/pkg/frame/ordering"
	"github.com/matrixorigin/framequery/pkg/logutil"
)

// Options control the compiler's ordering and materialization decisions.
type Options struct {
	// OrderingHashMode selects single or double hash default orderings, or
	// lets row counts decide.
	OrderingHashMode string

	// SingleHashRowLimit is the auto-mode row count at or below which one
	// hash suffices.
	SingleHashRowLimit int64

	// PlanningComplexityLimit is the tree complexity score beyond which
	// ShouldMaterialize fires.
	PlanningComplexityLimit int64
}

// OptionsFromConfig derives compiler options from loaded parameters.
func OptionsFromConfig(p *config.CompilerParameters) Options {
	return Options{
		OrderingHashMode:        p.OrderingHashMode,
		SingleHashRowLimit:      p.OrderingSingleHashRowLimit,
		PlanningComplexityLimit: p.PlanningComplexityLimit,
	}
}

// Compiler lowers node trees to relations.
type Compiler struct {
	opts Options
}

func NewCompiler(opts Options) *Compiler {
	return &Compiler{opts: opts}
}

// ShouldMaterialize reports whether the tree has grown complex enough that
// the caller should cache an intermediate result before extending it further.
func (c *Compiler) ShouldMaterialize(n nodes.Node) bool {
	score := nodes.PlanningComplexity(n)
	if score <= c.opts.PlanningComplexityLimit {
		return false
	}
	logutil.Debug("planning complexity exceeds limit",
		zap.Int64("score", score),
		zap.Int64("limit", c.opts.PlanningComplexityLimit))
	return true
}

// useDoubleHash decides how many hash order keys a default ordering needs.
// Small sources keep single hashes cheap; unknown or large row counts get the
// second hash to push collision odds down.
func (c *Compiler) useDoubleHash(rowCount int64, known bool) bool {
	switch c.opts.OrderingHashMode {
	case config.OrderingHashSingle:
		return false
	case config.OrderingHashDouble:
		return true
	}
	return !known || rowCount > c.opts.SingleHashRowLimit
}

// approxDistinctRows bounds a batch's distinct row count from its per-column
// sketches: the true count is at most the product of per-column distinct
// counts, and at most the row count. Reports false when any column arrived
// without a sketch.
func approxDistinctRows(b *batch.Batch) (int64, bool) {
	est := int64(1)
	for col := 0; col < b.VectorCount(); col++ {
		ndv := int64(b.ApproxNdv(col))
		if ndv <= 0 {
			return 0, false
		}
		if ndv >= b.Rows || est > b.Rows/ndv {
			return b.Rows, true
		}
		est *= ndv
	}
	return est, true
}

// useDoubleHashLocal sizes the default-ordering hash for a local batch. The
// sketches bound distinct rows far tighter than the raw row count, so a tall
// but repetitive batch still gets the cheap single hash.
func (c *Compiler) useDoubleHashLocal(b *batch.Batch) bool {
	switch c.opts.OrderingHashMode {
	case config.OrderingHashSingle:
		return false
	case config.OrderingHashDouble:
		return true
	}
	if ndv, ok := approxDistinctRows(b); ok {
		return ndv > c.opts.SingleHashRowLimit
	}
	return b.Rows > c.opts.SingleHashRowLimit
}

func scanColumns(scan nodes.ScanList) []NamedExpr {
	columns := make([]NamedExpr, len(scan.Items))
	for i, item := range scan.Items {
		columns[i] = NamedExpr{
			Name: item.Id,
			Expr: ColumnRef{Name: ids.ColumnId(item.SourceId), Typ: item.Typ},
		}
	}
	return columns
}

// CompileReadTable lowers a table scan into an ordered relation. Sources with
// a declared ordering keep it; the rest get a synthesized default ordering.
func (c *Compiler) CompileReadTable(ctx context.Context, n *nodes.ReadTableNode) (*OrderedRel, error) {
	rel := &UnorderedRel{
		Base: ScanSource{
			Table:     n.Source.Table,
			AtTime:    n.Source.AtTime,
			Predicate: n.Source.SQLPredicate,
		},
		Columns: scanColumns(n.Scan),
	}
	if n.Source.Ordering != nil {
		return &OrderedRel{UnorderedRel: *rel, Ordering: n.Source.Ordering}, nil
	}
	rows, known := n.RowCount()
	double := c.useDoubleHash(rows, known)
	logutil.Debug("synthesizing default ordering",
		zap.String("table", n.Source.Table.PathName()),
		zap.Bool("doubleHash", double))
	return GenDefaultOrdering(rel, double), nil
}

// CompileReadLocal lowers an in-memory batch scan. Local rows arrive in
// insertion order, so the ordering is a sequential offset, no hashing needed.
func (c *Compiler) CompileReadLocal(ctx context.Context, n *nodes.ReadLocalNode) (*OrderedRel, error) {
	rel := &UnorderedRel{
		Base:    LocalSource{Batch: n.Batch},
		Columns: scanColumns(n.Scan),
	}
	offsets := ids.Alloc("offsets")
	hidden := []NamedExpr{{
		Name: offsets,
		Expr: Call{Name: FnRowNumber, Typ: int64Type()},
	}}
	return &OrderedRel{
		UnorderedRel:          *rel,
		HiddenOrderingColumns: hidden,
		Ordering:              ordering.NewSequentialOrdering(offsets),
	}, nil
}

// CompileReadLocalUnordered lowers a batch whose payload order carries no
// meaning, such as rows collected from concurrent producers. Instead of
// promoting offsets it synthesizes a default ordering, sized by the batch's
// distinct-count sketches when ingestion supplied them.
func (c *Compiler) CompileReadLocalUnordered(ctx context.Context, n *nodes.ReadLocalNode) (*OrderedRel, error) {
	rel := &UnorderedRel{
		Base:    LocalSource{Batch: n.Batch},
		Columns: scanColumns(n.Scan),
	}
	double := c.useDoubleHashLocal(n.Batch)
	logutil.Debug("synthesizing default ordering for local batch",
		zap.Int64("rows", n.Batch.Rows),
		zap.Bool("doubleHash", double))
	return GenDefaultOrdering(rel, double), nil
}

// CompileCachedTable lowers a cached scan the same way as a plain table read.
func (c *Compiler) CompileCachedTable(ctx context.Context, n *nodes.CachedTableNode) (*OrderedRel, error) {
	rel := &UnorderedRel{
		Base: ScanSource{
			Table:     n.Source.Table,
			AtTime:    n.Source.AtTime,
			Predicate: n.Source.SQLPredicate,
		},
		Columns: scanColumns(n.Scan),
	}
	if n.Source.Ordering != nil {
		return &OrderedRel{UnorderedRel: *rel, Ordering: n.Source.Ordering}, nil
	}
	rows, known := n.RowCount()
	return GenDefaultOrdering(rel, c.useDoubleHash(rows, known)), nil
}
