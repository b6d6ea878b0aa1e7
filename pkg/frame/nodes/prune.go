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
	"github.com/matrixorigin/framequery/pkg/frame/ids"
)

// Column pruning rewrites a tree bottom-up so that columns outside the used
// set are never computed. Every Prune keeps the semantics of the used columns
// intact; nodes that cannot prune safely return themselves unchanged.
// Pruning an already-pruned tree is a no-op.

func (n *ReadLocalNode) Prune(used ids.ColSet) Node {
	scan := n.Scan.Project(used)
	if len(scan.Items) == len(n.Scan.Items) {
		return n
	}
	return &ReadLocalNode{Batch: n.Batch, Scan: scan, Sess: n.Sess}
}

func (n *ReadTableNode) Prune(used ids.ColSet) Node {
	scan := n.Scan.Project(used)
	if len(scan.Items) == len(n.Scan.Items) {
		return n
	}
	return &ReadTableNode{Source: n.Source, Scan: scan, TableSess: n.TableSess}
}

func (n *CachedTableNode) Prune(used ids.ColSet) Node {
	scan := n.Scan.Project(used)
	if len(scan.Items) == len(n.Scan.Items) {
		return n
	}
	return &CachedTableNode{Source: n.Source, Scan: scan, TableSess: n.TableSess, Original: n.Original}
}

// Prune drops the offsets column entirely when nothing reads it.
func (n *PromoteOffsetsNode) Prune(used ids.ColSet) Node {
	if !used.Contains(n.ColId) {
		return n.Child.Prune(used)
	}
	return &PromoteOffsetsNode{
		unaryNode: unaryNode{Child: n.Child.Prune(used.Difference(n.ColId))},
		ColId:     n.ColId,
	}
}

func (n *FilterNode) Prune(used ids.ColSet) Node {
	childUsed := used.UnionCols(n.Predicate.ColumnReferences()...)
	return &FilterNode{
		unaryNode: unaryNode{Child: n.Child.Prune(childUsed)},
		Predicate: n.Predicate,
	}
}

func (n *OrderByNode) Prune(used ids.ColSet) Node {
	childUsed := used.Copy()
	for _, k := range n.By {
		childUsed.Add(k.Column)
	}
	return &OrderByNode{unaryNode: unaryNode{Child: n.Child.Prune(childUsed)}, By: n.By}
}

func (n *ReversedNode) Prune(used ids.ColSet) Node {
	return pruneChildren(n, used)
}

func (n *SelectionNode) Prune(used ids.ColSet) Node {
	pairs := make([]SelectionPair, 0, len(n.Pairs))
	childUsed := ids.MakeColSet()
	for _, p := range n.Pairs {
		if used.Contains(p.Out) {
			pairs = append(pairs, p)
			childUsed.Add(p.In)
		}
	}
	return &SelectionNode{
		unaryNode: unaryNode{Child: n.Child.Prune(childUsed)},
		Pairs:     pairs,
	}
}

// Prune drops unused assignments; if nothing survives the node itself
// disappears.
func (n *ProjectionNode) Prune(used ids.ColSet) Node {
	assignments := make([]Assignment, 0, len(n.Assignments))
	childUsed := used.Copy()
	for _, a := range n.Assignments {
		if used.Contains(a.Id) {
			assignments = append(assignments, a)
			for _, ref := range a.Expr.ColumnReferences() {
				childUsed.Add(ref)
			}
		}
	}
	if len(assignments) == 0 {
		return n.Child.Prune(used)
	}
	return &ProjectionNode{
		unaryNode:   unaryNode{Child: n.Child.Prune(childUsed)},
		Assignments: assignments,
	}
}

// Prune needs no input columns at all: the count survives a zero-column scan.
func (n *RowCountNode) Prune(used ids.ColSet) Node {
	return &RowCountNode{unaryNode: unaryNode{Child: n.Child.Prune(ids.MakeColSet())}}
}

func (n *AggregateNode) Prune(used ids.ColSet) Node {
	aggs := make([]NamedAggregation, 0, len(n.Aggregations))
	childUsed := ids.MakeColSet(n.ByColumnIds...)
	for _, a := range n.Aggregations {
		if used.Contains(a.Id) {
			aggs = append(aggs, a)
			for _, ref := range a.Agg.ColumnReferences() {
				childUsed.Add(ref)
			}
		}
	}
	return &AggregateNode{
		unaryNode:    unaryNode{Child: n.Child.Prune(childUsed)},
		Aggregations: aggs,
		ByColumnIds:  n.ByColumnIds,
		DropNa:       n.DropNa,
	}
}

func (n *WindowOpNode) Prune(used ids.ColSet) Node {
	if !used.Contains(n.OutputName) {
		return n.Child.Prune(used)
	}
	childUsed := used.Difference(n.OutputName)
	childUsed.Add(n.ColumnId)
	for _, ref := range n.Spec.ReferencedColumns() {
		childUsed.Add(ref)
	}
	return &WindowOpNode{
		unaryNode:           unaryNode{Child: n.Child.Prune(childUsed)},
		ColumnId:            n.ColumnId,
		Op:                  n.Op,
		Spec:                n.Spec,
		OutputName:          n.OutputName,
		NeverSkipNulls:      n.NeverSkipNulls,
		SkipReprojectUnsafe: n.SkipReprojectUnsafe,
	}
}

func (n *ReprojectOpNode) Prune(used ids.ColSet) Node {
	return pruneChildren(n, used)
}

func (n *RandomSampleNode) Prune(used ids.ColSet) Node {
	return pruneChildren(n, used)
}

func (n *ExplodeNode) Prune(used ids.ColSet) Node {
	childUsed := used.UnionCols(n.ColumnIds...)
	return &ExplodeNode{
		unaryNode: unaryNode{Child: n.Child.Prune(childUsed)},
		ColumnIds: n.ColumnIds,
	}
}

// Prune always retains the join keys on both sides.
func (n *JoinNode) Prune(used ids.ColSet) Node {
	childUsed := used.Copy()
	for _, cond := range n.Conditions {
		childUsed.Add(cond.Left)
		childUsed.Add(cond.Right)
	}
	return &JoinNode{
		Left:       n.Left.Prune(childUsed),
		Right:      n.Right.Prune(childUsed),
		Conditions: n.Conditions,
		Type:       n.Type,
	}
}

// Prune is the identity: output columns are positional, so dropping an input
// column would silently shift every column to its right.
func (n *ConcatNode) Prune(used ids.ColSet) Node {
	return n
}

// Prune is the identity: the bounds are scalar reads, there is nothing to
// drop.
func (n *FromRangeNode) Prune(used ids.ColSet) Node {
	return n
}
