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
	"bytes"
	"context"
	"time"

	"github.com/matrixorigin/framequery/pkg/common/moerr"
	"github.com/matrixorigin/framequery/pkg/container/batch"
	"github.com/matrixorigin/framequery/pkg/container/types"
	"github.com/matrixorigin/framequery/pkg/frame/ids"
	"github.com/matrixorigin/framequery/pkg/frame/ordering"
)

// ScanItem maps one source-local column into the tree's column id space.
type ScanItem struct {
	Id       ids.ColumnId
	Typ      types.Type
	SourceId string
}

// ScanList is the order-preserving projection from a physical or local
// column space into column ids. Not necessarily contiguous after pruning.
type ScanList struct {
	Items []ScanItem
}

func (s ScanList) Fields() []Field {
	fields := make([]Field, len(s.Items))
	for i, item := range s.Items {
		fields[i] = Field{Id: item.Id, Typ: item.Typ}
	}
	return fields
}

// Project keeps only the items whose output id is in used.
func (s ScanList) Project(used ids.ColSet) ScanList {
	items := make([]ScanItem, 0, len(s.Items))
	for _, item := range s.Items {
		if used.Contains(item.Id) {
			items = append(items, item)
		}
	}
	return ScanList{Items: items}
}

func (s ScanList) hashInto(hs *hasher) {
	hs.u64(uint64(len(s.Items)))
	for _, item := range s.Items {
		hs.id(item.Id)
		hs.typ(item.Typ)
		hs.str(item.SourceId)
	}
}

func (s ScanList) equal(o ScanList) bool {
	if len(s.Items) != len(o.Items) {
		return false
	}
	for i := range s.Items {
		if s.Items[i] != o.Items[i] {
			return false
		}
	}
	return true
}

// TableColumn is one column of a physical table schema.
type TableColumn struct {
	Name string
	Typ  types.Type
}

// Table identifies one warehouse table, as supplied by the catalog client.
type Table struct {
	ProjectId string
	DatasetId string
	TableId   string

	PhysicalSchema []TableColumn

	NumRows int64

	// IsPhysicalTable is false for views and snapshots, whose row counts
	// cannot be trusted for shortcuts.
	IsPhysicalTable bool

	ClusterCols []string
}

func (t Table) PathName() string {
	return t.ProjectId + "." + t.DatasetId + "." + t.TableId
}

func (t Table) physicalNames() map[string]struct{} {
	names := make(map[string]struct{}, len(t.PhysicalSchema))
	for _, col := range t.PhysicalSchema {
		names[col.Name] = struct{}{}
	}
	return names
}

func (t Table) equal(o Table) bool {
	if t.ProjectId != o.ProjectId || t.DatasetId != o.DatasetId || t.TableId != o.TableId ||
		t.NumRows != o.NumRows || t.IsPhysicalTable != o.IsPhysicalTable {
		return false
	}
	if len(t.PhysicalSchema) != len(o.PhysicalSchema) || len(t.ClusterCols) != len(o.ClusterCols) {
		return false
	}
	for i := range t.PhysicalSchema {
		if t.PhysicalSchema[i] != o.PhysicalSchema[i] {
			return false
		}
	}
	for i := range t.ClusterCols {
		if t.ClusterCols[i] != o.ClusterCols[i] {
			return false
		}
	}
	return true
}

// DataSource is one warehouse table read target. All attributes contribute
// to the default ordering, so a source must not be modified once defined.
type DataSource struct {
	Table Table

	// AtTime pins a time-travel read.
	AtTime *time.Time

	// SQLPredicate is a pre-applied filter, carried for compatibility and
	// not validated here.
	SQLPredicate string

	// Ordering is the known row ordering of the source, if any.
	Ordering *ordering.RowOrdering
}

func (s DataSource) hashInto(hs *hasher) {
	hs.str(s.Table.ProjectId)
	hs.str(s.Table.DatasetId)
	hs.str(s.Table.TableId)
	hs.u64(uint64(len(s.Table.PhysicalSchema)))
	for _, col := range s.Table.PhysicalSchema {
		hs.str(col.Name)
		hs.typ(col.Typ)
	}
	hs.i64(s.Table.NumRows)
	hs.boolean(s.Table.IsPhysicalTable)
	hs.u64(uint64(len(s.Table.ClusterCols)))
	for _, col := range s.Table.ClusterCols {
		hs.str(col)
	}
	if s.AtTime != nil {
		hs.i64(s.AtTime.UnixNano())
	} else {
		hs.i64(-1)
	}
	hs.str(s.SQLPredicate)
	hs.rowOrdering(s.Ordering)
}

func (s DataSource) equal(o DataSource) bool {
	if !s.Table.equal(o.Table) || s.SQLPredicate != o.SQLPredicate {
		return false
	}
	if (s.AtTime == nil) != (o.AtTime == nil) {
		return false
	}
	if s.AtTime != nil && !s.AtTime.Equal(*o.AtTime) {
		return false
	}
	return s.Ordering.Equal(o.Ordering)
}

func validateScanList(ctx context.Context, table Table, scan ScanList) error {
	names := table.physicalNames()
	for _, item := range scan.Items {
		if _, ok := names[item.SourceId]; !ok {
			return moerr.NewInvalidInput(ctx,
				"scan column %s cannot be derived from the schema of table %s",
				item.SourceId, table.PathName())
		}
	}
	return nil
}

// ReadLocalNode scans an in-memory serialized column batch.
type ReadLocalNode struct {
	leafNode

	Batch *batch.Batch
	Scan  ScanList
	Sess  Session
}

func NewReadLocalNode(b *batch.Batch, scan ScanList, sess Session) *ReadLocalNode {
	return &ReadLocalNode{Batch: b, Scan: scan, Sess: sess}
}

func (n *ReadLocalNode) Fields() []Field {
	return n.memo.cachedFields(n.Scan.Fields)
}

func (n *ReadLocalNode) VariablesIntroduced() int64 {
	return int64(len(n.Scan.Items)) + 1
}

func (n *ReadLocalNode) OrderAmbiguous() bool    { return false }
func (n *ReadLocalNode) ExplicitlyOrdered() bool { return true }
func (n *ReadLocalNode) SupportsFastHead() bool  { return true }

func (n *ReadLocalNode) RowCount() (int64, bool) {
	return n.Batch.Rows, true
}

func (n *ReadLocalNode) ownSession() Session { return n.Sess }

func (n *ReadLocalNode) TransformChildren(fn func(Node) Node) Node {
	return n
}

func (n *ReadLocalNode) Hash() uint64 { return hashNode(n) }

func (n *ReadLocalNode) hashInto(hs *hasher) {
	hs.str("read_local")
	hs.u64(n.Batch.Fingerprint())
	n.Scan.hashInto(hs)
	hs.str(sessionId(n.Sess))
}

func (n *ReadLocalNode) equalSameKind(o Node) bool {
	other, ok := o.(*ReadLocalNode)
	if !ok {
		return false
	}
	return batchEqual(n.Batch, other.Batch) &&
		n.Scan.equal(other.Scan) &&
		sameSession(n.Sess, other.Sess)
}

func batchEqual(a, b *batch.Batch) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	if a.Rows != b.Rows || len(a.Attrs) != len(b.Attrs) || !bytes.Equal(a.Payload, b.Payload) {
		return false
	}
	for i := range a.Attrs {
		if a.Attrs[i] != b.Attrs[i] || a.Types[i] != b.Types[i] {
			return false
		}
	}
	return true
}

// ReadTableNode scans a warehouse table through a scan list subsetting its
// physical columns.
type ReadTableNode struct {
	leafNode

	Source    DataSource
	Scan      ScanList
	TableSess Session
}

func NewReadTableNode(ctx context.Context, source DataSource, scan ScanList, sess Session) (*ReadTableNode, error) {
	if err := validateScanList(ctx, source.Table, scan); err != nil {
		return nil, err
	}
	return &ReadTableNode{Source: source, Scan: scan, TableSess: sess}, nil
}

func (n *ReadTableNode) Fields() []Field {
	return n.memo.cachedFields(n.Scan.Fields)
}

func (n *ReadTableNode) VariablesIntroduced() int64 {
	return int64(len(n.Scan.Items)) + 1
}

// RelationOpsCreated assumes the worst case, where reading the table bakes
// in an analytic operation to generate an index.
func (n *ReadTableNode) RelationOpsCreated() int64 { return 3 }

func (n *ReadTableNode) OrderAmbiguous() bool {
	return !n.Source.Ordering.IsTotalOrdering()
}

func (n *ReadTableNode) ExplicitlyOrdered() bool {
	return n.Source.Ordering != nil
}

// SupportsFastHead requires sequential row offsets. ORDER BY + LIMIT
// optimizations could later allow it for tables clustered on the ordering
// key.
func (n *ReadTableNode) SupportsFastHead() bool {
	return n.Source.Ordering.IsSequential()
}

func (n *ReadTableNode) RowCount() (int64, bool) {
	if n.Source.SQLPredicate == "" && n.Source.Table.IsPhysicalTable {
		return n.Source.Table.NumRows, true
	}
	return 0, false
}

func (n *ReadTableNode) ownSession() Session { return n.TableSess }

func (n *ReadTableNode) TransformChildren(fn func(Node) Node) Node {
	return n
}

func (n *ReadTableNode) Hash() uint64 { return hashNode(n) }

func (n *ReadTableNode) hashInto(hs *hasher) {
	hs.str("read_table")
	n.Source.hashInto(hs)
	n.Scan.hashInto(hs)
	hs.str(sessionId(n.TableSess))
}

func (n *ReadTableNode) equalSameKind(o Node) bool {
	other, ok := o.(*ReadTableNode)
	if !ok {
		return false
	}
	return n.Source.equal(other.Source) &&
		n.Scan.equal(other.Scan) &&
		sameSession(n.TableSess, other.TableSess)
}

// CachedTableNode is a table read standing in for a previously computed
// subtree. Original is kept only for cache invalidation and debugging; it is
// not a child and takes no part in equality, hashing or traversal.
type CachedTableNode struct {
	leafNode

	Source    DataSource
	Scan      ScanList
	TableSess Session

	Original Node
}

func NewCachedTableNode(ctx context.Context, source DataSource, scan ScanList, sess Session, original Node) (*CachedTableNode, error) {
	if err := validateScanList(ctx, source.Table, scan); err != nil {
		return nil, err
	}
	return &CachedTableNode{Source: source, Scan: scan, TableSess: sess, Original: original}, nil
}

func (n *CachedTableNode) Fields() []Field {
	return n.memo.cachedFields(n.Scan.Fields)
}

func (n *CachedTableNode) VariablesIntroduced() int64 {
	return int64(len(n.Scan.Items)) + 1
}

func (n *CachedTableNode) RelationOpsCreated() int64 { return 3 }

func (n *CachedTableNode) OrderAmbiguous() bool {
	return !n.Source.Ordering.IsTotalOrdering()
}

func (n *CachedTableNode) ExplicitlyOrdered() bool {
	return n.Source.Ordering != nil
}

func (n *CachedTableNode) SupportsFastHead() bool {
	return n.Source.Ordering.IsSequential()
}

func (n *CachedTableNode) RowCount() (int64, bool) {
	if n.Source.SQLPredicate == "" && n.Source.Table.IsPhysicalTable {
		return n.Source.Table.NumRows, true
	}
	return 0, false
}

func (n *CachedTableNode) ownSession() Session { return n.TableSess }

func (n *CachedTableNode) TransformChildren(fn func(Node) Node) Node {
	return n
}

func (n *CachedTableNode) Hash() uint64 { return hashNode(n) }

func (n *CachedTableNode) hashInto(hs *hasher) {
	hs.str("cached_table")
	n.Source.hashInto(hs)
	n.Scan.hashInto(hs)
	hs.str(sessionId(n.TableSess))
}

func (n *CachedTableNode) equalSameKind(o Node) bool {
	other, ok := o.(*CachedTableNode)
	if !ok {
		return false
	}
	return n.Source.equal(other.Source) &&
		n.Scan.equal(other.Scan) &&
		sameSession(n.TableSess, other.TableSess)
}
