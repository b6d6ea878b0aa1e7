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
	"encoding/binary"
	"hash"
	"hash/fnv"
	"math"

	"github.com/matrixorigin/framequery/pkg/container/types"
	"github.com/matrixorigin/framequery/pkg/frame/ids"
	"github.com/matrixorigin/framequery/pkg/frame/ordering"
)

// hasher accumulates a structural hash over declared node state. Children
// contribute their own cached hash, so hashing a warm tree is O(node), not
// O(subtree). Collections are written with their length first so adjacent
// values cannot alias across boundaries.
type hasher struct {
	h hash.Hash64
}

func newHasher() *hasher {
	return &hasher{h: fnv.New64a()}
}

func (hs *hasher) sum() uint64 {
	return hs.h.Sum64()
}

func (hs *hasher) u64(v uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	hs.h.Write(buf[:])
}

func (hs *hasher) i64(v int64) {
	hs.u64(uint64(v))
}

func (hs *hasher) str(s string) {
	hs.u64(uint64(len(s)))
	hs.h.Write([]byte(s))
}

func (hs *hasher) bytes(b []byte) {
	hs.u64(uint64(len(b)))
	hs.h.Write(b)
}

func (hs *hasher) boolean(v bool) {
	if v {
		hs.u64(1)
	} else {
		hs.u64(0)
	}
}

func (hs *hasher) f64(v float64) {
	hs.u64(math.Float64bits(v))
}

func (hs *hasher) id(v ids.ColumnId) {
	hs.str(string(v))
}

func (hs *hasher) typ(t types.Type) {
	hs.u64(uint64(t.Oid))
	hs.u64(uint64(t.Elem))
	hs.u64(uint64(t.Width))
	hs.u64(uint64(t.Scale))
}

func (hs *hasher) node(n Node) {
	hs.u64(n.Hash())
}

func (hs *hasher) rowOrdering(o *ordering.RowOrdering) {
	if o == nil {
		hs.u64(0)
		return
	}
	hs.u64(1)
	hs.u64(uint64(len(o.Columns)))
	for _, c := range o.Columns {
		hs.id(c.Column)
		hs.u64(uint64(c.Dir))
		hs.boolean(c.NullsLast)
	}
	hs.u64(uint64(o.TotalOrderingCols.Len()))
	for _, col := range o.TotalOrderingCols.Sorted() {
		hs.id(col)
	}
	hs.boolean(o.Sequential)
}
