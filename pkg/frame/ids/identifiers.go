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

// Package ids provides the symbolic column identifier space of the expression
// tree. Identifiers are plain values; equality is value equality, and the
// allocator guarantees process-wide uniqueness for generated ones.
package ids

import (
	"fmt"
	"sync/atomic"
)

// ColumnId names one logical column value. A small number of well-known ids
// (such as the concat output labels) are fixed strings; everything else is
// drawn from an allocator.
type ColumnId string

func (id ColumnId) String() string {
	return string(id)
}

// globalSerial backs Alloc. Never reset, so two ids allocated anywhere in the
// process never collide.
var globalSerial atomic.Uint64

// Alloc returns a fresh process-wide-unique column id with the given prefix.
func Alloc(prefix string) ColumnId {
	n := globalSerial.Add(1)
	return ColumnId(fmt.Sprintf("%s_%d", prefix, n-1))
}

// Generator is a sequential local allocator. The join compiler passes one
// generator into both side-remapping steps so the two sides provably draw
// from disjoint ranges.
type Generator struct {
	prefix string
	serial atomic.Uint64
}

func NewGenerator(prefix string) *Generator {
	return &Generator{prefix: prefix}
}

func (g *Generator) Next() ColumnId {
	n := g.serial.Add(1)
	return ColumnId(fmt.Sprintf("%s_%d", g.prefix, n-1))
}
