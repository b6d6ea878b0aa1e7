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

// Package nulls tracks which rows of a column batch hold NULL.
package nulls

import (
	"fmt"

	roaring "github.com/RoaringBitmap/roaring/roaring64"
)

// Nulls is a set of row offsets whose value is NULL.
type Nulls struct {
	Np *roaring.Bitmap
}

func New() *Nulls {
	return &Nulls{Np: roaring.New()}
}

// Any returns true if any row is marked null.
func Any(n *Nulls) bool {
	return n != nil && n.Np != nil && !n.Np.IsEmpty()
}

// Size returns the count of null rows.
func Size(n *Nulls) uint64 {
	if n == nil || n.Np == nil {
		return 0
	}
	return n.Np.GetCardinality()
}

// Contains reports whether row is null.
func Contains(n *Nulls, row uint64) bool {
	return n != nil && n.Np != nil && n.Np.Contains(row)
}

// Add marks the given rows null.
func Add(n *Nulls, rows ...uint64) {
	if n.Np == nil {
		n.Np = roaring.New()
	}
	n.Np.AddMany(rows)
}

// Or unions o into n.
func Or(n *Nulls, o *Nulls) {
	if o == nil || o.Np == nil {
		return
	}
	if n.Np == nil {
		n.Np = roaring.New()
	}
	n.Np.Or(o.Np)
}

func (n *Nulls) String() string {
	if n == nil || n.Np == nil {
		return "[]"
	}
	return fmt.Sprintf("%v", n.Np.ToArray())
}
