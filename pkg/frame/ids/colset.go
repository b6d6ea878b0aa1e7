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

package ids

import (
	"sort"
	"strings"
)

// ColSet stores an unordered set of column ids. The zero value is an empty,
// read-only set; call Add only on sets made with MakeColSet or Copy.
type ColSet map[ColumnId]struct{}

// MakeColSet returns a set initialized with the given ids.
func MakeColSet(vals ...ColumnId) ColSet {
	res := make(ColSet, len(vals))
	for _, v := range vals {
		res.Add(v)
	}
	return res
}

func (s ColSet) Add(col ColumnId) {
	s[col] = struct{}{}
}

func (s ColSet) Contains(col ColumnId) bool {
	_, ok := s[col]
	return ok
}

func (s ColSet) Empty() bool {
	return len(s) == 0
}

func (s ColSet) Len() int {
	return len(s)
}

func (s ColSet) Copy() ColSet {
	res := make(ColSet, len(s))
	for col := range s {
		res[col] = struct{}{}
	}
	return res
}

// Union returns a new set holding both s and others.
func (s ColSet) Union(others ...ColSet) ColSet {
	res := s.Copy()
	for _, o := range others {
		for col := range o {
			res[col] = struct{}{}
		}
	}
	return res
}

// UnionCols returns a new set holding s plus the given ids.
func (s ColSet) UnionCols(cols ...ColumnId) ColSet {
	res := s.Copy()
	for _, col := range cols {
		res[col] = struct{}{}
	}
	return res
}

// Difference returns a new set holding s minus the given ids.
func (s ColSet) Difference(cols ...ColumnId) ColSet {
	res := s.Copy()
	for _, col := range cols {
		delete(res, col)
	}
	return res
}

// Intersects reports whether s and o share any id.
func (s ColSet) Intersects(o ColSet) bool {
	small, large := s, o
	if len(large) < len(small) {
		small, large = large, small
	}
	for col := range small {
		if large.Contains(col) {
			return true
		}
	}
	return false
}

// SubsetOf reports whether every id of s is in o.
func (s ColSet) SubsetOf(o ColSet) bool {
	for col := range s {
		if !o.Contains(col) {
			return false
		}
	}
	return true
}

func (s ColSet) Equals(o ColSet) bool {
	return len(s) == len(o) && s.SubsetOf(o)
}

// Sorted returns the ids in lexical order, for deterministic iteration.
func (s ColSet) Sorted() []ColumnId {
	res := make([]ColumnId, 0, len(s))
	for col := range s {
		res = append(res, col)
	}
	sort.Slice(res, func(i, j int) bool { return res[i] < res[j] })
	return res
}

func (s ColSet) String() string {
	var sb strings.Builder
	sb.WriteByte('(')
	for i, col := range s.Sorted() {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(string(col))
	}
	sb.WriteByte(')')
	return sb.String()
}
