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
	"testing"

	"github.com/smartystreets/goconvey/convey"
)

func TestColSet(t *testing.T) {
	convey.Convey("basic membership", t, func() {
		s := MakeColSet("a", "b")
		convey.So(s.Contains("a"), convey.ShouldBeTrue)
		convey.So(s.Contains("c"), convey.ShouldBeFalse)
		convey.So(s.Len(), convey.ShouldEqual, 2)
		convey.So(s.Empty(), convey.ShouldBeFalse)
		convey.So(MakeColSet().Empty(), convey.ShouldBeTrue)
	})

	convey.Convey("union and difference leave inputs untouched", t, func() {
		s := MakeColSet("a", "b")
		u := s.Union(MakeColSet("b", "c"))
		convey.So(u.Len(), convey.ShouldEqual, 3)
		convey.So(s.Len(), convey.ShouldEqual, 2)

		d := u.Difference("a", "c")
		convey.So(d.Equals(MakeColSet("b")), convey.ShouldBeTrue)
		convey.So(u.Len(), convey.ShouldEqual, 3)
	})

	convey.Convey("unionCols", t, func() {
		s := MakeColSet("a").UnionCols("b", "b", "c")
		convey.So(s.Len(), convey.ShouldEqual, 3)
	})

	convey.Convey("subset and intersects", t, func() {
		s := MakeColSet("a", "b", "c")
		convey.So(MakeColSet("a", "c").SubsetOf(s), convey.ShouldBeTrue)
		convey.So(MakeColSet("a", "d").SubsetOf(s), convey.ShouldBeFalse)
		convey.So(s.Intersects(MakeColSet("d", "c")), convey.ShouldBeTrue)
		convey.So(s.Intersects(MakeColSet("d", "e")), convey.ShouldBeFalse)
		convey.So(MakeColSet().SubsetOf(s), convey.ShouldBeTrue)
	})

	convey.Convey("sorted and string are deterministic", t, func() {
		s := MakeColSet("b", "a", "c")
		convey.So(s.Sorted(), convey.ShouldResemble, []ColumnId{"a", "b", "c"})
		convey.So(s.String(), convey.ShouldEqual, "(a,b,c)")
	})

	convey.Convey("equals", t, func() {
		convey.So(MakeColSet("x", "y").Equals(MakeColSet("y", "x")), convey.ShouldBeTrue)
		convey.So(MakeColSet("x").Equals(MakeColSet("y")), convey.ShouldBeFalse)
		convey.So(MakeColSet().Equals(nil), convey.ShouldBeTrue)
	})
}
