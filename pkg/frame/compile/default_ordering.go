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
	"github.com/matrixorigin/framequery/pkg/container/types"
	"github.com/matrixorigin/framequery/pkg/frame/ids"
	"github.com/matrixorigin/framequery/pkg/frame/ordering"
)

// convertToNonNullString renders a column as a non-null string usable inside
// a row fingerprint. Values are escaped and prefixed with a backslash
// delimiter so concatenated columns cannot alias: ("a\", "b") and ("a", "\b")
// fingerprint differently.
func convertToNonNullString(col ColumnRef) Expr {
	varchar := types.New(types.T_varchar)
	var result Expr
	switch t := col.Typ; {
	case t.IsString():
		result = col
	case t.IsNumeric() || t.IsBoolean() || t.IsBinary() || t.IsTemporal():
		result = Call{Name: FnCastString, Args: []Expr{col}, Typ: varchar}
	case t.IsGeospatial():
		result = Call{Name: FnGeoAsText, Args: []Expr{col}, Typ: varchar}
	default:
		// Nested and exotic types go through JSON rendering.
		result = Call{Name: FnToJSONString, Args: []Expr{col}, Typ: varchar}
	}
	filled := Call{Name: FnIfNull, Args: []Expr{result, Literal{Repr: "", Typ: varchar}}, Typ: varchar}
	escaped := Call{
		Name: FnReplace,
		Args: []Expr{filled, Literal{Repr: `\`, Typ: varchar}, Literal{Repr: `\\`, Typ: varchar}},
		Typ:  varchar,
	}
	return Call{
		Name: FnConcat,
		Args: []Expr{Literal{Repr: `\`, Typ: varchar}, escaped},
		Typ:  varchar,
	}
}

// GenDefaultOrdering synthesizes a total ordering for a relation with no
// natural order key. Every column feeds a row fingerprint hash; a second,
// decorrelated hash (optional) and a random value break hash collisions.
func GenDefaultOrdering(rel *UnorderedRel, useDoubleHash bool) *OrderedRel {
	varchar := types.New(types.T_varchar)
	int64t := types.New(types.T_int64)
	float64t := types.New(types.T_float64)

	strValues := make([]Expr, len(rel.Columns))
	for i, c := range rel.Columns {
		strValues[i] = convertToNonNullString(ColumnRef{Name: c.Name, Typ: c.Expr.Type()})
	}
	var fullRow Expr
	if len(strValues) == 1 {
		fullRow = strValues[0]
	} else {
		fullRow = Call{Name: FnConcat, Args: strValues, Typ: varchar}
	}

	hashPart := NamedExpr{
		Name: ids.Alloc("order_id"),
		Expr: Call{Name: FnHash, Args: []Expr{fullRow}, Typ: int64t},
	}
	randPart := NamedExpr{
		Name: ids.Alloc("order_id"),
		Expr: Call{Name: FnRandom, Typ: float64t},
	}

	hidden := []NamedExpr{hashPart}
	if useDoubleHash {
		// Hash the fingerprint with a suffix so the two hashes decorrelate.
		suffixed := Call{Name: FnConcat, Args: []Expr{fullRow, Literal{Repr: "_", Typ: varchar}}, Typ: varchar}
		hidden = append(hidden, NamedExpr{
			Name: ids.Alloc("order_id"),
			Expr: Call{Name: FnHash, Args: []Expr{suffixed}, Typ: int64t},
		})
	}
	hidden = append(hidden, randPart)

	keys := make([]ordering.OrderingExpression, len(hidden))
	total := ids.MakeColSet()
	for i, c := range hidden {
		keys[i] = ordering.Asc(c.Name)
		total.Add(c.Name)
	}
	return &OrderedRel{
		UnorderedRel:          *rel,
		HiddenOrderingColumns: hidden,
		Ordering:              ordering.NewTotalOrdering(total, keys...),
	}
}
