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

package types

import "fmt"

// T is the type oid of a column value as seen by the warehouse engine.
type T uint8

const (
	T_any T = 0

	// boolean
	T_bool T = 10

	// integers
	T_int8   T = 20
	T_int16  T = 21
	T_int32  T = 22
	T_int64  T = 23
	T_uint8  T = 24
	T_uint16 T = 25
	T_uint32 T = 26
	T_uint64 T = 27

	// floating point
	T_float32 T = 30
	T_float64 T = 31

	// exact numeric
	T_decimal T = 35

	// temporal
	T_date      T = 40
	T_time      T = 41
	T_datetime  T = 42
	T_timestamp T = 43

	// character strings
	T_char    T = 50
	T_varchar T = 51

	// raw bytes
	T_binary T = 55

	// geospatial
	T_geometry  T = 60
	T_geography T = 61

	// nested
	T_json   T = 70
	T_array  T = 71
	T_struct T = 72
)

// Type pairs a type oid with its modifiers. Elem is only meaningful for
// T_array and names the element oid.
type Type struct {
	Oid   T
	Elem  T
	Width int32
	Scale int32
}

func New(oid T) Type {
	return Type{Oid: oid}
}

func NewArray(elem T) Type {
	return Type{Oid: T_array, Elem: elem}
}

func (t T) ToType() Type {
	return Type{Oid: t}
}

func (t Type) IsBoolean() bool {
	return t.Oid == T_bool
}

func (t Type) IsInteger() bool {
	return t.Oid >= T_int8 && t.Oid <= T_uint64
}

func (t Type) IsFloat() bool {
	return t.Oid == T_float32 || t.Oid == T_float64
}

func (t Type) IsNumeric() bool {
	return t.IsInteger() || t.IsFloat() || t.Oid == T_decimal
}

func (t Type) IsTemporal() bool {
	return t.Oid >= T_date && t.Oid <= T_timestamp
}

func (t Type) IsString() bool {
	return t.Oid == T_char || t.Oid == T_varchar
}

func (t Type) IsBinary() bool {
	return t.Oid == T_binary
}

func (t Type) IsGeospatial() bool {
	return t.Oid == T_geometry || t.Oid == T_geography
}

// IsNested reports whether values of this type have internal structure the
// engine cannot compare or cast directly.
func (t Type) IsNested() bool {
	return t.Oid == T_json || t.Oid == T_array || t.Oid == T_struct
}

func (t Type) IsArray() bool {
	return t.Oid == T_array
}

// ArrayElem returns the element type of an array type.
func (t Type) ArrayElem() Type {
	return Type{Oid: t.Elem}
}

func (t T) String() string {
	switch t {
	case T_any:
		return "ANY"
	case T_bool:
		return "BOOL"
	case T_int8:
		return "TINYINT"
	case T_int16:
		return "SMALLINT"
	case T_int32:
		return "INT"
	case T_int64:
		return "BIGINT"
	case T_uint8:
		return "TINYINT UNSIGNED"
	case T_uint16:
		return "SMALLINT UNSIGNED"
	case T_uint32:
		return "INT UNSIGNED"
	case T_uint64:
		return "BIGINT UNSIGNED"
	case T_float32:
		return "FLOAT"
	case T_float64:
		return "DOUBLE"
	case T_decimal:
		return "DECIMAL"
	case T_date:
		return "DATE"
	case T_time:
		return "TIME"
	case T_datetime:
		return "DATETIME"
	case T_timestamp:
		return "TIMESTAMP"
	case T_char:
		return "CHAR"
	case T_varchar:
		return "VARCHAR"
	case T_binary:
		return "BINARY"
	case T_geometry:
		return "GEOMETRY"
	case T_geography:
		return "GEOGRAPHY"
	case T_json:
		return "JSON"
	case T_array:
		return "ARRAY"
	case T_struct:
		return "STRUCT"
	}
	return fmt.Sprintf("unexpected_type[%d]", t)
}

func (t Type) String() string {
	if t.Oid == T_array {
		return fmt.Sprintf("ARRAY<%s>", t.Elem.String())
	}
	return t.Oid.String()
}
