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

package nulls

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNulls(t *testing.T) {
	n := New()
	require.False(t, Any(n))
	require.Equal(t, uint64(0), Size(n))

	Add(n, 0, 3, 7)
	require.True(t, Any(n))
	require.Equal(t, uint64(3), Size(n))
	require.True(t, Contains(n, 3))
	require.False(t, Contains(n, 4))
}

func TestNullsNil(t *testing.T) {
	var n *Nulls
	require.False(t, Any(n))
	require.Equal(t, uint64(0), Size(n))
	require.False(t, Contains(n, 0))
	require.Equal(t, "[]", n.String())
}

func TestNullsOr(t *testing.T) {
	a := New()
	Add(a, 1, 2)
	b := New()
	Add(b, 2, 9)
	Or(a, b)
	require.Equal(t, uint64(3), Size(a))
	require.True(t, Contains(a, 9))
	Or(a, nil)
	require.Equal(t, uint64(3), Size(a))
}
