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
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAllocUnique(t *testing.T) {
	seen := make(map[ColumnId]bool)
	for i := 0; i < 1000; i++ {
		id := Alloc("col")
		require.False(t, seen[id])
		require.True(t, strings.HasPrefix(string(id), "col_"))
		seen[id] = true
	}
}

func TestAllocConcurrent(t *testing.T) {
	const workers = 8
	const perWorker = 500
	var mu sync.Mutex
	seen := make(map[ColumnId]bool)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := make([]ColumnId, 0, perWorker)
			for i := 0; i < perWorker; i++ {
				local = append(local, Alloc("c"))
			}
			mu.Lock()
			defer mu.Unlock()
			for _, id := range local {
				require.False(t, seen[id])
				seen[id] = true
			}
		}()
	}
	wg.Wait()
	require.Len(t, seen, workers*perWorker)
}

func TestGeneratorSequential(t *testing.T) {
	gen := NewGenerator("col")
	require.Equal(t, ColumnId("col_0"), gen.Next())
	require.Equal(t, ColumnId("col_1"), gen.Next())
	require.Equal(t, ColumnId("col_2"), gen.Next())

	// independent generators restart their sequence
	other := NewGenerator("col")
	require.Equal(t, ColumnId("col_0"), other.Next())
}

func TestGeneratorSharedAcrossSides(t *testing.T) {
	// one generator handed to two remapping passes yields disjoint names
	gen := NewGenerator("col")
	left := []ColumnId{gen.Next(), gen.Next()}
	right := []ColumnId{gen.Next(), gen.Next(), gen.Next()}
	all := make(map[ColumnId]bool)
	for _, id := range append(left, right...) {
		require.False(t, all[id])
		all[id] = true
	}
}
