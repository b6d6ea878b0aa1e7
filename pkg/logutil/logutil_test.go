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

package logutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestGetGlobalLoggerDefault(t *testing.T) {
	require.NotNil(t, GetGlobalLogger())
}

func TestSetupLoggerBadLevelFallsBack(t *testing.T) {
	SetupLogger(&LogConfig{Level: "nonsense"})
	require.NotNil(t, GetGlobalLogger())
	Info("after fallback setup")
}

func TestSetupLoggerFileSink(t *testing.T) {
	dir := t.TempDir()
	fname := filepath.Join(dir, "compiler.log")
	SetupLogger(&LogConfig{Level: "debug", Filename: fname, MaxSize: 1, MaxDays: 1, MaxBackups: 1})

	Debug("file sink check", zap.String("k", "v"))
	Infof("formatted %d", 42)

	info, err := os.Stat(fname)
	require.NoError(t, err)
	require.Greater(t, info.Size(), int64(0))

	// restore stderr logging for other tests
	SetupLogger(&LogConfig{Level: "info"})
}
