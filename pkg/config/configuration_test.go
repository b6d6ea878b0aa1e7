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

package config

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/matrixorigin/framequery/pkg/common/moerr"
)

func TestSetDefaultValues(t *testing.T) {
	var p CompilerParameters
	p.SetDefaultValues()
	require.Equal(t, "info", p.LogLevel)
	require.Equal(t, int64(512), p.LogMaxSize)
	require.Equal(t, int64(30), p.LogMaxDays)
	require.Equal(t, int64(10), p.LogMaxBackups)
	require.Equal(t, int64(1<<24), p.PlanningComplexityLimit)
	require.Equal(t, OrderingHashAuto, p.OrderingHashMode)
	require.Equal(t, int64(100000), p.OrderingSingleHashRowLimit)
}

func TestLoadConfigurationFromString(t *testing.T) {
	ctx := context.Background()
	input := `
logLevel = "debug"
planningComplexityLimit = 4096
orderingHashMode = "double"
`
	var p CompilerParameters
	require.NoError(t, LoadConfigurationFromString(ctx, input, &p))
	require.Equal(t, "debug", p.LogLevel)
	require.Equal(t, int64(4096), p.PlanningComplexityLimit)
	require.Equal(t, OrderingHashDouble, p.OrderingHashMode)
	// untouched fields still defaulted
	require.Equal(t, int64(100000), p.OrderingSingleHashRowLimit)
}

func TestValidateRejectsBadHashMode(t *testing.T) {
	ctx := context.Background()
	var p CompilerParameters
	p.SetDefaultValues()
	p.OrderingHashMode = "triple"
	err := p.Validate(ctx)
	require.Error(t, err)
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrBadConfig))
}

func TestValidateRejectsNegativeLimits(t *testing.T) {
	ctx := context.Background()
	var p CompilerParameters
	p.SetDefaultValues()
	p.PlanningComplexityLimit = -1
	require.True(t, moerr.IsMoErrCode(p.Validate(ctx), moerr.ErrBadConfig))

	p.SetDefaultValues()
	p.PlanningComplexityLimit = 1
	p.OrderingSingleHashRowLimit = -5
	require.True(t, moerr.IsMoErrCode(p.Validate(ctx), moerr.ErrBadConfig))
}

func TestLoadConfigurationFromStringBadToml(t *testing.T) {
	ctx := context.Background()
	var p CompilerParameters
	err := LoadConfigurationFromString(ctx, "logLevel = [", &p)
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrBadConfig))
}

func TestMakeLogConfig(t *testing.T) {
	var p CompilerParameters
	p.SetDefaultValues()
	p.LogFilename = "compiler.log"
	conf := p.MakeLogConfig()
	require.Equal(t, "info", conf.Level)
	require.Equal(t, "compiler.log", conf.Filename)
	require.Equal(t, 512, conf.MaxSize)
}
