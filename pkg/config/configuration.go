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

	"github.com/BurntSushi/toml"
	"github.com/matrixorigin/framequery/pkg/common/moerr"
	"github.com/matrixorigin/framequery/pkg/logutil"
)

// Ordering hash modes accepted by orderingHashMode.
const (
	OrderingHashAuto   = "auto"
	OrderingHashSingle = "single"
	OrderingHashDouble = "double"
)

// CompilerParameters of the query compiler core.
type CompilerParameters struct {
	//log level of the compiler. default: info
	LogLevel string `toml:"logLevel"`

	//log file name. empty means stderr
	LogFilename string `toml:"logFilename"`

	//log file max size in MB before rotation. default: 512
	LogMaxSize int64 `toml:"logMaxSize"`

	//max days to retain rotated log files. default: 30
	LogMaxDays int64 `toml:"logMaxDays"`

	//max count of rotated log files to retain. default: 10
	LogMaxBackups int64 `toml:"logMaxBackups"`

	//planning complexity score above which callers should materialize an
	//intermediate result instead of growing the expression tree. default: 1 << 24
	PlanningComplexityLimit int64 `toml:"planningComplexityLimit"`

	//ordering hash mode for default orderings: auto, single or double. default: auto
	OrderingHashMode string `toml:"orderingHashMode"`

	//in auto mode, sources with a known row count at or below this limit use a
	//single hash order key. default: 100000
	OrderingSingleHashRowLimit int64 `toml:"orderingSingleHashRowLimit"`
}

// SetDefaultValues fills in the zero-valued parameters.
func (p *CompilerParameters) SetDefaultValues() {
	if p.LogLevel == "" {
		p.LogLevel = "info"
	}
	if p.LogMaxSize == 0 {
		p.LogMaxSize = 512
	}
	if p.LogMaxDays == 0 {
		p.LogMaxDays = 30
	}
	if p.LogMaxBackups == 0 {
		p.LogMaxBackups = 10
	}
	if p.PlanningComplexityLimit == 0 {
		p.PlanningComplexityLimit = 1 << 24
	}
	if p.OrderingHashMode == "" {
		p.OrderingHashMode = OrderingHashAuto
	}
	if p.OrderingSingleHashRowLimit == 0 {
		p.OrderingSingleHashRowLimit = 100000
	}
}

// Validate rejects parameter combinations the compiler cannot honor.
func (p *CompilerParameters) Validate(ctx context.Context) error {
	switch p.OrderingHashMode {
	case OrderingHashAuto, OrderingHashSingle, OrderingHashDouble:
	default:
		return moerr.NewBadConfig(ctx, "orderingHashMode %q", p.OrderingHashMode)
	}
	if p.PlanningComplexityLimit < 0 {
		return moerr.NewBadConfig(ctx, "planningComplexityLimit %d", p.PlanningComplexityLimit)
	}
	if p.OrderingSingleHashRowLimit < 0 {
		return moerr.NewBadConfig(ctx, "orderingSingleHashRowLimit %d", p.OrderingSingleHashRowLimit)
	}
	return nil
}

// MakeLogConfig converts the log parameters for logutil.SetupLogger.
func (p *CompilerParameters) MakeLogConfig() *logutil.LogConfig {
	return &logutil.LogConfig{
		Level:      p.LogLevel,
		Filename:   p.LogFilename,
		MaxSize:    int(p.LogMaxSize),
		MaxDays:    int(p.LogMaxDays),
		MaxBackups: int(p.LogMaxBackups),
	}
}

// LoadConfigurationFromFile reads parameters from a toml file, then applies
// defaults to anything the file left unset.
func LoadConfigurationFromFile(ctx context.Context, fname string, params *CompilerParameters) error {
	if _, err := toml.DecodeFile(fname, params); err != nil {
		return moerr.NewBadConfig(ctx, "decode %s: %v", fname, err)
	}
	params.SetDefaultValues()
	return params.Validate(ctx)
}

// LoadConfigurationFromString is LoadConfigurationFromFile for in-memory toml.
func LoadConfigurationFromString(ctx context.Context, input string, params *CompilerParameters) error {
	if _, err := toml.Decode(input, params); err != nil {
		return moerr.NewBadConfig(ctx, "decode: %v", err)
	}
	params.SetDefaultValues()
	return params.Validate(ctx)
}
