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

package moerr

import (
	"context"
	"fmt"
)

const defaultSqlState = "HY000"

const (
	// 0 - 99 is OK. Codes in this range are not errors.
	Ok uint16 = 0

	OkMax uint16 = 99

	// Group 1: internal errors
	ErrStart    uint16 = 20100
	ErrInternal uint16 = 20101
	ErrNYI      uint16 = 20102

	// Group 3: invalid input
	ErrBadConfig    uint16 = 20300
	ErrInvalidInput uint16 = 20301
	ErrDuplicate    uint16 = 20305

	// Group 4: unexpected state
	ErrInvalidState uint16 = 20400

	ErrEnd uint16 = 65535
)

type moErrorMsgItem struct {
	sqlStates        []string
	errorMsgOrFormat string
}

var errorMsgRefer = map[uint16]moErrorMsgItem{
	Ok: {[]string{"00000"}, "ok"},

	ErrInternal: {[]string{defaultSqlState}, "internal error: %s"},
	ErrNYI:      {[]string{defaultSqlState}, "%s is not yet implemented"},

	ErrBadConfig:    {[]string{defaultSqlState}, "invalid configuration: %s"},
	ErrInvalidInput: {[]string{"22000"}, "invalid input: %s"},
	ErrDuplicate:    {[]string{defaultSqlState}, "duplicate: %s"},

	ErrInvalidState: {[]string{defaultSqlState}, "invalid state %s"},
}

// Error is the common error type of this module. All errors surfaced by the
// compiler core carry one of the codes above.
type Error struct {
	code     uint16
	sqlState string
	message  string
}

func newError(ctx context.Context, code uint16, args ...any) *Error {
	_ = ctx
	item, has := errorMsgRefer[code]
	if !has {
		panic(fmt.Errorf("not exist MOErrorCode: %d", code))
	}
	var err *Error
	if len(args) == 0 {
		err = &Error{
			code:     code,
			sqlState: item.sqlStates[0],
			message:  item.errorMsgOrFormat,
		}
	} else {
		err = &Error{
			code:     code,
			sqlState: item.sqlStates[0],
			message:  fmt.Sprintf(item.errorMsgOrFormat, args...),
		}
	}
	return err
}

func (e *Error) Error() string {
	return e.message
}

func (e *Error) ErrorCode() uint16 {
	return e.code
}

func (e *Error) SqlState() string {
	return e.sqlState
}

func (e *Error) Succeeded() bool {
	return e.code <= OkMax
}

// IsMoErrCode reports whether err is a moerr with the given code.
func IsMoErrCode(err error, rc uint16) bool {
	if err == nil {
		return rc == Ok
	}
	me, ok := err.(*Error)
	if !ok {
		return false
	}
	return me.code == rc
}

func NewInternalError(ctx context.Context, msg string, args ...any) *Error {
	return newError(ctx, ErrInternal, fmt.Sprintf(msg, args...))
}

func NewNYI(ctx context.Context, msg string, args ...any) *Error {
	return newError(ctx, ErrNYI, fmt.Sprintf(msg, args...))
}

func NewBadConfig(ctx context.Context, msg string, args ...any) *Error {
	return newError(ctx, ErrBadConfig, fmt.Sprintf(msg, args...))
}

func NewInvalidInput(ctx context.Context, msg string, args ...any) *Error {
	return newError(ctx, ErrInvalidInput, fmt.Sprintf(msg, args...))
}

func NewDuplicate(ctx context.Context, msg string, args ...any) *Error {
	return newError(ctx, ErrDuplicate, fmt.Sprintf(msg, args...))
}

func NewInvalidState(ctx context.Context, msg string, args ...any) *Error {
	return newError(ctx, ErrInvalidState, fmt.Sprintf(msg, args...))
}
