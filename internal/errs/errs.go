// Package errs 导入子系统的错误分类.
//
// 每个返回给调用方的错误都带一个 Kind, 运维工具据此决定重试还是人工处理:
//
//	if errs.KindOf(err) == errs.KindBusy { ... }
//	if errors.Is(err, errs.ErrWrite) { ... }
package errs

import (
	"context"
	"errors"
	"fmt"
)

type Kind string

const (
	KindConfig      Kind = "config"
	KindProvision   Kind = "provision"
	KindParse       Kind = "parse"
	KindWrite       Kind = "write"
	KindRecompute   Kind = "recompute"
	KindUnavailable Kind = "unavailable"
	KindBusy        Kind = "busy"
	KindNotFound    Kind = "not_found"
	KindInvalid     Kind = "invalid"
	KindInternal    Kind = "internal"
)

// Sentinels for errors.Is; matching is by kind only.
var (
	ErrConfig      = &Error{Kind: KindConfig}
	ErrProvision   = &Error{Kind: KindProvision}
	ErrParse       = &Error{Kind: KindParse}
	ErrWrite       = &Error{Kind: KindWrite}
	ErrRecompute   = &Error{Kind: KindRecompute}
	ErrUnavailable = &Error{Kind: KindUnavailable}
	ErrBusy        = &Error{Kind: KindBusy}
	ErrNotFound    = &Error{Kind: KindNotFound}
	ErrInvalid     = &Error{Kind: KindInvalid}
)

type Error struct {
	Kind Kind
	Op   string // e.g. "import", "ensure_tables"
	Key  string // file type key, optional
	Err  error
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Key != "" {
		msg += " [" + e.Key + "]"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Op == "" || t.Op == e.Op) && (t.Key == "" || t.Key == e.Key)
}

func New(kind Kind, op, key string, err error) *Error {
	return &Error{Kind: kind, Op: op, Key: key, Err: err}
}

// Newf formats the underlying message.
func Newf(kind Kind, op, key, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Key: key, Err: fmt.Errorf(format, args...)}
}

// KindOf 返回错误链上第一个 *Error 的 Kind; 非分类错误返回 KindInternal, nil 返回空串.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsTimeout reports whether err was caused by a deadline or cancellation.
func IsTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}
