package errors

import (
	"errors"
	"fmt"
)

type ErrorCode string

const (
	CodeNotFound       ErrorCode = "NOT_FOUND"
	CodeAlreadyDefined ErrorCode = "ALREADY_DEFINED"
	CodeParse          ErrorCode = "PARSE_ERROR"
	CodeLex            ErrorCode = "LEX_ERROR"
	CodeMacroMatch     ErrorCode = "MACRO_MATCH"
	CodeTranscribe     ErrorCode = "MACRO_TRANSCRIBE"
	CodeBindingDepth   ErrorCode = "BINDING_DEPTH"
	CodeModuleNotFound ErrorCode = "MODULE_NOT_FOUND"
	CodeCfgdOut        ErrorCode = "CFGD_OUT"
	CodeManifest       ErrorCode = "MANIFEST_ERROR"
	CodeConfig         ErrorCode = "CONFIG_ERROR"
	CodeUnimplemented  ErrorCode = "UNIMPLEMENTED"
	CodeInternal       ErrorCode = "INTERNAL_ERROR"
)

type DomainError struct {
	Code    ErrorCode
	Message string
	Err     error
	Context map[string]interface{}
}

const (
	CtxPath      = "path"
	CtxFile      = "file"
	CtxCrate     = "crate"
	CtxModule    = "module"
	CtxNamespace = "namespace"
	CtxMacro     = "macro"
	CtxOffset    = "offset"
)

func (e *DomainError) WithContext(key string, value interface{}) *DomainError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

func (e *DomainError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if len(e.Context) > 0 {
		msg += fmt.Sprintf(" %v", e.Context)
	}
	return msg
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

func New(code ErrorCode, msg string) error {
	return &DomainError{Code: code, Message: msg}
}

func Newf(code ErrorCode, format string, args ...interface{}) error {
	return &DomainError{Code: code, Message: fmt.Sprintf(format, args...)}
}

func Wrap(err error, code ErrorCode, msg string) error {
	return &DomainError{Code: code, Message: msg, Err: err}
}

func AddContext(err error, key string, value interface{}) error {
	var de *DomainError
	if errors.As(err, &de) {
		de.WithContext(key, value)
		return de
	}
	return &DomainError{
		Code:    CodeInternal,
		Message: "wrapped error",
		Err:     err,
		Context: map[string]interface{}{key: value},
	}
}

// IsCode checks if an error has a specific error code.
func IsCode(err error, code ErrorCode) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}
