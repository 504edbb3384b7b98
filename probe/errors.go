/*
Copyright (c) The clockprobe authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package probe

import (
	"errors"
	"fmt"
)

// ErrorKind classifies probe failures. Every error that crosses a package
// boundary carries exactly one kind, so callers can switch on it without
// string matching.
type ErrorKind int

// Supported error kinds.
const (
	KindOther ErrorKind = iota
	KindDNS
	KindNetwork
	KindTimeout
	KindProtocol
	KindAuth
	KindUsage
)

func (k ErrorKind) String() string {
	switch k {
	case KindDNS:
		return "dns"
	case KindNetwork:
		return "network"
	case KindTimeout:
		return "timeout"
	case KindProtocol:
		return "protocol"
	case KindAuth:
		return "auth"
	case KindUsage:
		return "usage"
	default:
		return "other"
	}
}

// Error is the typed error returned by all probe operations.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Errorf builds an Error of the given kind.
func Errorf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapError attaches a kind and message to an underlying error.
func WrapError(kind ErrorKind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf extracts the kind from err, or KindOther if err isn't a probe error.
func KindOf(err error) ErrorKind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindOther
}

// ExitCode maps an error to the process exit code used in interactive mode.
// DNS failures exit 2, timeouts 3, usage errors 2 and everything else 1.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	switch KindOf(err) {
	case KindDNS, KindUsage:
		return 2
	case KindTimeout:
		return 3
	default:
		return 1
	}
}
