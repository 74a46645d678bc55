// Package errkind implements the error taxonomy every other package in
// this module reports through: a small set of kinds, each mapping to a
// process exit code, carrying the originating source location the way
// --log-level-stderr=detail surfaces it.
package errkind

import "fmt"

// Kind identifies the class of failure. The set is closed and mirrors the
// taxonomy used across the storage, config, and block-delta engines.
type Kind int

const (
	_ Kind = iota

	// AssertError indicates a contract violation — a bug, not a recoverable
	// condition (e.g. Buffer's used<=limit<=size invariant breaking).
	AssertError

	// FormatError indicates malformed input: a corrupt ini file, codec
	// frame, XML/JSON body, or block-map.
	FormatError

	FileMissingError
	FileOpenError
	FileReadError
	FileWriteError
	FileCloseError
	FileSyncError
	FileRemoveError
	FileMoveError

	PathMissingError
	PathOpenError
	PathCreateError
	PathRemoveError
	PathSyncError
	PathCloseError

	CryptoError
	MemoryError

	OptionInvalidError
	OptionRequiredError
	OptionInvalidValueError
	CommandInvalidError
	CommandRequiredError
	ParamInvalidError
	ParamRequiredError

	JSONFormatError
	VersionNotSupportedError
	ProtocolError
	ArchiveMismatchError
	BackupMismatchError
	DbConnectError
	ServiceError
)

// String returns the kind's wire name, as printed in "<KIND>: <message>".
func (k Kind) String() string {
	switch k {
	case AssertError:
		return "AssertError"
	case FormatError:
		return "FormatError"
	case FileMissingError:
		return "FileMissingError"
	case FileOpenError:
		return "FileOpenError"
	case FileReadError:
		return "FileReadError"
	case FileWriteError:
		return "FileWriteError"
	case FileCloseError:
		return "FileCloseError"
	case FileSyncError:
		return "FileSyncError"
	case FileRemoveError:
		return "FileRemoveError"
	case FileMoveError:
		return "FileMoveError"
	case PathMissingError:
		return "PathMissingError"
	case PathOpenError:
		return "PathOpenError"
	case PathCreateError:
		return "PathCreateError"
	case PathRemoveError:
		return "PathRemoveError"
	case PathSyncError:
		return "PathSyncError"
	case PathCloseError:
		return "PathCloseError"
	case CryptoError:
		return "CryptoError"
	case MemoryError:
		return "MemoryError"
	case OptionInvalidError:
		return "OptionInvalidError"
	case OptionRequiredError:
		return "OptionRequiredError"
	case OptionInvalidValueError:
		return "OptionInvalidValueError"
	case CommandInvalidError:
		return "CommandInvalidError"
	case CommandRequiredError:
		return "CommandRequiredError"
	case ParamInvalidError:
		return "ParamInvalidError"
	case ParamRequiredError:
		return "ParamRequiredError"
	case JSONFormatError:
		return "JsonFormatError"
	case VersionNotSupportedError:
		return "VersionNotSupportedError"
	case ProtocolError:
		return "ProtocolError"
	case ArchiveMismatchError:
		return "ArchiveMismatchError"
	case BackupMismatchError:
		return "BackupMismatchError"
	case DbConnectError:
		return "DbConnectError"
	case ServiceError:
		return "ServiceError"
	default:
		return "UnknownError"
	}
}

// ExitCode maps a kind to the process exit code described in §7/§6.
func (k Kind) ExitCode() int {
	switch k {
	case OptionInvalidError, OptionRequiredError, OptionInvalidValueError,
		CommandInvalidError, CommandRequiredError, ParamInvalidError, ParamRequiredError:
		return 2
	case FileMissingError, PathMissingError:
		return 3
	case FormatError, JSONFormatError:
		return 4
	case AssertError, MemoryError:
		return 5
	default:
		return 1
	}
}

// Error is a located, kinded error. New leaves the location empty;
// WithLocation sets File and Line, the way §7 describes
// --log-level-stderr=detail appending a source location.
type Error struct {
	Kind Kind
	Msg  string
	File string
	Line int
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

// Detail renders the error with its source location appended, as produced
// under --log-level-stderr=detail.
func (e *Error) Detail() string {
	return fmt.Sprintf("%s: %s\n[%s:%d]", e.Kind, e.Msg, e.File, e.Line)
}

// New constructs an Error of the given kind with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// WithLocation attaches a source location, used by call sites that want
// --log-level-stderr=detail output without threading runtime.Caller
// through every New call.
func (e *Error) WithLocation(file string, line int) *Error {
	e.File = file
	e.Line = line
	return e
}
