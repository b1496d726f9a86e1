package upgrade

import (
	"fmt"

	"github.com/chrisjohn404/labjack-t7-upgrade/internal/errp"
)

// Kind identifies which check or stage failed, so a caller can react to
// specific failure modes (§7) instead of parsing error strings.
type Kind int

const (
	// KindFileIO covers any I/O error reading the firmware file.
	KindFileIO Kind = iota
	// KindInvalidHeaderCode means headerFields.headerCode didn't match the T7 magic.
	KindInvalidHeaderCode
	// KindIncorrectDeviceType means headerFields.intendedDevice wasn't an accepted T7 tag.
	KindIncorrectDeviceType
	// KindIncorrectVersion means containedVersion didn't match declaredVersion.
	KindIncorrectVersion
	// KindEraseFailure means a link error occurred issuing an erase
	// transaction or reading flash back for the erase check.
	KindEraseFailure
	// KindEraseVerifyNotAllOnes means a post-erase readback found a non-0xFFFFFFFF word.
	KindEraseVerifyNotAllOnes
	// KindWriteFailure means a link error occurred issuing a write
	// transaction or reading the image back for the write check.
	KindWriteFailure
	// KindWriteVerifyMismatch means a post-write readback didn't match the written data.
	KindWriteVerifyMismatch
	// KindRebootFailure means the firmware-upgrade-request transaction
	// failed, or closing the device handle after it failed.
	KindRebootFailure
	// KindEnumerationTimeout means waitForEnumeration's context expired or
	// was cancelled before rediscovery, or listing or opening the device
	// failed.
	KindEnumerationTimeout
	// KindVersionMismatch means the post-boot firmware version didn't match
	// declaredVersion, or could not be read.
	KindVersionMismatch
)

func (k Kind) String() string {
	switch k {
	case KindFileIO:
		return "FileIO"
	case KindInvalidHeaderCode:
		return "InvalidHeaderCode"
	case KindIncorrectDeviceType:
		return "IncorrectDeviceType"
	case KindIncorrectVersion:
		return "IncorrectVersion"
	case KindEraseFailure:
		return "EraseFailure"
	case KindEraseVerifyNotAllOnes:
		return "EraseVerifyNotAllOnes"
	case KindWriteFailure:
		return "WriteFailure"
	case KindWriteVerifyMismatch:
		return "WriteVerifyMismatch"
	case KindRebootFailure:
		return "RebootFailure"
	case KindEnumerationTimeout:
		return "EnumerationTimeout"
	case KindVersionMismatch:
		return "VersionMismatch"
	default:
		return "Unknown"
	}
}

// StageError is the error type every stage in this package returns on
// failure. WordIndex is only meaningful for KindWriteVerifyMismatch.
type StageError struct {
	Kind      Kind
	WordIndex int
	err       error
}

// Error implements the error interface.
func (e *StageError) Error() string {
	if e.Kind == KindWriteVerifyMismatch {
		return fmt.Sprintf("%s at word %d: %v", e.Kind, e.WordIndex, e.err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.err)
}

// Unwrap allows errors.Is/errors.As to see through a StageError to the
// underlying link or I/O error.
func (e *StageError) Unwrap() error {
	return e.err
}

func newStageError(kind Kind, err error) *StageError {
	return &StageError{Kind: kind, err: errp.WithStack(err)}
}

func newStageErrorf(kind Kind, format string, args ...interface{}) *StageError {
	return &StageError{Kind: kind, err: errp.Newf(format, args...)}
}

func newWriteVerifyMismatch(wordIndex int, got, want uint32) *StageError {
	return &StageError{
		Kind:      KindWriteVerifyMismatch,
		WordIndex: wordIndex,
		err:       errp.Newf("word %d: got 0x%08X, want 0x%08X", wordIndex, got, want),
	}
}
