package cliptrack

import (
	"context"
	"errors"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
)

// Failure kinds of the clip operations. Every fallible operation returns an
// error tagged with one of these; a nil error means success.
const (
	// PreconditionFailure: missing session, track or clip, invalid selection
	// shape or an empty command. No state was changed.
	PreconditionFailure ftag.Kind = "PRECONDITION_FAILURE"
	// IOFailure: opening, writing or closing a file failed. Partial output
	// has been removed and no state was changed.
	IOFailure ftag.Kind = "IO_FAILURE"
	// RangeFailure: play head or selection outside the valid extent. Range
	// failures are silent: callers should not report them to the user.
	RangeFailure ftag.Kind = "RANGE_FAILURE"
	// Canceled: the context of a long running operation was canceled.
	Canceled ftag.Kind = "CANCELED"
)

// Precondition returns a PreconditionFailure error.
func Precondition(msg string) error {
	return fault.New(msg, ftag.With(PreconditionFailure))
}

// Range returns a RangeFailure error.
func Range(msg string) error {
	return fault.New(msg, ftag.With(RangeFailure))
}

// IO wraps err as an IOFailure.
func IO(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fault.Wrap(err, fmsg.With(msg), ftag.With(IOFailure))
}

// Cancel wraps a context error as Canceled.
func Cancel(err error) error {
	if err == nil {
		return nil
	}
	return fault.Wrap(err, ftag.With(Canceled))
}

// KindOf returns the failure kind of err. Context errors that were not
// wrapped are reported as Canceled.
func KindOf(err error) ftag.Kind {
	if err == nil {
		return ""
	}
	// errors without a tag report an empty or internal kind
	if k := ftag.Get(err); k != "" && k != "INTERNAL" {
		return k
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return Canceled
	}
	return ""
}

// IsSilent reports whether the error should not be shown to the user.
func IsSilent(err error) bool {
	return KindOf(err) == RangeFailure
}
