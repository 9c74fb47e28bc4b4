package sfserr

import "fmt"

// OpError pairs a Status with the operation and optional underlying cause
// that produced it, the way callers want to log ("trash.move_to_trash
// /d/x.txt: no space left: ...") without losing the stable code for control
// flow.
type OpError struct {
	Op     string
	Status Status
	Err    error
}

func (e *OpError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Status)
}

func (e *OpError) Unwrap() error { return e.Err }

// New wraps status as an *OpError tagged with op, with no underlying cause.
func New(op string, status Status) error {
	if status == OK {
		return nil
	}
	return &OpError{Op: op, Status: status}
}

// Wrap tags err with op and status, preserving err for errors.Unwrap/Is.
func Wrap(op string, status Status, err error) error {
	if status == OK && err == nil {
		return nil
	}
	return &OpError{Op: op, Status: status, Err: err}
}

// StatusOf extracts the Status carried by err, if any, defaulting to UNKNOWN
// for an error that did not originate from this package and OK for a nil
// error — mirroring the "never silently discard" rule in the error design.
func StatusOf(err error) Status {
	if err == nil {
		return OK
	}
	var opErr *OpError
	if ok := asOpError(err, &opErr); ok {
		return opErr.Status
	}
	return UNKNOWN
}

func asOpError(err error, target **OpError) bool {
	for err != nil {
		if oe, ok := err.(*OpError); ok {
			*target = oe
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
