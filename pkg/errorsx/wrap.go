package errorsx

import "errors"

// ReasonedError carries a stable reason code alongside the underlying
// error, so handlers and logs can branch on the code instead of parsing
// message text.
type ReasonedError struct {
	Err    error
	Reason ReasonCode
}

func (e ReasonedError) Error() string {
	if e.Err == nil {
		return string(e.Reason)
	}
	return e.Err.Error()
}

func (e ReasonedError) Unwrap() error { return e.Err }

// Wrap tags err with reason. The innermost tag wins: an error that already
// carries a code anywhere in its chain passes through untouched. Nil stays
// nil, so Wrap can sit directly on a return.
func Wrap(err error, reason ReasonCode) error {
	if err == nil {
		return nil
	}
	var re ReasonedError
	if errors.As(err, &re) {
		return err
	}
	return ReasonedError{Err: err, Reason: reason}
}

// Reason reports the code carried anywhere in err's chain, or
// ReasonUnknown when there is none.
func Reason(err error) ReasonCode {
	if err == nil {
		return ReasonUnknown
	}
	var re ReasonedError
	if errors.As(err, &re) {
		return re.Reason
	}
	return ReasonUnknown
}

// HasReason reports whether err carries exactly the given code.
func HasReason(err error, reason ReasonCode) bool {
	return Reason(err) == reason
}
