package ep

import (
	"errors"

	"github.com/lthibault/log"
)

// ProtocolError signals a non-fatal error caused by a message whose
// contents violate the protocol expected by its handler.  The message
// is dropped, and the dispatch loop continues.
//
// The default error handler logs protocol errors at the WARN level,
// using 'Message' as the logging message and 'Meta' as a set of
// structured fields.  If 'Cause' is non-nil, it is added to the fields.
type ProtocolError struct {
	Message string
	Cause   error
	Meta    log.F
}

func (pe ProtocolError) Loggable() map[string]interface{} {
	fields := make(log.F, len(pe.Meta)+1)
	for k, v := range pe.Meta {
		fields[k] = v
	}

	if pe.Cause != nil {
		fields["error"] = pe.Cause
	}

	return fields
}

func (pe ProtocolError) Error() string {
	if pe.Cause == nil {
		return pe.Message
	}

	return pe.Message + ": " + pe.Cause.Error()
}

func (pe ProtocolError) Is(err error) bool {
	return pe.Cause != nil && errors.Is(pe.Cause, err)
}

func (pe ProtocolError) Unwrap() error {
	return pe.Cause
}
