package log

import (
	"github.com/cockroachdb/errors"
)

// marshalStack is installed as zerolog.ErrorStackMarshaler so that records
// carrying a cockroachdb/errors value include the captured stack.
func marshalStack(err error) interface{} {
	if s := extractStacktrace(err); s != "" {
		return s
	}
	return nil
}

func extractStacktrace(err error) string {
	safeDetails := errors.GetSafeDetails(err).SafeDetails
	if len(safeDetails) > 0 {
		return safeDetails[0]
	}
	return ""
}
