package producer

import (
	"errors"
	"net/http"
)

// The error taxonomy the engine schedules around: unauthorized invalidates
// the whole session's ability to poll, forbidden is scoped to one channel,
// everything else (including plain network failure) is transient.
type errorClass uint8

const (
	classTransient errorClass = iota
	classUnauthorized
	classForbidden
)

// httpStatusCarrier is implemented by the transport's error type. The
// engine never imports the transport; the status code is the whole
// contract.
type httpStatusCarrier interface {
	HTTPStatus() int
}

func classify(err error) errorClass {
	var carrier httpStatusCarrier
	if errors.As(err, &carrier) {
		switch carrier.HTTPStatus() {
		case http.StatusUnauthorized:
			return classUnauthorized
		case http.StatusForbidden:
			return classForbidden
		}
	}
	return classTransient
}
