package domain

import "errors"

var (
	// ErrMalformedIdentity se retorna cuando un recipient id no decodifica
	// al triple [dialogId, projectToken, resellerToken].
	ErrMalformedIdentity = errors.New("malformed recipient identity")

	// ErrUnsupportedAnswerType se retorna cuando un callback answer trae un
	// type.name desconocido.
	ErrUnsupportedAnswerType = errors.New("unsupported answer type")
)
