package error

import "net/http"

type UnsupportedMediaError string

func (err UnsupportedMediaError) Error() string {
	return string(err)
}

func (err UnsupportedMediaError) ErrCode() string {
	return "UNSUPPORTED_MEDIA_TYPE"
}

func (err UnsupportedMediaError) StatusCode() int {
	return http.StatusUnsupportedMediaType
}
