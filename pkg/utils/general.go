package utils

// PanicIfNeeded aborts the current request with the given error; the
// recovery middleware translates it into the matching HTTP response.
func PanicIfNeeded(err error) {
	if err != nil {
		panic(err)
	}
}
