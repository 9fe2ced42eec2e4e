package error

// GenericError is implemented by every typed error in this package so the
// HTTP layer can map a panic or returned error to a response without
// inspecting concrete types.
type GenericError interface {
	error
	ErrCode() string
	StatusCode() int
}
