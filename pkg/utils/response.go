package utils

// ResponseData is the JSON envelope returned by REST endpoints that do not
// have a protocol-mandated body of their own.
type ResponseData struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Results any    `json:"results,omitempty"`
}
