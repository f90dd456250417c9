// Package httperr defines the error envelope shared by every endpoint and
// the middleware that renders it.
package httperr

import "github.com/gin-gonic/gin"

// Response is the public error body. Status travels on the HTTP status
// line, so it is kept out of the JSON payload.
type Response struct {
	Status int `json:"-"`
	Error  struct {
		Message string `json:"message"`
	} `json:"error"`
	Detail any `json:"detail,omitempty"`
}

// New builds a Response carrying msg under the given HTTP status.
func New(status int, msg string) Response {
	var resp Response
	resp.Status = status
	resp.Error.Message = msg
	return resp
}

// AbortWithError stops the chain with the public envelope while parking the
// underlying cause on the context for the logging middleware. The cause is
// never serialized to the caller; only msg and detail are.
func AbortWithError(c *gin.Context, status int, err error, msg string, detail any) {
	if err == nil {
		panic("httperr: AbortWithError called without a cause")
	}

	resp := New(status, msg)
	resp.Detail = detail

	_ = c.Error(gin.Error{
		Err:  err,
		Type: gin.ErrorTypePublic,
		Meta: resp,
	})
	c.AbortWithStatusJSON(status, resp)
}
