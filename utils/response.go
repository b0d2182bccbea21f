package utils

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
)

// JSONResponse defines the uniform structure for API responses. Message and
// Redirect carry the user-visible flash text and the page the client should
// navigate to next; rendering them is the client's concern.
type JSONResponse struct {
	Code     int         `json:"code"`
	Message  string      `json:"message"`
	Redirect string      `json:"redirect,omitempty"`
	Data     interface{} `json:"data,omitempty"`
}

// Respond writes a JSON response with the given status code.
func Respond(ctx *gin.Context, status int, code int, message string, data interface{}) {
	ctx.JSON(status, JSONResponse{
		Code:    code,
		Message: message,
		Data:    data,
	})
}

// Success returns a standard success response.
func Success(ctx *gin.Context, data interface{}) {
	Respond(ctx, http.StatusOK, 0, "success", data)
}

// Error returns a standard error response.
func Error(ctx *gin.Context, status int, code int, message string) {
	Respond(ctx, status, code, message, nil)
}

// Flash returns a success response carrying a user-visible message and the
// redirect target of the canonical next page.
func Flash(ctx *gin.Context, message, redirect string, data interface{}) {
	ctx.JSON(http.StatusOK, JSONResponse{
		Code:     0,
		Message:  message,
		Redirect: redirect,
		Data:     data,
	})
}

// Denied reports a permission denial. Denials are not hard errors: the
// response stays 200, carries the denial message and sends the client back to
// the context it came from.
func Denied(ctx *gin.Context, code int, message, redirect string) {
	ctx.JSON(http.StatusOK, JSONResponse{
		Code:     code,
		Message:  message,
		Redirect: redirect,
	})
}

// LoginRedirect answers an unauthenticated request with the login page,
// preserving the originally requested path as the return target. No message
// is attached.
func LoginRedirect(ctx *gin.Context, code int) {
	next := ctx.Request.URL.Path
	ctx.JSON(http.StatusUnauthorized, JSONResponse{
		Code:     code,
		Redirect: "/accounts/login?next=" + url.QueryEscape(next),
	})
}
