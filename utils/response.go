package utils

import "github.com/gin-gonic/gin"

// ErrorResponse is the uniform error body. No stack traces or internal
// identifiers are ever exposed.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Error writes a JSON error response with the given status code.
func Error(ctx *gin.Context, status int, message string) {
	ctx.JSON(status, ErrorResponse{Error: message})
}

// AbortError writes a JSON error response and stops the handler chain.
func AbortError(ctx *gin.Context, status int, message string) {
	ctx.AbortWithStatusJSON(status, ErrorResponse{Error: message})
}
