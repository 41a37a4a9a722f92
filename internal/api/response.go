package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"truckyard/internal/errcode"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Error 输出统一的错误响应体。
func Error(c *gin.Context, status int, code, msg string) {
	c.JSON(status, gin.H{"error": errorBody{Code: code, Message: msg}})
}

// RespondError 按错误类别映射 HTTP 状态码并输出响应体。
// 未分类的错误一律按内部错误处理，不泄露细节。
func RespondError(c *gin.Context, err error) {
	if e := errcode.As(err); e != nil {
		c.JSON(e.Kind.HTTPStatus(), gin.H{"error": errorBody{
			Code:    e.Code,
			Message: e.Message,
			Details: e.Details,
		}})
		return
	}
	Error(c, http.StatusInternalServerError, "internal", "internal error")
}

func AbortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errorBody{
		Code: "unauthorized", Message: "unauthorized",
	}})
}

func Unauthorized(c *gin.Context) { Error(c, http.StatusUnauthorized, "unauthorized", "unauthorized") }
func BadRequest(c *gin.Context, msg string) { Error(c, http.StatusBadRequest, "bad_request", msg) }
func NotFound(c *gin.Context, msg string)   { Error(c, http.StatusNotFound, "not_found", msg) }
func Internal(c *gin.Context, msg string) {
	Error(c, http.StatusInternalServerError, "internal", msg)
}
