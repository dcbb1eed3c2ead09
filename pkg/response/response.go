package response

import (
	"errors"
	"net/http"

	"pawnshop/internal/apperr"

	"github.com/gin-gonic/gin"
)

const (
	CodeSuccess      = 0
	CodeParamError   = 400
	CodeUnauthorized = 401
	CodeNotFound     = 404
	CodeServerError  = 500
)

// 业务错误码，与 apperr.Code 一一对应
const (
	CodeInvalidState        = 1001
	CodeInvalidCredential   = 1002
	CodeValidationFailed    = 1003
	CodeGenerationExhausted = 1004
	CodeResourceBusy        = 1005
	CodeConflict            = 1006
)

type Response struct {
	Code    int           `json:"code"`
	Message string        `json:"message"`
	Error   *apperr.Error `json:"error,omitempty"`
	Data    interface{}   `json:"data,omitempty"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    CodeSuccess,
		Message: "success",
		Data:    data,
	})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code:    CodeSuccess,
		Message: "success",
		Data:    data,
	})
}

func Error(c *gin.Context, status, code int, message string) {
	c.AbortWithStatusJSON(status, Response{
		Code:    code,
		Message: message,
	})
}

func ParamError(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, CodeParamError, message)
}

func Unauthorized(c *gin.Context, message string) {
	Error(c, http.StatusUnauthorized, CodeUnauthorized, message)
}

// FromError writes err with the HTTP status of its apperr code. Errors outside
// the taxonomy are reported as a bare 500 without leaking their text.
func FromError(c *gin.Context, err error) {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		_ = c.Error(err)
		Error(c, http.StatusInternalServerError, CodeServerError, "internal server error")
		return
	}
	_ = c.Error(err)
	status, code := Status(appErr.Code)
	c.AbortWithStatusJSON(status, Response{
		Code:    code,
		Message: appErr.Message,
		Error:   appErr,
	})
}

// Status maps an error code to its HTTP status and envelope code.
func Status(code apperr.Code) (int, int) {
	switch code {
	case apperr.CodeNotFound:
		return http.StatusNotFound, CodeNotFound
	case apperr.CodeInvalidState:
		return http.StatusConflict, CodeInvalidState
	case apperr.CodeConflict:
		return http.StatusConflict, CodeConflict
	case apperr.CodeInvalidCredential:
		return http.StatusUnauthorized, CodeInvalidCredential
	case apperr.CodeValidation:
		return http.StatusUnprocessableEntity, CodeValidationFailed
	case apperr.CodeGenerationExhausted:
		return http.StatusServiceUnavailable, CodeGenerationExhausted
	case apperr.CodeResourceBusy:
		return http.StatusServiceUnavailable, CodeResourceBusy
	default:
		return http.StatusInternalServerError, CodeServerError
	}
}
