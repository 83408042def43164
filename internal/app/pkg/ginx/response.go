package ginx

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/kachmul2004/auraflowpos-sub004/common/model"
)

// OK 成功响应，直接输出业务对象
// 同步接口的响应结构由线上协议固定，不再套统一 meta/data 壳
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// Fail 整批请求失败的结构化错误响应
func Fail(c *gin.Context, statusCode int, errCode, message string) {
	c.JSON(statusCode, model.ErrorResponse{
		Error:      errCode,
		Message:    message,
		StatusCode: statusCode,
		Timestamp:  time.Now().UnixMilli(),
	})
}

// BadRequest 400 错误
func BadRequest(c *gin.Context, errCode, message string) {
	Fail(c, http.StatusBadRequest, errCode, message)
}

// InternalError 500 错误
func InternalError(c *gin.Context, errCode, message string) {
	Fail(c, http.StatusInternalServerError, errCode, message)
}

// BindError 请求绑定失败的 400 响应，验证错误时展开字段信息
func BindError(c *gin.Context, err error) {
	if validationErrs, ok := err.(validator.ValidationErrors); ok && len(validationErrs) > 0 {
		fieldErr := validationErrs[0]
		BadRequest(c, model.ErrCodeInvalidRequest, fieldErr.Field()+" is "+validationMessage(fieldErr))
		return
	}
	BadRequest(c, model.ErrCodeInvalidRequest, err.Error())
}

// validationMessage 根据验证标签返回描述
func validationMessage(fieldErr validator.FieldError) string {
	switch fieldErr.Tag() {
	case "required":
		return "required"
	case "min":
		return "below minimum " + fieldErr.Param()
	case "max":
		return "above maximum " + fieldErr.Param()
	default:
		return "invalid"
	}
}
