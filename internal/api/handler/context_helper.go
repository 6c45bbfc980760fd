package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	pkgerrors "github.com/hieplh/ata-sample-webapp/pkg/errors"
	"github.com/hieplh/ata-sample-webapp/pkg/identity"
	"github.com/hieplh/ata-sample-webapp/pkg/jwt"
	"github.com/hieplh/ata-sample-webapp/pkg/response"
)

// maxUploadSize 单张人脸图片上限
const maxUploadSize = 10 << 20

var errUploadTooLarge = errors.New("uploaded image is too large")

// MustGetClaims 从 Gin 上下文中提取认证中间件注入的身份。
// 缺失时写入 403 响应，调用方应在 ok=false 时直接 return。
func MustGetClaims(c *gin.Context) (*jwt.Claims, bool) {
	v, exists := c.Get(jwt.ContextKey)
	if !exists {
		response.Forbidden(c, "Not authenticated")
		return nil, false
	}
	claims, ok := v.(*jwt.Claims)
	if !ok || claims == nil {
		response.Forbidden(c, "Not authenticated")
		return nil, false
	}
	return claims, true
}

// readUpload 读取 multipart 文件字段，字段不存在时返回 nil
func readUpload(c *gin.Context, field string) (*identity.File, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, err
	}
	if fh.Size > maxUploadSize {
		return nil, errUploadTooLarge
	}

	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxUploadSize))
	if err != nil {
		return nil, err
	}
	return &identity.File{
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

// bindError 请求参数校验失败
func bindError(c *gin.Context, err error) {
	response.Error(c, http.StatusUnprocessableEntity, err.Error())
}

// writeAppError 带分类的业务错误按 Kind 写入状态码，其余返回 500
func writeAppError(c *gin.Context, err error) {
	if appErr, ok := pkgerrors.As(err); ok {
		response.Error(c, appErr.Status(), appErr.Message)
		return
	}
	response.InternalError(c, err.Error())
}
