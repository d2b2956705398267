package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ceyewan/scoregate/xerrors"
)

// ErrDepsMissing 缺少必需的编排器
var ErrDepsMissing = xerrors.New("server: use case dependencies missing")

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"requestId,omitempty"`
}

// statusOf 按错误类别映射状态码与错误码
func statusOf(err error) (int, string) {
	switch {
	case xerrors.Is(err, xerrors.ErrNotFound):
		return http.StatusNotFound, xerrors.CodeNotFound
	case xerrors.Is(err, xerrors.ErrInvalidInput):
		return http.StatusBadRequest, xerrors.CodeInvalidInput
	case xerrors.Is(err, xerrors.ErrUnavailable):
		return http.StatusServiceUnavailable, xerrors.CodeUnavailable
	case xerrors.Is(err, xerrors.ErrTimeout):
		return http.StatusServiceUnavailable, xerrors.CodeTimeout
	case xerrors.GetCode(err) == xerrors.CodeUpstream:
		return http.StatusBadGateway, xerrors.CodeUpstream
	default:
		return http.StatusInternalServerError, xerrors.CodeInternal
	}
}

func writeError(c *gin.Context, err error) {
	status, code := statusOf(err)
	_ = c.Error(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	if status == http.StatusServiceUnavailable {
		c.Header("Retry-After", "5")
	}
	c.AbortWithStatusJSON(status, errorBody{Error: errorDetail{
		Code:      code,
		Message:   msg,
		RequestID: c.Writer.Header().Get(HeaderRequestID),
	}})
}
