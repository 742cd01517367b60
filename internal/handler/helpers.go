package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/ganttshare/internal/middleware"
	appErr "github.com/xxxsen/ganttshare/internal/pkg/errors"
	"github.com/xxxsen/ganttshare/internal/pkg/response"
)

func getUserID(c *gin.Context) string {
	value, _ := c.Get(middleware.ContextUserIDKey)
	userID, _ := value.(string)
	return userID
}

func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	requestID, _ := c.Get(middleware.ContextRequestIDKey)
	fields := []zap.Field{
		zap.Any("request_id", requestID),
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.String("user_id", getUserID(c)),
		zap.Error(err),
	}
	logger := logutil.GetLogger(c.Request.Context())
	if appErr.IsInvalid(err) || appErr.IsNotFound(err) {
		logger.Debug("request rejected", fields...)
	} else {
		logger.Error("request failed", fields...)
	}
	response.Fail(c, err)
}
