// Package basehdl holds the response envelope and system handlers shared by every domain.
package basehdl

import (
	"errors"
	"fmt"
	"runtime/debug"

	"cdr_api/internal/common"
	"cdr_api/internal/logger"

	"github.com/gofiber/fiber/v3"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// JSONResponse writes data as JSON with an explicit utf-8 charset.
func JSONResponse(c fiber.Ctx, statusCode int, data interface{}) error {
	c.Set("Content-Type", "application/json; charset=utf-8")
	return c.Status(statusCode).JSON(data)
}

// SafeHandler runs handler and turns a panic into a 500 envelope.
func SafeHandler(c fiber.Ctx, handler func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.WithRequest(c).WithField("panic", r).Error(string(debug.Stack()))
			err = HandleError(c, common.NewError(
				common.ErrCodeInternalServer,
				fmt.Sprintf("Unexpected server error: %v", r),
				common.StatusInternalServerError,
				nil,
			))
		}
	}()
	return handler()
}

// HandleSuccess writes the success envelope. requestData echoes the parsed request.
func HandleSuccess(c fiber.Ctx, message string, requestData, data interface{}) error {
	body := fiber.Map{
		"code":    common.StatusOK,
		"message": message,
		"data":    data,
		"status":  StatusSuccess,
	}
	if requestData != nil {
		body["requestData"] = requestData
	}
	return JSONResponse(c, common.StatusOK, body)
}

// HandleError writes the error envelope. Errors that are not *common.Error are
// classified through common.ConvertStoreError first.
func HandleError(c fiber.Ctx, err error) error {
	var customErr *common.Error
	if !errors.As(err, &customErr) {
		logger.WithRequest(c).WithError(err).Error("Request failed")
		errors.As(common.ConvertStoreError(err), &customErr)
	} else if customErr.StatusCode >= common.StatusInternalServerError {
		logger.WithRequest(c).WithError(err).Error("Request failed")
	}
	if customErr.StatusCode >= common.StatusInternalServerError {
		logger.GetErrorLogger().WithFields(map[string]interface{}{
			"request_id": logger.RequestID(c),
			"path":       c.Path(),
			"code":       customErr.Code.Code,
		}).WithError(err).Error("Server error")
	}

	return JSONResponse(c, customErr.StatusCode, fiber.Map{
		"code":    customErr.Code.Code,
		"message": customErr.Message,
		"details": customErr.Details,
		"status":  StatusError,
	})
}

// HandleResponse writes the error envelope when err is set and the success envelope otherwise.
func HandleResponse(c fiber.Ctx, requestData, data interface{}, err error) error {
	if err != nil {
		return HandleError(c, err)
	}
	return HandleSuccess(c, common.MsgSuccess, requestData, data)
}

// ErrorHandler renders errors that escaped the handlers, such as unknown
// routes or oversized bodies, in the same envelope.
func ErrorHandler(c fiber.Ctx, err error) error {
	code := common.StatusInternalServerError
	message := common.MsgInternalError
	errorCode := common.ErrCodeInternalServer.Code

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		message = fe.Message
		switch code {
		case fiber.StatusBadRequest:
			errorCode = common.ErrCodeValidationInput.Code
			message = common.MsgBadRequest
		case fiber.StatusRequestEntityTooLarge:
			errorCode = common.ErrCodeValidationInput.Code
		case fiber.StatusNotFound, fiber.StatusMethodNotAllowed:
			errorCode = common.ErrCodeDatabaseQuery.Code
			message = common.MsgNotFound
		}
	}

	entry := logger.WithRequest(c).WithFields(map[string]interface{}{
		"code":      code,
		"errorCode": errorCode,
		"message":   message,
	})
	if code >= common.StatusInternalServerError {
		logger.GetErrorLogger().WithError(err).WithField("path", c.Path()).Error("Unhandled server error")
		entry.Error("Request error")
	} else {
		entry.Warn("Request error")
	}

	return JSONResponse(c, code, fiber.Map{
		"code":    errorCode,
		"message": message,
		"status":  StatusError,
	})
}
