// Package cdrhdl serves the /api/Cdr endpoints.
package cdrhdl

import (
	"context"
	"errors"
	"io"
	"strconv"
	"strings"
	"time"

	basehdl "cdr_api/internal/api/base/handler"
	"cdr_api/internal/api/cdr/csvparse"
	cdrdto "cdr_api/internal/api/cdr/dto"
	"cdr_api/internal/api/cdr/models"
	"cdr_api/internal/common"
	"cdr_api/internal/logger"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

const (
	MsgUploadOK     = "The file was uploaded correctly !"
	MsgUploadFailed = "The request failed"
	MsgFileMissing  = "File can't be null or empty"
)

// Service is the record service as seen by the HTTP layer.
type Service interface {
	UploadCsv(ctx context.Context, r io.Reader, size int64) (bool, error)
	GetByReference(ctx context.Context, reference string) (*models.CallDetailRecord, error)
	GetStatistics(ctx context.Context, req *cdrdto.CallStatisticsRequest) (models.CallStatistics, error)
	GetByCaller(ctx context.Context, req *cdrdto.CdrsRequest) ([]models.CallDetailRecord, error)
	GetMostExpensive(ctx context.Context, req *cdrdto.MostExpensiveCallsRequest) ([]models.CallDetailRecord, error)
}

// CdrHandler binds query strings and uploads to Service calls.
type CdrHandler struct {
	service  Service
	validate *validator.Validate
}

func NewCdrHandler(service Service, validate *validator.Validate) *CdrHandler {
	return &CdrHandler{service: service, validate: validate}
}

// HandleUpload ingests the multipart field "file".
// Endpoint: POST /api/Cdr/Upload
func (h *CdrHandler) HandleUpload(c fiber.Ctx) error {
	return basehdl.SafeHandler(c, func() error {
		fh, err := c.FormFile("file")
		if err != nil || fh == nil {
			return basehdl.HandleError(c, common.InvalidArgument("file", MsgFileMissing))
		}

		f, err := fh.Open()
		if err != nil {
			return basehdl.HandleError(c, common.NewError(common.ErrCodeValidationFormat, "Cannot read uploaded file", common.StatusBadRequest, "file"))
		}
		defer f.Close()

		ok, err := h.service.UploadCsv(logger.RequestContext(c), f, fh.Size)
		logger.LogAction("cdr_upload", c, map[string]interface{}{
			"filename": fh.Filename,
			"size":     fh.Size,
			"inserted": ok,
			"failed":   err != nil,
		})
		if err != nil {
			return basehdl.HandleError(c, uploadError(err))
		}
		if !ok {
			return basehdl.HandleError(c, common.NewError(common.ErrCodeBusinessOperation, MsgUploadFailed, common.StatusBadRequest, nil))
		}
		return basehdl.HandleSuccess(c, MsgUploadOK, nil, nil)
	})
}

// uploadError maps CSV decoding failures to a 400 carrying the position.
func uploadError(err error) error {
	var pe *csvparse.ParseError
	if errors.As(err, &pe) {
		return common.NewError(common.ErrCodeValidationFormat, pe.Error(), common.StatusBadRequest, fiber.Map{
			"line":   pe.Line,
			"column": pe.Column,
		})
	}
	return err
}

// HandleGetByReference returns the record or a null data field.
// Endpoint: GET /api/Cdr/:reference
func (h *CdrHandler) HandleGetByReference(c fiber.Ctx) error {
	return basehdl.SafeHandler(c, func() error {
		req := cdrdto.CdrRequest{Reference: c.Params("reference")}
		rec, err := h.service.GetByReference(logger.RequestContext(c), req.Reference)
		return basehdl.HandleResponse(c, req, rec, err)
	})
}

// HandleStatistics returns count and total duration in the window.
// Endpoint: GET /api/Cdr/Estatistics
func (h *CdrHandler) HandleStatistics(c fiber.Ctx) error {
	return basehdl.SafeHandler(c, func() error {
		var q cdrdto.CallStatisticsQuery
		if err := h.bindQuery(c, &q); err != nil {
			return basehdl.HandleError(c, err)
		}
		req := &cdrdto.CallStatisticsRequest{}
		var err error
		if req.StartDate, req.EndDate, err = parseRange(q.StartDate, q.EndDate); err != nil {
			return basehdl.HandleError(c, err)
		}
		if req.Type, err = parseType(q.Type); err != nil {
			return basehdl.HandleError(c, err)
		}

		stats, err := h.service.GetStatistics(logger.RequestContext(c), req)
		return basehdl.HandleResponse(c, req, stats, err)
	})
}

// HandleByCaller returns a caller's calls in the window.
// Endpoint: GET /api/Cdr/ByCallerId
func (h *CdrHandler) HandleByCaller(c fiber.Ctx) error {
	return basehdl.SafeHandler(c, func() error {
		var q cdrdto.CdrsQuery
		if err := h.bindQuery(c, &q); err != nil {
			return basehdl.HandleError(c, err)
		}
		req := &cdrdto.CdrsRequest{CallerID: q.CallerID}
		var err error
		if req.StartDate, req.EndDate, err = parseRange(q.StartDate, q.EndDate); err != nil {
			return basehdl.HandleError(c, err)
		}
		if req.Type, err = parseType(q.Type); err != nil {
			return basehdl.HandleError(c, err)
		}

		records, err := h.service.GetByCaller(logger.RequestContext(c), req)
		return basehdl.HandleResponse(c, req, records, err)
	})
}

// HandleMostExpensive returns a caller's most expensive calls in the window.
// Endpoint: GET /api/Cdr/MostExpensiveCalls
func (h *CdrHandler) HandleMostExpensive(c fiber.Ctx) error {
	return basehdl.SafeHandler(c, func() error {
		var q cdrdto.MostExpensiveCallsQuery
		if err := h.bindQuery(c, &q); err != nil {
			return basehdl.HandleError(c, err)
		}
		req := &cdrdto.MostExpensiveCallsRequest{CallerID: q.CallerID}
		var err error
		if q.Take != "" {
			if req.Take, err = strconv.Atoi(q.Take); err != nil {
				return basehdl.HandleError(c, common.NewError(common.ErrCodeValidationFormat, "take must be an integer", common.StatusBadRequest, "take"))
			}
		}
		if req.StartDate, req.EndDate, err = parseRange(q.StartDate, q.EndDate); err != nil {
			return basehdl.HandleError(c, err)
		}
		if req.Type, err = parseType(q.Type); err != nil {
			return basehdl.HandleError(c, err)
		}

		records, err := h.service.GetMostExpensive(logger.RequestContext(c), req)
		return basehdl.HandleResponse(c, req, records, err)
	})
}

// bindQuery binds the query string into q and runs its validate tags.
func (h *CdrHandler) bindQuery(c fiber.Ctx, q interface{}) error {
	if err := c.Bind().Query(q); err != nil {
		return common.NewError(common.ErrCodeValidationFormat, common.MsgInvalidFormat, common.StatusBadRequest, err.Error())
	}
	if err := h.validate.Struct(q); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return common.InvalidArgument(lowerFirst(fe.Field()), fe.Field()+" failed the "+fe.Tag()+" check")
		}
		return common.NewError(common.ErrCodeValidationInput, err.Error(), common.StatusBadRequest, nil)
	}
	return nil
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

func parseDate(param, s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range cdrdto.DateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, common.NewError(common.ErrCodeValidationFormat, "Invalid date format for "+param, common.StatusBadRequest, param)
}

func parseRange(start, end string) (time.Time, time.Time, error) {
	s, err := parseDate("startDate", start)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	e, err := parseDate("endDate", end)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return s, e, nil
}

// parseType returns nil when no type was given.
func parseType(s string) (*models.CallType, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	t, err := models.ParseCallType(s)
	if err != nil {
		return nil, common.InvalidArgument("type", err.Error())
	}
	return &t, nil
}
