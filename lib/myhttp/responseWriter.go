package myhttp

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/MarcGrol/ticketshop/lib/myerrors"
	"github.com/MarcGrol/ticketshop/lib/mylog"
)

type ResponseWriter interface {
	WriteError(c context.Context, w http.ResponseWriter, errorCode int, err error)
	Write(c context.Context, w http.ResponseWriter, httpStatus int, resp interface{})
}

type ErrorResponse struct {
	ErrorCode int
	Message   string
	Kind      string
	Fields    map[string]string `json:",omitempty"`
}

type SuccessResponse struct {
	Message string
}

func NewWriter(logger mylog.Logger) ResponseWriter {
	return &responseWriter{
		logger: logger,
	}
}

type responseWriter struct {
	logger mylog.Logger
}

func (rw responseWriter) WriteError(c context.Context, w http.ResponseWriter, errorCode int, err error) {
	httpStatus := myerrors.GetHTTPStatus(err)
	severity := mylog.SeverityWarn
	if httpStatus >= http.StatusInternalServerError {
		severity = mylog.SeverityError
	}
	rw.logger.Log(c, "", severity, "Error response: http-status:%d, error-code:%d, error-msg:%s", httpStatus, errorCode, err)
	rw.write(c, w, httpStatus, ErrorResponse{
		ErrorCode: errorCode,
		Message:   err.Error(),
		Kind:      myerrors.GetKind(err),
		Fields:    myerrors.GetFieldErrors(err),
	})
}

func (rw responseWriter) Write(c context.Context, w http.ResponseWriter, httpStatus int, resp interface{}) {
	rw.logger.Log(c, "", mylog.SeverityInfo, "Success response: http-status:%d", httpStatus)
	if resp == nil {
		w.WriteHeader(httpStatus)
		return
	}
	rw.write(c, w, httpStatus, resp)
}

func (rw responseWriter) write(c context.Context, w http.ResponseWriter, httpStatus int, resp interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "\t")
	err := encoder.Encode(resp)
	if err != nil {
		rw.logger.Log(c, "", mylog.SeverityError, "Error writing response: %s", err)
		return
	}
}
