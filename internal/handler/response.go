package handler

import (
	"crypto/md5"
	"encoding/json"
	"fmt"
	"net/http"

	"polls-be/internal/middleware"
	"polls-be/pkg/errors"
	"polls-be/pkg/logger"
)

// SuccessResponse is the envelope of every successful JSON response
type SuccessResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondData(w http.ResponseWriter, status int, data interface{}) {
	respondJSON(w, status, SuccessResponse{Success: true, Data: data})
}

// respondError writes appErr in the error envelope. Internal causes are
// logged, never sent.
func respondError(w http.ResponseWriter, r *http.Request, log *logger.Logger, appErr *errors.AppError) {
	requestID := middleware.GetRequestID(r.Context())
	if appErr.StatusCode >= http.StatusInternalServerError {
		log.WithError(appErr).WithField("request_id", requestID).Error("Request error")
	}
	respondJSON(w, appErr.StatusCode, errors.NewErrorResponse(appErr, requestID))
}

// respondErr converts any error to an AppError, hiding unknown ones behind a
// generic internal error
func respondErr(w http.ResponseWriter, r *http.Request, log *logger.Logger, err error) {
	appErr, ok := errors.As(err)
	if !ok {
		appErr = errors.NewInternalError("Internal server error", err)
	}
	respondError(w, r, log, appErr)
}

func generateETag(data interface{}) string {
	jsonData, _ := json.Marshal(data)
	hash := md5.Sum(jsonData)
	return fmt.Sprintf(`"%x"`, hash)
}
