// Package api provides HTTP response utilities for the intake service.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/BTreeMap/IntakePipe/internal/intake"
	"github.com/BTreeMap/IntakePipe/internal/models"
	"github.com/BTreeMap/IntakePipe/internal/questionbank"
)

// Pre-marshaled fallback so a marshal failure can never leave the client
// without a body.
var fallbackErrorResponse []byte

func init() {
	var err error
	fallbackErrorResponse, err = json.Marshal(models.Error("Internal server error"))
	if err != nil {
		panic(fmt.Sprintf("Failed to marshal fallback error response at startup: %v", err))
	}
}

// writeJSONResponse writes a JSON response with the given status code.
func writeJSONResponse(w http.ResponseWriter, statusCode int, response interface{}) {
	jsonData, err := json.Marshal(response)
	if err != nil {
		slog.Error("Server.writeJSONResponse: failed to marshal JSON response", "error", err)
		jsonData = fallbackErrorResponse
		statusCode = http.StatusInternalServerError
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if _, writeErr := w.Write(jsonData); writeErr != nil {
		slog.Error("Server.writeJSONResponse: failed to write JSON response", "error", writeErr)
	}
}

// rejectionBody carries both language variants of a refused operation.
type rejectionBody struct {
	Message     string `json:"message"`
	MessageUrdu string `json:"message_urdu"`
}

// writeFlowError maps intake errors onto HTTP statuses. Transition and
// validation refusals are client errors with bilingual messages; everything
// else goes through the recovery service, which snapshots the session when
// the failure class allows resumption.
func (s *Server) writeFlowError(w http.ResponseWriter, err error, sess *models.IntakeSession) {
	var terr *intake.TransitionError
	if errors.As(err, &terr) {
		resp := models.Rejected(terr.Message)
		resp.Result = rejectionBody{Message: terr.Message, MessageUrdu: terr.MessageUrdu}
		writeJSONResponse(w, http.StatusConflict, resp)
		return
	}
	var verr *questionbank.ValidationError
	if errors.As(err, &verr) {
		resp := models.Rejected(verr.Message)
		resp.Result = rejectionBody{Message: verr.Message, MessageUrdu: verr.MessageUrdu}
		writeJSONResponse(w, http.StatusBadRequest, resp)
		return
	}

	switch {
	case errors.Is(err, models.ErrSessionNotFound):
		writeJSONResponse(w, http.StatusNotFound, models.Error("No active session for this patient"))
	case errors.Is(err, models.ErrSessionExpired):
		writeJSONResponse(w, http.StatusGone, models.Error("Session expired; start a new one"))
	case errors.Is(err, models.ErrEncounterNotFound):
		writeJSONResponse(w, http.StatusNotFound, models.Error("Encounter not found"))
	case errors.Is(err, models.ErrEmptyPatientID), errors.Is(err, models.ErrEmptyTabID),
		errors.Is(err, models.ErrInvalidPainIntensity), errors.Is(err, models.ErrEmptyZoneID),
		errors.Is(err, models.ErrComplaintTextTooLong):
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
	default:
		c := s.recovery.Handle(err, sess)
		resp := models.Error(c.Message)
		resp.Result = map[string]string{
			"category":     string(c.Category),
			"action":       string(c.Action),
			"message_urdu": c.MessageUrdu,
		}
		writeJSONResponse(w, http.StatusInternalServerError, resp)
	}
}
