package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/BTreeMap/IntakePipe/internal/models"
	"github.com/BTreeMap/IntakePipe/internal/session"
)

// sessionView is the wire shape of a session: enough for a client to render
// the flow without exposing the full navigation stack.
type sessionView struct {
	PatientID   string            `json:"patient_id"`
	Phase       models.Phase      `json:"phase"`
	Progress    int               `json:"progress"`
	IsFirstTime bool              `json:"is_first_time"`
	EncounterID string            `json:"encounter_id"`
	StackDepth  int               `json:"stack_depth"`
	CanGoBack   bool              `json:"can_go_back"`
	Encounter   *models.Encounter `json:"encounter,omitempty"`
}

func (s *Server) viewOf(sess *models.IntakeSession) sessionView {
	return sessionView{
		PatientID:   sess.PatientID,
		Phase:       sess.Phase,
		Progress:    s.orch.Progress(sess),
		IsFirstTime: sess.IsFirstTime,
		EncounterID: sess.Encounter.ID,
		StackDepth:  len(sess.Stack),
		CanGoBack:   len(sess.Stack) > 0,
		Encounter:   sess.Encounter,
	}
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, models.Success(map[string]string{"status": "healthy"}))
}

type createSessionRequest struct {
	PatientID string `json:"patient_id"`
	TabID     string `json:"tab_id"`
}

func (s *Server) createSessionHandler(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if req.PatientID == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Missing required field: patient_id"))
		return
	}

	// The lock must be held before the session opens so a second tab cannot
	// interleave.
	if s.locks != nil && req.TabID != "" {
		ok, holder, err := session.AcquireLease(r.Context(), s.locks, req.PatientID, req.TabID, s.now())
		if err != nil {
			s.writeFlowError(w, err, nil)
			return
		}
		if !ok {
			writeJSONResponse(w, http.StatusLocked, models.Locked(
				"This intake is open in another tab",
				map[string]string{"holder_tab_id": holder.TabID}))
			return
		}
	}

	sess, resumed, err := s.orch.Start(req.PatientID)
	if err != nil {
		s.writeFlowError(w, err, nil)
		return
	}
	slog.Info("Server.createSessionHandler: session opened",
		"patientID", req.PatientID, "resumed", resumed, "phase", sess.Phase)

	status := http.StatusCreated
	if resumed {
		status = http.StatusOK
	}
	writeJSONResponse(w, status, models.Success(map[string]interface{}{
		"session": s.viewOf(sess),
		"resumed": resumed,
	}))
}

func (s *Server) getSessionHandler(w http.ResponseWriter, r *http.Request) {
	patientID := chi.URLParam(r, "patientID")
	sess, err := s.orch.Sessions().Load(patientID)
	if err != nil {
		s.writeFlowError(w, err, nil)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(s.viewOf(sess)))
}

func (s *Server) deleteSessionHandler(w http.ResponseWriter, r *http.Request) {
	patientID := chi.URLParam(r, "patientID")
	if err := s.orch.Sessions().Clear(patientID); err != nil {
		s.writeFlowError(w, err, nil)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Session cleared", nil))
}

func (s *Server) questionsHandler(w http.ResponseWriter, r *http.Request) {
	patientID := chi.URLParam(r, "patientID")
	sess, err := s.orch.Sessions().Load(patientID)
	if err != nil {
		s.writeFlowError(w, err, nil)
		return
	}
	questions, err := s.orch.Questions(sess)
	if err != nil {
		s.writeFlowError(w, err, sess)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(questions))
}

// withSession loads the patient's session and hands it to op; the updated
// snapshot op returns is rendered back to the client.
func (s *Server) withSession(w http.ResponseWriter, r *http.Request, op func(*models.IntakeSession) (*models.IntakeSession, error)) {
	patientID := chi.URLParam(r, "patientID")
	sess, err := s.orch.Sessions().Load(patientID)
	if err != nil {
		s.writeFlowError(w, err, nil)
		return
	}
	next, err := op(sess)
	if err != nil {
		s.writeFlowError(w, err, sess)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(s.viewOf(next)))
}

type screeningRequest struct {
	Answer string `json:"answer"`
}

func (s *Server) screeningHandler(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	var req screeningRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}

	patientID := chi.URLParam(r, "patientID")
	sess, err := s.orch.Sessions().Load(patientID)
	if err != nil {
		s.writeFlowError(w, err, nil)
		return
	}
	next, err := s.orch.AnswerScreening(sess, req.Answer)
	if err != nil {
		s.writeFlowError(w, err, sess)
		return
	}

	result := next.Encounter.Screening
	if result.AnyPositive {
		// Intake halted; the session is already gone.
		writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage(
			"Emergency detected; intake halted",
			map[string]interface{}{"screening": result}))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(map[string]interface{}{
		"screening": result,
		"session":   s.viewOf(next),
	}))
}

type complaintRequest struct {
	Complaint string `json:"complaint"`
	Text      string `json:"text"`
}

func (s *Server) complaintHandler(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	var req complaintRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	s.withSession(w, r, func(sess *models.IntakeSession) (*models.IntakeSession, error) {
		return s.orch.RecordComplaint(sess, models.ComplaintType(req.Complaint), req.Text)
	})
}

func (s *Server) painPointHandler(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	var pp models.PainPoint
	if err := json.NewDecoder(r.Body).Decode(&pp); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	pp.Primary = false // assigned by the orchestrator, never by the client
	s.withSession(w, r, func(sess *models.IntakeSession) (*models.IntakeSession, error) {
		return s.orch.RecordPainPoint(sess, pp)
	})
}

type answerRequest struct {
	QuestionID string `json:"question_id"`
	Value      string `json:"value"`
}

func (s *Server) answerHandler(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	s.withSession(w, r, func(sess *models.IntakeSession) (*models.IntakeSession, error) {
		return s.orch.Answer(sess, req.QuestionID, req.Value)
	})
}

type advanceRequest struct {
	Target string `json:"target"`
}

func (s *Server) advanceHandler(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	var req advanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	target := models.Phase(req.Target)
	if !models.IsValidPhase(target) {
		writeJSONResponse(w, http.StatusBadRequest, models.Error(fmt.Sprintf("Unknown phase %q", req.Target)))
		return
	}
	s.withSession(w, r, func(sess *models.IntakeSession) (*models.IntakeSession, error) {
		return s.orch.Advance(sess, target)
	})
}

func (s *Server) backHandler(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(sess *models.IntakeSession) (*models.IntakeSession, error) {
		return s.orch.Back(sess)
	})
}

type lockRequest struct {
	TabID string `json:"tab_id"`
}

func (s *Server) decodeLockRequest(w http.ResponseWriter, r *http.Request) (patientID, tabID string, ok bool) {
	defer r.Body.Close()
	if s.locks == nil {
		writeJSONResponse(w, http.StatusServiceUnavailable, models.Error("Lock service not configured"))
		return "", "", false
	}
	var req lockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return "", "", false
	}
	if req.TabID == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Missing required field: tab_id"))
		return "", "", false
	}
	return chi.URLParam(r, "patientID"), req.TabID, true
}

func (s *Server) lockAcquireHandler(w http.ResponseWriter, r *http.Request) {
	patientID, tabID, ok := s.decodeLockRequest(w, r)
	if !ok {
		return
	}
	acquired, holder, err := session.AcquireLease(r.Context(), s.locks, patientID, tabID, s.now())
	if err != nil {
		s.writeFlowError(w, err, nil)
		return
	}
	if !acquired {
		writeJSONResponse(w, http.StatusLocked, models.Locked(
			"This intake is open in another tab",
			map[string]string{"holder_tab_id": holder.TabID}))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(map[string]string{"tab_id": tabID}))
}

func (s *Server) lockHeartbeatHandler(w http.ResponseWriter, r *http.Request) {
	patientID, tabID, ok := s.decodeLockRequest(w, r)
	if !ok {
		return
	}
	lock := &models.Lock{TabID: tabID, PatientID: patientID, Timestamp: s.now()}
	err := s.locks.Refresh(r.Context(), lock)
	if errors.Is(err, session.ErrLockLost) {
		writeJSONResponse(w, http.StatusConflict, models.Locked(
			"The intake was taken over by another tab", nil))
		return
	}
	if err != nil {
		s.writeFlowError(w, err, nil)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(nil))
}

func (s *Server) lockReleaseHandler(w http.ResponseWriter, r *http.Request) {
	patientID, tabID, ok := s.decodeLockRequest(w, r)
	if !ok {
		return
	}
	released, err := session.ReleaseLease(r.Context(), s.locks, patientID, tabID)
	if err != nil {
		s.writeFlowError(w, err, nil)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(map[string]bool{"released": released}))
}

func (s *Server) analyzeHandler(w http.ResponseWriter, r *http.Request) {
	encounterID := chi.URLParam(r, "encounterID")
	enc, err := s.store.GetEncounter(encounterID)
	if err != nil {
		s.writeFlowError(w, err, nil)
		return
	}

	var account *models.PatientAccount
	if acc, err := s.store.GetAccount(enc.PatientID); err == nil {
		account = acc
	}

	enc.Triage = s.engine.Analyze(enc, account)
	if err := s.store.SaveEncounter(enc); err != nil {
		s.writeFlowError(w, err, nil)
		return
	}
	slog.Info("Server.analyzeHandler: encounter analyzed",
		"encounter", encounterID, "urgency", enc.Triage.Urgency, "score", enc.Triage.Score)
	writeJSONResponse(w, http.StatusOK, models.Success(enc.Triage))
}

func (s *Server) reportHandler(w http.ResponseWriter, r *http.Request) {
	encounterID := chi.URLParam(r, "encounterID")
	enc, err := s.store.GetEncounter(encounterID)
	if err != nil {
		s.writeFlowError(w, err, nil)
		return
	}
	var account *models.PatientAccount
	if acc, err := s.store.GetAccount(enc.PatientID); err == nil {
		account = acc
	}
	if enc.Triage == nil {
		enc.Triage = s.engine.Analyze(enc, account)
	}

	// The generated note is best-effort: the report renders without it.
	note := enc.ClinicalNote
	if note == "" && s.notes != nil {
		generated, err := s.notes.ClinicalNote(r.Context(), enc)
		if err != nil {
			slog.Warn("Server.reportHandler: note generation degraded", "error", err, "encounter", encounterID)
		} else {
			note = generated
			enc.ClinicalNote = generated
			if err := s.store.SaveEncounter(enc); err != nil {
				slog.Warn("Server.reportHandler: failed to persist note", "error", err)
			}
		}
	}

	pdf, err := s.reports.Render(enc, account, note)
	if err != nil {
		s.writeFlowError(w, err, nil)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "intake_"+encounterID+".pdf"))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(pdf); err != nil {
		slog.Error("Server.reportHandler: failed to write PDF", "error", err)
	}
}

func (s *Server) getAccountHandler(w http.ResponseWriter, r *http.Request) {
	patientID := chi.URLParam(r, "patientID")
	acc, err := s.store.GetAccount(patientID)
	if errors.Is(err, models.ErrAccountNotFound) {
		writeJSONResponse(w, http.StatusNotFound, models.Error("No account for this patient"))
		return
	}
	if err != nil {
		s.writeFlowError(w, err, nil)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(acc))
}

// updateAccountHandler is the only write path for patient accounts. The
// client sends the full reviewed record after the patient confirms it;
// baseline answers are never merged in silently.
func (s *Server) updateAccountHandler(w http.ResponseWriter, r *http.Request) {
	patientID := chi.URLParam(r, "patientID")
	var acc models.PatientAccount
	if err := json.NewDecoder(r.Body).Decode(&acc); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if acc.PatientID != "" && acc.PatientID != patientID {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Account patient_id does not match URL"))
		return
	}
	acc.PatientID = patientID

	now := s.now().UTC()
	if existing, err := s.store.GetAccount(patientID); err == nil {
		acc.CreatedAt = existing.CreatedAt
	} else {
		acc.CreatedAt = now
	}
	acc.UpdatedAt = now

	if err := s.store.SaveAccount(&acc); err != nil {
		s.writeFlowError(w, err, nil)
		return
	}
	slog.Info("Server.updateAccountHandler: account updated", "patientID", patientID)
	writeJSONResponse(w, http.StatusOK, models.Success(&acc))
}
