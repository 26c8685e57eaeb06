package server

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/alexanderramin/kalend/internal/assistant"
	"github.com/alexanderramin/kalend/internal/auth"
	"github.com/alexanderramin/kalend/internal/domain"
	"github.com/alexanderramin/kalend/internal/ics"
)

type chatRequest struct {
	Message      string           `json:"message"`
	History      []domain.Turn    `json:"history,omitempty"`
	UserTimeInfo *domain.TimeInfo `json:"userTimeInfo,omitempty"`
	SessionID    string           `json:"sessionId,omitempty"`
	Personality  string           `json:"personality,omitempty"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var body chatRequest
	if err := decodeBody(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	resp, err := s.chat.Turn(r.Context(), assistant.ChatRequest{
		UserID:      s.userID(r),
		Message:     body.Message,
		History:     body.History,
		TimeInfo:    body.UserTimeInfo,
		SessionID:   body.SessionID,
		Personality: body.Personality,
	})
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, assistant.ErrEmptyMessage):
			status = http.StatusBadRequest
		case errors.Is(err, assistant.ErrTurnInProgress):
			status = http.StatusConflict
		case errors.Is(err, assistant.ErrSessionNotOwned):
			status = http.StatusForbidden
		}
		writeJSON(w, status, assistant.ChatResponse{
			Response:   err.Error(),
			Operations: []assistant.OperationResult{},
			Error:      true,
			History:    body.History,
			SessionID:  body.SessionID,
		})
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCall(w http.ResponseWriter, r *http.Request) {
	var fc assistant.FunctionCall
	if err := decodeBody(w, r, &fc); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	res := s.caller.Call(r.Context(), s.userID(r), fc)
	status := http.StatusOK
	if !res.Success {
		status = callStatus(res.Err())
	}
	writeJSON(w, status, res)
}

func callStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, assistant.ErrUnknownFunction):
		return http.StatusNotFound
	case auth.IsAuthError(err):
		return http.StatusUnauthorized
	default:
		return http.StatusBadGateway
	}
}

// handleEvents lists events between start and end (default: this week).
// format=ics returns an iCalendar file instead of JSON.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	args, err := json.Marshal(map[string]string{
		"startDate": q.Get("start"),
		"endDate":   q.Get("end"),
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	res := s.caller.Call(r.Context(), s.userID(r), assistant.FunctionCall{Name: assistant.FnGetEvents, Args: args})
	if !res.Success {
		writeJSON(w, callStatus(res.Err()), res)
		return
	}
	if q.Get("format") != "ics" {
		writeJSON(w, http.StatusOK, res)
		return
	}

	events, _ := res.Data.([]domain.Event)
	var buf bytes.Buffer
	if err := ics.Encode(&buf, events, s.now()); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "kalend.ics"))
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
