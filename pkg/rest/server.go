// Package rest exposes the HTTP send surface of the gateway. It accepts
// external send requests, validates them and forwards them to the outbound
// dispatcher; it never talks to the mesh transport directly.
package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"

	"github.com/midoluz/meshgate/pkg/bot"
	"github.com/midoluz/meshgate/pkg/types"
)

type sendMessageRequest struct {
	Channel *int   `json:"channel"`
	Message string `json:"message"`
}

type sendDirectMessageRequest struct {
	DestinationId string `json:"destination_id"`
	Message       string `json:"message"`
}

// Server is the REST ingress. All sends it accepts go through the dispatcher
// like every other transmission.
type Server struct {
	dispatcher *bot.Dispatcher
	server     *http.Server
}

func NewServer(listen string, dispatcher *bot.Dispatcher) *Server {
	s := &Server{
		dispatcher: dispatcher,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /SendMessage", s.handleSendMessage)
	mux.HandleFunc("POST /SendDirectMessage", s.handleSendDirectMessage)

	s.server = &http.Server{
		Addr:              listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

// ListenAndServe blocks serving requests until Shutdown is called.
func (s *Server) ListenAndServe() error {
	log.With("listen", s.server.Addr).Info("REST API listening")

	err := s.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Handler exposes the route table, used by tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var request sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if request.Channel == nil {
		writeDetail(w, http.StatusBadRequest, "channel is required")
		return
	}
	if *request.Channel < 0 {
		writeDetail(w, http.StatusBadRequest, "channel must not be negative")
		return
	}

	channel := uint32(*request.Channel)
	err := s.dispatcher.Send(bot.Request{
		Text:    request.Message,
		Channel: &channel,
		Origin:  bot.OriginREST,
	})
	if err != nil {
		writeSendError(w, err)
		return
	}

	writeJson(w, http.StatusOK, map[string]any{
		"status":  "Mensaje Enviado!",
		"channel": *request.Channel,
		"message": request.Message,
	})
}

func (s *Server) handleSendDirectMessage(w http.ResponseWriter, r *http.Request) {
	var request sendDirectMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	destination, err := types.ParseNodeId(request.DestinationId)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}

	err = s.dispatcher.Send(bot.Request{
		Text:        request.Message,
		Destination: &destination,
		Origin:      bot.OriginREST,
	})
	if err != nil {
		writeSendError(w, err)
		return
	}

	writeJson(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"destination": request.DestinationId,
		"message":     request.Message,
	})
}

// writeSendError maps dispatcher failures onto HTTP conditions: invalid
// requests are the caller's fault, a disconnected transport is service
// unavailability, anything else is an internal transport failure.
func writeSendError(w http.ResponseWriter, err error) {
	var invalid *types.InvalidRequestError
	var notConnected *types.NotConnectedError

	switch {
	case errors.As(err, &invalid):
		writeDetail(w, http.StatusBadRequest, invalid.Reason)
	case errors.As(err, &notConnected):
		writeDetail(w, http.StatusServiceUnavailable, "Bot no conectado")
	default:
		writeDetail(w, http.StatusInternalServerError, err.Error())
	}
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJson(w, status, map[string]any{"detail": detail})
}

func writeJson(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.With("err", err).Error("Failed to encode response")
	}
}
