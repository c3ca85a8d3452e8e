package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/southctrl/yt-cipher/internal/model"
	"github.com/southctrl/yt-cipher/internal/player"
	"github.com/southctrl/yt-cipher/internal/solver"
)

// decryptRequest is the JSON body for POST /decrypt_signature.
type decryptRequest struct {
	EncryptedSignature string `json:"encrypted_signature"`
	NParam             string `json:"n_param"`
	PlayerURL          string `json:"player_url"`
	VideoID            string `json:"video_id"`
}

// decryptResponse carries the decoded values. A field is empty when it was
// not requested or the solver could not decode it.
type decryptResponse struct {
	DecryptedSignature string `json:"decrypted_signature"`
	DecryptedNSig      string `json:"decrypted_n_sig"`
}

// stsRequest is the JSON body for POST /get_sts.
type stsRequest struct {
	PlayerURL string `json:"player_url"`
	VideoID   string `json:"video_id"`
}

type stsResponse struct {
	STS string `json:"sts"`
}

func (s *Server) handleDecryptSignature(w http.ResponseWriter, r *http.Request) {
	var req decryptRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	playerURL, ok := s.validatePlayerURL(w, req.PlayerURL)
	if !ok {
		return
	}

	script, err := s.players.Resolve(r.Context(), playerURL)
	if err != nil {
		s.writeFailure(w, "resolve player", err)
		return
	}

	in := model.NewInput(playerURL, string(script), req.EncryptedSignature, req.NParam)
	out, err := s.pool.Exec(r.Context(), in)
	if err == nil {
		err = solver.OutputError(out)
	}
	if err != nil {
		observeChallenge(model.KindSignature, req.EncryptedSignature, false, err)
		observeChallenge(model.KindNParam, req.NParam, false, err)
		s.writeFailure(w, "solve challenges", err)
		return
	}

	sig, sigOK := out.Lookup(req.EncryptedSignature)
	nsig, nsigOK := out.Lookup(req.NParam)
	observeChallenge(model.KindSignature, req.EncryptedSignature, sigOK, nil)
	observeChallenge(model.KindNParam, req.NParam, nsigOK, nil)

	s.writeJSON(w, http.StatusOK, decryptResponse{
		DecryptedSignature: sig,
		DecryptedNSig:      nsig,
	})
}

func (s *Server) handleGetSTS(w http.ResponseWriter, r *http.Request) {
	var req stsRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	playerURL, ok := s.validatePlayerURL(w, req.PlayerURL)
	if !ok {
		return
	}

	script, err := s.players.Resolve(r.Context(), playerURL)
	if err != nil {
		s.writeFailure(w, "resolve player", err)
		return
	}

	sts, err := player.SignatureTimestamp(script)
	if errors.Is(err, player.ErrTimestampNotFound) {
		s.writeError(w, http.StatusNotFound, "Timestamp not found in player script")
		return
	}
	if err != nil {
		s.writeFailure(w, "extract timestamp", err)
		return
	}

	s.writeJSON(w, http.StatusOK, stsResponse{STS: sts})
}

// decodeBody decodes a JSON request body into v, writing a 400 on failure.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return false
	}
	return true
}

// validatePlayerURL normalizes raw, writing a 400 when it is missing or not
// an allowed player location. It runs before the cache is consulted.
func (s *Server) validatePlayerURL(w http.ResponseWriter, raw string) (string, bool) {
	if raw == "" {
		s.writeError(w, http.StatusBadRequest, "player_url is required")
		return "", false
	}
	u, err := player.Normalize(raw)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return "", false
	}
	return u, true
}

// writeFailure reports an upstream or solver failure as a 500 carrying the
// underlying message.
func (s *Server) writeFailure(w http.ResponseWriter, op string, err error) {
	var serr *solver.Error
	if errors.As(err, &serr) && serr.Stack != "" {
		s.logger.Error(op, "error", err, "stack", serr.Stack)
	} else {
		s.logger.Error(op, "error", err)
	}

	s.writeJSON(w, http.StatusInternalServerError, map[string]string{
		"error":   "Internal Server Error",
		"message": err.Error(),
	})
}
