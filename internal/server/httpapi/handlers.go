package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"phishvault/internal/common"
	"phishvault/internal/server/models"
)

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type loginResponse struct {
	UserID       string `json:"user_id"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type statusResponse struct {
	HasSalt     bool   `json:"hasSalt"`
	HasAnalyses bool   `json:"hasAnalyses"`
	Salt        []byte `json:"salt"`
}

type saltRequest struct {
	Salt []byte `json:"salt"`
}

type attemptsRequest struct {
	Attempts int `json:"attempts"`
}

type lockRequest struct {
	LockedUntil time.Time `json:"lockedUntil"`
	Attempts    int       `json:"attempts"`
}

// encryptedField is one AES-GCM (nonce, ciphertext) pair; both slices are
// base64 in JSON.
type encryptedField struct {
	Nonce []byte `json:"nonce"`
	Data  []byte `json:"data"`
}

// analysisPayload is the wire form of an encrypted analysis record. The
// server never decrypts the field payloads.
type analysisPayload struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	InputKind string    `json:"input_kind"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UserEmail    *encryptedField `json:"user_email"`
	InputContent *encryptedField `json:"input_content"`
	Context      *encryptedField `json:"context,omitempty"`
	MLResult     *encryptedField `json:"ml_result"`
}

func (p *analysisPayload) toModel() *models.EncryptedAnalysis {
	a := &models.EncryptedAnalysis{
		ID:        p.ID,
		UserID:    p.UserID,
		InputKind: p.InputKind,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
	if p.UserEmail != nil {
		a.UserEmailData, a.UserEmailNonce = p.UserEmail.Data, p.UserEmail.Nonce
	}
	if p.InputContent != nil {
		a.InputContentData, a.InputContentNonce = p.InputContent.Data, p.InputContent.Nonce
	}
	if p.Context != nil {
		a.ContextData, a.ContextNonce = p.Context.Data, p.Context.Nonce
	}
	if p.MLResult != nil {
		a.MLResultData, a.MLResultNonce = p.MLResult.Data, p.MLResult.Nonce
	}
	return a
}

func payloadFromModel(a *models.EncryptedAnalysis) *analysisPayload {
	p := &analysisPayload{
		ID:        a.ID,
		UserID:    a.UserID,
		InputKind: a.InputKind,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,

		UserEmail:    &encryptedField{Nonce: a.UserEmailNonce, Data: a.UserEmailData},
		InputContent: &encryptedField{Nonce: a.InputContentNonce, Data: a.InputContentData},
		MLResult:     &encryptedField{Nonce: a.MLResultNonce, Data: a.MLResultData},
	}
	if len(a.ContextData) > 0 {
		p.Context = &encryptedField{Nonce: a.ContextNonce, Data: a.ContextData}
	}
	return p
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, common.ErrorUnauthorized) || errors.Is(err, common.ErrRefreshTokenExpired):
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	case errors.Is(err, common.ErrorNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return false
	}
	return true
}

func (s *HTTPServer) pingHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) registerHandler(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Username == "" || req.Password == "" {
		http.Error(w, "username and password required", http.StatusBadRequest)
		return
	}

	if _, err := s.users.Register(r.Context(), req.Username, req.Password); err != nil {
		s.logger.Error(r.Context(), "register failed", "username", req.Username, "error", err.Error())
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, nil)
}

func (s *HTTPServer) loginHandler(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeBody(w, r, &req) {
		return
	}

	userID, pair, err := s.users.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		UserID:       userID,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

func (s *HTTPServer) refreshHandler(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decodeBody(w, r, &req) {
		return
	}

	userID, pair, err := s.users.RefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		UserID:       userID,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

func (s *HTTPServer) statusHandler(w http.ResponseWriter, r *http.Request) {
	st, err := s.encryption.Status(r.Context(), userIDFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, statusResponse{
		HasSalt:     st.HasSalt,
		HasAnalyses: st.HasAnalyses,
		Salt:        st.Salt,
	})
}

func (s *HTTPServer) saveSaltHandler(w http.ResponseWriter, r *http.Request) {
	var req saltRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.Salt) == 0 {
		http.Error(w, "salt required", http.StatusBadRequest)
		return
	}

	if err := s.encryption.SaveSalt(r.Context(), userIDFromContext(r.Context()), req.Salt); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (s *HTTPServer) saveAttemptsHandler(w http.ResponseWriter, r *http.Request) {
	var req attemptsRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := s.encryption.SaveAttempts(r.Context(), userIDFromContext(r.Context()), req.Attempts); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (s *HTTPServer) lockUserHandler(w http.ResponseWriter, r *http.Request) {
	var req lockRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := s.encryption.LockUser(r.Context(), userIDFromContext(r.Context()), req.LockedUntil, req.Attempts); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (s *HTTPServer) listAnalysesHandler(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "bad limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	items, err := s.analyses.List(r.Context(), userIDFromContext(r.Context()), limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	payloads := make([]*analysisPayload, 0, len(items))
	for _, a := range items {
		payloads = append(payloads, payloadFromModel(a))
	}
	writeJSON(w, http.StatusOK, payloads)
}

func (s *HTTPServer) saveAnalysisHandler(w http.ResponseWriter, r *http.Request) {
	var p analysisPayload
	if !decodeBody(w, r, &p) {
		return
	}

	a := p.toModel()
	if len(a.UserEmailData) == 0 || len(a.InputContentData) == 0 || len(a.MLResultData) == 0 {
		http.Error(w, "incomplete record", http.StatusBadRequest)
		return
	}

	if err := s.analyses.Save(r.Context(), userIDFromContext(r.Context()), a); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, nil)
}
