package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	stderrors "errors"

	"chat-core/domain"
	"chat-core/errors"
)

type contextKey string

const identityKey contextKey = "identity"

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if after, found := strings.CutPrefix(header, "Bearer "); found {
		return after
	}
	return ""
}

// requireToken gates a REST route behind a valid JWT and stores the caller
// identity on the request context.
func (gw *Gateway) requireToken(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}
		claims, err := gw.tokens.Validate(token)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), identityKey, domain.Identity(claims.Username))
		next(w, r.WithContext(ctx))
	})
}

func callerIdentity(r *http.Request) domain.Identity {
	identity, _ := r.Context().Value(identityKey).(domain.Identity)
	return identity
}

func writeJSON(w http.ResponseWriter, log *slog.Logger, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Debug("Response encoding failed", "error", err)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		http.Error(w, "malformed JSON body", http.StatusBadRequest)
		return false
	}
	return true
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token    string `json:"token"`
	Username string `json:"username"`
}

func (gw *Gateway) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	token, err := gw.auth.Register(req.Username, req.Email, req.Password)
	if err != nil {
		if stderrors.Is(err, errors.ErrUserAlreadyExists) {
			http.Error(w, "username or email already taken", http.StatusBadRequest)
			return
		}
		if stderrors.Is(err, errors.ErrInvalidPassword) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, "registration failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, gw.log, http.StatusCreated, tokenResponse{Token: string(token), Username: req.Username})
}

func (gw *Gateway) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	token, err := gw.auth.Login(req.Username, req.Password)
	if err != nil {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	writeJSON(w, gw.log, http.StatusOK, tokenResponse{Token: string(token), Username: req.Username})
}

type searchResult struct {
	Username   domain.Identity `json:"username"`
	ProfilePic string          `json:"profilePic,omitempty"`
}

func (gw *Gateway) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	if query == "" {
		writeJSON(w, gw.log, http.StatusOK, []searchResult{})
		return
	}

	accounts, err := gw.users.Search(r.Context(), query, 20)
	if err != nil {
		http.Error(w, "search failed", http.StatusInternalServerError)
		return
	}

	results := make([]searchResult, 0, len(accounts))
	for _, account := range accounts {
		results = append(results, searchResult{Username: account.Username, ProfilePic: account.ProfilePic})
	}
	writeJSON(w, gw.log, http.StatusOK, results)
}

type pushTokenRequest struct {
	Token string `json:"token"`
}

func (gw *Gateway) handlePushToken(w http.ResponseWriter, r *http.Request) {
	var req pushTokenRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := gw.users.SetPushToken(callerIdentity(r), req.Token); err != nil {
		http.Error(w, "push token update failed", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type friendActionRequest struct {
	Username domain.Identity `json:"username"`
}

func (gw *Gateway) handleFriendRequest(w http.ResponseWriter, r *http.Request) {
	var req friendActionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	err := gw.social.SendFriendRequest(r.Context(), callerIdentity(r), req.Username)
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case stderrors.Is(err, errors.ErrUserNotFound):
		http.Error(w, "unknown user", http.StatusNotFound)
	case stderrors.Is(err, errors.ErrAlreadyFriends),
		stderrors.Is(err, errors.ErrRequestAlreadySent),
		stderrors.Is(err, errors.ErrInvalidIdentity):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, "friend request failed", http.StatusInternalServerError)
	}
}

func (gw *Gateway) handleFriendAccept(w http.ResponseWriter, r *http.Request) {
	var req friendActionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	err := gw.social.AcceptFriendRequest(r.Context(), callerIdentity(r), req.Username)
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case stderrors.Is(err, errors.ErrNoPendingRequest):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, "friend accept failed", http.StatusInternalServerError)
	}
}

func (gw *Gateway) handleFriends(w http.ResponseWriter, r *http.Request) {
	friends, err := gw.social.Friends(domain.Identity(r.PathValue("username")))
	if err != nil {
		http.Error(w, "unknown user", http.StatusNotFound)
		return
	}
	if friends == nil {
		friends = []domain.Identity{}
	}
	writeJSON(w, gw.log, http.StatusOK, friends)
}

func (gw *Gateway) handlePendingRequests(w http.ResponseWriter, r *http.Request) {
	requests, err := gw.social.PendingRequests(domain.Identity(r.PathValue("username")))
	if err != nil {
		http.Error(w, "unknown user", http.StatusNotFound)
		return
	}
	if requests == nil {
		requests = []domain.FriendRequest{}
	}
	writeJSON(w, gw.log, http.StatusOK, requests)
}

type createGroupRequest struct {
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Members     []domain.Identity `json:"members"`
}

func (gw *Gateway) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	var req createGroupRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	group, err := gw.social.CreateGroup(r.Context(), callerIdentity(r), req.Name, req.Description, req.Members)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, gw.log, http.StatusCreated, group)
}

func (gw *Gateway) handleGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := gw.social.GroupsOf(domain.Identity(r.PathValue("username")))
	if err != nil {
		http.Error(w, "unknown user", http.StatusNotFound)
		return
	}
	if groups == nil {
		groups = []domain.Group{}
	}
	writeJSON(w, gw.log, http.StatusOK, groups)
}
