package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/atvirokodosprendimai/userkeys/internal/core/domain"
	"github.com/atvirokodosprendimai/userkeys/internal/core/usecase"
)

type ctxKey string

const (
	timeFormat             = "2006-01-02T15:04:05.999999999Z07:00"
	userCtxKey      ctxKey = "user"
	maxJSONBodySize        = 1 << 20
)

type Handler struct {
	identity    *usecase.IdentityService
	credentials *usecase.CredentialService
	logger      *zap.Logger
	metrics     *metrics
	healthCheck func(ctx context.Context) error
}

type Option func(*Handler)

func WithLogger(lg *zap.Logger) Option {
	return func(h *Handler) { h.logger = lg }
}

// WithHealthCheck makes /healthz report 503 when fn fails.
func WithHealthCheck(fn func(ctx context.Context) error) Option {
	return func(h *Handler) { h.healthCheck = fn }
}

func NewHandler(identity *usecase.IdentityService, credentials *usecase.CredentialService, opts ...Option) *Handler {
	h := &Handler{
		identity:    identity,
		credentials: credentials,
		logger:      zap.NewNop(),
		metrics:     newMetrics(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID, h.observe)

	r.Get("/healthz", h.healthz)
	r.Get("/openapi.json", h.openapi)
	r.Method(http.MethodGet, "/metrics", h.metrics.handler())

	r.Route("/users", func(ur chi.Router) {
		ur.Group(func(pr chi.Router) {
			pr.Use(h.requireUser)
			pr.Get("/me", h.profile)
			pr.Get("/me/api-keys", h.listKeys)
			pr.Post("/me/api-keys", h.putKey)
			pr.Get("/me/api-keys/{service_name}", h.getKey)
			pr.Delete("/me/api-keys/{service_name}", h.deleteKey)
		})

		ur.With(h.optionalUser).Get("/session", h.session)
		ur.With(h.requireAdmin).Get("/", h.listUsers)
	})

	return r
}

type createKeyRequest struct {
	ServiceName string  `json:"service_name"`
	APIKey      string  `json:"api_key"`
	BaseURL     *string `json:"base_url"`
}

type userResponse struct {
	ID        uint64 `json:"id"`
	Username  string `json:"username"`
	Role      string `json:"role"`
	CreatedAt string `json:"created_at"`
}

type credentialResponse struct {
	ID          uint64  `json:"id"`
	ServiceName string  `json:"service_name"`
	BaseURL     *string `json:"base_url"`
	IsActive    bool    `json:"is_active"`
	CreatedAt   string  `json:"created_at"`
}

type sessionResponse struct {
	Authenticated bool          `json:"authenticated"`
	User          *userResponse `json:"user"`
}

func (h *Handler) profile(w http.ResponseWriter, r *http.Request) {
	user, _ := userFromContext(r.Context())
	h.writeJSON(w, http.StatusOK, toUserResponse(user))
}

func (h *Handler) listKeys(w http.ResponseWriter, r *http.Request) {
	user, _ := userFromContext(r.Context())

	creds, err := h.credentials.List(r.Context(), user)
	if err != nil {
		h.handleDomainError(w, r, err)
		return
	}

	result := make([]credentialResponse, 0, len(creds))
	for _, c := range creds {
		result = append(result, toCredentialResponse(c))
	}
	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) putKey(w http.ResponseWriter, r *http.Request) {
	user, _ := userFromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodySize)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		h.writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if err := validateBody(createKeySchema, body); err != nil {
		h.handleDomainError(w, r, err)
		return
	}

	var req createKeyRequest
	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if err := ensureEOF(decoder); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	res, err := h.credentials.Put(r.Context(), user, domain.CredentialInput{
		ServiceName: req.ServiceName,
		Secret:      req.APIKey,
		BaseURL:     req.BaseURL,
	})
	if err != nil {
		h.handleDomainError(w, r, err)
		return
	}

	h.logger.Info("api key stored",
		zap.Uint64("user_id", user.ID),
		zap.String("service_name", res.Credential.ServiceName),
		zap.Bool("created", res.Created),
	)
	h.writeJSON(w, http.StatusCreated, map[string]string{"message": res.Message()})
}

func (h *Handler) getKey(w http.ResponseWriter, r *http.Request) {
	user, _ := userFromContext(r.Context())

	cred, err := h.credentials.Get(r.Context(), user, chi.URLParam(r, "service_name"))
	if err != nil {
		h.handleDomainError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toCredentialResponse(cred))
}

func (h *Handler) deleteKey(w http.ResponseWriter, r *http.Request) {
	user, _ := userFromContext(r.Context())
	service := chi.URLParam(r, "service_name")

	if err := h.credentials.Delete(r.Context(), user, service); err != nil {
		h.handleDomainError(w, r, err)
		return
	}

	h.logger.Info("api key deleted", zap.Uint64("user_id", user.ID), zap.String("service_name", service))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) {
	resp := sessionResponse{}
	if user, ok := userFromContext(r.Context()); ok {
		u := toUserResponse(user)
		resp.Authenticated = true
		resp.User = &u
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.identity.ListUsers(r.Context())
	if err != nil {
		h.handleDomainError(w, r, err)
		return
	}

	result := make([]userResponse, 0, len(users))
	for _, u := range users {
		result = append(result, toUserResponse(u))
	}
	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	if h.healthCheck != nil {
		if err := h.healthCheck(r.Context()); err != nil {
			h.logger.Warn("health check failed", zap.Error(err))
			h.writeJSON(w, http.StatusServiceUnavailable, map[string]bool{"ok": false})
			return
		}
	}
	h.writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) openapi(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, openapiSpec())
}

func toUserResponse(u domain.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Username:  u.Username,
		Role:      string(u.Role),
		CreatedAt: u.CreatedAt.UTC().Format(timeFormat),
	}
}

func toCredentialResponse(c domain.Credential) credentialResponse {
	return credentialResponse{
		ID:          c.ID,
		ServiceName: c.ServiceName,
		BaseURL:     c.BaseURL,
		IsActive:    c.Active,
		CreatedAt:   c.CreatedAt.UTC().Format(timeFormat),
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body any) {
	data, err := json.Marshal(body)
	if err != nil {
		h.logger.Error("encode json response", zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(append(data, '\n')); err != nil {
		h.logger.Debug("write response", zap.Error(err))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]any{"error": message})
}

func (h *Handler) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var violation *domain.ErrSchemaViolation
	switch {
	case errors.As(err, &violation):
		h.writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid request body", "details": violation.Errors})
	case errors.Is(err, errInvalidJSON):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrInvalidInput):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		w.Header().Set("WWW-Authenticate", "Bearer")
		h.writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		h.writeError(w, http.StatusForbidden, "Admin privileges required")
	case errors.Is(err, domain.ErrNotFound):
		h.writeError(w, http.StatusNotFound, err.Error())
	default:
		h.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", RequestIDFromContext(r.Context())),
			zap.Error(err),
		)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func ensureEOF(decoder *json.Decoder) error {
	var extra json.RawMessage
	if err := decoder.Decode(&extra); err != nil {
		if err == io.EOF {
			return nil
		}
		return err
	}
	return errors.New("extra json tokens")
}

func bearerToken(r *http.Request) string {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}

func withUser(ctx context.Context, user domain.User) context.Context {
	return context.WithValue(ctx, userCtxKey, user)
}

func userFromContext(ctx context.Context) (domain.User, bool) {
	user, ok := ctx.Value(userCtxKey).(domain.User)
	return user, ok
}

func openapiSpec() map[string]any {
	keyPath := map[string]any{"name": "service_name", "in": "path", "required": true, "schema": map[string]any{"type": "string"}}
	return map[string]any{
		"openapi": "3.0.3",
		"info": map[string]any{
			"title":   "userkeys",
			"version": "1.0.0",
		},
		"components": map[string]any{
			"securitySchemes": map[string]any{
				"bearerAuth": map[string]any{"type": "http", "scheme": "bearer", "bearerFormat": "JWT"},
			},
		},
		"security": []any{map[string]any{"bearerAuth": []string{}}},
		"paths": map[string]any{
			"/users/me": map[string]any{
				"get": map[string]any{"summary": "Current user profile"},
			},
			"/users/me/api-keys": map[string]any{
				"get": map[string]any{"summary": "List active API keys"},
				"post": map[string]any{
					"summary": "Create or update an API key",
					"requestBody": map[string]any{
						"required": true,
						"content": map[string]any{
							"application/json": map[string]any{
								"schema": map[string]any{
									"type":     "object",
									"required": []string{"service_name", "api_key"},
									"properties": map[string]any{
										"service_name": map[string]any{"type": "string"},
										"api_key":      map[string]any{"type": "string"},
										"base_url":     map[string]any{"type": "string", "nullable": true},
									},
									"additionalProperties": false,
								},
							},
						},
					},
				},
			},
			"/users/me/api-keys/{service_name}": map[string]any{
				"parameters": []any{keyPath},
				"get":        map[string]any{"summary": "Get the active API key for a service"},
				"delete":     map[string]any{"summary": "Delete the API key for a service"},
			},
			"/users/session": map[string]any{
				"get": map[string]any{"summary": "Optional session lookup", "security": []any{}},
			},
			"/users/": map[string]any{
				"get": map[string]any{"summary": "List users (admin)"},
			},
		},
	}
}
