// Package actions serves the pages behind the links mailed with email action
// codes: verifying an address and resetting a password. Handlers talk to the
// identity SDK through the rxauth adapter, so any sdk.Auth implementation
// can back them.
package actions

import (
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/panyam/rxauth"
	"github.com/panyam/rxauth/sdk"
)

// DefaultTimeout bounds each SDK call made by a handler.
const DefaultTimeout = 15 * time.Second

// Handlers serves action links.
type Handlers struct {
	Auth *rxauth.Auth

	// ResetURL is where the forgot-password handler points reset links. When
	// empty the SDK's own action URL is used.
	ResetURL string

	Timeout time.Duration
	Logger  *slog.Logger
}

func (h *Handlers) ensureDefaults() {
	if h.Timeout <= 0 {
		h.Timeout = DefaultTimeout
	}
	if h.Logger == nil {
		h.Logger = slog.Default()
	}
}

// Register mounts the handlers on r:
//
//	GET  /action            dispatches on the mode and oobCode query parameters
//	POST /reset-password    form fields oobCode and password
//	POST /forgot-password   form field email
func (h *Handlers) Register(r *mux.Router) {
	h.ensureDefaults()
	r.HandleFunc("/action", h.HandleAction).Methods(http.MethodGet).Queries("mode", "{mode}", "oobCode", "{oobCode}")
	r.HandleFunc("/action", h.actionFallback)
	r.HandleFunc("/reset-password", h.HandleResetPassword).Methods(http.MethodPost)
	r.HandleFunc("/forgot-password", h.HandleForgotPassword).Methods(http.MethodPost)
}

// Router returns a new router with the handlers mounted under prefix.
func (h *Handlers) Router(prefix string) *mux.Router {
	r := mux.NewRouter()
	sub := r
	if prefix != "" && prefix != "/" {
		sub = r.PathPrefix(prefix).Subrouter()
	}
	h.Register(sub)
	return r
}

func (h *Handlers) context(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), h.Timeout)
}

// actionFallback answers /action requests the main route did not match:
// anything but GET, and GETs missing a query parameter.
func (h *Handlers) actionFallback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeError(w, http.StatusMethodNotAllowed, "method-not-allowed", "use GET")
		return
	}
	writeError(w, http.StatusBadRequest, "missing-code", "mode and oobCode are required")
}

// HandleAction applies verification codes directly and shows the reset form
// for password reset codes.
func (h *Handlers) HandleAction(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	mode, code := vars["mode"], vars["oobCode"]
	ctx, cancel := h.context(r)
	defer cancel()

	switch mode {
	case sdk.ActionModeVerifyEmail:
		if err := h.Auth.ApplyActionCode(code).Await(ctx); err != nil {
			h.fail(w, "verify email", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"message": "Email verified successfully",
		})
	case sdk.ActionModeResetPassword:
		email, err := h.Auth.VerifyPasswordResetCode(code).Await(ctx)
		if err != nil {
			h.fail(w, "verify reset code", err)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := resetForm.Execute(w, map[string]string{"Email": email, "Code": code}); err != nil {
			h.Logger.Warn("failed to render reset form", "err", err)
		}
	default:
		writeError(w, http.StatusBadRequest, "unknown-mode", "unknown action mode "+mode)
	}
}

// HandleResetPassword sets the new password for a reset code.
func (h *Handlers) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid-form", "invalid form data")
		return
	}
	code, password := r.FormValue("oobCode"), r.FormValue("password")
	if code == "" || password == "" {
		writeError(w, http.StatusBadRequest, "missing-field", "oobCode and password are required")
		return
	}
	ctx, cancel := h.context(r)
	defer cancel()

	email, err := h.Auth.VerifyPasswordResetCode(code).Await(ctx)
	if err != nil {
		h.fail(w, "verify reset code", err)
		return
	}
	if err := h.Auth.ConfirmPasswordReset(code, password).Await(ctx); err != nil {
		h.fail(w, "reset password", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Password reset successfully",
		"email":   email,
	})
}

// HandleForgotPassword mails a reset link. It answers the same way whether
// or not the address has an account.
func (h *Handlers) HandleForgotPassword(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid-form", "invalid form data")
		return
	}
	email := r.FormValue("email")
	if email == "" {
		writeError(w, http.StatusBadRequest, "missing-field", "email is required")
		return
	}
	ctx, cancel := h.context(r)
	defer cancel()

	var settings *sdk.ActionCodeSettings
	if h.ResetURL != "" {
		settings = &sdk.ActionCodeSettings{URL: h.ResetURL}
	}
	err := h.Auth.SendPasswordReset(email, settings).Await(ctx)
	switch {
	case err == nil, errors.Is(err, sdk.ErrUserNotFound):
	case errors.Is(err, sdk.ErrInvalidEmail), errors.Is(err, sdk.ErrTooManyRequests):
		h.fail(w, "send reset", err)
		return
	default:
		h.Logger.Warn("failed to send reset email", "err", err)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "If that email exists, a reset link has been sent",
	})
}

func (h *Handlers) fail(w http.ResponseWriter, op string, err error) {
	status := statusOf(err)
	var ae *sdk.AuthError
	if !errors.As(err, &ae) {
		ae = sdk.WrapAuthError(err, "%s failed", op)
	}
	if status >= 500 {
		h.Logger.Error("action failed", "op", op, "err", err)
	}
	writeError(w, status, string(ae.Code), ae.Message)
}

// statusOf maps SDK errors to HTTP statuses.
func statusOf(err error) int {
	var ae *sdk.AuthError
	if !errors.As(err, &ae) {
		if errors.Is(err, context.DeadlineExceeded) {
			return http.StatusGatewayTimeout
		}
		return http.StatusInternalServerError
	}
	switch ae.Code {
	case sdk.CodeInvalidActionCode, sdk.CodeExpiredActionCode, sdk.CodeWeakPassword, sdk.CodeInvalidEmail:
		return http.StatusBadRequest
	case sdk.CodeUserNotFound:
		return http.StatusNotFound
	case sdk.CodeUserDisabled, sdk.CodeOperationNotAllowed:
		return http.StatusForbidden
	case sdk.CodeTooManyRequests:
		return http.StatusTooManyRequests
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{"error": code, "message": message})
}

var resetForm = template.Must(template.New("reset").Parse(`<!DOCTYPE html>
<html>
<head><title>Reset Password</title></head>
<body>
<h1>Reset password for {{.Email}}</h1>
<form method="POST" action="reset-password">
	<input type="hidden" name="oobCode" value="{{.Code}}">
	<label>New Password: <input type="password" name="password" required></label>
	<button type="submit">Reset Password</button>
</form>
</body>
</html>`))
