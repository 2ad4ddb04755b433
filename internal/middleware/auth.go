package middleware

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

type contextKey string

const UserIDKey contextKey = "userID"
const UserEmailKey contextKey = "userEmail"
const UserRoleKey contextKey = "userRole"

const (
	SessionCookieName = "dance_ops_session"
	sessionMaxAge     = 7 * 24 * time.Hour
)

func sign(value, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(value))
	return base64.URLEncoding.EncodeToString(mac.Sum(nil))
}

func CreateSessionCookie(userID, userEmail, userRole, secret string, secure bool) *http.Cookie {
	value := fmt.Sprintf("%s|%s|%s|%d", userID, userEmail, userRole, time.Now().Unix())

	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    value + "|" + sign(value, secret),
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(sessionMaxAge.Seconds()),
	}
}

// ClearSessionCookie expires the session cookie in the browser.
func ClearSessionCookie(secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	}
}

func ValidateSessionCookie(cookie *http.Cookie, secret string) (userID, userEmail, userRole string, err error) {
	if cookie == nil {
		return "", "", "", fmt.Errorf("no session cookie")
	}

	parts := strings.Split(cookie.Value, "|")
	if len(parts) != 5 {
		return "", "", "", fmt.Errorf("invalid session format")
	}

	value := strings.Join(parts[:4], "|")
	if !hmac.Equal([]byte(parts[4]), []byte(sign(value, secret))) {
		return "", "", "", fmt.Errorf("invalid session signature")
	}

	issued, err := strconv.ParseInt(parts[3], 10, 64)
	if err != nil {
		return "", "", "", fmt.Errorf("invalid session timestamp")
	}
	if time.Since(time.Unix(issued, 0)) > sessionMaxAge {
		return "", "", "", fmt.Errorf("session expired")
	}

	return parts[0], parts[1], parts[2], nil
}

// RequireAuth rejects requests without a valid session cookie with 401.
func RequireAuth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "authentication required")
				return
			}

			userID, userEmail, userRole, err := ValidateSessionCookie(cookie, secret)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "authentication required")
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, userID)
			ctx = context.WithValue(ctx, UserEmailKey, userEmail)
			ctx = context.WithValue(ctx, UserRoleKey, userRole)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetUserID(r *http.Request) string {
	if val := r.Context().Value(UserIDKey); val != nil {
		return val.(string)
	}
	return ""
}

func GetUserEmail(r *http.Request) string {
	if val := r.Context().Value(UserEmailKey); val != nil {
		return val.(string)
	}
	return ""
}

func GetUserRole(r *http.Request) string {
	if val := r.Context().Value(UserRoleKey); val != nil {
		return val.(string)
	}
	return ""
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
