// Package handlers, HTTP request handler'larını içerir.
//
// Her handler bir service interface'i alır, request'i parse eder, service'i
// çağırır ve sonucu pkg.JSON / pkg.Error ile {success, data, error} zarfında döner.
// İş kuralları handler'da değil service katmanındadır.
package handlers

import (
	"net/http"

	"github.com/akinalp/ajans/models"
	"github.com/akinalp/ajans/pkg"
)

// contextKey, context.Value çakışmalarını önlemek için özel key tipi.
type contextKey string

// UserContextKey, AuthMiddleware'in doğruladığı kullanıcıyı taşır.
const UserContextKey contextKey = "user"

// WorkspaceIDContextKey, WorkspaceMembershipMiddleware'in doğruladığı
// {workspaceId} path parametresini taşır.
const WorkspaceIDContextKey contextKey = "workspace_id"

// currentUser, context'teki kullanıcıyı döner. Yoksa 401 yazar ve false döner.
func currentUser(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
		return nil, false
	}
	return user, true
}

// HealthHandler godoc
// GET /api/health
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	pkg.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
