// Package middleware — WorkspaceMembershipMiddleware: workspace üyelik kontrolü.
//
// URL'den {workspaceId} path parameter'ını alır, kullanıcının o workspace'e
// üye olup olmadığını doğrular ve workspaceID'yi context'e ekler.
// AuthMiddleware'den SONRA çalışır.
package middleware

import (
	"context"
	"net/http"

	"github.com/akinalp/ajans/handlers"
	"github.com/akinalp/ajans/models"
	"github.com/akinalp/ajans/pkg"
	"github.com/akinalp/ajans/repository"
)

// WorkspaceMembershipMiddleware, üye değilse 403 döner.
type WorkspaceMembershipMiddleware struct {
	userRepo repository.UserRepository
}

// NewWorkspaceMembershipMiddleware, constructor.
func NewWorkspaceMembershipMiddleware(userRepo repository.UserRepository) *WorkspaceMembershipMiddleware {
	return &WorkspaceMembershipMiddleware{userRepo: userRepo}
}

// Require, workspace üyeliği zorunlu kılan middleware.
func (m *WorkspaceMembershipMiddleware) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := r.Context().Value(handlers.UserContextKey).(*models.User)
		if !ok {
			pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
			return
		}

		workspaceID := r.PathValue("workspaceId")
		if workspaceID == "" {
			pkg.ErrorWithMessage(w, http.StatusBadRequest, "workspaceId is required")
			return
		}

		isMember, err := m.userRepo.IsWorkspaceMember(r.Context(), workspaceID, user.ID)
		if err != nil {
			pkg.ErrorWithMessage(w, http.StatusInternalServerError, "failed to check workspace membership")
			return
		}
		if !isMember {
			pkg.ErrorWithMessage(w, http.StatusForbidden, "you are not a member of this workspace")
			return
		}

		ctx := context.WithValue(r.Context(), handlers.WorkspaceIDContextKey, workspaceID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
