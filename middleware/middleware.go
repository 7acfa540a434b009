// Package middleware provides HTTP authorization middleware for aegis.
package middleware

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/xraph/forge"

	"github.com/xraph/aegis"
)

// RequireActor rejects unauthenticated requests with 401 before any
// permission evaluation runs.
func RequireActor() forge.Middleware {
	return func(next forge.Handler) forge.Handler {
		return func(ctx forge.Context) error {
			if _, ok := resolveActor(ctx); !ok {
				return unauthorizedResponse(ctx)
			}
			return next(ctx)
		}
	}
}

// Require enforces a permission on the route. Unauthenticated callers
// get 401 before the engine is consulted; for authenticated callers the
// decision is evaluated and written to the audit log. Evaluation errors
// deny the request.
func Require(eng *aegis.Engine, resource, action string) forge.Middleware {
	return func(next forge.Handler) forge.Handler {
		return func(ctx forge.Context) error {
			actor, ok := resolveActor(ctx)
			if !ok {
				return unauthorizedResponse(ctx)
			}

			allowed, err := eng.CheckPermission(ctx.Context(), actor.ID, actor.Role, resource, action)
			if err != nil || !allowed {
				return deniedResponse(ctx, resource, action)
			}
			return next(ctx)
		}
	}
}

// RequireAdminSection guards an admin UI section. Only callers whose
// base role is the configured superuser role pass; the visit and its
// outcome are recorded in the audit log either way.
func RequireAdminSection(eng *aegis.Engine, section string) forge.Middleware {
	return func(next forge.Handler) forge.Handler {
		return func(ctx forge.Context) error {
			actor, ok := resolveActor(ctx)
			if !ok {
				return unauthorizedResponse(ctx)
			}
			if !eng.CheckAdminAccess(ctx.Context(), actor.ID, actor.Role, section) {
				return deniedResponse(ctx, "system", "access")
			}
			return next(ctx)
		}
	}
}

// AnnotateRequest wraps a plain HTTP handler and stores client attribution
// (IP address, user agent) in the request context so audit entries written
// further down the chain carry it. Host applications mount this outside
// their router.
func AnnotateRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := aegis.WithRequestMeta(r.Context(), aegis.RequestMeta{
			IPAddress: clientIP(r),
			UserAgent: r.UserAgent(),
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// clientIP returns the originating client address, preferring the first
// X-Forwarded-For hop when a proxy set one.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// resolveActor extracts the calling actor from context.
// Priority: aegis actor set by the host auth layer, then the Forge user ID.
func resolveActor(ctx forge.Context) (aegis.Actor, bool) {
	if actor, ok := aegis.ActorFromContext(ctx.Context()); ok && actor.ID != "" {
		return actor, true
	}
	if userID := forge.UserIDFromContext(ctx.Context()); userID != "" {
		return aegis.Actor{ID: userID, Role: aegis.RoleUser}, true
	}
	return aegis.Actor{ID: aegis.AnonymousUser}, false
}

func unauthorizedResponse(ctx forge.Context) error {
	ctx.SetHeader("Content-Type", "application/json")
	ctx.Response().WriteHeader(http.StatusUnauthorized)
	return json.NewEncoder(ctx.Response()).Encode(map[string]string{"error": "authentication required"})
}

func deniedResponse(ctx forge.Context, resource, action string) error {
	ctx.SetHeader("Content-Type", "application/json")
	ctx.Response().WriteHeader(http.StatusForbidden)
	return json.NewEncoder(ctx.Response()).Encode(map[string]string{
		"error": fmt.Sprintf("insufficient permissions for %s:%s", resource, action),
	})
}
