// actor.go bridges the authenticated identity into the audit engine's
// request-scoped actor context.
package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/chorusdesk/chorusdesk/internal/audit"
)

// ActorMiddleware creates a fresh audit.ActorContext per request, fills it
// from the identity AuthMiddleware stored on the gin context, and attaches it
// to the request context for the save interceptor.
//
// A new instance per request is a correctness requirement, not a style
// choice: a shared actor holder would bleed attribution across concurrent
// requests. Unauthenticated requests get an empty context, which the audit
// engine treats as attribution-free rather than an error.
func ActorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := audit.NewActorContext()

		name, _ := c.Get(CtxUserName)
		id, _ := c.Get(CtxUserID)
		if nameStr, ok := name.(string); ok && nameStr != "" {
			idStr, _ := id.(string)
			actor.SetActor(nameStr, idStr)
		}

		c.Request = c.Request.WithContext(audit.WithContext(c.Request.Context(), actor))
		c.Next()

		// The unit of work ends with the request.
		actor.Clear()
	}
}
