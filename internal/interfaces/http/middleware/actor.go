package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/retailchain/inventory/internal/infrastructure/logger"
)

// Gin context keys set by the actor middleware
const (
	// ActorIDKey holds the validated staff member ID for the request
	ActorIDKey = "actor_id"
	// BranchIDKey holds the validated branch ID for the request
	BranchIDKey = "branch_id"
)

// ActorContext extracts the acting staff member from the X-Actor-ID header
// and the optional branch scope from X-Branch-ID. Both must be UUIDs; invalid
// values are dropped rather than rejected, handlers decide whether an actor
// is mandatory for the operation.
func ActorContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		if raw := c.GetHeader("X-Actor-ID"); raw != "" {
			if id, err := uuid.Parse(raw); err == nil {
				c.Set(ActorIDKey, id.String())
				ctx, _ = logger.WithActorID(ctx, logger.FromContext(ctx), id.String())
			}
		}

		if raw := c.GetHeader("X-Branch-ID"); raw != "" {
			if id, err := uuid.Parse(raw); err == nil {
				c.Set(BranchIDKey, id.String())
				ctx, _ = logger.WithBranchID(ctx, logger.FromContext(ctx), id.String())
			}
		}

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// GetActorID returns the validated actor ID for the request, or uuid.Nil
func GetActorID(c *gin.Context) uuid.UUID {
	if raw := c.GetString(ActorIDKey); raw != "" {
		if id, err := uuid.Parse(raw); err == nil {
			return id
		}
	}
	return uuid.Nil
}

// GetBranchID returns the validated branch scope for the request, or uuid.Nil
func GetBranchID(c *gin.Context) uuid.UUID {
	if raw := c.GetString(BranchIDKey); raw != "" {
		if id, err := uuid.Parse(raw); err == nil {
			return id
		}
	}
	return uuid.Nil
}
