package broadcast

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/promoimperio/broadcast_backend/appctx"
	"github.com/promoimperio/broadcast_backend/messaging"
	"golang.org/x/crypto/bcrypt"
)

// AdminAuthMiddleware checks the "token" header against a bcrypt hash. With
// no hash configured the endpoints are open (local/dev).
func AdminAuthMiddleware(tokenHash string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokenHash == "" {
			c.Next()
			return
		}
		token := c.GetHeader("token")
		if token == "" || bcrypt.CompareHashAndPassword([]byte(tokenHash), []byte(token)) != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Next()
	}
}

// TriggerSlotHandler re-fires one slot on demand. Idempotency still applies:
// a slot already committed today answers AlreadySent.
func TriggerSlotHandler(s *Scheduler) gin.HandlerFunc {
	return func(c *gin.Context) {
		index, err := strconv.Atoi(c.Param("index"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid slot index"})
			return
		}

		ctx := appctx.Set(c.Request.Context(), appctx.ContextKeyRunId, uuid.NewString())
		outcome, err := s.TriggerSlot(ctx, index)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, outcome)
	}
}

// ListGroupsHandler exposes the group chats visible to the session, for
// building the destination list.
func ListGroupsHandler(client messaging.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		groups, err := client.ListGroups(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"groups": groups})
	}
}

// PubSubPushEnvelope is the push-subscription wrapper; Data is base64 in the
// wire JSON and decoded by encoding/json.
type PubSubPushEnvelope struct {
	Message struct {
		Data      []byte `json:"data"`
		MessageId string `json:"messageId"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

type slotTriggerPayload struct {
	SlotIndex *int `json:"slot_index"`
}

// PubSubPushHandler lets a push subscription (e.g. Cloud Scheduler -> topic)
// fire a slot remotely. Malformed pushes are acked with 204 so the
// subscription does not redeliver them forever.
func PubSubPushHandler(s *Scheduler) gin.HandlerFunc {
	return func(c *gin.Context) {
		var envelope PubSubPushEnvelope
		if err := c.ShouldBindJSON(&envelope); err != nil {
			c.Status(http.StatusNoContent)
			return
		}

		var payload slotTriggerPayload
		if err := json.Unmarshal(envelope.Message.Data, &payload); err != nil || payload.SlotIndex == nil {
			c.Status(http.StatusNoContent)
			return
		}

		ctx := appctx.Set(c.Request.Context(), appctx.ContextKeyRunId, envelope.Message.MessageId)
		_, _ = s.TriggerSlot(ctx, *payload.SlotIndex)
		c.Status(http.StatusNoContent)
	}
}
