package gateway

import (
	"context"
	"time"

	. "github.com/pactline/escrowd/src/utils/logger"

	"github.com/gin-gonic/gin"
	"github.com/teivah/onecontext"
	"nhooyr.io/websocket"
)

// onDealEvents streams deal change notifications to the client. Messages
// are the raw JSON payloads published by the notifier.
func (self *Server) onDealEvents() gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := websocket.Accept(c.Writer, c.Request, nil)
		if err != nil {
			LOG(c).WithError(err).Error("Failed to accept websocket")
			return
		}

		id, feed := self.events.Subscribe()
		defer self.events.Unsubscribe(id)

		LOG(c).WithField("subscriber", id).Debug("Event feed connected")

		// The feed is write only, CloseRead handles control frames and
		// cancels when the client hangs up. Merged with the task context
		// so a server shutdown ends the connection too.
		ctx, cancel := onecontext.Merge(conn.CloseRead(c.Request.Context()), self.Ctx)
		defer cancel()

		for {
			select {
			case <-ctx.Done():
				conn.Close(websocket.StatusGoingAway, "")
				return
			case payload, ok := <-feed:
				if !ok {
					conn.Close(websocket.StatusGoingAway, "shutting down")
					return
				}

				writeCtx, cancelWrite := context.WithTimeout(ctx, 10*time.Second)
				err = conn.Write(writeCtx, websocket.MessageText, []byte(payload))
				cancelWrite()
				if err != nil {
					LOG(c).WithError(err).WithField("subscriber", id).Debug("Event feed dropped")
					return
				}

				self.monitor.GetReport().Gateway.State.EventsStreamed.Inc()
			}
		}
	}
}
