package api

import (
	"net/http"

	xhttp "FinSim/pkg/http"
	xlogger "FinSim/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// Progress upgrades to a websocket and streams trial records of a running
// job until it finishes, then sends the final job snapshot and closes.
func (h *OptimizeHandler) Progress(c echo.Context) error {
	id := c.Param("id")
	ch, detach, err := h.jobs.Subscribe(id)
	if err != nil {
		return xhttp.NotFoundResponse(c, err.Error())
	}
	defer detach()

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Warn("progress upgrade error", xlogger.String("job_id", id), xlogger.Error(err))
		return err
	}
	defer conn.Close()

	// Drain reads so client close frames are processed.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for t := range ch {
		if err := conn.WriteJSON(t); err != nil {
			return nil
		}
	}

	if st, err := h.jobs.Status(id); err == nil {
		if err := conn.WriteJSON(st); err != nil {
			return nil
		}
	}
	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return nil
}
