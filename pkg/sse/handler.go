package sse

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Handler は /events?batch=<バッチ刻印> の SSE 接続を受け持つ gin ハンドラを返します。
// 接続中はバッチのイベントを data: 行として流し続け、切断で購読を解除します。
func Handler(hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		topic := c.Query("batch")
		if topic == "" {
			c.String(http.StatusBadRequest, "batch クエリパラメータが必要です")
			return
		}

		flusher, ok := c.Writer.(http.Flusher)
		if !ok {
			c.String(http.StatusInternalServerError, "このサーバ構成ではストリーミングできません")
			return
		}

		c.Writer.Header().Set("Content-Type", "text/event-stream")
		c.Writer.Header().Set("Cache-Control", "no-cache")
		c.Writer.Header().Set("Connection", "keep-alive")

		ch := hub.Subscribe(topic)
		defer hub.Unsubscribe(topic, ch)

		// 中継プロキシに接続を維持させるための初回コメント行
		fmt.Fprint(c.Writer, ": connected\n\n")
		flusher.Flush()

		done := c.Request.Context().Done()
		for {
			select {
			case <-done:
				return
			case msg := <-ch:
				fmt.Fprintf(c.Writer, "data: %s\n\n", msg)
				flusher.Flush()
			}
		}
	}
}
