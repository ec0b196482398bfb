// Package proxy は、開発時にブラウザのクロスオリジン制約を回避するための
// 同一オリジン転送サーバです。実リクエスト先は X-Target-URL ヘッダで受け取り、
// バイナリ応答が必要な場合は X-Response-Type: binary が指定されます。
package proxy

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/shouni/go-studio-kit/pkg/hookclient"
	"github.com/shouni/go-studio-kit/pkg/sse"
)

// forwardTimeout は転送1件の上限です。動画系エンドポイントの応答が遅いため長めに取ります。
const forwardTimeout = 180 * time.Second

// Server は gin ベースの転送サーバです。
type Server struct {
	engine *gin.Engine
	client *http.Client
	hub    *sse.Hub
}

// NewServer は転送エンドポイントと SSE エンドポイントを備えたサーバを組み立てます。
func NewServer(hub *sse.Hub) (*Server, error) {
	if hub == nil {
		return nil, fmt.Errorf("hub は必須です")
	}
	s := &Server{
		engine: gin.Default(),
		client: &http.Client{Timeout: forwardTimeout},
		hub:    hub,
	}
	s.engine.POST("/proxy", s.forward)
	s.engine.GET("/events", sse.Handler(hub))
	return s, nil
}

// Run はサーバを起動します。addr は ":8787" 形式です。
func (s *Server) Run(addr string) error {
	slog.Info("開発プロキシを起動します", "addr", addr)
	return s.engine.Run(addr)
}

// Engine はテスト用に内部の gin エンジンを公開します。
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// forward は X-Target-URL で指定された実宛先へリクエスト本文をそのまま中継します。
func (s *Server) forward(c *gin.Context) {
	target := c.GetHeader(hookclient.HeaderTargetURL)
	if target == "" {
		c.String(http.StatusBadRequest, "%s ヘッダが必要です", hookclient.HeaderTargetURL)
		return
	}
	if _, err := url.ParseRequestURI(target); err != nil {
		c.String(http.StatusBadRequest, "転送先URLが不正です: %v", err)
		return
	}

	req, err := http.NewRequestWithContext(c.Request.Context(), http.MethodPost, target, c.Request.Body)
	if err != nil {
		c.String(http.StatusInternalServerError, "転送リクエストの生成に失敗しました: %v", err)
		return
	}
	req.Header.Set("Content-Type", c.ContentType())

	resp, err := s.client.Do(req)
	if err != nil {
		slog.Error("転送に失敗しました", "target", target, "error", err)
		c.String(http.StatusBadGateway, "転送に失敗しました: %v", err)
		return
	}
	defer resp.Body.Close()

	binary := c.GetHeader(hookclient.HeaderResponseType) == hookclient.ResponseTypeBinary
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		if binary {
			contentType = "application/octet-stream"
		} else {
			contentType = "application/json"
		}
	}

	c.Status(resp.StatusCode)
	c.Header("Content-Type", contentType)
	if _, err := io.Copy(c.Writer, resp.Body); err != nil {
		slog.Error("転送応答の書き出しに失敗しました", "target", target, "error", err)
	}
}
