// Package sse は、バッチ進捗をブラウザへ届ける Server-Sent Events のハブです。
// トピックはバッチ刻印で、1バッチの購読者にだけそのバッチのイベントが流れます。
package sse

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/shouni/go-studio-kit/pkg/domain"
)

// subscriberBuffer は購読者1人あたりのチャネル緩衝です。
// 読み出しが追いつかない購読者へのイベントは黙って捨てます（接続の保護が優先なのだ）。
const subscriberBuffer = 16

// Event はハブを流れるイベントの外形です。
type Event struct {
	Type     string                   `json:"type"` // "progress" | "result"
	Progress *domain.Progress         `json:"progress,omitempty"`
	Result   *domain.GenerationResult `json:"result,omitempty"`
}

// Hub はトピック別の購読者集合を管理します。
type Hub struct {
	mu     sync.RWMutex
	topics map[string]map[chan []byte]bool
}

// NewHub は新しい Hub を生成します。
func NewHub() *Hub {
	return &Hub{topics: make(map[string]map[chan []byte]bool)}
}

// Subscribe はトピックの購読チャネルを発行します。
// 返されたチャネルは必ず Unsubscribe で返却してください。Hub 側からは閉じません。
func (h *Hub) Subscribe(topic string) chan []byte {
	ch := make(chan []byte, subscriberBuffer)
	h.mu.Lock()
	defer h.mu.Unlock()
	subs, ok := h.topics[topic]
	if !ok {
		subs = make(map[chan []byte]bool)
		h.topics[topic] = subs
	}
	subs[ch] = true
	return ch
}

// Unsubscribe は購読を解除します。トピックの最後の購読者が抜けたら区画ごと破棄します。
func (h *Hub) Unsubscribe(topic string, ch chan []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if subs, ok := h.topics[topic]; ok {
		delete(subs, ch)
		if len(subs) == 0 {
			delete(h.topics, topic)
		}
	}
}

// Publish はトピックの全購読者へメッセージを配信します。
// 緩衝が埋まっている購読者はスキップされ、配信全体は決してブロックしません。
func (h *Hub) Publish(topic string, msg []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.topics[topic] {
		select {
		case ch <- msg:
		default:
		}
	}
}

func (h *Hub) publishEvent(topic string, event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		slog.Error("SSEイベントのエンコードに失敗しました", "topic", topic, "error", err)
		return
	}
	h.Publish(topic, data)
}

// PublishProgress は進捗カウンタをトピックへ流します。
func (h *Hub) PublishProgress(topic string, progress domain.Progress) {
	h.publishEvent(topic, Event{Type: "progress", Progress: &progress})
}

// PublishResult は決着した結果1件をトピックへ流します。
func (h *Hub) PublishResult(topic string, result domain.GenerationResult) {
	h.publishEvent(topic, Event{Type: "result", Result: &result})
}

// SubscriberCount は現在の購読者数を返します（テストと監視用）。
func (h *Hub) SubscriberCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}
