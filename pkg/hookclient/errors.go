package hookclient

import "fmt"

// TimeoutError は、進行中のリクエストが協調キャンセルで打ち切られたことを表します。
// 呼び出し元が「再投入」ではなく「再開」を選べるように、宛先URL・送信ペイロード・
// 試行回数を保持するのだ。
type TimeoutError struct {
	URL      string
	Payload  []byte
	Attempts int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("リクエストがタイムアウトしました (url=%s, attempts=%d)", e.URL, e.Attempts)
}

// HTTPError は、HTTPステータスによる確定的な拒否（4xx/5xx）を表します。
// 確定的な拒否の自動リトライはクォータを浪費するだけで成功し得ないため、
// クライアントはこのエラーを一切リトライしません。
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}
