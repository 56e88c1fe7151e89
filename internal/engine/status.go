package engine

import (
	"fmt"
	"sync"
	"time"
)

// DefaultStatusTTL is how long a status message stays visible.
const DefaultStatusTTL = 3 * time.Second

// StatusKind is the tone of a status message.
type StatusKind string

const (
	StatusSuccess StatusKind = "success"
	StatusError   StatusKind = "error"
)

// Status messages shown to the operator.
const (
	MsgSynced           = "✅ 已同步 | Synced"
	MsgSyncFailed       = "❌ 同步失敗 | Sync failed"
	MsgCompletedCleared = "✅ 已完成訂單已清除 | Completed orders cleared"
	MsgOrdersReset      = "✅ 所有訂單已重置 | All orders reset"
	MsgCounterReset     = "✅ 訂單編號已重置 | Order counter reset"
	MsgIdentityUpdated  = "✅ 站點名稱已更新 | Site name updated"
	MsgMenuSaved        = "✅ 菜單已儲存 | Menu saved"
	MsgThemeChanged     = "✅ 主題已更新 | Theme updated"
)

// MsgOrderSubmitted is the confirmation for a submitted order.
func MsgOrderSubmitted(number int) string {
	return fmt.Sprintf("✅ 訂單 #%d 已送出 | Order #%d submitted", number, number)
}

// MsgOrderCompleted is the confirmation for a completed order.
func MsgOrderCompleted(number int) string {
	return fmt.Sprintf("✅ 訂單 #%d 已完成 | Order #%d completed", number, number)
}

// Status is one transient message.
type Status struct {
	Kind      StatusKind `json:"kind"`
	Message   string     `json:"message"`
	PostedAt  time.Time  `json:"postedAt"`
	ExpiresAt time.Time  `json:"expiresAt"`
}

// StatusBoard holds the latest status until it expires. Safe for
// concurrent use: the Run loop and the persister both post.
type StatusBoard struct {
	mu      sync.Mutex
	clock   Clock
	ttl     time.Duration
	current Status
	set     bool
}

// NewStatusBoard creates a board. A non-positive ttl uses DefaultStatusTTL.
func NewStatusBoard(clock Clock, ttl time.Duration) *StatusBoard {
	if ttl <= 0 {
		ttl = DefaultStatusTTL
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &StatusBoard{clock: clock, ttl: ttl}
}

// Post replaces the current status.
func (b *StatusBoard) Post(kind StatusKind, message string) Status {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.clock.Now()
	b.current = Status{
		Kind:      kind,
		Message:   message,
		PostedAt:  now,
		ExpiresAt: now.Add(b.ttl),
	}
	b.set = true
	return b.current
}

// Current returns the status if one is posted and not yet expired.
func (b *StatusBoard) Current() (Status, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.set {
		return Status{}, false
	}
	if !b.clock.Now().Before(b.current.ExpiresAt) {
		b.set = false
		return Status{}, false
	}
	return b.current, true
}
