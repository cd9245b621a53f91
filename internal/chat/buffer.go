// Package chat keeps the short per-sender message history used to detect
// repeated and near-duplicate chat messages.
package chat

import (
	"sync"
	"time"
)

// MinWindow is the smallest history window. Near-duplicate detection looks
// at the last three messages.
const MinWindow = 3

// DefaultWindow is the number of recent messages retained per sender.
const DefaultWindow = 5

// DefaultIdleTTL is how long a sender history survives without new messages.
const DefaultIdleTTL = 30 * time.Minute

// BufferedMessage represents a single message stored in the ring buffer.
type BufferedMessage struct {
	From string `json:"from"`
	Text string `json:"text"`
	Ts   int64  `json:"ts"`
}

type bufferKey struct {
	chatID   string
	senderID string
}

// MessageBuffer stores the last N messages of each sender in each chat.
// It is goroutine-safe and uses a ring buffer internally. Histories idle for
// longer than the idle TTL are swept on insert.
type MessageBuffer struct {
	mu        sync.RWMutex
	size      int
	idleTTL   time.Duration
	now       func() time.Time
	nextSweep time.Time
	buffers   map[bufferKey]*ringBuffer
}

// ringBuffer is a fixed-size circular buffer of BufferedMessage.
type ringBuffer struct {
	items    []BufferedMessage
	pos      int
	count    int
	lastSeen time.Time
}

// BufferOption configures a MessageBuffer.
type BufferOption func(*MessageBuffer)

// WithIdleTTL sets how long an idle sender history is kept. Zero or less
// disables aging.
func WithIdleTTL(d time.Duration) BufferOption {
	return func(mb *MessageBuffer) { mb.idleTTL = d }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) BufferOption {
	return func(mb *MessageBuffer) { mb.now = now }
}

// NewMessageBuffer creates an empty MessageBuffer holding size messages per
// sender. Sizes below MinWindow are raised to MinWindow.
func NewMessageBuffer(size int, opts ...BufferOption) *MessageBuffer {
	if size < MinWindow {
		size = MinWindow
	}
	mb := &MessageBuffer{
		size:    size,
		idleTTL: DefaultIdleTTL,
		now:     time.Now,
		buffers: make(map[bufferKey]*ringBuffer),
	}
	for _, opt := range opts {
		opt(mb)
	}
	return mb
}

// Size returns the per-sender capacity.
func (mb *MessageBuffer) Size() int { return mb.size }

// Len returns the number of sender histories currently held.
func (mb *MessageBuffer) Len() int {
	mb.mu.RLock()
	defer mb.mu.RUnlock()
	return len(mb.buffers)
}

// Add appends a message to the sender's ring buffer in chatID. If the buffer
// is full, the oldest message is overwritten.
func (mb *MessageBuffer) Add(chatID string, msg BufferedMessage) {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	now := mb.now()
	mb.sweepLocked(now)
	mb.appendLocked(bufferKey{chatID: chatID, senderID: msg.From}, msg, now)
}

// Admit passes the sender's recent texts to accept and appends msg only if
// accept returns true. The check and the insert happen under one lock, so
// concurrent identical messages are judged one after the other.
func (mb *MessageBuffer) Admit(chatID string, msg BufferedMessage, accept func(recent []string) bool) bool {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	now := mb.now()
	mb.sweepLocked(now)
	key := bufferKey{chatID: chatID, senderID: msg.From}
	var recent []string
	if rb, ok := mb.buffers[key]; ok {
		for _, m := range mb.ordered(rb) {
			recent = append(recent, m.Text)
		}
	}
	if !accept(recent) {
		return false
	}
	mb.appendLocked(key, msg, now)
	return true
}

func (mb *MessageBuffer) appendLocked(key bufferKey, msg BufferedMessage, now time.Time) {
	rb, ok := mb.buffers[key]
	if !ok {
		rb = &ringBuffer{items: make([]BufferedMessage, mb.size)}
		mb.buffers[key] = rb
	}

	rb.items[rb.pos] = msg
	rb.pos = (rb.pos + 1) % mb.size
	if rb.count < mb.size {
		rb.count++
	}
	rb.lastSeen = now
}

// sweepLocked drops idle histories. It runs at most once per idle TTL, so a
// history lives between one and two TTLs after its last message.
func (mb *MessageBuffer) sweepLocked(now time.Time) {
	if mb.idleTTL <= 0 || now.Before(mb.nextSweep) {
		return
	}
	for key, rb := range mb.buffers {
		if now.Sub(rb.lastSeen) >= mb.idleTTL {
			delete(mb.buffers, key)
		}
	}
	mb.nextSweep = now.Add(mb.idleTTL)
}

// Get returns the sender's buffered messages in chronological order (oldest
// first). Returns an empty slice if nothing is buffered.
func (mb *MessageBuffer) Get(chatID, senderID string) []BufferedMessage {
	mb.mu.RLock()
	defer mb.mu.RUnlock()

	rb, ok := mb.buffers[bufferKey{chatID: chatID, senderID: senderID}]
	if !ok {
		return []BufferedMessage{}
	}
	return mb.ordered(rb)
}

func (mb *MessageBuffer) ordered(rb *ringBuffer) []BufferedMessage {
	result := make([]BufferedMessage, rb.count)
	// The oldest message is at position (pos - count) mod size.
	start := (rb.pos - rb.count + mb.size) % mb.size
	for i := 0; i < rb.count; i++ {
		result[i] = rb.items[(start+i)%mb.size]
	}
	return result
}

// Recent returns the texts of the sender's buffered messages, oldest first.
func (mb *MessageBuffer) Recent(chatID, senderID string) []string {
	msgs := mb.Get(chatID, senderID)
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Text
	}
	return out
}

// Remove deletes every sender buffer of a chat (called when chat ends).
func (mb *MessageBuffer) Remove(chatID string) {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	for key := range mb.buffers {
		if key.chatID == chatID {
			delete(mb.buffers, key)
		}
	}
}
