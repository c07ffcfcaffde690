package scan

import (
	"sync"

	"github.com/avezina/chatscan/internal/domain"
)

// Progress is a point-in-time view of a running scan. Chats keeps
// insertion order with duplicates removed; neither slice ever shrinks
// while a scan is running.
type Progress struct {
	Chats []domain.Chat
	Logs  []domain.LogEntry
}

type progressState struct {
	mu    sync.Mutex
	chats []domain.Chat
	seen  map[string]struct{}
	logs  []domain.LogEntry
}

func newProgressState() *progressState {
	return &progressState{seen: make(map[string]struct{})}
}

func (p *progressState) reset() {
	p.mu.Lock()
	p.chats = nil
	p.seen = make(map[string]struct{})
	p.logs = nil
	p.mu.Unlock()
}

func (p *progressState) addChat(chat domain.Chat) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.seen[chat.ID]; ok {
		return
	}
	p.seen[chat.ID] = struct{}{}
	p.chats = append(p.chats, chat)
}

func (p *progressState) appendLog(entry domain.LogEntry) {
	p.mu.Lock()
	p.logs = append(p.logs, entry)
	p.mu.Unlock()
}

func (p *progressState) chatsSnapshot() []domain.Chat {
	p.mu.Lock()
	defer p.mu.Unlock()

	chats := make([]domain.Chat, len(p.chats))
	copy(chats, p.chats)
	return chats
}

func (p *progressState) snapshot() Progress {
	p.mu.Lock()
	defer p.mu.Unlock()

	progress := Progress{
		Chats: make([]domain.Chat, len(p.chats)),
		Logs:  make([]domain.LogEntry, len(p.logs)),
	}
	copy(progress.Chats, p.chats)
	copy(progress.Logs, p.logs)
	return progress
}
