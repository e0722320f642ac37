package bus

import (
	"log/slog"
	"sync"

	"github.com/goccy/go-json"
)

// Entry — зарегистрированное соединение. Исходящие события складываются в
// буферизованную очередь; медленный получатель не блокирует рассылку остальным.
type Entry struct {
	userID int64
	out    chan []byte

	closeOnce sync.Once
	closed    chan struct{}
}

func (e *Entry) UserID() int64 { return e.userID }

// Out — очередь исходящих, читается write-циклом соединения.
func (e *Entry) Out() <-chan []byte { return e.out }

// Closed закрывается при дерегистрации; сигнал write-циклу завершиться.
func (e *Entry) Closed() <-chan struct{} { return e.closed }

func (e *Entry) close() {
	e.closeOnce.Do(func() { close(e.closed) })
}

// Send ставит payload в очередь соединения в обход групп — для адресных
// ответов (история, счётчики, ошибки). false — очередь полна или закрыта.
func (e *Entry) Send(payload []byte) bool {
	select {
	case <-e.closed:
		return false
	default:
	}
	select {
	case e.out <- payload:
		return true
	default:
		return false
	}
}

// Registry хранит соответствие групп и соединений и реализует in-process Bus.
type Registry struct {
	mu      sync.RWMutex
	groups  map[string]map[*Entry]struct{}
	entries map[*Entry]map[string]struct{}
	buffer  int
}

func NewRegistry(buffer int) *Registry {
	if buffer <= 0 {
		buffer = 256
	}
	return &Registry{
		groups:  make(map[string]map[*Entry]struct{}),
		entries: make(map[*Entry]map[string]struct{}),
		buffer:  buffer,
	}
}

// Register создаёт запись для аутентифицированного соединения.
// Неаутентифицированные соединения отсекаются транспортом до этого вызова.
func (r *Registry) Register(userID int64) *Entry {
	e := &Entry{
		userID: userID,
		out:    make(chan []byte, r.buffer),
		closed: make(chan struct{}),
	}

	r.mu.Lock()
	r.entries[e] = make(map[string]struct{})
	r.mu.Unlock()

	return e
}

// Subscribe идемпотентна: повторная подписка на ту же группу — no-op.
func (r *Registry) Subscribe(e *Entry, group string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	gs, ok := r.entries[e]
	if !ok {
		return // уже дерегистрирован
	}
	if _, ok := gs[group]; ok {
		return
	}
	gs[group] = struct{}{}

	set, ok := r.groups[group]
	if !ok {
		set = make(map[*Entry]struct{})
		r.groups[group] = set
	}
	set[e] = struct{}{}
}

func (r *Registry) Unsubscribe(e *Entry, group string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unsubscribeLocked(e, group)
}

func (r *Registry) unsubscribeLocked(e *Entry, group string) {
	if gs, ok := r.entries[e]; ok {
		delete(gs, group)
	}
	if set, ok := r.groups[group]; ok {
		delete(set, e)
		if len(set) == 0 {
			delete(r.groups, group)
		}
	}
}

// Deregister удаляет запись из всех групп атомарно относительно снапшотов
// Publish: рассылка видит запись либо целиком, либо никак.
func (r *Registry) Deregister(e *Entry) {
	r.mu.Lock()
	if gs, ok := r.entries[e]; ok {
		for group := range gs {
			r.unsubscribeLocked(e, group)
		}
		delete(r.entries, e)
	}
	r.mu.Unlock()

	e.close()
}

// Lookup возвращает снапшот подписчиков группы.
func (r *Registry) Lookup(group string) []*Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := r.groups[group]
	out := make([]*Entry, 0, len(set))
	for e := range set {
		out = append(out, e)
	}
	return out
}

// Publish доставляет событие всем подписчикам группы на момент публикации.
// Переполненная очередь получателя трактуется как обрыв: запись дерегистрируется,
// остальные получатели не затрагиваются.
func (r *Registry) Publish(group string, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		slog.Error("bus marshal failed", "group", group, "err", err)
		return
	}
	r.deliver(group, payload)
}

func (r *Registry) deliver(group string, payload []byte) {
	r.mu.RLock()
	set := r.groups[group]
	snapshot := make([]*Entry, 0, len(set))
	for e := range set {
		snapshot = append(snapshot, e)
	}
	r.mu.RUnlock()

	var stalled []*Entry
	for _, e := range snapshot {
		select {
		case e.out <- payload:
		default:
			stalled = append(stalled, e)
		}
	}

	for _, e := range stalled {
		slog.Warn("bus send buffer full, dropping connection", "group", group, "user", e.userID)
		r.Deregister(e)
	}
}
