package bus

// Event — отложенная публикация: движки возвращают список событий,
// транспорт исполняет их через Bus.
type Event struct {
	Group string
	Data  any
}

// Bus — общая шина рассылки. Chat, Live Session и Notification движки
// зависят от интерфейса, а не от конкретной реализации.
type Bus interface {
	Publish(group string, data any)
	Subscribe(e *Entry, group string)
	Unsubscribe(e *Entry, group string)
}
