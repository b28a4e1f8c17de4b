package model

import "time"

// Resolution запись журнала об одном запросе пользователя.
// Сами ссылки не сохраняются: пачка живёт только до отправки ответа.
type Resolution struct {
	ID        string
	UserID    int64
	PageURL   string
	Selection string
	Accepted  int
	Scanned   int
	Error     string
	Started   time.Time
	Duration  time.Duration
}

// Entry превращает объект журнала в запись для файла.
func (r *Resolution) Entry() Entry {
	return Entry{
		ID:        r.ID,
		UserID:    r.UserID,
		PageURL:   r.PageURL,
		Selection: r.Selection,
		Accepted:  r.Accepted,
		Scanned:   r.Scanned,
		Error:     r.Error,
		Started:   r.Started,
		Duration:  r.Duration,
	}
}
