package model

import "time"

// Entry представляет структуру записи журнала в файле
type Entry struct {
	ID        string        `json:"id"`
	UserID    int64         `json:"user_id"`
	PageURL   string        `json:"page_url"`
	Selection string        `json:"selection"`
	Accepted  int           `json:"accepted"`
	Scanned   int           `json:"scanned"`
	Error     string        `json:"error,omitempty"`
	Started   time.Time     `json:"started"`
	Duration  time.Duration `json:"duration"`
}

// Resolution превращает запись файла в объект журнала.
func (e Entry) Resolution() *Resolution {
	return &Resolution{
		ID:        e.ID,
		UserID:    e.UserID,
		PageURL:   e.PageURL,
		Selection: e.Selection,
		Accepted:  e.Accepted,
		Scanned:   e.Scanned,
		Error:     e.Error,
		Started:   e.Started,
		Duration:  e.Duration,
	}
}
