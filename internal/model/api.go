package model

import "time"

// ResolveRequest представляет структуру запроса на получение ссылок.
type ResolveRequest struct {
	URL       string `json:"url"`
	Selection string `json:"selection"`
}

// LinkItem одна ссылка в ответе.
type LinkItem struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// ResolveResponse представляет структуру ответа со списком ссылок.
type ResolveResponse struct {
	Links []LinkItem `json:"links"`
}

// HistoryItem представляет запись журнала в ответе API.
type HistoryItem struct {
	ID        string    `json:"id"`
	PageURL   string    `json:"page_url"`
	Selection string    `json:"selection"`
	Accepted  int       `json:"accepted"`
	Scanned   int       `json:"scanned"`
	Error     string    `json:"error,omitempty"`
	Started   time.Time `json:"started"`
	Millis    int64     `json:"duration_ms"`
}
