package model

import "errors"

// ErrNoResults возвращается, когда после фильтрации не осталось ни одной ссылки.
var ErrNoResults = errors.New("No results found!")

// Outcome описывает, что случилось с одной ссылкой страницы.
type Outcome string

const (
	OutcomeAccepted         Outcome = "accepted"
	OutcomeNoMatch          Outcome = "no_match"
	OutcomeStopped          Outcome = "stopped"
	OutcomeNoAnchor         Outcome = "no_anchor"
	OutcomeResolveFailed    Outcome = "resolve_failed"
	OutcomeTitleUnavailable Outcome = "title_unavailable"
)

// Skipped сообщает, была ли ссылка пропущена из-за ошибки, а не отфильтрована.
func (o Outcome) Skipped() bool {
	switch o {
	case OutcomeNoAnchor, OutcomeResolveFailed, OutcomeTitleUnavailable:
		return true
	}
	return false
}

// ItemResult результат обработки одного контейнера со ссылкой
type ItemResult struct {
	Index    int
	GateURL  string
	Resolved string
	Outcome  Outcome
	Err      error
}

// Batch упорядоченный список итоговых ссылок и результаты по каждому контейнеру.
// Порядок Links совпадает с порядком на странице.
type Batch struct {
	Links []string
	Items []ItemResult
}

// Skipped возвращает элементы, пропущенные из-за ошибок.
func (b Batch) Skipped() []ItemResult {
	var out []ItemResult
	for _, it := range b.Items {
		if it.Outcome.Skipped() {
			out = append(out, it)
		}
	}
	return out
}
