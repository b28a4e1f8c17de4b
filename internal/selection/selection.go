// Package selection разбирает код выбора и фильтрует итоговые ссылки.
package selection

import (
	"errors"
	"strings"

	"github.com/Totarae/psabot/internal/model"
)

// LatestMarker префикс кода «последние серии».
const LatestMarker = "l"

var ErrEmptySelection = errors.New("empty selection")

// Selection код выбора пользователя, например "1080p" или "l720p".
type Selection struct {
	Code    string
	Latest  bool
	Quality string
}

// Parse разбирает код выбора.
func Parse(code string) (Selection, error) {
	if code == "" {
		return Selection{}, ErrEmptySelection
	}
	if strings.HasPrefix(code, LatestMarker) {
		return Selection{Code: code, Latest: true, Quality: code[len(LatestMarker):]}, nil
	}
	return Selection{Code: code, Quality: code}, nil
}

func (s Selection) String() string {
	return s.Code
}

// Filter проходит итоговые ссылки в порядке страницы и решает, брать ли каждую.
// Для кода «последние» набор обрывается на первой ссылке, чьё название не продолжает серию.
type Filter struct {
	sel      Selection
	accepted int
	stopped  bool
}

// NewFilter создаёт фильтр для одного запроса.
func NewFilter(sel Selection) *Filter {
	return &Filter{sel: sel}
}

// Stopped сообщает, что серия оборвалась и дальнейшие ссылки не рассматриваются.
func (f *Filter) Stopped() bool {
	return f.stopped
}

// Accepted число принятых ссылок.
func (f *Filter) Accepted() int {
	return f.accepted
}

// Test проверяет очередную итоговую ссылку.
//
// Для кода «последние» продолжение серии проверяется так: название текущей ссылки должно
// содержаться в одном символе этой же ссылки с индексом accepted-1. На практике это
// пропускает вторую ссылку только при пустом или односимвольном названии.
func (f *Filter) Test(resolved string) (model.Outcome, error) {
	if f.stopped {
		return model.OutcomeStopped, nil
	}

	if f.sel.Latest && strings.Contains(resolved, f.sel.Quality) {
		current, err := RunTitle(resolved)
		if err != nil {
			return model.OutcomeTitleUnavailable, err
		}
		if f.accepted == 0 {
			f.accepted++
			return model.OutcomeAccepted, nil
		}
		runes := []rune(resolved)
		idx := f.accepted - 1
		if idx >= len(runes) {
			return model.OutcomeTitleUnavailable, ErrTitleUnavailable
		}
		if strings.Contains(string(runes[idx]), current) {
			f.accepted++
			return model.OutcomeAccepted, nil
		}
		f.stopped = true
		return model.OutcomeStopped, nil
	}

	if strings.Contains(resolved, f.sel.Code) {
		f.accepted++
		return model.OutcomeAccepted, nil
	}
	return model.OutcomeNoMatch, nil
}
