package selection

import (
	"errors"
	"strings"
	"unicode"
)

// ErrTitleUnavailable у ссылки нет сегмента пути с названием.
var ErrTitleUnavailable = errors.New("link has no title segment")

// titleSegment номер части ссылки после разбиения по "/": схема, пусто, хост, первый сегмент пути.
const titleSegment = 3

// Segment возвращает первый сегмент пути ссылки (или тип раздела для ссылок сайта).
func Segment(link string) (string, error) {
	parts := strings.Split(link, "/")
	if len(parts) <= titleSegment {
		return "", ErrTitleUnavailable
	}
	return parts[titleSegment], nil
}

// RunTitle название серии: сегмент без последнего блока через дефис.
// "Show-Name-S01E02-720p" -> "Show Name S01E02".
func RunTitle(link string) (string, error) {
	seg, err := Segment(link)
	if err != nil {
		return "", err
	}
	words := strings.Split(seg, "-")
	return strings.TrimSpace(strings.Join(words[:len(words)-1], " ")), nil
}

// Humanize делает из ссылки подпись: дефисы в пробелы, первая буква заглавная, остальные строчные.
func Humanize(link string) (string, error) {
	seg, err := Segment(link)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(capitalize(strings.ReplaceAll(seg, "-", " "))), nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(strings.ToLower(s))
	runes[0] = unicode.ToTitle(runes[0])
	return string(runes)
}
