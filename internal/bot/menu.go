package bot

import (
	"html"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/Totarae/psabot/internal/selection"
)

var linkPattern = regexp.MustCompile(`https://psa\.(pm|re)/`)

// Типы страниц сайта: первый сегмент пути.
const (
	TagMovie  = "movie"
	TagTVShow = "tv-show"
)

// Button кнопка меню: подпись и данные обратного вызова.
type Button struct {
	Text string
	Data string
}

// Menu строки кнопок.
type Menu [][]Button

// ExtractLinks ищет ссылки сайта в тексте. Текст приводится к нижнему регистру
// и делится по пробелам и запятым.
func ExtractLinks(text string) []string {
	lower := strings.ToLower(text)
	if !linkPattern.MatchString(lower) {
		return nil
	}
	tokens := strings.FieldsFunc(lower, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})

	var links []string
	for _, tok := range tokens {
		loc := linkPattern.FindStringIndex(tok)
		if loc == nil {
			continue
		}
		links = append(links, tok[loc[0]:])
	}
	return links
}

// MenuFor строит меню по типу страницы. Для неизвестного типа ok == false.
func (b *Bot) MenuFor(link string) (text string, menu Menu, ok bool) {
	tag, err := selection.Segment(link)
	if err != nil {
		return "", nil, false
	}

	qualities := []Button{
		{Text: "🔵 720P", Data: EncodeCallback("720p", link, b.Links)},
		{Text: "🟠 1080P", Data: EncodeCallback("1080p", link, b.Links)},
		{Text: "🔴 2160P", Data: EncodeCallback("2160p", link, b.Links)},
	}
	cancel := []Button{{Text: "❌ Cancel", Data: CancelData}}

	switch tag {
	case TagMovie:
		return "<b>Choose a resolution for:</b>\n" + html.EscapeString(link),
			Menu{qualities, cancel}, true
	case TagTVShow:
		latest := []Button{
			{Text: "🔵 Latest", Data: EncodeCallback(selection.LatestMarker+"720p", link, b.Links)},
			{Text: "🟠 Latest", Data: EncodeCallback(selection.LatestMarker+"1080p", link, b.Links)},
			{Text: "🔴 Latest", Data: EncodeCallback(selection.LatestMarker+"2160p", link, b.Links)},
		}
		return "<b>Select an option or resolution for:</b>\n" + html.EscapeString(link),
			Menu{qualities, latest, cancel}, true
	}
	return "", nil, false
}

// FormatLinks нумерованный список ссылок с подписями из пути.
func FormatLinks(links []string) string {
	var sb strings.Builder
	sb.WriteString("<b>You can download torrent here:</b>\n")
	for i, link := range links {
		title, err := selection.Humanize(link)
		if err != nil || title == "" {
			title = link
		}
		sb.WriteString(strconv.Itoa(i + 1))
		sb.WriteString(`. <a href="`)
		sb.WriteString(html.EscapeString(link))
		sb.WriteString(`">`)
		sb.WriteString(html.EscapeString(title))
		sb.WriteString("</a>\n")
	}
	return sb.String()
}
