// Package scraper достаёт ссылки на шлюзы из страницы релиза.
package scraper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"github.com/Totarae/psabot/internal/fetch"
)

// ErrNoAnchor контейнер без ссылки или ссылка без href.
var ErrNoAnchor = errors.New("container has no link")

// ContainerClass составной класс блоков со ссылками на скачивание.
// Список классов должен совпадать целиком и в том же порядке, лишний класс исключает блок.
// Пробельные символы между классами не важны.
const ContainerClass = "dropshadowboxes-drop-shadow dropshadowboxes-rounded-corners dropshadowboxes-inside-and-outside-shadow dropshadowboxes-lifted-both dropshadowboxes-effect-default"

var (
	classSelector  = cascadia.MustCompile("[class]")
	anchorSelector = cascadia.MustCompile("a")
)

// Gate ссылка из одного контейнера, в порядке документа.
type Gate struct {
	Index int
	Href  string
	Err   error
}

// Extract возвращает по одному Gate на каждый контейнер страницы.
// Контейнер без ссылки не прерывает разбор: его Gate несёт ErrNoAnchor.
func Extract(body []byte) ([]Gate, error) {
	root, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse page html: %w", err)
	}

	var gates []Gate
	goquery.NewDocumentFromNode(root).FindMatcher(classSelector).FilterFunction(isContainer).Each(func(i int, box *goquery.Selection) {
		g := Gate{Index: i}
		href, ok := box.FindMatcher(anchorSelector).First().Attr("href")
		if !ok || href == "" {
			g.Err = ErrNoAnchor
		} else {
			g.Href = href
		}
		gates = append(gates, g)
	})
	return gates, nil
}

func isContainer(_ int, s *goquery.Selection) bool {
	class, _ := s.Attr("class")
	return strings.Join(strings.Fields(class), " ") == ContainerClass
}

// Scraper загружает страницу и разбирает контейнеры.
type Scraper struct {
	client *fetch.Client
}

// New создаёт Scraper поверх общего клиента.
func New(client *fetch.Client) *Scraper {
	return &Scraper{client: client}
}

// Gates загружает страницу pageURL и возвращает ссылки всех контейнеров.
func (s *Scraper) Gates(ctx context.Context, pageURL string) ([]Gate, error) {
	sess, err := s.client.Session()
	if err != nil {
		return nil, err
	}
	page, err := sess.Get(ctx, pageURL, nil, nil)
	if err != nil {
		return nil, err
	}
	return Extract(page.Body)
}
