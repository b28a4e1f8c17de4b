// Package bypass проходит двухступенчатый шортенер до итоговой ссылки на скачивание.
package bypass

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"github.com/Totarae/psabot/internal/fetch"
	"github.com/Totarae/psabot/internal/pace"
)

var (
	ErrEmptyURL        = errors.New("empty gate url")
	ErrGateFormMissing = errors.New("gate page has no go-link form")
	ErrGateNoURL       = errors.New("gate response has no url")
	ErrGateRefMissing  = errors.New("shortener page has no gate reference")
)

var goLinkSelector = cascadia.MustCompile("#go-link")

// Resolver превращает ссылку шортенера в следующую ссылку цепочки.
type Resolver interface {
	Resolve(ctx context.Context, rawURL string) (string, error)
}

// GateOptions параметры шлюза.
type GateOptions struct {
	// Base адрес шортенера, например https://try2link.com.
	Base string
	// Referer, с которым шортенер ожидает первый заход.
	Referer string
	// TokenOffset добавляется к текущему времени в параметре d.
	TokenOffset time.Duration
	// Delay выдержка перед отправкой формы.
	Delay pace.Waiter
	Now   func() time.Time
}

// GateResolver получает скрытую форму шлюза и отправляет её обратно после выдержки.
type GateResolver struct {
	client *fetch.Client
	opts   GateOptions
	host   string
}

// NewGateResolver создаёт резолвер шлюза.
func NewGateResolver(client *fetch.Client, opts GateOptions) (*GateResolver, error) {
	base, err := url.Parse(opts.Base)
	if err != nil || base.Host == "" {
		return nil, fmt.Errorf("invalid gate base %q", opts.Base)
	}
	opts.Base = strings.TrimSuffix(opts.Base, "/")
	if opts.Delay == nil {
		opts.Delay = pace.Delay(0)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &GateResolver{client: client, opts: opts, host: base.Host}, nil
}

// Resolve возвращает адрес, который шлюз отдаёт в JSON-ответе.
func (g *GateResolver) Resolve(ctx context.Context, gateURL string) (string, error) {
	if gateURL == "" {
		return "", ErrEmptyURL
	}
	gateURL = strings.TrimSuffix(gateURL, "/")

	sess, err := g.client.Session()
	if err != nil {
		return "", err
	}

	token := strconv.FormatInt(g.opts.Now().Add(g.opts.TokenOffset).Unix(), 10)
	page, err := sess.Get(ctx, gateURL, url.Values{"d": {token}}, http.Header{"Referer": {g.opts.Referer}})
	if err != nil {
		return "", err
	}

	form, err := ParseGateForm(page.Body)
	if err != nil {
		return "", fmt.Errorf("%s: %w", gateURL, err)
	}

	if err := g.opts.Delay.Wait(ctx); err != nil {
		return "", err
	}

	resp, err := sess.PostForm(ctx, g.opts.Base+"/links/go", form, http.Header{
		"Host":             {g.host},
		"X-Requested-With": {"XMLHttpRequest"},
		"Origin":           {g.opts.Base},
		"Referer":          {gateURL},
	})
	if err != nil {
		return "", err
	}

	var out struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return "", fmt.Errorf("decode gate response: %w", err)
	}
	if out.URL == "" {
		return "", ErrGateNoURL
	}
	return out.URL, nil
}

// ParseGateForm собирает поля input из контейнера #go-link.
// Поля без имени или без значения пропускаются, при повторе имени остаётся последнее значение.
func ParseGateForm(body []byte) (url.Values, error) {
	root, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse gate html: %w", err)
	}
	container := goquery.NewDocumentFromNode(root).FindMatcher(goLinkSelector).First()
	if container.Length() == 0 {
		return nil, ErrGateFormMissing
	}

	form := url.Values{}
	container.Find("input").Each(func(_ int, in *goquery.Selection) {
		name, ok := in.Attr("name")
		if !ok || name == "" {
			return
		}
		value, ok := in.Attr("value")
		if !ok {
			return
		}
		form.Set(name, value)
	})
	return form, nil
}
