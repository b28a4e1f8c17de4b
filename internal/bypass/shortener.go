package bypass

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/Totarae/psabot/internal/fetch"
)

// Заголовки первой ступени: без них внешний шортенер отдаёт заглушку.
const (
	outerUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/105.0.0.0 Safari/537.36"
)

// Shortener внешняя ступень: страница со встроенной ссылкой на шлюз.
type Shortener struct {
	client    *fetch.Client
	gate      Resolver
	base      string
	reference *regexp.Regexp
	userAgent string
}

// NewShortener создаёт внешнюю ступень. gateBase тот же, что у шлюза.
func NewShortener(client *fetch.Client, gate Resolver, gateBase, userAgent string) (*Shortener, error) {
	u, err := url.Parse(gateBase)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid gate base %q", gateBase)
	}
	if userAgent == "" {
		userAgent = outerUserAgent
	}
	return &Shortener{
		client:    client,
		gate:      gate,
		base:      strings.TrimSuffix(gateBase, "/"),
		reference: regexp.MustCompile(regexp.QuoteMeta(u.Host) + `/(.*?) `),
		userAgent: userAgent,
	}, nil
}

// Resolve находит ссылку на шлюз в теле страницы и передаёт её шлюзу.
func (s *Shortener) Resolve(ctx context.Context, rawURL string) (string, error) {
	if rawURL == "" {
		return "", ErrEmptyURL
	}
	gateURL, err := s.GateURL(ctx, rawURL)
	if err != nil {
		return "", err
	}
	return s.gate.Resolve(ctx, gateURL)
}

// GateURL возвращает адрес шлюза, встроенный в страницу внешнего шортенера.
func (s *Shortener) GateURL(ctx context.Context, rawURL string) (string, error) {
	sess, err := s.client.Session()
	if err != nil {
		return "", err
	}
	page, err := sess.Get(ctx, rawURL, nil, http.Header{
		"Upgrade-Insecure-Requests": {"1"},
		"User-Agent":                {s.userAgent},
	})
	if err != nil {
		return "", err
	}

	m := s.reference.FindStringSubmatch(page.Text())
	if m == nil {
		return "", fmt.Errorf("%s: %w", rawURL, ErrGateRefMissing)
	}
	return s.base + "/" + m[1], nil
}
