// Package fetch выполняет GET/POST запросы с заголовками браузера.
package fetch

import (
	"compress/flate"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"
)

// ErrBodyTooLarge возвращается, когда ответ превышает MaxBodyBytes.
var ErrBodyTooLarge = errors.New("response body too large")

// StatusError ответ сервера с кодом 4xx/5xx.
type StatusError struct {
	URL    string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d", e.URL, e.Status)
}

// Options controls HTTP fetching behaviour.
type Options struct {
	UserAgent    string
	Headers      map[string]string
	Timeout      time.Duration
	MaxBodyBytes int64
	ProxyURL     string
	// RequestsPerSecond ограничивает исходящие запросы, 0 без ограничений.
	RequestsPerSecond float64
	// Transport подменяет транспорт (в тестах).
	Transport http.RoundTripper
}

// Response тело и метаданные ответа.
type Response struct {
	Status int
	Body   []byte
}

// Text возвращает тело как строку.
func (r *Response) Text() string {
	return string(r.Body)
}

// Client HTTP-клиент, общий для всего процесса. Сам по себе не хранит состояния между вызовами,
// куки живут только внутри сессии, созданной через Session.
type Client struct {
	transport    http.RoundTripper
	timeout      time.Duration
	jar          http.CookieJar
	limiter      *rate.Limiter
	userAgent    string
	headers      map[string]string
	maxBodyBytes int64
}

// New конструирует клиент по опциям.
func New(opts Options) (*Client, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 5 * 1024 * 1024 // 5MB cap
	}

	transport := opts.Transport
	if transport == nil {
		t := &http.Transport{
			DialContext:           (&net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
			TLSHandshakeTimeout:   10 * time.Second,
			MaxIdleConns:          100,
			IdleConnTimeout:       90 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		}
		if strings.TrimSpace(opts.ProxyURL) != "" {
			proxyURL, err := url.Parse(opts.ProxyURL)
			if err != nil {
				return nil, fmt.Errorf("parse proxy url: %w", err)
			}
			t.Proxy = http.ProxyURL(proxyURL)
		}
		transport = t
	}

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}

	headers := make(map[string]string, len(opts.Headers))
	for k, v := range opts.Headers {
		headers[k] = v
	}

	c := &Client{
		transport:    transport,
		timeout:      opts.Timeout,
		limiter:      rate.NewLimiter(limit, 1),
		userAgent:    opts.UserAgent,
		headers:      headers,
		maxBodyBytes: opts.MaxBodyBytes,
	}
	jar, err := newJar()
	if err != nil {
		return nil, err
	}
	c.jar = jar
	return c, nil
}

func newJar() (http.CookieJar, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}
	return jar, nil
}

// Session возвращает клиент с тем же транспортом и лимитером, но со своими куками.
func (c *Client) Session() (*Client, error) {
	jar, err := newJar()
	if err != nil {
		return nil, err
	}
	s := *c
	s.jar = jar
	return &s, nil
}

func (c *Client) httpClient() *http.Client {
	return &http.Client{Transport: c.transport, Timeout: c.timeout, Jar: c.jar}
}

// Get выполняет GET. query добавляется к параметрам url.
func (c *Client) Get(ctx context.Context, rawURL string, query url.Values, header http.Header) (*Response, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	if len(query) > 0 {
		q := u.Query()
		for k, vs := range query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	return c.do(req, header)
}

// PostForm отправляет форму как application/x-www-form-urlencoded.
func (c *Client) PostForm(ctx context.Context, rawURL string, form url.Values, header http.Header) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req, header)
}

func (c *Client) do(req *http.Request, header http.Header) (*Response, error) {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}

	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.8")
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	for k, vs := range header {
		// Host нельзя выставить через заголовки
		if strings.EqualFold(k, "Host") {
			if len(vs) > 0 {
				req.Host = vs[0]
			}
			continue
		}
		req.Header.Del(k)
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("http %s %s: %w", req.Method, req.URL.Redacted(), err)
	}

	body, err := c.readBody(resp)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &StatusError{URL: req.URL.Redacted(), Status: resp.StatusCode}
	}

	return &Response{
		Status: resp.StatusCode,
		Body:   body,
	}, nil
}

func (c *Client) readBody(resp *http.Response) ([]byte, error) {
	if resp == nil || resp.Body == nil {
		return nil, errors.New("empty response body")
	}

	reader := io.Reader(resp.Body)
	closers := []io.Closer{resp.Body}

	encoding := strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding")))
	switch encoding {
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			_ = resp.Body.Close()
			return nil, fmt.Errorf("gzip decode: %w", err)
		}
		reader = gz
		closers = append(closers, gz)
	case "br":
		reader = brotli.NewReader(resp.Body)
	case "deflate":
		fl := flate.NewReader(resp.Body)
		reader = fl
		closers = append(closers, fl)
	}

	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i].Close()
		}
	}()

	body, err := io.ReadAll(io.LimitReader(reader, c.maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > c.maxBodyBytes {
		return nil, fmt.Errorf("%w: limit %d bytes", ErrBodyTooLarge, c.maxBodyBytes)
	}
	return body, nil
}
