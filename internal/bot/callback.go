package bot

import (
	"errors"
	"strings"

	"github.com/Totarae/psabot/internal/util"
)

// CancelData данные кнопки отмены.
const CancelData = "cancel"

// MaxCallbackData предел Telegram для данных кнопки, в байтах.
const MaxCallbackData = 64

const registryPrefix = "#"

var (
	ErrBadCallback = errors.New("malformed callback data")
	ErrLinkExpired = errors.New("link expired, send it again")
)

// EncodeCallback собирает данные кнопки "<code> <url>". Длинная ссылка заменяется ключом реестра.
func EncodeCallback(code, link string, registry *util.LinkRegistry) string {
	data := code + " " + link
	if len(data) <= MaxCallbackData || registry == nil {
		return data
	}
	return code + " " + registryPrefix + registry.Save(link)
}

// DecodeCallback разбирает данные кнопки обратно в код выбора и ссылку.
func DecodeCallback(data string, registry *util.LinkRegistry) (code, link string, err error) {
	code, link, found := strings.Cut(data, " ")
	if !found || code == "" || link == "" {
		return "", "", ErrBadCallback
	}
	if key, ok := strings.CutPrefix(link, registryPrefix); ok {
		if registry == nil {
			return "", "", ErrLinkExpired
		}
		stored, ok := registry.Get(key)
		if !ok {
			return "", "", ErrLinkExpired
		}
		link = stored
	}
	return code, link, nil
}
