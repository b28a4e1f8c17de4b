package util

import (
	"crypto/sha256"
	"encoding/base64"
	"sync"
)

// ShortKey короткий стабильный ключ ссылки: первые 9 байт sha256 в base64url, 12 символов.
func ShortKey(link string) string {
	hash := sha256.Sum256([]byte(link))
	return base64.RawURLEncoding.EncodeToString(hash[:9])
}

// LinkRegistry хранит ссылки, которые не помещаются в данные кнопки.
// Старые ключи вытесняются, когда записей становится больше limit.
type LinkRegistry struct {
	data  map[string]string
	order []string
	mutex sync.RWMutex
	limit int
}

// NewLinkRegistry initializes a new LinkRegistry
func NewLinkRegistry(limit int) *LinkRegistry {
	if limit <= 0 {
		limit = 4096
	}
	return &LinkRegistry{
		data:  make(map[string]string),
		limit: limit,
	}
}

// Save запоминает ссылку и возвращает её ключ
func (r *LinkRegistry) Save(link string) string {
	key := ShortKey(link)

	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.data[key]; exists {
		return key
	}
	r.data[key] = link
	r.order = append(r.order, key)
	for len(r.order) > r.limit {
		delete(r.data, r.order[0])
		r.order = r.order[1:]
	}
	return key
}

// Get возвращает ссылку по ключу
func (r *LinkRegistry) Get(key string) (string, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	link, exists := r.data[key]
	return link, exists
}

// Len число ссылок в реестре
func (r *LinkRegistry) Len() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return len(r.data)
}
