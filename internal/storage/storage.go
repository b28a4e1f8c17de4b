package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"log"
	"os"
	"sort"
	"sync"

	"github.com/Totarae/psabot/internal/model"
)

// memoryLimit сколько последних записей держим в памяти.
const memoryLimit = 1000

// JournalStore журнал запросов в памяти с дозаписью в файл (JSON lines).
// При пустом пути к файлу только память.
type JournalStore struct {
	data  []*model.Resolution
	mutex sync.RWMutex
	file  string
}

// NewJournalStore initializes a new JournalStore
func NewJournalStore(file string) *JournalStore {
	store := &JournalStore{file: file}

	// Загружаем данные из файла
	if err := store.LoadFromFile(); err != nil {
		log.Printf("Ошибка загрузки журнала из файла: %v", err)
	}

	return store
}

// Record сохраняет запись журнала
func (s *JournalStore) Record(_ context.Context, r *model.Resolution) error {
	if r == nil {
		return errors.New("nil resolution")
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.append(r)

	if s.file == "" {
		return nil
	}
	return s.AppendToFile(r.Entry())
}

func (s *JournalStore) append(r *model.Resolution) {
	s.data = append(s.data, r)
	if len(s.data) > memoryLimit {
		s.data = append([]*model.Resolution(nil), s.data[len(s.data)-memoryLimit:]...)
	}
}

// History возвращает последние записи пользователя, новые первыми.
func (s *JournalStore) History(_ context.Context, userID int64, limit int) ([]*model.Resolution, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var out []*model.Resolution
	for _, r := range s.data {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Started.After(out[j].Started) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *JournalStore) Ping(context.Context) error {
	return nil
}

// LoadFromFile загружает журнал из файла при старте
func (s *JournalStore) LoadFromFile() error {
	if s.file == "" {
		return nil
	}
	file, err := os.Open(s.file)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // Файл ещё не создан, это не ошибка
		}
		return err
	}
	defer file.Close()

	s.mutex.Lock()
	defer s.mutex.Unlock()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var entry model.Entry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			log.Printf("Пропущена битая строка журнала: %v", err)
			continue
		}
		s.append(entry.Resolution())
	}

	log.Printf("Загружено %d записей журнала из файла %s", len(s.data), s.file)
	return scanner.Err()
}

// AppendToFile добавляет новую запись в файл
func (s *JournalStore) AppendToFile(entry model.Entry) error {
	file, err := os.OpenFile(s.file, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer file.Close()

	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	_, err = file.Write(append(data, '\n')) // Записываем с новой строки
	return err
}
