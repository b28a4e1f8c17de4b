package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Totarae/psabot/internal/model"
	"github.com/Totarae/psabot/internal/scraper"
	"github.com/Totarae/psabot/internal/selection"
)

// GateSource отдаёт ссылки контейнеров страницы релиза.
type GateSource interface {
	Gates(ctx context.Context, pageURL string) ([]scraper.Gate, error)
}

// LinkResolver проходит цепочку шортенеров до итоговой ссылки.
type LinkResolver interface {
	Resolve(ctx context.Context, rawURL string) (string, error)
}

// Journal журнал запросов.
type Journal interface {
	Record(ctx context.Context, r *model.Resolution) error
	History(ctx context.Context, userID int64, limit int) ([]*model.Resolution, error)
	Ping(ctx context.Context) error
}

type PipelineService struct {
	Pages   GateSource
	Links   LinkResolver
	Journal Journal
	Logger  *zap.Logger
	Now     func() time.Time
}

func NewPipelineService(pages GateSource, links LinkResolver, journal Journal, logger *zap.Logger) *PipelineService {
	return &PipelineService{
		Pages:   pages,
		Links:   links,
		Journal: journal,
		Logger:  logger,
		Now:     time.Now,
	}
}

// Resolve загружает страницу, по очереди проходит каждую ссылку и оставляет подходящие под код выбора.
// Ошибка одной ссылки не прерывает обработку: она попадает в Items как пропуск.
func (s *PipelineService) Resolve(ctx context.Context, userID int64, pageURL, code string) (model.Batch, error) {
	started := s.Now()
	batch, err := s.resolve(ctx, pageURL, code)

	rec := &model.Resolution{
		ID:        uuid.NewString(),
		UserID:    userID,
		PageURL:   pageURL,
		Selection: code,
		Accepted:  len(batch.Links),
		Scanned:   len(batch.Items),
		Started:   started,
		Duration:  s.Now().Sub(started),
	}
	if err != nil {
		rec.Error = err.Error()
	}
	// запись в журнал не должна теряться при отмене запроса
	if jerr := s.Journal.Record(context.WithoutCancel(ctx), rec); jerr != nil {
		s.Logger.Warn("failed to record resolution", zap.String("id", rec.ID), zap.Error(jerr))
	}

	return batch, err
}

func (s *PipelineService) resolve(ctx context.Context, pageURL, code string) (model.Batch, error) {
	var batch model.Batch

	sel, err := selection.Parse(code)
	if err != nil {
		return batch, err
	}

	gates, err := s.Pages.Gates(ctx, pageURL)
	if err != nil {
		return batch, err
	}

	filter := selection.NewFilter(sel)
	for _, g := range gates {
		if err := ctx.Err(); err != nil {
			return batch, err
		}

		item := model.ItemResult{Index: g.Index, GateURL: g.Href}
		if g.Err != nil {
			item.Outcome, item.Err = model.OutcomeNoAnchor, g.Err
			batch.Items = append(batch.Items, item)
			continue
		}

		resolved, err := s.Links.Resolve(ctx, g.Href)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return batch, err
			}
			item.Outcome, item.Err = model.OutcomeResolveFailed, err
			batch.Items = append(batch.Items, item)
			s.Logger.Debug("gate skipped", zap.Int("index", g.Index), zap.String("gate", g.Href), zap.Error(err))
			continue
		}

		item.Resolved = resolved
		item.Outcome, item.Err = filter.Test(resolved)
		batch.Items = append(batch.Items, item)
		if item.Outcome == model.OutcomeAccepted {
			batch.Links = append(batch.Links, resolved)
		}
		if filter.Stopped() {
			break
		}
	}

	s.Logger.Info("page resolved",
		zap.String("page", pageURL),
		zap.String("selection", code),
		zap.Int("gates", len(gates)),
		zap.Int("accepted", len(batch.Links)),
		zap.Int("skipped", len(batch.Skipped())),
	)

	if len(batch.Links) == 0 {
		return batch, model.ErrNoResults
	}
	return batch, nil
}

// History последние запросы пользователя.
func (s *PipelineService) History(ctx context.Context, userID int64, limit int) ([]*model.Resolution, error) {
	return s.Journal.History(ctx, userID, limit)
}

func (s *PipelineService) Ping(ctx context.Context) error {
	return s.Journal.Ping(ctx)
}
