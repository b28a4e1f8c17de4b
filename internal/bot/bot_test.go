package bot_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"github.com/Totarae/psabot/internal/auth"
	"github.com/Totarae/psabot/internal/bot"
	"github.com/Totarae/psabot/internal/bot/mocks"
	"github.com/Totarae/psabot/internal/model"
)

type fixture struct {
	messenger *mocks.MockMessenger
	pipeline  *mocks.MockPipeline
	auth      *mocks.MockAuthorizer
	bot       *bot.Bot
	slept     []time.Duration
}

func newFixture(t *testing.T) *fixture {
	ctrl := gomock.NewController(t)
	f := &fixture{
		messenger: mocks.NewMockMessenger(ctrl),
		pipeline:  mocks.NewMockPipeline(ctrl),
		auth:      mocks.NewMockAuthorizer(ctrl),
	}
	f.bot = bot.New(f.messenger, f.pipeline, f.auth, zap.NewNop())
	f.bot.Sleep = func(_ context.Context, d time.Duration) error {
		f.slept = append(f.slept, d)
		return nil
	}
	return f
}

func TestHandleMessage_IgnoresMessagesWithoutLinks(t *testing.T) {
	f := newFixture(t)
	// никаких ожиданий: ни проверки доступа, ни ответа
	f.bot.HandleMessage(context.Background(), bot.Message{ChatID: 1, MessageID: 2, UserID: 3, Text: "hello https://example.com/movie/x"})
	f.bot.HandleMessage(context.Background(), bot.Message{ChatID: 1, MessageID: 2, UserID: 3, Text: ""})
}

func TestHandleMessage_MenuDependsOnTypeTag(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.auth.EXPECT().Check(ctx, int64(3)).Return(nil)

	var menus []bot.Menu
	var texts []string
	f.messenger.EXPECT().Reply(ctx, int64(1), 2, gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ int64, _ int, text string, menu bot.Menu) error {
			texts = append(texts, text)
			menus = append(menus, menu)
			return nil
		}).Times(2)

	f.bot.HandleMessage(ctx, bot.Message{
		ChatID: 1, MessageID: 2, UserID: 3,
		Text: "Look https://PSA.re/movie/a-b/, https://psa.pm/tv-show/x/\nhttps://psa.re/other/y",
	})

	require.Len(t, menus, 2)
	assert.Equal(t, "<b>Choose a resolution for:</b>\nhttps://psa.re/movie/a-b/", texts[0])
	assert.Equal(t, bot.Menu{
		{
			{Text: "🔵 720P", Data: "720p https://psa.re/movie/a-b/"},
			{Text: "🟠 1080P", Data: "1080p https://psa.re/movie/a-b/"},
			{Text: "🔴 2160P", Data: "2160p https://psa.re/movie/a-b/"},
		},
		{{Text: "❌ Cancel", Data: "cancel"}},
	}, menus[0])

	assert.Equal(t, "<b>Select an option or resolution for:</b>\nhttps://psa.pm/tv-show/x/", texts[1])
	require.Len(t, menus[1], 3)
	assert.Equal(t, "l1080p https://psa.pm/tv-show/x/", menus[1][1][1].Data)
	assert.Equal(t, "🟠 Latest", menus[1][1][1].Text)
}

func TestHandleMessage_NotAllowed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.auth.EXPECT().Check(ctx, int64(3)).Return(auth.ErrNotAllowed)
	f.messenger.EXPECT().Reply(ctx, int64(1), 2, "<b>⚠️ Error:</b> You are not allowed to use this bot.", gomock.Nil()).Return(nil)

	f.bot.HandleMessage(ctx, bot.Message{ChatID: 1, MessageID: 2, UserID: 3, Text: "https://psa.re/movie/a/"})
}

func TestHandleMessage_FloodWaitSleeps(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.auth.EXPECT().Check(ctx, int64(3)).Return(nil)
	f.messenger.EXPECT().Reply(ctx, int64(1), 2, gomock.Any(), gomock.Any()).
		Return(&bot.FloodWaitError{Wait: 3 * time.Second})

	f.bot.HandleMessage(ctx, bot.Message{ChatID: 1, MessageID: 2, UserID: 3,
		Text: "https://psa.re/movie/a/ https://psa.re/movie/b/"})

	assert.Equal(t, []time.Duration{3 * time.Second}, f.slept)
}

func TestHandleCallback_Cancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.auth.EXPECT().Check(ctx, int64(3)).Return(nil)
	gomock.InOrder(
		f.messenger.EXPECT().Delete(ctx, int64(1), 10).Return(nil),
		f.messenger.EXPECT().AnswerCallback(ctx, "cb", "❌ Cancelled").Return(nil),
	)

	f.bot.HandleCallback(ctx, bot.Callback{ID: "cb", ChatID: 1, MessageID: 10, ReplyToID: 2, UserID: 3, Data: "cancel"})
}

func TestHandleCallback_RepliesWithLinks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	links := []string{
		"https://dl.example/Show-Name-S01E02-720p.torrent",
		"https://dl.example/Show-Name-S01E01-720p.torrent",
	}

	f.auth.EXPECT().Check(ctx, int64(3)).Return(nil)
	f.messenger.EXPECT().Delete(ctx, int64(1), 10).Return(nil)
	f.messenger.EXPECT().AnswerCallback(ctx, "cb", "").Return(nil)
	f.pipeline.EXPECT().Resolve(ctx, int64(3), "https://psa.re/tv-show/show/", "l720p").
		Return(model.Batch{Links: links}, nil)
	f.messenger.EXPECT().Reply(ctx, int64(1), 2, bot.FormatLinks(links), gomock.Nil()).Return(nil)

	f.bot.HandleCallback(ctx, bot.Callback{ID: "cb", ChatID: 1, MessageID: 10, ReplyToID: 2, UserID: 3,
		Data: "l720p https://psa.re/tv-show/show/"})
}

func TestHandleCallback_NoResults(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.auth.EXPECT().Check(ctx, int64(3)).Return(nil)
	f.messenger.EXPECT().Delete(ctx, int64(1), 10).Return(nil)
	f.messenger.EXPECT().AnswerCallback(ctx, "cb", "").Return(nil)
	f.pipeline.EXPECT().Resolve(ctx, int64(3), "https://psa.re/movie/m/", "2160p").
		Return(model.Batch{}, model.ErrNoResults)
	f.messenger.EXPECT().Reply(ctx, int64(1), 2, "<b>⚠️ Error:</b> No results found!", gomock.Nil()).Return(nil)

	f.bot.HandleCallback(ctx, bot.Callback{ID: "cb", ChatID: 1, MessageID: 10, ReplyToID: 2, UserID: 3,
		Data: "2160p https://psa.re/movie/m/"})
}

func TestHandleCallback_FloodWaitMidPipeline(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.auth.EXPECT().Check(ctx, int64(3)).Return(nil)
	f.messenger.EXPECT().Delete(ctx, int64(1), 10).Return(nil)
	f.messenger.EXPECT().AnswerCallback(ctx, "cb", "").Return(nil)
	f.pipeline.EXPECT().Resolve(ctx, int64(3), "https://psa.re/movie/m/", "720p").
		Return(model.Batch{}, fmt.Errorf("send: %w", &bot.FloodWaitError{Wait: 5 * time.Second}))
	// ответа с ошибкой нет

	f.bot.HandleCallback(ctx, bot.Callback{ID: "cb", ChatID: 1, MessageID: 10, ReplyToID: 2, UserID: 3,
		Data: "720p https://psa.re/movie/m/"})

	assert.Equal(t, []time.Duration{5 * time.Second}, f.slept)
}

func TestHandleCallback_NotAllowed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.auth.EXPECT().Check(ctx, int64(3)).Return(auth.ErrNotAllowed)
	f.messenger.EXPECT().AnswerCallback(ctx, "cb", "You are not allowed to use this bot.").Return(nil)

	f.bot.HandleCallback(ctx, bot.Callback{ID: "cb", ChatID: 1, MessageID: 10, ReplyToID: 2, UserID: 3,
		Data: "720p https://psa.re/movie/m/"})
}

func TestHandleCallback_LongLinkThroughRegistry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	link := "https://psa.re/tv-show/" + strings.Repeat("very-long-show-name-", 4) + "/"

	f.auth.EXPECT().Check(gomock.Any(), gomock.Any()).Return(nil).Times(2)

	var menu bot.Menu
	f.messenger.EXPECT().Reply(ctx, int64(1), 2, gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ int64, _ int, _ string, m bot.Menu) error {
			menu = m
			return nil
		})
	f.bot.HandleMessage(ctx, bot.Message{ChatID: 1, MessageID: 2, UserID: 3, Text: link})

	require.Len(t, menu, 3)
	data := menu[1][2].Data
	assert.LessOrEqual(t, len(data), bot.MaxCallbackData)

	f.messenger.EXPECT().Delete(ctx, int64(1), 10).Return(nil)
	f.messenger.EXPECT().AnswerCallback(ctx, "cb", "").Return(nil)
	f.pipeline.EXPECT().Resolve(ctx, int64(3), link, "l2160p").Return(model.Batch{}, model.ErrNoResults)
	f.messenger.EXPECT().Reply(ctx, int64(1), 2, gomock.Any(), gomock.Nil()).Return(nil)

	f.bot.HandleCallback(ctx, bot.Callback{ID: "cb", ChatID: 1, MessageID: 10, ReplyToID: 2, UserID: 3, Data: data})
}

func TestHandleCallback_FloodWaitDuringAuthSleeps(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.auth.EXPECT().Check(ctx, int64(3)).
		Return(fmt.Errorf("membership check: %w", &bot.FloodWaitError{Wait: 5 * time.Second}))
	// ни алерта, ни ответа в чат

	f.bot.HandleCallback(ctx, bot.Callback{ID: "cb", ChatID: 1, MessageID: 10, ReplyToID: 2, UserID: 3,
		Data: "720p https://psa.re/movie/m/"})

	assert.Equal(t, []time.Duration{5 * time.Second}, f.slept)
}

func TestHandleCallback_StaleQueryStillResolves(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	links := []string{"https://dl.example/Movie-2160p.torrent"}

	f.auth.EXPECT().Check(ctx, int64(3)).Return(nil)
	gomock.InOrder(
		f.messenger.EXPECT().Delete(ctx, int64(1), 10).Return(nil),
		f.messenger.EXPECT().AnswerCallback(ctx, "cb", "").Return(errors.New("query is too old")),
		f.pipeline.EXPECT().Resolve(ctx, int64(3), "https://psa.re/movie/m/", "2160p").
			Return(model.Batch{Links: links}, nil),
		f.messenger.EXPECT().Reply(ctx, int64(1), 2, bot.FormatLinks(links), gomock.Nil()).Return(nil),
	)

	f.bot.HandleCallback(ctx, bot.Callback{ID: "cb", ChatID: 1, MessageID: 10, ReplyToID: 2, UserID: 3,
		Data: "2160p https://psa.re/movie/m/"})
}
