package selection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Totarae/psabot/internal/model"
)

func TestParse(t *testing.T) {
	tests := []struct {
		code string
		want Selection
	}{
		{"720p", Selection{Code: "720p", Quality: "720p"}},
		{"l1080p", Selection{Code: "l1080p", Latest: true, Quality: "1080p"}},
		{"l", Selection{Code: "l", Latest: true, Quality: ""}},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			got, err := Parse(tt.code)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := Parse("")
	assert.ErrorIs(t, err, ErrEmptySelection)
}

func run(t *testing.T, code string, links []string) ([]string, []model.Outcome) {
	t.Helper()
	sel, err := Parse(code)
	require.NoError(t, err)
	f := NewFilter(sel)

	var accepted []string
	var outcomes []model.Outcome
	for _, l := range links {
		if f.Stopped() {
			break
		}
		out, _ := f.Test(l)
		outcomes = append(outcomes, out)
		if out == model.OutcomeAccepted {
			accepted = append(accepted, l)
		}
	}
	return accepted, outcomes
}

func TestFilter_QualitySubstringKeepsPageOrder(t *testing.T) {
	links := []string{
		"https://dl.example/Movie-Name-2160p.torrent",
		"https://dl.example/Movie-Name-1080p.torrent",
		"https://dl.example/Movie-Name-Extended-1080p.torrent",
		"https://dl.example/Movie-Name-720p.torrent",
	}
	accepted, outcomes := run(t, "1080p", links)

	assert.Equal(t, []string{links[1], links[2]}, accepted)
	assert.Equal(t, []model.Outcome{
		model.OutcomeNoMatch, model.OutcomeAccepted, model.OutcomeAccepted, model.OutcomeNoMatch,
	}, outcomes)
}

func TestFilter_QualityNoMatch(t *testing.T) {
	accepted, _ := run(t, "2160p", []string{"https://dl.example/Movie-720p.torrent"})
	assert.Empty(t, accepted)
}

// Продолжение серии сравнивается с одним символом текущей ссылки, а не с названием
// предыдущей: две серии одного сериала подряд не проходят.
func TestFilter_LatestStopsAfterFirstForRealTitles(t *testing.T) {
	links := []string{
		"https://dl.example/Show-Name-2160p.torrent",
		"https://dl.example/Show-Name-S02E05-720p.torrent",
		"https://dl.example/Show-Name-S02E04-720p.torrent",
		"https://dl.example/Show-Name-S02E03-720p.torrent",
	}
	accepted, outcomes := run(t, "l720p", links)

	assert.Equal(t, []string{links[1]}, accepted)
	assert.Equal(t, []model.Outcome{
		model.OutcomeNoMatch, model.OutcomeAccepted, model.OutcomeStopped,
	}, outcomes)
}

func TestFilter_LatestContinuesOnEmptyTitle(t *testing.T) {
	links := []string{
		"https://dl.example/Show-S01E02-720p.torrent",
		"https://dl.example/720p.torrent",
		"https://dl.example/t-720p.torrent",
		"https://dl.example/Other-720p.torrent",
		"https://dl.example/Show-S01E01-720p.torrent",
	}
	accepted, outcomes := run(t, "l720p", links)

	// "" содержится в любом символе, "t" совпадает с символом links[2][1].
	assert.Equal(t, links[:3], accepted)
	assert.Equal(t, model.OutcomeStopped, outcomes[3])
	assert.Len(t, outcomes, 4)
}

func TestFilter_LatestSkipsOtherQualitiesWithoutBreakingRun(t *testing.T) {
	links := []string{
		"https://dl.example/Show-S01E02-1080p.torrent",
		"https://dl.example/Show-S01E02-720p.torrent",
		"https://dl.example/Show-S01E01-1080p.torrent",
	}
	accepted, outcomes := run(t, "l720p", links)

	assert.Equal(t, []string{links[1]}, accepted)
	assert.Equal(t, []model.Outcome{
		model.OutcomeNoMatch, model.OutcomeAccepted, model.OutcomeNoMatch,
	}, outcomes)
}

func TestFilter_LatestWithoutTitleSegment(t *testing.T) {
	sel, err := Parse("l720p")
	require.NoError(t, err)
	f := NewFilter(sel)

	out, err := f.Test("magnet:720p")
	assert.Equal(t, model.OutcomeTitleUnavailable, out)
	assert.ErrorIs(t, err, ErrTitleUnavailable)
	assert.Zero(t, f.Accepted())
	assert.False(t, f.Stopped())
}

func TestFilter_AfterStopEverythingStops(t *testing.T) {
	sel, err := Parse("l720p")
	require.NoError(t, err)
	f := NewFilter(sel)

	_, _ = f.Test("https://dl.example/A-S01E02-720p")
	out, _ := f.Test("https://dl.example/A-S01E01-720p")
	require.Equal(t, model.OutcomeStopped, out)

	out, _ = f.Test("https://dl.example/720p")
	assert.Equal(t, model.OutcomeStopped, out)
}
