package review

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/eliseohh/grammarbot/internal/chatconfig"
	"github.com/eliseohh/grammarbot/internal/grammar"
	"github.com/eliseohh/grammarbot/internal/metrics"
)

type fakeChecker struct {
	alg      chatconfig.Algorithm
	detected chatconfig.Language
	result   []grammar.Correction
	err      error

	gotText string
	gotLang chatconfig.Language
	calls   int
}

func (f *fakeChecker) Algorithm() chatconfig.Algorithm { return f.alg }

func (f *fakeChecker) DetectLanguage(context.Context, string) (chatconfig.Language, error) {
	return f.detected, nil
}

func (f *fakeChecker) Check(_ context.Context, text string, lang chatconfig.Language, _ chatconfig.Strictness) ([]grammar.Correction, error) {
	f.calls++
	f.gotText = text
	f.gotLang = lang
	return f.result, f.err
}

func newReviewer(c grammar.Checker) *Reviewer {
	return NewReviewer(grammar.NewRegistry(c), metrics.New(), nil)
}

func TestReview(t *testing.T) {
	fc := &fakeChecker{
		alg:      chatconfig.LanguageToolAPI,
		detected: chatconfig.Spanish,
		result: []grammar.Correction{
			{Word: "ola", Suggestions: []string{"hola"}, Message: "Possible spelling mistake"},
			{Word: "Golang", Suggestions: []string{"Go lang"}, Message: "x"},
			{Word: "que", Suggestions: []string{"Que"}, Minor: true},
		},
	}
	rv := newReviewer(fc)

	cfg := chatconfig.Default("telegram:1")
	cfg.Whitelist = []string{"golang"}

	r, err := rv.Review(context.Background(), cfg, "ola @someone que tal #go https://go.dev")
	require.NoError(t, err)
	assert.Equal(t, "ola que tal", fc.gotText)
	assert.Equal(t, chatconfig.Spanish, fc.gotLang)
	assert.Equal(t, chatconfig.Spanish, r.Language)
	assert.Equal(t, "*hola [Possible spelling mistake]\n*Que", r.Reply())

	cfg.HideDetails = true
	cfg.Strictness = chatconfig.Tolerant
	r, err = rv.Review(context.Background(), cfg, "ola que tal")
	require.NoError(t, err)
	assert.Equal(t, "*hola", r.Reply())
}

func TestReviewSkips(t *testing.T) {
	fc := &fakeChecker{alg: chatconfig.LanguageToolAPI}
	rv := newReviewer(fc)

	t.Run("stopped", func(t *testing.T) {
		cfg := chatconfig.Default("telegram:1")
		cfg.Stopped = true
		r, err := rv.Review(context.Background(), cfg, "some text")
		require.NoError(t, err)
		assert.True(t, r.Empty())
	})

	t.Run("nothing left after sanitising", func(t *testing.T) {
		r, err := rv.Review(context.Background(), chatconfig.Default("telegram:1"), "@bob https://example.com 😀")
		require.NoError(t, err)
		assert.True(t, r.Empty())
	})

	assert.Zero(t, fc.calls)
}

func TestReviewErrors(t *testing.T) {
	cfg := chatconfig.Default("discord:9")
	cfg.Language = chatconfig.German

	unsupported := &fakeChecker{alg: chatconfig.LanguageToolAPI, err: grammar.ErrUnsupportedLanguage}
	r, err := newReviewer(unsupported).Review(context.Background(), cfg, "Guten Tag")
	require.NoError(t, err)
	assert.True(t, r.Empty())

	boom := errors.New("boom")
	failing := &fakeChecker{alg: chatconfig.LanguageToolAPI, err: boom}
	_, err = newReviewer(failing).Review(context.Background(), cfg, "Guten Tag")
	assert.ErrorIs(t, err, boom)

	_, err = NewReviewer(grammar.NewRegistry(), nil, nil).Review(context.Background(), cfg, "Guten Tag")
	assert.Error(t, err)
}

func TestPool(t *testing.T) {
	defer goleak.VerifyNone(t)

	p := NewPool(2, 10, nil)
	var done atomic.Int32
	for i := 0; i < 10; i++ {
		require.NoError(t, p.Submit(func() { done.Add(1) }))
	}
	p.Close()
	assert.Equal(t, int32(10), done.Load())
	assert.ErrorIs(t, p.Submit(func() {}), ErrPoolClosed)
}

func TestPoolFull(t *testing.T) {
	defer goleak.VerifyNone(t)

	p := NewPool(1, 1, nil)
	started := make(chan struct{})
	release := make(chan struct{})

	require.NoError(t, p.Submit(func() {
		close(started)
		<-release
	}))
	<-started

	require.NoError(t, p.Submit(func() {}))
	assert.ErrorIs(t, p.Submit(func() {}), ErrPoolFull)

	close(release)
	p.Close()
}

func TestPoolRecoversPanics(t *testing.T) {
	defer goleak.VerifyNone(t)

	p := NewPool(1, 2, nil)
	var ran atomic.Bool
	require.NoError(t, p.Submit(func() { panic("bad job") }))
	require.NoError(t, p.Submit(func() { ran.Store(true) }))
	p.Close()
	assert.True(t, ran.Load())
}

func TestReviewShortMessageKeepsAutoLanguage(t *testing.T) {
	var langs []string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		langs = append(langs, r.PostForm.Get("lang"))
		fmt.Fprint(w, `[{"code":1,"pos":0,"len":7,"word":"tomorow","s":["tomorrow"]}]`)
	}))
	defer ts.Close()

	rv := NewReviewer(grammar.NewRegistry(grammar.NewYandexChecker(ts.URL, 0)), nil, nil)
	cfg := chatconfig.Default("telegram:1")
	cfg.Algorithm = chatconfig.YandexSpellerAPI

	r, err := rv.Review(context.Background(), cfg, "tomorow")
	require.NoError(t, err)
	assert.Equal(t, chatconfig.Auto, r.Language)
	assert.Equal(t, "*tomorrow [Unknown word]", r.Reply())

	_, err = rv.Review(context.Background(), cfg, "he come late")
	require.NoError(t, err)
	assert.Equal(t, []string{"en,ru", "en,ru"}, langs)
}
