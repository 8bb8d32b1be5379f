package cache

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackwell-systems/codecoach/internal/analysis"
)

func js() analysis.Options {
	return analysis.Options{Language: analysis.LanguageJavaScript}
}

func TestKey(t *testing.T) {
	base := Key("const x = 1;", js())
	assert.Equal(t, base, Key("const x = 1;", js()))
	assert.Equal(t, base, Key("const x = 1;", analysis.Options{Language: "js"}), "aliases share a key")

	assert.NotEqual(t, base, Key("const x = 2;", js()))
	assert.NotEqual(t, base, Key("const x = 1;", analysis.Options{Language: analysis.LanguagePython}))
	assert.NotEqual(t, base, Key("const x = 1;", analysis.Options{Language: analysis.LanguageJavaScript, IncludeSecurity: true}))
	assert.NotEqual(t, base, Key("const x = 1;", analysis.Options{Language: analysis.LanguageJavaScript, IncludePerformanceAnalysis: true}))
	assert.NotEqual(t, base, Key("const x = 1;", analysis.Options{Language: analysis.LanguageJavaScript, UserLevel: analysis.LevelExpert}))
}

func TestGetOrCompute_HitAndMiss(t *testing.T) {
	c := New(10, time.Minute)
	calls := 0
	compute := func() analysis.CodeAnalysis {
		calls++
		return analysis.CodeAnalysis{ID: "a1", Code: "x"}
	}

	got, hit := c.GetOrCompute("x", js(), compute)
	assert.False(t, hit)
	assert.Equal(t, "a1", got.ID)

	got, hit = c.GetOrCompute("x", js(), compute)
	assert.True(t, hit)
	assert.Equal(t, "a1", got.ID)
	assert.Equal(t, 1, calls)

	assert.Equal(t, Stats{Hits: 1, Misses: 1, Size: 1}, c.Stats())
}

func TestGetOrCompute_CollapsesConcurrentMisses(t *testing.T) {
	c := New(10, time.Minute)
	var calls atomic.Int32
	release := make(chan struct{})
	compute := func() analysis.CodeAnalysis {
		calls.Add(1)
		<-release
		return analysis.CodeAnalysis{ID: "shared"}
	}

	var wg sync.WaitGroup
	ids := make([]string, 20)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a, _ := c.GetOrCompute("same", js(), compute)
			ids[i] = a.ID
		}(i)
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, id := range ids {
		assert.Equal(t, "shared", id)
	}
}

func TestGetOrCompute_FailureNotStored(t *testing.T) {
	c := New(10, time.Minute)
	engine := analysis.NewEngine()
	calls := 0
	compute := func() analysis.CodeAnalysis {
		calls++
		return engine.FailureAnalysis("x", analysis.LanguageJavaScript, errors.New("boom"))
	}

	c.GetOrCompute("x", js(), compute)
	c.GetOrCompute("x", js(), compute)
	assert.Equal(t, 2, calls)
	assert.Zero(t, c.Len())
}

func TestGetOrCompute_Expires(t *testing.T) {
	c := New(10, 20*time.Millisecond)
	calls := 0
	compute := func() analysis.CodeAnalysis {
		calls++
		return analysis.CodeAnalysis{}
	}

	c.GetOrCompute("x", js(), compute)
	time.Sleep(60 * time.Millisecond)
	_, hit := c.GetOrCompute("x", js(), compute)
	assert.False(t, hit)
	assert.Equal(t, 2, calls)
}

func TestGetOrCompute_EvictsLeastRecent(t *testing.T) {
	c := New(2, time.Minute)
	compute := func() analysis.CodeAnalysis { return analysis.CodeAnalysis{} }

	c.GetOrCompute("a", js(), compute)
	c.GetOrCompute("b", js(), compute)
	c.GetOrCompute("a", js(), compute)
	c.GetOrCompute("c", js(), compute)

	assert.Equal(t, 2, c.Len())
	_, hit := c.GetOrCompute("a", js(), compute)
	assert.True(t, hit)
	_, hit = c.GetOrCompute("b", js(), compute)
	assert.False(t, hit)
}

func TestPurge(t *testing.T) {
	c := New(0, 0)
	c.GetOrCompute("a", js(), func() analysis.CodeAnalysis { return analysis.CodeAnalysis{} })
	require.Equal(t, 1, c.Len())
	c.Purge()
	assert.Zero(t, c.Len())
}

// --- Analyzer ---

func TestAnalyzer_CachesPlainRequests(t *testing.T) {
	c := New(10, time.Minute)
	a := NewAnalyzer(analysis.NewEngine(), c)

	first := a.Analyze("const x = 5\nconsole.log(x)", js(), nil)
	second := a.Analyze("const x = 5\nconsole.log(x)", js(), nil)

	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, second.Warnings, 2)
	assert.Equal(t, 1, c.Len())
}

func TestAnalyzer_FeedbackContextBypassesCache(t *testing.T) {
	c := New(10, time.Minute)
	a := NewAnalyzer(analysis.NewEngine(), c)
	fctx := &analysis.FeedbackContext{UserProgress: &analysis.UserProgress{CommonMistakes: []string{"semicolon"}}}

	first := a.Analyze("const x = 5", js(), fctx)
	second := a.Analyze("const x = 5", js(), fctx)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Zero(t, c.Len())
}

func TestAnalyzer_NilCache(t *testing.T) {
	a := NewAnalyzer(analysis.NewEngine(), nil)
	first := a.Analyze("const x = 5;", js(), nil)
	second := a.Analyze("const x = 5;", js(), nil)
	assert.NotEqual(t, first.ID, second.ID)
}
