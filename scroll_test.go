package swrcache

import (
	"context"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type page struct {
	Items []int `json:"items"`
	Next  int   `json:"next"` // 0 = last page
}

// pagedSource serves pages of two items up to total.
type pagedSource struct {
	total int
	calls atomic.Int32
	bump  atomic.Int32 // shifts item values to simulate changed data
}

func (p *pagedSource) fetch(_ context.Context, cursor int, _ Request) (Result[page], error) {
	p.calls.Add(1)
	off := int(p.bump.Load())
	pg := page{}
	for i := cursor; i < cursor+2 && i < p.total; i++ {
		pg.Items = append(pg.Items, i+off)
	}
	if cursor+2 < p.total {
		pg.Next = cursor + 2
	}
	return Ok(pg), nil
}

func scroller(last *page) (int, bool) {
	if last == nil {
		return 0, true
	}
	if last.Next == 0 {
		return 0, false
	}
	return last.Next, true
}

func newScrollCore(t *testing.T, clk *mockClock) *Core {
	t.Helper()
	return newTestCore(t, clk, nil, Params{})
}

func TestScrollAppendsUntilEnd(t *testing.T) {
	ctx := context.Background()
	src := &pagedSource{total: 5}
	s := NewScroll(newScrollCore(t, newMockClock()), scroller, src.fetch, ResourceOptions[[]page]{})

	id, err := s.Key()
	require.NoError(t, err)
	require.Equal(t, "scroll:0", id)

	v, err := s.First(ctx)
	require.NoError(t, err)
	require.Len(t, v.Data, 1)
	require.Equal(t, []int{0, 1}, v.Data[0].Items)

	v, err = s.Scroll(ctx)
	require.NoError(t, err)
	require.Len(t, v.Data, 2)
	require.Equal(t, []int{2, 3}, v.Data[1].Items)

	v, err = s.Scroll(ctx)
	require.NoError(t, err)
	require.Len(t, v.Data, 3)
	require.Equal(t, []int{4}, v.Data[2].Items)

	// end of list: no fetch, state unchanged
	calls := src.calls.Load()
	v2, err := s.Scroll(ctx)
	require.NoError(t, err)
	require.Equal(t, calls, src.calls.Load())
	require.Equal(t, v.Data, v2.Data)
}

func TestScrollFirstKeepsPagesWhenFirstPageUnchanged(t *testing.T) {
	ctx := context.Background()
	clk := newMockClock()
	src := &pagedSource{total: 6}
	s := NewScroll(newScrollCore(t, clk), scroller, src.fetch, ResourceOptions[[]page]{})

	_, err := s.First(ctx)
	require.NoError(t, err)
	_, err = s.Scroll(ctx)
	require.NoError(t, err)

	// cooldown gates First but not Scroll
	v, err := s.First(ctx)
	require.NoError(t, err)
	require.Len(t, v.Data, 2)
	require.EqualValues(t, 2, src.calls.Load())

	clk.Advance(2 * time.Second)
	v, err = s.First(ctx)
	require.NoError(t, err)
	require.Len(t, v.Data, 2, "unchanged first page keeps loaded pages")

	src.bump.Store(100)
	v, err = s.Refirst(ctx)
	require.NoError(t, err)
	require.Len(t, v.Data, 1, "changed first page resets the list")
	require.Equal(t, []int{100, 101}, v.Data[0].Items)
}

func TestScrollPublishesUnderRootKey(t *testing.T) {
	ctx := context.Background()
	src := &pagedSource{total: 4}
	s := NewScroll(newScrollCore(t, newMockClock()), scroller, src.fetch, ResourceOptions[[]page]{})

	var lens []int
	sub, err := s.Subscribe(func(v View[[]page]) {
		if !v.Fetching {
			lens = append(lens, len(v.Data))
		}
	})
	require.NoError(t, err)
	defer func() { _ = s.Unsubscribe(ctx, sub) }()

	_, _ = s.First(ctx)
	_, _ = s.Scroll(ctx)
	require.Equal(t, []int{1, 2}, lens)
}

func TestScrollFailureKeepsPages(t *testing.T) {
	ctx := context.Background()
	src := &pagedSource{total: 6}
	fail := false
	fetch := func(ctx context.Context, cursor int, req Request) (Result[page], error) {
		if fail {
			return Err[page](errBoom), nil
		}
		return src.fetch(ctx, cursor, req)
	}
	s := NewScroll(newScrollCore(t, newMockClock()), scroller, fetch, ResourceOptions[[]page]{})

	_, err := s.First(ctx)
	require.NoError(t, err)
	fail = true
	v, err := s.Scroll(ctx)
	require.NoError(t, err)
	require.ErrorIs(t, v.Err, errBoom)
	require.Len(t, v.Data, 1)
}

func TestScrollPersistsPages(t *testing.T) {
	ctx := context.Background()
	clk := newMockClock()
	st := newMemStorage(false)
	src := &pagedSource{total: 4}

	s := NewScroll(newScrollCore(t, clk), scroller, src.fetch, ResourceOptions[[]page]{Storage: st})
	_, _ = s.First(ctx)
	_, _ = s.Scroll(ctx)

	s2 := NewScroll(newScrollCore(t, clk), scroller, src.fetch, ResourceOptions[[]page]{Storage: st})
	v, err := s2.Get(ctx)
	require.NoError(t, err)
	require.Len(t, v.Data, 2)
	require.Equal(t, []int{2, 3}, v.Data[1].Items)
}

func TestScrollMissingKeyAndFetcher(t *testing.T) {
	c := newScrollCore(t, newMockClock())
	none := func(*page) (string, bool) { return "", false }
	s := NewScroll(c, none, func(context.Context, string, Request) (Result[page], error) { return Ok(page{}), nil }, ResourceOptions[[]page]{})
	_, err := s.First(context.Background())
	require.ErrorIs(t, err, ErrMissingKey)

	named := func(last *page) (string, bool) {
		if last == nil {
			return "feed", true
		}
		return strconv.Itoa(last.Next), last.Next != 0
	}
	s2 := NewScroll[string, page](c, named, nil, ResourceOptions[[]page]{})
	_, err = s2.Scroll(context.Background())
	require.ErrorIs(t, err, ErrMissingFetcher)
	id, _ := s2.Key()
	require.Equal(t, "scroll:feed", id)
}
