// File: pkg/query/set_test.go
package query

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/webstep/pkg/browser"
)

// -- Test doubles --

// recordingQuerier answers from a fixed table and records every expression
// it is asked to evaluate.
type recordingQuerier struct {
	mu      sync.Mutex
	results map[string][]browser.Element
	err     error
	calls   []string
}

func newRecordingQuerier() *recordingQuerier {
	return &recordingQuerier{results: make(map[string][]browser.Element)}
}

func (r *recordingQuerier) FindElements(_ context.Context, xpath string) ([]browser.Element, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, xpath)
	if r.err != nil {
		return nil, r.err
	}
	return r.results[xpath], nil
}

func (r *recordingQuerier) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

// mockElement is a testify mock satisfying browser.Element.
type mockElement struct {
	mock.Mock
	name string
}

func newMockElement(name string) *mockElement { return &mockElement{name: name} }

func (m *mockElement) FindElements(ctx context.Context, xpath string) ([]browser.Element, error) {
	args := m.Called(ctx, xpath)
	els, _ := args.Get(0).([]browser.Element)
	return els, args.Error(1)
}
func (m *mockElement) Click(ctx context.Context) error { return m.Called(ctx).Error(0) }
func (m *mockElement) Clear(ctx context.Context) error { return m.Called(ctx).Error(0) }
func (m *mockElement) SendKeys(ctx context.Context, text string) error {
	return m.Called(ctx, text).Error(0)
}
func (m *mockElement) Submit(ctx context.Context) error { return m.Called(ctx).Error(0) }
func (m *mockElement) IsSelected(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}
func (m *mockElement) IsDisplayed(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}
func (m *mockElement) IsEnabled(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}
func (m *mockElement) Attribute(ctx context.Context, name string) (string, error) {
	args := m.Called(ctx, name)
	return args.String(0), args.Error(1)
}
func (m *mockElement) Text(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func names(els []browser.Element) []string {
	out := make([]string, 0, len(els))
	for _, el := range els {
		out = append(out, el.(*mockElement).name)
	}
	return out
}

// -- Tests --

func TestFromXPath_IsLazy(t *testing.T) {
	q := newRecordingQuerier()
	s := FromXPath(q, "//a")

	assert.True(t, s.Pending())
	assert.Equal(t, "//a", s.XPath())
	assert.Empty(t, q.Calls(), "constructing a set must not touch the browser")
}

func TestUnion_PendingOperandsBatch(t *testing.T) {
	ctx := context.Background()
	q := newRecordingQuerier()
	a1, b1 := newMockElement("a1"), newMockElement("b1")
	q.results["//a|//b"] = []browser.Element{a1, b1}

	u, err := FromXPath(q, "//a").Union(ctx, FromXPath(q, "//b"))
	require.NoError(t, err)
	assert.True(t, u.Pending())
	assert.Empty(t, q.Calls(), "union of two pending sets makes no call")

	els, err := u.Materialize(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a1", "b1"}, names(els))
	assert.Equal(t, []string{"//a|//b"}, q.Calls())
}

func TestUnion_ChainedPendingOperands(t *testing.T) {
	ctx := context.Background()
	q := newRecordingQuerier()

	u, err := UnionAll(ctx, FromXPath(q, "//a"), nil, FromXPath(q, "//b"), FromXPath(q, "//c"))
	require.NoError(t, err)
	assert.Equal(t, "//a|//b|//c", u.XPath())
	assert.Empty(t, q.Calls())
}

func TestUnion_AfterMaterialization(t *testing.T) {
	ctx := context.Background()
	q := newRecordingQuerier()
	a1, b1, b2 := newMockElement("a1"), newMockElement("b1"), newMockElement("b2")
	q.results["//b"] = []browser.Element{b1, b2}

	left := FromElements(q, []browser.Element{a1})
	right := FromXPath(q, "//b")

	u, err := left.Union(ctx, right)
	require.NoError(t, err)
	assert.False(t, u.Pending())

	els, err := u.Materialize(ctx)
	require.NoError(t, err)
	if diff := cmp.Diff([]string{"a1", "b1", "b2"}, names(els)); diff != "" {
		t.Errorf("union order mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"//b"}, q.Calls())
	assert.False(t, right.Pending(), "the pending operand is materialized in place")
}

func TestUnion_KeepsDuplicates(t *testing.T) {
	ctx := context.Background()
	a1 := newMockElement("a1")

	u, err := FromElements(nil, []browser.Element{a1}).Union(ctx, FromElements(nil, []browser.Element{a1}))
	require.NoError(t, err)
	n, err := u.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestUnion_DifferentQueriersMaterialize(t *testing.T) {
	ctx := context.Background()
	q1, q2 := newRecordingQuerier(), newRecordingQuerier()
	q1.results["//a"] = []browser.Element{newMockElement("a1")}
	q2.results["//b"] = []browser.Element{newMockElement("b1")}

	u, err := FromXPath(q1, "//a").Union(ctx, FromXPath(q2, "//b"))
	require.NoError(t, err)

	els, err := u.Materialize(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a1", "b1"}, names(els))
	assert.Equal(t, []string{"//a"}, q1.Calls())
	assert.Equal(t, []string{"//b"}, q2.Calls())
}

func TestMaterialize_Idempotent(t *testing.T) {
	ctx := context.Background()
	q := newRecordingQuerier()
	q.results["//a"] = []browser.Element{newMockElement("a1")}
	s := FromXPath(q, "//a")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Materialize(ctx)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	_, err := s.Len(ctx)
	require.NoError(t, err)
	assert.Len(t, q.Calls(), 1, "a set is evaluated at most once")
}

func TestMaterialize_ErrorLeavesSetPending(t *testing.T) {
	ctx := context.Background()
	q := newRecordingQuerier()
	boom := errors.New("connection reset")
	q.err = boom
	s := FromXPath(q, "//a")

	_, err := s.Materialize(ctx)
	assert.ErrorIs(t, err, boom)
	assert.True(t, s.Pending())

	q.err = nil
	_, err = s.Materialize(ctx)
	require.NoError(t, err)
	assert.Len(t, q.Calls(), 2)
}

func TestOrdered_RanksOnEvaluation(t *testing.T) {
	ctx := context.Background()
	q := newRecordingQuerier()
	a1, b1 := newMockElement("a1"), newMockElement("b1")
	q.results["//a|//b"] = []browser.Element{a1, b1}

	var ranked int
	reverse := func(_ context.Context, els []browser.Element) ([]browser.Element, error) {
		ranked++
		return []browser.Element{els[1], els[0]}, nil
	}
	u, err := FromXPath(q, "//a").Union(ctx, FromXPath(q, "//b"))
	require.NoError(t, err)
	s := u.Ordered(reverse)
	assert.True(t, s.Pending())
	assert.Equal(t, 0, ranked)

	first, err := s.First(ctx)
	require.NoError(t, err)
	assert.Same(t, b1, first)
	_, err = s.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, ranked, "the ranking runs once per evaluation")
	assert.Equal(t, []string{"//a|//b"}, q.Calls())
}

func TestOrdered_NotMergedIntoUnion(t *testing.T) {
	ctx := context.Background()
	q := newRecordingQuerier()
	a1, a2, c1 := newMockElement("a1"), newMockElement("a2"), newMockElement("c1")
	q.results["//a"] = []browser.Element{a1, a2}
	q.results["//c"] = []browser.Element{c1}

	reverse := func(_ context.Context, els []browser.Element) ([]browser.Element, error) {
		return []browser.Element{els[1], els[0]}, nil
	}
	u, err := FromXPath(q, "//a").Ordered(reverse).Union(ctx, FromXPath(q, "//c"))
	require.NoError(t, err)

	els, err := u.Materialize(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a2", "a1", "c1"}, names(els))
	assert.Equal(t, []string{"//a", "//c"}, q.Calls())
}

func TestOrdered_RankErrorLeavesSetPending(t *testing.T) {
	ctx := context.Background()
	q := newRecordingQuerier()
	q.results["//a"] = []browser.Element{newMockElement("a1")}
	boom := errors.New("node detached")

	s := FromXPath(q, "//a").Ordered(func(context.Context, []browser.Element) ([]browser.Element, error) {
		return nil, boom
	})
	_, err := s.Materialize(ctx)
	assert.ErrorIs(t, err, boom)
	assert.True(t, s.Pending())
}

func TestOrdered_ResolvedSetUnchanged(t *testing.T) {
	s := FromElements(nil, []browser.Element{newMockElement("a1")})
	assert.Same(t, s, s.Ordered(func(context.Context, []browser.Element) ([]browser.Element, error) {
		t.Fatal("ranking a resolved set")
		return nil, nil
	}))
}

func TestSingle_ForwardsToOnlyElement(t *testing.T) {
	ctx := context.Background()
	el := newMockElement("only")
	el.On("Click", ctx).Return(nil).Once()
	el.On("Attribute", ctx, "value").Return("hello", nil).Once()

	s := FromElements(nil, []browser.Element{el})
	require.NoError(t, s.Click(ctx))
	v, err := s.Attribute(ctx, "value")
	require.NoError(t, err)
	assert.Equal(t, "hello", v)

	el.AssertExpectations(t)
}

func TestSingle_CardinalityErrors(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name  string
		elems []browser.Element
		count int
	}{
		{"empty", nil, 0},
		{"two", []browser.Element{newMockElement("a"), newMockElement("b")}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := FromElements(nil, tt.elems)
			err := s.Click(ctx)

			var ce *browser.CardinalityError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.count, ce.Count)
			for _, el := range tt.elems {
				el.(*mockElement).AssertNotCalled(t, "Click", mock.Anything)
			}
		})
	}
}

func TestAt_IndexError(t *testing.T) {
	ctx := context.Background()
	s := FromElements(nil, []browser.Element{newMockElement("a")})

	el, err := s.At(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, "a", el.(*mockElement).name)

	_, err = s.At(ctx, 1)
	var ie *browser.IndexError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, 1, ie.Index)
	assert.Equal(t, 1, ie.Len)
}

func TestExistsAndFirst(t *testing.T) {
	ctx := context.Background()

	ok, err := Empty().Exists(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = Empty().First(ctx)
	var nf *browser.ElementNotFoundError
	assert.ErrorAs(t, err, &nf)

	empty, err := FromElements(nil, []browser.Element{newMockElement("a")}).IsEmpty(ctx)
	require.NoError(t, err)
	assert.False(t, empty)
}

func TestFilter_PreservesOrder(t *testing.T) {
	ctx := context.Background()
	a, b, c := newMockElement("a"), newMockElement("b"), newMockElement("c")
	a.On("IsDisplayed", ctx).Return(true, nil)
	b.On("IsDisplayed", ctx).Return(false, nil)
	c.On("IsDisplayed", ctx).Return(true, nil)

	s := FromElements(nil, []browser.Element{a, b, c})
	visible, err := s.Filter(ctx, func(ctx context.Context, el browser.Element) (bool, error) {
		return el.IsDisplayed(ctx)
	})
	require.NoError(t, err)

	els, err := visible.Materialize(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, names(els))
}

func TestWithin_QueriesRelativeToSingleElement(t *testing.T) {
	ctx := context.Background()
	parent, child := newMockElement("form"), newMockElement("input")
	parent.On("FindElements", ctx, ".//input").Return([]browser.Element{child}, nil).Once()

	sub, err := FromElements(nil, []browser.Element{parent}).Within(ctx, ".//input")
	require.NoError(t, err)
	els, err := sub.Materialize(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"input"}, names(els))
	parent.AssertExpectations(t)
}

func TestSameQuerier_UncomparableIsDifferent(t *testing.T) {
	a := funcQuerier(func(context.Context, string) ([]browser.Element, error) { return nil, nil })
	assert.False(t, sameQuerier(a, a), "func-typed queriers panic on ==; they must compare unequal")
	q := newRecordingQuerier()
	assert.True(t, sameQuerier(q, q))
	assert.False(t, sameQuerier(nil, nil))
}

type funcQuerier func(context.Context, string) ([]browser.Element, error)

func (f funcQuerier) FindElements(ctx context.Context, xpath string) ([]browser.Element, error) {
	return f(ctx, xpath)
}
