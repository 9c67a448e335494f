// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package catalog

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ManuGH/streamconnect/internal/probe"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRoot struct {
	id    string
	mu    sync.Mutex
	objs  []Object
	data  map[string][]byte
	err   error
	lists atomic.Int32
	delay time.Duration
}

func (f *fakeRoot) ID() string   { return f.id }
func (f *fakeRoot) Kind() string { return "fake" }

func (f *fakeRoot) List(ctx context.Context) ([]Object, error) {
	f.lists.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return append([]Object(nil), f.objs...), nil
}

func (f *fakeRoot) Open(_ context.Context, key string) (io.ReadCloser, error) {
	d, ok := f.data[key]
	if !ok {
		return nil, errors.New("no such object")
	}
	return io.NopCloser(bytes.NewReader(d)), nil
}

func (f *fakeRoot) set(objs ...Object) {
	f.mu.Lock()
	f.objs = objs
	f.mu.Unlock()
}

type mapProber map[string]float64

func (m mapProber) Duration(_ context.Context, src probe.Source) (float64, error) {
	if d, ok := m[src.Location]; ok {
		return d, nil
	}
	return 0, probe.ErrNoDuration
}

func titles(entries []Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Title)
	}
	return out
}

func TestRefresh_AggregatesRootsInOrder(t *testing.T) {
	r1 := &fakeRoot{id: "storage1", objs: []Object{
		{Key: "b.mp4", Path: "/one/b.mp4", Size: 2},
		{Key: "a.mp4", Path: "/one/a.mp4", Size: 1},
	}}
	r2 := &fakeRoot{id: "storage2", objs: []Object{{Key: "dir/c.mp4", Path: "/two/dir/c.mp4", Size: 3}}}

	c := New([]Root{r1, r2}, Options{Prober: mapProber{"/one/a.mp4": 30}})
	assert.False(t, c.Ready())

	entries, err := c.Refresh(context.Background(), TriggerStartup)
	require.NoError(t, err)
	assert.True(t, c.Ready())
	assert.Equal(t, []string{"a.mp4", "b.mp4", "c.mp4"}, titles(entries))

	want := []Entry{
		{Title: "a.mp4", RootID: "storage1", Key: "a.mp4", Path: "/one/a.mp4", SizeBytes: 1, DurationSeconds: 30},
		{Title: "b.mp4", RootID: "storage1", Key: "b.mp4", Path: "/one/b.mp4", SizeBytes: 2},
		{Title: "c.mp4", RootID: "storage2", Key: "dir/c.mp4", Path: "/two/dir/c.mp4", SizeBytes: 3},
	}
	if diff := cmp.Diff(want, entries, cmpopts.IgnoreFields(Entry{}, "ID")); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}

	seen := map[string]bool{}
	for _, e := range entries {
		require.NotEmpty(t, e.ID)
		assert.False(t, seen[e.ID], "ids must be unique")
		seen[e.ID] = true
	}
}

func TestRefresh_IDsAreStableAcrossRescans(t *testing.T) {
	r := &fakeRoot{id: "s", objs: []Object{{Key: "a.mp4", Size: 1}}}
	c := New([]Root{r}, Options{})

	first, err := c.Refresh(context.Background(), TriggerStartup)
	require.NoError(t, err)
	id := first[0].ID

	r.set(Object{Key: "z.mp4", Size: 1}, Object{Key: "a.mp4", Size: 5})
	second, err := c.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, second, 2)
	assert.Equal(t, id, second[0].ID)
	assert.Equal(t, int64(5), second[0].SizeBytes)

	got, err := c.FindByID(id)
	require.NoError(t, err)
	assert.Equal(t, "a.mp4", got.Title)
}

func TestRefresh_UnreadableRootYieldsEmptyListing(t *testing.T) {
	bad := &fakeRoot{id: "bad", err: errors.New("permission denied")}
	good := &fakeRoot{id: "good", objs: []Object{{Key: "a.mp4", Size: 1}}}
	c := New([]Root{bad, good}, Options{})

	entries, err := c.Refresh(context.Background(), TriggerStartup)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.mp4"}, titles(entries))

	status := c.Status()
	require.Len(t, status, 2)
	assert.Equal(t, RootStatusFailed, status[0].Status)
	assert.Contains(t, status[0].LastError, "permission denied")
	assert.Equal(t, RootStatusOK, status[1].Status)
	assert.Equal(t, 1, status[1].Entries)
}

func TestRefresh_SkipsInvalidObjects(t *testing.T) {
	r := &fakeRoot{id: "s", objs: []Object{{Key: "", Size: 1}, {Key: "neg.mp4", Size: -1}, {Key: "ok.mp4", Size: 1}}}
	c := New([]Root{r}, Options{})

	entries, err := c.Refresh(context.Background(), TriggerStartup)
	require.NoError(t, err)
	assert.Equal(t, []string{"ok.mp4"}, titles(entries))
	assert.Equal(t, RootStatusDegraded, c.Status()[0].Status)
}

func TestRefresh_CoalescesConcurrentCalls(t *testing.T) {
	r := &fakeRoot{id: "s", objs: []Object{{Key: "a.mp4", Size: 1}}, delay: 50 * time.Millisecond}
	c := New([]Root{r}, Options{})

	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Refresh(context.Background(), TriggerConnect)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Less(t, r.lists.Load(), int32(5))
}

func TestRefresh_CallerCancellation(t *testing.T) {
	r := &fakeRoot{id: "s", objs: []Object{{Key: "a.mp4", Size: 1}}, delay: 100 * time.Millisecond}
	c := New([]Root{r}, Options{})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := c.Refresh(ctx, TriggerConnect)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	require.Eventually(t, c.Ready, time.Second, 10*time.Millisecond, "scan keeps running for other callers")
}

func TestFindByID_NotFound(t *testing.T) {
	c := New(nil, Options{})
	_, err := c.FindByID("nope")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = c.Refresh(context.Background(), TriggerStartup)
	require.NoError(t, err)
	_, err = c.FindByID("nope")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, c.Entries())
}

func TestOpen(t *testing.T) {
	r := &fakeRoot{id: "s", objs: []Object{{Key: "a.mp4", Size: 4}}, data: map[string][]byte{"a.mp4": []byte("abcd")}}
	c := New([]Root{r}, Options{})
	entries, err := c.Refresh(context.Background(), TriggerStartup)
	require.NoError(t, err)

	rc, err := c.Open(context.Background(), entries[0])
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "abcd", string(data))

	_, err = c.Open(context.Background(), Entry{RootID: "elsewhere"})
	assert.ErrorIs(t, err, ErrRootUnavailable)
}

func TestTitleFor_NormalizesToNFC(t *testing.T) {
	decomposed := "Cafe\u0301.mp4"
	assert.Equal(t, "Caf\u00e9.mp4", titleFor("dir/"+decomposed))
}
