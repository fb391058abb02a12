package search

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lead-finder/internal/model"
	"github.com/sells-group/lead-finder/pkg/outscraper"
)

type mockClient struct {
	searchCalls atomic.Int32
	getCalls    atomic.Int32
	searchFn    func(ctx context.Context, req outscraper.SearchRequest) (*outscraper.SearchResponse, error)
	getFn       func(ctx context.Context, id string) (*outscraper.RequestResult, error)
}

func (m *mockClient) Search(ctx context.Context, req outscraper.SearchRequest) (*outscraper.SearchResponse, error) {
	m.searchCalls.Add(1)
	return m.searchFn(ctx, req)
}

func (m *mockClient) GetRequest(ctx context.Context, id string) (*outscraper.RequestResult, error) {
	m.getCalls.Add(1)
	return m.getFn(ctx, id)
}

func submitOK(id string) func(context.Context, outscraper.SearchRequest) (*outscraper.SearchResponse, error) {
	return func(context.Context, outscraper.SearchRequest) (*outscraper.SearchResponse, error) {
		return &outscraper.SearchResponse{ID: id, Status: model.StatusPending}, nil
	}
}

func rawResults(placeIDs ...string) json.RawMessage {
	entries := make([]string, len(placeIDs))
	for i, id := range placeIDs {
		entries[i] = fmt.Sprintf(`{"place_id":%q,"name":"Biz %s"}`, id, id)
	}
	return json.RawMessage(fmt.Sprintf(`[[%s]]`, strings.Join(entries, ",")))
}

func TestSession_SubmitEmptyQuery(t *testing.T) {
	client := &mockClient{}
	s := NewSession(client, outscraper.SearchRequest{})

	err := s.Submit(context.Background(), "   ")
	require.ErrorIs(t, err, ErrEmptyQuery)

	snap := s.Snapshot()
	assert.Equal(t, StateIdle, snap.State)
	assert.Equal(t, "Please enter a search query.", snap.Err)
	assert.Zero(t, client.searchCalls.Load(), "empty query must not reach the vendor")
}

func TestSession_SubmitToSuccess(t *testing.T) {
	client := &mockClient{
		searchFn: submitOK("req-1"),
		getFn: func(_ context.Context, id string) (*outscraper.RequestResult, error) {
			return &outscraper.RequestResult{ID: id, Status: model.StatusSuccess, Data: rawResults("p1", "p2")}, nil
		},
	}
	s := NewSession(client, outscraper.SearchRequest{Limit: 10}, WithInterval(10*time.Millisecond))

	require.NoError(t, s.Submit(context.Background(), "plumbers"))
	require.NoError(t, s.Wait(context.Background()))

	snap := s.Snapshot()
	assert.Equal(t, StateDoneSuccess, snap.State)
	assert.Equal(t, "req-1", snap.RequestID)
	assert.Equal(t, model.StatusSuccess, snap.Status)
	assert.Empty(t, snap.Err)
	require.Equal(t, 2, snap.Total)
	assert.Equal(t, "p1", snap.Rows[0].PlaceID)
	assert.Equal(t, "p2", snap.Rows[1].PlaceID)
}

func TestSession_PollsUntilTerminal(t *testing.T) {
	client := &mockClient{searchFn: submitOK("req-1")}
	client.getFn = func(_ context.Context, id string) (*outscraper.RequestResult, error) {
		if client.getCalls.Load() < 3 {
			return &outscraper.RequestResult{ID: id, Status: model.StatusPending}, nil
		}
		return &outscraper.RequestResult{ID: id, Status: model.StatusSuccess, Data: rawResults("p1")}, nil
	}
	s := NewSession(client, outscraper.SearchRequest{}, WithInterval(5*time.Millisecond))

	require.NoError(t, s.Submit(context.Background(), "roofers"))
	require.NoError(t, s.Wait(context.Background()))

	assert.GreaterOrEqual(t, client.getCalls.Load(), int32(3))
	assert.Equal(t, StateDoneSuccess, s.Snapshot().State)
}

func TestSession_UnknownStatusKeepsPolling(t *testing.T) {
	client := &mockClient{searchFn: submitOK("req-1")}
	client.getFn = func(_ context.Context, id string) (*outscraper.RequestResult, error) {
		if client.getCalls.Load() < 2 {
			return &outscraper.RequestResult{ID: id, Status: "Queued"}, nil
		}
		return &outscraper.RequestResult{ID: id, Status: model.StatusSuccess, Data: rawResults("p1")}, nil
	}
	s := NewSession(client, outscraper.SearchRequest{}, WithInterval(5*time.Millisecond))

	require.NoError(t, s.Submit(context.Background(), "dentists"))
	require.NoError(t, s.Wait(context.Background()))

	assert.Equal(t, StateDoneSuccess, s.Snapshot().State)
}

func TestSession_Failure(t *testing.T) {
	client := &mockClient{
		searchFn: submitOK("req-1"),
		getFn: func(_ context.Context, id string) (*outscraper.RequestResult, error) {
			return &outscraper.RequestResult{ID: id, Status: model.StatusFailure}, nil
		},
	}
	s := NewSession(client, outscraper.SearchRequest{}, WithInterval(5*time.Millisecond))

	require.NoError(t, s.Submit(context.Background(), "bakeries"))
	require.NoError(t, s.Wait(context.Background()))

	snap := s.Snapshot()
	assert.Equal(t, StateDoneFailure, snap.State)
	assert.Equal(t, "The search request failed. Please try again.", snap.Err)
	assert.Zero(t, snap.Total)
}

func TestSession_SubmitError(t *testing.T) {
	client := &mockClient{
		searchFn: func(context.Context, outscraper.SearchRequest) (*outscraper.SearchResponse, error) {
			return nil, &outscraper.APIError{StatusCode: 500, Body: "boom"}
		},
	}
	s := NewSession(client, outscraper.SearchRequest{})

	err := s.Submit(context.Background(), "plumbers")
	require.Error(t, err)

	snap := s.Snapshot()
	assert.Equal(t, StateErrored, snap.State)
	assert.Equal(t, "Failed to initiate search.", snap.Err)
	assert.Zero(t, client.getCalls.Load())

	// The failed cycle is already terminal, so Wait returns immediately.
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Wait(ctx))
}

func TestSession_PollError(t *testing.T) {
	client := &mockClient{
		searchFn: submitOK("req-1"),
		getFn: func(context.Context, string) (*outscraper.RequestResult, error) {
			return nil, &outscraper.APIError{StatusCode: 502, Body: "bad gateway"}
		},
	}
	s := NewSession(client, outscraper.SearchRequest{}, WithInterval(5*time.Millisecond))

	require.NoError(t, s.Submit(context.Background(), "plumbers"))
	require.NoError(t, s.Wait(context.Background()))

	snap := s.Snapshot()
	assert.Equal(t, StateErrored, snap.State)
	assert.Equal(t, "An error occurred while fetching results.", snap.Err)
}

func TestSession_ResubmitDiscardsStalePoll(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	client := &mockClient{}
	client.searchFn = func(context.Context, outscraper.SearchRequest) (*outscraper.SearchResponse, error) {
		return &outscraper.SearchResponse{
			ID:     fmt.Sprintf("req-%d", client.searchCalls.Load()),
			Status: model.StatusPending,
		}, nil
	}
	client.getFn = func(_ context.Context, id string) (*outscraper.RequestResult, error) {
		if id == "req-1" {
			close(entered)
			<-release
			return &outscraper.RequestResult{ID: id, Status: model.StatusSuccess, Data: rawResults("stale")}, nil
		}
		return &outscraper.RequestResult{ID: id, Status: model.StatusSuccess, Data: rawResults("fresh")}, nil
	}
	s := NewSession(client, outscraper.SearchRequest{}, WithInterval(time.Minute))

	firstDone := make(chan error, 1)
	go func() {
		firstDone <- s.Submit(context.Background(), "first query")
	}()
	<-entered

	// Second submit supersedes the first cycle while its poll is in flight.
	require.NoError(t, s.Submit(context.Background(), "second query"))
	close(release)
	require.NoError(t, <-firstDone)

	snap := s.Snapshot()
	assert.Equal(t, StateDoneSuccess, snap.State)
	assert.Equal(t, "req-2", snap.RequestID)
	require.Equal(t, 1, snap.Total)
	assert.Equal(t, "fresh", snap.Rows[0].PlaceID, "stale results must not replace the newer cycle's")
}

func TestSession_StopDisarmsTimer(t *testing.T) {
	client := &mockClient{
		searchFn: submitOK("req-1"),
		getFn: func(_ context.Context, id string) (*outscraper.RequestResult, error) {
			return &outscraper.RequestResult{ID: id, Status: model.StatusPending}, nil
		},
	}
	s := NewSession(client, outscraper.SearchRequest{}, WithInterval(5*time.Millisecond))

	require.NoError(t, s.Submit(context.Background(), "plumbers"))
	s.Stop()

	// An already in-flight poll may still land; let it settle first.
	time.Sleep(20 * time.Millisecond)
	settled := client.getCalls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, settled, client.getCalls.Load(), "no polls after Stop")
}

func TestSession_StopUnblocksWait(t *testing.T) {
	client := &mockClient{
		searchFn: submitOK("req-1"),
		getFn: func(_ context.Context, id string) (*outscraper.RequestResult, error) {
			return &outscraper.RequestResult{ID: id, Status: model.StatusPending}, nil
		},
	}
	s := NewSession(client, outscraper.SearchRequest{}, WithInterval(time.Minute))

	require.NoError(t, s.Submit(context.Background(), "plumbers"))

	waited := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		waited <- s.Wait(ctx)
	}()

	s.Stop()

	select {
	case err := <-waited:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after Stop")
	}

	assert.Equal(t, StateIdle, s.Snapshot().State)
	s.Stop() // second Stop must be a no-op, not a double close
}

func TestSession_SuccessDropsKeylessCandidates(t *testing.T) {
	data := json.RawMessage(`[[{"place_id":"p1","name":"Kept"},{"name":"No Key"},{"place_id":"  ","name":"Blank Key"}]]`)
	client := &mockClient{
		searchFn: submitOK("req-1"),
		getFn: func(_ context.Context, id string) (*outscraper.RequestResult, error) {
			return &outscraper.RequestResult{ID: id, Status: model.StatusSuccess, Data: data}, nil
		},
	}
	s := NewSession(client, outscraper.SearchRequest{}, WithInterval(5*time.Millisecond))

	require.NoError(t, s.Submit(context.Background(), "plumbers"))
	require.NoError(t, s.Wait(context.Background()))

	snap := s.Snapshot()
	require.Equal(t, 1, snap.Total)
	assert.Equal(t, "p1", snap.Rows[0].PlaceID)
}

func TestSession_WaitWithoutSubmit(t *testing.T) {
	s := NewSession(&mockClient{}, outscraper.SearchRequest{})
	require.NoError(t, s.Wait(context.Background()))
}
