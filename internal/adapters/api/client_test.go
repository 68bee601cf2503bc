package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bnema/jules-cli/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient(Config{
		BaseURL:    server.URL,
		APIKey:     "test-key",
		HTTPClient: server.Client(),
	})
	return client, server
}

func TestRequestWithoutAPIKeyFailsBeforeNetwork(t *testing.T) {
	var calls atomic.Int64
	_, server := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
	}))

	client := NewClient(Config{BaseURL: server.URL, HTTPClient: server.Client()})

	_, err := client.GetSession(context.Background(), "s-1")
	require.Error(t, err)

	var authErr *domain.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Contains(t, authErr.Message, "API key not set")
	assert.Equal(t, int64(0), calls.Load())
}

func TestRequestAttachesAuthHeaders(t *testing.T) {
	var gotKey, gotAgent string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-Goog-Api-Key")
		gotAgent = r.Header.Get("User-Agent")
		_ = json.NewEncoder(w).Encode(domain.Session{Name: "sessions/s-1"})
	}))

	_, err := client.GetSession(context.Background(), "s-1")
	require.NoError(t, err)
	assert.Equal(t, "test-key", gotKey)
	assert.Contains(t, gotAgent, "jules-cli/")
}

func TestAuthFailureIsNotRetried(t *testing.T) {
	var calls atomic.Int64
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"API key rejected"}}`))
	}))

	_, err := client.GetSession(context.Background(), "s-1")

	var authErr *domain.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Contains(t, authErr.Message, "API key rejected")
	assert.Equal(t, int64(1), calls.Load())
}

func TestValidationFailureIsNotRetriedAndDoesNotWait(t *testing.T) {
	var calls atomic.Int64
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"prompt is required"}}`))
	}))

	start := time.Now()
	_, err := client.CreateSession(context.Background(), "", "sources/src-1", domain.CreateSessionConfig{})
	elapsed := time.Since(start)

	var validationErr *domain.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Contains(t, validationErr.Message, "prompt is required")
	assert.Equal(t, int64(1), calls.Load())
	assert.Less(t, elapsed, retryBaseDelay)
}

func TestMissingSessionMapsToSentinelWithoutRetry(t *testing.T) {
	var calls atomic.Int64
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"message":"session does not exist"}}`))
	}))

	_, err := client.GetSession(context.Background(), "s-1")
	require.ErrorIs(t, err, domain.ErrSessionNotFound)
	assert.Equal(t, int64(1), calls.Load())
}

func TestDeleteMissingSessionSucceeds(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	require.NoError(t, client.DeleteSession(context.Background(), "s-1"))
}

func TestServerErrorRetriesWithExponentialBackoff(t *testing.T) {
	var stamps []time.Time
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		stamps = append(stamps, time.Now())
		w.WriteHeader(http.StatusInternalServerError)
	}))

	_, err := client.GetSession(context.Background(), "s-1")
	require.Error(t, err)

	var netErr *domain.NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Contains(t, netErr.Message, "after 3 attempts")

	var serverErr *domain.ServerError
	require.ErrorAs(t, err, &serverErr)
	assert.Equal(t, http.StatusInternalServerError, serverErr.StatusCode)

	require.Len(t, stamps, 3)
	firstGap := stamps[1].Sub(stamps[0])
	secondGap := stamps[2].Sub(stamps[1])
	assert.GreaterOrEqual(t, firstGap, 100*time.Millisecond)
	assert.Less(t, firstGap, 190*time.Millisecond)
	assert.GreaterOrEqual(t, secondGap, 200*time.Millisecond)
	assert.Less(t, secondGap, 380*time.Millisecond)
}

func TestServerErrorRecoversWithinAttemptBudget(t *testing.T) {
	var calls atomic.Int64
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(domain.Session{Name: "sessions/s-1", State: domain.StateInProgress})
	}))

	session, err := client.GetSession(context.Background(), "s-1")
	require.NoError(t, err)
	assert.Equal(t, "sessions/s-1", session.Name)
	assert.Equal(t, int64(3), calls.Load())
}

func TestTransportFailureBecomesNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	server.Close()

	client := NewClient(Config{BaseURL: server.URL, APIKey: "test-key"})

	_, err := client.GetSession(context.Background(), "s-1")

	var netErr *domain.NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Contains(t, netErr.Message, "after 3 attempts")
}

func TestRetryWaitHonorsContextCancellation(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.GetSession(ctx, "s-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled))
}

func TestSendMessageAcceptsEmptySuccessBody(t *testing.T) {
	var gotPath, gotBody string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		var payload sendMessageRequest
		_ = json.NewDecoder(r.Body).Decode(&payload)
		gotBody = payload.Prompt
		w.WriteHeader(http.StatusOK)
	}))

	err := client.SendMessage(context.Background(), "s-1", "run the tests again")
	require.NoError(t, err)
	assert.Equal(t, "/sessions/s-1:sendMessage", gotPath)
	assert.Equal(t, "run the tests again", gotBody)
}

func TestApprovePlanOmitsEmptyPlanID(t *testing.T) {
	var rawBody map[string]any
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&rawBody)
	}))

	require.NoError(t, client.ApprovePlan(context.Background(), "sessions/s-1", ""))
	assert.NotContains(t, rawBody, "planId")

	require.NoError(t, client.ApprovePlan(context.Background(), "sessions/s-1", "plan-7"))
	assert.Equal(t, "plan-7", rawBody["planId"])
}

func TestUpdateSessionSendsFieldMask(t *testing.T) {
	var gotMask string
	var gotBody updateSessionRequest
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMask = r.URL.Query().Get("updateMask")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(domain.Session{Name: "sessions/s-1", Title: "renamed"})
	}))

	title := "renamed"
	session, err := client.UpdateSession(context.Background(), "s-1", domain.SessionUpdate{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "title", gotMask)
	require.NotNil(t, gotBody.Title)
	assert.Equal(t, "renamed", *gotBody.Title)
	assert.Equal(t, "renamed", session.Title)
}

func TestUpdateSessionRejectsEmptyUpdate(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Fatal("no request expected")
	}))

	_, err := client.UpdateSession(context.Background(), "s-1", domain.SessionUpdate{})

	var validationErr *domain.ValidationError
	require.ErrorAs(t, err, &validationErr)
}

func TestSessionNameNormalization(t *testing.T) {
	var paths []string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		_ = json.NewEncoder(w).Encode(domain.Session{Name: "sessions/s-1"})
	}))

	_, err := client.GetSession(context.Background(), "s-1")
	require.NoError(t, err)
	_, err = client.GetSession(context.Background(), "sessions/s-1")
	require.NoError(t, err)

	assert.Equal(t, []string{"/sessions/s-1", "/sessions/s-1"}, paths)
}
