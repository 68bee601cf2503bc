package status

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/jules-cli/internal/application"
	"github.com/bnema/jules-cli/internal/domain"
)

func TestRenderSessionList(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	output, err := Render(ViewData{
		Sessions: []domain.Session{
			{
				Name:       "sessions/abc",
				Title:      "Fix flaky watcher test",
				State:      domain.StateInProgress,
				UpdateTime: "2026-08-30T11:45:00Z",
			},
			{
				Name:       "sessions/def",
				Prompt:     "Add retries to the uploader",
				State:      domain.StateCompleted,
				UpdateTime: "2026-08-29T09:00:00Z",
				Outputs: []domain.Output{
					{PullRequest: &domain.PullRequestOutput{URL: "https://github.com/o/r/pull/7", Number: 7}},
				},
			},
		},
	}, RenderOptions{Now: now})

	require.NoError(t, err)
	assert.Contains(t, output, "sessions: 2")
	assert.Contains(t, output, "Fix flaky watcher test")
	assert.Contains(t, output, "in_progress")
	assert.Contains(t, output, "completed")
	assert.Contains(t, output, "Add retries to the uploader")
	assert.Contains(t, output, "15m ago")
	assert.Contains(t, output, "https://github.com/o/r/pull/7")
}

func TestRenderEmptySessionList(t *testing.T) {
	output, err := Render(ViewData{}, RenderOptions{})
	require.NoError(t, err)
	assert.Contains(t, output, "sessions: 0")
	assert.Contains(t, output, "No sessions")
}

func TestRenderWatchSection(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	output, err := Render(ViewData{
		Watch: &application.WatchStatus{
			SessionName:      "sessions/abc",
			State:            domain.StateAwaitingPlanApproval,
			Phase:            domain.PhaseWaiting,
			NewActivityCount: 3,
			LastSyncedAt:     now.Add(-2 * time.Second),
		},
	}, RenderOptions{Now: now})

	require.NoError(t, err)
	assert.Contains(t, output, "Watching sessions/abc")
	assert.Contains(t, output, "awaiting_plan_approval")
	assert.Contains(t, output, "new activities: 3")
	assert.Contains(t, output, "waiting on you")
}

func TestRenderCacheSection(t *testing.T) {
	output, err := Render(ViewData{
		Cache: &domain.CacheStats{
			TotalSizeBytes: 2048,
			EntryCount:     4,
			HitCount:       9,
			MissCount:      1,
			LastPrunedAt:   time.Date(2026, 8, 30, 11, 0, 0, 0, time.UTC),
		},
	}, RenderOptions{})

	require.NoError(t, err)
	assert.Contains(t, output, "entries")
	assert.Contains(t, output, "2.0 KiB")
	assert.Contains(t, output, "90% (9 hits, 1 misses)")
	assert.Contains(t, output, "2026-08-30T11:00:00Z")
}

func TestRenderActivityLines(t *testing.T) {
	lines := RenderActivityLines([]domain.Activity{
		{
			Name:        "sessions/a/activities/1",
			CreateTime:  "2026-08-30T10:00:00Z",
			UserMessage: &domain.UserMessage{Prompt: "please add tests"},
		},
		{
			Name:          "sessions/a/activities/2",
			CreateTime:    "2026-08-30T10:01:00Z",
			PlanGenerated: &domain.PlanGenerated{PlanID: "plan-1", Steps: []domain.PlanStep{{Title: "one"}, {Title: "two"}}},
		},
		{
			Name:          "sessions/a/activities/3",
			CreateTime:    "2026-08-30T10:05:00Z",
			SessionFailed: &domain.SessionFailed{Reason: "build broke"},
		},
	})

	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "[you]")
	assert.Contains(t, lines[0], "please add tests")
	assert.Contains(t, lines[1], "[plan]")
	assert.Contains(t, lines[1], "2 steps")
	assert.Contains(t, lines[2], "[failed]")
	assert.Contains(t, lines[2], "build broke")
}

func TestStatLineAndBadgeHelpers(t *testing.T) {
	s := newStyles()
	assert.Contains(t, stateBadge(domain.StateQueued, s), "queued")
	assert.Contains(t, stateBadge(domain.StatePaused, s), "paused")
	assert.Equal(t, "512 B", formatBytes(512))
	assert.Equal(t, "1.5 MiB", formatBytes(3*1024*1024/2))
}
