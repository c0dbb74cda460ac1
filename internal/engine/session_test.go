package engine

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivlev/vnplay/internal/config"
	"github.com/ivlev/vnplay/internal/script"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Addr = ""
	cfg.Media.Prober = "none"
	cfg.Playback.CharDelayMs = 1
	cfg.Playback.AutoPlayDelayMs = 10
	cfg.Playback.FPS = 200
	return cfg
}

func testScript() *script.DialogueScript {
	return &script.DialogueScript{
		Name:       "test",
		PlayerName: "Alice",
		Paragraphs: []script.Paragraph{
			{Dialogues: []script.Dialogue{
				{Speaker: "@player", Content: "hi"},
				{Speaker: "NPC", Content: "yo", VoiceURL: "voice.mp3"},
			}},
			{Dialogues: []script.Dialogue{
				{Speaker: "NPC", Content: "bye", Animation: &script.Animation{
					Duration:    0.05,
					RepeatCount: 1,
					Keyframes: []script.KeyFrame{
						{Percentage: 0, Scale: script.Float(100)},
						{Percentage: 100, Scale: script.Float(120)},
					},
				}},
			}},
		},
	}
}

func start(t *testing.T, sess *Session) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- sess.Run(ctx) }()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-errc:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("Session did not stop")
		}
	})
}

func snapshot(t *testing.T, sess *Session) Snapshot {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	snap, err := sess.Snapshot(ctx)
	require.NoError(t, err)
	return snap
}

// peek is snapshot for Eventually conditions, which run off the test goroutine
func peek(sess *Session) Snapshot {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	snap, _ := sess.Snapshot(ctx)
	return snap
}

func TestUnknownProber(t *testing.T) {
	cfg := testConfig()
	cfg.Media.Prober = "vlc"
	_, err := NewSession(cfg, testScript())
	assert.Error(t, err)
}

func TestManualAdvance(t *testing.T) {
	sess, err := NewSession(testConfig(), testScript())
	require.NoError(t, err)
	start(t, sess)

	require.Eventually(t, func() bool {
		s := peek(sess)
		return !s.Typing && s.Text == "hi"
	}, 2*time.Second, 5*time.Millisecond)

	snap := snapshot(t, sess)
	assert.Equal(t, "Alice", snap.Speaker)
	assert.True(t, snap.Video.Fallback)

	sess.Advance()
	require.Eventually(t, func() bool { return peek(sess).Dialogue == 1 }, 2*time.Second, 5*time.Millisecond)

	sess.Rewind()
	require.Eventually(t, func() bool { return peek(sess).Dialogue == 0 }, 2*time.Second, 5*time.Millisecond)
}

func TestAutoPlayReachesEnd(t *testing.T) {
	cfg := testConfig()
	cfg.Playback.AutoPlay = true
	sess, err := NewSession(cfg, testScript())
	require.NoError(t, err)
	start(t, sess)

	select {
	case <-sess.Ended():
	case <-time.After(5 * time.Second):
		t.Fatal("Auto-play did not reach the end of the script")
	}

	snap := snapshot(t, sess)
	assert.True(t, snap.Ended)
	assert.Equal(t, 1, snap.Paragraph)
	assert.Equal(t, "bye", snap.Text)
}

func TestInlineSampling(t *testing.T) {
	cfg := testConfig()
	cfg.Playback.AutoPlay = true
	cfg.Playback.Offload = false
	sess, err := NewSession(cfg, testScript())
	require.NoError(t, err)
	start(t, sess)

	select {
	case <-sess.Ended():
	case <-time.After(5 * time.Second):
		t.Fatal("Inline sampling session did not finish")
	}
}

func TestControlThroughHandler(t *testing.T) {
	sess, err := NewSession(testConfig(), testScript())
	require.NoError(t, err)
	start(t, sess)

	srv := httptest.NewServer(sess.Handler())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/control", "application/json", bytes.NewBufferString(`{"cmd":"autoplay","value":true}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	select {
	case <-sess.Ended():
	case <-time.After(5 * time.Second):
		t.Fatal("Auto-play enabled over HTTP did not run the script")
	}
}

func TestSnapshotBeforeRun(t *testing.T) {
	sess, err := NewSession(testConfig(), testScript())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = sess.Snapshot(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
