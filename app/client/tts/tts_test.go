package tts

import (
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandSpeakerFinishes(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sh")
	}

	sp, err := NewCommandSpeaker([]string{"sh", "-c", "sleep 0.05", "tts"})
	require.NoError(t, err)

	require.NoError(t, sp.Speak("hola"))
	assert.True(t, sp.IsSpeaking())
	assert.Eventually(t, func() bool { return !sp.IsSpeaking() }, 2*time.Second, 10*time.Millisecond)
}

func TestCommandSpeakerStop(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sh")
	}

	sp, err := NewCommandSpeaker([]string{"sh", "-c", "sleep 5", "tts"})
	require.NoError(t, err)

	require.NoError(t, sp.Speak("una respuesta larga"))
	require.True(t, sp.IsSpeaking())

	sp.Stop()
	sp.Stop()
	assert.False(t, sp.IsSpeaking())
}

func TestMissingCommand(t *testing.T) {
	_, err := NewCommandSpeaker(nil)
	require.ErrorIs(t, err, ErrNoCommand)

	_, err = NewCommandSpeaker([]string{"definitely-not-a-tts-binary"})
	require.Error(t, err)
}
