package player

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPercentToDB(t *testing.T) {
	tests := []struct {
		percent int
		db      float64
		silent  bool
	}{
		{percent: 100, db: 0},
		{percent: 150, db: 0},
		{percent: 50, db: -1},
		{percent: 25, db: -2},
		{percent: 0, silent: true},
	}
	for _, tt := range tests {
		db, silent := PercentToDB(tt.percent)
		assert.InDelta(t, tt.db, db, 1e-9, "percent %d", tt.percent)
		assert.Equal(t, tt.silent, silent, "percent %d", tt.percent)
	}
}

func TestPlay_UnsupportedFormat(t *testing.T) {
	err := New().Play(context.Background(), "ogg", io.NopCloser(strings.NewReader("OggS")))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestPlay_CorruptAudio(t *testing.T) {
	err := New().Play(context.Background(), "wav", io.NopCloser(strings.NewReader("not a riff header")))
	assert.Error(t, err)
}
