package app

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lu-zhengda/sendersweep/internal/domain"
)

func TestParseSelection(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		n       int
		want    []int
		wantErr error
	}{
		{"single", "2", 3, []int{1}, nil},
		{"list with spaces", " 1, 3 ", 3, []int{0, 2}, nil},
		{"keeps input order", "3,1", 3, []int{2, 0}, nil},
		{"duplicates once", "2,2,1", 3, []int{1, 0}, nil},
		{"all", "all", 3, []int{0, 1, 2}, nil},
		{"all uppercase", "ALL", 2, []int{0, 1}, nil},
		{"quit", "q", 3, nil, ErrCancelled},
		{"quit uppercase", "Q", 3, nil, ErrCancelled},
		{"blank", "  ", 3, nil, ErrEmptySelection},
		{"all of nothing", "all", 0, nil, ErrEmptySelection},
		{"zero", "0", 3, nil, ErrInvalidSelection},
		{"too large", "4", 3, nil, ErrInvalidSelection},
		{"negative", "-1", 3, nil, ErrInvalidSelection},
		{"word", "1,two", 3, nil, ErrInvalidSelection},
		{"empty token", "1,,2", 3, nil, ErrInvalidSelection},
		{"one bad token fails all", "1,2,9", 3, nil, ErrInvalidSelection},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSelection(tt.input, tt.n)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "err = %v, want %v", err, tt.wantErr)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSelect(t *testing.T) {
	cands := []domain.SenderProfile{{Email: "a@x.com"}, {Email: "b@x.com"}, {Email: "c@x.com"}}

	got, err := Select(cands, "3,1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "c@x.com", got[0].Email)
	assert.Equal(t, "a@x.com", got[1].Email)

	_, err = Select(cands, "1,x")
	assert.True(t, errors.Is(err, ErrInvalidSelection))
}
