package app

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/lu-zhengda/sendersweep/internal/domain"
)

var (
	// ErrCancelled is returned when the user quits the selection prompt.
	ErrCancelled = errors.New("selection cancelled")
	// ErrEmptySelection is returned for blank input.
	ErrEmptySelection = errors.New("no senders selected")
	// ErrInvalidSelection is returned when any token is not a valid index.
	ErrInvalidSelection = errors.New("invalid selection")
)

// ParseSelection turns user input into 0-based indices into a list of n
// candidates. It accepts "all", "q" or comma-separated 1-based indices.
// A single bad token rejects the whole input. Repeated indices are kept
// once, in first-seen order.
func ParseSelection(input string, n int) ([]int, error) {
	input = strings.TrimSpace(input)
	switch strings.ToLower(input) {
	case "":
		return nil, ErrEmptySelection
	case "q":
		return nil, ErrCancelled
	case "all":
		if n == 0 {
			return nil, ErrEmptySelection
		}
		all := make([]int, n)
		for i := range all {
			all[i] = i
		}
		return all, nil
	}

	seen := make(map[int]bool)
	var out []int
	for _, tok := range strings.Split(input, ",") {
		tok = strings.TrimSpace(tok)
		idx, err := strconv.Atoi(tok)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a number", ErrInvalidSelection, tok)
		}
		if idx < 1 || idx > n {
			return nil, fmt.Errorf("%w: %d is out of range 1-%d", ErrInvalidSelection, idx, n)
		}
		if !seen[idx] {
			seen[idx] = true
			out = append(out, idx-1)
		}
	}
	return out, nil
}

// Select applies ParseSelection to a ranked candidate list.
func Select(candidates []domain.SenderProfile, input string) ([]domain.SenderProfile, error) {
	idx, err := ParseSelection(input, len(candidates))
	if err != nil {
		return nil, err
	}
	out := make([]domain.SenderProfile, 0, len(idx))
	for _, i := range idx {
		out = append(out, candidates[i])
	}
	return out, nil
}
