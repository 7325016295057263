package players

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/mitchelldurbincs/bgcore/internal/game/core"
)

// ErrNoMatch is returned by ParseChoice when the input names no legal sequence.
var ErrNoMatch = errors.New("input matches no legal sequence")

type lineResult struct {
	text string
	err  error
}

// HumanChooser reads choices from a line-oriented reader. A line is either
// the 1-based index of a listed sequence or its moves in notation, e.g.
// "13/10 13/8", "bar/22", "6/off" or "8/5(2)". Bad input is reported on out
// and the prompt repeats. Choose blocks until a valid line arrives, the input
// ends, or ctx is done.
type HumanChooser struct {
	in  io.Reader
	out io.Writer

	// Render, when set, draws the board before the candidate list.
	Render func(st *core.State) string

	once  sync.Once
	lines chan lineResult
}

func NewHumanChooser(in io.Reader, out io.Writer) *HumanChooser {
	return &HumanChooser{in: in, out: out, lines: make(chan lineResult, 1)}
}

// readLines feeds lines until the reader is exhausted. It outlives a
// cancelled Choose; the next Choose picks up where it left off.
func (h *HumanChooser) readLines() {
	sc := bufio.NewScanner(h.in)
	for sc.Scan() {
		h.lines <- lineResult{text: sc.Text()}
	}
	err := sc.Err()
	if err == nil {
		err = io.EOF
	}
	h.lines <- lineResult{err: err}
	close(h.lines)
}

func (h *HumanChooser) Choose(ctx context.Context, st *core.State, legal []core.Sequence) (core.Sequence, error) {
	if len(legal) == 0 {
		return nil, ErrNoChoices
	}
	h.once.Do(func() { go h.readLines() })

	v := st.Variant()
	if h.Render != nil {
		fmt.Fprintln(h.out, h.Render(st))
	}
	fmt.Fprintf(h.out, "%s to play %v\n", st.Turn, st.Dice)
	for i, seq := range legal {
		fmt.Fprintf(h.out, "%3d) %s\n", i+1, seq.Notation(v))
	}

	for {
		fmt.Fprint(h.out, "> ")
		select {
		case <-ctx.Done():
			fmt.Fprintln(h.out)
			return nil, ctx.Err()
		case res, ok := <-h.lines:
			if !ok {
				return nil, io.EOF
			}
			if res.err != nil {
				return nil, res.err
			}
			if strings.TrimSpace(res.text) == "" {
				continue
			}
			seq, err := ParseChoice(v, st.Turn, res.text, legal)
			if err != nil {
				fmt.Fprintf(h.out, "%v\n", err)
				continue
			}
			return seq, nil
		}
	}
}

// ParseChoice resolves a typed choice against legal. Notation is matched
// regardless of move order; the first matching sequence wins.
func ParseChoice(v core.Variant, p core.Player, input string, legal []core.Sequence) (core.Sequence, error) {
	input = strings.TrimSpace(input)
	if n, err := strconv.Atoi(input); err == nil {
		if n < 1 || n > len(legal) {
			return nil, fmt.Errorf("choice %d out of range 1..%d", n, len(legal))
		}
		return legal[n-1], nil
	}

	want, err := parseHops(v, p, input)
	if err != nil {
		return nil, err
	}
	for _, seq := range legal {
		if sameHops(want, hopsOf(seq)) {
			return seq, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrNoMatch, input)
}

type hop struct{ from, to int }

func hopsOf(seq core.Sequence) []hop {
	out := make([]hop, len(seq))
	for i, m := range seq {
		out[i] = hop{m.From, m.To}
	}
	return out
}

func sameHops(a, b []hop) bool {
	if len(a) != len(b) {
		return false
	}
	sortHops(a)
	sortHops(b)
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func sortHops(h []hop) {
	sort.Slice(h, func(i, j int) bool {
		if h[i].from != h[j].from {
			return h[i].from < h[j].from
		}
		return h[i].to < h[j].to
	})
}

// parseHops expands input into single-die hops. No turn uses more than
// max(2, DoublesUses) dice, so longer input is rejected before expansion.
func parseHops(v core.Variant, p core.Player, input string) ([]hop, error) {
	limit := max(2, v.DoublesUses)
	var out []hop
	for _, tok := range strings.Fields(input) {
		tok = strings.ReplaceAll(tok, "*", "")
		repeat := 1
		if i := strings.IndexByte(tok, '('); i >= 0 && strings.HasSuffix(tok, ")") {
			n, err := strconv.Atoi(tok[i+1 : len(tok)-1])
			if err != nil || n < 1 {
				return nil, fmt.Errorf("bad repeat count in %q", tok)
			}
			repeat = n
			tok = tok[:i]
		}
		if len(out)+repeat > limit {
			return nil, fmt.Errorf("too many moves in %q, a turn has at most %d", input, limit)
		}
		parts := strings.Split(tok, "/")
		if len(parts) != 2 {
			return nil, fmt.Errorf("bad move %q, want from/to", tok)
		}
		from, err := core.ParseNotationPoint(v, p, parts[0])
		if err != nil {
			return nil, err
		}
		to, err := core.ParseNotationPoint(v, p, parts[1])
		if err != nil {
			return nil, err
		}
		for i := 0; i < repeat; i++ {
			out = append(out, hop{from, to})
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("empty choice")
	}
	return out, nil
}
