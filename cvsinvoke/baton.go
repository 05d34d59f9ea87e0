package cvsinvoke

import (
	"fmt"
	"os"
	"time"

	terminal "golang.org/x/crypto/ssh/terminal"
)

// Baton ships log-collection progress to stderr, the same shape as the
// teacher's repocutter.Baton: on a real terminal a spinner is redrawn in
// place after the prompt on every tick; otherwise only the prompt and
// the closing message are written - grounded on cutter/repocutter.go's
// Baton type.
type Baton struct {
	stream   *os.File
	start    time.Time
	isTTY    bool
	twirlers string
	count    int
}

// NewBaton opens a Baton writing prompt immediately, mirroring
// repocutter's NewBaton.
func NewBaton(prompt string) *Baton {
	b := &Baton{
		stream:   os.Stderr,
		start:    time.Now(),
		twirlers: `-/|\`,
	}
	b.isTTY = terminal.IsTerminal(int(b.stream.Fd()))
	fmt.Fprintf(b.stream, "%s...", prompt)
	if b.isTTY {
		b.stream.WriteString(" \b")
	}
	return b
}

// Twirl advances the progress indicator by one tick. On a non-terminal
// stream it's a no-op, matching repocutter: redrawn spinners are only
// meaningful when something is watching them live.
func (b *Baton) Twirl() {
	if b == nil || !b.isTTY {
		return
	}
	b.stream.Write([]byte{b.twirlers[b.count%len(b.twirlers)]})
	b.stream.WriteString("\b")
	b.count++
}

// End closes out the baton with a final message and elapsed time.
func (b *Baton) End(msg string) {
	if b == nil {
		return
	}
	fmt.Fprintf(b.stream, "...(%s) %s.\n", time.Since(b.start).Round(time.Millisecond), msg)
}
