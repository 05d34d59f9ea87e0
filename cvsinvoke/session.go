package cvsinvoke

import (
	"context"
	"io"
	"os/exec"

	shellquote "github.com/kballard/go-shellquote"
	"golang.org/x/text/encoding/charmap"

	"gitlab.com/esr/cvsps/dateutil"
)

// Session launches and streams one `cvs log`/`cvs rlog` invocation.
type Session struct {
	Sandbox Sandbox
	RLog    bool // true selects "rlog", false selects "log"
	UI      *UI
}

// args builds the argument vector for the cvs subprocess contract:
// `cvs -q [-d ROOT] (log|rlog) [-d>DATE] DIRECTORY`.
func (s Session) args(since *dateutil.Date) []string {
	cmd := []string{"-q"}
	if s.Sandbox.Root != "" {
		cmd = append(cmd, "-d", s.Sandbox.Root)
	}
	if s.RLog {
		cmd = append(cmd, "rlog")
	} else {
		cmd = append(cmd, "log")
	}
	if since != nil {
		cmd = append(cmd, "-d>"+dateutil.DateStr(*since, "%Y/%m/%d %H:%M:%S %z"))
	}
	if s.Sandbox.Directory != "" {
		cmd = append(cmd, s.Sandbox.Directory)
	}
	return cmd
}

// Run launches `cvs` and returns its stdout decoded from Latin-1 to
// UTF-8, along with a cleanup function the caller must invoke (after
// fully draining the reader) to reap the child and surface any
// non-decode error. since, if non-nil, restricts the log to entries
// committed after that date - the incremental "update cache" path.
func (s Session) Run(ctx context.Context, since *dateutil.Date) (io.Reader, func() error, error) {
	args := s.args(since)
	if s.UI != nil {
		s.UI.Note("running %s\n", shellquote.Join(append([]string{"cvs"}, args...)...))
	}

	cmd := exec.CommandContext(ctx, "cvs", args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, nil, err
	}

	decoded := charmap.ISO8859_1.NewDecoder().Reader(stdout)
	cleanup := func() error {
		return cmd.Wait()
	}
	return decoded, cleanup, nil
}
