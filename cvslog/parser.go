package cvslog

import (
	"bufio"
	"io"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"gitlab.com/esr/cvsps/dateutil"
)

// Precompiled once at package load, compiling every pattern the parser
// will ever need up front rather than per call.
var (
	reRCSFile     = regexp.MustCompile(`^RCS file: (.+)$`)
	reLogAborted  = regexp.MustCompile(`^cvs \[r?log aborted\]: (.+)$`)
	reLogServer   = regexp.MustCompile(`^cvs (r?log|server): (.+)$`)
	reCannotOpen  = regexp.MustCompile(`^(Cannot access.+CVSROOT)|(can't create temporary directory.+)$`)
	reWorkingFile = regexp.MustCompile(`^Working file: (.+)$`)
	reSymNames    = regexp.MustCompile(`^symbolic names:`)
	reTagLine     = regexp.MustCompile(`^\t(.+): ([\d.]+)$`)
	reDashes      = regexp.MustCompile(`^----------------------------$`)
	reEquals      = regexp.MustCompile(`^={77}$`)
	reRevision    = regexp.MustCompile(`^revision ([\d.]+)(\s+locked by:\s+.+;)?$`)
	reDateLine    = regexp.MustCompile(`^date:\s+(.+?);\s+author:\s+(.+?);\s+state:\s+(.+?);(\s+lines:\s+(?:\+(\d+))?\s*(?:-(\d+))?;)?(\s+commitid:\s+([^;]+);)?(.*mergepoint:\s+([^;]+);)?`)
	reBranchesLn  = regexp.MustCompile(`^branches: (.+);$`)
	reFileAdded   = regexp.MustCompile(`file [^/]+ was (initially )?added on branch`)
)

// Options configures a single ParseLog call.
type Options struct {
	// Prefix is stripped from RCS file paths (computed from root+directory
	// by the InvocationGlue layer).
	Prefix string
	// RLog selects "rlog" output framing (no "Working file:" header)
	// versus "log" output framing.
	RLog bool
	// PriorLog, when non-nil, is consulted while resolving parent
	// revisions, so that incremental (cache "update" mode) runs still
	// compute correct parents for revisions that precede the new window.
	PriorLog []*LogEntry
	// OnProgress, if set, is called after every 100th entry is stored -
	// the direct port of pycvsps's `if len(log) % 100 == 0` status tick.
	OnProgress func(count int, file string)
}

type parseState int

const (
	stInitial parseState = iota
	stWorkingFile
	stSymbolicNames
	stTagLines
	stRevision
	stDateLine
	stBranchesOrComment
	stComment
)

// parser holds the mutable state of one ParseLog invocation.
type parser struct {
	opts    Options
	scanner *bufio.Scanner
	peek    string
	peekOK  bool
	intern  *internTable

	state parseState
	rcs   string
	file  string
	tags  map[string][]string // revision.String() -> tag names, in discovery order
	// branchmap maps a symbolic branch name to its raw (possibly magic)
	// revision string, exactly as read from the symbolic-names block.
	branchmap map[string]string

	entry   *LogEntry
	comment []string

	out []*LogEntry
}

// ParseLog consumes r (assumed already decoded to text; InvocationGlue is
// responsible for the latin-1 decoding CVS's own output requires) and
// returns the ordered list of LogEntry records it describes.
func ParseLog(r io.Reader, opts Options) ([]*LogEntry, error) {
	p := &parser{
		opts:    opts,
		scanner: bufio.NewScanner(r),
		intern:  newInternTable(),
		state:   stInitial,
	}
	p.scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	p.advance() // prime peek
	if err := p.run(); err != nil {
		return nil, err
	}
	sort.Slice(p.out, func(i, j int) bool {
		if p.out[i].RCS != p.out[j].RCS {
			return p.out[i].RCS < p.out[j].RCS
		}
		return revisionLess(p.out[i].Revision, p.out[j].Revision)
	})
	resolveParents(p.out, opts.PriorLog)
	return p.out, nil
}

func revisionLess(a, b Revision) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}

// advance shifts peek into the current line and reads the next one into
// peek, mirroring pycvsps's one-line lookahead buffer.
func (p *parser) advance() (line string, ok bool) {
	line, ok = p.peek, p.peekOK
	if p.scanner.Scan() {
		p.peek, p.peekOK = p.scanner.Text(), true
	} else {
		p.peek, p.peekOK = "", false
	}
	return line, ok
}

func (p *parser) run() error {
	for {
		line, ok := p.advance()
		if !ok {
			break
		}
		if err := p.step(line); err != nil {
			return err
		}
	}
	return nil
}

func (p *parser) step(line string) error {
	switch p.state {
	case stInitial:
		return p.stepInitial(line)
	case stWorkingFile:
		return p.stepWorkingFile(line)
	case stSymbolicNames:
		p.stepSymbolicNames(line)
	case stTagLines:
		p.stepTagLines(line)
	case stRevision:
		return p.stepRevision(line)
	case stDateLine:
		return p.stepDateLine(line)
	case stBranchesOrComment:
		return p.stepBranchesOrComment(line)
	case stComment:
		return p.stepComment(line)
	}
	return nil
}

func (p *parser) stepInitial(line string) error {
	if m := reRCSFile.FindStringSubmatch(line); m != nil {
		p.rcs = m[1]
		p.tags = map[string][]string{}
		if p.opts.RLog {
			filename := path.Clean(strings.TrimSuffix(p.rcs, ",v"))
			if strings.HasPrefix(filename, p.opts.Prefix) {
				filename = filename[len(p.opts.Prefix):]
				p.file = rcsPath(filename)
				p.state = stSymbolicNames
			}
			return nil
		}
		p.state = stWorkingFile
		return nil
	}
	if m := reLogAborted.FindStringSubmatch(line); m != nil {
		return newLogError("%s", m[1])
	}
	if m := reLogServer.FindStringSubmatch(line); m != nil {
		return newLogError("%s", m[2])
	}
	if reCannotOpen.MatchString(line) {
		return newLogError("%s", line)
	}
	return nil
}

func (p *parser) stepWorkingFile(line string) error {
	m := reWorkingFile.FindStringSubmatch(line)
	if m == nil {
		return newLogError("RCS file must be followed by working file, got %q", line)
	}
	p.file = path.Clean(m[1])
	p.state = stSymbolicNames
	return nil
}

func (p *parser) stepSymbolicNames(line string) {
	if reSymNames.MatchString(line) {
		p.branchmap = map[string]string{}
		p.state = stTagLines
	}
}

func (p *parser) stepTagLines(line string) {
	if m := reTagLine.FindStringSubmatch(line); m != nil {
		name, revStr := m[1], m[2]
		rev, err := ParseRevision(revStr)
		if err != nil {
			return // unparseable tag revision: skip silently (bad tag)
		}
		rev = rev.CollapseMagicBranch()
		p.tags[rev.String()] = append(p.tags[rev.String()], name)
		p.branchmap[name] = revStr
		return
	}
	if reDashes.MatchString(line) {
		p.state = stRevision
		return
	}
	if reEquals.MatchString(line) {
		p.state = stInitial
	}
}

func (p *parser) stepRevision(line string) error {
	m := reRevision.FindStringSubmatch(line)
	if m == nil {
		return newLogError("expected revision number, got %q", line)
	}
	rev, err := ParseRevision(m[1])
	if err != nil {
		return newLogError("%v", err)
	}
	p.entry = &LogEntry{
		RCS:          p.intern.intern(p.rcs),
		File:         p.intern.intern(p.file),
		Revision:     rev,
		Branches:     nil,
		Branchpoints: nil,
	}
	p.state = stDateLine
	return nil
}

func (p *parser) stepDateLine(line string) error {
	m := reDateLine.FindStringSubmatch(line)
	if m == nil {
		return newLogError("revision must be followed by date line, got %q", line)
	}
	d := m[1]
	if len(d) > 2 && d[2] == '/' {
		d = "19" + d
	}
	if len(strings.Fields(d)) != 3 {
		d = d + " UTC"
	}
	date, err := dateutil.ParseDate(d, []string{
		"%y/%m/%d %H:%M:%S",
		"%Y/%m/%d %H:%M:%S",
		"%Y-%m-%d %H:%M:%S",
	})
	if err != nil {
		return newLogError("unparseable revision date %q: %v", m[1], err)
	}
	p.entry.Date = date
	p.entry.Author = p.intern.intern(m[2])
	p.entry.Dead = strings.EqualFold(m[3], "dead")

	added, hasAdded := m[5], m[5] != ""
	removed, hasRemoved := m[6], m[6] != ""
	if hasAdded || hasRemoved {
		stats := &LineStats{}
		if hasAdded {
			stats.Added, _ = strconv.Atoi(added)
		}
		if hasRemoved {
			stats.Removed, _ = strconv.Atoi(removed)
		}
		p.entry.Lines = stats
	}

	if m[8] != "" { // commitid
		p.entry.CommitID = p.intern.intern(m[8])
	}

	if m[10] != "" { // cvsnt mergepoint
		mergepoint, err := p.resolveMergepoint(m[10])
		if err != nil {
			return err
		}
		p.entry.Mergepoint = mergepoint
	}

	p.comment = nil
	p.state = stBranchesOrComment
	return nil
}

// resolveMergepoint maps a two-component mergepoint revision ("1.1")
// to "HEAD"; anything deeper is rewritten to the magic branch number of
// the branch it lies on (a.b.c.d becomes a.b.0.c) and looked up by value
// in the branch map.
func (p *parser) resolveMergepoint(revStr string) (string, error) {
	parts := strings.Split(revStr, ".")
	if len(parts) == 2 {
		return "HEAD", nil
	}
	collapsed := strings.Join(append(append([]string{}, parts[:len(parts)-2]...), "0", parts[len(parts)-2]), ".")
	var matches []string
	for name, rev := range p.branchmap {
		if rev == collapsed {
			matches = append(matches, name)
		}
	}
	if len(matches) != 1 {
		return "", newLogError("unknown branch for mergepoint revision %s", revStr)
	}
	return matches[0], nil
}

func (p *parser) stepBranchesOrComment(line string) error {
	if m := reBranchesLn.FindStringSubmatch(line); m != nil {
		for _, piece := range strings.Split(m[1], ";") {
			rev, err := ParseRevision(strings.TrimSpace(piece))
			if err != nil {
				continue
			}
			p.entry.Branches = append(p.entry.Branches, rev)
		}
		p.state = stComment
		return nil
	}
	if reDashes.MatchString(line) && reRevision.MatchString(p.peek) {
		p.state = stRevision
		return p.store()
	}
	if reEquals.MatchString(line) {
		p.state = stInitial
		return p.store()
	}
	p.comment = append(p.comment, line)
	return nil
}

func (p *parser) stepComment(line string) error {
	if reDashes.MatchString(line) {
		if reRevision.MatchString(p.peek) {
			p.state = stRevision
			return p.store()
		}
		p.comment = append(p.comment, line)
		return nil
	}
	if reEquals.MatchString(line) {
		p.state = stInitial
		return p.store()
	}
	p.comment = append(p.comment, line)
	return nil
}

// store finalizes the in-progress entry: synthetic detection, tags,
// comment joining, branch/branchpoints derivation, then appends it to
// the output and resets per-entry state for the next revision block.
func (p *parser) store() error {
	e := p.entry

	if e.Dead && len(e.Revision) > 0 && e.Revision[len(e.Revision)-1] == 1 &&
		len(p.comment) == 1 && reFileAdded.MatchString(p.comment[0]) {
		e.Synthetic = true
	}

	e.Tags = append([]string{}, p.tags[e.Revision.String()]...)
	sort.Strings(e.Tags)
	for i, t := range e.Tags {
		e.Tags[i] = p.intern.intern(t)
	}

	e.Comment = p.intern.intern(strings.Join(p.comment, "\n"))

	if len(e.Revision) > 3 && len(e.Revision)%2 == 0 {
		if names := p.tags[e.Revision.BranchPrefix().String()]; len(names) > 0 {
			e.Branch = names[0]
		}
	}

	e.Branchpoints = newBranchpointSet(p.branchmap, e.Revision, e.Branches)

	if err := e.Validate(); err != nil {
		return newLogError("%v", err)
	}

	p.out = append(p.out, e)
	if p.opts.OnProgress != nil && len(p.out)%100 == 0 {
		p.opts.OnProgress(len(p.out), e.File)
	}

	p.entry = nil
	p.comment = nil
	return nil
}

// rcsPath strips any "Attic" path component, reproducing pycvsps's
// rcs_path: RCS files for deleted entries live in an Attic/ subdirectory,
// but the logical working-file path never mentions it.
func rcsPath(p string) string {
	dir, file := path.Split(p)
	dir = strings.TrimSuffix(dir, "/")
	if dir == "" {
		return file
	}
	var kept []string
	for _, comp := range strings.Split(dir, "/") {
		if comp != "" && comp != "Attic" {
			kept = append(kept, comp)
		}
	}
	kept = append(kept, file)
	return path.Join(kept...)
}
