package cvsinvoke

import (
	"io/ioutil"
	"os"
	"path"
	"path/filepath"
	"strings"

	"gitlab.com/esr/cvsps/cvslog"
)

// Sandbox holds the root and directory a log collection runs against,
// resolved either from the caller or from CVS/Repository + CVS/Root
// metadata in the current directory - the same probe shape as the
// teacher's VCS.manages, specialized to CVS's two metadata files
// instead of a generic subdirectory check.
type Sandbox struct {
	Root      string // "" means the CVSROOT environment variable (or server default) applies
	Directory string
}

// DetectSandbox resolves the working directory and CVS root: when dir
// is "", read CVS/Repository for the directory and CVS/Root for the
// root, falling back to $CVSROOT. A missing CVS/Repository is fatal.
func DetectSandbox(dir, root string) (Sandbox, error) {
	if dir != "" {
		return Sandbox{Root: root, Directory: dir}, nil
	}

	repoBytes, err := ioutil.ReadFile(filepath.Join("CVS", "Repository"))
	if err != nil {
		return Sandbox{}, cvslog.NewLogError("not a CVS sandbox")
	}
	directory := strings.TrimSpace(string(repoBytes))

	resolvedRoot := root
	if resolvedRoot == "" {
		if rootBytes, err := ioutil.ReadFile(filepath.Join("CVS", "Root")); err == nil {
			resolvedRoot = strings.TrimSpace(string(rootBytes))
		}
	}
	if resolvedRoot == "" {
		resolvedRoot = os.Getenv("CVSROOT")
	}

	return Sandbox{Root: resolvedRoot, Directory: directory}, nil
}

// getrepopath extracts the repository path from a CVS root string,
// stripping any leading ":method:[[user][:password]@]host[:port]"
// connection syntax: split on ":", take the last component, then
// return everything from the first "/" at or after an "@" in that
// component (so a bare "user@host/path" loses "user@host" too). Ported
// from pycvsps's getrepopath.
func getrepopath(cvspath string) string {
	parts := strings.Split(cvspath, ":")
	last := parts[len(parts)-1]

	start := 0
	if at := strings.Index(last, "@"); at != -1 {
		start = at
	}
	if idx := strings.Index(last[start:], "/"); idx != -1 {
		return last[start+idx:]
	}
	if last == "" {
		return ""
	}
	return last[len(last)-1:]
}

// Prefix computes the path prefix LogParser strips from RCS file paths
// when running in rlog mode, exactly as pycvsps's build_prefix does:
// a bare "." directory (the repository root itself, as recorded by a
// full-checkout's CVS/Repository) collapses to "", since CVS/RCS never
// actually emits a literal "/./" path segment for it.
func (s Sandbox) Prefix() string {
	repository := path.Clean(s.Directory)
	if repository == "." {
		repository = ""
	}

	var prefix string
	if s.Root != "" {
		root := path.Clean(getrepopath(s.Root))
		if repository != "" {
			prefix = path.Join(root, repository)
		} else {
			prefix = root
		}
	} else {
		prefix = repository
	}
	return prefix + "/"
}
