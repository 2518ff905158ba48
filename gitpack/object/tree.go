package object

import (
	"bytes"
	"fmt"
)

// TreeEntry is one "<mode> <name>\x00<sha1>" record of a tree object.
type TreeEntry struct {
	Mode string
	Name string
	ID   ID
}

// IsTree reports whether the entry names a subtree.
func (e TreeEntry) IsTree() bool {
	return e.Mode == "40000" || e.Mode == "040000"
}

// IsGitlink reports whether the entry is a submodule commit pointer. Such
// entries reference objects that live in another repository.
func (e TreeEntry) IsGitlink() bool {
	return e.Mode == "160000"
}

// ScanTree decodes the entry records of a tree object's bytes.
func ScanTree(data []byte) (res []TreeEntry, _ error) {
	rest := data
	for len(rest) > 0 {
		sp := bytes.IndexByte(rest, ' ')
		if sp < 0 {
			return nil, fmt.Errorf("object: tree entry missing mode separator")
		}
		nul := bytes.IndexByte(rest[sp+1:], 0)
		if nul < 0 {
			return nil, fmt.Errorf("object: tree entry missing name terminator")
		}
		var e TreeEntry
		e.Mode = string(rest[:sp])
		e.Name = string(rest[sp+1 : sp+1+nul])
		rest = rest[sp+1+nul+1:]
		if len(rest) < 20 {
			return nil, fmt.Errorf("object: tree entry %q truncated id", e.Name)
		}
		copy(e.ID[:], rest[:20])
		rest = rest[20:]
		res = append(res, e)
	}
	return
}

// CommitTree extracts the root tree identifier from a commit object's
// bytes. The tree line is required to be the first header line.
func CommitTree(data []byte) (ID, error) {
	const prefix = "tree "
	if !bytes.HasPrefix(data, []byte(prefix)) {
		return ID{}, fmt.Errorf("object: commit does not start with a tree line")
	}
	nl := bytes.IndexByte(data, '\n')
	if nl < 0 {
		return ID{}, fmt.Errorf("object: commit tree line unterminated")
	}
	return IDFromHex(string(data[len(prefix):nl]))
}
