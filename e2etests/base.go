package e2etests

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/pinpt/gitpack/gitpack"
	"github.com/pinpt/gitpack/gitpack/object"
	"github.com/pinpt/gitpack/gitpack/pack"
	"github.com/pinpt/gitpack/gitpack/pkg/logger"
	"github.com/pinpt/gitpack/gitpack/store"
)

// Test drives one build-persist-reload-parse cycle against a disk store
// in a temp directory.
type Test struct {
	t       *testing.T
	tempDir string
	Store   *store.DiskStore
}

func NewTest(t *testing.T) *Test {
	s := &Test{}
	s.t = t
	dir, err := ioutil.TempDir("", "gitpack-test-")
	if err != nil {
		panic(err)
	}
	s.tempDir = dir
	t.Cleanup(func() {
		os.RemoveAll(s.tempDir)
	})
	s.Store, err = store.OpenDiskStore(dir)
	if err != nil {
		t.Fatal("open store returned error", err)
	}
	return s
}

func (s *Test) Blob(content string) object.ID {
	return s.Store.Add(object.KindBlob, []byte(content))
}

func (s *Test) Tree(entries ...object.TreeEntry) object.ID {
	var data []byte
	for _, e := range entries {
		data = append(data, []byte(e.Mode+" "+e.Name+"\x00")...)
		data = append(data, e.ID[:]...)
	}
	return s.Store.Add(object.KindTree, data)
}

func (s *Test) File(name string, id object.ID) object.TreeEntry {
	return object.TreeEntry{Mode: "100644", Name: name, ID: id}
}

func (s *Test) Dir(name string, id object.ID) object.TreeEntry {
	return object.TreeEntry{Mode: "40000", Name: name, ID: id}
}

func (s *Test) Commit(tree object.ID, msg string) object.ID {
	data := []byte("tree " + tree.String() + "\n" +
		"author User1 <user1@example.com> 1543352136 +0100\n" +
		"committer User1 <user1@example.com> 1543352136 +0100\n\n" + msg + "\n")
	return s.Store.Add(object.KindCommit, data)
}

// Run builds a pack from roots, persists everything, then reopens the
// store cold and parses the pack file back off disk.
func (s *Test) Run(roots ...object.ID) *pack.Pack {
	t := s.t
	eng := gitpack.New(gitpack.Opts{Store: s.Store, Logger: logger.Discard{}})
	data, err := eng.BuildPack(roots)
	if err != nil {
		t.Fatal("BuildPack returned error", err)
	}
	if err := s.Store.PersistPack(data); err != nil {
		t.Fatal("PersistPack returned error", err)
	}
	if err := s.Store.Save(); err != nil {
		t.Fatal("Save returned error", err)
	}

	reopened, err := store.OpenDiskStore(s.tempDir)
	if err != nil {
		t.Fatal("reopen store returned error", err)
	}
	s.Store = reopened

	var checksum object.ID
	copy(checksum[:], data[len(data)-20:])
	loc := filepath.Join(s.tempDir, "packs", "pack-"+checksum.String()+".pack")
	onDisk, err := ioutil.ReadFile(loc)
	if err != nil {
		t.Fatal("read pack file returned error", err)
	}

	eng = gitpack.New(gitpack.Opts{Store: s.Store, Logger: logger.Discard{}})
	p, err := eng.ParsePack(onDisk)
	if err != nil {
		t.Fatal("ParsePack returned error", err)
	}
	return p
}
