package settings_test

import (
	"errors"
	"os"
	"strings"

	"github.com/spf13/afero"
)

var errInjected = errors.New("injected failure")

// faultyFs fails renames out of the given source and any write below the given prefix.
type faultyFs struct {
	afero.Fs
	failRenameFrom string
	failPrefix     string
}

func (f *faultyFs) Rename(oldname, newname string) error {
	if f.failRenameFrom != "" && oldname == f.failRenameFrom {
		return &os.LinkError{Op: "rename", Old: oldname, New: newname, Err: errInjected}
	}
	return f.Fs.Rename(oldname, newname)
}

func (f *faultyFs) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	if f.failPrefix != "" && strings.HasPrefix(name, f.failPrefix) && flag&(os.O_WRONLY|os.O_RDWR) != 0 {
		return nil, &os.PathError{Op: "open", Path: name, Err: errInjected}
	}
	return f.Fs.OpenFile(name, flag, perm)
}

func (f *faultyFs) MkdirAll(path string, perm os.FileMode) error {
	if f.failPrefix != "" && strings.HasPrefix(path+"/", f.failPrefix) {
		return &os.PathError{Op: "mkdir", Path: path, Err: errInjected}
	}
	return f.Fs.MkdirAll(path, perm)
}
