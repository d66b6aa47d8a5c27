package export

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// FileSink writes named artifacts into a folder. A write replaces the previous artifact of the same
// name atomically so a reader never sees a partial file.
type FileSink struct {
	folder string
}

func NewFileSink(folder string) (*FileSink, error) {
	err := os.MkdirAll(folder, 0o755)
	if err != nil {
		return nil, errors.Wrapf(err, "creating output folder [%s]", folder)
	}
	return &FileSink{folder: folder}, nil
}

func (s *FileSink) Write(name string, data []byte) error {
	if name == "" || filepath.Base(name) != name {
		return errors.Errorf("invalid artifact name [%s]", name)
	}

	tmp, err := os.CreateTemp(s.folder, "."+name+"-*")
	if err != nil {
		return errors.Wrap(err, "creating temp file")
	}
	defer os.Remove(tmp.Name())

	_, err = tmp.Write(data)
	if err != nil {
		_ = tmp.Close()
		return errors.Wrapf(err, "writing [%s]", name)
	}
	err = tmp.Close()
	if err != nil {
		return errors.Wrapf(err, "closing [%s]", name)
	}

	err = os.Rename(tmp.Name(), filepath.Join(s.folder, name))
	if err != nil {
		return errors.Wrapf(err, "renaming [%s]", name)
	}
	return nil
}

func (s *FileSink) Path(name string) string {
	return filepath.Join(s.folder, name)
}
