package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bitcoinfees/ethgas/predict"
)

// File writes the recommendation and table as JSON documents in a directory.
// Each document is replaced atomically.
type File struct {
	dir string
}

func NewFile(dir string) (*File, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &File{dir: dir}, nil
}

// Path returns the file path of the named document.
func (f *File) Path(name string) string {
	return filepath.Join(f.dir, name+".json")
}

func (f *File) Publish(ctx context.Context, rec *predict.Recommendation, table predict.Table) error {
	if err := f.write(RecommendationName, rec); err != nil {
		return err
	}
	return f.write(TableName, table)
}

func (f *File) write(name string, v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(f.dir, "."+name+"-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), f.Path(name))
}

func (f *File) Close() error {
	return nil
}

func (f *File) String() string {
	return fmt.Sprintf("file(%s)", f.dir)
}
