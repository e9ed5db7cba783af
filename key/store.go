package key

import (
	"errors"
	"fmt"
	"os"
	"path"

	"github.com/BurntSushi/toml"
	"github.com/hashicorp/go-multierror"

	"github.com/honeybft/honeybft/fs"
)

// Tomler represents any struct that can be (un)marshalled into/from toml format
type Tomler interface {
	TOML() interface{}
	FromTOML(i interface{}) error
	TOMLValue() interface{}
}

// ErrAbsent is returned when the store can't find a requested object.
var ErrAbsent = errors.New("store can't find requested object")

const (
	publicFileName    = "dist_key.public"
	shareFilePattern  = "share-%03d.private"
	keyFolderName     = "keys"
	defaultDataFolder = ".honeybft"
)

// DefaultDataFolder returns the folder where key material lives by default.
func DefaultDataFolder() string {
	return path.Join(fs.HomeFolder(), defaultDataFolder)
}

// FileStore saves and loads distributed key material as TOML files inside a
// keys/ folder. Private shares are written with user-only permissions.
type FileStore struct {
	baseFolder string
	publicFile string
}

// NewFileStore creates (if needed) the keys folder under baseFolder and
// returns the store rooted there.
func NewFileStore(baseFolder string) *FileStore {
	folder := fs.CreateSecureFolder(path.Join(baseFolder, keyFolderName))
	return &FileStore{
		baseFolder: folder,
		publicFile: path.Join(folder, publicFileName),
	}
}

func (f *FileStore) shareFile(id int) string {
	return path.Join(f.baseFolder, fmt.Sprintf(shareFilePattern, id))
}

// SaveDistPublic writes the public parameters. They are world-readable.
func (f *FileStore) SaveDistPublic(d *DistPublic) error {
	return f.save(f.publicFile, d, false)
}

// LoadDistPublic reads the public parameters saved with SaveDistPublic.
func (f *FileStore) LoadDistPublic() (*DistPublic, error) {
	d := new(DistPublic)
	return d, f.load(f.publicFile, d)
}

// SaveShare writes the private share of one player with tight permissions.
func (f *FileStore) SaveShare(s *Share) error {
	return f.save(f.shareFile(s.Index), s, true)
}

// LoadShare reads the private share of the given 1-based player id.
func (f *FileStore) LoadShare(id int) (*Share, error) {
	s := new(Share)
	return s, f.load(f.shareFile(id), s)
}

// SaveKeySet writes the public parameters and every private share,
// accumulating any per-file failures.
func (f *FileStore) SaveKeySet(ks *KeySet) error {
	var result *multierror.Error
	if err := f.SaveDistPublic(ks.Public); err != nil {
		result = multierror.Append(result, err)
	}
	for _, s := range ks.Shares {
		if err := f.SaveShare(s); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

func (f *FileStore) save(filePath string, t Tomler, secure bool) error {
	var fd *os.File
	var err error
	if secure {
		fd, err = fs.CreateSecureFile(filePath)
	} else {
		fd, err = os.Create(filePath)
	}
	if err != nil {
		return fmt.Errorf("save %s: %w", filePath, err)
	}
	defer fd.Close()
	return toml.NewEncoder(fd).Encode(t.TOML())
}

func (f *FileStore) load(filePath string, t Tomler) error {
	if exists, _ := fs.Exists(filePath); !exists {
		return fmt.Errorf("%w: %s", ErrAbsent, filePath)
	}
	tomlValue := t.TOMLValue()
	if _, err := toml.DecodeFile(filePath, tomlValue); err != nil {
		return err
	}
	return t.FromTOML(tomlValue)
}
