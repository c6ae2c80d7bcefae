// Package credstore keeps KEY=VALUE credential conf files under the kprotect home.
package credstore

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// Well known conf file names.
const (
	AzureServicePrincipal = "azure-sp.conf"
	AWSCredentials        = "aws.conf"
)

// Store reads and writes conf files in Dir.
type Store struct {
	Dir string
}

// Default returns the store rooted at $KPROTECT_HOME or $HOME/.kprotect.
func Default() *Store {
	if dir := os.Getenv("KPROTECT_HOME"); dir != "" {
		return &Store{Dir: dir}
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return &Store{Dir: ".kprotect"}
	}
	return &Store{Dir: filepath.Join(home, ".kprotect")}
}

// Path returns the full path of a conf file.
func (s *Store) Path(name string) string {
	return filepath.Join(s.Dir, name)
}

// Load reads a conf file. A missing file yields an empty map.
func (s *Store) Load(name string) (map[string]string, error) {
	m, err := godotenv.Read(s.Path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("read %s: %w", s.Path(name), err)
	}
	return m, nil
}

// Save merges values into a conf file and writes it with mode 0600.
func (s *Store) Save(name string, values map[string]string) error {
	cur, err := s.Load(name)
	if err != nil {
		return err
	}
	for k, v := range values {
		cur[k] = v
	}
	content, err := godotenv.Marshal(cur)
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	return s.Write(name, func(w io.Writer) error {
		_, err := io.WriteString(w, content+"\n")
		return err
	})
}

// Write replaces a file in Dir with what write produces. The data goes to a
// temporary file created with mode 0600 which is then renamed into place.
func (s *Store) Write(name string, write func(io.Writer) error) error {
	if err := os.MkdirAll(s.Dir, 0o700); err != nil {
		return fmt.Errorf("create %s: %w", s.Dir, err)
	}
	path := s.Path(name)
	f, err := os.CreateTemp(s.Dir, "."+name+"-*")
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	tmp := f.Name()
	defer os.Remove(tmp)
	if err := f.Chmod(0o600); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Remove deletes a conf file if present.
func (s *Store) Remove(name string) error {
	if err := os.Remove(s.Path(name)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
