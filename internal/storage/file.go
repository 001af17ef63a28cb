package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileStorage keeps one directory per project:
//
//	<dir>/config.json                 current project and preferences
//	<dir>/projects/<id>/project.json
//	<dir>/projects/<id>/tasks.json
//	<dir>/projects/<id>/simulation.json
type FileStorage struct {
	kvStorage
	dir string
}

func NewFileStorage(dir string) (*FileStorage, error) {
	files := &fileKV{dir: dir}
	if err := files.initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize file storage: %w", err)
	}
	return &FileStorage{kvStorage: kvStorage{kv: files}, dir: dir}, nil
}

func (fs *FileStorage) Dir() string {
	return fs.dir
}

const configFile = "config.json"

// config.json fields holding the global keys.
var configFields = map[string]string{
	keyCurrentProject: "currentProjectId",
	keyPreferences:    "preferences",
}

// Per-project keys map to a file inside the project directory.
var projectFiles = map[string]string{
	prefixProject:    "project.json",
	prefixTasks:      "tasks.json",
	prefixSimulation: "simulation.json",
}

type fileKV struct {
	dir string
}

func (f *fileKV) initialize() error {
	if err := os.MkdirAll(filepath.Join(f.dir, "projects"), 0755); err != nil {
		return err
	}

	configPath := filepath.Join(f.dir, configFile)
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return f.saveConfig(map[string]json.RawMessage{})
	}
	return nil
}

func (f *fileKV) path(key string) (string, error) {
	for prefix, name := range projectFiles {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		id := strings.TrimPrefix(key, prefix)
		if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
			return "", fmt.Errorf("invalid project id %q", id)
		}
		return filepath.Join(f.dir, "projects", id, name), nil
	}
	return "", fmt.Errorf("unknown key %q", key)
}

func (f *fileKV) loadConfig() (map[string]json.RawMessage, error) {
	config := make(map[string]json.RawMessage)
	data, err := os.ReadFile(filepath.Join(f.dir, configFile))
	if os.IsNotExist(err) {
		return config, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("decode %s: %w", configFile, err)
	}
	return config, nil
}

func (f *fileKV) saveConfig(config map[string]json.RawMessage) error {
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(filepath.Join(f.dir, configFile), data)
}

func (f *fileKV) get(key string) ([]byte, error) {
	if field, ok := configFields[key]; ok {
		config, err := f.loadConfig()
		if err != nil {
			return nil, err
		}
		raw, ok := config[field]
		if !ok {
			return nil, errNoKey
		}
		return raw, nil
	}

	path, err := f.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, errNoKey
	}
	return data, err
}

func (f *fileKV) put(key string, value []byte) error {
	if field, ok := configFields[key]; ok {
		config, err := f.loadConfig()
		if err != nil {
			return err
		}
		config[field] = json.RawMessage(value)
		return f.saveConfig(config)
	}

	path, err := f.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return writeFileAtomic(path, value)
}

func (f *fileKV) keys(prefix string) ([]string, error) {
	name, ok := projectFiles[prefix]
	if !ok {
		return nil, fmt.Errorf("cannot list keys with prefix %q", prefix)
	}

	entries, err := os.ReadDir(filepath.Join(f.dir, "projects"))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var keys []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(f.dir, "projects", entry.Name(), name)); err == nil {
			keys = append(keys, prefix+entry.Name())
		}
	}
	return keys, nil
}

func (f *fileKV) close() error {
	return nil
}

// writeFileAtomic writes to a temp file next to path and renames it into place.
func writeFileAtomic(path string, data []byte) error {
	tempPath := path + ".tmp"

	file, err := os.Create(tempPath)
	if err != nil {
		return err
	}
	if _, err := file.Write(append(data, '\n')); err != nil {
		file.Close()
		os.Remove(tempPath)
		return err
	}
	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return err
	}

	return os.Rename(tempPath, path)
}
