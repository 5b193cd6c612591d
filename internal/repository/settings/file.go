package settings

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// Keys used by the monitor.
const (
	KeyTriggerC   = "trigger_c"
	KeyResetC     = "reset_c"
	KeyPhones     = "phones"
	KeyQuotaDay   = "quota_day"
	KeyQuotaCount = "quota_count"
)

// DefaultFilePermissions is the mode of the settings file.
const DefaultFilePermissions os.FileMode = 0o644

// Store defines persistence operations for settings.
type Store interface {
	// Get returns the value stored under key or ErrNotFound.
	Get(ctx context.Context, key string) (any, error)
	// Put stores all values in a single write.
	Put(ctx context.Context, values map[string]any) error
}

// ErrNotFound is returned when a key (or the whole file) does not exist yet.
var ErrNotFound = errors.New("setting not found")

// ErrWrongType is returned by the typed helpers when a value has another type.
var ErrWrongType = errors.New("setting has unexpected type")

// FileRepository persists settings to a JSON file on disk.
type FileRepository struct {
	// path is the filesystem location of the JSON settings file.
	path string
	// mu protects concurrent access to the settings file.
	mu sync.Mutex
}

// NewFileRepository creates a repository that reads/writes JSON at the provided path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{
		path: filepath.Clean(path),
	}
}

// Path returns the settings file location.
func (r *FileRepository) Path() string {
	return r.path
}

// Get reads one value from disk.
func (r *FileRepository) Get(_ context.Context, key string) (any, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.load()
	if err != nil {
		return nil, err
	}

	value, ok := doc.GetFields()[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	return value.AsInterface(), nil
}

// Put merges values into the document and writes it back.
func (r *FileRepository) Put(_ context.Context, values map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.load()
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}

	if doc == nil {
		doc = &structpb.Struct{}
	}

	if doc.Fields == nil {
		doc.Fields = make(map[string]*structpb.Value, len(values))
	}

	for key, raw := range values {
		value, verr := structpb.NewValue(raw)
		if verr != nil {
			return fmt.Errorf("encode setting %s: %w", key, verr)
		}

		doc.Fields[key] = value
	}

	marshalOptions := protojson.MarshalOptions{
		Multiline: true,
		Indent:    "  ",
	}

	data, err := marshalOptions.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	return r.write(data)
}

// load reads and decodes the settings file.
func (r *FileRepository) load() (*structpb.Struct, error) {
	contents, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("read settings file: %w", err)
	}

	var doc structpb.Struct
	if err = protojson.Unmarshal(contents, &doc); err != nil {
		return nil, fmt.Errorf("decode settings file: %w", err)
	}

	return &doc, nil
}

// write replaces the settings file with data via a synced temporary file.
func (r *FileRepository) write(data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(r.path), "."+filepath.Base(r.path)+".*")
	if err != nil {
		return fmt.Errorf("create settings temp file: %w", err)
	}

	tmpName := tmp.Name()

	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}

	if _, err = tmp.Write(data); err != nil {
		cleanup()
		return fmt.Errorf("write settings temp file: %w", err)
	}

	if err = tmp.Chmod(DefaultFilePermissions); err != nil {
		cleanup()
		return fmt.Errorf("chmod settings temp file: %w", err)
	}

	if err = tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("sync settings temp file: %w", err)
	}

	if err = tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close settings temp file: %w", err)
	}

	if err = os.Rename(tmpName, r.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace settings file: %w", err)
	}

	return nil
}
