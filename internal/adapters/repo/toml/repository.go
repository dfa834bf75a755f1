package toml

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/bnema/fundcrawl/internal/domain"
	"github.com/bnema/fundcrawl/internal/ports"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

const (
	configName      = "config"
	configType      = "toml"
	ItemsPathKey    = "items.path"
	itemsFileMode   = 0o600
	itemsDirMode    = 0o700
	ConfigDir       = ".fundcrawl"
	itemsConfigFile = "items.toml"
	tempFilePattern = ".items-*.toml.tmp"
)

// Repository keeps the work-item list in a single TOML file. Entries keep
// their insertion order; that order is the visiting order.
type Repository struct {
	itemsPath string
	mu        *sync.RWMutex
}

var (
	lockRegistryMu sync.Mutex
	pathLockMap    = map[string]*sync.RWMutex{}
)

var _ ports.WorkItemRepository = (*Repository)(nil)

func NewRepository(cfg *viper.Viper) (*Repository, error) {
	if cfg == nil {
		cfg = viper.New()
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}

	defaultPath := filepath.Join(homeDir, ConfigDir, itemsConfigFile)

	cfg.SetConfigName(configName)
	cfg.SetConfigType(configType)
	cfg.AddConfigPath(filepath.Join(homeDir, ConfigDir))
	cfg.SetDefault(ItemsPathKey, defaultPath)

	err = cfg.ReadInConfig()
	if err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	itemsPath := cfg.GetString(ItemsPathKey)
	if itemsPath == "" {
		return nil, errors.New("items path is empty")
	}
	itemsPath, err = normalizeItemsPath(itemsPath)
	if err != nil {
		return nil, err
	}

	return &Repository{itemsPath: itemsPath, mu: lockForPath(itemsPath)}, nil
}

func (r *Repository) Path() string {
	return r.itemsPath
}

// Save replaces the entry with the same order-book id in place, or appends.
func (r *Repository) Save(ctx context.Context, item domain.WorkItem) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := item.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	file, err := r.readSchema()
	if err != nil {
		return err
	}

	encoded := toSchema(item)
	updated := false
	for i := range file.Items {
		if file.Items[i].OrderbookID == encoded.OrderbookID {
			file.Items[i] = encoded
			updated = true
			break
		}
	}

	if !updated {
		file.Items = append(file.Items, encoded)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	return r.writeSchema(file)
}

func (r *Repository) Remove(ctx context.Context, ref domain.ItemRef) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	file, err := r.readSchema()
	if err != nil {
		return err
	}

	kept := file.Items[:0]
	for _, entry := range file.Items {
		if entry.OrderbookID != string(ref) {
			kept = append(kept, entry)
		}
	}
	if len(kept) == len(file.Items) {
		return domain.ErrWorkItemNotFound
	}
	file.Items = kept

	return r.writeSchema(file)
}

func (r *Repository) GetByRef(ctx context.Context, ref domain.ItemRef) (domain.WorkItem, error) {
	if err := ctx.Err(); err != nil {
		return domain.WorkItem{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	file, err := r.readSchema()
	if err != nil {
		return domain.WorkItem{}, err
	}

	for _, entry := range file.Items {
		if entry.OrderbookID == string(ref) {
			return fromSchema(entry), nil
		}
	}

	return domain.WorkItem{}, domain.ErrWorkItemNotFound
}

func (r *Repository) List(ctx context.Context) ([]domain.WorkItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	file, err := r.readSchema()
	if err != nil {
		return nil, err
	}

	items := make([]domain.WorkItem, 0, len(file.Items))
	for _, entry := range file.Items {
		items = append(items, fromSchema(entry))
	}

	return items, nil
}

func (r *Repository) readSchema() (fileSchema, error) {
	data, err := os.ReadFile(r.itemsPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			file := fileSchema{}
			file.applyDefaults()
			return file, nil
		}
		return fileSchema{}, fmt.Errorf("read items file: %w", err)
	}

	var file fileSchema
	if err := toml.Unmarshal(data, &file); err != nil {
		return fileSchema{}, fmt.Errorf("decode items file: %w", err)
	}
	if err := file.validateVersion(); err != nil {
		return fileSchema{}, err
	}
	file.applyDefaults()

	return file, nil
}

func normalizeItemsPath(path string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve items path: %w", err)
	}

	return filepath.Clean(absPath), nil
}

func lockForPath(path string) *sync.RWMutex {
	lockRegistryMu.Lock()
	defer lockRegistryMu.Unlock()

	if mu, ok := pathLockMap[path]; ok {
		return mu
	}

	mu := &sync.RWMutex{}
	pathLockMap[path] = mu
	return mu
}

// writeSchema replaces the file through a temp file and rename so readers
// never see a partial list.
func (r *Repository) writeSchema(file fileSchema) error {
	file.applyDefaults()

	if err := os.MkdirAll(filepath.Dir(r.itemsPath), itemsDirMode); err != nil {
		return fmt.Errorf("create items directory: %w", err)
	}

	data, err := toml.Marshal(file)
	if err != nil {
		return fmt.Errorf("encode items file: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(r.itemsPath), tempFilePattern)
	if err != nil {
		return fmt.Errorf("create temp items file: %w", err)
	}

	tempName := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp items file: %w", err)
	}

	if err := tempFile.Chmod(itemsFileMode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp items file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp items file: %w", err)
	}

	if err := os.Rename(tempName, r.itemsPath); err != nil {
		return fmt.Errorf("replace items file: %w", err)
	}

	cleanup = false

	return nil
}

func toSchema(item domain.WorkItem) itemSchema {
	return itemSchema{
		OrderbookID: string(item.Ref()),
		ISIN:        item.ISIN,
		Name:        item.Name,
		URL:         item.URL,
	}
}

func fromSchema(entry itemSchema) domain.WorkItem {
	return domain.WorkItem{
		OrderbookID: entry.OrderbookID,
		ISIN:        entry.ISIN,
		Name:        entry.Name,
		URL:         entry.URL,
	}
}
