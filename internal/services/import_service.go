package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"

	"concerto/internal/domain"
	applog "concerto/internal/log"
	"concerto/internal/validate"
)

type ContentStore interface {
	Exists(ctx context.Context, className, name string) (bool, error)
	SaveAll(ctx context.Context, objs []*domain.ContentObject, overwrite bool) error
}

// ImportService loads exported content (".concerto.json" fixtures) into the panel.
type ImportService struct {
	Content ContentStore
	Files   fs.FS
}

func NewImportService(content ContentStore, files fs.FS) *ImportService {
	return &ImportService{Content: content, Files: files}
}

type fixtureEntry struct {
	ClassName   string `json:"class_name"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ImportFromFile imports every entry of the fixture at name, owned by user
// and tagged with category. Each entry gets a result; entries with errors are
// not written. When overwrite is false an entry that already exists is an
// error. A file that can't be read or decoded is returned as err.
func (s *ImportService) ImportFromFile(ctx context.Context, user *domain.User, name, category string, overwrite bool) ([]domain.ImportResult, error) {
	raw, err := fs.ReadFile(s.Files, path.Clean(name))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", name, err)
	}

	results := make([]domain.ImportResult, 0, len(entries))
	var objs []*domain.ContentObject
	seen := map[string]bool{}
	for _, e := range entries {
		obj, res := s.prepare(ctx, e, user, category, overwrite, seen)
		if !res.Errors {
			objs = append(objs, obj)
		}
		results = append(results, res)
	}

	if len(objs) > 0 {
		if err := s.Content.SaveAll(ctx, objs, overwrite); err != nil {
			return nil, fmt.Errorf("saving %s: %w", name, err)
		}
	}
	applog.Audit("import.file", map[string]any{"file": name, "entries": len(entries), "saved": len(objs)})
	return results, nil
}

func (s *ImportService) prepare(ctx context.Context, raw json.RawMessage, user *domain.User, category string, overwrite bool, seen map[string]bool) (*domain.ContentObject, domain.ImportResult) {
	var e fixtureEntry
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, failed(domain.ImportResult{}, "malformed entry: "+err.Error())
	}
	res := domain.ImportResult{ClassName: e.ClassName, Name: e.Name}

	class, ok := validate.ClassName(e.ClassName)
	if !ok {
		return nil, failed(res, fmt.Sprintf("unknown class %q", e.ClassName))
	}
	objName, ok := validate.ObjectName(e.Name)
	if !ok {
		return nil, failed(res, fmt.Sprintf("invalid name %q", e.Name))
	}
	key := class + "/" + objName
	if seen[key] {
		return nil, failed(res, "duplicate entry in file")
	}
	seen[key] = true

	if !overwrite {
		exists, err := s.Content.Exists(ctx, class, objName)
		if err != nil {
			return nil, failed(res, err.Error())
		}
		if exists {
			return nil, failed(res, "object already exists")
		}
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, raw); err != nil {
		return nil, failed(res, err.Error())
	}
	obj := &domain.ContentObject{
		ClassName:   class,
		Name:        objName,
		Description: e.Description,
		Category:    category,
		Payload:     compact.String(),
	}
	if user != nil && user.ID != "" {
		obj.OwnerID.String, obj.OwnerID.Valid = user.ID, true
	}
	return obj, res
}

func failed(res domain.ImportResult, msg string) domain.ImportResult {
	res.Errors = true
	res.Messages = append(res.Messages, msg)
	return res
}
