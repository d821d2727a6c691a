package pages

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"
	"sync"

	"github.com/legado-reader/legado-client/internal/domain"
	domainerrors "github.com/legado-reader/legado-client/internal/errors"
	"github.com/legado-reader/legado-client/internal/search"
	"github.com/legado-reader/legado-client/internal/validation"
)

// GroupAll selects every group.
const GroupAll = "all"

// maxImportFileSize bounds source files read from disk.
const maxImportFileSize = 8 << 20

// SourcesView is what the source list renders.
type SourcesView struct {
	Sources []domain.BookSource `json:"sources"`
	Groups  []string            `json:"groups"`
	Keyword string              `json:"keyword,omitempty"`
	Group   string              `json:"group"`
	Total   int                 `json:"total"`
	Notice  *Notice             `json:"notice,omitempty"`
}

// Sources manages the book source list.
type Sources struct {
	noticeBoard

	api       SourcesAPI
	index     *search.Index
	validator *validation.Validator
	logger    *slog.Logger

	mu      sync.RWMutex
	sources []domain.BookSource
	visible []domain.BookSource
	keyword string
	group   string
}

// NewSources creates the source list page.
func NewSources(api SourcesAPI, index *search.Index, logger *slog.Logger) *Sources {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Sources{
		api:       api,
		index:     index,
		validator: validation.New(),
		logger:    logger,
		group:     GroupAll,
	}
}

// Load fetches the source list and reapplies the current filter.
func (p *Sources) Load(ctx context.Context) error {
	sources, err := p.api.ListSources(ctx)
	if err != nil {
		return p.fail(err)
	}
	return p.replace(ctx, sources)
}

func (p *Sources) replace(ctx context.Context, sources []domain.BookSource) error {
	if err := p.index.Replace(search.KindSource, search.SourceDocuments(sources)); err != nil {
		p.logger.Warn("failed to index sources", "error", err)
	}

	p.mu.Lock()
	p.sources = sources
	keyword, group := p.keyword, p.group
	p.mu.Unlock()

	return p.Filter(ctx, keyword, group)
}

// Filter narrows the list to sources whose name or group contains keyword,
// case-insensitively, within group. GroupAll or "" means any group.
func (p *Sources) Filter(ctx context.Context, keyword, group string) error {
	if group == "" {
		group = GroupAll
	}
	keyword = strings.TrimSpace(keyword)

	p.mu.RLock()
	sources := p.sources
	p.mu.RUnlock()

	visible := sources
	if keyword != "" || group != GroupAll {
		params := search.Params{Kind: search.KindSource, Keyword: keyword}
		if group != GroupAll {
			params.Group = group
		}
		ids, err := p.index.Filter(ctx, params)
		if err != nil {
			return p.fail(err)
		}
		visible = selectByID(sources, ids, func(s domain.BookSource) int64 { return s.ID })
	}

	p.mu.Lock()
	p.keyword = keyword
	p.group = group
	p.visible = visible
	p.mu.Unlock()
	return nil
}

// Test asks the server to validate a source. The server's verdict becomes
// an info notice.
func (p *Sources) Test(ctx context.Context, id int64) (string, error) {
	msg, err := p.api.TestSource(ctx, id)
	if err != nil {
		return "", p.fail(err)
	}
	if msg == "" {
		msg = "source test passed"
	}
	p.inform(msg)
	return msg, nil
}

// Delete removes a source.
func (p *Sources) Delete(ctx context.Context, id int64) error {
	if err := p.api.DeleteSource(ctx, id); err != nil {
		return p.fail(err)
	}

	p.mu.RLock()
	remaining := slices.DeleteFunc(slices.Clone(p.sources), func(s domain.BookSource) bool { return s.ID == id })
	p.mu.RUnlock()

	p.logger.Info("source deleted", "source_id", id)
	return p.replace(ctx, remaining)
}

// Toggle enables or disables a source.
func (p *Sources) Toggle(ctx context.Context, id int64, enabled bool) error {
	if err := p.api.ToggleSource(ctx, id, enabled); err != nil {
		return p.fail(err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	setEnabled := func(list []domain.BookSource) []domain.BookSource {
		list = slices.Clone(list)
		for i := range list {
			if list[i].ID == id {
				list[i].Enabled = enabled
			}
		}
		return list
	}
	p.sources = setEnabled(p.sources)
	p.visible = setEnabled(p.visible)
	return nil
}

// Import uploads a JSON source list (an array, or a single source object)
// and reloads the list. It returns the number of sources the server saved.
func (p *Sources) Import(ctx context.Context, data []byte) (int, error) {
	payload, err := sourcePayload(data)
	if err != nil {
		return 0, p.fail(err)
	}

	saved, err := p.api.ImportSources(ctx, payload)
	if err != nil {
		return 0, p.fail(err)
	}
	p.inform(fmt.Sprintf("imported %d sources", len(saved)))
	if err := p.Load(ctx); err != nil {
		return len(saved), err
	}
	return len(saved), nil
}

// ImportFile imports the sources stored in a local JSON file.
func (p *Sources) ImportFile(ctx context.Context, path string) (int, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, p.fail(fmt.Errorf("read source file: %w", err))
	}
	if info.Size() > maxImportFileSize {
		return 0, p.fail(domainerrors.Validationf("source file is larger than %d bytes", maxImportFileSize))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, p.fail(fmt.Errorf("read source file: %w", err))
	}
	return p.Import(ctx, data)
}

// ImportURL asks the server to import the source list at sourceListURL.
func (p *Sources) ImportURL(ctx context.Context, sourceListURL string) (int, error) {
	sourceListURL = strings.TrimSpace(sourceListURL)
	if err := p.validator.Var("url", sourceListURL, "required,httpurl"); err != nil {
		return 0, p.fail(err)
	}

	count, err := p.api.ImportSourcesFromURL(ctx, sourceListURL)
	if err != nil {
		return 0, p.fail(err)
	}
	p.inform(fmt.Sprintf("imported %d sources", count))
	if err := p.Load(ctx); err != nil {
		return count, err
	}
	return count, nil
}

// Export returns one loaded source as indented JSON.
func (p *Sources) Export(id int64) ([]byte, error) {
	p.mu.RLock()
	i := slices.IndexFunc(p.sources, func(s domain.BookSource) bool { return s.ID == id })
	var src domain.BookSource
	if i >= 0 {
		src = p.sources[i]
	}
	p.mu.RUnlock()

	if i < 0 {
		return nil, p.fail(domainerrors.NotFoundf("source %d not found", id))
	}
	data, err := json.MarshalIndent(src, "", "  ")
	if err != nil {
		return nil, p.fail(fmt.Errorf("encode source: %w", err))
	}
	return data, nil
}

// View returns the filtered source list.
func (p *Sources) View() SourcesView {
	p.mu.RLock()
	defer p.mu.RUnlock()

	visible := slices.Clone(p.visible)
	if visible == nil {
		visible = []domain.BookSource{}
	}
	return SourcesView{
		Sources: visible,
		Groups:  domain.SourceGroups(p.sources),
		Keyword: p.keyword,
		Group:   p.group,
		Total:   len(p.sources),
		Notice:  p.Notice(),
	}
}

// sourcePayload checks that data is a JSON array or object and returns it
// as an array.
func sourcePayload(data []byte) (json.RawMessage, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, domainerrors.Validation("source file is empty")
	}
	if !json.Valid(data) {
		return nil, domainerrors.Validation("source file is not valid JSON")
	}

	switch data[0] {
	case '[':
		return json.RawMessage(data), nil
	case '{':
		wrapped := make([]byte, 0, len(data)+2)
		wrapped = append(wrapped, '[')
		wrapped = append(wrapped, data...)
		wrapped = append(wrapped, ']')
		return json.RawMessage(wrapped), nil
	default:
		return nil, domainerrors.Validation("source file must contain a source or a list of sources")
	}
}
