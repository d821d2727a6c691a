package pages

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/legado-reader/legado-client/internal/domain"
	"github.com/legado-reader/legado-client/internal/validation"
)

// SourceEditView is what the source form renders.
type SourceEditView struct {
	Source domain.BookSource `json:"source"`
	IsNew  bool              `json:"isNew"`
	Notice *Notice           `json:"notice,omitempty"`
}

// SourceEdit creates and edits one book source.
type SourceEdit struct {
	noticeBoard

	api       SourcesAPI
	validator *validation.Validator
	logger    *slog.Logger

	mu     sync.RWMutex
	source domain.BookSource
}

// NewSourceEdit creates the source form.
func NewSourceEdit(api SourcesAPI, logger *slog.Logger) *SourceEdit {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SourceEdit{
		api:       api,
		validator: validation.New(),
		logger:    logger,
		source:    domain.BookSource{Enabled: true},
	}
}

// Load fills the form with source id. Id 0 starts a new source.
func (p *SourceEdit) Load(ctx context.Context, id int64) error {
	src := &domain.BookSource{Enabled: true}
	if id != 0 {
		var err error
		src, err = p.api.GetSource(ctx, id)
		if err != nil {
			return p.fail(err)
		}
	}

	p.mu.Lock()
	p.source = *src
	p.mu.Unlock()
	p.DismissNotice()
	return nil
}

// Validate checks the form. Name and url are required and the url must be
// an http(s) URL.
func (p *SourceEdit) Validate(src domain.BookSource) error {
	src.SourceName = strings.TrimSpace(src.SourceName)
	src.SourceURL = strings.TrimSpace(src.SourceURL)
	return p.validator.Validate(src)
}

// Save validates src and creates or updates it on the server.
func (p *SourceEdit) Save(ctx context.Context, src domain.BookSource) (*domain.BookSource, error) {
	src.SourceName = strings.TrimSpace(src.SourceName)
	src.SourceURL = strings.TrimSpace(src.SourceURL)
	if err := p.validator.Validate(src); err != nil {
		return nil, p.fail(err)
	}

	var (
		saved *domain.BookSource
		err   error
	)
	if src.IsNew() {
		saved, err = p.api.CreateSource(ctx, &src)
	} else {
		saved, err = p.api.UpdateSource(ctx, src.ID, &src)
	}
	if err != nil {
		return nil, p.fail(err)
	}
	if saved == nil {
		saved = &src
	}

	p.mu.Lock()
	p.source = *saved
	p.mu.Unlock()
	p.inform("source saved")
	p.logger.Info("source saved", "source_id", saved.ID, "name", saved.SourceName)
	return saved, nil
}

// View returns the form state.
func (p *SourceEdit) View() SourceEditView {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return SourceEditView{
		Source: p.source,
		IsNew:  p.source.IsNew(),
		Notice: p.Notice(),
	}
}
