package pages

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/legado-reader/legado-client/internal/color"
	"github.com/legado-reader/legado-client/internal/content"
	"github.com/legado-reader/legado-client/internal/domain"
	domainerrors "github.com/legado-reader/legado-client/internal/errors"
	"github.com/legado-reader/legado-client/internal/logger"
	"github.com/legado-reader/legado-client/internal/prefs"
	"github.com/legado-reader/legado-client/internal/progress"
	"github.com/legado-reader/legado-client/internal/remote"
	"github.com/legado-reader/legado-client/internal/remote/remotetest"
	"github.com/legado-reader/legado-client/internal/search"
	"github.com/legado-reader/legado-client/internal/session"
	"github.com/legado-reader/legado-client/internal/store"
	"github.com/legado-reader/legado-client/internal/watcher"
)

func ptr[T any](v T) *T { return &v }

func setupTestIndex(t *testing.T) *search.Index {
	t.Helper()
	ix, err := search.NewIndex(logger.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = ix.Close() })
	return ix
}

type readerFixture struct {
	srv    *remotetest.Server
	prefs  *prefs.Store
	sync   *progress.Synchronizer
	reader *Reader
}

func setupTestReader(t *testing.T, opts ReaderOptions) *readerFixture {
	t.Helper()
	srv := remotetest.NewServer(t)
	srv.AddBook(domain.Book{ID: 1, Name: "三体", DurChapterIndex: 2, DurChapterPos: 120}, 5)
	srv.AddBook(domain.Book{ID: 2, Name: "Empty"}, 0)

	client := srv.Client(t)
	p := prefs.New(store.NewMemory(), logger.Discard())
	s := progress.New(client, time.Hour, logger.Discard())
	t.Cleanup(func() { s.Close(context.Background()) })

	return &readerFixture{
		srv:    srv,
		prefs:  p,
		sync:   s,
		reader: NewReader(client, p, s, opts, logger.Discard()),
	}
}

func TestNoticeFrom(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		message string
		fields  map[string]string
	}{
		{"nil", nil, "", nil},
		{
			name:    "remote error shows server message",
			err:     &remote.RemoteError{Kind: remote.KindApplication, Op: "GET /x", AppCode: 500, Message: "书源解析失败"},
			message: "书源解析失败",
		},
		{
			name:    "validation carries fields",
			err:     domainerrors.ValidationFields("sourceName is required", map[string]string{"sourceName": "is required"}),
			message: "sourceName is required",
			fields:  map[string]string{"sourceName": "is required"},
		},
		{"plain error", errors.New("disk full"), "disk full", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := NoticeFrom(tt.err)
			if tt.err == nil {
				assert.Nil(t, n)
				return
			}
			require.NotNil(t, n)
			assert.Equal(t, NoticeError, n.Level)
			assert.Equal(t, tt.message, n.Message)
			assert.Equal(t, tt.fields, n.Fields)
		})
	}
}

func TestBookshelf_LoadFilterDelete(t *testing.T) {
	srv := remotetest.NewServer(t)
	srv.AddBook(domain.Book{ID: 1, Name: "三体", Author: "刘慈欣", OriginName: "起点"}, 1)
	srv.AddBook(domain.Book{ID: 2, Name: "Foundation", Author: "Isaac Asimov"}, 1)
	srv.AddBook(domain.Book{ID: 3, Name: "球状闪电", Author: "刘慈欣"}, 1)

	page := NewBookshelf(srv.Client(t), setupTestIndex(t), nil, logger.Discard())
	ctx := context.Background()

	require.NoError(t, page.Load(ctx))
	view := page.View()
	assert.True(t, view.Loaded)
	assert.Equal(t, 3, view.Total)
	assert.Len(t, view.Books, 3)

	require.NoError(t, page.Filter(ctx, "刘慈欣"))
	view = page.View()
	require.Len(t, view.Books, 2)
	assert.Equal(t, int64(1), view.Books[0].ID)
	assert.Equal(t, int64(3), view.Books[1].ID)

	require.NoError(t, page.Filter(ctx, "FOUND"))
	require.Len(t, page.View().Books, 1)

	require.NoError(t, page.Filter(ctx, "刘慈欣"))
	require.NoError(t, page.Delete(ctx, 1))
	view = page.View()
	assert.Equal(t, 2, view.Total)
	require.Len(t, view.Books, 1)
	assert.Equal(t, int64(3), view.Books[0].ID)

	_, ok := page.Book(1)
	assert.False(t, ok)
}

func TestBookshelf_FailureKeepsState(t *testing.T) {
	srv := remotetest.NewServer(t)
	srv.AddBook(domain.Book{ID: 1, Name: "三体"}, 1)
	page := NewBookshelf(srv.Client(t), setupTestIndex(t), nil, logger.Discard())
	ctx := context.Background()
	require.NoError(t, page.Load(ctx))

	srv.Fail(http.MethodGet, "/api/v1/books", remotetest.Failure{HTTPStatus: http.StatusOK, Code: 500, Message: "数据库错误"})
	err := page.Load(ctx)
	require.Error(t, err)

	view := page.View()
	require.Len(t, view.Books, 1)
	require.NotNil(t, view.Notice)
	assert.Equal(t, "数据库错误", view.Notice.Message)

	page.DismissNotice()
	assert.Nil(t, page.View().Notice)

	err = page.Delete(ctx, 99)
	require.ErrorIs(t, err, remote.ErrNotFound)
	assert.Len(t, page.View().Books, 1)
}

func TestReader_OpenRestoresServerPosition(t *testing.T) {
	f := setupTestReader(t, ReaderOptions{})
	ctx := context.Background()

	require.NoError(t, f.reader.Open(ctx, 1))

	view := f.reader.View()
	require.NotNil(t, view.Book)
	assert.Equal(t, 5, view.ChapterCount)
	assert.Equal(t, 2, view.ChapterIndex)
	assert.Equal(t, "Chapter 3", view.ChapterTitle)
	require.NotNil(t, view.Chapter)
	assert.Equal(t, []string{"chapter 2 of 三体"}, view.Chapter.Paragraphs)
	assert.Equal(t, 120, view.ScrollOffset)
	assert.True(t, view.HasPrev)
	assert.True(t, view.HasNext)
	assert.Nil(t, view.Pages)

	pos := f.prefs.Position()
	assert.True(t, pos.SameBook(1))
	assert.Equal(t, 2, pos.ChapterIndex)
	assert.Equal(t, 120, pos.ScrollOffset)
	assert.True(t, f.sync.Pending())
}

func TestReader_OpenPrefersLocalPosition(t *testing.T) {
	f := setupTestReader(t, ReaderOptions{})
	f.prefs.SetCurrentBook(1, 4)
	f.prefs.SetScrollOffset(33)

	require.NoError(t, f.reader.Open(context.Background(), 1))

	view := f.reader.View()
	assert.Equal(t, 4, view.ChapterIndex)
	assert.Equal(t, 33, view.ScrollOffset)
	assert.False(t, view.HasNext)
}

func TestReader_OpenClampsStalePosition(t *testing.T) {
	f := setupTestReader(t, ReaderOptions{})
	f.prefs.SetCurrentBook(1, 40)

	require.NoError(t, f.reader.Open(context.Background(), 1))
	assert.Equal(t, 4, f.reader.View().ChapterIndex)
}

func TestReader_OpenBookWithoutChapters(t *testing.T) {
	f := setupTestReader(t, ReaderOptions{})

	require.NoError(t, f.reader.Open(context.Background(), 2))
	view := f.reader.View()
	assert.Zero(t, view.ChapterCount)
	assert.False(t, view.HasNext)
	assert.False(t, view.HasPrev)
}

func TestReader_OpenFailureKeepsPreviousBook(t *testing.T) {
	f := setupTestReader(t, ReaderOptions{})
	ctx := context.Background()
	require.NoError(t, f.reader.Open(ctx, 1))

	err := f.reader.Open(ctx, 77)
	require.ErrorIs(t, err, remote.ErrNotFound)

	view := f.reader.View()
	require.NotNil(t, view.Book)
	assert.Equal(t, int64(1), view.Book.ID)
	require.NotNil(t, view.Notice)
	assert.Equal(t, "书籍不存在", view.Notice.Message)
}

func TestReader_ChapterNavigationClamps(t *testing.T) {
	f := setupTestReader(t, ReaderOptions{})
	ctx := context.Background()
	f.prefs.SetCurrentBook(1, 0)
	require.NoError(t, f.reader.Open(ctx, 1))

	require.NoError(t, f.reader.Prev(ctx))
	assert.Equal(t, 0, f.reader.View().ChapterIndex)

	for range 10 {
		require.NoError(t, f.reader.Next(ctx))
	}
	view := f.reader.View()
	assert.Equal(t, 4, view.ChapterIndex)
	assert.Equal(t, []string{"chapter 4 of 三体"}, view.Chapter.Paragraphs)
	assert.Equal(t, 4, f.prefs.Position().ChapterIndex)

	require.NoError(t, f.reader.GoTo(ctx, -3))
	assert.Equal(t, 0, f.reader.View().ChapterIndex)
}

func TestReader_ChapterFailureKeepsChapter(t *testing.T) {
	f := setupTestReader(t, ReaderOptions{})
	ctx := context.Background()
	f.prefs.SetCurrentBook(1, 1)
	require.NoError(t, f.reader.Open(ctx, 1))

	f.srv.Fail(http.MethodGet, "/api/v1/books/1/chapters/2/content", remotetest.Failure{HTTPStatus: http.StatusBadGateway, Message: "bad gateway"})
	require.Error(t, f.reader.Next(ctx))

	view := f.reader.View()
	assert.Equal(t, 1, view.ChapterIndex)
	assert.Equal(t, 1, f.prefs.Position().ChapterIndex)
	require.NotNil(t, view.Notice)
}

func TestReader_RendersHTMLAndPaginates(t *testing.T) {
	f := setupTestReader(t, ReaderOptions{Viewport: content.Viewport{Width: 200, Height: 200}})
	f.srv.SetContent(1, 0, "<p>第一段</p><p>第二段</p>")
	f.prefs.SetCurrentBook(1, 0)
	f.prefs.UpdateSettings(domain.SettingsPatch{PageMode: ptr(domain.PageModePagination)})

	require.NoError(t, f.reader.Open(context.Background(), 1))

	view := f.reader.View()
	require.NotNil(t, view.Chapter)
	assert.Equal(t, []string{"第一段", "第二段"}, view.Chapter.Paragraphs)
	assert.NotEmpty(t, view.Chapter.Markdown)
	require.NotEmpty(t, view.Pages)

	before := len(view.Pages)
	f.reader.AdjustFontSize(10)
	assert.Equal(t, domain.MaxFontSize, f.reader.View().Settings.FontSize)
	assert.GreaterOrEqual(t, len(f.reader.View().Pages), before)

	assert.Equal(t, domain.PageModeScroll, f.reader.SetPageMode(domain.PageModeScroll))
	assert.Nil(t, f.reader.View().Pages)
}

func TestReader_DisplayControls(t *testing.T) {
	f := setupTestReader(t, ReaderOptions{})

	assert.Equal(t, domain.ThemeDark, f.reader.ToggleTheme())
	assert.Equal(t, 20, f.reader.AdjustFontSize(1))
	assert.Equal(t, 18, f.reader.AdjustFontSize(-1))
	assert.InDelta(t, 2.0, f.reader.AdjustLineHeight(1), 1e-9)
	assert.InDelta(t, 1.8, f.reader.AdjustLineHeight(-1), 1e-9)
}

func TestReader_CloseDropsPendingWrite(t *testing.T) {
	f := setupTestReader(t, ReaderOptions{})
	ctx := context.Background()
	require.NoError(t, f.reader.Open(ctx, 1))
	f.reader.Scroll(500)
	require.True(t, f.sync.Pending())

	f.reader.Close(ctx)

	assert.False(t, f.reader.IsOpen())
	assert.False(t, f.sync.Pending())
	assert.Empty(t, f.srv.ProgressCalls())

	// Detached from the store after close.
	f.prefs.SetScrollOffset(900)
	assert.False(t, f.sync.Pending())
}

func TestReader_CloseFlushes(t *testing.T) {
	f := setupTestReader(t, ReaderOptions{FlushOnClose: true})
	ctx := context.Background()
	f.prefs.SetCurrentBook(1, 1)
	require.NoError(t, f.reader.Open(ctx, 1))
	f.reader.Scroll(500)

	f.reader.Close(ctx)

	calls := f.srv.ProgressCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, remotetest.ProgressCall{BookID: 1, ChapterIndex: 1, ChapterPos: 500}, calls[0])
}

func TestReader_GoToWithoutBook(t *testing.T) {
	f := setupTestReader(t, ReaderOptions{})
	err := f.reader.Next(context.Background())
	require.ErrorIs(t, err, domainerrors.ErrValidation)
}

func TestSearch(t *testing.T) {
	srv := remotetest.NewServer(t)
	srv.Results = []domain.SearchResult{
		{Name: "诡秘之主", Author: "爱潜水的乌贼", BookURL: "https://a.example/1", SourceURL: "https://a.example", SourceName: "A"},
		{Name: "诡秘之主", Author: "爱潜水的乌贼", BookURL: "https://b.example/9", SourceURL: "https://b.example", SourceName: "B"},
	}
	page := NewSearch(srv.Client(t), logger.Discard())
	ctx := context.Background()

	t.Run("blank keyword sends nothing", func(t *testing.T) {
		require.NoError(t, page.Submit(ctx, "   "))
		assert.Zero(t, srv.HitCount(http.MethodGet, "/api/v1/books/search"))
		assert.False(t, page.View().Submitted)
		assert.Empty(t, page.View().Results)
	})

	t.Run("results", func(t *testing.T) {
		require.NoError(t, page.Submit(ctx, " 诡秘 "))
		view := page.View()
		assert.Equal(t, "诡秘", view.Keyword)
		assert.True(t, view.Submitted)
		assert.Len(t, view.Results, 2)
	})

	t.Run("add", func(t *testing.T) {
		book, err := page.Add(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, "https://b.example", book.Origin)
		require.NotNil(t, page.View().Notice)
		assert.Equal(t, NoticeInfo, page.View().Notice.Level)

		_, err = page.Add(ctx, 5)
		require.ErrorIs(t, err, domainerrors.ErrValidation)
	})

	t.Run("failure keeps results", func(t *testing.T) {
		srv.Fail(http.MethodGet, "/api/v1/books/search", remotetest.Failure{HTTPStatus: http.StatusOK, Code: 500, Message: "搜索超时"})
		require.Error(t, page.Submit(ctx, "other"))
		view := page.View()
		assert.Equal(t, "诡秘", view.Keyword)
		assert.Len(t, view.Results, 2)
		assert.Equal(t, "搜索超时", view.Notice.Message)
	})
}

func setupTestSources(t *testing.T) (*Sources, *remotetest.Server) {
	t.Helper()
	srv := remotetest.NewServer(t)
	srv.Sources = []domain.BookSource{
		{ID: 1, SourceName: "笔趣阁", SourceURL: "https://biquge.example", SourceGroup: "小说", Enabled: true},
		{ID: 2, SourceName: "Novel Hub", SourceURL: "https://hub.example", SourceGroup: "English", Enabled: true},
		{ID: 3, SourceName: "起点中文", SourceURL: "https://qidian.example", SourceGroup: "小说", Enabled: false},
		{ID: 4, SourceName: "Ungrouped", SourceURL: "https://misc.example"},
	}
	page := NewSources(srv.Client(t), setupTestIndex(t), logger.Discard())
	require.NoError(t, page.Load(context.Background()))
	return page, srv
}

func sourceIDs(view SourcesView) []int64 {
	ids := make([]int64, 0, len(view.Sources))
	for _, s := range view.Sources {
		ids = append(ids, s.ID)
	}
	return ids
}

func TestSources_Filter(t *testing.T) {
	page, _ := setupTestSources(t)
	ctx := context.Background()

	view := page.View()
	assert.Equal(t, []string{"小说", "English"}, view.Groups)
	assert.Equal(t, GroupAll, view.Group)
	assert.Len(t, view.Sources, 4)

	tests := []struct {
		name    string
		keyword string
		group   string
		want    []int64
	}{
		{"name, case-insensitive", "novel", GroupAll, []int64{2}},
		{"group by keyword", "english", "", []int64{2}},
		{"cjk substring", "趣", GroupAll, []int64{1}},
		{"group only", "", "小说", []int64{1, 3}},
		{"keyword within group", "起点", "小说", []int64{3}},
		{"no match", "zzz", GroupAll, []int64{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, page.Filter(ctx, tt.keyword, tt.group))
			assert.Equal(t, tt.want, sourceIDs(page.View()))
		})
	}
}

func TestSources_Mutations(t *testing.T) {
	page, srv := setupTestSources(t)
	ctx := context.Background()

	msg, err := page.Test(ctx, 1)
	require.NoError(t, err)
	assert.Contains(t, msg, "笔趣阁")

	require.NoError(t, page.Toggle(ctx, 3, true))
	view := page.View()
	assert.True(t, view.Sources[2].Enabled)

	require.NoError(t, page.Filter(ctx, "", "小说"))
	require.NoError(t, page.Delete(ctx, 1))
	view = page.View()
	assert.Equal(t, []int64{3}, sourceIDs(view))
	assert.Equal(t, 3, view.Total)

	err = page.Delete(ctx, 1)
	require.ErrorIs(t, err, remote.ErrNotFound)
	assert.Equal(t, "书源不存在", page.View().Notice.Message)
	assert.Len(t, srv.Sources, 3)
}

func TestSources_Export(t *testing.T) {
	page, _ := setupTestSources(t)

	data, err := page.Export(2)
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  \"sourceName\": \"Novel Hub\"")

	_, err = page.Export(99)
	require.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestSources_Import(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    int
		wantErr bool
	}{
		{"array", `[{"sourceName":"A","sourceUrl":"https://a.example"},{"sourceName":"B","sourceUrl":"https://b.example"}]`, 2, false},
		{"single object", `{"sourceName":"C","sourceUrl":"https://c.example"}`, 1, false},
		{"empty", "  ", 0, true},
		{"not json", `sourceName=A`, 0, true},
		{"scalar", `"A"`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, srv := setupTestSources(t)

			count, err := page.Import(context.Background(), []byte(tt.data))
			if tt.wantErr {
				require.ErrorIs(t, err, domainerrors.ErrValidation)
				assert.Zero(t, srv.HitCount(http.MethodPost, "/api/v1/sources/batch"))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, count)
			assert.Equal(t, 4+tt.want, page.View().Total)
		})
	}
}

func TestSources_ImportFileAndURL(t *testing.T) {
	page, _ := setupTestSources(t)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "sources.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"sourceName":"File","sourceUrl":"https://f.example"}]`), 0o600))

	count, err := page.ImportFile(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	_, err = page.ImportFile(ctx, filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)

	count, err = page.ImportURL(ctx, "https://lists.example/sources.json")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, 6, page.View().Total)

	_, err = page.ImportURL(ctx, " ")
	require.ErrorIs(t, err, domainerrors.ErrValidation)

	_, err = page.ImportURL(ctx, "file:///etc/sources.json")
	require.ErrorIs(t, err, domainerrors.ErrValidation)
	assert.Equal(t, "must be a valid http(s) URL", domainerrors.FieldsOf(err)["url"])
}

func TestSources_AutoImport(t *testing.T) {
	page, _ := setupTestSources(t)

	dir := t.TempDir()
	good := filepath.Join(dir, "good.json")
	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(good, []byte(`{"sourceName":"Dropped","sourceUrl":"https://d.example"}`), 0o600))
	require.NoError(t, os.WriteFile(bad, []byte(`nope`), 0o600))

	events := make(chan watcher.Event, 3)
	events <- watcher.Event{Type: watcher.EventRemoved, Path: good}
	events <- watcher.Event{Type: watcher.EventReady, Path: good}
	events <- watcher.Event{Type: watcher.EventReady, Path: bad}
	close(events)

	var results []ImportResult
	page.AutoImport(context.Background(), events, func(r ImportResult) { results = append(results, r) })

	require.Len(t, results, 2)
	assert.Equal(t, ImportResult{Path: good, Count: 1}, results[0])
	require.Error(t, results[1].Err)
	assert.Equal(t, 5, page.View().Total)
}

func TestSourceEdit(t *testing.T) {
	srv := remotetest.NewServer(t)
	srv.Sources = []domain.BookSource{{ID: 7, SourceName: "Old", SourceURL: "https://old.example"}}
	page := NewSourceEdit(srv.Client(t), logger.Discard())
	ctx := context.Background()

	t.Run("new source defaults", func(t *testing.T) {
		require.NoError(t, page.Load(ctx, 0))
		view := page.View()
		assert.True(t, view.IsNew)
		assert.True(t, view.Source.Enabled)
	})

	t.Run("validation", func(t *testing.T) {
		tests := []struct {
			name  string
			src   domain.BookSource
			field string
		}{
			{"missing name", domain.BookSource{SourceURL: "https://x.example"}, "sourceName"},
			{"blank name", domain.BookSource{SourceName: "  ", SourceURL: "https://x.example"}, "sourceName"},
			{"missing url", domain.BookSource{SourceName: "X"}, "sourceUrl"},
			{"not a url", domain.BookSource{SourceName: "X", SourceURL: "biquge"}, "sourceUrl"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				require.Error(t, page.Validate(tt.src))

				_, err := page.Save(ctx, tt.src)
				require.ErrorIs(t, err, domainerrors.ErrValidation)
				require.NotNil(t, page.View().Notice)
				assert.Contains(t, page.View().Notice.Fields, tt.field)
			})
		}
		assert.Zero(t, srv.HitCount(http.MethodPost, "/api/v1/sources"))
	})

	t.Run("create", func(t *testing.T) {
		saved, err := page.Save(ctx, domain.BookSource{SourceName: " New ", SourceURL: "https://new.example"})
		require.NoError(t, err)
		assert.NotZero(t, saved.ID)
		assert.Equal(t, "New", saved.SourceName)
		assert.False(t, page.View().IsNew)
	})

	t.Run("update", func(t *testing.T) {
		require.NoError(t, page.Load(ctx, 7))
		src := page.View().Source
		src.SourceGroup = "小说"

		saved, err := page.Save(ctx, src)
		require.NoError(t, err)
		assert.Equal(t, int64(7), saved.ID)
		assert.Equal(t, "小说", srv.Sources[0].SourceGroup)
	})

	t.Run("load failure", func(t *testing.T) {
		require.ErrorIs(t, page.Load(ctx, 404), remote.ErrNotFound)
	})
}

func setupTestSession(t *testing.T, srv *remotetest.Server) *session.Store {
	t.Helper()
	client := srv.Client(t)
	sess := session.New(store.NewMemory(), client, nil, logger.Discard())
	client.SetTokenSource(sess)
	return sess
}

func TestLoginAndSettings(t *testing.T) {
	srv := remotetest.NewServer(t)
	sess := setupTestSession(t, srv)
	p := prefs.New(store.NewMemory(), logger.Discard())
	login := NewLogin(sess, logger.Discard())
	settings := NewSettings(p, sess, srv.URL, logger.Discard())
	ctx := context.Background()

	_, err := login.Login(ctx, domain.LoginRequest{Username: "reader"})
	require.ErrorIs(t, err, domainerrors.ErrValidation)
	assert.Contains(t, login.Notice().Fields, "password")

	_, err = login.Login(ctx, domain.LoginRequest{Username: "stranger", Password: "secret1"})
	require.Error(t, err)
	assert.Equal(t, "用户名或密码错误", login.Notice().Message)
	assert.False(t, sess.IsAuthenticated())

	got, err := login.Login(ctx, domain.LoginRequest{Username: " reader ", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "reader", got.User.Username)
	assert.Nil(t, login.Notice())

	view := settings.View()
	require.NotNil(t, view.User)
	assert.Equal(t, "reader", view.User.Username)
	assert.Equal(t, domain.FontFamilies, view.FontFamilies)
	assert.Equal(t, srv.URL, view.ServerURL)
	require.NotNil(t, view.Badge)
	assert.Equal(t, "r", view.Badge.Initial)
	assert.Equal(t, color.ForUser("reader"), view.Badge.Badge)

	updated := settings.Update(domain.SettingsPatch{FontSize: ptr(24)})
	assert.Equal(t, 24, updated.FontSize)
	assert.Equal(t, domain.ThemeDark, settings.ToggleTheme())

	settings.Logout()
	assert.False(t, sess.IsAuthenticated())
	assert.Nil(t, settings.View().User)
	assert.Nil(t, settings.View().Badge)
	assert.Equal(t, 24, settings.View().Settings.FontSize)

	_, err = login.Register(ctx, domain.RegisterRequest{Username: "reader", Password: "secret1", Email: "reader@example.com"})
	require.NoError(t, err)
	assert.True(t, sess.IsAuthenticated())
}
