// Package remotetest runs an in-memory legado server for tests of code that
// talks to the remote layer.
package remotetest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/legado-reader/legado-client/internal/domain"
	"github.com/legado-reader/legado-client/internal/remote"
)

// Failure is a canned error response.
type Failure struct {
	HTTPStatus int
	Code       int
	Message    string
}

// ProgressCall is one recorded progress write.
type ProgressCall struct {
	BookID       int64
	ChapterIndex int
	ChapterPos   int
}

// Server is a fake legado server. Fields may be changed between requests
// while holding Mu.
type Server struct {
	*httptest.Server

	Mu       sync.Mutex
	Books    []domain.Book
	Chapters map[int64][]domain.BookChapter
	// Content is keyed by "bookID/chapterIndex".
	Content map[string]string
	Sources []domain.BookSource
	Results []domain.SearchResult
	User    domain.User
	Token   string
	// Failures maps "METHOD /path" to a canned error.
	Failures map[string]Failure

	Progress []ProgressCall
	Hits     map[string]int

	nextID int64
}

// NewServer starts a fake server that is closed with the test.
func NewServer(t *testing.T) *Server {
	t.Helper()
	s := &Server{
		Chapters: map[int64][]domain.BookChapter{},
		Content:  map[string]string{},
		Failures: map[string]Failure{},
		Hits:     map[string]int{},
		User:     domain.User{ID: 1, Username: "reader", Enabled: true},
		Token:    "token-1",
		nextID:   1000,
	}
	s.Server = httptest.NewServer(s.routes(t))
	t.Cleanup(s.Close)
	return s
}

// Client returns a remote client for the server.
func (s *Server) Client(t *testing.T) *remote.Client {
	t.Helper()
	c, err := remote.New(remote.Config{BaseURL: s.URL, ClientID: "device-test"}, nil)
	require.NoError(t, err)
	return c
}

// Fail makes every "METHOD /path" request fail until cleared.
func (s *Server) Fail(method, path string, f Failure) {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	s.Failures[method+" "+path] = f
}

// ClearFailures removes every canned error.
func (s *Server) ClearFailures() {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	clear(s.Failures)
}

// HitCount returns how often "METHOD /path" was requested.
func (s *Server) HitCount(method, path string) int {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	return s.Hits[method+" "+path]
}

// ProgressCalls returns the recorded progress writes.
func (s *Server) ProgressCalls() []ProgressCall {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	return slices.Clone(s.Progress)
}

// SetContent stores chapter text.
func (s *Server) SetContent(bookID int64, index int, text string) {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	s.Content[contentKey(bookID, index)] = text
}

// AddBook puts a book with n chapters on the shelf. Chapter i reads
// "chapter i of <name>".
func (s *Server) AddBook(book domain.Book, n int) {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	s.Books = append(s.Books, book)
	chapters := make([]domain.BookChapter, n)
	for i := range chapters {
		chapters[i] = domain.BookChapter{
			ID:           book.ID*100 + int64(i),
			BookID:       book.ID,
			ChapterIndex: i,
			Title:        fmt.Sprintf("Chapter %d", i+1),
		}
		s.Content[contentKey(book.ID, i)] = fmt.Sprintf("chapter %d of %s", i, book.Name)
	}
	s.Chapters[book.ID] = chapters
}

func contentKey(bookID int64, index int) string {
	return strconv.FormatInt(bookID, 10) + "/" + strconv.Itoa(index)
}

type handler func(r *http.Request) (any, *Failure)

func (s *Server) routes(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	handle := func(pattern string, h handler) {
		mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
			key := r.Method + " " + r.URL.Path

			s.Mu.Lock()
			s.Hits[key]++
			f, failing := s.Failures[key]
			s.Mu.Unlock()

			if failing {
				writeEnvelope(t, w, f.HTTPStatus, f.Code, f.Message, nil)
				return
			}
			data, fail := h(r)
			if fail != nil {
				writeEnvelope(t, w, fail.HTTPStatus, fail.Code, fail.Message, nil)
				return
			}
			writeEnvelope(t, w, http.StatusOK, remote.SuccessCode, "success", data)
		})
	}

	handle("GET /api/v1/books", func(*http.Request) (any, *Failure) {
		s.Mu.Lock()
		defer s.Mu.Unlock()
		return slices.Clone(s.Books), nil
	})
	handle("GET /api/v1/books/{id}", func(r *http.Request) (any, *Failure) {
		s.Mu.Lock()
		defer s.Mu.Unlock()
		i, fail := s.bookIndex(r)
		if fail != nil {
			return nil, fail
		}
		return s.Books[i], nil
	})
	handle("DELETE /api/v1/books/{id}", func(r *http.Request) (any, *Failure) {
		s.Mu.Lock()
		defer s.Mu.Unlock()
		i, fail := s.bookIndex(r)
		if fail != nil {
			return nil, fail
		}
		s.Books = slices.Delete(s.Books, i, i+1)
		return nil, nil
	})
	handle("GET /api/v1/books/{id}/chapters", func(r *http.Request) (any, *Failure) {
		s.Mu.Lock()
		defer s.Mu.Unlock()
		i, fail := s.bookIndex(r)
		if fail != nil {
			return nil, fail
		}
		return s.Chapters[s.Books[i].ID], nil
	})
	handle("GET /api/v1/books/{id}/chapters/{idx}/content", func(r *http.Request) (any, *Failure) {
		s.Mu.Lock()
		defer s.Mu.Unlock()
		text, ok := s.Content[r.PathValue("id")+"/"+r.PathValue("idx")]
		if !ok {
			return nil, &Failure{HTTPStatus: http.StatusOK, Code: 404, Message: "chapter not found"}
		}
		return text, nil
	})
	handle("PUT /api/v1/books/{id}/progress", func(r *http.Request) (any, *Failure) {
		id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)
		idx, _ := strconv.Atoi(r.URL.Query().Get("chapterIndex"))
		pos, _ := strconv.Atoi(r.URL.Query().Get("chapterPos"))
		s.Mu.Lock()
		defer s.Mu.Unlock()
		s.Progress = append(s.Progress, ProgressCall{BookID: id, ChapterIndex: idx, ChapterPos: pos})
		return nil, nil
	})
	handle("GET /api/v1/books/search", func(r *http.Request) (any, *Failure) {
		keyword := r.URL.Query().Get("keyword")
		s.Mu.Lock()
		defer s.Mu.Unlock()
		out := []domain.SearchResult{}
		for _, res := range s.Results {
			if strings.Contains(res.Name, keyword) || strings.Contains(res.Author, keyword) {
				out = append(out, res)
			}
		}
		return out, nil
	})
	handle("POST /api/v1/books/from-source", func(r *http.Request) (any, *Failure) {
		bookURL := r.URL.Query().Get("bookUrl")
		sourceURL := r.URL.Query().Get("sourceUrl")
		s.Mu.Lock()
		defer s.Mu.Unlock()
		for _, res := range s.Results {
			if res.BookURL == bookURL && res.SourceURL == sourceURL {
				s.nextID++
				book := domain.Book{ID: s.nextID, Name: res.Name, Author: res.Author, BookURL: bookURL, Origin: sourceURL}
				s.Books = append(s.Books, book)
				return book, nil
			}
		}
		return nil, &Failure{HTTPStatus: http.StatusOK, Code: 400, Message: "book not found in source"}
	})

	handle("GET /api/v1/sources", func(*http.Request) (any, *Failure) {
		s.Mu.Lock()
		defer s.Mu.Unlock()
		return slices.Clone(s.Sources), nil
	})
	handle("GET /api/v1/sources/{id}", func(r *http.Request) (any, *Failure) {
		s.Mu.Lock()
		defer s.Mu.Unlock()
		i, fail := s.sourceIndex(r)
		if fail != nil {
			return nil, fail
		}
		return s.Sources[i], nil
	})
	handle("POST /api/v1/sources", func(r *http.Request) (any, *Failure) {
		var src domain.BookSource
		if fail := decode(r, &src); fail != nil {
			return nil, fail
		}
		s.Mu.Lock()
		defer s.Mu.Unlock()
		s.nextID++
		src.ID = s.nextID
		s.Sources = append(s.Sources, src)
		return src, nil
	})
	handle("PUT /api/v1/sources/{id}", func(r *http.Request) (any, *Failure) {
		var src domain.BookSource
		if fail := decode(r, &src); fail != nil {
			return nil, fail
		}
		s.Mu.Lock()
		defer s.Mu.Unlock()
		i, fail := s.sourceIndex(r)
		if fail != nil {
			return nil, fail
		}
		src.ID = s.Sources[i].ID
		s.Sources[i] = src
		return src, nil
	})
	handle("DELETE /api/v1/sources/{id}", func(r *http.Request) (any, *Failure) {
		s.Mu.Lock()
		defer s.Mu.Unlock()
		i, fail := s.sourceIndex(r)
		if fail != nil {
			return nil, fail
		}
		s.Sources = slices.Delete(s.Sources, i, i+1)
		return nil, nil
	})
	handle("PUT /api/v1/sources/{id}/toggle", func(r *http.Request) (any, *Failure) {
		enabled, err := strconv.ParseBool(r.URL.Query().Get("enabled"))
		if err != nil {
			return nil, &Failure{HTTPStatus: http.StatusBadRequest, Code: 400, Message: "enabled must be a boolean"}
		}
		s.Mu.Lock()
		defer s.Mu.Unlock()
		i, fail := s.sourceIndex(r)
		if fail != nil {
			return nil, fail
		}
		s.Sources[i].Enabled = enabled
		return nil, nil
	})
	handle("POST /api/v1/sources/{id}/test", func(r *http.Request) (any, *Failure) {
		s.Mu.Lock()
		defer s.Mu.Unlock()
		i, fail := s.sourceIndex(r)
		if fail != nil {
			return nil, fail
		}
		return "source " + s.Sources[i].SourceName + " is reachable", nil
	})
	handle("POST /api/v1/sources/batch", func(r *http.Request) (any, *Failure) {
		var batch []domain.BookSource
		if fail := decode(r, &batch); fail != nil {
			return nil, fail
		}
		s.Mu.Lock()
		defer s.Mu.Unlock()
		for i := range batch {
			s.nextID++
			batch[i].ID = s.nextID
		}
		s.Sources = append(s.Sources, batch...)
		return batch, nil
	})
	handle("POST /api/v1/sources/import/url", func(r *http.Request) (any, *Failure) {
		if r.URL.Query().Get("url") == "" {
			return nil, &Failure{HTTPStatus: http.StatusBadRequest, Code: 400, Message: "url is required"}
		}
		s.Mu.Lock()
		defer s.Mu.Unlock()
		s.nextID++
		s.Sources = append(s.Sources, domain.BookSource{ID: s.nextID, SourceName: "Imported", SourceURL: r.URL.Query().Get("url")})
		return 1, nil
	})

	login := func(r *http.Request) (any, *Failure) {
		var req domain.LoginRequest
		if fail := decode(r, &req); fail != nil {
			return nil, fail
		}
		s.Mu.Lock()
		defer s.Mu.Unlock()
		if req.Username != s.User.Username {
			return nil, &Failure{HTTPStatus: http.StatusOK, Code: 401, Message: "用户名或密码错误"}
		}
		user := s.User
		return domain.LoginResponse{Token: s.Token, TokenType: "Bearer", ExpiresIn: 3600, User: &user}, nil
	}
	handle("POST /api/v1/auth/login", login)
	handle("POST /api/v1/auth/register", login)
	handle("GET /api/v1/auth/me", func(r *http.Request) (any, *Failure) {
		s.Mu.Lock()
		defer s.Mu.Unlock()
		if r.Header.Get("Authorization") != "Bearer "+s.Token {
			return nil, &Failure{HTTPStatus: http.StatusUnauthorized, Code: 401, Message: "token expired"}
		}
		user := s.User
		return user, nil
	})

	return mux
}

// bookIndex finds the {id} book. Callers hold Mu.
func (s *Server) bookIndex(r *http.Request) (int, *Failure) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		return -1, &Failure{HTTPStatus: http.StatusBadRequest, Code: 400, Message: "invalid book id"}
	}
	i := slices.IndexFunc(s.Books, func(b domain.Book) bool { return b.ID == id })
	if i < 0 {
		return -1, &Failure{HTTPStatus: http.StatusOK, Code: 404, Message: "书籍不存在"}
	}
	return i, nil
}

// sourceIndex finds the {id} source. Callers hold Mu.
func (s *Server) sourceIndex(r *http.Request) (int, *Failure) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		return -1, &Failure{HTTPStatus: http.StatusBadRequest, Code: 400, Message: "invalid source id"}
	}
	i := slices.IndexFunc(s.Sources, func(src domain.BookSource) bool { return src.ID == id })
	if i < 0 {
		return -1, &Failure{HTTPStatus: http.StatusOK, Code: 404, Message: "书源不存在"}
	}
	return i, nil
}

func decode(r *http.Request, v any) *Failure {
	body, err := io.ReadAll(r.Body)
	if err == nil {
		err = json.Unmarshal(body, v)
	}
	if err != nil {
		return &Failure{HTTPStatus: http.StatusBadRequest, Code: 400, Message: "invalid request body"}
	}
	return nil
}

func writeEnvelope(t *testing.T, w http.ResponseWriter, status, code int, message string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(map[string]any{
		"code":      code,
		"message":   message,
		"data":      data,
		"timestamp": time.Now().UnixMilli(),
	})
	if err != nil {
		t.Errorf("write envelope: %v", err)
	}
}
