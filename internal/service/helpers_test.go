package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/pesio-ai/be-plt-grc/internal/apperrors"
	"github.com/pesio-ai/be-plt-grc/internal/domain"
	"github.com/pesio-ai/be-plt-grc/internal/logger"
	"github.com/pesio-ai/be-plt-grc/internal/repository/memory"
	"github.com/pesio-ai/be-plt-grc/pkg/password"
)

var testNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

var fastParams = &password.Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

func fixedClock() func() time.Time {
	return func() time.Time { return testNow }
}

// steppingClock advances one minute per call.
func steppingClock() func() time.Time {
	var mu sync.Mutex
	t := testNow
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Minute)
		return t
	}
}

func sequentialIDs(prefix string) func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

func adminSession() *domain.Session {
	return &domain.Session{ID: "sess-admin", User: domain.NewSeedAdmin(testNow), CompanyID: domain.DefaultCompanyID}
}

func sessionWith(role domain.Role, perms domain.Permissions) *domain.Session {
	return &domain.Session{
		ID: "sess-" + string(role),
		User: &domain.User{
			ID:          "user-" + string(role),
			Username:    string(role),
			Email:       string(role) + "@example.com",
			Role:        role,
			Permissions: perms,
		},
		CompanyID: domain.DefaultCompanyID,
	}
}

func viewerSession() *domain.Session {
	return sessionWith(domain.RoleViewer, domain.DefaultPermissions())
}

// writerSession may read and write every business module but not execute.
func writerSession() *domain.Session {
	rw := domain.Permission{Read: true, Write: true}
	return sessionWith(domain.RoleAnalyst, domain.Permissions{
		domain.ModuleVendors:    rw,
		domain.ModuleCompliance: rw,
		domain.ModuleVAPT:       rw,
		domain.ModulePrivacy:    rw,
	})
}

func assertCode(t *testing.T, err error, want apperrors.Code) {
	t.Helper()
	if got := apperrors.CodeOf(err); got != want {
		t.Fatalf("error = %v (code %q), want code %q", err, got, want)
	}
}

type fakeSecrets struct {
	mu   sync.Mutex
	keys map[domain.AIProvider]string
	err  error
}

func newFakeSecrets() *fakeSecrets {
	return &fakeSecrets{keys: map[domain.AIProvider]string{}}
}

func (f *fakeSecrets) GetAIKey(_ context.Context, p domain.AIProvider) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.keys[p], f.err
}

func (f *fakeSecrets) PutAIKey(_ context.Context, p domain.AIProvider, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.keys = map[domain.AIProvider]string{p: key}
	return nil
}

func (f *fakeSecrets) DeleteAIKey(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys = map[domain.AIProvider]string{}
	return f.err
}

type fakeGenerator struct {
	text    string
	err     error
	prompts []string
	keys    []string
}

func (f *fakeGenerator) Generate(_ context.Context, _ domain.AIProvider, apiKey, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	f.keys = append(f.keys, apiKey)
	return f.text, f.err
}

type fakeBlobs struct {
	mu      sync.Mutex
	err     error
	files   map[string][]byte
	removed []string
}

func newFakeBlobs() *fakeBlobs { return &fakeBlobs{files: map[string][]byte{}} }

func (f *fakeBlobs) Save(_ context.Context, category, fileName string, r io.Reader) (string, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", 0, f.err
	}
	var buf bytes.Buffer
	n, err := io.Copy(&buf, r)
	if err != nil {
		return "", 0, err
	}
	path := fmt.Sprintf("%s/%d-%s", category, len(f.files), fileName)
	f.files[path] = buf.Bytes()
	return path, n, nil
}

func (f *fakeBlobs) Open(_ context.Context, path string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.files[path]
	if !ok {
		return nil, apperrors.NotFound("evidence blob", path)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeBlobs) Remove(_ context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.files, path)
	f.removed = append(f.removed, path)
	return nil
}

type fakeCatalog struct {
	templates []*domain.ControlTemplate
}

func (c *fakeCatalog) List() []*domain.ControlTemplate { return c.templates }

func (c *fakeCatalog) Get(framework string) (*domain.ControlTemplate, error) {
	for _, t := range c.templates {
		if t.Framework == framework {
			return t, nil
		}
	}
	return nil, apperrors.NotFound("framework", framework)
}

var errBoom = errors.New("boom")

func newTestUserService(store *memory.Store) *UserService {
	s := NewUserService(store.Users(), store.Sessions(), logger.Nop())
	s.hashParams = fastParams
	s.now = fixedClock()
	s.newID = sequentialIDs("user")
	return s
}
