package usecase

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"
	"github.com/vadimbarashkov/shorturls/internal/entity"
)

type mockURLRepository struct {
	mock.Mock
}

func (r *mockURLRepository) Save(ctx context.Context, url *entity.URL) error {
	args := r.Called(ctx, url)
	return args.Error(0)
}

func (r *mockURLRepository) RetrieveByShortCode(ctx context.Context, shortCode string) (*entity.URL, error) {
	args := r.Called(ctx, shortCode)
	url, _ := args.Get(0).(*entity.URL)
	return url, args.Error(1)
}

func (r *mockURLRepository) RetrieveAndRecordClick(ctx context.Context, shortCode string, newClick func() entity.Click) (*entity.URL, error) {
	args := r.Called(ctx, shortCode, newClick)
	url, _ := args.Get(0).(*entity.URL)
	return url, args.Error(1)
}

func (r *mockURLRepository) Count(ctx context.Context) (int, error) {
	args := r.Called(ctx)
	return args.Int(0), args.Error(1)
}

type mockCodeGenerator struct {
	mock.Mock
}

func (g *mockCodeGenerator) Generate() (string, error) {
	args := g.Called()
	return args.String(0), args.Error(1)
}

type recordedEvent struct {
	stack, level, pkg, message string
}

type eventRecorder struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *eventRecorder) Log(stack, level, pkg, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, recordedEvent{stack: stack, level: level, pkg: pkg, message: message})
}

func (r *eventRecorder) levels() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	levels := make([]string, 0, len(r.events))
	for _, e := range r.events {
		levels = append(levels, e.level)
	}
	return levels
}
