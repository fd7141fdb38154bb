package di_test

import (
	"sync/atomic"

	"github.com/stretchr/testify/mock"

	"github.com/gocrud/inject/di"
)

// 测试用接口和实现
type Greeter interface {
	Greet(name string) string
}

type Farewell interface {
	Bye(name string) string
}

var greeterSeq atomic.Int64

type englishGreeter struct {
	ID int64
}

func newEnglishGreeter() *englishGreeter {
	return &englishGreeter{ID: greeterSeq.Add(1)}
}

func (g *englishGreeter) Greet(name string) string { return "Hello, " + name }

type frenchGreeter struct {
	ID int64
}

func (g *frenchGreeter) Greet(name string) string { return "Bonjour, " + name }

// politeGreeter 同时实现两个接口
type politeGreeter struct {
	ID int64
}

func (g *politeGreeter) Greet(name string) string { return "Good day, " + name }
func (g *politeGreeter) Bye(name string) string   { return "Farewell, " + name }

type prefixGreeter struct {
	Prefix string
}

func (g *prefixGreeter) Greet(name string) string { return g.Prefix + ", " + name }

type plain struct {
	ID int
}

type greetingService struct {
	Greeter Greeter `di:""`
}

type politeService struct {
	Greeter Greeter `di:""`
}

// greeterFactory 通过 WithArguments 获得前缀
type greeterFactory struct {
	Prefix string `di:""`
}

func (f *greeterFactory) Create() (Greeter, error) {
	return &prefixGreeter{Prefix: f.Prefix}, nil
}

type anyFactory struct{}

func (anyFactory) Create() (any, error) {
	return newEnglishGreeter(), nil
}

type resource struct {
	name   string
	closed int
	log    *[]string
}

func (r *resource) Close() error {
	r.closed++
	if r.log != nil {
		*r.log = append(*r.log, r.name)
	}
	return nil
}

type disposableCache struct {
	disposed bool
}

func (d *disposableCache) Dispose() { d.disposed = true }

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) Provide(ctx *di.InjectContext) ([]any, error) {
	args := m.Called(ctx)
	objs, _ := args.Get(0).([]any)
	return objs, args.Error(1)
}
