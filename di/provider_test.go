package di_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/gocrud/inject/di"
)

func TestFromMethodWithDependencies(t *testing.T) {
	c := di.NewContainer()
	di.Bind[string](c).WithID("prefix").FromInstance("Hi")
	di.Bind[*prefixGreeter](c).FromMethod(func(ctx *di.InjectContext, owner *di.Container) (*prefixGreeter, error) {
		if owner != c {
			return nil, errors.New("unexpected container")
		}
		prefix, err := ctx.ResolveID(di.TypeOf[string](), "prefix")
		if err != nil {
			return nil, err
		}
		return &prefixGreeter{Prefix: prefix.(string)}, nil
	}).AsCached()

	g, err := di.Resolve[*prefixGreeter](c)
	require.NoError(t, err)
	assert.Equal(t, "Hi, Ada", g.Greet("Ada"))
}

func TestFromMethodError(t *testing.T) {
	boom := errors.New("boom")
	c := di.NewContainer()
	calls := 0
	di.Bind[Greeter](c).FromMethod(func() (Greeter, error) {
		calls++
		if calls == 1 {
			return nil, boom
		}
		return newEnglishGreeter(), nil
	}).AsSingle()

	_, err := di.Resolve[Greeter](c)
	assert.ErrorIs(t, err, boom)

	// 失败不会被缓存
	g, err := di.Resolve[Greeter](c)
	require.NoError(t, err)
	assert.NotNil(t, g)
	assert.Equal(t, 2, calls)
}

func TestFromMethodInterfaceResultCheckedAtResolve(t *testing.T) {
	c := di.NewContainer()
	di.Bind[Farewell](c).FromMethod(func() any { return newEnglishGreeter() })

	_, err := di.Resolve[Farewell](c)
	var invalid *di.InvalidBindError
	require.ErrorAs(t, err, &invalid)
}

func TestFromMethodMultiple(t *testing.T) {
	c := di.NewContainer()
	di.Bind[Greeter](c).FromMethodMultiple(func() []Greeter {
		return []Greeter{newEnglishGreeter(), &frenchGreeter{}}
	}).AsCached()

	all, err := di.ResolveAll[Greeter](c)
	require.NoError(t, err)
	require.Len(t, all, 2)
	again, err := di.ResolveAll[Greeter](c)
	require.NoError(t, err)
	assert.Same(t, all[0].(*englishGreeter), again[0].(*englishGreeter))

	_, err = di.Resolve[Greeter](c)
	assert.ErrorIs(t, err, di.ErrResolution)

	c2 := di.NewContainer()
	di.Bind[Greeter](c2).FromMethodMultiple(func() Greeter { return nil })
	assert.ErrorIs(t, c2.Build(), di.ErrValidation)
}

func TestFromFactory(t *testing.T) {
	c := di.NewContainer()
	di.Bind[Greeter](c).FromFactory(di.TypeOf[*greeterFactory]()).AsCached().WithArguments("Howdy")

	g1, err := di.Resolve[Greeter](c)
	require.NoError(t, err)
	g2, err := di.Resolve[Greeter](c)
	require.NoError(t, err)

	assert.Equal(t, "Howdy, Ada", g1.Greet("Ada"))
	assert.Same(t, g1.(*prefixGreeter), g2.(*prefixGreeter))
}

func TestFromFactoryOf(t *testing.T) {
	c := di.NewContainer()
	di.FromFactoryOf[Greeter, *greeterFactory](di.Bind[Greeter](c)).WithArguments("Hey")
	require.NoError(t, c.Build())

	g, err := di.Resolve[Greeter](c)
	require.NoError(t, err)
	assert.Equal(t, "Hey, Ada", g.Greet("Ada"))
}

func TestFromFactoryResolvesInterfaceFactory(t *testing.T) {
	c := di.NewContainer()
	di.Bind[di.Factory](c).To(di.TypeOf[*anyFactory]()).AsSingle()
	di.Bind[Greeter](c).FromFactory(di.TypeOf[di.Factory]()).AsTransient()
	// 工厂的产物与合约不兼容时在解析时报告
	di.Bind[Farewell](c).FromFactory(di.TypeOf[di.Factory]()).AsTransient()

	g, err := di.Resolve[Greeter](c)
	require.NoError(t, err)
	assert.Equal(t, "Hello, Ada", g.Greet("Ada"))

	_, err = di.Resolve[Farewell](c)
	assert.ErrorIs(t, err, di.ErrValidation)
}

func TestFromFactoryInvalidType(t *testing.T) {
	c := di.NewContainer()
	di.Bind[Greeter](c).FromFactory(di.TypeOf[*plain]()).AsSingle()

	var invalid *di.InvalidBindError
	require.ErrorAs(t, c.Build(), &invalid)
	assert.Contains(t, invalid.Reason, "Create")
}

func TestFromProvider(t *testing.T) {
	p := &mockProvider{}
	g := newEnglishGreeter()
	p.On("Provide", mock.Anything).Return([]any{g}, nil).Once()

	c := di.NewContainer()
	di.Bind[Greeter](c).FromProvider(p).AsCached()

	for i := 0; i < 3; i++ {
		got, err := di.Resolve[Greeter](c)
		require.NoError(t, err)
		assert.Same(t, g, got)
	}
	p.AssertExpectations(t)
	p.AssertNumberOfCalls(t, "Provide", 1)
}

func TestFromProviderReceivesContext(t *testing.T) {
	p := &mockProvider{}
	p.On("Provide", mock.MatchedBy(func(ctx *di.InjectContext) bool {
		return ctx.MemberType == di.TypeOf[Greeter]() && ctx.ObjectType == di.TypeOf[*greetingService]()
	})).Return([]any{&frenchGreeter{}}, nil)

	c := di.NewContainer()
	di.Bind[Greeter](c).FromProvider(p)
	di.Bind[*greetingService](c)

	svc, err := di.Resolve[*greetingService](c)
	require.NoError(t, err)
	assert.Equal(t, "Bonjour, Ada", svc.Greeter.Greet("Ada"))
	p.AssertExpectations(t)
}

func TestFromProviderNil(t *testing.T) {
	c := di.NewContainer()
	di.Bind[Greeter](c).FromProvider(nil)
	assert.ErrorIs(t, c.Build(), di.ErrValidation)
}
