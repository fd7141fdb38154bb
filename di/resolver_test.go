package di_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gocrud/inject/di"
)

type cycleA struct {
	B *cycleB `di:""`
}

type cycleB struct {
	A *cycleA `di:""`
}

func TestCircularDependency(t *testing.T) {
	for _, scope := range []string{"transient", "single"} {
		t.Run(scope, func(t *testing.T) {
			c := di.NewContainer()
			a, b := di.Bind[*cycleA](c), di.Bind[*cycleB](c)
			if scope == "single" {
				a.AsSingle()
				b.AsSingle()
			}

			_, err := di.Resolve[*cycleA](c)
			var cycle *di.CircularDependencyError
			require.ErrorAs(t, err, &cycle)
			assert.ErrorIs(t, err, di.ErrCircularDependency)
			require.Len(t, cycle.Path, 3)
			assert.Equal(t, di.TypeOf[*cycleA](), cycle.Path[0].Type)
			assert.Equal(t, di.TypeOf[*cycleB](), cycle.Path[1].Type)
			assert.Equal(t, di.TypeOf[*cycleA](), cycle.Path[2].Type)
		})
	}
}

func TestCircularDependencyThroughMethod(t *testing.T) {
	c := di.NewContainer()
	di.Bind[Greeter](c).FromMethod(func(ctx *di.InjectContext) (Greeter, error) {
		return di.ResolveFrom[Greeter](ctx)
	})

	_, err := di.Resolve[Greeter](c)
	assert.ErrorIs(t, err, di.ErrCircularDependency)
}

type loopService struct {
	Owner *loopOwner `di:""`
}

type loopOwner struct {
	Service *loopService
}

func TestCircularDependencyThroughContainerParameter(t *testing.T) {
	for _, scope := range []string{"transient", "cached", "single"} {
		t.Run(scope, func(t *testing.T) {
			c := di.NewContainer()
			owner := di.Bind[*loopOwner](c).FromMethod(func(c *di.Container) (*loopOwner, error) {
				svc, err := di.Resolve[*loopService](c)
				if err != nil {
					return nil, err
				}
				return &loopOwner{Service: svc}, nil
			})
			switch scope {
			case "cached":
				owner.AsCached()
			case "single":
				owner.AsSingle()
			}
			di.Bind[*loopService](c)

			done := make(chan error, 1)
			go func() {
				_, err := di.Resolve[*loopOwner](c)
				done <- err
			}()

			select {
			case err := <-done:
				var cycle *di.CircularDependencyError
				require.ErrorAs(t, err, &cycle)
				assert.ErrorIs(t, err, di.ErrCircularDependency)
				assert.Equal(t, di.TypeOf[*loopOwner](), cycle.Path[0].Type)
				assert.Equal(t, di.TypeOf[*loopOwner](), cycle.Path[len(cycle.Path)-1].Type)
			case <-time.After(5 * time.Second):
				t.Fatal("resolution did not return")
			}
		})
	}
}

func TestContainerParameterAfterMethodReturns(t *testing.T) {
	var kept *di.Container
	c := di.NewContainer()
	di.Bind[*englishGreeter](c).FromMethod(func(c *di.Container) *englishGreeter {
		kept = c
		return newEnglishGreeter()
	}).AsSingle()
	di.Bind[Greeter](c).To(di.TypeOf[*frenchGreeter]())
	di.Bind[*greetingService](c)

	_, err := di.Resolve[*englishGreeter](c)
	require.NoError(t, err)
	require.NotNil(t, kept)

	// 方法返回后视图按普通容器解析，已完成的单例不再被当作循环
	again, err := di.Resolve[*englishGreeter](kept)
	require.NoError(t, err)
	first, err := di.Resolve[*englishGreeter](c)
	require.NoError(t, err)
	assert.Same(t, first, again)

	svc, err := di.Resolve[*greetingService](kept)
	require.NoError(t, err)
	assert.Equal(t, "Bonjour, Ada", svc.Greeter.Greet("Ada"))
	assert.Nil(t, kept.Parent())
}

func TestSameTypeDifferentIdentifierIsNotCircular(t *testing.T) {
	c := di.NewContainer()
	di.Bind[Greeter](c).To(di.TypeOf[*englishGreeter]()).AsSingle()
	di.Bind[Greeter](c).WithID("loud").FromMethod(func(inner Greeter) Greeter {
		return &prefixGreeter{Prefix: inner.Greet("HEY")}
	})

	g, err := di.ResolveID[Greeter](c, "loud")
	require.NoError(t, err)
	assert.Equal(t, "Hello, HEY, Ada", g.Greet("Ada"))
}

func TestWhenInjectedInto(t *testing.T) {
	c := di.NewContainer()
	di.Bind[Greeter](c).To(di.TypeOf[*englishGreeter]()).AsSingle()
	di.Bind[Greeter](c).To(di.TypeOf[*frenchGreeter]()).AsSingle().WhenInjectedInto(di.TypeOf[*politeService]())
	di.Bind[*greetingService](c)
	di.Bind[*politeService](c)
	require.NoError(t, c.Build())

	gs, err := di.Resolve[*greetingService](c)
	require.NoError(t, err)
	ps, err := di.Resolve[*politeService](c)
	require.NoError(t, err)
	root, err := di.Resolve[Greeter](c)
	require.NoError(t, err)

	assert.Equal(t, "Hello, Ada", gs.Greeter.Greet("Ada"))
	assert.Equal(t, "Bonjour, Ada", ps.Greeter.Greet("Ada"))
	assert.Equal(t, "Hello, Ada", root.Greet("Ada"))
}

func TestWhenInjectedIntoMethodBinding(t *testing.T) {
	methods := map[string]any{
		"parameter": func(g Greeter) *politeService {
			return &politeService{Greeter: g}
		},
		"context": func(ctx *di.InjectContext) (*politeService, error) {
			g, err := di.ResolveFrom[Greeter](ctx)
			return &politeService{Greeter: g}, err
		},
		"container": func(c *di.Container) (*politeService, error) {
			g, err := di.Resolve[Greeter](c)
			return &politeService{Greeter: g}, err
		},
	}
	for name, method := range methods {
		t.Run(name, func(t *testing.T) {
			c := di.NewContainer()
			di.Bind[Greeter](c).To(di.TypeOf[*englishGreeter]())
			di.Bind[Greeter](c).To(di.TypeOf[*frenchGreeter]()).WhenInjectedInto(di.TypeOf[*politeService]())
			// 合约是接口，条件按方法产出的具体类型匹配
			di.Bind[any](c).WithID("polite").FromMethod(method)

			obj, err := di.ResolveID[any](c, "polite")
			require.NoError(t, err)
			svc, ok := obj.(*politeService)
			require.True(t, ok)
			assert.Equal(t, "Bonjour, Ada", svc.Greeter.Greet("Ada"))
		})
	}
}

func TestConditionedBindingBeatsEarlierUnconditioned(t *testing.T) {
	c := di.NewContainer()
	di.Bind[Greeter](c).To(di.TypeOf[*englishGreeter]())
	di.Bind[Greeter](c).To(di.TypeOf[*frenchGreeter]()).When(func(ctx *di.InjectContext) bool {
		return ctx.ObjectType == di.TypeOf[*greetingService]()
	})
	di.Bind[*greetingService](c)

	svc, err := di.Resolve[*greetingService](c)
	require.NoError(t, err)
	assert.Equal(t, "Bonjour, Ada", svc.Greeter.Greet("Ada"))

	// 条件不满足时退回先声明的无条件绑定
	root, err := di.Resolve[Greeter](c)
	require.NoError(t, err)
	assert.Equal(t, "Hello, Ada", root.Greet("Ada"))
}

func TestConditionSeesRequestChain(t *testing.T) {
	c := di.NewContainer()
	di.Bind[string](c).WithID("greeting").FromInstance("hello")
	di.Bind[string](c).WithID("greeting").FromInstance("bonjour").When(func(ctx *di.InjectContext) bool {
		return ctx.ParentContext != nil && ctx.ParentContext.Identifier == "fr"
	})
	di.Bind[string](c).WithID("fr").FromResolveID("greeting")

	fr, err := di.ResolveID[string](c, "fr")
	require.NoError(t, err)
	assert.Equal(t, "bonjour", fr)

	plainGreeting, err := di.ResolveID[string](c, "greeting")
	require.NoError(t, err)
	assert.Equal(t, "hello", plainGreeting)
}

func TestResolveAll(t *testing.T) {
	c := di.NewContainer()
	di.Bind[Greeter](c).To(di.TypeOf[*englishGreeter]()).AsSingle()
	di.Bind[Greeter](c).To(di.TypeOf[*frenchGreeter]()).AsSingle()

	all, err := di.ResolveAll[Greeter](c)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.IsType(t, &englishGreeter{}, all[0])
	assert.IsType(t, &frenchGreeter{}, all[1])

	none, err := di.ResolveAll[Farewell](c)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestFromResolve(t *testing.T) {
	c := di.NewContainer()
	di.Bind[*englishGreeter](c).AsSingle()
	di.Bind[Greeter](c).To(di.TypeOf[*englishGreeter]()).FromResolve()
	di.Bind[*englishGreeter](c).WithID("spare").AsSingle()
	di.Bind[Greeter](c).WithID("spare").To(di.TypeOf[*englishGreeter]()).FromResolveID("spare")

	direct := di.MustResolve[*englishGreeter](c)
	g, err := di.Resolve[Greeter](c)
	require.NoError(t, err)
	assert.Same(t, direct, g.(*englishGreeter))

	spare, err := di.ResolveID[Greeter](c, "spare")
	require.NoError(t, err)
	assert.Same(t, direct, spare.(*englishGreeter), "same concrete and concrete id share the singleton")
}

func TestFromResolveAll(t *testing.T) {
	c := di.NewContainer()
	di.Bind[Greeter](c).WithID("impl").To(di.TypeOf[*englishGreeter]())
	di.Bind[Greeter](c).WithID("impl").To(di.TypeOf[*frenchGreeter]())
	di.Bind[Greeter](c).WithID("every").FromResolveAll("impl")

	all, err := c.ResolveAllID(di.TypeOf[Greeter](), "every")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = di.ResolveID[Greeter](c, "every")
	var ambiguous *di.AmbiguousMatchError
	require.ErrorAs(t, err, &ambiguous)
	assert.Equal(t, 2, ambiguous.Count)
}

func TestMissingDependencyReportsPath(t *testing.T) {
	c := di.NewContainer()
	di.Bind[*greetingService](c)

	_, err := di.Resolve[*greetingService](c)
	var noMatch *di.NoMatchingBindingError
	require.ErrorAs(t, err, &noMatch)
	assert.Equal(t, di.TypeOf[Greeter](), noMatch.ID.Type)
	assert.Contains(t, noMatch.Path, "greetingService")
}

type reportService struct {
	Greeter  Greeter  `di:""`
	Farewell Farewell `di:"?"`
	Host     string   `di:"host"`
	Audit    *plain   `di:"audit,optional"`
	Note     string
}

func TestStructRecipe(t *testing.T) {
	c := di.NewContainer()
	di.Bind[Greeter](c).To(di.TypeOf[*englishGreeter]())
	di.Bind[string](c).WithID("host").FromInstance("localhost")
	di.Bind[*reportService](c)

	svc, err := di.Resolve[*reportService](c)
	require.NoError(t, err)
	assert.NotNil(t, svc.Greeter)
	assert.Nil(t, svc.Farewell)
	assert.Nil(t, svc.Audit)
	assert.Equal(t, "localhost", svc.Host)
	assert.Empty(t, svc.Note)
}

func TestStructValueRecipe(t *testing.T) {
	c := di.NewContainer()
	di.Bind[Greeter](c).To(di.TypeOf[*frenchGreeter]())
	di.Bind[greetingService](c)

	svc, err := di.Resolve[greetingService](c)
	require.NoError(t, err)
	assert.Equal(t, "Bonjour, Ada", svc.Greeter.Greet("Ada"))
}

type hiddenDependency struct {
	greeter Greeter `di:""` //nolint:unused
}

func TestUnexportedTaggedField(t *testing.T) {
	c := di.NewContainer()
	di.Bind[*hiddenDependency](c)

	_, err := di.Resolve[*hiddenDependency](c)
	var invalid *di.InvalidBindError
	require.ErrorAs(t, err, &invalid)
	assert.Contains(t, err.Error(), "greeter")
}

func TestNamedDependencyIgnoresArguments(t *testing.T) {
	c := di.NewContainer()
	di.Bind[Greeter](c).To(di.TypeOf[*englishGreeter]())
	di.Bind[string](c).WithID("host").FromInstance("localhost")
	di.Bind[*reportService](c).FromNew().WithArguments(&plain{ID: 3})

	// Audit 带标识符，不会从参数中取值，参数因此未被使用
	_, err := di.Resolve[*reportService](c)
	assert.ErrorIs(t, err, di.ErrResolution)
}

func TestWithArgumentsSuppliesUnnamedDependency(t *testing.T) {
	c := di.NewContainer()
	di.Bind[*greetingService](c).WithArguments(&frenchGreeter{})

	svc, err := di.Resolve[*greetingService](c)
	require.NoError(t, err)
	assert.Equal(t, "Bonjour, Ada", svc.Greeter.Greet("Ada"))
}

func TestUnusedArgument(t *testing.T) {
	c := di.NewContainer()
	di.Bind[*englishGreeter](c).WithArguments(42)

	_, err := di.Resolve[*englishGreeter](c)
	assert.ErrorIs(t, err, di.ErrResolution)
	assert.Contains(t, err.Error(), "int")
}

func TestRegisterConstructor(t *testing.T) {
	c := di.NewContainer()
	require.NoError(t, c.RegisterConstructor(func(g Greeter, host string) *prefixGreeter {
		return &prefixGreeter{Prefix: g.Greet(host)}
	}))
	di.Bind[Greeter](c).To(di.TypeOf[*englishGreeter]())
	di.Bind[string](c).FromInstance("world")
	di.Bind[*prefixGreeter](c).AsSingle()

	g, err := di.Resolve[*prefixGreeter](c)
	require.NoError(t, err)
	assert.Equal(t, "Hello, world, Ada", g.Greet("Ada"))

	assert.Error(t, c.RegisterConstructor("not a function"))
	assert.Error(t, c.RegisterConstructor(func(...int) *plain { return nil }))
	assert.Error(t, c.RegisterConstructor(func() (*plain, int) { return nil, 0 }))
}

func TestNonStructWithoutRecipe(t *testing.T) {
	c := di.NewContainer()
	di.Bind[int](c)

	_, err := di.Resolve[int](c)
	var invalid *di.InvalidBindError
	require.ErrorAs(t, err, &invalid)
}
