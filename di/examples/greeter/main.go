package main

import (
	"fmt"
	"os"

	"github.com/gocrud/inject/di"
	"github.com/gocrud/inject/logging"
)

type Greeter interface {
	Greet(name string) string
}

type EnglishGreeter struct{}

func (*EnglishGreeter) Greet(name string) string { return "Hello, " + name }

type FrenchGreeter struct{}

func (*FrenchGreeter) Greet(name string) string { return "Bonjour, " + name }

// Welcome 使用默认的 Greeter
type Welcome struct {
	Greeter Greeter `di:""`
}

// Concierge 注入时得到法语版本
type Concierge struct {
	Greeter Greeter `di:""`
	Hotel   string  `di:"hotel"`
}

func main() {
	logger := logging.NewLoggingBuilder().
		SetMinimumLevel(logging.LogLevelDebug).
		AddConsole().
		Build().
		CreateLogger("example")

	c := di.NewContainer(di.WithLogger(logger))
	di.Bind[Greeter](c).To(di.TypeOf[*EnglishGreeter]()).AsSingle()
	di.Bind[Greeter](c).To(di.TypeOf[*FrenchGreeter]()).AsSingle().WhenInjectedInto(di.TypeOf[*Concierge]())
	di.Bind[string](c).WithID("hotel").FromInstance("Hotel du Nord")
	di.Bind[*Welcome](c)
	di.Bind[*Concierge](c).AsSingle().NonLazy()

	if err := c.Build(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer c.Dispose()

	w := di.MustResolve[*Welcome](c)
	fmt.Println(w.Greeter.Greet("Ada"))

	con := di.MustResolve[*Concierge](c)
	fmt.Println(con.Greeter.Greet("Ada"), "@", con.Hotel)
}
