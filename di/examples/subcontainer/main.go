package main

import (
	"fmt"
	"os"

	"github.com/gocrud/inject/di"
)

type Clock interface {
	Now() string
}

type fixedClock struct{ value string }

func (c fixedClock) Now() string { return c.value }

// Mailer 只在子容器中组装，它的 Transport 对外不可见
type Mailer struct {
	Clock     Clock  `di:""`
	Transport string `di:"transport"`
}

func (m *Mailer) Send(to string) string {
	return fmt.Sprintf("[%s] %s -> %s", m.Clock.Now(), m.Transport, to)
}

// Close 在容器释放时被调用
func (m *Mailer) Close() error {
	fmt.Println("mailer closed")
	return nil
}

func main() {
	c := di.NewContainer()
	di.Bind[Clock](c).FromInstance(fixedClock{value: "09:00"})
	di.Bind[*Mailer](c).
		FromSubContainerResolve(nil).
		ByMethod(func(sub *di.Container) error {
			di.Bind[string](sub).WithID("transport").FromInstance("smtp://localhost:25")
			di.Bind[*Mailer](sub).AsSingle()
			return nil
		}).
		AsSingle()

	if err := c.Build(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	m := di.MustResolve[*Mailer](c)
	fmt.Println(m.Send("ada@example.com"))
	fmt.Println("transport visible to parent:", c.HasBindingID(di.TypeOf[string](), "transport"))

	if err := c.Dispose(); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
}
