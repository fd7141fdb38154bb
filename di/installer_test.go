package di_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gocrud/inject/config"
	"github.com/gocrud/inject/di"
	"github.com/gocrud/inject/logging"
)

type greeterInstaller struct {
	language string
}

func (i greeterInstaller) Name() string { return "greeter" }

func (i greeterInstaller) InstallBindings(c *di.Container) error {
	switch i.language {
	case "en":
		di.Bind[Greeter](c).To(di.TypeOf[*englishGreeter]()).AsSingle()
	case "fr":
		di.Bind[Greeter](c).To(di.TypeOf[*frenchGreeter]()).AsSingle()
	default:
		return errors.New("unsupported language " + i.language)
	}
	return nil
}

func TestInstall(t *testing.T) {
	c := di.NewContainer()
	require.NoError(t, c.Install(
		greeterInstaller{language: "fr"},
		di.InstallerFunc(func(c *di.Container) error {
			di.Bind[*greetingService](c)
			return nil
		}),
	))
	require.NoError(t, c.Build())

	svc, err := di.Resolve[*greetingService](c)
	require.NoError(t, err)
	assert.Equal(t, "Bonjour, Ada", svc.Greeter.Greet("Ada"))
}

func TestInstallError(t *testing.T) {
	c := di.NewContainer()
	err := c.Install(greeterInstaller{language: "de"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "installer greeter")
}

func TestSettingsFromConfig(t *testing.T) {
	cfg, err := config.NewConfigurationBuilder().AddInMemory(map[string]any{
		"di": map[string]any{
			"invalidBindResponse": "skip",
			"recipeCacheSize":     16,
		},
		"broken": map[string]any{
			"invalidBindResponse": "explode",
		},
	}).Build()
	require.NoError(t, err)

	s, err := di.SettingsFromConfig(cfg, "di")
	require.NoError(t, err)
	assert.Equal(t, di.InvalidBindSkip, s.InvalidBindResponse)
	assert.Equal(t, 16, s.RecipeCacheSize)

	s, err = di.SettingsFromConfig(cfg, "missing")
	require.NoError(t, err)
	assert.Equal(t, di.DefaultSettings(), s)

	_, err = di.SettingsFromConfig(cfg, "broken")
	assert.Error(t, err)

	s, err = di.SettingsFromConfig(cfg, "di")
	require.NoError(t, err)
	c := di.NewContainer(di.WithSettings(s))
	c.Bind(di.TypeOf[Greeter](), di.TypeOf[Farewell]()).To(di.TypeOf[*englishGreeter]())
	assert.NoError(t, c.Build())
	assert.Equal(t, di.InvalidBindSkip, c.Settings().InvalidBindResponse)
}

func TestContainerLogging(t *testing.T) {
	var buf bytes.Buffer
	f := logging.NewTextFormatter()
	f.IncludeTimestamp = false
	logger := logging.NewLoggingBuilder().
		SetMinimumLevel(logging.LogLevelDebug).
		AddWriter(&buf, f).
		Build().
		CreateLogger("app")

	c := di.NewContainer(di.WithLogger(logger))
	di.Bind[*englishGreeter](c).AsSingle().NonLazy()
	require.NoError(t, c.Build())

	out := buf.String()
	assert.Contains(t, out, "DEBUG [di] di: binding finalized")
	assert.Contains(t, out, "strategy=FromNew")
	assert.Contains(t, out, "di: container built")
}

func TestInvalidBindResponseText(t *testing.T) {
	var r di.InvalidBindResponse
	require.NoError(t, r.UnmarshalText([]byte("Skip")))
	assert.Equal(t, di.InvalidBindSkip, r)

	text, err := di.InvalidBindAssert.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "assert", string(text))

	assert.Error(t, r.UnmarshalText([]byte("ignore")))
	assert.Equal(t, "Singleton", di.ScopeSingleton.String())
}
