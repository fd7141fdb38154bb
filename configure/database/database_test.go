package database_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/gocrud/inject/config"
	"github.com/gocrud/inject/configure/database"
	"github.com/gocrud/inject/di"
)

type User struct {
	gorm.Model
	Name string
}

type userRepository struct {
	Master *gorm.DB `di:"master"`
	Slave  *gorm.DB `di:"slave,?"`
}

func TestDatabaseConfigure(t *testing.T) {
	c := di.NewContainer()
	require.NoError(t, c.Install(database.Configure(func(b *database.Builder) {
		b.AddSQLite("master", "file:configure_master?mode=memory&cache=shared", func(o *database.Options) {
			o.MaxOpenConns = 5
			o.AutoMigrate = []any{&User{}}
		})
	})))
	di.Bind[*userRepository](c).AsSingle()
	require.NoError(t, c.Build())

	repo, err := di.Resolve[*userRepository](c)
	require.NoError(t, err)
	require.NotNil(t, repo.Master)
	assert.Nil(t, repo.Slave)

	sqlDB, err := repo.Master.DB()
	require.NoError(t, err)
	assert.Equal(t, 5, sqlDB.Stats().MaxOpenConnections)

	require.NoError(t, repo.Master.Create(&User{Name: "test"}).Error)
	var count int64
	require.NoError(t, repo.Master.Model(&User{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	// 容器释放时关闭连接
	require.NoError(t, c.Dispose())
	assert.Error(t, sqlDB.Ping())
}

func TestDatabaseFromConfig(t *testing.T) {
	cfg, err := config.NewConfigurationBuilder().AddInMemory(map[string]any{
		"database": map[string]any{
			"default": map[string]any{
				"driver":       "sqlite",
				"dsn":          "file:configure_default?mode=memory&cache=shared",
				"maxOpenConns": 3,
				"logLevel":     "silent",
			},
		},
	}).Build()
	require.NoError(t, err)

	b, err := database.FromConfig(cfg, "database")
	require.NoError(t, err)
	b.Migrate("default", &User{})

	c := di.NewContainer()
	require.NoError(t, c.Install(b))

	db, err := di.Resolve[*gorm.DB](c)
	require.NoError(t, err)
	named, err := di.ResolveID[*gorm.DB](c, database.DefaultDatabase)
	require.NoError(t, err)
	assert.Same(t, db, named)
	assert.True(t, db.Migrator().HasTable(&User{}))

	factory, err := di.Resolve[*database.DatabaseFactory](c)
	require.NoError(t, err)
	var names []string
	factory.Each(func(name string, _ *gorm.DB) { names = append(names, name) })
	assert.Equal(t, []string{"default"}, names)

	_, err = factory.Get("missing")
	assert.Error(t, err)
	require.NoError(t, c.Dispose())
}

func TestDatabaseBuilderErrors(t *testing.T) {
	b := database.NewBuilder().
		Add("invalid", nil, nil).
		AddSQLite("dup", "file:a?mode=memory", nil).
		AddSQLite("dup", "file:b?mode=memory", nil).
		AddSQLite("level", "file:c?mode=memory", func(o *database.Options) { o.LogLevel = "loud" }).
		Migrate("missing", &User{})

	err := di.NewContainer().Install(b)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dialector is required")
	assert.Contains(t, err.Error(), "already configured")
	assert.Contains(t, err.Error(), "unknown gorm log level")
	assert.Contains(t, err.Error(), "'missing' not configured")
}

func TestDatabaseOpenError(t *testing.T) {
	cfg, err := config.NewConfigurationBuilder().AddInMemory(map[string]any{
		"database": map[string]any{
			"broken": map[string]any{"driver": "oracle", "dsn": "x"},
		},
	}).Build()
	require.NoError(t, err)

	b, err := database.FromConfig(cfg, "database")
	require.NoError(t, err)
	err = di.NewContainer().Install(b)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unsupported database driver "oracle"`)
}

func TestOptionsDrivers(t *testing.T) {
	for _, driver := range []string{"sqlite", "MySQL", "postgres", "sqlserver"} {
		o := database.DefaultOptions()
		o.Driver = driver
		o.DSN = "placeholder"
		assert.NoError(t, o.Validate(), driver)
	}

	o := database.DefaultOptions()
	o.Driver = "postgres"
	err := o.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dsn is required")
}
