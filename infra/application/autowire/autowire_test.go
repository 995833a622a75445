package autowire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peakcary/stock-analysis-system-sub001/infra/application/core"
)

type store interface{ Name() string }

type dbComp struct{ *core.BaseComponent }

type svc struct {
	*core.BaseComponent
	DB    *dbComp        `infra:"dep:db"`
	Store store          `infra:"dep:db"`
	Cache core.Component `infra:"dep:cache?"`
}

type badSvc struct {
	*core.BaseComponent
	DB *svc `infra:"dep:db"`
}

func TestInjectResolvesAndRecordsDependencies(t *testing.T) {
	c := core.NewContainer()
	db := &dbComp{core.NewBaseComponent("db")}
	s := &svc{BaseComponent: core.NewBaseComponent("svc")}
	require.NoError(t, c.Register("db", db))
	require.NoError(t, c.Register("svc", s))

	require.NoError(t, InjectAll(c))
	assert.Same(t, db, s.DB)
	assert.Equal(t, "db", s.Store.Name())
	assert.Nil(t, s.Cache)
	assert.Equal(t, []string{"db"}, s.Dependencies())
}

func TestInjectKeepsPresetFields(t *testing.T) {
	c := core.NewContainer()
	require.NoError(t, c.Register("db", &dbComp{core.NewBaseComponent("db")}))
	preset := &dbComp{core.NewBaseComponent("fake")}
	s := &svc{BaseComponent: core.NewBaseComponent("svc"), DB: preset}
	require.NoError(t, Inject(c, s))
	assert.Same(t, preset, s.DB)
}

func TestInjectErrors(t *testing.T) {
	c := core.NewContainer()
	err := Inject(c, &svc{BaseComponent: core.NewBaseComponent("svc")})
	require.Error(t, err)

	require.NoError(t, c.Register("db", &dbComp{core.NewBaseComponent("db")}))
	err = Inject(c, &badSvc{BaseComponent: core.NewBaseComponent("bad")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "incompatible")
}
