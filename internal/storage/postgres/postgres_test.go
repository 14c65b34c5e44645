package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/thingforge/thingforge/internal/catalog"
	"github.com/thingforge/thingforge/internal/fault"
)

func TestConfigDSN(t *testing.T) {
	cfg := Config{Host: "localhost", Port: "5432", Username: "editor", Password: "pw", Database: "things"}
	assert.Equal(t, "host=localhost port=5432 user=editor password=pw dbname=things sslmode=disable", cfg.DSN())
}

func TestInitRequiresHostAndDatabase(t *testing.T) {
	b := New(Config{Port: "5432"})
	assert.ErrorIs(t, b.Init(), fault.ErrValidation)
	assert.NoError(t, b.Close())
}

func TestSaveBeforeInit(t *testing.T) {
	b := New(Config{Host: "localhost", Database: "things"})
	_, err := b.SaveCatalog(context.Background(), &catalog.Export{})
	assert.ErrorIs(t, err, fault.ErrValidation)
}
