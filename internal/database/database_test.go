package database

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/permitdesk/licensing-backend/internal/formschema"
	"github.com/permitdesk/licensing-backend/internal/models"
)

func TestSeedInitialDataIsIdempotent(t *testing.T) {
	db := NewTestDB(t)

	require.NoError(t, SeedInitialData(db, "Adm1n!secret"))
	require.NoError(t, SeedInitialData(db, "Adm1n!secret"))

	var admins []models.EmailUser
	require.NoError(t, db.Where("role = ?", models.UserRoleAdmin).Find(&admins).Error)
	require.Len(t, admins, 1)
	assert.NoError(t, admins[0].CheckPassword("Adm1n!secret"))

	var types []models.ProposalType
	require.NoError(t, db.Order("name").Find(&types).Error)
	require.Len(t, types, 2)
	assert.Equal(t, "E Class", types[0].Name)

	var pages int64
	db.Model(&models.HelpPage{}).Count(&pages)
	assert.Equal(t, int64(2), pages)
}

func TestSeededSchemaParses(t *testing.T) {
	seed, err := loadSeed(initialSeed)
	require.NoError(t, err)

	for _, pt := range seed.ProposalTypes {
		raw, err := models.JSONList(pt.Schema).Value()
		require.NoError(t, err)
		schema, err := formschema.Parse([]byte(raw.(string)))
		require.NoError(t, err, pt.Name)
		assert.NotEmpty(t, schema)
	}
}

func TestSeedRequiresAdminPassword(t *testing.T) {
	db := NewTestDB(t)
	assert.Error(t, SeedInitialData(db, ""))
}

func TestWithTransactionRollsBack(t *testing.T) {
	db := NewTestDB(t)
	boom := errors.New("boom")

	err := WithTransaction(db, func(tx *gorm.DB) error {
		if err := tx.Create(&models.Address{Line1: "1 Main St", Locality: "Perth", Postcode: "6000"}).Error; err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	var count int64
	db.Model(&models.Address{}).Count(&count)
	assert.Zero(t, count)

	require.NoError(t, WithTransaction(db, func(tx *gorm.DB) error {
		return tx.Create(&models.Address{Line1: "1 Main St", Locality: "Perth", Postcode: "6000"}).Error
	}))
	db.Model(&models.Address{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestJSONColumnsRoundTrip(t *testing.T) {
	db := NewTestDB(t)

	pt := &models.ProposalType{
		Name:   "Test",
		Schema: models.JSONList{{"name": "a", "type": "text"}},
	}
	require.NoError(t, db.Create(pt).Error)

	var loaded models.ProposalType
	require.NoError(t, db.First(&loaded, "id = ?", pt.ID).Error)
	require.Len(t, loaded.Schema, 1)
	assert.Equal(t, "a", loaded.Schema[0]["name"])
}

func TestMigrationsCreateJSONColumns(t *testing.T) {
	db := NewTestDB(t)

	m := db.Migrator()
	assert.True(t, m.HasColumn(&models.ProposalType{}, "schema"))
	assert.True(t, m.HasColumn(&models.Proposal{}, "data"))
	assert.True(t, m.HasColumn(&models.Version{}, "serialized_data"))

	// running twice is a no-op
	require.NoError(t, RunMigrations(db))
}
