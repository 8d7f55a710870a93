package pdf

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/permitdesk/licensing-backend/internal/models"
)

func sampleLicence(number string, seq int) models.WildlifeLicence {
	end := time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)
	return models.WildlifeLicence{
		LicenceNumber:   number,
		LicenceSequence: seq,
		LicenceType:     "Regulation 17",
		Purpose:         "Fauna survey",
		EndDate:         &end,
		Holder:          &models.EmailUser{FirstName: "Ada", LastName: "Lovelace"},
		Profile: &models.Profile{
			Name:        "Work",
			Institution: "Survey Co",
			PostalAddress: models.Address{
				Line1:    "1 Main St",
				Locality: "Perth",
				State:    "WA",
				Postcode: "6000",
			},
		},
	}
}

func TestLicenceRenewal(t *testing.T) {
	licence := sampleLicence("WL123", 2)
	out, err := LicenceRenewal(&licence, "https://licensing.example/")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
}

func TestBulkLicenceRenewalPages(t *testing.T) {
	now := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)

	empty := bulkDocument(nil, "https://licensing.example/", now)
	require.NoError(t, empty.Error())
	assert.Equal(t, 1, empty.PageCount(), "cover page only")

	licences := []models.WildlifeLicence{sampleLicence("WL1", 1), sampleLicence("WL2", 3)}
	doc := bulkDocument(licences, "https://licensing.example/", now)
	require.NoError(t, doc.Error())
	assert.Equal(t, 3, doc.PageCount())

	out, err := BulkLicenceRenewal(licences, "https://licensing.example/")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
}

func TestAddressBlock(t *testing.T) {
	licence := sampleLicence("WL1", 1)
	assert.Equal(t, []string{"Ada Lovelace", "Survey Co", "1 Main St", "Perth WA 6000"}, addressBlock(&licence))

	licence.Profile = nil
	assert.Equal(t, []string{"Ada Lovelace"}, addressBlock(&licence))
	assert.Equal(t, "-", formatDate(nil))
}
