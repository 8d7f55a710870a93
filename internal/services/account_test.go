package services

import (
	"context"
	"io"

	"github.com/google/uuid"

	"github.com/permitdesk/licensing-backend/internal/config"
	"github.com/permitdesk/licensing-backend/internal/models"
	"github.com/permitdesk/licensing-backend/internal/utils"
)

func (s *ServiceTestSuite) users() *UserService {
	return NewUserService(s.db, s.storage, s.events)
}

func (s *ServiceTestSuite) TestRegisterAndLogin() {
	s.cfg.JWT = config.JWTConfig{SecretKey: "test-secret", AccessTokenTTL: 1, RefreshTokenTTL: 24}
	utils.SetJWTSecret(s.cfg.JWT.SecretKey)
	auth := NewAuthService(s.db, s.cfg)

	resp, err := auth.Register(&RegisterRequest{
		Email:     " Ada@Example.com ",
		Password:  "Password1!",
		FirstName: "Ada",
		LastName:  "Lovelace",
		DOB:       "1990-03-14",
	})
	s.Require().NoError(err)
	s.Equal("ada@example.com", resp.User.Email)
	s.Equal(models.UserRoleCustomer, resp.User.Role)
	s.Equal(3600, resp.ExpiresIn)

	claims, err := utils.ValidateJWT(resp.AccessToken)
	s.Require().NoError(err)
	s.Equal("customer", claims.Role)

	_, err = auth.Register(&RegisterRequest{Email: "ada@example.com", Password: "Password1!", FirstName: "A", LastName: "L"})
	s.ErrorIs(err, ErrConflict)

	_, err = auth.Register(&RegisterRequest{Email: "weak@example.com", Password: "weak", FirstName: "A", LastName: "L"})
	s.ErrorIs(err, ErrValidation)

	_, err = auth.Login(&LoginRequest{Email: "ada@example.com", Password: "wrong"})
	s.ErrorIs(err, ErrInvalidCredentials)

	loggedIn, err := auth.Login(&LoginRequest{Email: "  ADA@example.com ", Password: "Password1!"})
	s.Require().NoError(err)
	s.NotNil(loggedIn.User.LastLoginAt)

	refreshed, err := auth.RefreshToken(loggedIn.RefreshToken)
	s.Require().NoError(err)
	s.Equal(resp.User.ID, refreshed.User.ID)

	s.Require().NoError(s.db.Model(&models.EmailUser{}).Where("id = ?", resp.User.ID).Update("status", models.UserStatusSuspended).Error)
	_, err = auth.Login(&LoginRequest{Email: "ada@example.com", Password: "Password1!"})
	s.ErrorIs(err, ErrAccountSuspended)
}

func (s *ServiceTestSuite) TestSearchCustomers() {
	s.createUser(models.UserRoleCustomer, "Ada", "Lovelace")
	s.createUser(models.UserRoleCustomer, "Adam", "Smith")
	s.createUser(models.UserRoleOfficer, "Adaline", "Officer")

	results, err := s.users().SearchCustomers("ADA")
	s.Require().NoError(err)
	s.Require().Len(results, 2)
	texts := []string{results[0].Text, results[1].Text}
	s.Contains(texts, "Ada Lovelace (14/03/1990)")
	s.Contains(texts, "Adam Smith (14/03/1990)")

	results, err = s.users().SearchCustomers("")
	s.Require().NoError(err)
	s.NotNil(results)
	s.Empty(results)
}

func (s *ServiceTestSuite) TestUpdateAccountOutcomes() {
	user := s.createUser(models.UserRoleCustomer, "Ada", "Lovelace")

	_, outcome, err := s.users().UpdateAccount(user.ID, &UpdateAccountRequest{FirstName: "Ada", LastName: "Lovelace"})
	s.Require().NoError(err)
	s.Equal(AccountIdentificationMissing, outcome)

	updated, outcome, err := s.users().UpdateAccount(user.ID, &UpdateAccountRequest{FirstName: "Augusta", LastName: "Lovelace", DOB: "1815-12-10"})
	s.Require().NoError(err)
	s.Equal(AccountNameChanged, outcome)
	s.Equal(1815, updated.DOB.Year())

	_, err = s.users().UploadIdentification(context.Background(), user.ID, fileHeader(s.T(), "identification_file", "licence.png", []byte("png")))
	s.Require().NoError(err)

	_, outcome, err = s.users().UpdateAccount(user.ID, &UpdateAccountRequest{FirstName: "Augusta", LastName: "Lovelace"})
	s.Require().NoError(err)
	s.Equal(AccountSaved, outcome)

	_, _, err = s.users().UpdateAccount(user.ID, &UpdateAccountRequest{FirstName: "", LastName: "Lovelace"})
	s.ErrorIs(err, ErrValidation)
}

func (s *ServiceTestSuite) TestUploadIdentificationReplacesPrevious() {
	user := s.createUser(models.UserRoleCustomer, "Ada", "Lovelace")
	ctx := context.Background()

	_, err := s.users().UploadIdentification(ctx, user.ID, fileHeader(s.T(), "identification_file", "notes.txt", []byte("text")))
	var verr *ValidationError
	s.Require().ErrorAs(err, &verr)
	s.Equal("identification_file", verr.Fields[0].Field)

	first, err := s.users().UploadIdentification(ctx, user.ID, fileHeader(s.T(), "identification_file", "one.jpg", []byte("one")))
	s.Require().NoError(err)
	second, err := s.users().UploadIdentification(ctx, user.ID, fileHeader(s.T(), "identification_file", "two.pdf", []byte("two")))
	s.Require().NoError(err)

	info, err := s.users().GetIdentification(user.ID)
	s.Require().NoError(err)
	s.Equal(".png, .jpg, .jpeg, .gif, .pdf", info.FileTypes)
	s.Equal(second.URL, info.ExistingIDImageURL)

	stored, err := s.users().GetUserByID(user.ID)
	s.Require().NoError(err)
	s.Require().NotNil(stored.IdentificationID)
	s.Equal(second.ID, *stored.IdentificationID)

	var count int64
	s.Require().NoError(s.db.Model(&models.Document{}).Where("id = ?", first.ID).Count(&count).Error)
	s.Zero(count)

	docs, err := s.users().ListDocuments(user.ID)
	s.Require().NoError(err)
	s.Require().Len(docs, 1)
	s.Equal(second.ID, docs[0].ID)
}

func (s *ServiceTestSuite) TestProfileOwnership() {
	profiles := NewProfileService(s.db)
	owner := s.createUser(models.UserRoleCustomer, "Ada", "Lovelace")
	other := s.createUser(models.UserRoleCustomer, "Grace", "Hopper")

	req := &ProfileRequest{
		User:  owner.ID,
		Name:  "Work",
		Email: "work@example.com",
		PostalAddress: AddressRequest{
			Line1:    "1 Main St",
			Locality: "Perth",
			Postcode: "6000",
		},
	}

	_, err := profiles.Create(other.ID, req)
	s.ErrorIs(err, ErrUnauthorized, "user field must match the caller")

	profile, err := profiles.Create(owner.ID, req)
	s.Require().NoError(err)
	s.Equal("WA", profile.PostalAddress.State)
	s.Equal("AU", profile.PostalAddress.Country)

	_, err = profiles.Get(other.ID, profile.ID)
	s.ErrorIs(err, ErrUnauthorized)
	_, err = profiles.Get(owner.ID, uuid.New())
	s.ErrorIs(err, ErrNotFound)

	req.Name = "Home"
	req.PostalAddress.Postcode = "60"
	_, err = profiles.Update(owner.ID, profile.ID, req)
	s.ErrorIs(err, ErrValidation)

	req.PostalAddress.Postcode = "6100"
	updated, err := profiles.Update(owner.ID, profile.ID, req)
	s.Require().NoError(err)
	s.Equal("Home", updated.Name)
	s.Equal("6100", updated.PostalAddress.Postcode)

	_, err = profiles.Delete(other.ID, profile.ID)
	s.ErrorIs(err, ErrUnauthorized)

	deleted, err := profiles.Delete(owner.ID, profile.ID)
	s.Require().NoError(err)
	s.Equal("Home", deleted.Name)

	list, err := profiles.List(owner.ID)
	s.Require().NoError(err)
	s.Empty(list)
}

func (s *ServiceTestSuite) TestOpenDocument() {
	owner := s.createUser(models.UserRoleCustomer, "Ada", "Lovelace")
	other := s.createUser(models.UserRoleCustomer, "Grace", "Hopper")
	officer := s.createUser(models.UserRoleOfficer, "Olive", "Officer")
	ctx := context.Background()

	doc, err := s.users().UploadIdentification(ctx, owner.ID, fileHeader(s.T(), "identification_file", "id.png", []byte("png-bytes")))
	s.Require().NoError(err)

	for _, reader := range []*models.EmailUser{owner, officer} {
		opened, file, err := s.users().OpenDocument(ctx, s.actor(reader), doc.ID)
		s.Require().NoError(err)
		content, err := io.ReadAll(file)
		s.Require().NoError(err)
		s.Require().NoError(file.Close())
		s.Equal("png-bytes", string(content))
		s.Equal("id.png", opened.Name)
	}

	_, _, err = s.users().OpenDocument(ctx, s.actor(other), doc.ID)
	s.ErrorIs(err, ErrUnauthorized)

	_, _, err = s.users().OpenDocument(ctx, s.actor(owner), uuid.New())
	s.ErrorIs(err, ErrNotFound)
}
