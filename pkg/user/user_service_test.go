package user

import (
	"context"
	"fmt"
	"testing"

	"github.com/lashkinse/foodgram-backend/domain"
	"github.com/lashkinse/foodgram-backend/entities"
	"github.com/lashkinse/foodgram-backend/pkg/jwt"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// fakeMailer records outgoing mail instead of dialing SMTP.
type fakeMailer struct {
	to      []string
	subject []string
	body    []string
}

func (m *fakeMailer) SendMail(toEmail, subject, body string) error {
	m.to = append(m.to, toEmail)
	m.subject = append(m.subject, subject)
	m.body = append(m.body, body)
	return nil
}

func setupUserTest(t *testing.T) (UserService, *fakeMailer, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&entities.User{}, &entities.Follow{}))

	mailer := &fakeMailer{}
	service := NewUserService(
		NewUserRepository(db),
		jwt.NewJWTService("test-secret"),
		mailer,
		"http://localhost:8000",
	)
	return service, mailer, db
}

func registerRequest(username string) domain.RegisterRequest {
	return domain.RegisterRequest{
		Email:     username + "@example.com",
		Username:  username,
		FirstName: "Test",
		LastName:  "User",
		Password:  "hunter2hunter2",
	}
}

func TestRegister(t *testing.T) {
	service, _, _ := setupUserTest(t)
	ctx := context.Background()

	resp, err := service.Register(ctx, registerRequest("alice"))
	require.NoError(t, err)
	assert.Equal(t, "alice", resp.Username)
	assert.Equal(t, "alice@example.com", resp.Email)
	assert.NotEmpty(t, resp.ID)
	assert.False(t, resp.IsSubscribed)
}

func TestRegisterDuplicates(t *testing.T) {
	service, _, _ := setupUserTest(t)
	ctx := context.Background()

	_, err := service.Register(ctx, registerRequest("alice"))
	require.NoError(t, err)

	dup := registerRequest("somebody")
	dup.Email = "alice@example.com"
	_, err = service.Register(ctx, dup)
	assert.ErrorIs(t, err, domain.ErrEmailAlreadyExists)

	dup = registerRequest("alice")
	dup.Email = "other@example.com"
	_, err = service.Register(ctx, dup)
	assert.ErrorIs(t, err, domain.ErrUsernameAlreadyExists)
}

func TestLogin(t *testing.T) {
	service, _, _ := setupUserTest(t)
	ctx := context.Background()

	_, err := service.Register(ctx, registerRequest("alice"))
	require.NoError(t, err)

	resp, err := service.Login(ctx, domain.LoginRequest{
		Email:    "alice@example.com",
		Password: "hunter2hunter2",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "alice", resp.User.Username)

	_, err = service.Login(ctx, domain.LoginRequest{
		Email:    "alice@example.com",
		Password: "wrong-password",
	})
	assert.ErrorIs(t, err, domain.ErrCredentialsInvalid)

	// An unknown email yields the same error as a bad password.
	_, err = service.Login(ctx, domain.LoginRequest{
		Email:    "nobody@example.com",
		Password: "hunter2hunter2",
	})
	assert.ErrorIs(t, err, domain.ErrCredentialsInvalid)
}

func TestGetUserSubscriptionFlag(t *testing.T) {
	service, _, db := setupUserTest(t)
	ctx := context.Background()

	viewer, err := service.Register(ctx, registerRequest("viewer"))
	require.NoError(t, err)
	author, err := service.Register(ctx, registerRequest("author"))
	require.NoError(t, err)

	repo := NewUserRepository(db)
	viewerEntity, err := repo.GetUserByUsername(ctx, "viewer")
	require.NoError(t, err)
	authorEntity, err := repo.GetUserByUsername(ctx, "author")
	require.NoError(t, err)
	require.NoError(t, repo.CreateFollow(ctx, &entities.Follow{
		UserID:   viewerEntity.ID,
		AuthorID: authorEntity.ID,
	}))

	resp, err := service.GetUser(ctx, viewer.ID, author.ID)
	require.NoError(t, err)
	assert.True(t, resp.IsSubscribed)

	// Anonymous viewers never see the flag raised.
	resp, err = service.GetUser(ctx, "", author.ID)
	require.NoError(t, err)
	assert.False(t, resp.IsSubscribed)
}

func TestPasswordResetFlow(t *testing.T) {
	service, mailer, _ := setupUserTest(t)
	ctx := context.Background()

	_, err := service.Register(ctx, registerRequest("alice"))
	require.NoError(t, err)

	err = service.ForgotPassword(ctx, domain.ForgotPasswordRequest{Email: "alice@example.com"})
	require.NoError(t, err)
	require.Len(t, mailer.to, 1)
	assert.Equal(t, "alice@example.com", mailer.to[0])
	assert.Contains(t, mailer.body[0], "http://localhost:8000/reset-password?token=")
}

func TestUpdateUser(t *testing.T) {
	service, _, _ := setupUserTest(t)
	ctx := context.Background()

	created, err := service.Register(ctx, registerRequest("alice"))
	require.NoError(t, err)

	updated, err := service.UpdateUser(ctx, created.ID, domain.UpdateUserRequest{
		FirstName: "Alice",
		LastName:  "Liddell",
	})
	require.NoError(t, err)
	assert.Equal(t, "Alice", updated.FirstName)
	assert.Equal(t, "Liddell", updated.LastName)
}
