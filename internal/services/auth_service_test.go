package services

import (
	"testing"

	"github.com/stretchr/testify/suite"
	"github.com/taskflow/taskflow-api/internal/auth"
	"github.com/taskflow/taskflow-api/internal/models"
	"github.com/taskflow/taskflow-api/internal/repository"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const testJWTSecret = "test-secret"

// AuthServiceTestSuite defines the test suite for AuthService
type AuthServiceTestSuite struct {
	suite.Suite
	db      *gorm.DB
	service *AuthService
}

// SetupTest runs before each test
func (suite *AuthServiceTestSuite) SetupTest() {
	var err error
	suite.db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	suite.Require().NoError(err)

	err = suite.db.AutoMigrate(&models.User{})
	suite.Require().NoError(err)

	suite.service = NewAuthService(repository.NewUserRepository(suite.db), testJWTSecret)
}

// TearDownTest runs after each test
func (suite *AuthServiceTestSuite) TearDownTest() {
	sqlDB, err := suite.db.DB()
	suite.Require().NoError(err)
	sqlDB.Close()
}

func (suite *AuthServiceTestSuite) TestRegisterNormalizesEmailAndDefaultsRole() {
	user, token, err := suite.service.Register(RegisterInput{
		Email:     "  Ada@Example.COM ",
		Password:  "correct-horse",
		FirstName: "Ada",
		LastName:  "Lovelace",
	})
	suite.Require().NoError(err)

	suite.Equal("ada@example.com", user.Email)
	suite.Equal(models.RoleMember, user.Role)
	suite.NoError(bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("correct-horse")))

	// The issued token resolves back to the new user.
	userID, err := auth.ParseToken(testJWTSecret, token)
	suite.Require().NoError(err)
	suite.Equal(user.ID, userID)
}

func (suite *AuthServiceTestSuite) TestRegisterRejectsDuplicateEmail() {
	input := RegisterInput{
		Email:     "dup@example.com",
		Password:  "correct-horse",
		FirstName: "First",
		LastName:  "User",
	}
	_, _, err := suite.service.Register(input)
	suite.Require().NoError(err)

	// Same address with different casing still collides.
	input.Email = "DUP@example.com"
	_, _, err = suite.service.Register(input)
	suite.ErrorIs(err, ErrEmailTaken)
}

func (suite *AuthServiceTestSuite) TestRegisterRejectsShortPassword() {
	_, _, err := suite.service.Register(RegisterInput{
		Email:     "short@example.com",
		Password:  "seven77",
		FirstName: "Short",
		LastName:  "Password",
	})
	suite.ErrorIs(err, ErrPasswordTooShort)
}

func (suite *AuthServiceTestSuite) TestRegisterRejectsUnknownRole() {
	_, _, err := suite.service.Register(RegisterInput{
		Email:     "role@example.com",
		Password:  "correct-horse",
		FirstName: "Bad",
		LastName:  "Role",
		Role:      "superuser",
	})
	suite.ErrorIs(err, ErrInvalidRole)
}

func (suite *AuthServiceTestSuite) TestRegisterAdminOnlyBootstrapsFirstAccount() {
	// With no admin account yet, the admin role can be claimed.
	first, _, err := suite.service.Register(RegisterInput{
		Email:     "boot@example.com",
		Password:  "correct-horse",
		FirstName: "Boot",
		LastName:  "Strap",
		Role:      "admin",
	})
	suite.Require().NoError(err)
	suite.Equal(models.RoleAdmin, first.Role)

	// Once an admin exists, further admin self-registration is rejected.
	_, _, err = suite.service.Register(RegisterInput{
		Email:     "late@example.com",
		Password:  "correct-horse",
		FirstName: "Late",
		LastName:  "Comer",
		Role:      "admin",
	})
	suite.ErrorIs(err, ErrAdminRegistrationClosed)

	// Member signups are unaffected.
	member, _, err := suite.service.Register(RegisterInput{
		Email:     "plain@example.com",
		Password:  "correct-horse",
		FirstName: "Plain",
		LastName:  "Member",
		Role:      "member",
	})
	suite.Require().NoError(err)
	suite.Equal(models.RoleMember, member.Role)
}

func (suite *AuthServiceTestSuite) TestLoginVerifiesPassword() {
	_, _, err := suite.service.Register(RegisterInput{
		Email:     "login@example.com",
		Password:  "correct-horse",
		FirstName: "Log",
		LastName:  "In",
	})
	suite.Require().NoError(err)

	user, token, err := suite.service.Login(LoginInput{
		Email:    "LOGIN@example.com",
		Password: "correct-horse",
	})
	suite.Require().NoError(err)
	suite.Equal("login@example.com", user.Email)
	suite.NotEmpty(token)

	_, _, err = suite.service.Login(LoginInput{
		Email:    "login@example.com",
		Password: "wrong-horse",
	})
	suite.ErrorIs(err, ErrInvalidCredentials)
}

func (suite *AuthServiceTestSuite) TestLoginUnknownEmail() {
	_, _, err := suite.service.Login(LoginInput{
		Email:    "ghost@example.com",
		Password: "whatever-pass",
	})
	suite.ErrorIs(err, ErrInvalidCredentials)
}

// TestAuthServiceTestSuite runs the test suite
func TestAuthServiceTestSuite(t *testing.T) {
	suite.Run(t, new(AuthServiceTestSuite))
}
