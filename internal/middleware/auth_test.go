package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"github.com/taskflow/taskflow-api/internal/auth"
	"github.com/taskflow/taskflow-api/internal/constants"
	"github.com/taskflow/taskflow-api/internal/database"
	"github.com/taskflow/taskflow-api/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const testSecret = "middleware-test-secret"

// AuthMiddlewareTestSuite defines the test suite for the auth middleware
type AuthMiddlewareTestSuite struct {
	suite.Suite
	db     *gorm.DB
	router *gin.Engine
	user   *models.User
	admin  *models.User
}

// SetupTest runs before each test
func (suite *AuthMiddlewareTestSuite) SetupTest() {
	var err error
	suite.db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	suite.Require().NoError(err)

	err = suite.db.AutoMigrate(&models.User{})
	suite.Require().NoError(err)

	database.SetDB(suite.db)

	suite.user = suite.createUser("member@example.com", models.RoleMember)
	suite.admin = suite.createUser("admin@example.com", models.RoleAdmin)

	gin.SetMode(gin.TestMode)
	suite.router = gin.New()
	suite.router.GET("/protected", RequireAuth(testSecret), func(c *gin.Context) {
		user, ok := GetCurrentUser(c)
		suite.Require().True(ok)
		c.JSON(http.StatusOK, gin.H{"email": user.Email})
	})
	suite.router.GET("/admin", RequireAuth(testSecret), RequireAdmin(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
}

// TearDownTest runs after each test
func (suite *AuthMiddlewareTestSuite) TearDownTest() {
	sqlDB, err := suite.db.DB()
	suite.Require().NoError(err)
	sqlDB.Close()
}

func (suite *AuthMiddlewareTestSuite) createUser(email string, role models.UserRole) *models.User {
	user := &models.User{
		Email:        email,
		PasswordHash: "hashedpassword",
		FirstName:    "Auth",
		LastName:     "Tester",
		Role:         role,
	}
	suite.Require().NoError(suite.db.Create(user).Error)
	return user
}

func (suite *AuthMiddlewareTestSuite) request(path, token string, asCookie bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		if asCookie {
			req.AddCookie(&http.Cookie{Name: constants.TokenCookieName, Value: token})
		} else {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

func (suite *AuthMiddlewareTestSuite) TestMissingTokenRejected() {
	w := suite.request("/protected", "", false)
	suite.Equal(http.StatusUnauthorized, w.Code)
}

func (suite *AuthMiddlewareTestSuite) TestBearerTokenAccepted() {
	token, err := auth.GenerateToken(testSecret, suite.user.ID)
	suite.Require().NoError(err)

	w := suite.request("/protected", token, false)
	suite.Equal(http.StatusOK, w.Code)
	suite.Contains(w.Body.String(), "member@example.com")
}

func (suite *AuthMiddlewareTestSuite) TestCookieTokenAccepted() {
	token, err := auth.GenerateToken(testSecret, suite.user.ID)
	suite.Require().NoError(err)

	w := suite.request("/protected", token, true)
	suite.Equal(http.StatusOK, w.Code)
}

func (suite *AuthMiddlewareTestSuite) TestTamperedTokenRejected() {
	token, err := auth.GenerateToken("some-other-secret", suite.user.ID)
	suite.Require().NoError(err)

	w := suite.request("/protected", token, false)
	suite.Equal(http.StatusUnauthorized, w.Code)
}

func (suite *AuthMiddlewareTestSuite) TestExpiredTokenRejected() {
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id": suite.user.ID.String(),
		"iat":     jwt.NewNumericDate(now.Add(-2 * time.Hour)),
		"exp":     jwt.NewNumericDate(now.Add(-time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	suite.Require().NoError(err)

	w := suite.request("/protected", token, false)
	suite.Equal(http.StatusUnauthorized, w.Code)
	suite.Contains(w.Body.String(), "Token expired")
}

func (suite *AuthMiddlewareTestSuite) TestDeletedUserRejected() {
	ghost := uuid.New()
	token, err := auth.GenerateToken(testSecret, ghost)
	suite.Require().NoError(err)

	w := suite.request("/protected", token, false)
	suite.Equal(http.StatusUnauthorized, w.Code)
}

func (suite *AuthMiddlewareTestSuite) TestAdminRouteRejectsMember() {
	token, err := auth.GenerateToken(testSecret, suite.user.ID)
	suite.Require().NoError(err)

	w := suite.request("/admin", token, false)
	suite.Equal(http.StatusForbidden, w.Code)
}

func (suite *AuthMiddlewareTestSuite) TestAdminRouteAcceptsAdmin() {
	token, err := auth.GenerateToken(testSecret, suite.admin.ID)
	suite.Require().NoError(err)

	w := suite.request("/admin", token, false)
	suite.Equal(http.StatusOK, w.Code)
}

// TestRoleReadFreshPerRequest verifies a demotion takes effect without
// waiting for the token to expire.
func (suite *AuthMiddlewareTestSuite) TestRoleReadFreshPerRequest() {
	token, err := auth.GenerateToken(testSecret, suite.admin.ID)
	suite.Require().NoError(err)

	w := suite.request("/admin", token, false)
	suite.Equal(http.StatusOK, w.Code)

	suite.Require().NoError(suite.db.Model(&models.User{}).
		Where("id = ?", suite.admin.ID).Update("role", models.RoleMember).Error)

	w = suite.request("/admin", token, false)
	suite.Equal(http.StatusForbidden, w.Code)
}

// TestAuthMiddlewareTestSuite runs the test suite
func TestAuthMiddlewareTestSuite(t *testing.T) {
	suite.Run(t, new(AuthMiddlewareTestSuite))
}
