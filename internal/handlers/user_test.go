package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/suite"
	"github.com/taskflow/taskflow-api/internal/auth"
	"github.com/taskflow/taskflow-api/internal/database"
	"github.com/taskflow/taskflow-api/internal/dto"
	"github.com/taskflow/taskflow-api/internal/middleware"
	"github.com/taskflow/taskflow-api/internal/models"
	"github.com/taskflow/taskflow-api/internal/repository"
	"github.com/taskflow/taskflow-api/internal/services"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// UserHandlerTestSuite defines the test suite for UserHandler
type UserHandlerTestSuite struct {
	suite.Suite
	db          *gorm.DB
	router      *gin.Engine
	admin       *models.User
	member      *models.User
	adminToken  string
	memberToken string
}

// SetupTest runs before each test
func (suite *UserHandlerTestSuite) SetupTest() {
	var err error
	suite.db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	suite.Require().NoError(err)

	err = suite.db.AutoMigrate(
		&models.User{},
		&models.Task{},
		&models.ActivityLog{},
	)
	suite.Require().NoError(err)

	database.SetDB(suite.db)

	userService := services.NewUserService(
		repository.NewUserRepository(suite.db),
		repository.NewTaskRepository(suite.db),
	)
	handler := NewUserHandler(userService)

	gin.SetMode(gin.TestMode)
	suite.router = gin.New()
	users := suite.router.Group("/api/users")
	users.Use(middleware.RequireAuth(testSecret), middleware.RequireAdmin())
	{
		users.GET("", handler.ListUsers)
		users.GET("/:id", handler.GetUser)
		users.PATCH("/:id/role", handler.ChangeRole)
		users.DELETE("/:id", handler.DeleteUser)
	}

	suite.admin = suite.createUser("admin@example.com", models.RoleAdmin)
	suite.member = suite.createUser("member@example.com", models.RoleMember)

	suite.adminToken, err = auth.GenerateToken(testSecret, suite.admin.ID)
	suite.Require().NoError(err)
	suite.memberToken, err = auth.GenerateToken(testSecret, suite.member.ID)
	suite.Require().NoError(err)
}

// TearDownTest runs after each test
func (suite *UserHandlerTestSuite) TearDownTest() {
	sqlDB, err := suite.db.DB()
	suite.Require().NoError(err)
	sqlDB.Close()
}

func (suite *UserHandlerTestSuite) createUser(email string, role models.UserRole) *models.User {
	user := &models.User{
		Email:        email,
		PasswordHash: "hashedpassword",
		FirstName:    "User",
		LastName:     "Admin",
		Role:         role,
	}
	suite.Require().NoError(suite.db.Create(user).Error)
	return user
}

func (suite *UserHandlerTestSuite) do(method, path, token string, payload interface{}) *httptest.ResponseRecorder {
	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		suite.Require().NoError(err)
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

func (suite *UserHandlerTestSuite) TestRoutesRejectMembers() {
	w := suite.do(http.MethodGet, "/api/users", suite.memberToken, nil)
	suite.Equal(http.StatusForbidden, w.Code)
}

func (suite *UserHandlerTestSuite) TestListUsers() {
	w := suite.do(http.MethodGet, "/api/users?role=member", suite.adminToken, nil)
	suite.Require().Equal(http.StatusOK, w.Code)

	var resp dto.UserListResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Require().Len(resp.Users, 1)
	suite.Equal("member@example.com", resp.Users[0].Email)
}

func (suite *UserHandlerTestSuite) TestChangeRole() {
	w := suite.do(http.MethodPatch, "/api/users/"+suite.member.ID.String()+"/role",
		suite.adminToken, gin.H{"role": "admin"})
	suite.Require().Equal(http.StatusOK, w.Code)

	var user dto.UserDTO
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &user))
	suite.Equal(models.RoleAdmin, user.Role)
}

func (suite *UserHandlerTestSuite) TestChangeOwnRoleForbidden() {
	w := suite.do(http.MethodPatch, "/api/users/"+suite.admin.ID.String()+"/role",
		suite.adminToken, gin.H{"role": "member"})
	suite.Equal(http.StatusForbidden, w.Code)
}

func (suite *UserHandlerTestSuite) TestDeleteUserBlockedByAssignedTasks() {
	task := &models.Task{
		Title:       "Still assigned",
		Status:      models.TaskStatusTodo,
		Priority:    models.TaskPriorityMedium,
		AssigneeID:  suite.member.ID,
		CreatedByID: suite.admin.ID,
	}
	suite.Require().NoError(suite.db.Create(task).Error)

	w := suite.do(http.MethodDelete, "/api/users/"+suite.member.ID.String(), suite.adminToken, nil)
	suite.Equal(http.StatusConflict, w.Code)

	suite.Require().NoError(suite.db.Model(&models.Task{}).
		Where("id = ?", task.ID).Update("assignee_id", suite.admin.ID).Error)

	w = suite.do(http.MethodDelete, "/api/users/"+suite.member.ID.String(), suite.adminToken, nil)
	suite.Equal(http.StatusOK, w.Code)
}

// TestUserHandlerTestSuite runs the test suite
func TestUserHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(UserHandlerTestSuite))
}
