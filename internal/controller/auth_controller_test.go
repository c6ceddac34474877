package controller

import (
	"abyas_backend/internal/middleware"
	"abyas_backend/internal/model"
	"abyas_backend/internal/repository"
	"abyas_backend/internal/service"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newAuthRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	if err := db.AutoMigrate(&model.User{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	ctrl := NewAuthController(service.NewAuthService(repository.NewUserRepository(db), testConfig))
	r := gin.New()
	auth := r.Group("/api/auth")
	auth.POST("/register", ctrl.Register)
	auth.POST("/login", ctrl.Login)
	auth.GET("/profile", middleware.AuthMiddleware(testConfig), ctrl.Profile)
	return r
}

func TestAuthController_RegisterLoginProfile(t *testing.T) {
	r := newAuthRouter(t)
	register := map[string]string{"name": "Cadet Rao", "email": "Rao@Example.com", "password": "parade-ground", "unit": "2 Bn"}

	if w, _ := doJSON(t, r, http.MethodPost, "/api/auth/register", register, ""); w.Code != http.StatusCreated {
		t.Fatalf("register status %d: %s", w.Code, w.Body.String())
	}
	if w, _ := doJSON(t, r, http.MethodPost, "/api/auth/register", register, ""); w.Code != http.StatusConflict {
		t.Fatalf("duplicate register status %d", w.Code)
	}

	w, _ := doJSON(t, r, http.MethodPost, "/api/auth/login",
		map[string]string{"email": "rao@example.com", "password": "wrong-password"}, "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("bad login status %d", w.Code)
	}

	w, env := doJSON(t, r, http.MethodPost, "/api/auth/login",
		map[string]string{"email": "rao@example.com", "password": "parade-ground"}, "")
	if w.Code != http.StatusOK {
		t.Fatalf("login status %d: %s", w.Code, w.Body.String())
	}
	var login struct {
		Token string     `json:"token"`
		User  model.User `json:"user"`
	}
	if err := json.Unmarshal(env.Data, &login); err != nil {
		t.Fatalf("decode login: %v", err)
	}
	if login.Token == "" || login.User.Role != model.Cadet {
		t.Fatalf("unexpected login payload: %+v", login)
	}

	w, env = doJSON(t, r, http.MethodGet, "/api/auth/profile", nil, login.Token)
	if w.Code != http.StatusOK {
		t.Fatalf("profile status %d", w.Code)
	}
	var profile model.User
	json.Unmarshal(env.Data, &profile)
	if profile.Email != "rao@example.com" || profile.Unit != "2 Bn" {
		t.Fatalf("unexpected profile: %+v", profile)
	}
}

func TestAuthController_ProfileRequiresToken(t *testing.T) {
	r := newAuthRouter(t)

	if w, _ := doJSON(t, r, http.MethodGet, "/api/auth/profile", nil, ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("status %d", w.Code)
	}
	if w, _ := doJSON(t, r, http.MethodGet, "/api/auth/profile", nil, "not-a-jwt"); w.Code != http.StatusUnauthorized {
		t.Fatalf("status %d", w.Code)
	}
}

func TestAuthController_RegisterValidation(t *testing.T) {
	r := newAuthRouter(t)
	w, _ := doJSON(t, r, http.MethodPost, "/api/auth/register",
		map[string]string{"name": "x", "email": "not-an-email", "password": "short"}, "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status %d", w.Code)
	}
}
