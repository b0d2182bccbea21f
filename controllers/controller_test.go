package controllers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/quillhub/quillhub/middleware"
	"github.com/quillhub/quillhub/models"
	"github.com/quillhub/quillhub/services"
	"github.com/quillhub/quillhub/tasks"
	"github.com/quillhub/quillhub/utils"
)

type envelope struct {
	Code     int             `json:"code"`
	Message  string          `json:"message"`
	Redirect string          `json:"redirect"`
	Data     json.RawMessage `json:"data"`
}

var testDBCounter int

func setupApp(t *testing.T) (*gorm.DB, *gin.Engine) {
	t.Helper()
	t.Setenv("JWT_SECRET", "test-secret")
	gin.SetMode(gin.TestMode)

	testDBCounter++
	dsn := fmt.Sprintf("file:ctrl_%d?mode=memory&cache=shared", testDBCounter)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Profile{}, &models.Post{}, &models.Tag{}, &models.Comment{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	feed := services.NewFeed(db, utils.NewCacheStore(nil), time.Minute)
	queue := &tasks.Client{}

	authC := NewAuthController(db, queue)
	profileC := NewProfileController(db)
	postC := NewPostController(db, feed, queue)
	commentC := NewCommentController(db)
	rankC := NewRankingsController(feed)

	r := gin.New()
	r.GET("/", middleware.OptionalAuth(), postC.List)

	accounts := r.Group("/accounts")
	accounts.POST("/register", middleware.OptionalAuth(), authC.Register)
	accounts.GET("/activate/:uid/:token", authC.Activate)
	accounts.POST("/login", middleware.OptionalAuth(), authC.Login)
	accounts.POST("/logout", middleware.AuthRequired(), authC.Logout)
	accounts.POST("/password_change", middleware.AuthRequired(), authC.PasswordChange)
	accounts.POST("/password_reset", authC.PasswordReset)
	accounts.POST("/password_reset/:uid/:token", authC.PasswordResetConfirm)
	accounts.GET("/profile", middleware.AuthRequired(), profileC.Show)
	accounts.POST("/profile", middleware.AuthRequired(), profileC.Update)

	post := r.Group("/post", middleware.AuthRequired())
	post.POST("/new", postC.Create)
	post.GET("/:slug", postC.Detail)
	post.POST("/:slug/edit", postC.Edit)
	post.POST("/:slug/delete", postC.Delete)
	post.POST("/:slug/comment", commentC.Add)

	comment := r.Group("/comment", middleware.AuthRequired())
	comment.POST("/:id/edit", commentC.Edit)
	comment.POST("/:id/delete", commentC.Delete)

	r.GET("/rankings/most-viewed", rankC.MostViewed)
	r.GET("/rankings/most-commented", rankC.MostCommented)

	return db, r
}

func doJSON(t *testing.T, r *gin.Engine, method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("%s %s: bad response body %q", method, path, w.Body.String())
	}
	return w, env
}

func loginAs(t *testing.T, r *gin.Engine, username, password string) string {
	t.Helper()
	w, env := doJSON(t, r, http.MethodPost, "/accounts/login", "", gin.H{
		"username": username,
		"password": password,
	})
	if w.Code != http.StatusOK || env.Code != 0 {
		t.Fatalf("login %s failed: status %d, %+v", username, w.Code, env)
	}
	var data struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil || data.Token == "" {
		t.Fatalf("login %s: no token in %s", username, env.Data)
	}
	return data.Token
}

func activateUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	var user models.User
	if err := db.Where("username = ?", username).First(&user).Error; err != nil {
		t.Fatalf("user %s not found: %v", username, err)
	}
	if err := db.Model(&user).Update("is_active", true).Error; err != nil {
		t.Fatalf("activate %s: %v", username, err)
	}
	return &user
}

func registerUser(t *testing.T, r *gin.Engine, username string) {
	t.Helper()
	w, env := doJSON(t, r, http.MethodPost, "/accounts/register", "", gin.H{
		"username":         username,
		"email":            username + "@example.com",
		"password":         "password123",
		"confirm_password": "password123",
	})
	if w.Code != http.StatusOK || env.Code != 0 {
		t.Fatalf("register %s failed: status %d, %+v", username, w.Code, env)
	}
}

func TestRegistrationAndActivationFlow(t *testing.T) {
	db, r := setupApp(t)
	registerUser(t, r, "alice")

	var user models.User
	if err := db.Where("username = ?", "alice").First(&user).Error; err != nil {
		t.Fatalf("user not created: %v", err)
	}
	if user.IsActive {
		t.Fatal("freshly registered account is active")
	}

	// Inactive accounts cannot log in.
	w, env := doJSON(t, r, http.MethodPost, "/accounts/login", "", gin.H{
		"username": "alice",
		"password": "password123",
	})
	if w.Code != http.StatusOK || env.Code == 0 {
		t.Fatalf("inactive login: status %d, %+v", w.Code, env)
	}

	token, err := utils.GenerateAccountToken(user.ID, utils.TokenPurposeActivate, time.Hour)
	if err != nil {
		t.Fatalf("mint activation token: %v", err)
	}
	w, env = doJSON(t, r, http.MethodGet, fmt.Sprintf("/accounts/activate/%d/%s", user.ID, token), "", nil)
	if w.Code != http.StatusOK || env.Code != 0 {
		t.Fatalf("activation failed: status %d, %+v", w.Code, env)
	}

	// The link only works once.
	_, env = doJSON(t, r, http.MethodGet, fmt.Sprintf("/accounts/activate/%d/%s", user.ID, token), "", nil)
	if env.Code == 0 {
		t.Fatal("second activation accepted")
	}

	if loginAs(t, r, "alice", "password123") == "" {
		t.Fatal("login after activation failed")
	}
}

func TestDuplicateUsernameRejected(t *testing.T) {
	_, r := setupApp(t)
	registerUser(t, r, "alice")

	w, env := doJSON(t, r, http.MethodPost, "/accounts/register", "", gin.H{
		"username":         "alice",
		"email":            "other@example.com",
		"password":         "password123",
		"confirm_password": "password123",
	})
	if w.Code != http.StatusBadRequest || env.Code == 0 {
		t.Fatalf("duplicate register: status %d, %+v", w.Code, env)
	}
}

func TestPostLifecycle(t *testing.T) {
	db, r := setupApp(t)
	registerUser(t, r, "alice")
	activateUser(t, db, "alice")
	token := loginAs(t, r, "alice", "password123")

	w, env := doJSON(t, r, http.MethodPost, "/post/new", token, gin.H{
		"title":   "My First Post",
		"content": "Hello from the blog.",
		"tags":    "go, web",
	})
	if w.Code != http.StatusOK || env.Code != 0 {
		t.Fatalf("create: status %d, %+v", w.Code, env)
	}
	var created struct {
		Slug string `json:"slug"`
	}
	if err := json.Unmarshal(env.Data, &created); err != nil || created.Slug != "my-first-post" {
		t.Fatalf("slug = %q from %s", created.Slug, env.Data)
	}

	// The fresh post shows up on the listing right away.
	_, env = doJSON(t, r, http.MethodGet, "/", "", nil)
	var listing struct {
		Items []struct {
			Title string `json:"title"`
		} `json:"items"`
		Total int `json:"total"`
	}
	if err := json.Unmarshal(env.Data, &listing); err != nil {
		t.Fatalf("listing: %v from %s", err, env.Data)
	}
	if listing.Total != 1 || listing.Items[0].Title != "My First Post" {
		t.Fatalf("listing = %+v", listing)
	}

	// Each detail view bumps the counter.
	for want := 1; want <= 2; want++ {
		_, env = doJSON(t, r, http.MethodGet, "/post/my-first-post", token, nil)
		if env.Code != 0 {
			t.Fatalf("detail: %+v", env)
		}
		var detail struct {
			Post struct {
				Views int `json:"views"`
			} `json:"post"`
		}
		if err := json.Unmarshal(env.Data, &detail); err != nil {
			t.Fatalf("detail: %v", err)
		}
		if detail.Post.Views != want {
			t.Fatalf("views = %d, want %d", detail.Post.Views, want)
		}
	}

	// Anonymous readers are sent to log in.
	w, env = doJSON(t, r, http.MethodGet, "/post/my-first-post", "", nil)
	if w.Code != http.StatusUnauthorized || env.Redirect == "" {
		t.Fatalf("anonymous detail: status %d, %+v", w.Code, env)
	}

	w, env = doJSON(t, r, http.MethodPost, "/post/my-first-post/edit", token, gin.H{
		"title":   "My Edited Post",
		"content": "Hello again from the blog.",
		"tags":    "go",
	})
	if w.Code != http.StatusOK || env.Code != 0 {
		t.Fatalf("edit: status %d, %+v", w.Code, env)
	}
	var post models.Post
	if err := db.Where("slug = ?", "my-first-post").First(&post).Error; err != nil {
		t.Fatalf("slug changed on edit: %v", err)
	}
	if post.Title != "My Edited Post" {
		t.Fatalf("title = %q after edit", post.Title)
	}

	w, env = doJSON(t, r, http.MethodPost, "/post/my-first-post/delete", token, nil)
	if w.Code != http.StatusOK || env.Code != 0 {
		t.Fatalf("delete: status %d, %+v", w.Code, env)
	}
	_, env = doJSON(t, r, http.MethodGet, "/", "", nil)
	if err := json.Unmarshal(env.Data, &listing); err != nil {
		t.Fatalf("listing after delete: %v", err)
	}
	if listing.Total != 0 {
		t.Fatalf("listing total = %d after delete", listing.Total)
	}
}

func TestOwnershipGuard(t *testing.T) {
	db, r := setupApp(t)
	registerUser(t, r, "alice")
	activateUser(t, db, "alice")
	registerUser(t, r, "bob")
	activateUser(t, db, "bob")

	aliceToken := loginAs(t, r, "alice", "password123")
	bobToken := loginAs(t, r, "bob", "password123")

	_, env := doJSON(t, r, http.MethodPost, "/post/new", aliceToken, gin.H{
		"title":   "Alice Post",
		"content": "Written by alice.",
	})
	if env.Code != 0 {
		t.Fatalf("create: %+v", env)
	}

	// Another user is turned away with a redirect, not a 403.
	w, env := doJSON(t, r, http.MethodPost, "/post/alice-post/delete", bobToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("denial status = %d, want 200", w.Code)
	}
	if env.Code == 0 || env.Redirect != "/" {
		t.Fatalf("denial = %+v", env)
	}
	var count int64
	db.Model(&models.Post{}).Count(&count)
	if count != 1 {
		t.Fatal("post deleted by non-author")
	}

	// A superuser may delete anyone's post.
	if err := db.Model(&models.User{}).Where("username = ?", "bob").
		Update("is_superuser", true).Error; err != nil {
		t.Fatalf("promote bob: %v", err)
	}
	w, env = doJSON(t, r, http.MethodPost, "/post/alice-post/delete", bobToken, nil)
	if w.Code != http.StatusOK || env.Code != 0 {
		t.Fatalf("superuser delete: status %d, %+v", w.Code, env)
	}
}

func TestCommentFlow(t *testing.T) {
	db, r := setupApp(t)
	registerUser(t, r, "alice")
	activateUser(t, db, "alice")
	registerUser(t, r, "bob")
	activateUser(t, db, "bob")

	aliceToken := loginAs(t, r, "alice", "password123")
	bobToken := loginAs(t, r, "bob", "password123")

	_, env := doJSON(t, r, http.MethodPost, "/post/new", aliceToken, gin.H{
		"title":   "Commented Post",
		"content": "A post with comments.",
	})
	if env.Code != 0 {
		t.Fatalf("create post: %+v", env)
	}

	w, env := doJSON(t, r, http.MethodPost, "/post/commented-post/comment", bobToken, gin.H{
		"content": "First comment!",
	})
	if w.Code != http.StatusOK || env.Code != 0 {
		t.Fatalf("add comment: status %d, %+v", w.Code, env)
	}
	var added struct {
		ID uint `json:"id"`
	}
	if err := json.Unmarshal(env.Data, &added); err != nil || added.ID == 0 {
		t.Fatalf("comment id from %s", env.Data)
	}

	// Alice owns the post but not bob's comment, so she cannot edit it.
	w, env = doJSON(t, r, http.MethodPost, fmt.Sprintf("/comment/%d/edit", added.ID), aliceToken, gin.H{
		"content": "hijacked",
	})
	if w.Code != http.StatusOK || env.Code == 0 || env.Redirect != "/post/commented-post" {
		t.Fatalf("comment guard: status %d, %+v", w.Code, env)
	}

	w, env = doJSON(t, r, http.MethodPost, fmt.Sprintf("/comment/%d/edit", added.ID), bobToken, gin.H{
		"content": "Edited comment!",
	})
	if w.Code != http.StatusOK || env.Code != 0 {
		t.Fatalf("comment edit: status %d, %+v", w.Code, env)
	}

	w, env = doJSON(t, r, http.MethodPost, fmt.Sprintf("/comment/%d/delete", added.ID), bobToken, nil)
	if w.Code != http.StatusOK || env.Code != 0 {
		t.Fatalf("comment delete: status %d, %+v", w.Code, env)
	}
	var count int64
	db.Model(&models.Comment{}).Count(&count)
	if count != 0 {
		t.Fatalf("comment count = %d after delete", count)
	}
}

func TestPasswordChangeAndLogout(t *testing.T) {
	db, r := setupApp(t)
	registerUser(t, r, "alice")
	activateUser(t, db, "alice")
	token := loginAs(t, r, "alice", "password123")

	w, env := doJSON(t, r, http.MethodPost, "/accounts/password_change", token, gin.H{
		"old_password":     "wrong-password",
		"password":         "newpassword123",
		"confirm_password": "newpassword123",
	})
	if w.Code != http.StatusBadRequest || env.Code == 0 {
		t.Fatalf("wrong old password: status %d, %+v", w.Code, env)
	}

	w, env = doJSON(t, r, http.MethodPost, "/accounts/password_change", token, gin.H{
		"old_password":     "password123",
		"password":         "newpassword123",
		"confirm_password": "newpassword123",
	})
	if w.Code != http.StatusOK || env.Code != 0 {
		t.Fatalf("password change: status %d, %+v", w.Code, env)
	}
	newToken := loginAs(t, r, "alice", "newpassword123")

	w, env = doJSON(t, r, http.MethodPost, "/accounts/logout", newToken, nil)
	if w.Code != http.StatusOK || env.Code != 0 {
		t.Fatalf("logout: status %d, %+v", w.Code, env)
	}
	// The revoked token no longer authenticates.
	w, _ = doJSON(t, r, http.MethodGet, "/accounts/profile", newToken, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("revoked token status = %d, want 401", w.Code)
	}
}

func TestPasswordResetFlow(t *testing.T) {
	db, r := setupApp(t)
	registerUser(t, r, "alice")
	user := activateUser(t, db, "alice")

	// Unknown addresses get the same answer as known ones.
	w, env := doJSON(t, r, http.MethodPost, "/accounts/password_reset", "", gin.H{
		"email": "nobody@example.com",
	})
	if w.Code != http.StatusOK || env.Code != 0 {
		t.Fatalf("unknown email: status %d, %+v", w.Code, env)
	}

	token, err := utils.GenerateAccountToken(user.ID, utils.TokenPurposePasswordReset, time.Hour)
	if err != nil {
		t.Fatalf("mint reset token: %v", err)
	}
	w, env = doJSON(t, r, http.MethodPost,
		fmt.Sprintf("/accounts/password_reset/%d/%s", user.ID, token), "", gin.H{
			"password":         "resetpassword1",
			"confirm_password": "resetpassword1",
		})
	if w.Code != http.StatusOK || env.Code != 0 {
		t.Fatalf("reset confirm: status %d, %+v", w.Code, env)
	}
	loginAs(t, r, "alice", "resetpassword1")

	// An activation token must not pass as a reset token.
	wrong, err := utils.GenerateAccountToken(user.ID, utils.TokenPurposeActivate, time.Hour)
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	_, env = doJSON(t, r, http.MethodPost,
		fmt.Sprintf("/accounts/password_reset/%d/%s", user.ID, wrong), "", gin.H{
			"password":         "resetpassword2",
			"confirm_password": "resetpassword2",
		})
	if env.Code == 0 {
		t.Fatal("activation token accepted for reset")
	}
}

func TestProfileUpdate(t *testing.T) {
	db, r := setupApp(t)
	registerUser(t, r, "alice")
	activateUser(t, db, "alice")
	token := loginAs(t, r, "alice", "password123")

	req := httptest.NewRequest(http.MethodPost, "/accounts/profile",
		bytes.NewBufferString("bio=Gopher+and+writer"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("update status = %d", w.Code)
	}

	_, env := doJSON(t, r, http.MethodGet, "/accounts/profile", token, nil)
	if env.Code != 0 {
		t.Fatalf("show: %+v", env)
	}
	var profile struct {
		Bio    string `json:"bio"`
		Avatar string `json:"avatar"`
	}
	if err := json.Unmarshal(env.Data, &profile); err != nil {
		t.Fatalf("profile: %v", err)
	}
	if profile.Bio != "Gopher and writer" {
		t.Fatalf("bio = %q", profile.Bio)
	}
	if profile.Avatar != models.DefaultAvatar {
		t.Fatalf("avatar = %q, want default", profile.Avatar)
	}
}

func TestRankings(t *testing.T) {
	db, r := setupApp(t)
	registerUser(t, r, "alice")
	user := activateUser(t, db, "alice")
	token := loginAs(t, r, "alice", "password123")

	for i := 1; i <= 3; i++ {
		_, env := doJSON(t, r, http.MethodPost, "/post/new", token, gin.H{
			"title":   fmt.Sprintf("Ranked Post %d", i),
			"content": "content for the ranking",
		})
		if env.Code != 0 {
			t.Fatalf("create %d: %+v", i, env)
		}
	}
	var posts []models.Post
	if err := db.Order("id ASC").Find(&posts).Error; err != nil {
		t.Fatalf("load posts: %v", err)
	}
	db.Model(&posts[1]).UpdateColumn("views", 100)
	comment := models.Comment{PostID: posts[2].ID, AuthorID: &user.ID, Content: "popular"}
	if err := db.Create(&comment).Error; err != nil {
		t.Fatalf("create comment: %v", err)
	}

	_, env := doJSON(t, r, http.MethodGet, "/rankings/most-viewed", "", nil)
	var ranking struct {
		Items []struct {
			Title string `json:"title"`
		} `json:"items"`
	}
	if err := json.Unmarshal(env.Data, &ranking); err != nil {
		t.Fatalf("most viewed: %v", err)
	}
	if len(ranking.Items) != 3 || ranking.Items[0].Title != "Ranked Post 2" {
		t.Fatalf("most viewed = %+v", ranking)
	}

	_, env = doJSON(t, r, http.MethodGet, "/rankings/most-commented", "", nil)
	if err := json.Unmarshal(env.Data, &ranking); err != nil {
		t.Fatalf("most commented: %v", err)
	}
	if len(ranking.Items) != 3 || ranking.Items[0].Title != "Ranked Post 3" {
		t.Fatalf("most commented = %+v", ranking)
	}
}
