package models

import (
	"fmt"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testDBCounter int

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	testDBCounter++
	dsn := fmt.Sprintf("file:models_%d?mode=memory&cache=shared", testDBCounter)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&User{}, &Profile{}, &Post{}, &Tag{}, &Comment{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func createTestUser(t *testing.T, db *gorm.DB, username string) *User {
	t.Helper()
	user := &User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "x",
		IsActive:     true,
	}
	if err := CreateUser(db, user); err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return user
}

func TestCreateUserAlsoCreatesProfile(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, "alice")

	var profile Profile
	if err := db.Where("user_id = ?", user.ID).First(&profile).Error; err != nil {
		t.Fatalf("profile not created: %v", err)
	}
	if got := profile.AvatarURL(); got != DefaultAvatar {
		t.Fatalf("avatar = %q, want default %q", got, DefaultAvatar)
	}
}

func TestPostSlugGeneration(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, "alice")

	first := Post{Title: "Test Title", Content: "first content here", AuthorID: &user.ID}
	if err := db.Create(&first).Error; err != nil {
		t.Fatalf("create first: %v", err)
	}
	if first.Slug != "test-title" {
		t.Fatalf("first slug = %q, want %q", first.Slug, "test-title")
	}

	second := Post{Title: "Test Title", Content: "second content here", AuthorID: &user.ID}
	if err := db.Create(&second).Error; err != nil {
		t.Fatalf("create second: %v", err)
	}
	if second.Slug != "test-title-1" {
		t.Fatalf("second slug = %q, want %q", second.Slug, "test-title-1")
	}

	third := Post{Title: "Test Title", Content: "third content here", AuthorID: &user.ID}
	if err := db.Create(&third).Error; err != nil {
		t.Fatalf("create third: %v", err)
	}
	if third.Slug != "test-title-2" {
		t.Fatalf("third slug = %q, want %q", third.Slug, "test-title-2")
	}
}

func TestPostSlugSurvivesTitleEdit(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, "alice")

	post := Post{Title: "Original Title", Content: "some content here", AuthorID: &user.ID}
	if err := db.Create(&post).Error; err != nil {
		t.Fatalf("create: %v", err)
	}
	slug := post.Slug

	if err := db.Model(&post).Update("title", "Changed Title").Error; err != nil {
		t.Fatalf("update: %v", err)
	}
	var reloaded Post
	if err := db.First(&reloaded, post.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Slug != slug {
		t.Fatalf("slug changed from %q to %q on edit", slug, reloaded.Slug)
	}
}

func TestPostDeleteCascades(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, "alice")

	tags, err := EnsureTags(db, []string{"go", "testing"})
	if err != nil {
		t.Fatalf("ensure tags: %v", err)
	}
	post := Post{Title: "Tagged Post", Content: "some content here", AuthorID: &user.ID, Tags: tags}
	if err := db.Create(&post).Error; err != nil {
		t.Fatalf("create post: %v", err)
	}
	comment := Comment{PostID: post.ID, AuthorID: &user.ID, Content: "nice"}
	if err := db.Create(&comment).Error; err != nil {
		t.Fatalf("create comment: %v", err)
	}

	if err := db.Delete(&post).Error; err != nil {
		t.Fatalf("delete post: %v", err)
	}

	var commentCount int64
	db.Model(&Comment{}).Where("post_id = ?", post.ID).Count(&commentCount)
	if commentCount != 0 {
		t.Fatalf("comments left after delete: %d", commentCount)
	}
	var joinCount int64
	db.Table("post_tags").Where("post_id = ?", post.ID).Count(&joinCount)
	if joinCount != 0 {
		t.Fatalf("tag links left after delete: %d", joinCount)
	}
	// Tags themselves survive; other posts may use them.
	var tagCount int64
	db.Model(&Tag{}).Count(&tagCount)
	if tagCount != 2 {
		t.Fatalf("tag count = %d, want 2", tagCount)
	}
}

func TestParseTagList(t *testing.T) {
	got := ParseTagList(" go, Web , go ,, testing ")
	want := []string{"go", "Web", "testing"}
	if len(got) != len(want) {
		t.Fatalf("ParseTagList = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ParseTagList[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
