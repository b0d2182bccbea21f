package models

import (
	"fmt"
	"time"

	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

// Post represents a blog post created by a user.
//
// The slug is derived from the title on first save and never recomputed, so a
// later title edit leaves the slug (and every URL pointing at the post)
// untouched.
type Post struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Title     string    `gorm:"size:100;index;not null" json:"title"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	Slug      string    `gorm:"size:120;uniqueIndex;not null" json:"slug"`
	AuthorID  *uint     `gorm:"index" json:"author_id"`
	Views     int       `gorm:"default:0" json:"views"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Author    *User     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"author,omitempty"`
	Tags      []Tag     `gorm:"many2many:post_tags;" json:"tags"`
	Comments  []Comment `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"comments,omitempty"`

	// CommentCount is populated by the most-commented aggregation only.
	CommentCount int64 `gorm:"->;-:migration" json:"comment_count,omitempty"`
}

// BeforeCreate assigns the slug on first save. Collisions are resolved by
// probing -1, -2, ... for the smallest unused suffix.
func (p *Post) BeforeCreate(tx *gorm.DB) error {
	if p.Slug != "" {
		return nil
	}
	base := slug.Make(p.Title)
	if base == "" {
		base = "post"
	}
	candidate := base
	for n := 1; ; n++ {
		var count int64
		if err := tx.Model(&Post{}).Where("slug = ?", candidate).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			break
		}
		candidate = fmt.Sprintf("%s-%d", base, n)
	}
	p.Slug = candidate
	return nil
}

// BeforeDelete removes the comments and tag links of a post so that deleting
// a post behaves the same regardless of whether the database enforces
// foreign keys.
func (p *Post) BeforeDelete(tx *gorm.DB) error {
	if err := tx.Where("post_id = ?", p.ID).Delete(&Comment{}).Error; err != nil {
		return err
	}
	return tx.Model(p).Association("Tags").Clear()
}
