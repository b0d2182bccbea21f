package models

import (
	"strings"

	"gorm.io/gorm"
)

// Tag is a free-form label attached to posts through the post_tags join
// table. Tags are unordered and shared across posts.
type Tag struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"size:64;uniqueIndex;not null" json:"name"`
}

// ParseTagList splits a comma separated tag string into trimmed, de-duplicated
// labels. Empty items are dropped; the original casing is preserved.
func ParseTagList(raw string) []string {
	seen := map[string]bool{}
	var names []string
	for _, part := range strings.Split(raw, ",") {
		name := strings.TrimSpace(part)
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if seen[key] {
			continue
		}
		seen[key] = true
		names = append(names, name)
	}
	return names
}

// EnsureTags returns the Tag rows for the given names, creating missing ones.
func EnsureTags(db *gorm.DB, names []string) ([]Tag, error) {
	tags := make([]Tag, 0, len(names))
	for _, name := range names {
		var tag Tag
		if err := db.Where("name = ?", name).First(&tag).Error; err != nil {
			if err != gorm.ErrRecordNotFound {
				return nil, err
			}
			tag = Tag{Name: name}
			if err := db.Create(&tag).Error; err != nil {
				return nil, err
			}
		}
		tags = append(tags, tag)
	}
	return tags, nil
}
