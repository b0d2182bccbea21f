package services

import (
	"testing"

	"github.com/quillhub/quillhub/models"
)

func TestCanModify(t *testing.T) {
	authorID := uint(7)
	author := &models.User{ID: authorID}
	other := &models.User{ID: 8}
	admin := &models.User{ID: 9, IsSuperuser: true}

	if CanModify(nil, &authorID) {
		t.Fatal("anonymous actor allowed")
	}
	if !CanModify(author, &authorID) {
		t.Fatal("author denied")
	}
	if CanModify(other, &authorID) {
		t.Fatal("non-author allowed")
	}
	if !CanModify(admin, &authorID) {
		t.Fatal("superuser denied")
	}
	if CanModify(other, nil) {
		t.Fatal("orphaned record modifiable by regular user")
	}
	if !CanModify(admin, nil) {
		t.Fatal("superuser denied on orphaned record")
	}
}
