package services

import "github.com/quillhub/quillhub/models"

// CanModify reports whether the actor may edit or delete an entity owned by
// authorID. Only the author and superusers qualify; an anonymous actor never
// does. Authorless entities (author account deleted) are superuser-only.
func CanModify(actor *models.User, authorID *uint) bool {
	if actor == nil {
		return false
	}
	if actor.IsSuperuser {
		return true
	}
	return authorID != nil && *authorID == actor.ID
}
