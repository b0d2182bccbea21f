package controllers

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/quillhub/quillhub/models"
	"github.com/quillhub/quillhub/services"
	"github.com/quillhub/quillhub/utils"
)

// CommentController handles adding, editing and deleting comments.
type CommentController struct {
	db *gorm.DB
}

func NewCommentController(db *gorm.DB) *CommentController {
	return &CommentController{db: db}
}

type commentForm struct {
	Content string `json:"content" binding:"required"`
}

// Add attaches a new comment to the post named by the slug parameter.
func (c *CommentController) Add(ctx *gin.Context) {
	slug := ctx.Param("slug")
	var post models.Post
	if err := c.db.Where("slug = ?", slug).First(&post).Error; err != nil {
		utils.Error(ctx, 404, 40410, "post not found")
		return
	}

	var form commentForm
	if err := ctx.ShouldBindJSON(&form); err != nil || strings.TrimSpace(form.Content) == "" {
		utils.Error(ctx, 400, 40020, "comment content is required")
		return
	}

	userID, _ := contextUserID(ctx)
	comment := models.Comment{
		PostID:   post.ID,
		AuthorID: &userID,
		Content:  utils.Sanitize(form.Content),
	}
	if err := c.db.Create(&comment).Error; err != nil {
		utils.Error(ctx, 500, 50020, "failed to add comment")
		return
	}
	utils.Flash(ctx, "The comment was successfully added!", "/post/"+post.Slug, gin.H{"id": comment.ID})
}

// Edit replaces a comment's content. Only the author or a superuser may do
// it; everyone else is sent back to the post.
func (c *CommentController) Edit(ctx *gin.Context) {
	comment, post, ok := c.loadOwned(ctx, "You can only edit your own comments!")
	if !ok {
		return
	}

	var form commentForm
	if err := ctx.ShouldBindJSON(&form); err != nil || strings.TrimSpace(form.Content) == "" {
		utils.Error(ctx, 400, 40020, "comment content is required")
		return
	}
	if err := c.db.Model(comment).Update("content", utils.Sanitize(form.Content)).Error; err != nil {
		utils.Error(ctx, 500, 50021, "failed to update comment")
		return
	}
	utils.Flash(ctx, "The comment was successfully updated!", "/post/"+post.Slug, nil)
}

// Delete removes a comment under the same ownership rule as Edit.
func (c *CommentController) Delete(ctx *gin.Context) {
	comment, post, ok := c.loadOwned(ctx, "You can only delete your own comments!")
	if !ok {
		return
	}
	if err := c.db.Delete(comment).Error; err != nil {
		utils.Error(ctx, 500, 50022, "failed to delete comment")
		return
	}
	utils.Flash(ctx, "The comment was successfully deleted!", "/post/"+post.Slug, nil)
}

// loadOwned fetches the comment from the id parameter together with its
// parent post and enforces the author-or-superuser rule. Denials land on
// the post's detail page.
func (c *CommentController) loadOwned(ctx *gin.Context, denial string) (*models.Comment, *models.Post, bool) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 32)
	if err != nil {
		utils.Error(ctx, 404, 40420, "comment not found")
		return nil, nil, false
	}
	var comment models.Comment
	if err := c.db.First(&comment, uint(id)).Error; err != nil {
		utils.Error(ctx, 404, 40420, "comment not found")
		return nil, nil, false
	}
	var post models.Post
	if err := c.db.First(&post, comment.PostID).Error; err != nil {
		utils.Error(ctx, 404, 40410, "post not found")
		return nil, nil, false
	}

	actor := currentUser(ctx, c.db)
	if actor == nil {
		utils.LoginRedirect(ctx, 40105)
		return nil, nil, false
	}
	if !services.CanModify(actor, comment.AuthorID) {
		utils.Denied(ctx, 40320, denial, "/post/"+post.Slug)
		return nil, nil, false
	}
	return &comment, &post, true
}
