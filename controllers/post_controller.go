package controllers

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/quillhub/quillhub/config"
	"github.com/quillhub/quillhub/models"
	"github.com/quillhub/quillhub/services"
	"github.com/quillhub/quillhub/tasks"
	"github.com/quillhub/quillhub/utils"
)

// PostController serves the post listing and the post CRUD and share
// operations.
type PostController struct {
	db    *gorm.DB
	feed  *services.Feed
	queue *tasks.Client
}

func NewPostController(db *gorm.DB, feed *services.Feed, queue *tasks.Client) *PostController {
	return &PostController{db: db, feed: feed, queue: queue}
}

type postForm struct {
	Title   string `json:"title" binding:"required,min=3,max=100"`
	Content string `json:"content" binding:"required,min=10"`
	Tags    string `json:"tags"`
}

type shareForm struct {
	EmailTo     string `json:"email_to" binding:"required,email"`
	Description string `json:"description" binding:"required"`
}

// List renders the home page listing. Filters are mutually exclusive:
// own posts first, then tag, then free-text search.
func (p *PostController) List(ctx *gin.Context) {
	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	params := services.ListParams{
		OwnPosts: ctx.Query("user_posts") != "",
		Tag:      strings.TrimSpace(ctx.Query("tag")),
		Content:  strings.TrimSpace(ctx.Query("content")),
		Page:     page,
	}
	actor := currentUser(ctx, p.db)
	result, err := p.feed.List(actor, params)
	if err != nil {
		utils.Error(ctx, 500, 50010, "failed to load posts")
		return
	}
	utils.Success(ctx, result)
}

// Detail shows a single post with its comments, newest first, and counts
// the view.
func (p *PostController) Detail(ctx *gin.Context) {
	slug := ctx.Param("slug")
	var post models.Post
	err := p.db.Preload("Author").Preload("Tags").
		Preload("Comments", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("created_at DESC, id DESC")
		}).
		Preload("Comments.Author").
		Where("slug = ?", slug).First(&post).Error
	if err != nil {
		utils.Error(ctx, 404, 40410, "post not found")
		return
	}

	if err := p.db.Model(&models.Post{}).Where("id = ?", post.ID).
		UpdateColumn("views", gorm.Expr("views + ?", 1)).Error; err == nil {
		post.Views++
	}

	commentPage, _ := strconv.Atoi(ctx.DefaultQuery("c", "1"))
	comments := services.PaginateComments(post.Comments, commentPage)
	post.Comments = nil
	utils.Success(ctx, gin.H{
		"post":     post,
		"comments": comments,
	})
}

// Create stores a new post authored by the current user.
func (p *PostController) Create(ctx *gin.Context) {
	userID, _ := contextUserID(ctx)

	var form postForm
	if err := ctx.ShouldBindJSON(&form); err != nil {
		utils.Error(ctx, 400, 40011, "invalid post data: "+err.Error())
		return
	}
	tagList, err := models.EnsureTags(p.db, models.ParseTagList(form.Tags))
	if err != nil {
		utils.Error(ctx, 500, 50011, "failed to save tags")
		return
	}

	post := models.Post{
		Title:    strings.TrimSpace(form.Title),
		Content:  utils.Sanitize(form.Content),
		AuthorID: &userID,
		Tags:     tagList,
	}
	if err := p.db.Create(&post).Error; err != nil {
		utils.Error(ctx, 500, 50012, "failed to create post")
		return
	}
	p.feed.InvalidateListing()
	utils.Flash(ctx, "The post was successfully created!", "/", gin.H{"slug": post.Slug})
}

// Edit updates a post's title, content and tags. The slug never changes,
// so links to the post keep working.
func (p *PostController) Edit(ctx *gin.Context) {
	post, ok := p.loadOwned(ctx, "You can only edit your own posts!")
	if !ok {
		return
	}

	var form postForm
	if err := ctx.ShouldBindJSON(&form); err != nil {
		utils.Error(ctx, 400, 40011, "invalid post data: "+err.Error())
		return
	}
	tagList, err := models.EnsureTags(p.db, models.ParseTagList(form.Tags))
	if err != nil {
		utils.Error(ctx, 500, 50011, "failed to save tags")
		return
	}

	post.Title = strings.TrimSpace(form.Title)
	post.Content = utils.Sanitize(form.Content)
	if err := p.db.Model(post).Updates(map[string]interface{}{
		"title":   post.Title,
		"content": post.Content,
	}).Error; err != nil {
		utils.Error(ctx, 500, 50013, "failed to update post")
		return
	}
	if err := p.db.Model(post).Association("Tags").Replace(tagList); err != nil {
		utils.Error(ctx, 500, 50011, "failed to save tags")
		return
	}
	p.feed.InvalidateListing()
	utils.Flash(ctx, "The post was successfully updated!", "/post/"+post.Slug, nil)
}

// Delete removes a post and its comments.
func (p *PostController) Delete(ctx *gin.Context) {
	post, ok := p.loadOwned(ctx, "You can only delete your own posts!")
	if !ok {
		return
	}
	if err := p.db.Delete(post).Error; err != nil {
		utils.Error(ctx, 500, 50014, "failed to delete post")
		return
	}
	p.feed.InvalidateListing()
	utils.Flash(ctx, "The post was successfully deleted!", "/", nil)
}

// Share queues an email recommending the post to the given address.
func (p *PostController) Share(ctx *gin.Context) {
	slug := ctx.Param("slug")
	var post models.Post
	if err := p.db.Where("slug = ?", slug).First(&post).Error; err != nil {
		utils.Error(ctx, 404, 40410, "post not found")
		return
	}

	var form shareForm
	if err := ctx.ShouldBindJSON(&form); err != nil {
		utils.Error(ctx, 400, 40012, "invalid share data: "+err.Error())
		return
	}

	sender := currentUser(ctx, p.db)
	if sender == nil {
		utils.LoginRedirect(ctx, 40105)
		return
	}
	payload := tasks.PostShareEmailPayload{
		Slug:        post.Slug,
		Sender:      sender.Username,
		Description: form.Description,
		EmailTo:     form.EmailTo,
		PostURL:     config.Get().BaseURL + "/post/" + post.Slug,
	}
	if err := p.queue.EnqueuePostShareEmail(payload); err != nil {
		utils.Error(ctx, 500, 50015, "failed to share post")
		return
	}
	utils.Flash(ctx, "The post was successfully shared!", "/post/"+post.Slug, nil)
}

// loadOwned fetches the post from the slug parameter and enforces the
// author-or-superuser rule. Denials land back on the home page.
func (p *PostController) loadOwned(ctx *gin.Context, denial string) (*models.Post, bool) {
	slug := ctx.Param("slug")
	var post models.Post
	if err := p.db.Where("slug = ?", slug).First(&post).Error; err != nil {
		utils.Error(ctx, 404, 40410, "post not found")
		return nil, false
	}
	actor := currentUser(ctx, p.db)
	if actor == nil {
		utils.LoginRedirect(ctx, 40105)
		return nil, false
	}
	if !services.CanModify(actor, post.AuthorID) {
		utils.Denied(ctx, 40310, denial, "/")
		return nil, false
	}
	return &post, true
}
