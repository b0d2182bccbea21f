package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/quillhub/quillhub/services"
	"github.com/quillhub/quillhub/utils"
)

// RankingsController exposes the cached most-viewed and most-commented
// post rankings.
type RankingsController struct {
	feed *services.Feed
}

func NewRankingsController(feed *services.Feed) *RankingsController {
	return &RankingsController{feed: feed}
}

// MostViewed returns the top posts by view count.
func (r *RankingsController) MostViewed(ctx *gin.Context) {
	posts, err := r.feed.MostViewed()
	if err != nil {
		utils.Error(ctx, 500, 50040, "failed to load ranking")
		return
	}
	utils.Success(ctx, gin.H{"items": posts})
}

// MostCommented returns the top posts by comment count.
func (r *RankingsController) MostCommented(ctx *gin.Context) {
	posts, err := r.feed.MostCommented()
	if err != nil {
		utils.Error(ctx, 500, 50041, "failed to load ranking")
		return
	}
	utils.Success(ctx, gin.H{"items": posts})
}
