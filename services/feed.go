package services

import (
	"encoding/json"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/quillhub/quillhub/models"
	"github.com/quillhub/quillhub/utils"
)

// Fixed cache keys. The base listing is evicted on every post write; the two
// ranking snapshots only ever expire by TTL, accepting staleness up to that
// bound in exchange for write paths that never touch them.
const (
	KeyPosts         = "posts"
	KeyMostViewed    = "most_viewed_posts"
	KeyMostCommented = "most_commented_posts"
)

const (
	// PageSize is the fixed listing page size.
	PageSize = 5
	// TopN is the length of the ranking snapshots.
	TopN = 5
)

// Feed produces the filtered, paginated views of the post table. Filters are
// applied in memory over the cached base listing, never cached per filter
// combination, so the key space stays fixed at three entries.
type Feed struct {
	db    *gorm.DB
	cache *utils.CacheStore
	ttl   time.Duration
}

// NewFeed creates a Feed over the given database and cache store.
func NewFeed(db *gorm.DB, cache *utils.CacheStore, ttl time.Duration) *Feed {
	return &Feed{db: db, cache: cache, ttl: ttl}
}

// ListParams filter the home listing. The fields are mutually exclusive and
// checked in declaration order: own posts win over tag, tag over free text.
type ListParams struct {
	OwnPosts bool
	Tag      string
	Content  string
	Page     int
}

// PostPage is one page of the listing.
type PostPage struct {
	Posts      []models.Post `json:"items"`
	Page       int           `json:"page"`
	TotalPages int           `json:"total_pages"`
	Total      int           `json:"total"`
}

// List returns one page of posts for the actor and filter parameters.
// Anonymous actors asking for their own posts get an empty result. Ordering
// is always the reverse-chronological base ordering; filters preserve it.
func (f *Feed) List(actor *models.User, params ListParams) (PostPage, error) {
	posts, err := f.baseListing()
	if err != nil {
		return PostPage{}, err
	}

	switch {
	case params.OwnPosts:
		if actor == nil {
			posts = nil
		} else {
			posts = filterOwn(posts, actor.ID)
		}
	case params.Tag != "":
		posts = filterByTag(posts, params.Tag)
	case params.Content != "":
		posts = filterByText(posts, params.Content)
	}

	return paginatePosts(posts, params.Page), nil
}

// MostViewed returns the top posts by view counter, served from the ranking
// cache when fresh.
func (f *Feed) MostViewed() ([]models.Post, error) {
	return f.cachedQuery(KeyMostViewed, func() ([]models.Post, error) {
		var posts []models.Post
		err := f.db.Preload("Author").Preload("Tags").
			Order("views DESC, id ASC").
			Limit(TopN).
			Find(&posts).Error
		return posts, err
	})
}

// MostCommented returns the top posts by comment count, aggregated over the
// comments relation with ties broken by insertion order.
func (f *Feed) MostCommented() ([]models.Post, error) {
	return f.cachedQuery(KeyMostCommented, func() ([]models.Post, error) {
		var posts []models.Post
		err := f.db.Model(&models.Post{}).
			Select("posts.*, COUNT(comments.id) AS comment_count").
			Joins("LEFT JOIN comments ON comments.post_id = posts.id").
			Group("posts.id").
			Order("comment_count DESC, posts.id ASC").
			Limit(TopN).
			Preload("Author").Preload("Tags").
			Find(&posts).Error
		return posts, err
	})
}

// InvalidateListing evicts the base listing snapshot. Called synchronously
// after every post write, before the response goes out, so the next listing
// read observes the change. The ranking snapshots are left to expire.
func (f *Feed) InvalidateListing() {
	f.cache.Evict(KeyPosts)
}

// baseListing returns every post newest-first with author and tags loaded in
// the same pass, through the 60-second snapshot cache.
func (f *Feed) baseListing() ([]models.Post, error) {
	return f.cachedQuery(KeyPosts, func() ([]models.Post, error) {
		var posts []models.Post
		err := f.db.Preload("Author").Preload("Tags").
			Order("created_at DESC, id DESC").
			Find(&posts).Error
		return posts, err
	})
}

func (f *Feed) cachedQuery(key string, query func() ([]models.Post, error)) ([]models.Post, error) {
	b, err := f.cache.GetOrCompute(key, f.ttl, func() ([]byte, error) {
		posts, err := query()
		if err != nil {
			return nil, err
		}
		return json.Marshal(posts)
	})
	if err != nil {
		return nil, err
	}
	var posts []models.Post
	if err := json.Unmarshal(b, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func filterOwn(posts []models.Post, userID uint) []models.Post {
	var out []models.Post
	for _, p := range posts {
		if p.AuthorID != nil && *p.AuthorID == userID {
			out = append(out, p)
		}
	}
	return out
}

func filterByTag(posts []models.Post, tag string) []models.Post {
	needle := strings.ToLower(strings.TrimSpace(tag))
	var out []models.Post
	for _, p := range posts {
		for _, t := range p.Tags {
			if strings.Contains(strings.ToLower(t.Name), needle) {
				out = append(out, p)
				break
			}
		}
	}
	return out
}

func filterByText(posts []models.Post, text string) []models.Post {
	needle := strings.ToLower(strings.TrimSpace(text))
	var out []models.Post
	for _, p := range posts {
		if strings.Contains(strings.ToLower(p.Title), needle) ||
			strings.Contains(strings.ToLower(p.Content), needle) {
			out = append(out, p)
			continue
		}
		for _, t := range p.Tags {
			if strings.Contains(strings.ToLower(t.Name), needle) {
				out = append(out, p)
				break
			}
		}
	}
	return out
}

// paginatePosts slices one page out of the ordered listing. Out-of-range
// page numbers clamp to the nearest valid page instead of failing.
func paginatePosts(posts []models.Post, page int) PostPage {
	total := len(posts)
	totalPages := (total + PageSize - 1) / PageSize
	if totalPages < 1 {
		totalPages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}
	start := (page - 1) * PageSize
	end := start + PageSize
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}
	return PostPage{Posts: posts[start:end], Page: page, TotalPages: totalPages, Total: total}
}

// CommentPage is one page of a post's comment thread.
type CommentPage struct {
	Comments   []models.Comment `json:"items"`
	Page       int              `json:"page"`
	TotalPages int              `json:"total_pages"`
	Total      int              `json:"total"`
}

// PaginateComments pages a comment thread with the listing page size and the
// same clamping rules.
func PaginateComments(comments []models.Comment, page int) CommentPage {
	total := len(comments)
	totalPages := (total + PageSize - 1) / PageSize
	if totalPages < 1 {
		totalPages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}
	start := (page - 1) * PageSize
	end := start + PageSize
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}
	return CommentPage{Comments: comments[start:end], Page: page, TotalPages: totalPages, Total: total}
}
