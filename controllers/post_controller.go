package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/skyposts/skyposts/middleware"
	"github.com/skyposts/skyposts/models"
	"github.com/skyposts/skyposts/storage"
	"github.com/skyposts/skyposts/store"
	"github.com/skyposts/skyposts/utils"
)

const (
	defaultPageSize = 20
	maxPageSize     = 50
)

// PostController manages post creation and the public feed.
type PostController struct {
	posts   *store.Posts
	objects storage.Signer
}

// NewPostController creates a new PostController instance.
func NewPostController(posts *store.Posts, objects storage.Signer) *PostController {
	return &PostController{posts: posts, objects: objects}
}

// CreatePost allows authenticated users to create new posts. The owner is
// always the authenticated caller; any identity in the payload is ignored.
func (p *PostController) CreatePost(ctx *gin.Context) {
	var req struct {
		Title    string `json:"title"`
		Content  string `json:"content"`
		ImageURL string `json:"imageUrl"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, "invalid request payload")
		return
	}

	title := strings.TrimSpace(req.Title)
	if title == "" || strings.TrimSpace(req.Content) == "" {
		utils.Error(ctx, http.StatusBadRequest, "missing fields")
		return
	}

	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, "unauthorized")
		return
	}

	post := models.Post{
		PostID:    uuid.NewString(),
		UserID:    userID,
		Title:     title,
		Content:   req.Content,
		ImageURL:  strings.TrimSpace(req.ImageURL),
		CreatedAt: time.Now().UTC(),
	}
	if err := p.posts.Create(ctx, post); err != nil {
		utils.Sugar.Errorf("create post: %v", err)
		utils.Error(ctx, http.StatusInternalServerError, "failed to create post")
		return
	}

	ctx.JSON(http.StatusCreated, post)
}

// ListPosts returns the public feed, one store page at a time. Order is
// store-native; nothing is promised about it.
func (p *PostController) ListPosts(ctx *gin.Context) {
	limit := parseLimit(ctx.Query("limit"))
	cursor := ctx.Query("cursor")

	posts, next, err := p.posts.List(ctx, limit, cursor)
	if err != nil {
		if errors.Is(err, store.ErrBadCursor) {
			utils.Error(ctx, http.StatusBadRequest, "invalid cursor")
			return
		}
		utils.Sugar.Errorf("list posts: %v", err)
		utils.Error(ctx, http.StatusInternalServerError, "failed to fetch posts")
		return
	}

	if err := p.resolveImages(ctx, posts); err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "failed to fetch posts")
		return
	}

	resp := gin.H{"items": posts}
	if next != "" {
		resp["nextCursor"] = next
	}
	ctx.JSON(http.StatusOK, resp)
}

// ListMyPosts returns the caller's own posts via the author index, never a
// full-table scan.
func (p *PostController) ListMyPosts(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, "unauthorized")
		return
	}

	posts, err := p.posts.ListByOwner(ctx, userID)
	if err != nil {
		utils.Sugar.Errorf("list user posts: %v", err)
		utils.Error(ctx, http.StatusInternalServerError, "failed to fetch posts")
		return
	}
	if err := p.resolveImages(ctx, posts); err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "failed to fetch posts")
		return
	}

	ctx.JSON(http.StatusOK, posts)
}

// GetPost returns a single post by id.
func (p *PostController) GetPost(ctx *gin.Context) {
	postID := strings.TrimSpace(ctx.Param("id"))
	if postID == "" {
		utils.Error(ctx, http.StatusBadRequest, "missing post id")
		return
	}

	post, err := p.posts.Get(ctx, postID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			utils.Error(ctx, http.StatusNotFound, "post not found")
			return
		}
		utils.Sugar.Errorf("get post: %v", err)
		utils.Error(ctx, http.StatusInternalServerError, "failed to load post")
		return
	}

	if post.ImageURL != "" {
		url, err := p.objects.DownloadURL(ctx, post.ImageURL)
		if err != nil {
			utils.Error(ctx, http.StatusInternalServerError, "failed to load post")
			return
		}
		post.ImageURL = url
	}

	ctx.JSON(http.StatusOK, post)
}

// UploadURL hands out a presigned PUT URL for a post image. The returned
// imageUrl is the object key the client should submit with the post.
func (p *PostController) UploadURL(ctx *gin.Context) {
	var req struct {
		FileName string `json:"fileName"`
		FileType string `json:"fileType"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, "invalid request payload")
		return
	}

	fileName := strings.TrimSpace(req.FileName)
	fileType := strings.TrimSpace(req.FileType)
	if fileName == "" || fileType == "" {
		utils.Error(ctx, http.StatusBadRequest, "missing fields")
		return
	}

	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, "unauthorized")
		return
	}

	key := fmt.Sprintf("posts/%s/%s-%s", userID, uuid.NewString(), fileName)
	uploadURL, err := p.objects.UploadURL(ctx, key, fileType)
	if err != nil {
		utils.Sugar.Errorf("presign post upload: %v", err)
		utils.Error(ctx, http.StatusInternalServerError, "failed to generate upload url")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"uploadUrl": uploadURL,
		"imageUrl":  key,
	})
}

// resolveImages swaps stored object keys for download URLs in place. The
// stored record is never mutated; resolution happens per read.
func (p *PostController) resolveImages(ctx *gin.Context, posts []models.Post) error {
	for i := range posts {
		if posts[i].ImageURL == "" {
			continue
		}
		url, err := p.objects.DownloadURL(ctx, posts[i].ImageURL)
		if err != nil {
			utils.Sugar.Errorf("presign post image: %v", err)
			return err
		}
		posts[i].ImageURL = url
	}
	return nil
}

func getUserID(ctx *gin.Context) (string, bool) {
	v, exists := ctx.Get(middleware.ContextUserIDKey)
	if !exists {
		return "", false
	}
	id, ok := v.(string)
	return id, ok && id != ""
}

func parseLimit(raw string) int32 {
	if raw == "" {
		return defaultPageSize
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return defaultPageSize
	}
	if n > maxPageSize {
		return maxPageSize
	}
	return int32(n)
}
