package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/skyposts/skyposts/models"
	"github.com/skyposts/skyposts/store"
	"github.com/skyposts/skyposts/utils"
)

// maxCommentLength is a product ceiling, not a technical limit. Counted in
// characters, boundary inclusive.
const maxCommentLength = 500

// CommentController manages comments: public reads, owner-gated writes.
type CommentController struct {
	comments *store.Comments
	users    *store.Users
}

// NewCommentController creates a new CommentController instance.
func NewCommentController(comments *store.Comments, users *store.Users) *CommentController {
	return &CommentController{comments: comments, users: users}
}

// CreateComment adds a comment to a post. The author's display name is
// snapshotted into the record at creation time.
func (c *CommentController) CreateComment(ctx *gin.Context) {
	var req struct {
		PostID  string `json:"postId"`
		Content string `json:"content"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, "invalid request payload")
		return
	}

	postID := strings.TrimSpace(req.PostID)
	if postID == "" || req.Content == "" {
		utils.Error(ctx, http.StatusBadRequest, "missing fields")
		return
	}
	if utf8.RuneCountInString(req.Content) > maxCommentLength {
		utils.Error(ctx, http.StatusBadRequest, "comment too long")
		return
	}

	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := c.users.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			utils.Error(ctx, http.StatusNotFound, "user not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, "failed to create comment")
		return
	}

	comment := models.Comment{
		CommentID: uuid.NewString(),
		PostID:    postID,
		UserID:    userID,
		UserName:  user.Name,
		Content:   req.Content,
		CreatedAt: time.Now().UTC(),
	}
	if err := c.comments.Create(ctx, comment); err != nil {
		utils.Sugar.Errorf("create comment: %v", err)
		utils.Error(ctx, http.StatusInternalServerError, "failed to create comment")
		return
	}

	ctx.JSON(http.StatusCreated, comment)
}

// ListComments returns one store page of all comments.
func (c *CommentController) ListComments(ctx *gin.Context) {
	limit := parseLimit(ctx.Query("limit"))
	cursor := ctx.Query("lastKey")

	comments, next, err := c.comments.List(ctx, limit, cursor)
	if err != nil {
		if errors.Is(err, store.ErrBadCursor) {
			utils.Error(ctx, http.StatusBadRequest, "invalid lastKey")
			return
		}
		utils.Sugar.Errorf("list comments: %v", err)
		utils.Error(ctx, http.StatusInternalServerError, "failed to fetch comments")
		return
	}

	resp := gin.H{"items": comments}
	if next != "" {
		resp["lastKey"] = next
	}
	ctx.JSON(http.StatusOK, resp)
}

// ListByPost returns all comments under a post, public.
func (c *CommentController) ListByPost(ctx *gin.Context) {
	postID := strings.TrimSpace(ctx.Param("postId"))
	if postID == "" {
		utils.Error(ctx, http.StatusBadRequest, "missing post id")
		return
	}

	comments, err := c.comments.ListByPost(ctx, postID)
	if err != nil {
		utils.Sugar.Errorf("list post comments: %v", err)
		utils.Error(ctx, http.StatusInternalServerError, "failed to fetch comments")
		return
	}
	ctx.JSON(http.StatusOK, comments)
}

// ListMine returns the caller's own comments.
func (c *CommentController) ListMine(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, "unauthorized")
		return
	}

	comments, err := c.comments.ListByOwner(ctx, userID)
	if err != nil {
		utils.Sugar.Errorf("list user comments: %v", err)
		utils.Error(ctx, http.StatusInternalServerError, "failed to fetch comments")
		return
	}
	ctx.JSON(http.StatusOK, comments)
}

// UpdateComment rewrites a comment's content. The ownership check rides on
// the store's conditional write, so a concurrent update by someone else
// can never slip between check and write.
func (c *CommentController) UpdateComment(ctx *gin.Context) {
	var req struct {
		CommentID string `json:"commentId"`
		Content   string `json:"content"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, "invalid request payload")
		return
	}

	commentID := strings.TrimSpace(req.CommentID)
	if commentID == "" || req.Content == "" {
		utils.Error(ctx, http.StatusBadRequest, "missing fields")
		return
	}
	if utf8.RuneCountInString(req.Content) > maxCommentLength {
		utils.Error(ctx, http.StatusBadRequest, "comment too long")
		return
	}

	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, "unauthorized")
		return
	}

	comment, err := c.comments.Update(ctx, userID, commentID, req.Content, time.Now().UTC())
	if err != nil {
		if errors.Is(err, store.ErrForbidden) {
			utils.Error(ctx, http.StatusForbidden, "you can only edit your own comment")
			return
		}
		utils.Sugar.Errorf("update comment: %v", err)
		utils.Error(ctx, http.StatusInternalServerError, "failed to update comment")
		return
	}

	ctx.JSON(http.StatusOK, comment)
}

// DeleteComment removes a comment under the same atomic owner condition.
func (c *CommentController) DeleteComment(ctx *gin.Context) {
	var req struct {
		CommentID string `json:"commentId"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, "invalid request payload")
		return
	}

	commentID := strings.TrimSpace(req.CommentID)
	if commentID == "" {
		utils.Error(ctx, http.StatusBadRequest, "missing comment id")
		return
	}

	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := c.comments.Delete(ctx, userID, commentID); err != nil {
		if errors.Is(err, store.ErrForbidden) {
			utils.Error(ctx, http.StatusForbidden, "you can only delete your own comment")
			return
		}
		utils.Sugar.Errorf("delete comment: %v", err)
		utils.Error(ctx, http.StatusInternalServerError, "failed to delete comment")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"success": true})
}
