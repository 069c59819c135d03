package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skyposts/skyposts/models"
	"github.com/skyposts/skyposts/store"
	"github.com/skyposts/skyposts/store/storetest"
)

func newCommentsStore() *store.Comments {
	db := storetest.New(storetest.CommentsTable("comments"))
	return store.NewComments(db, "comments")
}

func testComment(id, postID, owner, content string) models.Comment {
	return models.Comment{
		CommentID: id,
		PostID:    postID,
		UserID:    owner,
		UserName:  "Ana",
		Content:   content,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
}

func TestCommentsUpdateByOwner(t *testing.T) {
	comments := newCommentsStore()
	ctx := context.Background()

	require.NoError(t, comments.Create(ctx, testComment("c1", "p1", "u1", "first")))

	now := time.Now().UTC().Truncate(time.Second)
	got, err := comments.Update(ctx, "u1", "c1", "edited", now)
	require.NoError(t, err)
	assert.Equal(t, "edited", got.Content)
	assert.Equal(t, "u1", got.UserID)
	require.NotNil(t, got.UpdatedAt)
	assert.Equal(t, now, got.UpdatedAt.UTC())
}

func TestCommentsUpdateByStrangerLeavesContentUntouched(t *testing.T) {
	comments := newCommentsStore()
	ctx := context.Background()

	require.NoError(t, comments.Create(ctx, testComment("c1", "p1", "u1", "first")))

	_, err := comments.Update(ctx, "u2", "c1", "hijacked", time.Now().UTC())
	assert.ErrorIs(t, err, store.ErrForbidden)

	stored, err := comments.ListByPost(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "first", stored[0].Content)
	assert.Nil(t, stored[0].UpdatedAt)
}

func TestCommentsUpdateMissing(t *testing.T) {
	comments := newCommentsStore()

	// An absent record fails the same owner condition; the store cannot
	// tell the two causes apart.
	_, err := comments.Update(context.Background(), "u1", "nope", "x", time.Now().UTC())
	assert.ErrorIs(t, err, store.ErrForbidden)
}

func TestCommentsDelete(t *testing.T) {
	comments := newCommentsStore()
	ctx := context.Background()

	require.NoError(t, comments.Create(ctx, testComment("c1", "p1", "u1", "bye")))

	assert.ErrorIs(t, comments.Delete(ctx, "u2", "c1"), store.ErrForbidden)

	left, err := comments.ListByPost(ctx, "p1")
	require.NoError(t, err)
	assert.Len(t, left, 1)

	require.NoError(t, comments.Delete(ctx, "u1", "c1"))

	left, err = comments.ListByPost(ctx, "p1")
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestCommentsScopedLists(t *testing.T) {
	comments := newCommentsStore()
	ctx := context.Background()

	require.NoError(t, comments.Create(ctx, testComment("c1", "p1", "u1", "a")))
	require.NoError(t, comments.Create(ctx, testComment("c2", "p1", "u2", "b")))
	require.NoError(t, comments.Create(ctx, testComment("c3", "p2", "u1", "c")))

	byPost, err := comments.ListByPost(ctx, "p1")
	require.NoError(t, err)
	assert.Len(t, byPost, 2)

	byOwner, err := comments.ListByOwner(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, byOwner, 2)
	for _, c := range byOwner {
		assert.Equal(t, "u1", c.UserID)
	}
}

func TestCommentsListPagination(t *testing.T) {
	comments := newCommentsStore()
	ctx := context.Background()

	require.NoError(t, comments.Create(ctx, testComment("c1", "p1", "u1", "a")))
	require.NoError(t, comments.Create(ctx, testComment("c2", "p1", "u1", "b")))
	require.NoError(t, comments.Create(ctx, testComment("c3", "p1", "u1", "c")))

	first, next, err := comments.List(ctx, 2, "")
	require.NoError(t, err)
	assert.Len(t, first, 2)
	require.NotEmpty(t, next)

	rest, last, err := comments.List(ctx, 2, next)
	require.NoError(t, err)
	assert.Len(t, rest, 1)
	assert.Empty(t, last)
}
