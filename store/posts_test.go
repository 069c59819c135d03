package store_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skyposts/skyposts/models"
	"github.com/skyposts/skyposts/store"
	"github.com/skyposts/skyposts/store/storetest"
)

func newPostsStore() *store.Posts {
	db := storetest.New(storetest.PostsTable("posts"))
	return store.NewPosts(db, "posts")
}

func testPost(id, owner, title string) models.Post {
	return models.Post{
		PostID:    id,
		UserID:    owner,
		Title:     title,
		Content:   "content of " + title,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
}

func TestPostsCreateAndGet(t *testing.T) {
	posts := newPostsStore()
	ctx := context.Background()

	p := testPost("p1", "u1", "Hi")
	require.NoError(t, posts.Create(ctx, p))

	got, err := posts.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, p.Title, got.Title)
	assert.Equal(t, p.Content, got.Content)
	assert.Equal(t, "u1", got.UserID)

	// Repeated reads without intervening writes return identical content.
	again, err := posts.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, got, again)

	_, err = posts.Get(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestPostsListPagination(t *testing.T) {
	posts := newPostsStore()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, posts.Create(ctx, testPost(fmt.Sprintf("p%d", i), "u1", fmt.Sprintf("post %d", i))))
	}

	// Walk the feed two at a time; every post shows up exactly once.
	seen := map[string]bool{}
	cursor := ""
	for pages := 0; ; pages++ {
		require.Less(t, pages, 10, "pagination did not terminate")
		page, next, err := posts.List(ctx, 2, cursor)
		require.NoError(t, err)
		for _, p := range page {
			assert.False(t, seen[p.PostID], "post %s returned twice", p.PostID)
			seen[p.PostID] = true
		}
		if next == "" {
			break
		}
		cursor = next
	}
	assert.Len(t, seen, 5)
}

func TestPostsListBadCursor(t *testing.T) {
	posts := newPostsStore()

	_, _, err := posts.List(context.Background(), 10, "%%%broken%%%")
	assert.ErrorIs(t, err, store.ErrBadCursor)
}

func TestPostsListByOwner(t *testing.T) {
	posts := newPostsStore()
	ctx := context.Background()

	require.NoError(t, posts.Create(ctx, testPost("p1", "u1", "one")))
	require.NoError(t, posts.Create(ctx, testPost("p2", "u2", "two")))
	require.NoError(t, posts.Create(ctx, testPost("p3", "u1", "three")))

	mine, err := posts.ListByOwner(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, mine, 2)
	for _, p := range mine {
		assert.Equal(t, "u1", p.UserID)
	}

	none, err := posts.ListByOwner(ctx, "u3")
	require.NoError(t, err)
	assert.Empty(t, none)
}
