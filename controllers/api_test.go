package controllers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skyposts/skyposts/config"
	"github.com/skyposts/skyposts/routes"
	"github.com/skyposts/skyposts/store"
	"github.com/skyposts/skyposts/store/storetest"
	"github.com/skyposts/skyposts/utils"
)

const testSecret = "test-secret"

// fakeSigner returns deterministic URLs so responses can assert that
// object keys were resolved.
type fakeSigner struct{}

func (fakeSigner) UploadURL(_ context.Context, key, _ string) (string, error) {
	return "https://s3.test/upload/" + key, nil
}

func (fakeSigner) DownloadURL(_ context.Context, key string) (string, error) {
	return "https://s3.test/get/" + key, nil
}

func newTestServer() *gin.Engine {
	db := storetest.New(
		storetest.UsersTable("users"),
		storetest.PostsTable("posts"),
		storetest.CommentsTable("comments"),
	)
	return routes.SetupRouter(routes.Deps{
		Config: config.AppConfig{
			GinMode:        "test",
			JWTSecret:      testSecret,
			LogLevel:       "error",
			AllowedOrigins: []string{"*"},
		},
		Users:    store.NewUsers(db, "users"),
		Posts:    store.NewPosts(db, "posts"),
		Comments: store.NewComments(db, "comments"),
		Objects:  fakeSigner{},
	})
}

func doJSON(r *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), "body: %s", w.Body.String())
	return out
}

func registerAndLogin(t *testing.T, r *gin.Engine, name, email string) (userID, token string) {
	t.Helper()

	w := doJSON(r, http.MethodPost, "/auth/register", "", gin.H{
		"name": name, "email": email, "password": "pw123456",
	})
	require.Equal(t, http.StatusCreated, w.Code, "register: %s", w.Body.String())
	userID = decode(t, w)["userId"].(string)

	w = doJSON(r, http.MethodPost, "/auth/login", "", gin.H{
		"email": email, "password": "pw123456",
	})
	require.Equal(t, http.StatusOK, w.Code, "login: %s", w.Body.String())
	token = decode(t, w)["token"].(string)
	return userID, token
}

func TestRegisterValidation(t *testing.T) {
	r := newTestServer()

	for _, body := range []gin.H{
		{"email": "a@x.com", "password": "pw123456"},
		{"name": "Ana", "password": "pw123456"},
		{"name": "Ana", "email": "a@x.com"},
		{"name": "  ", "email": "a@x.com", "password": "pw123456"},
	} {
		w := doJSON(r, http.MethodPost, "/auth/register", "", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, "body %v", body)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	r := newTestServer()

	w := doJSON(r, http.MethodPost, "/auth/register", "", gin.H{"name": "Ana", "email": "a@x.com", "password": "pw123456"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(r, http.MethodPost, "/auth/register", "", gin.H{"name": "Other", "email": "a@x.com", "password": "different"})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestLoginTokenCarriesIdentity(t *testing.T) {
	r := newTestServer()
	userID, token := registerAndLogin(t, r, "Ana", "a@x.com")

	claims, err := utils.ParseToken(testSecret, token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
}

func TestLoginFailures(t *testing.T) {
	r := newTestServer()
	registerAndLogin(t, r, "Ana", "a@x.com")

	w := doJSON(r, http.MethodPost, "/auth/login", "", gin.H{"email": "nobody@x.com", "password": "pw123456"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(r, http.MethodPost, "/auth/login", "", gin.H{"email": "a@x.com", "password": "wrongpass"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(r, http.MethodPost, "/auth/login", "", gin.H{"email": "a@x.com"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMeAndProfileUpdate(t *testing.T) {
	r := newTestServer()
	userID, token := registerAndLogin(t, r, "Ana", "a@x.com")

	w := doJSON(r, http.MethodGet, "/auth/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	me := decode(t, w)
	assert.Equal(t, userID, me["userId"])
	assert.Equal(t, "Ana", me["name"])
	assert.NotContains(t, w.Body.String(), "passwordHash")

	w = doJSON(r, http.MethodGet, "/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Nothing to update.
	w = doJSON(r, http.MethodPut, "/auth/me", token, gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Partial update: name only.
	w = doJSON(r, http.MethodPut, "/auth/me", token, gin.H{"name": "Ana Maria"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Ana Maria", decode(t, w)["name"])

	// Partial update: image only; name must survive, key gets resolved.
	w = doJSON(r, http.MethodPut, "/auth/me", token, gin.H{"profileImage": "profile/x/pic.png"})
	require.Equal(t, http.StatusOK, w.Code)
	updated := decode(t, w)
	assert.Equal(t, "Ana Maria", updated["name"])
	assert.Equal(t, "https://s3.test/get/profile/x/pic.png", updated["profileImageUrl"])
}

func TestProfileUploadURL(t *testing.T) {
	r := newTestServer()
	userID, token := registerAndLogin(t, r, "Ana", "a@x.com")

	w := doJSON(r, http.MethodGet, "/auth/profile/upload-url?ext=jpg", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	out := decode(t, w)
	key := out["key"].(string)
	assert.True(t, strings.HasPrefix(key, "profile/"+userID+"/"), "key %q", key)
	assert.True(t, strings.HasSuffix(key, ".jpg"), "key %q", key)
	assert.Equal(t, "https://s3.test/upload/"+key, out["uploadUrl"])

	w = doJSON(r, http.MethodGet, "/auth/profile/upload-url", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreatePostOwnerComesFromToken(t *testing.T) {
	r := newTestServer()
	userID, token := registerAndLogin(t, r, "Ana", "a@x.com")

	// A spoofed owner in the payload is ignored.
	w := doJSON(r, http.MethodPost, "/posts", token, gin.H{
		"title": "Hi", "content": "World", "userId": "evil",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	created := decode(t, w)
	assert.Equal(t, userID, created["userId"])

	postID := created["postId"].(string)
	w = doJSON(r, http.MethodGet, "/posts/"+postID, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode(t, w)
	assert.Equal(t, "Hi", got["title"])
	assert.Equal(t, "World", got["content"])
	assert.Equal(t, userID, got["userId"])
}

func TestCreatePostValidation(t *testing.T) {
	r := newTestServer()
	_, token := registerAndLogin(t, r, "Ana", "a@x.com")

	w := doJSON(r, http.MethodPost, "/posts", token, gin.H{"title": "", "content": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(r, http.MethodPost, "/posts", token, gin.H{"title": "x", "content": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(r, http.MethodPost, "/posts", "", gin.H{"title": "x", "content": "y"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPostsFeedPaginationAndImages(t *testing.T) {
	r := newTestServer()
	_, token := registerAndLogin(t, r, "Ana", "a@x.com")

	for _, p := range []gin.H{
		{"title": "one", "content": "1"},
		{"title": "two", "content": "2", "imageUrl": "posts/u/img.png"},
		{"title": "three", "content": "3"},
	} {
		w := doJSON(r, http.MethodPost, "/posts", token, p)
		require.Equal(t, http.StatusCreated, w.Code)
	}

	seen := 0
	withImage := 0
	cursor := ""
	for {
		path := "/posts?limit=2"
		if cursor != "" {
			path += "&cursor=" + cursor
		}
		w := doJSON(r, http.MethodGet, path, "", nil)
		require.Equal(t, http.StatusOK, w.Code)
		page := decode(t, w)
		items := page["items"].([]any)
		seen += len(items)
		for _, it := range items {
			post := it.(map[string]any)
			if url, ok := post["imageUrl"]; ok {
				withImage++
				assert.Equal(t, "https://s3.test/get/posts/u/img.png", url)
			}
		}
		next, ok := page["nextCursor"].(string)
		if !ok || next == "" {
			break
		}
		cursor = next
	}
	assert.Equal(t, 3, seen)
	assert.Equal(t, 1, withImage)

	w := doJSON(r, http.MethodGet, "/posts?cursor=@@not-a-cursor@@", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListMyPosts(t *testing.T) {
	r := newTestServer()
	_, tokenA := registerAndLogin(t, r, "Ana", "a@x.com")
	_, tokenB := registerAndLogin(t, r, "Bob", "b@x.com")

	w := doJSON(r, http.MethodPost, "/posts", tokenA, gin.H{"title": "mine", "content": "x"})
	require.Equal(t, http.StatusCreated, w.Code)
	w = doJSON(r, http.MethodPost, "/posts", tokenB, gin.H{"title": "theirs", "content": "y"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(r, http.MethodGet, "/posts/me", tokenA, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var mine []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &mine))
	require.Len(t, mine, 1)
	assert.Equal(t, "mine", mine[0]["title"])

	w = doJSON(r, http.MethodGet, "/posts/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGetPostNotFound(t *testing.T) {
	r := newTestServer()

	w := doJSON(r, http.MethodGet, "/posts/does-not-exist", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPostUploadURL(t *testing.T) {
	r := newTestServer()
	userID, token := registerAndLogin(t, r, "Ana", "a@x.com")

	w := doJSON(r, http.MethodPost, "/posts/upload-url", token, gin.H{"fileName": "cat.png", "fileType": "image/png"})
	require.Equal(t, http.StatusOK, w.Code)
	out := decode(t, w)
	key := out["imageUrl"].(string)
	assert.True(t, strings.HasPrefix(key, "posts/"+userID+"/"), "key %q", key)
	assert.True(t, strings.HasSuffix(key, "-cat.png"), "key %q", key)
	assert.Equal(t, "https://s3.test/upload/"+key, out["uploadUrl"])

	w = doJSON(r, http.MethodPost, "/posts/upload-url", token, gin.H{"fileName": "cat.png"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCommentContentBoundary(t *testing.T) {
	r := newTestServer()
	_, token := registerAndLogin(t, r, "Ana", "a@x.com")

	w := doJSON(r, http.MethodPost, "/comments", token, gin.H{
		"postId": "p1", "content": strings.Repeat("x", 500),
	})
	assert.Equal(t, http.StatusCreated, w.Code, "exactly 500 characters must pass")

	w = doJSON(r, http.MethodPost, "/comments", token, gin.H{
		"postId": "p1", "content": strings.Repeat("x", 501),
	})
	assert.Equal(t, http.StatusBadRequest, w.Code, "501 characters must fail")
}

// TestCommentScenario walks the full flow: register, login, post, comment
// with a name snapshot, a stranger's edit is refused atomically, the owner
// deletes, and the comment disappears from the post listing.
func TestCommentScenario(t *testing.T) {
	r := newTestServer()
	idA, tokenA := registerAndLogin(t, r, "Ana", "a@x.com")
	_, tokenB := registerAndLogin(t, r, "Bob", "b@x.com")

	w := doJSON(r, http.MethodPost, "/posts", tokenA, gin.H{"title": "Hi", "content": "World"})
	require.Equal(t, http.StatusCreated, w.Code)
	post := decode(t, w)
	require.Equal(t, idA, post["userId"])
	postID := post["postId"].(string)

	w = doJSON(r, http.MethodPost, "/comments", tokenA, gin.H{"postId": postID, "content": "Nice!"})
	require.Equal(t, http.StatusCreated, w.Code)
	comment := decode(t, w)
	assert.Equal(t, "Ana", comment["userName"])
	assert.Equal(t, idA, comment["userId"])
	commentID := comment["commentId"].(string)

	// A renamed author keeps the snapshotted name on the old comment.
	w = doJSON(r, http.MethodPut, "/auth/me", tokenA, gin.H{"name": "Anastasia"})
	require.Equal(t, http.StatusOK, w.Code)
	w = doJSON(r, http.MethodGet, "/comments/post/"+postID, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var listed []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, "Ana", listed[0]["userName"])

	// Bob cannot edit or delete Ana's comment.
	w = doJSON(r, http.MethodPut, "/comments", tokenB, gin.H{"commentId": commentID, "content": "mine now"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = doJSON(r, http.MethodDelete, "/comments", tokenB, gin.H{"commentId": commentID})
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Ana edits her own comment.
	w = doJSON(r, http.MethodPut, "/comments", tokenA, gin.H{"commentId": commentID, "content": "Even nicer!"})
	require.Equal(t, http.StatusOK, w.Code)
	edited := decode(t, w)
	assert.Equal(t, "Even nicer!", edited["content"])
	assert.NotEmpty(t, edited["updatedAt"])

	// Ana deletes it; the listing is empty afterwards.
	w = doJSON(r, http.MethodDelete, "/comments", tokenA, gin.H{"commentId": commentID})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["success"])

	w = doJSON(r, http.MethodGet, "/comments/post/"+postID, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	listed = nil
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
	assert.Empty(t, listed)
}

func TestCommentListsAndPagination(t *testing.T) {
	r := newTestServer()
	idA, tokenA := registerAndLogin(t, r, "Ana", "a@x.com")
	_, tokenB := registerAndLogin(t, r, "Bob", "b@x.com")

	for i := 0; i < 3; i++ {
		w := doJSON(r, http.MethodPost, "/comments", tokenA, gin.H{"postId": "p1", "content": "a"})
		require.Equal(t, http.StatusCreated, w.Code)
	}
	w := doJSON(r, http.MethodPost, "/comments", tokenB, gin.H{"postId": "p2", "content": "b"})
	require.Equal(t, http.StatusCreated, w.Code)

	// Paged listing of everything.
	w = doJSON(r, http.MethodGet, "/comments?limit=3", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	page := decode(t, w)
	assert.Len(t, page["items"].([]any), 3)
	lastKey := page["lastKey"].(string)
	require.NotEmpty(t, lastKey)

	w = doJSON(r, http.MethodGet, "/comments?limit=3&lastKey="+lastKey, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	page = decode(t, w)
	assert.Len(t, page["items"].([]any), 1)
	_, more := page["lastKey"]
	assert.False(t, more)

	// Owner-scoped listing.
	w = doJSON(r, http.MethodGet, "/comments/user", tokenA, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var mine []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &mine))
	require.Len(t, mine, 3)
	for _, c := range mine {
		assert.Equal(t, idA, c["userId"])
	}
}
