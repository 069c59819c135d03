package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/skyposts/skyposts/models"
	"github.com/skyposts/skyposts/storage"
	"github.com/skyposts/skyposts/store"
	"github.com/skyposts/skyposts/utils"
)

// AuthController handles registration, login and the authenticated user's
// own profile.
type AuthController struct {
	users     *store.Users
	objects   storage.Signer
	jwtSecret string
}

// NewAuthController creates an AuthController.
func NewAuthController(users *store.Users, objects storage.Signer, jwtSecret string) *AuthController {
	return &AuthController{users: users, objects: objects, jwtSecret: jwtSecret}
}

// Register creates a new account. The email uniqueness check is a lookup
// followed by a plain put; two racing registrations can both pass the
// lookup (see store.Users.Create).
func (a *AuthController) Register(ctx *gin.Context) {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, "invalid request payload")
		return
	}

	name := strings.TrimSpace(req.Name)
	email := strings.TrimSpace(req.Email)
	if name == "" || email == "" || req.Password == "" {
		utils.Error(ctx, http.StatusBadRequest, "missing fields")
		return
	}

	if _, err := a.users.GetByEmail(ctx, email); err == nil {
		utils.Error(ctx, http.StatusConflict, "email already exists")
		return
	} else if !errors.Is(err, store.ErrNotFound) {
		utils.Error(ctx, http.StatusInternalServerError, "failed to register")
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "failed to register")
		return
	}

	user := models.User{
		UserID:       uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := a.users.Create(ctx, user); err != nil {
		utils.Sugar.Errorf("create user: %v", err)
		utils.Error(ctx, http.StatusInternalServerError, "failed to register")
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"userId": user.UserID,
		"name":   user.Name,
		"email":  user.Email,
	})
}

// Login authenticates by email and password and issues a bearer token.
func (a *AuthController) Login(ctx *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, "invalid request payload")
		return
	}

	email := strings.TrimSpace(req.Email)
	if email == "" || req.Password == "" {
		utils.Error(ctx, http.StatusBadRequest, "missing fields")
		return
	}

	user, err := a.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			utils.Error(ctx, http.StatusNotFound, "user not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, "failed to log in")
		return
	}

	if !utils.CheckPassword(user.PasswordHash, req.Password) {
		utils.Error(ctx, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := utils.GenerateToken(a.jwtSecret, user.UserID, utils.TokenTTL)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "failed to log in")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"token": token})
}

// Me returns the caller's own record, hash stripped, profile image key
// resolved to a download URL.
func (a *AuthController) Me(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := a.users.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			utils.Error(ctx, http.StatusNotFound, "user not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, "failed to load profile")
		return
	}

	resp, err := a.userResponse(ctx, user)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "failed to load profile")
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

// UpdateMe applies a partial profile update; omitted fields stay
// untouched.
func (a *AuthController) UpdateMe(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req struct {
		Name         *string `json:"name"`
		ProfileImage *string `json:"profileImage"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, "invalid request payload")
		return
	}
	if req.Name == nil && req.ProfileImage == nil {
		utils.Error(ctx, http.StatusBadRequest, "nothing to update")
		return
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		utils.Error(ctx, http.StatusBadRequest, "name cannot be empty")
		return
	}

	user, err := a.users.UpdateProfile(ctx, userID, req.Name, req.ProfileImage)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			utils.Error(ctx, http.StatusNotFound, "user not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, "failed to update profile")
		return
	}

	resp, err := a.userResponse(ctx, user)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "failed to update profile")
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

// ProfileUploadURL hands out a presigned PUT URL for a new profile image.
func (a *AuthController) ProfileUploadURL(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, "unauthorized")
		return
	}

	ext := strings.TrimSpace(ctx.DefaultQuery("ext", "png"))
	key := fmt.Sprintf("profile/%s/%s.%s", userID, uuid.NewString(), ext)

	uploadURL, err := a.objects.UploadURL(ctx, key, "image/"+ext)
	if err != nil {
		utils.Sugar.Errorf("presign profile upload: %v", err)
		utils.Error(ctx, http.StatusInternalServerError, "failed to generate upload url")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"uploadUrl": uploadURL,
		"key":       key,
	})
}

func (a *AuthController) userResponse(ctx *gin.Context, user *models.User) (gin.H, error) {
	resp := gin.H{
		"userId":    user.UserID,
		"name":      user.Name,
		"email":     user.Email,
		"createdAt": user.CreatedAt,
	}
	if user.ProfileImage != "" {
		url, err := a.objects.DownloadURL(ctx, user.ProfileImage)
		if err != nil {
			return nil, err
		}
		resp["profileImage"] = user.ProfileImage
		resp["profileImageUrl"] = url
	}
	return resp, nil
}
