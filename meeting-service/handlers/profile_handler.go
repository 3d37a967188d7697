package handlers

import (
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"meetdesk-backend/shared/apperror"
	"meetdesk-backend/shared/database/models"
	"meetdesk-backend/shared/store"
	"meetdesk-backend/shared/utils/response"
)

// ProfileHandler lets staff users manage their own profile and lets admins manage roles
type ProfileHandler struct {
	users          store.UserStore
	avatars        AvatarStorage
	avatarMaxBytes int64
}

func NewProfileHandler(users store.UserStore, avatars AvatarStorage, avatarMaxBytes int64) *ProfileHandler {
	return &ProfileHandler{users: users, avatars: avatars, avatarMaxBytes: avatarMaxBytes}
}

type UpdateProfileRequest struct {
	FirstName      *string                   `json:"firstName" binding:"omitempty,min=1,max=100"`
	LastName       *string                   `json:"lastName" binding:"omitempty,min=1,max=100"`
	PhoneNumber    *string                   `json:"phoneNumber" binding:"omitempty,max=30"`
	Department     *string                   `json:"department" binding:"omitempty,oneof=sales support marketing management"`
	ZoomUserID     *string                   `json:"zoomUserId" binding:"omitempty,max=100"`
	AvailableHours models.WeeklyAvailability `json:"availableHours"`
	Preferences    *models.UserPreferences   `json:"preferences"`
}

type UpdateRoleRequest struct {
	Role   *string `json:"role" binding:"omitempty,oneof=admin manager agent"`
	Status *string `json:"status" binding:"omitempty,oneof=active inactive"`
}

// Get returns the caller's profile
// @Summary Get my profile
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope{data=models.User}
// @Router /users/me [get]
func (h *ProfileHandler) Get(c *gin.Context) {
	response.Success(c, http.StatusOK, "Profile retrieved successfully", identityFrom(c).User)
}

// Update changes the caller's profile fields
// @Summary Update my profile
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body UpdateProfileRequest true "Fields to change"
// @Success 200 {object} response.Envelope{data=models.User}
// @Failure 400 {object} response.Envelope
// @Router /users/me [put]
func (h *ProfileHandler) Update(c *gin.Context) {
	var req UpdateProfileRequest
	if !bindJSON(c, &req) {
		return
	}
	user := *identityFrom(c).User

	if req.FirstName != nil {
		user.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		user.LastName = *req.LastName
	}
	if req.PhoneNumber != nil {
		user.PhoneNumber = *req.PhoneNumber
	}
	if req.Department != nil {
		user.Department = *req.Department
	}
	if req.ZoomUserID != nil {
		user.ZoomUserID = strings.TrimSpace(*req.ZoomUserID)
	}
	if req.AvailableHours != nil {
		user.AvailableHours = req.AvailableHours
	}
	if req.Preferences != nil {
		prefs := *req.Preferences
		if prefs.Timezone == "" {
			prefs.Timezone = user.Preferences.Timezone
		}
		if prefs.DefaultMeetingDuration <= 0 {
			prefs.DefaultMeetingDuration = models.DefaultMeetingDuration
		}
		user.Preferences = prefs
	}

	if err := h.users.UpdateUser(c.Request.Context(), &user); err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Profile updated successfully", &user)
}

// UploadAvatar replaces the caller's profile image
// @Summary Upload my avatar
// @Tags users
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param avatar formData file true "Image file"
// @Success 200 {object} response.Envelope{data=models.User}
// @Failure 400 {object} response.Envelope "Missing, oversized or non-image file"
// @Failure 502 {object} response.Envelope "Storage failure"
// @Router /users/me/avatar [post]
func (h *ProfileHandler) UploadAvatar(c *gin.Context) {
	if h.avatars == nil {
		c.Error(apperror.New(http.StatusServiceUnavailable, "Avatar storage is not configured"))
		return
	}
	file, header, err := c.Request.FormFile("avatar")
	if err != nil {
		c.Error(apperror.Wrap(err, http.StatusBadRequest, "Avatar file is required"))
		return
	}
	defer file.Close()

	if header.Size > h.avatarMaxBytes {
		c.Error(apperror.BadRequest("Avatar exceeds the maximum allowed size"))
		return
	}

	sniff := make([]byte, 512)
	n, err := io.ReadFull(file, sniff)
	if err != nil && err != io.ErrUnexpectedEOF {
		c.Error(apperror.Wrap(err, http.StatusBadRequest, "Avatar file could not be read"))
		return
	}
	contentType := http.DetectContentType(sniff[:n])
	if !strings.HasPrefix(contentType, "image/") {
		c.Error(apperror.BadRequest("Avatar must be an image"))
		return
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		c.Error(err)
		return
	}

	ctx := c.Request.Context()
	user := *identityFrom(c).User
	previous := user.ProfileImage

	url, err := h.avatars.PutAvatar(ctx, user.ID, header.Filename, contentType, file, header.Size)
	if err != nil {
		c.Error(apperror.Wrap(err, http.StatusBadGateway, "Failed to store avatar"))
		return
	}
	user.ProfileImage = url
	if err := h.users.UpdateUser(ctx, &user); err != nil {
		c.Error(err)
		return
	}

	if previous != "" {
		if err := h.avatars.RemoveAvatar(detached(c), previous); err != nil {
			log.Printf("⚠️ Failed to remove previous avatar for user %s: %v", user.ID, err)
		}
	}
	response.Success(c, http.StatusOK, "Avatar updated successfully", &user)
}

// UpdateRole changes another user's role or status
// @Summary Update a user's role or status (admin only)
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Param request body UpdateRoleRequest true "Role and/or status"
// @Success 200 {object} response.Envelope{data=models.User}
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope "User not found"
// @Router /users/{id}/role [put]
func (h *ProfileHandler) UpdateRole(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req UpdateRoleRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.Role == nil && req.Status == nil {
		c.Error(apperror.BadRequest("role or status is required"))
		return
	}
	if id == identityFrom(c).ID() {
		c.Error(apperror.BadRequest("You cannot change your own role or status"))
		return
	}
	ctx := c.Request.Context()

	user, err := h.users.GetUserByID(ctx, id)
	if err != nil {
		c.Error(notFoundAs(err, "User not found"))
		return
	}
	if req.Role != nil {
		user.Role = *req.Role
	}
	if req.Status != nil {
		user.Status = *req.Status
	}
	if err := h.users.UpdateUser(ctx, user); err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "User updated successfully", user)
}
