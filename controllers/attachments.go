package controllers

import (
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/itsivali/virtual-butler/utils"
)

// AttachmentController stores guest-request images in the attachment bucket
// and hands out short-lived download links.
type AttachmentController struct{}

func NewAttachmentController() *AttachmentController {
	return &AttachmentController{}
}

var allowedImageExt = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true,
}

// Upload accepts a multipart image under the "file" field and stores it
// keyed by the caller's identity.
func (c *AttachmentController) Upload(w http.ResponseWriter, r *http.Request) {
	if !utils.AttachmentsEnabled() {
		utils.WriteJSON(w, http.StatusServiceUnavailable, utils.APIResponse{Success: false, Message: "Attachments are not configured"})
		return
	}
	claims, ok := utils.ClaimsFromRequest(r)
	if !ok {
		utils.WriteJSON(w, http.StatusUnauthorized, utils.APIResponse{Success: false, Message: "Unauthorized"})
		return
	}

	if err := r.ParseMultipartForm(8 << 20); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Invalid multipart form"})
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Missing file field"})
		return
	}
	defer file.Close()

	ext := strings.ToLower(path.Ext(header.Filename))
	if !allowedImageExt[ext] {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Unsupported file type"})
		return
	}

	objectName := fmt.Sprintf("attachments/%s/%d%s", claims.Subject, time.Now().UnixNano(), ext)
	if err := utils.UploadAttachment(r.Context(), objectName, file); err != nil {
		utils.Log.Error().Err(err).Str("object", objectName).Msg("attachment upload failed")
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Upload failed"})
		return
	}

	utils.WriteJSON(w, http.StatusCreated, utils.APIResponse{
		Success: true,
		Message: "Attachment stored",
		Data:    map[string]interface{}{"object": objectName},
	})
}

// SignedURL returns a presigned download link for a stored attachment.
// Guests may only fetch their own objects.
func (c *AttachmentController) SignedURL(w http.ResponseWriter, r *http.Request) {
	if !utils.AttachmentsEnabled() {
		utils.WriteJSON(w, http.StatusServiceUnavailable, utils.APIResponse{Success: false, Message: "Attachments are not configured"})
		return
	}
	claims, ok := utils.ClaimsFromRequest(r)
	if !ok {
		utils.WriteJSON(w, http.StatusUnauthorized, utils.APIResponse{Success: false, Message: "Unauthorized"})
		return
	}

	objectName := mux.Vars(r)["object"]
	if strings.Contains(objectName, "..") {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Invalid object name"})
		return
	}
	if claims.Role == "guest" && !strings.HasPrefix(objectName, "attachments/"+claims.Subject+"/") {
		utils.WriteJSON(w, http.StatusForbidden, utils.APIResponse{Success: false, Message: "Access denied"})
		return
	}

	url, err := utils.AttachmentSignedURL(r.Context(), objectName, 15*time.Minute)
	if err != nil {
		utils.Log.Error().Err(err).Str("object", objectName).Msg("failed to presign attachment")
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Internal server error"})
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Successfully",
		Data:    map[string]interface{}{"url": url},
	})
}

// Delete removes a stored attachment. Admin only; enforced in routing.
func (c *AttachmentController) Delete(w http.ResponseWriter, r *http.Request) {
	if !utils.AttachmentsEnabled() {
		utils.WriteJSON(w, http.StatusServiceUnavailable, utils.APIResponse{Success: false, Message: "Attachments are not configured"})
		return
	}

	objectName := mux.Vars(r)["object"]
	if strings.Contains(objectName, "..") {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Invalid object name"})
		return
	}

	if err := utils.DeleteAttachment(r.Context(), objectName); err != nil {
		utils.Log.Error().Err(err).Str("object", objectName).Msg("attachment delete failed")
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Internal server error"})
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Attachment deleted"})
}
