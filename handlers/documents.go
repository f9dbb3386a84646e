package handlers

import (
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/payplanner/payplanner_backend/models"
)

// Document routes check the permission of the section owning the document
// (payments, contracts, invoices, acts or clients): view to list and download,
// edit to upload, delete to delete.

// UploadDocument takes a multipart form with "file", "referenceType" and "referenceId".
func UploadDocument() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, models.MaxDocumentSizeBytes+1<<20)

		var input models.NewDocument
		if err := c.ShouldBind(&input); err != nil {
			respondBindError(c, err)
			return
		}
		if err := models.CheckDocumentPermission(c.Request.Context(), input.ReferenceType, models.PermissionEdit); err != nil {
			respondError(c, "UploadDocument", err)
			return
		}
		fileHeader, err := c.FormFile("file")
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "file is required", "field": "file"})
			return
		}
		if fileHeader.Size > models.MaxDocumentSizeBytes {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "file is too large", "field": "file"})
			return
		}
		if input.FileName == "" {
			input.FileName = fileHeader.Filename
		}
		if input.MimeType == "" {
			input.MimeType = fileHeader.Header.Get("Content-Type")
		}
		file, err := fileHeader.Open()
		if err != nil {
			respondError(c, "UploadDocument", err)
			return
		}
		defer file.Close()

		result, err := models.UploadDocument(c.Request.Context(), &input, file)
		if err != nil {
			respondError(c, "UploadDocument", err)
			return
		}
		c.JSON(http.StatusCreated, result)
	}
}

func ListDocuments() gin.HandlerFunc {
	return func(c *gin.Context) {
		q := newQueryParser(c)
		referenceType := q.String("referenceType")
		referenceId := q.Int("referenceId", 0)
		if q.Err() {
			return
		}
		if err := models.CheckDocumentPermission(c.Request.Context(), referenceType, models.PermissionView); err != nil {
			respondError(c, "ListDocuments", err)
			return
		}
		results, err := models.GetDocuments(c.Request.Context(), referenceType, referenceId)
		if err != nil {
			respondError(c, "ListDocuments", err)
			return
		}
		c.JSON(http.StatusOK, results)
	}
}

// DownloadDocument streams the stored file, or its jpeg thumbnail with ?thumbnail=true.
func DownloadDocument() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramId(c, "id")
		if !ok {
			return
		}
		q := newQueryParser(c)
		thumbnail := q.BoolPtr("thumbnail")
		if q.Err() {
			return
		}
		wantThumbnail := thumbnail != nil && *thumbnail

		ctx := c.Request.Context()
		if !authorizeDocument(c, "DownloadDocument", id, models.PermissionView) {
			return
		}
		doc, reader, err := models.OpenDocument(ctx, id, wantThumbnail)
		if err != nil {
			respondError(c, "DownloadDocument", err)
			return
		}
		defer reader.Close()

		contentType, size := doc.MimeType, doc.Size
		disposition := attachmentDisposition(doc.FileName)
		if wantThumbnail {
			contentType, size = "image/jpeg", -1
			disposition = "inline"
		}
		c.Header("Content-Disposition", disposition)
		if size >= 0 {
			c.Header("Content-Length", strconv.FormatInt(size, 10))
		}
		c.Header("Content-Type", contentType)
		c.Status(http.StatusOK)
		if _, err := io.Copy(c.Writer, reader); err != nil {
			_ = c.Error(err)
		}
	}
}

func DeleteDocument() gin.HandlerFunc {
	del := deleteHandler("DeleteDocument", models.DeleteDocument)
	return func(c *gin.Context) {
		id, ok := paramId(c, "id")
		if !ok {
			return
		}
		if !authorizeDocument(c, "DeleteDocument", id, models.PermissionDelete) {
			return
		}
		del(c)
	}
}

// authorizeDocument loads document id and checks action against its owning section.
func authorizeDocument(c *gin.Context, funcName string, id int, action models.PermissionAction) bool {
	ctx := c.Request.Context()
	doc, err := models.GetDocument(ctx, id)
	if err == nil {
		err = models.CheckDocumentPermission(ctx, doc.ReferenceType, action)
	}
	if err != nil {
		respondError(c, funcName, err)
		return false
	}
	return true
}

// attachmentDisposition quotes or RFC 2231-encodes the file name as needed.
func attachmentDisposition(fileName string) string {
	if v := mime.FormatMediaType("attachment", map[string]string{"filename": fileName}); v != "" {
		return v
	}
	return "attachment"
}
