package handlers

import (
	"bytes"
	"context"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strconv"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/payplanner/payplanner_backend/models"
	"github.com/payplanner/payplanner_backend/utils"
)

// withRole stands in for AuthMiddleware.
func withRole(roleId int, isAdmin bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := utils.SetRoleIdInContext(c.Request.Context(), roleId)
		ctx = utils.SetIsAdminInContext(ctx, isAdmin)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func documentRouter(roleId int) *gin.Engine {
	r := gin.New()
	r.Use(withRole(roleId, false))
	r.POST("/documents", UploadDocument())
	r.GET("/documents", ListDocuments())
	r.GET("/documents/:id/download", DownloadDocument())
	r.DELETE("/documents/:id", DeleteDocument())
	return r
}

func setupDocuments(t *testing.T) (map[string]*models.Role, *models.Client, *models.Document) {
	t.Helper()
	setupTestDB(t)
	ctx := context.Background()
	roles, err := models.SeedSystemRoles(ctx)
	if err != nil {
		t.Fatalf("SeedSystemRoles: %v", err)
	}
	store, err := utils.NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStorage: %v", err)
	}
	models.SetDocumentStorage(store)
	t.Cleanup(func() { models.SetDocumentStorage(nil) })

	client, err := models.CreateClient(ctx, &models.NewClient{Name: "Acme"})
	if err != nil {
		t.Fatalf("CreateClient: %v", err)
	}
	doc, err := models.UploadDocument(ctx, &models.NewDocument{
		ReferenceType: models.DocumentReferenceClient,
		ReferenceID:   client.ID,
		FileName:      `agreement "final".pdf`,
		MimeType:      "application/pdf",
	}, strings.NewReader("%PDF-1.4 test"))
	if err != nil {
		t.Fatalf("UploadDocument: %v", err)
	}
	return roles, client, doc
}

func multipartUpload(t *testing.T, referenceType string, referenceId int) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	_ = w.WriteField("referenceType", referenceType)
	_ = w.WriteField("referenceId", strconv.Itoa(referenceId))
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="file"; filename="scan.txt"`)
	header.Set("Content-Type", "text/plain")
	part, err := w.CreatePart(header)
	if err != nil {
		t.Fatalf("CreatePart: %v", err)
	}
	_, _ = part.Write([]byte("hello"))
	_ = w.Close()
	req := httptest.NewRequest(http.MethodPost, "/documents", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestDocuments_ViewerIsReadOnly(t *testing.T) {
	roles, client, doc := setupDocuments(t)
	r := documentRouter(roles[models.DefaultRoleName].ID)
	docPath := "/documents/" + strconv.Itoa(doc.ID)

	w := doRequest(r, http.MethodGet, "/documents?referenceType=clients&referenceId="+strconv.Itoa(client.ID), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = doRequest(r, http.MethodGet, docPath+"/download", nil)
	if w.Code != http.StatusOK || w.Body.String() != "%PDF-1.4 test" {
		t.Fatalf("download: expected the file, got %d: %s", w.Code, w.Body.String())
	}
	_, params, err := mime.ParseMediaType(w.Header().Get("Content-Disposition"))
	if err != nil || params["filename"] != `agreement "final".pdf` {
		t.Fatalf("expected the quoted file name to survive, got %q (%v)", w.Header().Get("Content-Disposition"), err)
	}

	if w = doRequest(r, http.MethodDelete, docPath, nil); w.Code != http.StatusForbidden {
		t.Fatalf("delete: expected 403, got %d", w.Code)
	}
	w = httptest.NewRecorder()
	r.ServeHTTP(w, multipartUpload(t, models.DocumentReferenceClient, client.ID))
	if w.Code != http.StatusForbidden {
		t.Fatalf("upload: expected 403, got %d: %s", w.Code, w.Body.String())
	}
	if docs, _ := models.GetDocuments(context.Background(), models.DocumentReferenceClient, client.ID); len(docs) != 1 {
		t.Fatalf("expected the document to survive, got %d", len(docs))
	}
}

func TestDocuments_ManagerCanChange(t *testing.T) {
	roles, client, doc := setupDocuments(t)
	r := documentRouter(roles["Manager"].ID)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, multipartUpload(t, models.DocumentReferenceClient, client.ID))
	if w.Code != http.StatusCreated {
		t.Fatalf("upload: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if w = doRequest(r, http.MethodDelete, "/documents/"+strconv.Itoa(doc.ID), nil); w.Code != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d: %s", w.Code, w.Body.String())
	}
}

func TestDocuments_UnknownReferenceType(t *testing.T) {
	roles, _, _ := setupDocuments(t)
	r := documentRouter(roles[models.DefaultRoleName].ID)

	for _, target := range []string{"/documents", "/documents?referenceType=calendar"} {
		if w := doRequest(r, http.MethodGet, target, nil); w.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", target, w.Code)
		}
	}
	if w := doRequest(r, http.MethodDelete, "/documents/999", nil); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for a missing document, got %d", w.Code)
	}
}
