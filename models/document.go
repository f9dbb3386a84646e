package models

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/payplanner/payplanner_backend/config"
	"github.com/payplanner/payplanner_backend/utils"
	"gorm.io/gorm"
)

const MaxDocumentSizeBytes int64 = 10 * 1024 * 1024

var documentMimeTypes = map[string]bool{
	"application/pdf":          true,
	"application/msword":       true,
	"application/vnd.ms-excel": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":       true,
	"text/plain": true,
	"image/jpeg": true,
	"image/png":  true,
}

// documentSections maps a reference type to the permission section guarding its documents.
var documentSections = map[string]string{
	DocumentReferencePayment:  SectionPayments,
	DocumentReferenceContract: SectionContracts,
	DocumentReferenceInvoice:  SectionInvoices,
	DocumentReferenceAct:      SectionActs,
	DocumentReferenceClient:   SectionClients,
}

// CheckDocumentPermission applies the owning section's permission to documents of referenceType.
func CheckDocumentPermission(ctx context.Context, referenceType string, action PermissionAction) error {
	section, ok := documentSections[referenceType]
	if !ok {
		return utils.NewValidationError("reference_type", "unsupported reference type %q", referenceType)
	}
	return CheckPermission(ctx, section, action)
}

var thumbnailMimeTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

// Document is an uploaded file attached to a payment, contract, invoice, act or client.
type Document struct {
	ID            int       `gorm:"primary_key" json:"id"`
	ReferenceType string    `gorm:"size:20;not null;index:idx_document_reference" json:"reference_type"`
	ReferenceID   int       `gorm:"not null;index:idx_document_reference" json:"reference_id"`
	FileName      string    `gorm:"size:255;not null" json:"file_name"`
	MimeType      string    `gorm:"size:100;not null" json:"mime_type"`
	Size          int64     `gorm:"not null" json:"size"`
	ObjectKey     string    `gorm:"size:255;not null" json:"-"`
	ThumbnailKey  string    `gorm:"size:255" json:"-"`
	HasThumbnail  bool      `gorm:"-" json:"has_thumbnail"`
	UploadedById  *int      `json:"uploaded_by_id"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (d *Document) AfterFind(tx *gorm.DB) error {
	d.HasThumbnail = d.ThumbnailKey != ""
	return nil
}

type NewDocument struct {
	ReferenceType string `json:"reference_type" form:"referenceType" binding:"required"`
	ReferenceID   int    `json:"reference_id" form:"referenceId" binding:"required"`
	FileName      string `json:"file_name"`
	MimeType      string `json:"mime_type"`
}

var documentStorage utils.ObjectStorage

// SetDocumentStorage installs the object storage documents are written to.
func SetDocumentStorage(s utils.ObjectStorage) {
	documentStorage = s
}

func getDocumentStorage() (utils.ObjectStorage, error) {
	if documentStorage == nil {
		return nil, errors.New("document storage is not configured")
	}
	return documentStorage, nil
}

func (input *NewDocument) validate(ctx context.Context) error {
	var err error
	switch input.ReferenceType {
	case DocumentReferencePayment:
		err = utils.ValidateResourceId[Payment](ctx, input.ReferenceID)
	case DocumentReferenceContract:
		err = utils.ValidateResourceId[Contract](ctx, input.ReferenceID)
	case DocumentReferenceInvoice:
		err = utils.ValidateResourceId[Invoice](ctx, input.ReferenceID)
	case DocumentReferenceAct:
		err = utils.ValidateResourceId[Act](ctx, input.ReferenceID)
	case DocumentReferenceClient:
		err = utils.ValidateResourceId[Client](ctx, input.ReferenceID)
	default:
		return utils.NewValidationError("reference_type", "unsupported reference type %q", input.ReferenceType)
	}
	if err == utils.ErrorRecordNotFound {
		return utils.NewValidationError("reference_id", "%s %d does not exist", input.ReferenceType, input.ReferenceID)
	}
	if err != nil {
		return err
	}

	input.FileName = strings.TrimSpace(filepath.Base(input.FileName))
	if input.FileName == "" || input.FileName == "." {
		return utils.NewValidationError("file", "file name is required")
	}
	input.MimeType = strings.ToLower(strings.TrimSpace(strings.Split(input.MimeType, ";")[0]))
	if !documentMimeTypes[input.MimeType] {
		return utils.NewValidationError("file", "unsupported file type %q", input.MimeType)
	}
	return nil
}

// UploadDocument stores the file (and a thumbnail for images) and records the document.
func UploadDocument(ctx context.Context, input *NewDocument, r io.Reader) (*Document, error) {
	if err := input.validate(ctx); err != nil {
		return nil, err
	}
	store, err := getDocumentStorage()
	if err != nil {
		return nil, err
	}

	data, err := io.ReadAll(io.LimitReader(r, MaxDocumentSizeBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, utils.NewValidationError("file", "file is empty")
	}
	if int64(len(data)) > MaxDocumentSizeBytes {
		return nil, utils.NewValidationError("file", "file size exceeds %d MB limit", MaxDocumentSizeBytes/1024/1024)
	}

	ext := strings.ToLower(filepath.Ext(input.FileName))
	objectKey := path.Join(input.ReferenceType, uuid.New().String()+ext)
	if err := store.Put(ctx, objectKey, input.MimeType, bytes.NewReader(data)); err != nil {
		return nil, err
	}
	written := []string{objectKey}

	doc := Document{
		ReferenceType: input.ReferenceType,
		ReferenceID:   input.ReferenceID,
		FileName:      input.FileName,
		MimeType:      input.MimeType,
		Size:          int64(len(data)),
		ObjectKey:     objectKey,
		UploadedById:  utils.GetUserIdPtrFromContext(ctx),
	}

	if thumbnailMimeTypes[input.MimeType] {
		thumbnail, err := generateThumbnail(data)
		if err != nil {
			// not a decodable image after all; keep the file without a preview
			config.LogError(config.GetLogger(), "Document", "UploadDocument", "generateThumbnail", input.FileName, err)
		} else {
			thumbnailKey := path.Join(input.ReferenceType, "thumbnails", uuid.New().String()+".jpg")
			if err := store.Put(ctx, thumbnailKey, "image/jpeg", bytes.NewReader(thumbnail)); err != nil {
				purgeDocumentObjects(ctx, written)
				return nil, err
			}
			written = append(written, thumbnailKey)
			doc.ThumbnailKey = thumbnailKey
		}
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&doc).Error; err != nil {
		purgeDocumentObjects(ctx, written)
		return nil, err
	}
	doc.HasThumbnail = doc.ThumbnailKey != ""
	return &doc, nil
}

func generateThumbnail(originalData []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(originalData), imaging.AutoOrientation(true))
	if err != nil {
		return nil, err
	}
	thumbnail := imaging.Resize(img, 200, 0, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumbnail, imaging.JPEG); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func GetDocument(ctx context.Context, id int) (*Document, error) {
	return utils.FetchModel[Document](ctx, id)
}

func GetDocuments(ctx context.Context, referenceType string, referenceId int) ([]*Document, error) {
	var results []*Document
	db := config.GetDB().WithContext(ctx)
	if referenceType != "" {
		db = db.Where("reference_type = ?", referenceType)
	}
	if referenceId > 0 {
		db = db.Where("reference_id = ?", referenceId)
	}
	if err := db.Order("id DESC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// OpenDocument returns the stored file, or its thumbnail. The caller closes the reader.
func OpenDocument(ctx context.Context, id int, thumbnail bool) (*Document, io.ReadCloser, error) {
	doc, err := GetDocument(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	store, err := getDocumentStorage()
	if err != nil {
		return nil, nil, err
	}
	key := doc.ObjectKey
	if thumbnail {
		if doc.ThumbnailKey == "" {
			return nil, nil, utils.ErrorRecordNotFound
		}
		key = doc.ThumbnailKey
	}
	rc, err := store.Open(ctx, key)
	if err != nil {
		return nil, nil, err
	}
	return doc, rc, nil
}

func DeleteDocument(ctx context.Context, id int) (*Document, error) {
	doc, err := GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Delete(doc).Error; err != nil {
		return nil, err
	}
	purgeDocumentObjects(ctx, doc.objectKeys())
	return doc, nil
}

func (d *Document) objectKeys() []string {
	keys := []string{d.ObjectKey}
	if d.ThumbnailKey != "" {
		keys = append(keys, d.ThumbnailKey)
	}
	return keys
}

// deleteDocumentsOf removes the document rows of a reference inside tx and returns their
// object keys, to be purged once tx has committed.
func deleteDocumentsOf(tx *gorm.DB, referenceType string, referenceId int) ([]string, error) {
	var docs []*Document
	if err := tx.Where("reference_type = ? AND reference_id = ?", referenceType, referenceId).Find(&docs).Error; err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, nil
	}
	var keys []string
	for _, d := range docs {
		keys = append(keys, d.objectKeys()...)
	}
	if err := tx.Where("reference_type = ? AND reference_id = ?", referenceType, referenceId).Delete(&Document{}).Error; err != nil {
		return nil, err
	}
	return keys, nil
}

// purgeDocumentObjects deletes stored objects; failures are logged and leave orphans behind.
func purgeDocumentObjects(ctx context.Context, keys []string) {
	if len(keys) == 0 || documentStorage == nil {
		return
	}
	for _, key := range keys {
		if err := documentStorage.Delete(ctx, key); err != nil {
			config.LogError(config.GetLogger(), "Document", "purgeDocumentObjects", "Delete", key, err)
		}
	}
}
