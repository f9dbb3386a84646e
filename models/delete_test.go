package models_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/payplanner/payplanner_backend/config"
	"github.com/payplanner/payplanner_backend/models"
	"github.com/payplanner/payplanner_backend/utils"
	"github.com/shopspring/decimal"
)

// setupTestStorage points document uploads at a temporary directory for the test.
func setupTestStorage(t *testing.T) utils.ObjectStorage {
	t.Helper()
	store, err := utils.NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStorage: %v", err)
	}
	models.SetDocumentStorage(store)
	t.Cleanup(func() { models.SetDocumentStorage(nil) })
	return store
}

func mustUploadText(t *testing.T, ctx context.Context, referenceType string, referenceId int) *models.Document {
	t.Helper()
	doc, err := models.UploadDocument(ctx, &models.NewDocument{
		ReferenceType: referenceType,
		ReferenceID:   referenceId,
		FileName:      "note.txt",
		MimeType:      "text/plain",
	}, bytes.NewBufferString("signed copy"))
	if err != nil {
		t.Fatalf("UploadDocument: %v", err)
	}
	return doc
}

func countRows(t *testing.T, model interface{}, query string, args ...interface{}) int64 {
	t.Helper()
	var count int64
	if err := config.GetDB().Model(model).Where(query, args...).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return count
}

func TestDeleteClientCase_DetachesPayments(t *testing.T) {
	ctx := setupTestDB(t)
	client := mustCreateClient(t, ctx, "Case Owner")
	clientCase, err := models.CreateClientCase(ctx, &models.NewClientCase{ClientId: &client.ID, Title: "Arbitration"})
	if err != nil {
		t.Fatalf("CreateClientCase: %v", err)
	}
	due := utils.DateOnly(time.Now()).AddDate(0, 0, 3)
	var paymentIds []int
	for _, amount := range []int64{10, 20} {
		p, err := models.CreatePayment(ctx, &models.NewPayment{
			Type:         models.PaymentTypeIncome,
			Amount:       decimal.NewFromInt(amount),
			Date:         due,
			ClientId:     &client.ID,
			ClientCaseId: &clientCase.ID,
		})
		if err != nil {
			t.Fatalf("CreatePayment: %v", err)
		}
		paymentIds = append(paymentIds, p.ID)
	}

	if _, err := models.DeleteClientCase(ctx, clientCase.ID); err != nil {
		t.Fatalf("DeleteClientCase: %v", err)
	}
	if _, err := models.GetClientCase(ctx, clientCase.ID); err != utils.ErrorRecordNotFound {
		t.Fatalf("expected case to be gone, got %v", err)
	}
	for _, id := range paymentIds {
		p, err := models.GetPayment(ctx, id)
		if err != nil {
			t.Fatalf("GetPayment(%d): %v", id, err)
		}
		if p.ClientCaseId != nil {
			t.Fatalf("payment %d still points at case %d", id, *p.ClientCaseId)
		}
		if p.ClientId == nil || *p.ClientId != client.ID {
			t.Fatalf("payment %d lost its client", id)
		}
	}
}

func TestDeleteContract_DetachesDependants(t *testing.T) {
	ctx := setupTestDB(t)
	store := setupTestStorage(t)
	client := mustCreateClient(t, ctx, "Party")
	date := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	contract, err := models.CreateContract(ctx, &models.NewContract{
		Number:  "C-1",
		Title:   "Supply",
		Date:    date,
		Amount:  decimal.NewFromInt(500),
		Clients: []*models.NewContractClient{{ClientId: client.ID, Role: "Customer"}},
	})
	if err != nil {
		t.Fatalf("CreateContract: %v", err)
	}
	invoice, err := models.CreateInvoice(ctx, &models.NewInvoice{Number: "INV-1", Date: date, Amount: decimal.NewFromInt(500), ContractId: &contract.ID})
	if err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}
	act, err := models.CreateAct(ctx, &models.NewAct{Number: "A-1", Title: "Delivered", Date: date, ContractId: &contract.ID})
	if err != nil {
		t.Fatalf("CreateAct: %v", err)
	}
	doc := mustUploadText(t, ctx, models.DocumentReferenceContract, contract.ID)

	if _, err := models.DeleteContract(ctx, contract.ID); err != nil {
		t.Fatalf("DeleteContract: %v", err)
	}

	reloadedInvoice, err := models.GetInvoice(ctx, invoice.ID)
	if err != nil {
		t.Fatalf("GetInvoice: %v", err)
	}
	if reloadedInvoice.ContractId != nil {
		t.Fatalf("invoice still points at contract %d", *reloadedInvoice.ContractId)
	}
	reloadedAct, err := models.GetAct(ctx, act.ID)
	if err != nil {
		t.Fatalf("GetAct: %v", err)
	}
	if reloadedAct.ContractId != nil {
		t.Fatalf("act still points at contract %d", *reloadedAct.ContractId)
	}

	tests := []struct {
		name  string
		model interface{}
		query string
		args  []interface{}
	}{
		{"contract", &models.Contract{}, "id = ?", []interface{}{contract.ID}},
		{"parties", &models.ContractClient{}, "contract_id = ?", []interface{}{contract.ID}},
		{"documents", &models.Document{}, "reference_type = ? AND reference_id = ?", []interface{}{models.DocumentReferenceContract, contract.ID}},
	}
	for _, tt := range tests {
		if n := countRows(t, tt.model, tt.query, tt.args...); n != 0 {
			t.Fatalf("%s: expected no rows left, got %d", tt.name, n)
		}
	}
	if _, err := store.Open(ctx, doc.ObjectKey); err == nil {
		t.Fatalf("expected stored object %s to be purged", doc.ObjectKey)
	}
	if _, err := models.GetClient(ctx, client.ID); err != nil {
		t.Fatalf("client should survive the contract: %v", err)
	}
}

func TestDeleteInvoice_DetachesActs(t *testing.T) {
	ctx := setupTestDB(t)
	store := setupTestStorage(t)
	date := time.Date(2024, 4, 15, 0, 0, 0, 0, time.UTC)
	invoice, err := models.CreateInvoice(ctx, &models.NewInvoice{Number: "INV-7", Date: date, Amount: decimal.NewFromInt(120)})
	if err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}
	act, err := models.CreateAct(ctx, &models.NewAct{Number: "A-7", Title: "Accepted", Date: date, InvoiceId: &invoice.ID})
	if err != nil {
		t.Fatalf("CreateAct: %v", err)
	}
	doc := mustUploadText(t, ctx, models.DocumentReferenceInvoice, invoice.ID)
	// documents of other references stay put
	actDoc := mustUploadText(t, ctx, models.DocumentReferenceAct, act.ID)

	if _, err := models.DeleteInvoice(ctx, invoice.ID); err != nil {
		t.Fatalf("DeleteInvoice: %v", err)
	}
	if _, err := models.GetInvoice(ctx, invoice.ID); err != utils.ErrorRecordNotFound {
		t.Fatalf("expected invoice to be gone, got %v", err)
	}
	reloadedAct, err := models.GetAct(ctx, act.ID)
	if err != nil {
		t.Fatalf("GetAct: %v", err)
	}
	if reloadedAct.InvoiceId != nil {
		t.Fatalf("act still points at invoice %d", *reloadedAct.InvoiceId)
	}
	if _, err := models.GetDocument(ctx, doc.ID); err != utils.ErrorRecordNotFound {
		t.Fatalf("expected invoice document to be gone, got %v", err)
	}
	if _, err := store.Open(ctx, doc.ObjectKey); err == nil {
		t.Fatalf("expected stored object %s to be purged", doc.ObjectKey)
	}
	if _, err := models.GetDocument(ctx, actDoc.ID); err != nil {
		t.Fatalf("act document should survive: %v", err)
	}
}
