package domain

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestMetadata_PersistsVariantByKind(t *testing.T) {
	db := newTestDB(t)
	if err := db.AutoMigrate(&CreditTransaction{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}

	rows := []CreditTransaction{
		{ID: "t1", UserID: "u1", Amount: 10, Kind: KindPurchase, BalanceAfter: 10,
			Metadata: Meta(PurchaseMetadata{PackageType: "pack_10", PaymentRef: "cs_1", AmountPaid: 499})},
		{ID: "t2", UserID: "u1", Amount: 0, Kind: KindDonation, BalanceAfter: 10,
			Metadata: Meta(DonationMetadata{AmountPaid: 300})},
		{ID: "t3", UserID: "u1", Amount: 1, Kind: KindBonus, BalanceAfter: 11},
	}
	for i := range rows {
		rows[i].CreatedAt = time.Now().UTC()
		if err := db.Create(&rows[i]).Error; err != nil {
			t.Fatalf("insert %s: %v", rows[i].ID, err)
		}
	}

	var got CreditTransaction
	if err := db.First(&got, "id = ?", "t1").Error; err != nil {
		t.Fatalf("load t1: %v", err)
	}
	pm, ok := got.Metadata.Variant.(PurchaseMetadata)
	if !ok {
		t.Fatalf("expected PurchaseMetadata, got %T", got.Metadata.Variant)
	}
	if pm.PackageType != "pack_10" || pm.AmountPaid != 499 {
		t.Fatalf("unexpected purchase metadata: %+v", pm)
	}

	var nometa CreditTransaction
	if err := db.First(&nometa, "id = ?", "t3").Error; err != nil {
		t.Fatalf("load t3: %v", err)
	}
	if nometa.Metadata.Variant != nil {
		t.Fatalf("expected nil metadata, got %#v", nometa.Metadata.Variant)
	}
}

func TestMetadata_KindMismatchRejected(t *testing.T) {
	db := newTestDB(t)
	if err := db.AutoMigrate(&CreditTransaction{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	tx := &CreditTransaction{ID: "bad", UserID: "u1", Amount: 5, Kind: KindRefund,
		Metadata: Meta(PurchaseMetadata{PackageType: "x"})}
	err := db.Create(tx).Error
	if !errors.Is(err, ErrMetadataKindMismatch) {
		t.Fatalf("expected ErrMetadataKindMismatch, got %v", err)
	}
}

func TestMetadata_ScanErrors(t *testing.T) {
	var m MetadataColumn
	if err := m.Scan(42); err == nil {
		t.Fatalf("expected error for int column")
	}
	if err := m.Scan(`{"kind":"gift","data":{}}`); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
	if err := m.Scan(nil); err != nil || m.Variant != nil {
		t.Fatalf("nil scan should clear value: %v %#v", err, m.Variant)
	}
}

func TestMetadata_MarshalJSON_RendersVariant(t *testing.T) {
	b, err := json.Marshal(Meta(UsageMetadata{ItemID: "item-1", GeminiTotalTokens: 1200}))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"item_id":"item-1","gemini_total_tokens":1200}` {
		t.Fatalf("unexpected JSON: %s", b)
	}
	b, _ = json.Marshal(MetadataColumn{})
	if string(b) != "null" {
		t.Fatalf("nil metadata should render null, got %s", b)
	}
}
